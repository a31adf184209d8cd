package integrator

import (
	"math"

	"go.uber.org/zap"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/geometry"
	"github.com/df07/go-progressive-pathtracer/pkg/material"
	"github.com/df07/go-progressive-pathtracer/pkg/sky"
)

// Epsilon offsets continuation rays from the surface along the geometric normal
const Epsilon = 1e-5

// PathTracer implements unidirectional path tracing without light sampling
type PathTracer struct {
	config       Config
	scene        *Scene
	intersector  Intersector
	bsdf         material.BSDF
	objects      []*geometry.Object
	lightForward core.Vec3
}

// NewPathTracer creates a path tracer over the scene. The active object set
// and the light direction are captured here, so settings changes need a new
// tracer.
func NewPathTracer(config Config, scene *Scene, intersector Intersector, bsdf material.BSDF, logger *zap.Logger) *PathTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DirectLightSampling {
		logger.Debug("direct light sampling requested; tracing without it")
	}

	objects := []*geometry.Object{scene.Model}
	if config.LightEnabled {
		objects = append(objects, scene.Light)
	}
	if config.FloorEnabled {
		objects = append(objects, scene.Floor)
	}

	return &PathTracer{
		config:       config,
		scene:        scene,
		intersector:  intersector,
		bsdf:         bsdf,
		objects:      objects,
		lightForward: scene.LightForward(),
	}
}

// Trace computes the radiance for a camera ray by following one path of at
// most Bounces segments
func (pt *PathTracer) Trace(ray core.Ray, sampler core.Sampler) core.Vec3 {
	radiance := core.Vec3{}
	throughput := core.NewVec3(1, 1, 1)
	current := ray

	for bounce := 0; bounce < pt.config.Bounces; bounce++ {
		hit, isHit := pt.intersector.Intersect(current, pt.objects)
		if !isHit {
			background := sky.Sample(current.Direction, pt.config.SkyMode, pt.config.SkyIntensity)
			radiance = radiance.Add(background.MultiplyVec(throughput))
			break
		}

		if hit.Object == pt.scene.Light {
			weight := math.Max(-current.Direction.Dot(pt.lightForward), 0)
			radiance = radiance.Add(pt.scene.LightColor.MultiplyVec(throughput).Multiply(weight))
			break
		}

		rec := ResolveShading(hit, current, pt.config.SmoothNormals, pt.scene.Materials)

		// outgoing direction towards the previous vertex, in the shading frame
		basis := core.NewBasis(rec.Normal)
		wo := basis.ToLocal(current.Direction).Negate().Normalize()
		sample := pt.bsdf.Sample(wo, rec, rec.Material, sampler)

		radiance = radiance.Add(rec.Material.Emission().MultiplyVec(throughput))

		if sample.IsAbsorbed() {
			break
		}
		throughput = throughput.MultiplyVec(sample.Weight())

		direction := basis.ToWorld(sample.Direction).Normalize()
		offset := Epsilon
		if direction.Dot(rec.GeometryNormal) < 0 {
			offset = -Epsilon
		}
		current = core.NewRay(rec.Point.AddScaled(rec.GeometryNormal, offset), direction)
	}

	return radiance
}

// Inspect returns the shaded first hit along ray among the active objects
func (pt *PathTracer) Inspect(ray core.Ray) (material.HitRecord, *geometry.Object, bool) {
	hit, ok := pt.intersector.Intersect(ray, pt.objects)
	if !ok {
		return material.HitRecord{}, nil, false
	}
	return ResolveShading(hit, ray, pt.config.SmoothNormals, pt.scene.Materials), hit.Object, true
}

// IsLight reports whether obj is the scene's light proxy
func (pt *PathTracer) IsLight(obj *geometry.Object) bool {
	return obj != nil && obj == pt.scene.Light
}
