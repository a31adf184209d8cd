package integrator

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/geometry"
	"github.com/df07/go-progressive-pathtracer/pkg/material"
	"github.com/df07/go-progressive-pathtracer/pkg/sky"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// Trace returns the radiance arriving along a camera ray
	Trace(ray core.Ray, sampler core.Sampler) core.Vec3
}

// Intersector finds the closest hit of a ray among a set of objects
type Intersector interface {
	Intersect(ray core.Ray, objects []*geometry.Object) (geometry.Hit, bool)
}

// Config holds the path tracing settings that affect a single trace
type Config struct {
	Bounces             int  // Maximum path segments per camera ray
	SmoothNormals       bool // Interpolate vertex normals instead of using face normals
	DirectLightSampling bool // Accepted for compatibility; light sampling is not performed
	SkyMode             sky.Mode
	SkyIntensity        float64
	LightEnabled        bool
	FloorEnabled        bool
}

// Scene is the set of objects a path can interact with
type Scene struct {
	Model *geometry.Object // nil renders the environment only
	Light *geometry.Object // Area light proxy, emitting along its local +Z
	Floor *geometry.Object

	// Materials is indexed by per-vertex material indices of merged meshes
	Materials []*material.Material

	// LightColor is the light color with its intensity already applied
	LightColor core.Vec3
}

// LightForward returns the world-space emission direction of the light proxy
func (s *Scene) LightForward() core.Vec3 {
	if s.Light == nil {
		return core.NewVec3(0, 0, 1)
	}
	return s.Light.ToWorldDirection(core.NewVec3(0, 0, 1))
}
