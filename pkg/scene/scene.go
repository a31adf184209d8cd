// Package scene assembles the objects and materials of a render from settings.
package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/df07/go-progressive-pathtracer/pkg/config"
	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/geometry"
	"github.com/df07/go-progressive-pathtracer/pkg/integrator"
	"github.com/df07/go-progressive-pathtracer/pkg/material"
	"github.com/df07/go-progressive-pathtracer/pkg/renderer"
	"github.com/df07/go-progressive-pathtracer/pkg/sky"
)

var (
	lightPosition = core.NewVec3(3, 3, 3)
	lightTarget   = core.NewVec3(0, 0, 0)
)

const (
	floorSize = 10
	floorIOR  = 1.6
)

// Scene owns the light proxy, the floor and a cache of loaded models. Apply
// turns settings into the integrator's view of the world.
type Scene struct {
	light  *geometry.Object
	floor  *geometry.Object
	models map[string]*Model
	logger *zap.Logger
}

// New creates the light and floor objects
func New(logger *zap.Logger) *Scene {
	if logger == nil {
		logger = zap.NewNop()
	}

	floorMaterial := material.New()
	floorMaterial.IOR = floorIOR

	return &Scene{
		light:  geometry.NewObject("light", geometry.NewPlaneMesh(1, 1), material.New()),
		floor:  geometry.NewObject("floor", geometry.NewPlaneMesh(floorSize, floorSize), floorMaterial),
		models: make(map[string]*Model),
		logger: logger,
	}
}

// Model returns the named model, loading it on first use
func (s *Scene) Model(name string) (*Model, error) {
	if model, ok := s.models[name]; ok {
		return model, nil
	}

	model, err := LoadModel(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	s.models[name] = model

	if model != nil {
		stats := model.Object.BVH.Stats()
		s.logger.Info("model loaded",
			zap.String("model", name),
			zap.Int("triangles", model.Object.Mesh.FaceCount()),
			zap.Int("materials", len(model.Materials)),
			zap.Int("bvh_nodes", stats.Nodes),
			zap.Int("bvh_depth", stats.MaxDepth),
		)
	}
	return model, nil
}

// Apply configures the objects for settings and returns the integrator scene.
// The model's first material is replaced by the user material, the floor is
// moved to the model's floor height and the light is resized and recolored.
func (s *Scene) Apply(settings *config.Settings) (*integrator.Scene, error) {
	model, err := s.Model(settings.Model)
	if err != nil {
		return nil, err
	}

	userMaterial, err := modelMaterial(settings.Material)
	if err != nil {
		return nil, err
	}
	floorMaterial, err := s.floorMaterial(settings.Floor)
	if err != nil {
		return nil, err
	}
	lightColor, err := core.ParseHexColor(settings.Light.Color)
	if err != nil {
		return nil, fmt.Errorf("light color: %w", err)
	}

	result := &integrator.Scene{
		Light:      s.light,
		Floor:      s.floor,
		LightColor: lightColor.Multiply(settings.Light.Intensity),
	}

	floorHeight := 0.0
	if model != nil {
		materials := make([]*material.Material, len(model.Materials))
		copy(materials, model.Materials)
		materials[0] = userMaterial
		model.Object.Material = userMaterial

		result.Model = model.Object
		result.Materials = materials
		floorHeight = model.FloorHeight
	}

	s.floor.Material = floorMaterial
	s.floor.SetWorld(FloorTransform(floorHeight))
	s.light.SetWorld(LightTransform(settings.Light.Width, settings.Light.Height))

	return result, nil
}

// modelMaterial converts the user material settings. Colors are sRGB hex
// values and are linearized.
func modelMaterial(m config.MaterialSettings) (*material.Material, error) {
	color, err := core.ParseHexColor(m.Color)
	if err != nil {
		return nil, fmt.Errorf("material color: %w", err)
	}
	emissive, err := core.ParseHexColor(m.Emissive)
	if err != nil {
		return nil, fmt.Errorf("material emissive: %w", err)
	}

	return &material.Material{
		Color:             core.SRGBToLinear(color),
		Emissive:          core.SRGBToLinear(emissive),
		EmissiveIntensity: m.EmissiveIntensity,
		Roughness:         material.PerceptualRoughness(m.Roughness),
		Metalness:         m.Metalness,
		IOR:               m.IOR,
		Transmission:      m.Transmission,
	}, nil
}

// floorMaterial keeps the hex color as is
func (s *Scene) floorMaterial(f config.FloorSettings) (*material.Material, error) {
	color, err := core.ParseHexColor(f.Color)
	if err != nil {
		return nil, fmt.Errorf("floor color: %w", err)
	}

	m := *s.floor.Material
	m.Color = color
	m.Roughness = material.PerceptualRoughness(f.Roughness)
	m.Metalness = f.Metalness
	m.IOR = floorIOR
	m.Transmission = 0
	return &m, nil
}

// FloorTransform lays the XY plane flat, facing +Y, at the given height
func FloorTransform(height float64) mgl64.Mat4 {
	return mgl64.Translate3D(0, height, 0).Mul4(mgl64.HomogRotate3DX(-math.Pi / 2))
}

// LightTransform places the light plane at its fixed position with its +Z
// axis facing the origin, scaled to width x height
func LightTransform(width, height float64) mgl64.Mat4 {
	return geometry.Compose(lightPosition, lookAtRotation(lightPosition, lightTarget), core.NewVec3(width, height, 1))
}

// lookAtRotation returns the rotation that turns +Z from position towards target
func lookAtRotation(position, target core.Vec3) mgl64.Quat {
	z := target.Subtract(position).Normalize()
	up := core.NewVec3(0, 1, 0)
	if math.Abs(z.Dot(up)) > 1-1e-9 {
		up = core.NewVec3(0, 0, 1)
	}
	x := up.Cross(z).Normalize()
	y := z.Cross(x)
	return mgl64.Mat4ToQuat(mgl64.Mat3FromCols(x.Mgl(), y.Mgl(), z.Mgl()).Mat4())
}

// IntegratorConfig extracts the path tracing settings
func IntegratorConfig(settings *config.Settings) (integrator.Config, error) {
	mode, err := sky.ParseMode(settings.Environment.SkyMode)
	if err != nil {
		return integrator.Config{}, err
	}
	return integrator.Config{
		Bounces:             settings.Bounces,
		SmoothNormals:       settings.SmoothNormals,
		DirectLightSampling: settings.DirectLightSampling,
		SkyMode:             mode,
		SkyIntensity:        settings.Environment.SkyIntensity,
		LightEnabled:        settings.Light.Enable,
		FloorEnabled:        settings.Floor.Enable,
	}, nil
}

// CameraConfig builds the camera for an image of the given aspect ratio
func CameraConfig(settings *config.Settings, aspectRatio float64) renderer.CameraConfig {
	cfg := renderer.DefaultCameraConfig()
	cfg.Center = core.NewVec3(settings.Camera.Position[0], settings.Camera.Position[1], settings.Camera.Position[2])
	cfg.LookAt = core.NewVec3(settings.Camera.Target[0], settings.Camera.Target[1], settings.Camera.Target[2])
	cfg.VFov = settings.Camera.FOV
	cfg.AspectRatio = aspectRatio
	return cfg
}

// Build applies settings to a fresh scene and returns a path tracer and
// camera ready for the progressive renderer
func Build(settings *config.Settings, logger *zap.Logger) (*Scene, *integrator.PathTracer, *renderer.Camera, error) {
	s := New(logger)
	tracer, err := s.Tracer(settings)
	if err != nil {
		return nil, nil, nil, err
	}

	width, height := settings.RenderSize()
	camera := renderer.NewCamera(CameraConfig(settings, float64(width)/float64(height)))
	return s, tracer, camera, nil
}

// Tracer applies settings and wraps the result in a path tracer
func (s *Scene) Tracer(settings *config.Settings) (*integrator.PathTracer, error) {
	result, err := s.Apply(settings)
	if err != nil {
		return nil, err
	}
	cfg, err := IntegratorConfig(settings)
	if err != nil {
		return nil, err
	}
	return integrator.NewPathTracer(cfg, result, geometry.NewRaycaster(), material.NewStandardBSDF(), s.logger), nil
}
