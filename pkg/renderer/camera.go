package renderer

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// CameraConfig contains all parameters needed to create a perspective camera
type CameraConfig struct {
	Center      core.Vec3 // Camera position
	LookAt      core.Vec3 // Point the camera is looking at
	Up          core.Vec3 // Up direction (usually (0,1,0))
	VFov        float64   // Vertical field of view in degrees
	AspectRatio float64   // Width / height
	Near        float64   // Near clip plane
	Far         float64   // Far clip plane
}

// DefaultCameraConfig returns the default viewpoint looking at the origin
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Center:      core.NewVec3(-2.5, 1.5, 2.5),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		VFov:        75,
		AspectRatio: 1,
		Near:        0.1,
		Far:         100,
	}
}

// Camera generates primary rays by unprojecting normalized device coordinates
type Camera struct {
	config          CameraConfig
	inverseViewProj mgl64.Mat4
}

// NewCamera creates a perspective camera
func NewCamera(config CameraConfig) *Camera {
	c := &Camera{config: config}
	c.update()
	return c
}

func (c *Camera) update() {
	cfg := c.config
	proj := mgl64.Perspective(mgl64.DegToRad(cfg.VFov), cfg.AspectRatio, cfg.Near, cfg.Far)
	view := mgl64.LookAtV(cfg.Center.Mgl(), cfg.LookAt.Mgl(), cfg.Up.Mgl())
	c.inverseViewProj = proj.Mul4(view).Inv()
}

// RayAt returns the ray from the camera through NDC point (ndcX, ndcY), both
// in [-1, 1] with +Y up
func (c *Camera) RayAt(ndcX, ndcY float64) core.Ray {
	target := core.FromMgl(mgl64.TransformCoordinate(mgl64.Vec3{ndcX, ndcY, 0.5}, c.inverseViewProj))
	return core.NewRay(c.config.Center, target.Subtract(c.config.Center).Normalize())
}
