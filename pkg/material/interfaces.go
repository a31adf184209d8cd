package material

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// BSDF samples an incoming light direction for a surface hit
type BSDF interface {
	// Sample draws a direction in the local shading frame (normal on +Z).
	// wo points away from the surface towards the previous path vertex.
	Sample(wo core.Vec3, hit HitRecord, mat *Material, sampler core.Sampler) SampleResult
}

// SampleResult contains the result of sampling a BSDF
type SampleResult struct {
	Direction core.Vec3 // Sampled direction in the local shading frame
	Color     core.Vec3 // BSDF value times cosine, scaled by the lobe selection probability
	PDF       float64   // Solid angle density, scaled by the lobe selection probability
}

// IsAbsorbed returns true if the path ends at this vertex
func (s SampleResult) IsAbsorbed() bool {
	return s.PDF <= 0
}

// Weight returns the throughput multiplier Color/PDF
func (s SampleResult) Weight() core.Vec3 {
	if s.IsAbsorbed() {
		return core.Vec3{}
	}
	return s.Color.Multiply(1.0 / s.PDF)
}

// HitRecord contains the shading data resolved for a ray-surface intersection
type HitRecord struct {
	Distance       float64   // Parameter t along the ray
	Point          core.Vec3 // World-space point of intersection
	Normal         core.Vec3 // Shading normal, facing the incoming ray
	GeometryNormal core.Vec3 // Face normal, facing the incoming ray
	Material       *Material // Material of the hit surface
	FrontFace      bool      // Whether the ray hit the front face
}

// SetFaceNormals orients both normals against the ray. The front face is
// decided by the geometric normal alone.
func (h *HitRecord) SetFaceNormals(ray core.Ray, geometryNormal, shadingNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(geometryNormal) < 0
	if h.FrontFace {
		h.GeometryNormal = geometryNormal
		h.Normal = shadingNormal
	} else {
		h.GeometryNormal = geometryNormal.Negate()
		h.Normal = shadingNormal.Negate()
	}
}
