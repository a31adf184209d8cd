package material

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// Material holds the physically based surface parameters shared by every lobe
type Material struct {
	Color             core.Vec3 // Base color (linear)
	Emissive          core.Vec3 // Emitted color (linear)
	EmissiveIntensity float64
	Roughness         float64 // GGX alpha, already squared from perceptual roughness
	Metalness         float64
	IOR               float64
	Transmission      float64
}

// New creates a material with white base color, no emission, roughness 1,
// metalness 1, ior 1 and no transmission.
func New() *Material {
	return &Material{
		Color:             core.NewVec3(1, 1, 1),
		Emissive:          core.Vec3{},
		EmissiveIntensity: 1,
		Roughness:         1,
		Metalness:         1,
		IOR:               1,
		Transmission:      0,
	}
}

// PerceptualRoughness maps a user-facing roughness slider value to GGX alpha
func PerceptualRoughness(r float64) float64 {
	return r * r
}

// Emission returns the radiance emitted by the surface
func (m *Material) Emission() core.Vec3 {
	return m.Emissive.Multiply(m.EmissiveIntensity)
}
