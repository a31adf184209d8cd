package material

import (
	"math"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// MinRoughness keeps the GGX distribution finite for mirror-like surfaces
const MinRoughness = 1e-3

// ggxD evaluates the GGX normal distribution for a local half vector
func ggxD(h core.Vec3, alpha float64) float64 {
	a2 := alpha * alpha
	d := h.Z*h.Z*(a2-1) + 1
	return a2 / (math.Pi * d * d)
}

// smithLambda is the Smith auxiliary function for GGX
func smithLambda(v core.Vec3, alpha float64) float64 {
	z2 := v.Z * v.Z
	if z2 == 0 {
		return math.Inf(1)
	}
	tan2 := (v.X*v.X + v.Y*v.Y) / z2
	return (-1 + math.Sqrt(1+alpha*alpha*tan2)) / 2
}

// smithG1 is the masking term for a single direction
func smithG1(v core.Vec3, alpha float64) float64 {
	return 1 / (1 + smithLambda(v, alpha))
}

// smithG2 is the height-correlated masking-shadowing term
func smithG2(wo, wi core.Vec3, alpha float64) float64 {
	return 1 / (1 + smithLambda(wo, alpha) + smithLambda(wi, alpha))
}

// sampleGGXVNDF samples a half vector from the distribution of visible
// normals seen from wo (Heitz 2018). wo must be in the upper hemisphere.
func sampleGGXVNDF(wo core.Vec3, alpha float64, u core.Vec2) core.Vec3 {
	vh := core.NewVec3(alpha*wo.X, alpha*wo.Y, wo.Z).Normalize()

	lensq := vh.X*vh.X + vh.Y*vh.Y
	t1 := core.NewVec3(1, 0, 0)
	if lensq > 0 {
		t1 = core.NewVec3(-vh.Y, vh.X, 0).Multiply(1 / math.Sqrt(lensq))
	}
	t2 := vh.Cross(t1)

	r := math.Sqrt(u.X)
	phi := 2 * math.Pi * u.Y
	p1 := r * math.Cos(phi)
	p2 := r * math.Sin(phi)
	s := 0.5 * (1 + vh.Z)
	p2 = (1-s)*math.Sqrt(math.Max(0, 1-p1*p1)) + s*p2

	nh := t1.Multiply(p1).
		Add(t2.Multiply(p2)).
		Add(vh.Multiply(math.Sqrt(math.Max(0, 1-p1*p1-p2*p2))))

	return core.NewVec3(alpha*nh.X, alpha*nh.Y, math.Max(0, nh.Z)).Normalize()
}

// Reflectance returns the Fresnel reflectance for a cosine and a refraction
// ratio (n1/n2) using Schlick's approximation. Total internal reflection
// returns 1.
func Reflectance(cosine, refractionRatio float64) float64 {
	cosine = math.Min(math.Abs(cosine), 1)
	sin2T := refractionRatio * refractionRatio * (1 - cosine*cosine)
	if sin2T > 1 {
		return 1
	}

	// leaving the denser medium, Schlick uses the transmitted angle
	if refractionRatio > 1 {
		cosine = math.Sqrt(1 - sin2T)
	}

	r0 := (1 - refractionRatio) / (1 + refractionRatio)
	r0 = r0 * r0
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}

// refract bends wo (pointing away from the surface) through the microfacet
// normal h. It reports false on total internal reflection.
func refract(wo, h core.Vec3, eta float64) (core.Vec3, bool) {
	cosI := wo.Dot(h)
	sin2T := eta * eta * math.Max(0, 1-cosI*cosI)
	if sin2T >= 1 {
		return core.Vec3{}, false
	}
	cosT := math.Sqrt(1 - sin2T)
	return wo.Negate().Multiply(eta).Add(h.Multiply(eta*cosI - cosT)), true
}

// reflect mirrors wo about h; both point away from the surface
func reflect(wo, h core.Vec3) core.Vec3 {
	return wo.Negate().Reflect(h)
}
