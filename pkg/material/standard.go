package material

import (
	"math"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// StandardBSDF is a metal/roughness surface with diffuse, GGX specular and
// rough transmission lobes. One lobe is picked per sample and its color and
// pdf are both scaled by the probability of picking it.
type StandardBSDF struct{}

// NewStandardBSDF creates the standard surface model
func NewStandardBSDF() *StandardBSDF {
	return &StandardBSDF{}
}

// Sample implements the BSDF interface
func (s *StandardBSDF) Sample(wo core.Vec3, hit HitRecord, mat *Material, sampler core.Sampler) SampleResult {
	if wo.Z <= 0 || mat == nil {
		return SampleResult{}
	}

	alpha := math.Max(mat.Roughness, MinRoughness)
	eta := mat.IOR
	if hit.FrontFace && eta != 0 {
		eta = 1.0 / eta
	}

	fresnel := Reflectance(wo.Z, eta)
	specularProb := core.Lerp(fresnel, 1, mat.Metalness)
	transmission := core.Clamp01(mat.Transmission)

	if sampler.Get1D() < transmission {
		if sampler.Get1D() < specularProb {
			return s.sampleSpecular(wo, mat, alpha, sampler).scaled(transmission * specularProb)
		}
		return s.sampleTransmission(wo, mat, alpha, eta, sampler).scaled(transmission * (1 - specularProb))
	}

	if sampler.Get1D() < specularProb {
		return s.sampleSpecular(wo, mat, alpha, sampler).scaled((1 - transmission) * specularProb)
	}
	return s.sampleDiffuse(mat, sampler).scaled((1 - transmission) * (1 - specularProb))
}

// sampleDiffuse draws a cosine-weighted direction
func (s *StandardBSDF) sampleDiffuse(mat *Material, sampler core.Sampler) SampleResult {
	wi := core.SampleCosineHemisphere(sampler.Get2D())
	if wi.Z <= 0 {
		return SampleResult{}
	}

	albedo := mat.Color.Multiply(1 - mat.Metalness)
	return SampleResult{
		Direction: wi,
		Color:     albedo.Multiply(wi.Z / math.Pi),
		PDF:       wi.Z / math.Pi,
	}
}

// sampleSpecular reflects wo about a visible GGX microfacet normal
func (s *StandardBSDF) sampleSpecular(wo core.Vec3, mat *Material, alpha float64, sampler core.Sampler) SampleResult {
	h := sampleGGXVNDF(wo, alpha, sampler.Get2D())
	wi := reflect(wo, h)
	if wi.Z <= 0 {
		return SampleResult{}
	}
	return specularResult(wo, wi, h, specularTint(mat), alpha)
}

// sampleTransmission refracts wo through a visible GGX microfacet normal.
// Total internal reflection at the microfacet falls back to reflection.
func (s *StandardBSDF) sampleTransmission(wo core.Vec3, mat *Material, alpha, eta float64, sampler core.Sampler) SampleResult {
	h := sampleGGXVNDF(wo, alpha, sampler.Get2D())

	wi, ok := refract(wo, h, eta)
	if !ok {
		wi = reflect(wo, h)
		if wi.Z <= 0 {
			return SampleResult{}
		}
		return specularResult(wo, wi, h, specularTint(mat), alpha)
	}
	if wi.Z >= 0 {
		return SampleResult{}
	}

	woh := wo.Dot(h)
	wih := wi.Dot(h)
	denom := eta*woh + wih
	if denom == 0 || woh <= 0 {
		return SampleResult{}
	}
	denom2 := denom * denom

	d := ggxD(h, alpha)
	g1 := smithG1(wo, alpha)
	g2 := smithG2(wo, wi, alpha)

	// Walter et al. BTDF times |cos θi|, with the half vector Jacobian in the pdf
	jacobian := math.Abs(wih) / denom2
	pdf := g1 * woh * d / wo.Z * jacobian
	value := math.Abs(wih) * woh * d * g2 / (wo.Z * denom2)

	return SampleResult{
		Direction: wi,
		Color:     mat.Color.Multiply(value),
		PDF:       pdf,
	}
}

// specularTint is white for dielectrics and the base color for metals
func specularTint(mat *Material) core.Vec3 {
	return core.LerpVec(core.NewVec3(1, 1, 1), mat.Color, mat.Metalness)
}

// specularResult evaluates the GGX reflection lobe for a VNDF-sampled pair
func specularResult(wo, wi, h, tint core.Vec3, alpha float64) SampleResult {
	d := ggxD(h, alpha)
	g1 := smithG1(wo, alpha)
	g2 := smithG2(wo, wi, alpha)

	pdf := g1 * d / (4 * wo.Z)
	value := d * g2 / (4 * wo.Z)

	return SampleResult{
		Direction: wi,
		Color:     tint.Multiply(value),
		PDF:       pdf,
	}
}

// scaled multiplies color and pdf by the lobe selection probability
func (r SampleResult) scaled(p float64) SampleResult {
	if r.PDF <= 0 || p <= 0 {
		return SampleResult{Direction: r.Direction}
	}
	r.Color = r.Color.Multiply(p)
	r.PDF *= p
	return r
}
