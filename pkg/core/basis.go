package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Basis is an orthonormal tangent frame whose third axis is a surface normal.
// Local directions use +Z as the normal.
type Basis struct {
	m mgl64.Mat3
}

// NewBasis builds a tangent frame around the unit normal n. The helper axis is
// chosen from n alone, so the same normal always produces the same frame.
func NewBasis(n Vec3) Basis {
	var helper Vec3
	if math.Abs(n.X) > 0.5 {
		helper = NewVec3(0, 1, 0)
	} else {
		helper = NewVec3(1, 0, 0)
	}

	bitangent := n.Cross(helper).Normalize()
	tangent := n.Cross(bitangent).Normalize()

	return Basis{m: mgl64.Mat3FromCols(tangent.Mgl(), bitangent.Mgl(), n.Mgl())}
}

// ToLocal expresses a world-space direction in the frame
func (b Basis) ToLocal(v Vec3) Vec3 {
	// orthonormal: the inverse is the transpose
	return FromMgl(b.m.Transpose().Mul3x1(v.Mgl()))
}

// ToWorld expresses a local direction in world space
func (b Basis) ToWorld(v Vec3) Vec3 {
	return FromMgl(b.m.Mul3x1(v.Mgl()))
}
