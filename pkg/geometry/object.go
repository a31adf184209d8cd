package geometry

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/material"
	"github.com/go-gl/mathgl/mgl64"
)

// Object places a mesh in the world with its own material
type Object struct {
	Name     string
	Mesh     *Mesh
	BVH      *BVH
	Material *material.Material

	world   mgl64.Mat4
	inverse mgl64.Mat4
}

// NewObject creates an object at the origin and builds the BVH for its mesh
func NewObject(name string, mesh *Mesh, mat *material.Material) *Object {
	return &Object{
		Name:     name,
		Mesh:     mesh,
		BVH:      NewBVH(mesh),
		Material: mat,
		world:    mgl64.Ident4(),
		inverse:  mgl64.Ident4(),
	}
}

// SetWorld replaces the object-to-world matrix
func (o *Object) SetWorld(m mgl64.Mat4) {
	o.world = m
	o.inverse = m.Inv()
}

// World returns the object-to-world matrix
func (o *Object) World() mgl64.Mat4 {
	return o.world
}

// Inverse returns the world-to-object matrix
func (o *Object) Inverse() mgl64.Mat4 {
	return o.inverse
}

// ToWorldDirection transforms an object-space direction by the world matrix
// and normalizes it
func (o *Object) ToWorldDirection(v core.Vec3) core.Vec3 {
	return core.FromMgl(mgl64.TransformNormal(v.Mgl(), o.world)).Normalize()
}

// WorldBounds returns the world-space box around the transformed mesh bounds
func (o *Object) WorldBounds() core.AABB {
	if o.Mesh == nil || len(o.Mesh.Positions) == 0 {
		return core.AABB{}
	}

	local := o.Mesh.Bounds()
	box := core.EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := core.NewVec3(
			pick(i&1 != 0, local.Max.X, local.Min.X),
			pick(i&2 != 0, local.Max.Y, local.Min.Y),
			pick(i&4 != 0, local.Max.Z, local.Min.Z),
		)
		box = box.Extend(core.FromMgl(mgl64.TransformCoordinate(corner.Mgl(), o.world)))
	}
	return box
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// Compose builds a translation * rotation * scale matrix
func Compose(position core.Vec3, rotation mgl64.Quat, scale core.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(position.X, position.Y, position.Z).
		Mul4(rotation.Mat4()).
		Mul4(mgl64.Scale3D(scale.X, scale.Y, scale.Z))
}
