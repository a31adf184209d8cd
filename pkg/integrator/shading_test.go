package integrator

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/geometry"
	"github.com/df07/go-progressive-pathtracer/pkg/material"
)

// tiltedQuad is a unit quad in the XY plane whose vertex normals lean
// towards +X, so smooth and flat shading disagree
func tiltedQuad() *geometry.Mesh {
	mesh := geometry.NewPlaneMesh(1, 1)
	tilted := core.NewVec3(1, 0, 1).Normalize()
	mesh.Normals = []core.Vec3{tilted, tilted, tilted, tilted}
	return mesh
}

func intersectOne(t *testing.T, obj *geometry.Object, ray core.Ray) geometry.Hit {
	t.Helper()
	hit, ok := geometry.NewRaycaster().Intersect(ray, []*geometry.Object{obj})
	require.True(t, ok)
	return hit
}

func TestResolveShading_SmoothAndFlat(t *testing.T) {
	obj := geometry.NewObject("quad", tiltedQuad(), material.New())
	ray := core.NewRay(core.NewVec3(0.1, 0.2, 2), core.NewVec3(0, 0, -1))
	hit := intersectOne(t, obj, ray)

	flat := ResolveShading(hit, ray, false, nil)
	assert.True(t, flat.FrontFace)
	assert.InDelta(t, 0, flat.Normal.Subtract(core.NewVec3(0, 0, 1)).Length(), 1e-12)
	assert.InDelta(t, 0, flat.GeometryNormal.Subtract(core.NewVec3(0, 0, 1)).Length(), 1e-12)
	assert.InDelta(t, 2.0, flat.Distance, 1e-12)

	smooth := ResolveShading(hit, ray, true, nil)
	assert.InDelta(t, 0, smooth.Normal.Subtract(core.NewVec3(1, 0, 1).Normalize()).Length(), 1e-12)
	assert.InDelta(t, 1.0, smooth.Normal.Length(), 1e-12)
	assert.Equal(t, flat.GeometryNormal, smooth.GeometryNormal, "the geometric normal never interpolates")
}

func TestResolveShading_BackFaceFlipsBothNormals(t *testing.T) {
	obj := geometry.NewObject("quad", tiltedQuad(), material.New())
	ray := core.NewRay(core.NewVec3(0.1, 0.2, -2), core.NewVec3(0, 0, 1))
	hit := intersectOne(t, obj, ray)

	rec := ResolveShading(hit, ray, true, nil)
	assert.False(t, rec.FrontFace)
	assert.InDelta(t, 0, rec.GeometryNormal.Subtract(core.NewVec3(0, 0, -1)).Length(), 1e-12)
	assert.InDelta(t, 0, rec.Normal.Subtract(core.NewVec3(-1, 0, -1).Normalize()).Length(), 1e-12)
	assert.Less(t, rec.GeometryNormal.Dot(ray.Direction), 0.0)
}

func TestResolveShading_WorldTransform(t *testing.T) {
	obj := geometry.NewObject("floor", geometry.NewPlaneMesh(10, 10), material.New())
	obj.SetWorld(mgl64.Translate3D(0, -1, 0).Mul4(mgl64.HomogRotate3DX(-math.Pi / 2)))

	ray := core.NewRay(core.NewVec3(0.3, 2, 0.4), core.NewVec3(0, -1, 0))
	hit := intersectOne(t, obj, ray)
	rec := ResolveShading(hit, ray, true, nil)

	assert.True(t, rec.FrontFace, "a floor rotated -90 degrees about X faces +Y")
	assert.InDelta(t, 0, rec.Normal.Subtract(core.NewVec3(0, 1, 0)).Length(), 1e-12)
	assert.InDelta(t, 0, rec.Point.Subtract(core.NewVec3(0.3, -1, 0.4)).Length(), 1e-9)
}

func TestResolveShading_MaterialSelection(t *testing.T) {
	own := material.New()
	first := &material.Material{Color: core.NewVec3(1, 0, 0)}
	second := &material.Material{Color: core.NewVec3(0, 1, 0)}

	merged := geometry.MergeMeshes(
		[]*geometry.Mesh{geometry.NewPlaneMesh(1, 1), geometry.NewPlaneMesh(1, 1)},
		[]mgl64.Mat4{mgl64.Translate3D(-1, 0, 0), mgl64.Translate3D(1, 0, 0)},
	)
	obj := geometry.NewObject("merged", merged, own)

	left := core.NewRay(core.NewVec3(-1.1, 0.2, 1), core.NewVec3(0, 0, -1))
	right := core.NewRay(core.NewVec3(1.1, 0.2, 1), core.NewVec3(0, 0, -1))

	tests := []struct {
		name      string
		ray       core.Ray
		materials []*material.Material
		expected  *material.Material
	}{
		{"first source mesh", left, []*material.Material{first, second}, first},
		{"second source mesh", right, []*material.Material{first, second}, second},
		{"index out of range falls back to the object", right, []*material.Material{first}, own},
		{"no scene materials", left, nil, own},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := intersectOne(t, obj, tt.ray)
			rec := ResolveShading(hit, tt.ray, true, tt.materials)
			assert.Same(t, tt.expected, rec.Material)
		})
	}
}

func TestResolveShading_MissingMaterial(t *testing.T) {
	obj := geometry.NewObject("bare", geometry.NewPlaneMesh(1, 1), nil)
	ray := core.NewRay(core.NewVec3(0.1, 0.2, 1), core.NewVec3(0, 0, -1))
	hit := intersectOne(t, obj, ray)

	rec := ResolveShading(hit, ray, false, nil)
	require.NotNil(t, rec.Material)
	assert.Equal(t, *material.New(), *rec.Material)
}
