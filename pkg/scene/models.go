package scene

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/geometry"
	"github.com/df07/go-progressive-pathtracer/pkg/loaders"
	"github.com/df07/go-progressive-pathtracer/pkg/material"
)

// Built-in model names
const (
	ModelSphere = "sphere"
	ModelCubes  = "cubes"
	ModelTorus  = "torus"
	ModelNone   = "none"
)

// BuiltinModels lists the procedural models in display order
var BuiltinModels = []string{ModelSphere, ModelCubes, ModelTorus, ModelNone}

// Model is a loaded mesh with its material table and the height the floor
// should sit at
type Model struct {
	Name        string
	Object      *geometry.Object
	Materials   []*material.Material // Materials[0] is driven by the user settings
	FloorHeight float64
}

// LoadModel builds a built-in model or loads a .ply file. ModelNone returns
// nil, which renders the environment only.
func LoadModel(name string) (*Model, error) {
	switch strings.ToLower(name) {
	case ModelNone:
		return nil, nil
	case ModelSphere:
		return newSphereModel(), nil
	case ModelCubes:
		return newCubesModel(), nil
	case ModelTorus:
		return newTorusModel(), nil
	}

	if strings.EqualFold(filepath.Ext(name), ".ply") {
		return loadPLYModel(name)
	}
	return nil, fmt.Errorf("unknown model %q", name)
}

func newSphereModel() *Model {
	mesh := geometry.NewSphereMesh(1, 32, 16)
	merged := geometry.MergeMeshes([]*geometry.Mesh{mesh}, []mgl64.Mat4{mgl64.Ident4()})
	return newModel(ModelSphere, merged, 1, -1)
}

// newCubesModel stacks three boxes into one merged mesh, one material each
func newCubesModel() *Model {
	meshes := []*geometry.Mesh{
		geometry.NewBoxMesh(1, 1, 1),
		geometry.NewBoxMesh(0.6, 0.6, 0.6),
		geometry.NewBoxMesh(0.8, 0.4, 0.8),
	}
	transforms := []mgl64.Mat4{
		geometry.Compose(core.NewVec3(0, -0.5, 0), mgl64.QuatRotate(math.Pi/8, mgl64.Vec3{0, 1, 0}), core.Splat(1)),
		geometry.Compose(core.NewVec3(-0.9, -0.7, 0.7), mgl64.QuatRotate(-math.Pi/6, mgl64.Vec3{0, 1, 0}), core.Splat(1)),
		geometry.Compose(core.NewVec3(0, 0.2, 0), mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0}), core.Splat(1)),
	}
	merged := geometry.MergeMeshes(meshes, transforms)

	model := newModel(ModelCubes, merged, len(meshes), merged.Bounds().Min.Y)

	// A rough white dielectric and a brushed gold metal for the other boxes
	model.Materials[1].Metalness = 0
	model.Materials[1].Roughness = material.PerceptualRoughness(0.8)
	model.Materials[1].IOR = 1.5
	model.Materials[2].Color = core.NewVec3(1.0, 0.71, 0.29)
	model.Materials[2].Roughness = material.PerceptualRoughness(0.35)
	return model
}

func newTorusModel() *Model {
	mesh := geometry.NewTorusMesh(0.7, 0.3, 24, 64)
	// Turn the ring towards the camera
	rotation := mgl64.QuatRotate(math.Pi/5, mgl64.Vec3{0, 1, 0}).Mul(mgl64.QuatRotate(math.Pi/10, mgl64.Vec3{1, 0, 0}))
	merged := geometry.MergeMeshes([]*geometry.Mesh{mesh}, []mgl64.Mat4{geometry.Compose(core.Vec3{}, rotation, core.Splat(1))})
	return newModel(ModelTorus, merged, 1, merged.Bounds().Min.Y)
}

// loadPLYModel centers the mesh and scales its largest extent to 2 units
func loadPLYModel(path string) (*Model, error) {
	mesh, err := loaders.LoadPLY(path)
	if err != nil {
		return nil, err
	}
	if mesh.FaceCount() == 0 {
		return nil, fmt.Errorf("model %s has no faces", path)
	}

	bounds := mesh.Bounds()
	size := bounds.Size()
	extent := math.Max(size.X, math.Max(size.Y, size.Z))
	scale := 1.0
	if extent > 0 {
		scale = 2 / extent
	}
	center := bounds.Center()
	fit := mgl64.Scale3D(scale, scale, scale).Mul4(mgl64.Translate3D(-center.X, -center.Y, -center.Z))

	materialCount := 1
	for _, index := range mesh.MaterialIndex {
		materialCount = max(materialCount, int(index)+1)
	}

	merged := geometry.MergeMeshes([]*geometry.Mesh{mesh}, []mgl64.Mat4{fit})
	if mesh.HasMaterialIndex() {
		// keep the file's own material assignment rather than the merge index
		merged.MaterialIndex = mesh.MaterialIndex
	}
	return newModel(path, merged, materialCount, merged.Bounds().Min.Y), nil
}

func newModel(name string, mesh *geometry.Mesh, materialCount int, floorHeight float64) *Model {
	materials := make([]*material.Material, materialCount)
	for i := range materials {
		materials[i] = material.New()
	}
	return &Model{
		Name:        name,
		Object:      geometry.NewObject(name, mesh, materials[0]),
		Materials:   materials,
		FloorHeight: floorHeight,
	}
}
