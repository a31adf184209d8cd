package geometry

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// Mesh is an indexed triangle mesh in object space
type Mesh struct {
	Positions []core.Vec3 // Vertex positions
	Normals   []core.Vec3 // Optional per-vertex normals (same length as Positions)
	Indices   []int       // Triangle vertex indices, three per face

	// MaterialIndex optionally selects an entry of the scene material array
	// per vertex. Merged meshes fill it with the index of their source mesh.
	MaterialIndex []uint8
}

// NewMesh creates a mesh from positions and face indices
// positions: array of 3D points
// indices: array of triangle indices (each group of 3 indices forms a triangle)
func NewMesh(positions []core.Vec3, indices []int) *Mesh {
	if len(indices)%3 != 0 {
		panic("Face indices must be a multiple of 3")
	}
	for _, i := range indices {
		if i < 0 || i >= len(positions) {
			panic("Face index out of bounds")
		}
	}

	return &Mesh{
		Positions: positions,
		Indices:   indices,
	}
}

// FaceCount returns the number of triangles
func (m *Mesh) FaceCount() int {
	return len(m.Indices) / 3
}

// Face returns the three vertex indices of a triangle
func (m *Mesh) Face(face int) (a, b, c int) {
	return m.Indices[face*3], m.Indices[face*3+1], m.Indices[face*3+2]
}

// Vertices returns the three positions of a triangle
func (m *Mesh) Vertices(face int) (v0, v1, v2 core.Vec3) {
	a, b, c := m.Face(face)
	return m.Positions[a], m.Positions[b], m.Positions[c]
}

// FaceNormal returns the counter-clockwise unit normal of a triangle
func (m *Mesh) FaceNormal(face int) core.Vec3 {
	v0, v1, v2 := m.Vertices(face)
	return v1.Subtract(v0).Cross(v2.Subtract(v0)).Normalize()
}

// FaceBounds returns the bounding box of a triangle
func (m *Mesh) FaceBounds(face int) core.AABB {
	v0, v1, v2 := m.Vertices(face)
	return core.NewAABBFromPoints(v0, v1, v2)
}

// Bounds returns the bounding box of every vertex
func (m *Mesh) Bounds() core.AABB {
	return core.NewAABBFromPoints(m.Positions...)
}

// HasNormals reports whether the mesh carries one normal per vertex
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) == len(m.Positions) && len(m.Normals) > 0
}

// HasMaterialIndex reports whether the mesh carries one material index per vertex
func (m *Mesh) HasMaterialIndex() bool {
	return len(m.MaterialIndex) == len(m.Positions) && len(m.MaterialIndex) > 0
}

// ComputeVertexNormals sets each vertex normal to the normalized sum of the
// area-weighted normals of the faces that share it
func (m *Mesh) ComputeVertexNormals() {
	normals := make([]core.Vec3, len(m.Positions))
	for face := 0; face < m.FaceCount(); face++ {
		a, b, c := m.Face(face)
		v0, v1, v2 := m.Positions[a], m.Positions[b], m.Positions[c]
		n := v1.Subtract(v0).Cross(v2.Subtract(v0))
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	m.Normals = normals
}
