package integrator

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/geometry"
	"github.com/df07/go-progressive-pathtracer/pkg/material"
)

// fallbackMaterial shades objects that carry no material
var fallbackMaterial = material.New()

// ResolveShading expands a raw hit into world-space normals and a material.
// With smooth set, the shading normal interpolates the vertex normals by the
// hit's barycentric weights; otherwise it is the face normal. Both normals are
// flipped to face the incoming ray.
func ResolveShading(hit geometry.Hit, ray core.Ray, smooth bool, materials []*material.Material) material.HitRecord {
	obj := hit.Object
	mesh := obj.Mesh
	a, b, c := mesh.Face(hit.Face)

	faceNormal := mesh.FaceNormal(hit.Face)
	shadingNormal := faceNormal
	if smooth && mesh.HasNormals() {
		shadingNormal = mesh.Normals[a].Multiply(hit.Barycentric.X).
			Add(mesh.Normals[b].Multiply(hit.Barycentric.Y)).
			Add(mesh.Normals[c].Multiply(hit.Barycentric.Z))
	}

	geometryNormal := obj.ToWorldDirection(faceNormal)
	shadingNormal = obj.ToWorldDirection(shadingNormal)
	if shadingNormal == (core.Vec3{}) {
		shadingNormal = geometryNormal
	}

	rec := material.HitRecord{
		Distance: hit.Distance,
		Point:    hit.Point,
		Material: resolveMaterial(obj, a, materials),
	}
	rec.SetFaceNormals(ray, geometryNormal, shadingNormal)
	return rec
}

// resolveMaterial picks the scene material named by the face's first vertex
// when the mesh carries material indices, and the object's material otherwise
func resolveMaterial(obj *geometry.Object, vertex int, materials []*material.Material) *material.Material {
	if obj.Mesh.HasMaterialIndex() {
		idx := int(obj.Mesh.MaterialIndex[vertex])
		if idx < len(materials) && materials[idx] != nil {
			return materials[idx]
		}
	}
	if obj.Material != nil {
		return obj.Material
	}
	return fallbackMaterial
}
