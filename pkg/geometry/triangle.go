package geometry

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// triangleHit is the raw result of a ray-triangle test
type triangleHit struct {
	T    float64 // Parameter t along the ray
	U, V float64 // Barycentric weights of the second and third vertex
}

// intersectTriangle tests a ray against a triangle using the Möller-Trumbore
// algorithm. Both faces are hit.
func intersectTriangle(ray core.Ray, v0, v1, v2 core.Vec3, tMin, tMax float64) (triangleHit, bool) {
	const epsilon = 1e-12

	edge1 := v1.Subtract(v0)
	edge2 := v2.Subtract(v0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// ray lies in the plane of the triangle
	if a > -epsilon && a < epsilon {
		return triangleHit{}, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(v0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return triangleHit{}, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return triangleHit{}, false
	}

	t := f * edge2.Dot(q)
	if t < tMin || t > tMax {
		return triangleHit{}, false
	}

	return triangleHit{T: t, U: u, V: v}, true
}
