package geometry

import (
	"math"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// Hit is the closest intersection of a world ray with a set of objects
type Hit struct {
	Object      *Object
	Face        int       // Triangle index within the object's mesh
	Distance    float64   // Parameter t along the world ray
	Point       core.Vec3 // World-space hit point
	Barycentric core.Vec3 // Weights of the face's first, second and third vertex
}

// Raycaster finds the single closest hit among objects
type Raycaster struct {
	Near float64
	Far  float64
}

// NewRaycaster creates a raycaster with an unbounded far distance
func NewRaycaster() *Raycaster {
	return &Raycaster{Near: 0, Far: math.Inf(1)}
}

// Intersect transforms the ray into each object's local space and returns the
// closest hit. Objects without a mesh are skipped.
func (r *Raycaster) Intersect(ray core.Ray, objects []*Object) (Hit, bool) {
	closest := Hit{Face: -1, Distance: r.Far}

	for _, obj := range objects {
		if obj == nil || obj.Mesh == nil || obj.BVH == nil {
			continue
		}

		// the local direction keeps the world scale so t is shared
		local := ray.Transform(obj.Inverse())
		hit, ok := obj.BVH.intersect(local, r.Near, closest.Distance)
		if !ok {
			continue
		}

		closest = Hit{
			Object:      obj,
			Face:        hit.Face,
			Distance:    hit.T,
			Barycentric: core.NewVec3(1-hit.U-hit.V, hit.U, hit.V),
		}
	}

	if closest.Object == nil {
		return Hit{}, false
	}
	closest.Point = ray.At(closest.Distance)
	return closest, true
}
