package geometry

import (
	"math"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// NewSphereMesh creates a UV sphere centered at the origin
func NewSphereMesh(radius float64, widthSegments, heightSegments int) *Mesh {
	widthSegments = max(3, widthSegments)
	heightSegments = max(2, heightSegments)

	var positions, normals []core.Vec3
	grid := make([][]int, heightSegments+1)

	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		grid[iy] = make([]int, widthSegments+1)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			n := core.NewVec3(
				-math.Cos(u*2*math.Pi)*math.Sin(v*math.Pi),
				math.Cos(v*math.Pi),
				math.Sin(u*2*math.Pi)*math.Sin(v*math.Pi),
			)
			grid[iy][ix] = len(positions)
			positions = append(positions, n.Multiply(radius))
			normals = append(normals, n.Normalize())
		}
	}

	var indices []int
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]
			// the poles collapse one triangle of each quad
			if iy != 0 {
				indices = append(indices, a, b, d)
			}
			if iy != heightSegments-1 {
				indices = append(indices, b, c, d)
			}
		}
	}

	mesh := NewMesh(positions, indices)
	mesh.Normals = normals
	return mesh
}

// NewPlaneMesh creates a width x height quad in the XY plane facing +Z
func NewPlaneMesh(width, height float64) *Mesh {
	hw, hh := width/2, height/2
	positions := []core.Vec3{
		core.NewVec3(-hw, hh, 0),
		core.NewVec3(hw, hh, 0),
		core.NewVec3(-hw, -hh, 0),
		core.NewVec3(hw, -hh, 0),
	}
	up := core.NewVec3(0, 0, 1)

	mesh := NewMesh(positions, []int{0, 2, 1, 2, 3, 1})
	mesh.Normals = []core.Vec3{up, up, up, up}
	return mesh
}

// NewBoxMesh creates an axis-aligned box centered at the origin with flat normals per side
func NewBoxMesh(width, height, depth float64) *Mesh {
	half := core.NewVec3(width/2, height/2, depth/2)
	x, y, z := core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1)

	// u x v points along the side's outward normal
	sides := []struct{ u, v core.Vec3 }{
		{y, z}, {z, y}, // +X, -X
		{z, x}, {x, z}, // +Y, -Y
		{x, y}, {y, x}, // +Z, -Z
	}

	var positions, normals []core.Vec3
	var indices []int
	for _, side := range sides {
		n := side.u.Cross(side.v)
		center := n.MultiplyVec(half)
		u := side.u.MultiplyVec(half)
		v := side.v.MultiplyVec(half)

		base := len(positions)
		positions = append(positions,
			center.Subtract(u).Subtract(v),
			center.Add(u).Subtract(v),
			center.Add(u).Add(v),
			center.Subtract(u).Add(v),
		)
		normals = append(normals, n, n, n, n)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	mesh := NewMesh(positions, indices)
	mesh.Normals = normals
	return mesh
}

// NewTorusMesh creates a torus around the Z axis
func NewTorusMesh(radius, tube float64, radialSegments, tubularSegments int) *Mesh {
	radialSegments = max(3, radialSegments)
	tubularSegments = max(3, tubularSegments)

	var positions, normals []core.Vec3
	for j := 0; j <= radialSegments; j++ {
		v := float64(j) / float64(radialSegments) * 2 * math.Pi
		for i := 0; i <= tubularSegments; i++ {
			u := float64(i) / float64(tubularSegments) * 2 * math.Pi

			p := core.NewVec3(
				(radius+tube*math.Cos(v))*math.Cos(u),
				(radius+tube*math.Cos(v))*math.Sin(u),
				tube*math.Sin(v),
			)
			center := core.NewVec3(radius*math.Cos(u), radius*math.Sin(u), 0)
			positions = append(positions, p)
			normals = append(normals, p.Subtract(center).Normalize())
		}
	}

	var indices []int
	stride := tubularSegments + 1
	for j := 1; j <= radialSegments; j++ {
		for i := 1; i <= tubularSegments; i++ {
			a := stride*j + i - 1
			b := stride*(j-1) + i - 1
			c := stride*(j-1) + i
			d := stride*j + i
			indices = append(indices, a, b, d, b, c, d)
		}
	}

	mesh := NewMesh(positions, indices)
	mesh.Normals = normals
	return mesh
}

// MergeMeshes bakes each mesh's transform into its vertices and concatenates
// them. Every vertex of meshes[i] gets material index i.
func MergeMeshes(meshes []*Mesh, transforms []mgl64.Mat4) *Mesh {
	if len(transforms) != len(meshes) {
		panic("Number of transforms must match number of meshes")
	}
	if len(meshes) > math.MaxUint8+1 {
		panic("Too many meshes to index with a uint8 material index")
	}

	merged := &Mesh{}
	for i, mesh := range meshes {
		if !mesh.HasNormals() {
			mesh.ComputeVertexNormals()
		}

		m := transforms[i]
		normalMatrix := m.Mat3().Inv().Transpose()
		offset := len(merged.Positions)

		for v, p := range mesh.Positions {
			merged.Positions = append(merged.Positions, core.FromMgl(mgl64.TransformCoordinate(p.Mgl(), m)))
			merged.Normals = append(merged.Normals, core.FromMgl(normalMatrix.Mul3x1(mesh.Normals[v].Mgl())).Normalize())
			merged.MaterialIndex = append(merged.MaterialIndex, uint8(i))
		}
		for _, idx := range mesh.Indices {
			merged.Indices = append(merged.Indices, idx+offset)
		}
	}
	return merged
}
