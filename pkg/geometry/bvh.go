package geometry

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// BVHNode represents a node in the Bounding Volume Hierarchy
type BVHNode struct {
	BoundingBox core.AABB
	Left        *BVHNode
	Right       *BVHNode
	Faces       []int // Triangle indices for leaf nodes (nil for internal nodes)
}

// BVH represents a Bounding Volume Hierarchy over the triangles of one mesh
type BVH struct {
	Root *BVHNode
	mesh *Mesh
}

// Leaf threshold: if we have this many or fewer triangles, store them in a leaf node
const leafThreshold = 4

// NewBVH constructs a BVH over every face of the mesh
func NewBVH(mesh *Mesh) *BVH {
	if mesh == nil || mesh.FaceCount() == 0 {
		return &BVH{mesh: mesh}
	}

	faces := make([]int, mesh.FaceCount())
	bounds := make([]core.AABB, mesh.FaceCount())
	for i := range faces {
		faces[i] = i
		bounds[i] = mesh.FaceBounds(i)
	}

	b := &bvhBuilder{bounds: bounds}
	return &BVH{
		Root: b.build(faces),
		mesh: mesh,
	}
}

type bvhBuilder struct {
	bounds []core.AABB // Cached per-face bounding boxes
}

// build recursively builds the BVH using median splitting along the longest axis
func (b *bvhBuilder) build(faces []int) *BVHNode {
	boundingBox := core.EmptyAABB()
	for _, f := range faces {
		boundingBox = boundingBox.Union(b.bounds[f])
	}

	if len(faces) <= leafThreshold {
		return &BVHNode{BoundingBox: boundingBox, Faces: faces}
	}

	axis, splitPos, ok := b.findSplit(faces)
	if !ok {
		return &BVHNode{BoundingBox: boundingBox, Faces: faces}
	}

	left, right := b.partition(faces, axis, splitPos)

	// Ensure we don't create empty partitions
	if len(left) == 0 || len(right) == 0 {
		return &BVHNode{BoundingBox: boundingBox, Faces: faces}
	}

	return &BVHNode{
		BoundingBox: boundingBox,
		Left:        b.build(left),
		Right:       b.build(right),
	}
}

// findSplit picks the longest axis of the centroid bounds and splits at its middle
func (b *bvhBuilder) findSplit(faces []int) (axis int, splitPos float64, ok bool) {
	centroids := core.EmptyAABB()
	for _, f := range faces {
		centroids = centroids.Extend(b.bounds[f].Center())
	}

	axis = centroids.LongestAxis()
	minVal := core.Axis(centroids.Min, axis)
	maxVal := core.Axis(centroids.Max, axis)

	// Skip if no extent along this axis
	if maxVal <= minVal {
		return 0, 0, false
	}
	return axis, (minVal + maxVal) * 0.5, true
}

// partition splits faces by their centroid on the chosen axis
func (b *bvhBuilder) partition(faces []int, axis int, splitPos float64) ([]int, []int) {
	var left, right []int
	for _, f := range faces {
		if core.Axis(b.bounds[f].Center(), axis) < splitPos {
			left = append(left, f)
		} else {
			right = append(right, f)
		}
	}
	return left, right
}

// meshHit is the closest triangle found by a BVH query
type meshHit struct {
	Face int
	triangleHit
}

// intersect returns the closest triangle hit by the ray within [tMin, tMax]
func (bvh *BVH) intersect(ray core.Ray, tMin, tMax float64) (meshHit, bool) {
	if bvh.Root == nil {
		return meshHit{}, false
	}

	closest := meshHit{Face: -1}
	bvh.hitNode(bvh.Root, ray, core.Reciprocal(ray.Direction), tMin, tMax, &closest)
	return closest, closest.Face >= 0
}

// hitNode recursively tests ray intersection with BVH nodes, shrinking tMax
// as closer triangles are found
func (bvh *BVH) hitNode(node *BVHNode, ray core.Ray, invDir core.Vec3, tMin, tMax float64, closest *meshHit) float64 {
	if !node.BoundingBox.Hit(ray, invDir, tMin, tMax) {
		return tMax
	}

	if node.Faces != nil {
		for _, f := range node.Faces {
			v0, v1, v2 := bvh.mesh.Vertices(f)
			if hit, ok := intersectTriangle(ray, v0, v1, v2, tMin, tMax); ok {
				tMax = hit.T
				*closest = meshHit{Face: f, triangleHit: hit}
			}
		}
		return tMax
	}

	if node.Left != nil {
		tMax = bvh.hitNode(node.Left, ray, invDir, tMin, tMax, closest)
	}
	if node.Right != nil {
		tMax = bvh.hitNode(node.Right, ray, invDir, tMin, tMax, closest)
	}
	return tMax
}

// BoundingBox returns the overall bounding box of the BVH
func (bvh *BVH) BoundingBox() core.AABB {
	if bvh.Root == nil {
		return core.AABB{}
	}
	return bvh.Root.BoundingBox
}

// BVHStats contains statistics about the BVH structure
type BVHStats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
	Faces    int
}

// Stats returns statistics about the BVH structure
func (bvh *BVH) Stats() BVHStats {
	stats := BVHStats{}
	if bvh.Root != nil {
		collectStats(bvh.Root, 0, &stats)
	}
	return stats
}

// collectStats recursively collects statistics about the BVH
func collectStats(node *BVHNode, depth int, stats *BVHStats) {
	stats.Nodes++
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}

	if node.Faces != nil {
		stats.Leaves++
		stats.Faces += len(node.Faces)
		return
	}
	if node.Left != nil {
		collectStats(node.Left, depth+1, stats)
	}
	if node.Right != nil {
		collectStats(node.Right, depth+1, stats)
	}
}
