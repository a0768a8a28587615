package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/Unknown5436/3d-room-intelligence-system/utils"
)

// kdPoint is a cloud point carrying its index so that neighbour queries can
// report back into the owning cloud's index space.
type kdPoint struct {
	vec r3.Vector
	idx int
}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	switch d {
	case 0:
		return p.vec.X - q.vec.X
	case 1:
		return p.vec.Y - q.vec.Y
	default:
		return p.vec.Z - q.vec.Z
	}
}

func (p kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance, per the kdtree package's
// convention.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	return p.vec.Sub(q.vec).Norm2()
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int                { return kdPlane{Dim: d, kdPoints: p}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.kdPoints[i].vec.X < p.kdPoints[j].vec.X
	case 1:
		return p.kdPoints[i].vec.Y < p.kdPoints[j].vec.Y
	default:
		return p.kdPoints[i].vec.Z < p.kdPoints[j].vec.Z
	}
}
func (p kdPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}
func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}

// KDTree is a spatial index over a fixed set of points. Queries report
// indices into the point set it was built from.
type KDTree struct {
	tree *kdtree.Tree
}

// NewKDTree builds an index over the cloud's points.
func NewKDTree(cloud *Cloud) *KDTree {
	return NewKDTreeFromVectors(cloud.Positions())
}

// NewKDTreeFromVectors builds an index over the given positions; query
// results are indices into this slice.
func NewKDTreeFromVectors(positions []r3.Vector) *KDTree {
	pts := make(kdPoints, len(positions))
	for i, v := range positions {
		pts[i] = kdPoint{vec: v, idx: i}
	}
	return &KDTree{tree: kdtree.New(pts, false)}
}

type neighbor struct {
	idx  int
	dist float64
}

func drainKeeper(heap []kdtree.ComparableDist) []neighbor {
	found := make([]neighbor, 0, len(heap))
	for _, c := range heap {
		if c.Comparable == nil {
			continue
		}
		found = append(found, neighbor{idx: c.Comparable.(kdPoint).idx, dist: math.Sqrt(c.Dist)})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].dist < found[j].dist })
	return found
}

// KNN returns up to k nearest point indices to p, closest first, with their
// Euclidean distances. A point of the set identical to p is included; callers
// querying from a member point should ask for k+1 and drop themselves.
func (t *KDTree) KNN(p r3.Vector, k int) ([]int, []float64) {
	if k <= 0 {
		return nil, nil
	}
	keep := kdtree.NewNKeeper(k)
	t.tree.NearestSet(keep, kdPoint{vec: p, idx: -1})
	found := drainKeeper(keep.Heap)
	indices := make([]int, len(found))
	dists := make([]float64, len(found))
	for i, n := range found {
		indices[i] = n.idx
		dists[i] = n.dist
	}
	return indices, dists
}

// RadiusSearch returns the indices of all points within radius of p, closest
// first.
func (t *KDTree) RadiusSearch(p r3.Vector, radius float64) []int {
	keep := kdtree.NewDistKeeper(utils.Square(radius))
	t.tree.NearestSet(keep, kdPoint{vec: p, idx: -1})
	found := drainKeeper(keep.Heap)
	indices := make([]int, len(found))
	for i, n := range found {
		indices[i] = n.idx
	}
	return indices
}
