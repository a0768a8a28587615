package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeLineCloud(n int) *Cloud {
	cloud := NewWithPrealloc(n)
	for i := 0; i < n; i++ {
		cloud.Append(r3.Vector{X: float64(i)})
	}
	return cloud
}

func TestKNN(t *testing.T) {
	tree := NewKDTree(makeLineCloud(10))

	indices, dists := tree.KNN(r3.Vector{X: 3.1}, 3)
	test.That(t, indices, test.ShouldResemble, []int{3, 4, 2})
	test.That(t, dists[0], test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, dists[1], test.ShouldAlmostEqual, 0.9, 1e-9)
	test.That(t, dists[2], test.ShouldAlmostEqual, 1.1, 1e-9)

	// distances come back sorted ascending
	for i := 1; i < len(dists); i++ {
		test.That(t, dists[i], test.ShouldBeGreaterThanOrEqualTo, dists[i-1])
	}

	indices, dists = tree.KNN(r3.Vector{X: 100}, 20)
	test.That(t, len(indices), test.ShouldEqual, 10)
	test.That(t, len(dists), test.ShouldEqual, 10)
	test.That(t, indices[0], test.ShouldEqual, 9)

	indices, dists = tree.KNN(r3.Vector{}, 0)
	test.That(t, indices, test.ShouldBeNil)
	test.That(t, dists, test.ShouldBeNil)
}

func TestRadiusSearch(t *testing.T) {
	tree := NewKDTree(makeLineCloud(10))

	indices := tree.RadiusSearch(r3.Vector{X: 5}, 1.5)
	test.That(t, len(indices), test.ShouldEqual, 3)
	test.That(t, indices[0], test.ShouldEqual, 5)

	found := make(map[int]bool)
	for _, i := range indices {
		found[i] = true
	}
	test.That(t, found, test.ShouldResemble, map[int]bool{4: true, 5: true, 6: true})

	test.That(t, tree.RadiusSearch(r3.Vector{X: 100}, 1), test.ShouldHaveLength, 0)
}

func TestKDTreeMatchesBruteForce(t *testing.T) {
	positions := []r3.Vector{
		{X: 0.3, Y: 1.2, Z: -0.5},
		{X: -1.1, Y: 0.4, Z: 2.2},
		{X: 2.5, Y: -0.9, Z: 0.1},
		{X: 0.0, Y: 0.0, Z: 0.0},
		{X: 1.7, Y: 1.7, Z: 1.7},
		{X: -0.6, Y: -0.6, Z: 0.9},
	}
	tree := NewKDTreeFromVectors(positions)
	query := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}

	bestIdx, bestDist := -1, math.MaxFloat64
	for i, p := range positions {
		if d := p.Sub(query).Norm(); d < bestDist {
			bestIdx, bestDist = i, d
		}
	}

	indices, dists := tree.KNN(query, 1)
	test.That(t, indices, test.ShouldResemble, []int{bestIdx})
	test.That(t, dists[0], test.ShouldAlmostEqual, bestDist, 1e-9)
}
