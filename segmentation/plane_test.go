package segmentation

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPlaneDistance(t *testing.T) {
	// z = 1 plane
	plane := NewPlane([4]float64{0, 0, 1, -1}, nil)
	test.That(t, plane.Distance(r3.Vector{Z: 3}), test.ShouldAlmostEqual, 2)
	test.That(t, plane.Distance(r3.Vector{Z: 0}), test.ShouldAlmostEqual, -1)
	test.That(t, plane.Distance(r3.Vector{X: 5, Y: -2, Z: 1}), test.ShouldAlmostEqual, 0)

	// non-unit normals are normalized in the distance
	scaled := NewPlane([4]float64{0, 0, 2, -2}, nil)
	test.That(t, scaled.Distance(r3.Vector{Z: 3}), test.ShouldAlmostEqual, 2)

	degenerate := NewPlane([4]float64{}, nil)
	test.That(t, degenerate.Distance(r3.Vector{Z: 3}), test.ShouldEqual, 0)
}

func TestPlaneIsHorizontal(t *testing.T) {
	floor := NewPlane([4]float64{0, 0, 1, 0}, nil)
	test.That(t, floor.IsHorizontal(0.9), test.ShouldBeTrue)

	flipped := NewPlane([4]float64{0, 0, -3, 0}, nil)
	test.That(t, flipped.IsHorizontal(0.9), test.ShouldBeTrue)

	wall := NewPlane([4]float64{1, 0, 0, -2}, nil)
	test.That(t, wall.IsHorizontal(0.9), test.ShouldBeFalse)

	tilted := NewPlane([4]float64{1, 0, 1, 0}, nil)
	test.That(t, tilted.IsHorizontal(0.9), test.ShouldBeFalse)

	degenerate := NewPlane([4]float64{}, nil)
	test.That(t, degenerate.IsHorizontal(0.9), test.ShouldBeFalse)
}

func TestPlaneAccessors(t *testing.T) {
	inliers := []int{3, 1, 4}
	plane := NewPlane([4]float64{1, 2, 3, 4}, inliers)
	test.That(t, plane.Equation(), test.ShouldResemble, [4]float64{1, 2, 3, 4})
	test.That(t, plane.Normal(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, plane.Inliers(), test.ShouldResemble, inliers)
}
