package segmentation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
)

// appendGrid adds an n x n planar grid of points to the cloud. The grid spans
// axes u and v from origin with the given spacing.
func appendGrid(cloud *pc.Cloud, origin, u, v r3.Vector, n int, spacing float64) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p := origin.Add(u.Mul(float64(i) * spacing)).Add(v.Mul(float64(j) * spacing))
			cloud.Append(p)
		}
	}
}

func TestSegmentPlane(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	cloud := pc.New()
	appendGrid(cloud, r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}, 30, 0.05)
	// a handful of points well off the plane
	for i := 0; i < 20; i++ {
		cloud.Append(r3.Vector{X: rng.Float64(), Y: rng.Float64(), Z: 0.5 + rng.Float64()})
	}

	equation, inliers := SegmentPlane(cloud.Positions(), 200, 0.01, rng)
	test.That(t, len(inliers), test.ShouldEqual, 900)

	// recovered normal is vertical, the plane passes through z=0
	norm := r3.Vector{X: equation[0], Y: equation[1], Z: equation[2]}.Norm()
	test.That(t, math.Abs(equation[2]/norm), test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, math.Abs(equation[3]/norm), test.ShouldBeLessThan, 0.01)
}

func TestSegmentPlaneTooFewPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, inliers := SegmentPlane([]r3.Vector{{X: 1}, {X: 2}}, 100, 0.01, rng)
	test.That(t, inliers, test.ShouldBeNil)
}

func TestDetectPlanes(t *testing.T) {
	logger := logging.NewTestLogger(t)

	// a floor and a wall, each with 900 points, well above the inlier floor
	cloud := pc.New()
	appendGrid(cloud, r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}, 30, 0.1)
	appendGrid(cloud, r3.Vector{}, r3.Vector{Y: 1}, r3.Vector{Z: 1}, 30, 0.1)

	planes := DetectPlanes(cloud, 5, 500, 0.01, logger)
	test.That(t, len(planes), test.ShouldEqual, 2)

	// inliers refer to the input cloud and do not overlap between planes
	seen := make(map[int]bool)
	for _, plane := range planes {
		test.That(t, len(plane.Inliers()), test.ShouldBeGreaterThanOrEqualTo, 500)
		for _, idx := range plane.Inliers() {
			test.That(t, idx, test.ShouldBeLessThan, cloud.Size())
			test.That(t, seen[idx], test.ShouldBeFalse)
			seen[idx] = true
			test.That(t, math.Abs(plane.Distance(cloud.Position(idx))), test.ShouldBeLessThan, 0.01)
		}
	}

	one := pc.New()
	one.Append(r3.Vector{X: 1})
	test.That(t, DetectPlanes(one, 5, 100, 0.01, logger), test.ShouldHaveLength, 0)
}

func TestDetectPlanesDeterministic(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cloud := pc.New()
	appendGrid(cloud, r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1}, 30, 0.1)

	first := DetectPlanes(cloud, 5, 300, 0.01, logger)
	second := DetectPlanes(cloud, 5, 300, 0.01, logger)
	test.That(t, len(first), test.ShouldEqual, len(second))
	for i := range first {
		test.That(t, first[i].Equation(), test.ShouldResemble, second[i].Equation())
		test.That(t, first[i].Inliers(), test.ShouldResemble, second[i].Inliers())
	}
}

func TestPlaneInlierUnion(t *testing.T) {
	planes := []*Plane{
		NewPlane([4]float64{0, 0, 1, 0}, []int{1, 2, 3}),
		NewPlane([4]float64{1, 0, 0, 0}, []int{3, 4}),
	}
	union := PlaneInlierUnion(planes)
	test.That(t, union, test.ShouldResemble, []int{1, 2, 3, 4})
	test.That(t, PlaneInlierUnion(nil), test.ShouldHaveLength, 0)
}
