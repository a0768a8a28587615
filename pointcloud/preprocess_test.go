package pointcloud

import (
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func makeGridCloud(nx, ny int, spacing float64) *Cloud {
	cloud := NewWithPrealloc(nx * ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			cloud.Append(r3.Vector{X: float64(i) * spacing, Y: float64(j) * spacing})
		}
	}
	return cloud
}

func TestGetVoxelCoordinates(t *testing.T) {
	min := r3.Vector{X: -1, Y: -1, Z: -1}
	test.That(t, GetVoxelCoordinates(min, min, 0.1), test.ShouldResemble, VoxelCoords{})
	test.That(t,
		GetVoxelCoordinates(r3.Vector{X: -0.75, Y: -1, Z: 0}, min, 0.1),
		test.ShouldResemble, VoxelCoords{I: 2, J: 0, K: 10})
}

func TestRemoveStatisticalOutliers(t *testing.T) {
	cloud := makeGridCloud(10, 10, 0.05)
	outlierIdx := cloud.Size()
	cloud.Append(r3.Vector{X: 10, Y: 10, Z: 10})

	filtered := RemoveStatisticalOutliers(cloud, 20, 2.0)
	test.That(t, filtered.Size(), test.ShouldEqual, cloud.Size()-1)
	filtered.Iterate(func(i int, p r3.Vector) bool {
		test.That(t, p.X, test.ShouldBeLessThan, 1)
		return true
	})
	test.That(t, outlierIdx, test.ShouldEqual, 100)

	// clouds too small to have neighbourhoods pass through unchanged
	tiny := makeGridCloud(1, 2, 0.05)
	test.That(t, RemoveStatisticalOutliers(tiny, 20, 2.0), test.ShouldEqual, tiny)
}

func TestVoxelDownsample(t *testing.T) {
	// 4 points per 0.1m voxel cell collapse to their centroid
	cloud := New()
	for _, d := range []r3.Vector{{}, {X: 0.02}, {Y: 0.02}, {X: 0.02, Y: 0.02}} {
		cloud.Append(d)
		cloud.Append(d.Add(r3.Vector{X: 1}))
	}

	down := VoxelDownsample(cloud, 0.1)
	test.That(t, down.Size(), test.ShouldEqual, 2)
	test.That(t, down.Position(0).X, test.ShouldAlmostEqual, 0.01)
	test.That(t, down.Position(0).Y, test.ShouldAlmostEqual, 0.01)
	test.That(t, down.Position(1).X, test.ShouldAlmostEqual, 1.01)

	// downsampling never grows the cloud
	grid := makeGridCloud(20, 20, 0.01)
	test.That(t, VoxelDownsample(grid, 0.05).Size(), test.ShouldBeLessThan, grid.Size())

	// invalid voxel size passes the cloud through
	test.That(t, VoxelDownsample(grid, 0), test.ShouldEqual, grid)
}

func TestVoxelDownsampleAveragesColors(t *testing.T) {
	cloud := New()
	cloud.AppendColored(r3.Vector{}, color.NRGBA{R: 100, A: 255})
	cloud.AppendColored(r3.Vector{X: 0.01}, color.NRGBA{R: 200, A: 255})

	down := VoxelDownsample(cloud, 0.1)
	test.That(t, down.Size(), test.ShouldEqual, 1)
	test.That(t, down.Color(0), test.ShouldResemble, color.NRGBA{R: 150, A: 255})
}

func TestEstimateNormals(t *testing.T) {
	// a flat grid in the XY plane has vertical normals everywhere
	cloud := makeGridCloud(10, 10, 0.02)
	err := EstimateNormals(cloud, 0.1, 30)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.MetaData().HasNormals, test.ShouldBeTrue)
	for i := 0; i < cloud.Size(); i++ {
		n := cloud.Normal(i)
		test.That(t, n.Norm(), test.ShouldAlmostEqual, 1, 1e-6)
		test.That(t, math.Abs(n.Z), test.ShouldAlmostEqual, 1, 1e-6)
		test.That(t, n.Z, test.ShouldBeGreaterThan, 0)
	}
}

func TestEstimateNormalsVerticalSurface(t *testing.T) {
	// a wall in the YZ plane has normals along X, flipped up is ambiguous so
	// only the axis is checked
	cloud := New()
	for j := 0; j < 10; j++ {
		for k := 0; k < 10; k++ {
			cloud.Append(r3.Vector{Y: float64(j) * 0.02, Z: float64(k) * 0.02})
		}
	}
	err := EstimateNormals(cloud, 0.1, 30)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < cloud.Size(); i++ {
		test.That(t, math.Abs(cloud.Normal(i).X), test.ShouldAlmostEqual, 1, 1e-6)
	}
}

func TestEstimateNormalsDegenerate(t *testing.T) {
	// isolated points have no neighbourhood and default to vertical
	cloud := New()
	cloud.Append(r3.Vector{})
	cloud.Append(r3.Vector{X: 100})
	err := EstimateNormals(cloud, 0.1, 30)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Normal(0), test.ShouldResemble, r3.Vector{Z: 1})
	test.That(t, cloud.Normal(1), test.ShouldResemble, r3.Vector{Z: 1})
}
