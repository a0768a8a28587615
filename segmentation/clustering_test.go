package segmentation

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
)

// appendBlob adds a dense n x n x n cube of points around center.
func appendBlob(cloud *pc.Cloud, center r3.Vector, n int, spacing float64) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				cloud.Append(center.Add(r3.Vector{
					X: float64(i) * spacing,
					Y: float64(j) * spacing,
					Z: float64(k) * spacing,
				}))
			}
		}
	}
}

func TestAdaptiveClusterParams(t *testing.T) {
	// eps tracks the voxel size within its clamp band
	eps, _ := AdaptiveClusterParams(5000, 0.1, 0.05, 50)
	test.That(t, eps, test.ShouldAlmostEqual, 0.125)
	eps, _ = AdaptiveClusterParams(5000, 0.1, 0.01, 50)
	test.That(t, eps, test.ShouldAlmostEqual, 0.1)
	eps, _ = AdaptiveClusterParams(5000, 0.1, 0.5, 50)
	test.That(t, eps, test.ShouldAlmostEqual, 0.15)

	// minPoints shrinks for small clouds
	_, minPoints := AdaptiveClusterParams(5000, 0.1, 0.05, 50)
	test.That(t, minPoints, test.ShouldEqual, 50)
	_, minPoints = AdaptiveClusterParams(500, 0.1, 0.05, 50)
	test.That(t, minPoints, test.ShouldEqual, 75)
	_, minPoints = AdaptiveClusterParams(100, 0.1, 0.05, 50)
	test.That(t, minPoints, test.ShouldEqual, 25)
	_, minPoints = AdaptiveClusterParams(12, 0.1, 0.05, 50)
	test.That(t, minPoints, test.ShouldEqual, 10)
}

func TestDBSCAN(t *testing.T) {
	cloud := pc.New()
	appendBlob(cloud, r3.Vector{}, 4, 0.05)
	appendBlob(cloud, r3.Vector{X: 5}, 4, 0.05)
	// an isolated point far from both blobs
	cloud.Append(r3.Vector{X: 2.5, Y: 2.5, Z: 2.5})

	labels := DBSCAN(cloud, 0.1, 5)
	test.That(t, len(labels), test.ShouldEqual, cloud.Size())

	// both blobs form one cluster each, the stray point is noise
	blobSize := 4 * 4 * 4
	first := labels[0]
	second := labels[blobSize]
	test.That(t, first, test.ShouldNotEqual, NoiseLabel)
	test.That(t, second, test.ShouldNotEqual, NoiseLabel)
	test.That(t, first, test.ShouldNotEqual, second)
	for i := 0; i < blobSize; i++ {
		test.That(t, labels[i], test.ShouldEqual, first)
		test.That(t, labels[blobSize+i], test.ShouldEqual, second)
	}
	test.That(t, labels[cloud.Size()-1], test.ShouldEqual, NoiseLabel)
}

func TestDBSCANAllNoise(t *testing.T) {
	cloud := pc.New()
	for i := 0; i < 20; i++ {
		cloud.Append(r3.Vector{X: float64(i) * 10})
	}
	labels := DBSCAN(cloud, 0.1, 5)
	for _, label := range labels {
		test.That(t, label, test.ShouldEqual, NoiseLabel)
	}
}

func TestClusterObjects(t *testing.T) {
	logger := logging.NewTestLogger(t)

	cloud := pc.New()
	appendBlob(cloud, r3.Vector{}, 8, 0.05)
	appendBlob(cloud, r3.Vector{X: 3}, 8, 0.05)

	labels, stats := ClusterObjects(cloud, 0.1, 0.05, 50, logger)
	test.That(t, len(labels), test.ShouldEqual, cloud.Size())
	test.That(t, stats.TotalPoints, test.ShouldEqual, cloud.Size())
	test.That(t, stats.NumClusters, test.ShouldEqual, 2)
	test.That(t, stats.NoisePoints, test.ShouldEqual, 0)
	test.That(t, stats.NoiseRatio, test.ShouldEqual, 0)
	test.That(t, stats.EpsUsed, test.ShouldAlmostEqual, 0.125)
	test.That(t, stats.ClusterSizes[0]+stats.ClusterSizes[1], test.ShouldEqual, cloud.Size())
}

func TestClusterObjectsTooSmall(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cloud := pc.New()
	cloud.Append(r3.Vector{})

	labels, stats := ClusterObjects(cloud, 0.1, 0.05, 50, logger)
	test.That(t, labels, test.ShouldBeNil)
	test.That(t, stats.TotalPoints, test.ShouldEqual, 1)
	test.That(t, stats.NumClusters, test.ShouldEqual, 0)
	test.That(t, stats.ClusterSizes, test.ShouldNotBeNil)
	test.That(t, stats.ClusterSizes, test.ShouldHaveLength, 0)
}
