package segmentation

import (
	"math"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
	"github.com/Unknown5436/3d-room-intelligence-system/utils"
)

// NoiseLabel marks points not assigned to any cluster.
const NoiseLabel = -1

// unclassified is the internal pre-visit label.
const unclassified = -2

// minClusterablePoints is the smallest cloud DBSCAN will run on.
const minClusterablePoints = 10

// ClusterStats reports how a clustering run went; the pipeline forwards it
// into the final result for diagnostics. ClusterSizes is always non-nil so
// skipped runs serialize the same shape as empty ones.
type ClusterStats struct {
	TotalPoints   int         `json:"total_points"`
	NumClusters   int         `json:"num_clusters"`
	NoisePoints   int         `json:"noise_points"`
	NoiseRatio    float64     `json:"noise_ratio"`
	EpsUsed       float64     `json:"eps_used"`
	MinPointsUsed int         `json:"min_points_used"`
	ClusterSizes  map[int]int `json:"cluster_sizes"`
}

// AdaptiveClusterParams derives DBSCAN parameters from the cloud size and
// the downsampling resolution. eps tracks the voxel size (about 2.5x, kept
// within [0.05, 0.15]m) so neighbourhood scale survives resolution changes;
// minPoints shrinks for small clouds so sparse scans still form clusters.
func AdaptiveClusterParams(pointCount int, baseEps, voxelSize float64, baseMinPoints int) (float64, int) {
	const voxelRatio = 2.5
	eps := math.Max(baseEps, utils.Clamp(voxelSize*voxelRatio, 0.05, 0.15))

	var minPoints int
	switch {
	case pointCount < 200:
		minPoints = utils.MaxInt(10, pointCount*25/100)
	case pointCount < 1000:
		minPoints = utils.MaxInt(20, pointCount*15/100)
	default:
		minPoints = baseMinPoints
	}
	minPoints = utils.MinInt(minPoints, utils.MaxInt(10, pointCount-5))
	return eps, minPoints
}

// DBSCAN labels every point of the cloud with a cluster number, or NoiseLabel
// for points without a dense enough neighbourhood. Neighbourhood membership
// is |p-q| <= eps; a point is a core point when its neighbourhood (itself
// included) holds at least minPoints points.
func DBSCAN(cloud *pc.Cloud, eps float64, minPoints int) []int {
	n := cloud.Size()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unclassified
	}
	if n == 0 {
		return labels
	}
	tree := pc.NewKDTree(cloud)

	cluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != unclassified {
			continue
		}
		neighbors := tree.RadiusSearch(cloud.Position(i), eps)
		if len(neighbors) < minPoints {
			labels[i] = NoiseLabel
			continue
		}
		labels[i] = cluster
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			q := queue[0]
			queue = queue[1:]
			if labels[q] == NoiseLabel {
				labels[q] = cluster // border point reached from a core point
			}
			if labels[q] != unclassified {
				continue
			}
			labels[q] = cluster
			qNeighbors := tree.RadiusSearch(cloud.Position(q), eps)
			if len(qNeighbors) >= minPoints {
				queue = append(queue, qNeighbors...)
			}
		}
		cluster++
	}
	return labels
}

// EmptyClusterStats returns stats for a run that found nothing, over the
// given number of candidate points.
func EmptyClusterStats(pointCount int) ClusterStats {
	return ClusterStats{TotalPoints: pointCount, ClusterSizes: make(map[int]int)}
}

// ClusterObjects runs DBSCAN with adaptive parameters over the object cloud
// (the preprocessed cloud with plane inliers removed) and reports run
// statistics. Clouds below the clusterable minimum yield no labels and
// cluster-free stats, a degraded but valid outcome.
func ClusterObjects(
	cloud *pc.Cloud,
	baseEps, voxelSize float64,
	baseMinPoints int,
	logger logging.Logger,
) ([]int, ClusterStats) {
	pointCount := cloud.Size()
	if pointCount < minClusterablePoints {
		logger.Warnf("not enough points for clustering: %d", pointCount)
		return nil, EmptyClusterStats(pointCount)
	}

	eps, minPoints := AdaptiveClusterParams(pointCount, baseEps, voxelSize, baseMinPoints)
	logger.Infof("DBSCAN parameters: eps=%.3fm, minPoints=%d (pointCount=%d, voxelSize=%.3fm)",
		eps, minPoints, pointCount, voxelSize)

	labels := DBSCAN(cloud, eps, minPoints)

	stats := ClusterStats{
		TotalPoints:   pointCount,
		EpsUsed:       eps,
		MinPointsUsed: minPoints,
		ClusterSizes:  make(map[int]int),
	}
	for _, label := range labels {
		if label == NoiseLabel {
			stats.NoisePoints++
			continue
		}
		stats.ClusterSizes[label]++
		if label+1 > stats.NumClusters {
			stats.NumClusters = label + 1
		}
	}
	stats.NoiseRatio = float64(stats.NoisePoints) / float64(pointCount)

	logger.Infof("DBSCAN clustering complete: %d clusters (noise: %d points, %.1f%%)",
		stats.NumClusters, stats.NoisePoints, stats.NoiseRatio*100)
	return labels, stats
}
