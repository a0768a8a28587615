package segmentation

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
	"github.com/Unknown5436/3d-room-intelligence-system/utils"
)

const (
	// minPlanePoints is the minimum cloud size a plane can be fit to.
	minPlanePoints = 3
	// minPlaneInliersFloor is the lower bound on the adaptive inlier
	// threshold that accepts a candidate plane.
	minPlaneInliersFloor = 500
)

// SegmentPlane runs RANSAC over the given positions and returns the equation
// of the best-supported plane and the indices of its inliers (into the
// positions slice). Fewer than 3 positions yield no plane.
// nIterations can be derived from log(1-p)/log(1-(1-e)^3) where p is the
// desired success probability and e the outlier ratio.
func SegmentPlane(positions []r3.Vector, nIterations int, threshold float64, rng *rand.Rand) ([4]float64, []int) {
	nPoints := len(positions)
	if nPoints < minPlanePoints {
		return [4]float64{}, nil
	}

	var bestEquation [4]float64
	bestInliers := 0

	for i := 0; i < nIterations; i++ {
		// sample 3 points to define a candidate plane
		n1 := utils.SampleRandomIntRange(0, nPoints-1, rng)
		n2 := utils.SampleRandomIntRange(0, nPoints-1, rng)
		n3 := utils.SampleRandomIntRange(0, nPoints-1, rng)
		p1, p2, p3 := positions[n1], positions[n2], positions[n3]

		v1 := p2.Sub(p1)
		v2 := p3.Sub(p1)
		cross := v1.Cross(v2)
		// collinear or duplicate samples define no plane; dense grid scans
		// hit this often
		if cross.Norm() < 1e-9 {
			continue
		}
		vec := cross.Normalize()
		d := -vec.Dot(p2)
		currentEquation := [4]float64{vec.X, vec.Y, vec.Z, d}

		currentInliers := 0
		for _, pt := range positions {
			dist := planeDistance(currentEquation, pt, 1.0)
			if math.Abs(dist) < threshold {
				currentInliers++
			}
		}
		if currentInliers > bestInliers {
			bestEquation = currentEquation
			bestInliers = currentInliers
		}
	}
	if bestInliers == 0 {
		return [4]float64{}, nil
	}

	norm := r3.Vector{X: bestEquation[0], Y: bestEquation[1], Z: bestEquation[2]}.Norm()
	inliers := make([]int, 0, bestInliers)
	for i, pt := range positions {
		if math.Abs(planeDistance(bestEquation, pt, norm)) < threshold {
			inliers = append(inliers, i)
		}
	}
	return bestEquation, inliers
}

// DetectPlanes greedily extracts up to maxPlanes dominant planes from the
// cloud. Each accepted plane's inliers are removed from the working set
// before the next iteration; the returned inlier indices always refer to the
// input cloud's index space. Extraction stops when fewer than 3 points
// remain or the best candidate's support falls below max(500, 1% of the
// remaining points).
func DetectPlanes(
	cloud *pc.Cloud,
	maxPlanes int,
	nIterations int,
	threshold float64,
	logger logging.Logger,
) []*Plane {
	logger.Infof("detecting up to %d planes using RANSAC", maxPlanes)

	rng := rand.New(rand.NewSource(1))
	planes := make([]*Plane, 0, maxPlanes)

	// active tracks which original indices are still in the working set, so
	// per-iteration inlier indices can be mapped back without reindexing the
	// cloud itself.
	active := make([]int, cloud.Size())
	for i := range active {
		active[i] = i
	}

	for len(planes) < maxPlanes {
		if len(active) < minPlanePoints {
			logger.Debugf("not enough points for plane detection: %d", len(active))
			break
		}
		minInliers := utils.MaxInt(minPlaneInliersFloor, len(active)/100)

		positions := make([]r3.Vector, len(active))
		for i, idx := range active {
			positions[i] = cloud.Position(idx)
		}
		equation, localInliers := SegmentPlane(positions, nIterations, threshold, rng)
		if len(localInliers) < minInliers {
			logger.Debugf("plane %d: insufficient inliers (%d < %d minimum)", len(planes)+1, len(localInliers), minInliers)
			break
		}

		inliers := make([]int, len(localInliers))
		inSet := make(map[int]bool, len(localInliers))
		for i, li := range localInliers {
			inliers[i] = active[li]
			inSet[li] = true
		}
		planes = append(planes, NewPlane(equation, inliers))
		logger.Infof("plane %d: %d inliers, equation %v", len(planes), len(inliers), equation)

		remaining := make([]int, 0, len(active)-len(localInliers))
		for i, idx := range active {
			if !inSet[i] {
				remaining = append(remaining, idx)
			}
		}
		active = remaining
	}

	logger.Infof("detected %d planes", len(planes))
	return planes
}

// PlaneInlierUnion returns the union of all the planes' inlier index sets.
func PlaneInlierUnion(planes []*Plane) []int {
	seen := make(map[int]bool)
	union := make([]int, 0)
	for _, plane := range planes {
		for _, i := range plane.Inliers() {
			if !seen[i] {
				seen[i] = true
				union = append(union, i)
			}
		}
	}
	return union
}
