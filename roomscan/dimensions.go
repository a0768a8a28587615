package roomscan

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
	"github.com/Unknown5436/3d-room-intelligence-system/segmentation"
)

// DefaultCeilingHeight is assumed when the scan yields no usable floor and
// ceiling pair.
const DefaultCeilingHeight = 2.5

// Accuracy labels for the dimension estimate, from best to worst.
const (
	AccuracyPlaneFit    = "±2-5cm"
	AccuracyPartialFit  = "±5-10cm (walls from bounding box)"
	AccuracyBoundingBox = "±10-20cm (bounding box estimate)"
)

const (
	// horizontalDot is the minimum |n̂·ẑ| for a plane to count as floor or
	// ceiling; verticalDot the maximum |n̂·floor normal| for a wall.
	horizontalDot = 0.9
	verticalDot   = 0.2
	// parallelDot is the minimum |n̂1·n̂2| for two walls to be a parallel
	// pair; pairs closer than minWallSeparation are the same physical wall
	// caught twice.
	parallelDot       = 0.85
	minWallSeparation = 0.1

	minDimension = 0.01
)

// RoomDimensions is the estimated room extent in metres, with an accuracy
// label describing how it was derived.
type RoomDimensions struct {
	Length   float64 `json:"length"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Accuracy string  `json:"accuracy"`
}

// ExtractRoomDimensions estimates length, width and height from the detected
// planes, degrading to bounding-box estimates when the plane set is
// incomplete. Output dimensions are rounded to centimetres and always
// positive.
func ExtractRoomDimensions(cloud *pc.Cloud, planes []*segmentation.Plane, logger logging.Logger) RoomDimensions {
	box := cloud.BoundingBox()
	extents := box.Extents()

	if len(planes) == 0 {
		logger.Warn("no planes detected, estimating room dimensions from bounding box")
		return RoomDimensions{
			Length:   roundDimension(math.Max(extents.X, extents.Y)),
			Width:    roundDimension(math.Min(extents.X, extents.Y)),
			Height:   roundDimension(extents.Z),
			Accuracy: AccuracyBoundingBox,
		}
	}

	floor, ceiling := identifyFloorAndCeiling(planes)

	height := DefaultCeilingHeight
	if floor != nil && ceiling != nil {
		height = perpendicularPlaneDistance(floor, ceiling)
		logger.Infof("room height from floor/ceiling planes: %.2fm", height)
	} else {
		logger.Warnf("floor or ceiling plane missing, assuming %.1fm ceiling height", DefaultCeilingHeight)
	}

	walls := identifyWalls(planes, floor)
	pairDistances := parallelWallDistances(walls)
	sort.Sort(sort.Reverse(sort.Float64Slice(pairDistances)))

	var length, width float64
	accuracy := AccuracyPlaneFit
	switch {
	case len(pairDistances) >= 2:
		length = pairDistances[0]
		width = pairDistances[1]
	case len(pairDistances) == 1:
		// the measured pair replaces the bounding-box extent it is closest
		// to; the other horizontal extent fills in the missing direction
		long, short := math.Max(extents.X, extents.Y), math.Min(extents.X, extents.Y)
		if math.Abs(pairDistances[0]-long) <= math.Abs(pairDistances[0]-short) {
			length, width = pairDistances[0], short
		} else {
			length, width = long, pairDistances[0]
		}
		if width > length {
			length, width = width, length
		}
	default:
		logger.Warn("no parallel wall pairs found, estimating floor extent from bounding box")
		length = math.Max(extents.X, extents.Y)
		width = math.Min(extents.X, extents.Y)
		accuracy = AccuracyPartialFit
	}

	dims := RoomDimensions{
		Length:   roundDimension(length),
		Width:    roundDimension(width),
		Height:   roundDimension(height),
		Accuracy: accuracy,
	}
	logger.Infof("room dimensions: %.2fm x %.2fm x %.2fm (%s)", dims.Length, dims.Width, dims.Height, dims.Accuracy)
	return dims
}

// identifyFloorAndCeiling picks the lowest and highest horizontal planes by
// their signed plane offset, orienting the floor normal up and the ceiling
// normal down. A single horizontal plane is taken as the floor only.
func identifyFloorAndCeiling(planes []*segmentation.Plane) (*segmentation.Plane, *segmentation.Plane) {
	horizontal := make([]*segmentation.Plane, 0, 2)
	for _, plane := range planes {
		if plane.IsHorizontal(horizontalDot) {
			horizontal = append(horizontal, plane)
		}
	}
	sort.Slice(horizontal, func(i, j int) bool {
		return horizontal[i].Equation()[3] < horizontal[j].Equation()[3]
	})

	switch len(horizontal) {
	case 0:
		return nil, nil
	case 1:
		return orientPlane(horizontal[0], 1), nil
	default:
		return orientPlane(horizontal[0], 1), orientPlane(horizontal[len(horizontal)-1], -1)
	}
}

// orientPlane flips the plane equation so its normal's Z component has the
// given sign. RANSAC fits are sign-ambiguous; height math needs floor up and
// ceiling down.
func orientPlane(plane *segmentation.Plane, zSign float64) *segmentation.Plane {
	eq := plane.Equation()
	if eq[2]*zSign >= 0 {
		return plane
	}
	return segmentation.NewPlane([4]float64{-eq[0], -eq[1], -eq[2], -eq[3]}, plane.Inliers())
}

// perpendicularPlaneDistance measures the separation of two near-parallel
// planes, aligning their normals first so the offsets are comparable.
func perpendicularPlaneDistance(p1, p2 *segmentation.Plane) float64 {
	eq1, eq2 := p1.Equation(), p2.Equation()
	n1 := r3.Vector{X: eq1[0], Y: eq1[1], Z: eq1[2]}
	n2 := r3.Vector{X: eq2[0], Y: eq2[1], Z: eq2[2]}
	norm1, norm2 := n1.Norm(), n2.Norm()
	if norm1 == 0 || norm2 == 0 {
		return 0
	}
	d1 := eq1[3] / norm1
	d2 := eq2[3] / norm2
	if n1.Dot(n2) < 0 {
		d2 = -d2
	}
	return math.Abs(d1 - d2)
}

// identifyWalls returns the planes whose normals are near-perpendicular to
// the floor normal, or to the vertical axis if no floor was found.
func identifyWalls(planes []*segmentation.Plane, floor *segmentation.Plane) []*segmentation.Plane {
	up := r3.Vector{Z: 1}
	if floor != nil {
		n := floor.Normal()
		if norm := n.Norm(); norm > 0 {
			up = n.Mul(1 / norm)
		}
	}

	walls := make([]*segmentation.Plane, 0, len(planes))
	for _, plane := range planes {
		if plane == floor {
			continue
		}
		n := plane.Normal()
		norm := n.Norm()
		if norm == 0 {
			continue
		}
		if math.Abs(n.Mul(1/norm).Dot(up)) < verticalDot {
			walls = append(walls, plane)
		}
	}
	return walls
}

// parallelWallDistances measures the separation of every parallel wall pair,
// skipping pairs too close to be opposite walls.
func parallelWallDistances(walls []*segmentation.Plane) []float64 {
	distances := make([]float64, 0)
	for i := 0; i < len(walls); i++ {
		ni := walls[i].Normal()
		normI := ni.Norm()
		if normI == 0 {
			continue
		}
		for j := i + 1; j < len(walls); j++ {
			nj := walls[j].Normal()
			normJ := nj.Norm()
			if normJ == 0 {
				continue
			}
			if math.Abs(ni.Dot(nj)/(normI*normJ)) <= parallelDot {
				continue
			}
			if dist := perpendicularPlaneDistance(walls[i], walls[j]); dist > minWallSeparation {
				distances = append(distances, dist)
			}
		}
	}
	return distances
}

func roundDimension(v float64) float64 {
	rounded := math.Round(v*100) / 100
	if rounded < minDimension {
		return minDimension
	}
	return rounded
}
