package segmentation

import (
	"github.com/golang/geo/r3"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
)

// Relationship classification bands, by center-to-center distance.
const (
	RelationshipTouching = "touching"
	RelationshipAdjacent = "adjacent"
	RelationshipNearby   = "nearby"

	touchingDistance = 0.2
	adjacentDistance = 0.5
)

// SpatialRelationship records the proximity between two detected objects.
// Reporting is directional: a pair in range appears once from each side.
type SpatialRelationship struct {
	Object1ID    int     `json:"object1_id"`
	Object1Type  string  `json:"object1_type"`
	Object2ID    int     `json:"object2_id"`
	Object2Type  string  `json:"object2_type"`
	Distance     float64 `json:"distance"`
	Relationship string  `json:"relationship"`
}

func classifyDistance(distance float64) string {
	switch {
	case distance < touchingDistance:
		return RelationshipTouching
	case distance < adjacentDistance:
		return RelationshipAdjacent
	default:
		return RelationshipNearby
	}
}

// AnalyzeRelationships computes proximity relationships between objects whose
// centroids lie within distanceThreshold of each other, using a spatial index
// over the centroids. Fewer than two objects yield no relationships.
func AnalyzeRelationships(objects []DetectedObject, distanceThreshold float64, logger logging.Logger) []SpatialRelationship {
	relationships := make([]SpatialRelationship, 0)
	if len(objects) < 2 {
		logger.Debug("insufficient objects for relationship analysis")
		return relationships
	}
	logger.Infof("calculating spatial relationships for %d objects", len(objects))

	positions := make([]r3.Vector, len(objects))
	for i, obj := range objects {
		positions[i] = r3.Vector{X: obj.Position[0], Y: obj.Position[1], Z: obj.Position[2]}
	}
	tree := pc.NewKDTreeFromVectors(positions)

	for i, obj := range objects {
		for _, j := range tree.RadiusSearch(positions[i], distanceThreshold) {
			if j == i {
				continue
			}
			distance := positions[i].Sub(positions[j]).Norm()
			relationships = append(relationships, SpatialRelationship{
				Object1ID:    i,
				Object1Type:  obj.Type,
				Object2ID:    j,
				Object2Type:  objects[j].Type,
				Distance:     distance,
				Relationship: classifyDistance(distance),
			})
		}
	}
	logger.Infof("found %d spatial relationships", len(relationships))
	return relationships
}
