package segmentation

import (
	"github.com/golang/geo/r3"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
)

// DefaultMinClusterSize is the smallest cluster worth classifying.
const DefaultMinClusterSize = 50

// GeometricFeatures are the axis-aligned bounding-box derived features a
// cluster is classified on.
type GeometricFeatures struct {
	Length        float64
	Width         float64
	Height        float64
	Volume        float64
	AspectRatioXY float64
	AspectRatioXZ float64
	AspectRatioYZ float64
	SurfaceArea   float64
	Center        r3.Vector
}

// ExtractGeometricFeatures computes bounding-box features for a cluster
// cloud.
func ExtractGeometricFeatures(cluster *pc.Cloud) GeometricFeatures {
	box := cluster.BoundingBox()
	extents := box.Extents()
	length, width, height := extents.X, extents.Y, extents.Z

	f := GeometricFeatures{
		Length:      length,
		Width:       width,
		Height:      height,
		Volume:      length * width * height,
		SurfaceArea: 2 * (length*width + length*height + width*height),
		Center:      box.Center(),
	}
	if width > 0 {
		f.AspectRatioXY = length / width
	}
	if height > 0 {
		f.AspectRatioXZ = length / height
		f.AspectRatioYZ = width / height
	}
	return f
}

// DetectedObject is a classified furniture object. It is created once during
// classification and never mutated afterwards.
type DetectedObject struct {
	Type       string     `json:"type"`
	Position   [3]float64 `json:"position"`
	Dimensions [3]float64 `json:"dimensions"`
	Volume     float64    `json:"volume"`
	Confidence float64    `json:"confidence"`
	ClusterID  int        `json:"cluster_id"`
	PointCount int        `json:"point_count"`
}

// UnknownObjectType labels clusters no rule matched.
const UnknownObjectType = "unknown"

// classificationRule pairs a geometric predicate with the label and fixed
// confidence it assigns. Confidences are constants per rule, not fit
// quality.
type classificationRule struct {
	match      func(f GeometricFeatures) bool
	label      string
	confidence float64
}

// classificationRules is evaluated in order with first-match-wins semantics;
// the ordering encodes priority between overlapping height bands (e.g. a
// 0.75m-tall wide cluster is a table before it can be a desk or sofa).
var classificationRules = []classificationRule{
	{func(f GeometricFeatures) bool { return f.Height >= 0.6 && f.Height <= 0.8 && f.AspectRatioXY > 0.5 }, "table", 0.75},
	{func(f GeometricFeatures) bool { return f.Height >= 0.4 && f.Height <= 0.5 && f.Volume < 0.3 }, "chair", 0.70},
	{func(f GeometricFeatures) bool { return f.Height >= 0.7 && f.Height <= 0.8 && f.AspectRatioXY > 1.2 }, "desk", 0.72},
	{func(f GeometricFeatures) bool { return f.Height >= 0.4 && f.Height <= 0.6 && f.Volume > 2.0 }, "bed", 0.80},
	{func(f GeometricFeatures) bool { return f.Height >= 0.7 && f.Height <= 0.9 && f.Length > 1.5 }, "sofa", 0.75},
	{func(f GeometricFeatures) bool { return f.Height > 1.2 && f.Volume > 0.5 }, "cabinet", 0.68},
	{func(f GeometricFeatures) bool { return f.Height > 1.5 && f.AspectRatioXY < 0.3 }, "bookshelf", 0.65},
}

// ClassifyByGeometry assigns a furniture label and confidence from geometric
// features. Pure and deterministic.
func ClassifyByGeometry(f GeometricFeatures) (string, float64) {
	for _, rule := range classificationRules {
		if rule.match(f) {
			return rule.label, rule.confidence
		}
	}
	return UnknownObjectType, 0.0
}

// ClassifyObjects turns cluster labels into classified objects. Clusters
// smaller than minClusterSize are skipped, as are unknowns with negligible
// confidence.
func ClassifyObjects(cloud *pc.Cloud, labels []int, minClusterSize int, logger logging.Logger) []DetectedObject {
	maxLabel := NoiseLabel
	for _, label := range labels {
		if label > maxLabel {
			maxLabel = label
		}
	}
	objects := make([]DetectedObject, 0)
	if maxLabel < 0 {
		logger.Warn("no clusters found for classification")
		return objects
	}
	logger.Infof("classifying objects from %d clusters", maxLabel+1)

	for clusterID := 0; clusterID <= maxLabel; clusterID++ {
		indices := make([]int, 0)
		for i, label := range labels {
			if label == clusterID {
				indices = append(indices, i)
			}
		}
		if len(indices) < minClusterSize {
			continue
		}

		features := ExtractGeometricFeatures(cloud.Select(indices))
		objType, confidence := ClassifyByGeometry(features)
		if objType == UnknownObjectType && confidence < 0.1 {
			continue
		}

		objects = append(objects, DetectedObject{
			Type:       objType,
			Position:   [3]float64{features.Center.X, features.Center.Y, features.Center.Z},
			Dimensions: [3]float64{features.Length, features.Width, features.Height},
			Volume:     features.Volume,
			Confidence: confidence,
			ClusterID:  clusterID,
			PointCount: len(indices),
		})
		logger.Debugf("classified cluster %d: %s (confidence: %.2f, points: %d)",
			clusterID, objType, confidence, len(indices))
	}
	logger.Infof("classified %d objects from %d clusters", len(objects), maxLabel+1)
	return objects
}
