package roomscan

import (
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
)

// Scan quality ratings, from the aggregate quality score.
const (
	QualityExcellent  = "excellent"
	QualityGood       = "good"
	QualityAcceptable = "acceptable"
	QualityPoor       = "poor"
)

// QualityReport summarizes how suitable a raw scan is for reconstruction.
type QualityReport struct {
	Score        float64    `json:"quality_score"`
	Rating       string     `json:"rating"`
	PointCount   int        `json:"point_count"`
	PointDensity float64    `json:"point_density"`
	HasNormals   bool       `json:"has_normals"`
	HasColors    bool       `json:"has_colors"`
	BoundsMin    [3]float64 `json:"bounds_min"`
	BoundsMax    [3]float64 `json:"bounds_max"`
	Volume       float64    `json:"volume"`
}

// AssessQuality scores a raw cloud on point count, spatial density and
// attribute presence. The score is additive over independent criteria and
// always lands in [0, 1]; it informs logging and the final result but never
// gates the pipeline.
func AssessQuality(cloud *pc.Cloud) QualityReport {
	report := QualityReport{PointCount: cloud.Size()}
	if cloud.Size() == 0 {
		report.Rating = QualityPoor
		return report
	}

	box := cloud.BoundingBox()
	report.BoundsMin = [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	report.BoundsMax = [3]float64{box.Max.X, box.Max.Y, box.Max.Z}
	report.Volume = box.Volume()
	if report.Volume > 0 {
		report.PointDensity = float64(cloud.Size()) / report.Volume
	}

	var score float64
	switch {
	case cloud.Size() > 1_000_000:
		score += 0.4
	case cloud.Size() > 500_000:
		score += 0.3
	case cloud.Size() > 100_000:
		score += 0.2
	}
	switch {
	case report.PointDensity > 50_000:
		score += 0.3
	case report.PointDensity > 20_000:
		score += 0.2
	}

	meta := cloud.MetaData()
	if meta.HasNormals {
		report.HasNormals = true
		score += 0.15
	}
	if meta.HasColor {
		report.HasColors = true
		score += 0.15
	}

	report.Score = score
	switch {
	case score > 0.8:
		report.Rating = QualityExcellent
	case score > 0.6:
		report.Rating = QualityGood
	case score > 0.4:
		report.Rating = QualityAcceptable
	default:
		report.Rating = QualityPoor
	}
	return report
}
