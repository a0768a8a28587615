package roomscan

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Unknown5436/3d-room-intelligence-system/segmentation"
)

// Result is the complete output record of one pipeline run.
type Result struct {
	RunID           string                             `json:"run_id"`
	Dimensions      RoomDimensions                     `json:"dimensions"`
	Objects         []segmentation.DetectedObject      `json:"objects"`
	Relationships   []segmentation.SpatialRelationship `json:"relationships"`
	PointCount      int                                `json:"point_count"`
	ProcessedPoints int                                `json:"processed_points"`
	ScanQuality     float64                            `json:"scan_quality"`
	QualityReport   QualityReport                      `json:"quality_report"`
	ProcessingTime  float64                            `json:"processing_time"`
	ClusterStats    segmentation.ClusterStats          `json:"cluster_stats"`
}

// MarshalIndentJSON renders the result as indented JSON for file output and
// the CLI.
func (r *Result) MarshalIndentJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal result")
	}
	return data, nil
}
