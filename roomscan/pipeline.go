package roomscan

import (
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
	"github.com/Unknown5436/3d-room-intelligence-system/segmentation"
)

// Stage names the pipeline phases, in execution order. Failures are reported
// with the stage they occurred in.
type Stage string

const (
	StageLoading              Stage = "loading"
	StagePreprocessing        Stage = "preprocessing"
	StagePlaneDetection       Stage = "plane_detection"
	StageDimensionExtraction  Stage = "dimension_extraction"
	StageObjectIsolation      Stage = "object_isolation"
	StageClustering           Stage = "clustering"
	StageClassification       Stage = "classification"
	StageRelationshipAnalysis Stage = "relationship_analysis"
	StageDone                 Stage = "done"
	StageFailed               Stage = "failed"
)

// Pipeline runs the full reconstruction over a scan file. It holds no
// per-run state and is safe for concurrent Process calls.
type Pipeline struct {
	cfg    Config
	clock  clock.Clock
	logger logging.Logger
}

// NewPipeline creates a pipeline with the given configuration.
func NewPipeline(cfg Config, logger logging.Logger) *Pipeline {
	return newPipeline(cfg, clock.New(), logger)
}

func newPipeline(cfg Config, clk clock.Clock, logger logging.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, clock: clk, logger: logger}
}

// Process runs every stage over the scan at filePath and returns the result
// record. Missing planes, empty object clouds and sparse clusters degrade the
// result rather than failing it; only unreadable input and numerical failures
// return an error.
func (p *Pipeline) Process(filePath string) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "file", filePath)
	start := p.clock.Now()

	stage := StageLoading
	cloud, err := pc.NewFromFile(filePath, logger)
	if err != nil {
		return nil, p.fail(stage, err, logger)
	}
	pointCount := cloud.Size()
	quality := AssessQuality(cloud)
	logger.Infof("scan quality: %s (score: %.2f, %d points)", quality.Rating, quality.Score, pointCount)

	stage = StagePreprocessing
	processed, err := p.preprocess(cloud, logger)
	if err != nil {
		return nil, p.fail(stage, err, logger)
	}

	stage = StagePlaneDetection
	planes := segmentation.DetectPlanes(processed, p.cfg.MaxPlanes, p.cfg.RANSACIterations, p.cfg.RANSACDistanceThreshold, logger)

	stage = StageDimensionExtraction
	dims := ExtractRoomDimensions(processed, planes, logger)

	stage = StageObjectIsolation
	objectCloud := processed
	if inliers := segmentation.PlaneInlierUnion(planes); len(inliers) > 0 {
		objectCloud = processed.Without(inliers)
	}
	logger.Infof("isolated %d object points after removing %d plane points",
		objectCloud.Size(), processed.Size()-objectCloud.Size())

	stage = StageClustering
	objects := make([]segmentation.DetectedObject, 0)
	var stats segmentation.ClusterStats
	if objectCloud.Size() >= p.cfg.MinObjectPoints {
		labels, clusterStats := segmentation.ClusterObjects(
			objectCloud, p.cfg.ClusterEps, p.cfg.VoxelSize, p.cfg.ClusterMinSamples, logger)
		stats = clusterStats

		stage = StageClassification
		if labels != nil {
			objects = segmentation.ClassifyObjects(objectCloud, labels, p.cfg.MinClusterSize, logger)
		}
	} else {
		logger.Infof("too few object points for clustering: %d", objectCloud.Size())
		stats = segmentation.EmptyClusterStats(objectCloud.Size())
	}

	stage = StageRelationshipAnalysis
	relationships := segmentation.AnalyzeRelationships(objects, p.cfg.RelationshipThreshold, logger)

	stage = StageDone
	elapsed := p.clock.Since(start)
	logger.Infof("stage %s: room processing complete in %.2fs: %.2fm x %.2fm x %.2fm, %d objects",
		stage, elapsed.Seconds(), dims.Length, dims.Width, dims.Height, len(objects))

	return &Result{
		RunID:           runID,
		Dimensions:      dims,
		Objects:         objects,
		Relationships:   relationships,
		PointCount:      pointCount,
		ProcessedPoints: processed.Size(),
		ScanQuality:     quality.Score,
		QualityReport:   quality,
		ProcessingTime:  elapsed.Seconds(),
		ClusterStats:    stats,
	}, nil
}

// preprocess cleans and downsamples the raw cloud and estimates normals. A
// filter step that would discard every point is skipped with a warning so the
// pipeline can still produce a degraded result.
func (p *Pipeline) preprocess(cloud *pc.Cloud, logger logging.Logger) (*pc.Cloud, error) {
	filtered := pc.RemoveStatisticalOutliers(cloud, p.cfg.OutlierNeighbors, p.cfg.OutlierStdRatio)
	if filtered.Size() == 0 && cloud.Size() > 0 {
		logger.Warn("outlier removal discarded every point, keeping unfiltered cloud")
		filtered = cloud
	} else {
		logger.Infof("removed %d outlier points", cloud.Size()-filtered.Size())
	}

	downsampled := pc.VoxelDownsample(filtered, p.cfg.VoxelSize)
	if downsampled.Size() == 0 && filtered.Size() > 0 {
		logger.Warn("voxel downsampling produced an empty cloud, keeping filtered cloud")
		downsampled = filtered
	} else {
		logger.Infof("downsampled to %d points (voxel size %.3fm)", downsampled.Size(), p.cfg.VoxelSize)
	}

	if err := pc.EstimateNormals(downsampled, p.cfg.NormalRadius, p.cfg.NormalMaxNeighbors); err != nil {
		return nil, errors.Wrap(err, "cannot estimate normals")
	}
	return downsampled, nil
}

func (p *Pipeline) fail(stage Stage, err error, logger logging.Logger) error {
	logger.Errorf("pipeline %s at stage %s: %v", StageFailed, stage, err)
	return errors.Wrapf(err, "stage %s", stage)
}
