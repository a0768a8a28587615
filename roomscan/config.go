// Package roomscan assembles the room reconstruction pipeline: loading,
// preprocessing, plane detection, dimension extraction, object clustering,
// classification and spatial relationship analysis.
package roomscan

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config carries every tunable parameter of the pipeline. It is passed
// explicitly into the pipeline and threaded through to each stage; no stage
// reads ambient state.
type Config struct {
	// statistical outlier removal
	OutlierNeighbors int     `env:"OUTLIER_NEIGHBORS" envDefault:"20"`
	OutlierStdRatio  float64 `env:"OUTLIER_STD_RATIO" envDefault:"2.0"`

	// voxel downsampling
	VoxelSize float64 `env:"VOXEL_SIZE" envDefault:"0.05"`

	// normal estimation
	NormalRadius       float64 `env:"NORMAL_RADIUS" envDefault:"0.1"`
	NormalMaxNeighbors int     `env:"NORMAL_MAX_NEIGHBORS" envDefault:"30"`

	// RANSAC plane detection
	RANSACDistanceThreshold float64 `env:"RANSAC_DISTANCE_THRESHOLD" envDefault:"0.01"`
	RANSACIterations        int     `env:"RANSAC_ITERATIONS" envDefault:"1000"`
	MaxPlanes               int     `env:"MAX_PLANES" envDefault:"5"`

	// DBSCAN object clustering
	ClusterEps        float64 `env:"DBSCAN_EPS" envDefault:"0.1"`
	ClusterMinSamples int     `env:"DBSCAN_MIN_SAMPLES" envDefault:"50"`

	// MinObjectPoints is the smallest object cloud (after plane removal)
	// worth clustering at all.
	MinObjectPoints int `env:"MIN_OBJECT_POINTS" envDefault:"50"`

	// MinClusterSize is the smallest cluster worth classifying.
	MinClusterSize int `env:"MIN_CLUSTER_SIZE" envDefault:"50"`

	// RelationshipThreshold is the centroid distance (metres) within which
	// two objects are related.
	RelationshipThreshold float64 `env:"RELATIONSHIP_THRESHOLD" envDefault:"1.0"`
}

// DefaultConfig returns the parameter defaults tuned for indoor room scans.
func DefaultConfig() Config {
	return Config{
		OutlierNeighbors:        20,
		OutlierStdRatio:         2.0,
		VoxelSize:               0.05,
		NormalRadius:            0.1,
		NormalMaxNeighbors:      30,
		RANSACDistanceThreshold: 0.01,
		RANSACIterations:        1000,
		MaxPlanes:               5,
		ClusterEps:              0.1,
		ClusterMinSamples:       50,
		MinObjectPoints:         50,
		MinClusterSize:          50,
		RelationshipThreshold:   1.0,
	}
}

// ConfigFromEnv builds a config from environment variables, falling back to
// the defaults for unset ones.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "cannot parse pipeline config from environment")
	}
	return cfg, cfg.Validate()
}

// Validate rejects parameter values the pipeline cannot run with.
func (c Config) Validate() error {
	switch {
	case c.OutlierNeighbors < 1:
		return errors.New("outlier neighbor count must be at least 1")
	case c.OutlierStdRatio <= 0:
		return errors.New("outlier std ratio must be positive")
	case c.VoxelSize <= 0:
		return errors.New("voxel size must be positive")
	case c.RANSACDistanceThreshold <= 0:
		return errors.New("RANSAC distance threshold must be positive")
	case c.RANSACIterations < 1:
		return errors.New("RANSAC iteration count must be at least 1")
	case c.MaxPlanes < 0:
		return errors.New("max planes must be non-negative")
	case c.ClusterEps <= 0:
		return errors.New("clustering eps must be positive")
	case c.ClusterMinSamples < 1:
		return errors.New("clustering min samples must be at least 1")
	case c.RelationshipThreshold <= 0:
		return errors.New("relationship threshold must be positive")
	}
	return nil
}
