// Package main provides the roomscan command, which reconstructs room
// geometry and furniture from 3D scan files and emits JSON result records.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Unknown5436/3d-room-intelligence-system/logging"
	"github.com/Unknown5436/3d-room-intelligence-system/roomscan"
)

func main() {
	app := &cli.App{
		Name:      "roomscan",
		Usage:     "reconstruct room dimensions, furniture and spatial layout from 3D scans",
		ArgsUsage: "SCAN_FILE [SCAN_FILE...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "from-env",
				Usage: "read pipeline parameters from environment variables",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "directory to write per-scan result JSON files to (default: stdout)",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   1,
				Usage:   "number of scans to process in parallel",
			},
			&cli.Float64Flag{
				Name:  "voxel-size",
				Usage: "downsampling voxel size in metres",
			},
			&cli.IntFlag{
				Name:  "max-planes",
				Usage: "maximum number of planes to extract",
			},
			&cli.Float64Flag{
				Name:  "cluster-eps",
				Usage: "base DBSCAN neighbourhood radius in metres",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one scan file is required")
	}

	var logger logging.Logger
	if c.Bool("debug") {
		logger = logging.NewDebugLogger("roomscan")
	} else {
		logger = logging.NewLogger("roomscan")
	}

	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	pipeline := roomscan.NewPipeline(cfg, logger)

	outDir := c.String("output")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return errors.Wrap(err, "cannot create output directory")
		}
	}

	var stdoutMu sync.Mutex
	var group errgroup.Group
	group.SetLimit(c.Int("jobs"))
	for _, scanFile := range c.Args().Slice() {
		scanFile := scanFile
		group.Go(func() error {
			result, err := pipeline.Process(scanFile)
			if err != nil {
				return errors.Wrapf(err, "cannot process %q", scanFile)
			}
			data, err := result.MarshalIndentJSON()
			if err != nil {
				return err
			}
			if outDir == "" {
				stdoutMu.Lock()
				defer stdoutMu.Unlock()
				_, err := fmt.Printf("%s\n", data)
				return err
			}
			outPath := filepath.Join(outDir, resultFileName(scanFile))
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return errors.Wrapf(err, "cannot write result for %q", scanFile)
			}
			logger.Infof("wrote %s", outPath)
			return nil
		})
	}
	return group.Wait()
}

func buildConfig(c *cli.Context) (roomscan.Config, error) {
	cfg := roomscan.DefaultConfig()
	if c.Bool("from-env") {
		var err error
		if cfg, err = roomscan.ConfigFromEnv(); err != nil {
			return roomscan.Config{}, err
		}
	}
	if c.IsSet("voxel-size") {
		cfg.VoxelSize = c.Float64("voxel-size")
	}
	if c.IsSet("max-planes") {
		cfg.MaxPlanes = c.Int("max-planes")
	}
	if c.IsSet("cluster-eps") {
		cfg.ClusterEps = c.Float64("cluster-eps")
	}
	return cfg, cfg.Validate()
}

func resultFileName(scanFile string) string {
	base := filepath.Base(scanFile)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".json"
}
