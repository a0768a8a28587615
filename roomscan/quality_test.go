package roomscan

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	pc "github.com/Unknown5436/3d-room-intelligence-system/pointcloud"
)

func denseCubeCloud(n int, spacing float64) *pc.Cloud {
	cloud := pc.NewWithPrealloc(n * n * n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				cloud.Append(r3.Vector{
					X: float64(i) * spacing,
					Y: float64(j) * spacing,
					Z: float64(k) * spacing,
				})
			}
		}
	}
	return cloud
}

func TestAssessQualityEmpty(t *testing.T) {
	report := AssessQuality(pc.New())
	test.That(t, report.Score, test.ShouldEqual, 0)
	test.That(t, report.Rating, test.ShouldEqual, QualityPoor)
	test.That(t, report.PointCount, test.ShouldEqual, 0)
}

func TestAssessQualitySparse(t *testing.T) {
	// a handful of spread-out points scores nothing on count or density
	cloud := pc.New()
	for i := 0; i < 10; i++ {
		cloud.Append(r3.Vector{X: float64(i), Y: float64(i), Z: float64(i % 3)})
	}
	report := AssessQuality(cloud)
	test.That(t, report.Score, test.ShouldEqual, 0)
	test.That(t, report.Rating, test.ShouldEqual, QualityPoor)
	test.That(t, report.PointCount, test.ShouldEqual, 10)
	test.That(t, report.Volume, test.ShouldBeGreaterThan, 0)
}

func TestAssessQualityAttributes(t *testing.T) {
	// 21^3 = 9261 points in a 0.2m cube: density well above the top tier
	cloud := denseCubeCloud(21, 0.01)
	report := AssessQuality(cloud)
	test.That(t, report.Score, test.ShouldAlmostEqual, 0.3)
	test.That(t, report.Rating, test.ShouldEqual, QualityPoor)
	test.That(t, report.PointDensity, test.ShouldBeGreaterThan, 50000)

	err := cloud.SetNormals(make([]r3.Vector, cloud.Size()))
	test.That(t, err, test.ShouldBeNil)
	report = AssessQuality(cloud)
	test.That(t, report.Score, test.ShouldAlmostEqual, 0.45)
	test.That(t, report.HasNormals, test.ShouldBeTrue)
	test.That(t, report.Rating, test.ShouldEqual, QualityAcceptable)

	cloud.AppendColored(r3.Vector{X: 0.05, Y: 0.05, Z: 0.05}, color.NRGBA{R: 1, A: 255})
	report = AssessQuality(cloud)
	test.That(t, report.Score, test.ShouldAlmostEqual, 0.6)
	test.That(t, report.HasColors, test.ShouldBeTrue)
	test.That(t, report.Rating, test.ShouldEqual, QualityAcceptable)
}

func TestAssessQualityScoreBounds(t *testing.T) {
	// score stays within [0, 1] even with every criterion maxed
	cloud := denseCubeCloud(25, 0.01)
	err := cloud.SetNormals(make([]r3.Vector, cloud.Size()))
	test.That(t, err, test.ShouldBeNil)
	report := AssessQuality(cloud)
	test.That(t, report.Score, test.ShouldBeLessThanOrEqualTo, 1)
	test.That(t, report.Score, test.ShouldBeGreaterThanOrEqualTo, 0)
}
