// Package segmentation implements the geometric segmentation stages of the
// room pipeline: RANSAC plane extraction, density-based object clustering,
// heuristic object classification, and spatial relationship analysis.
package segmentation

import (
	"math"

	"github.com/golang/geo/r3"
)

// Plane defines a planar surface detected in a point cloud. The equation is
// [0]x + [1]y + [2]z + [3] = 0; the normal (first three coefficients) is not
// guaranteed to be unit length, normalize before angle or distance math.
type Plane struct {
	equation [4]float64
	inliers  []int
}

// NewPlane creates a plane from its equation and the indices of the points
// supporting it.
func NewPlane(equation [4]float64, inliers []int) *Plane {
	return &Plane{equation: equation, inliers: inliers}
}

// Equation returns the plane equation coefficients.
func (p *Plane) Equation() [4]float64 {
	return p.equation
}

// Normal returns the plane normal vector (not necessarily unit length).
func (p *Plane) Normal() r3.Vector {
	return r3.Vector{X: p.equation[0], Y: p.equation[1], Z: p.equation[2]}
}

// Inliers returns the indices of the supporting points, in the index space of
// the cloud the plane was detected in.
func (p *Plane) Inliers() []int {
	return p.inliers
}

// Distance calculates the signed distance from the plane to the input point.
func (p *Plane) Distance(pt r3.Vector) float64 {
	norm := p.Normal().Norm()
	if norm == 0 {
		return 0
	}
	return (p.equation[0]*pt.X + p.equation[1]*pt.Y + p.equation[2]*pt.Z + p.equation[3]) / norm
}

func planeDistance(equation [4]float64, pt r3.Vector, norm float64) float64 {
	return (equation[0]*pt.X + equation[1]*pt.Y + equation[2]*pt.Z + equation[3]) / norm
}

// IsHorizontal reports whether the plane's unit normal is within the given
// absolute dot product of the vertical axis.
func (p *Plane) IsHorizontal(minDot float64) bool {
	n := p.Normal()
	norm := n.Norm()
	if norm == 0 {
		return false
	}
	return math.Abs(n.Z/norm) > minDot
}
