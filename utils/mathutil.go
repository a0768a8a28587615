// Package utils contains small math and sampling helpers shared by the
// geometry packages.
package utils

import (
	"math/rand"
)

// SampleRandomIntRange samples a random integer within a range given by
// [min, max] using the given rand.Rand.
func SampleRandomIntRange(min, max int, r *rand.Rand) int {
	return r.Intn(max-min+1) + min
}

// Clamp returns x clamped to [min, max].
func Clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

// MaxInt returns the larger of a and b.
func MaxInt(a, b int) int {
	if a < b {
		return b
	}
	return a
}

// MinInt returns the smaller of a and b.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Square is faster than math.Pow(x, 2).
func Square(n float64) float64 {
	return n * n
}
