// Package quality decides whether a stored point cloud is dense enough to be
// served or must be replaced by synthetic geometry.
package quality

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"

	"github.com/stevecastle/recon3d/pointcloud"
)

const (
	// DefaultMinPoints is the smallest cloud served without substitution.
	DefaultMinPoints = 100
	// MinSpread floors each axis of a rejected cloud's spread so synthesis
	// never collapses onto a plane or a point.
	MinSpread = 0.5
)

// Stats summarize a rejected cloud for the synthetic generator.
type Stats struct {
	Count    int
	Centroid r3.Vector
	Spread   r3.Vector
}

// Verdict is the outcome of Assess. Cloud is set only when Accepted.
type Verdict struct {
	Accepted bool
	Cloud    *pointcloud.Cloud
	Stats    Stats
}

// Assess accepts clouds with at least minAcceptable points and rejects the
// rest with their centroid and per-axis spread.
func Assess(c *pointcloud.Cloud, minAcceptable int) Verdict {
	if c.Len() >= minAcceptable {
		return Verdict{Accepted: true, Cloud: c.ClampColors(), Stats: Stats{Count: c.Len()}}
	}
	return Verdict{Stats: Describe(c)}
}

// Describe computes the centroid and population standard deviation per axis.
// Fewer than two points give the origin with unit spread.
func Describe(c *pointcloud.Cloud) Stats {
	n := c.Len()
	if n < 2 {
		return Stats{Count: n, Spread: r3.Vector{X: 1, Y: 1, Z: 1}}
	}
	xs := make(stats.Float64Data, n)
	ys := make(stats.Float64Data, n)
	zs := make(stats.Float64Data, n)
	for i, p := range c.Points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	return Stats{
		Count:    n,
		Centroid: r3.Vector{X: mean(xs), Y: mean(ys), Z: mean(zs)},
		Spread:   r3.Vector{X: spread(xs), Y: spread(ys), Z: spread(zs)},
	}
}

func mean(d stats.Float64Data) float64 {
	m, err := stats.Mean(d)
	if err != nil {
		return 0
	}
	return m
}

func spread(d stats.Float64Data) float64 {
	sd, err := stats.StandardDeviationPopulation(d)
	if err != nil || math.IsNaN(sd) {
		return MinSpread
	}
	return math.Max(sd, MinSpread)
}
