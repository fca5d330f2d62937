package quality

import (
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevecastle/recon3d/pointcloud"
	"github.com/stevecastle/recon3d/synth"
)

func TestAssessAcceptsDenseCloud(t *testing.T) {
	pc := pointcloud.NewWithCapacity(150)
	for i := 0; i < 150; i++ {
		pc.Append(r3.Vector{X: float64(i)}, pointcloud.Color{R: 1.5, G: -0.2, B: 0.3})
	}

	v := Assess(pc, DefaultMinPoints)
	require.True(t, v.Accepted)
	require.Equal(t, 150, v.Cloud.Len())
	assert.Equal(t, pc.Points, v.Cloud.Points)
	for _, c := range v.Cloud.Colors {
		assert.Equal(t, pointcloud.Color{R: 1, G: 0, B: 0.3}, c)
	}
}

func TestAssessBoundary(t *testing.T) {
	pc := pointcloud.New()
	for i := 0; i < DefaultMinPoints-1; i++ {
		pc.Append(r3.Vector{X: float64(i)}, pointcloud.Color{})
	}
	assert.False(t, Assess(pc, DefaultMinPoints).Accepted)

	pc.Append(r3.Vector{}, pointcloud.Color{})
	assert.True(t, Assess(pc, DefaultMinPoints).Accepted)
}

func TestAssessRejectsTwoPoints(t *testing.T) {
	pc := pointcloud.New()
	pc.Append(r3.Vector{X: 0, Y: 0, Z: 0}, pointcloud.Color{})
	pc.Append(r3.Vector{X: 2, Y: 2, Z: 2}, pointcloud.Color{})

	v := Assess(pc, DefaultMinPoints)
	require.False(t, v.Accepted)
	assert.Nil(t, v.Cloud)
	assert.Equal(t, 2, v.Stats.Count)
	assert.Equal(t, r3.Vector{X: 1, Y: 1, Z: 1}, v.Stats.Centroid)
	// Population std of {0,2} is 1.
	assert.InDelta(t, 1.0, v.Stats.Spread.X, 1e-12)
	assert.InDelta(t, 1.0, v.Stats.Spread.Y, 1e-12)
	assert.InDelta(t, 1.0, v.Stats.Spread.Z, 1e-12)
}

func TestDescribeFloorsSpread(t *testing.T) {
	pc := pointcloud.New()
	pc.Append(r3.Vector{X: 1, Y: 5, Z: 0}, pointcloud.Color{})
	pc.Append(r3.Vector{X: 1.2, Y: -5, Z: 0}, pointcloud.Color{})

	s := Describe(pc)
	assert.Equal(t, MinSpread, s.Spread.X)
	assert.InDelta(t, 5.0, s.Spread.Y, 1e-12)
	assert.Equal(t, MinSpread, s.Spread.Z)
}

func TestDescribeDegenerate(t *testing.T) {
	for _, pc := range []*pointcloud.Cloud{nil, pointcloud.New()} {
		s := Describe(pc)
		assert.Equal(t, r3.Vector{}, s.Centroid)
		assert.Equal(t, r3.Vector{X: 1, Y: 1, Z: 1}, s.Spread)
	}

	one := pointcloud.New()
	one.Append(r3.Vector{X: 9, Y: 9, Z: 9}, pointcloud.Color{})
	s := Describe(one)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, r3.Vector{}, s.Centroid)
	assert.Equal(t, r3.Vector{X: 1, Y: 1, Z: 1}, s.Spread)
}

// TestRejectedCloudSeedsGenerator walks the cached fallback path: a two point
// cloud is rejected and its statistics seed 5000 synthetic points.
func TestRejectedCloudSeedsGenerator(t *testing.T) {
	pc := pointcloud.New()
	pc.Append(r3.Vector{X: 0, Y: 0, Z: 0}, pointcloud.Color{})
	pc.Append(r3.Vector{X: 2, Y: 2, Z: 2}, pointcloud.Color{})

	v := Assess(pc, DefaultMinPoints)
	require.False(t, v.Accepted)

	gen := synth.NewGenerator(rand.New(rand.NewPCG(7, 11)))
	out := gen.Generate(v.Stats.Centroid, v.Stats.Spread, 5000)
	require.Equal(t, 5000, out.Len())

	got := Describe(out).Centroid
	assert.InDelta(t, 1.0, got.X, 0.1)
	assert.InDelta(t, 1.0, got.Y, 0.1)
	assert.InDelta(t, 1.0, got.Z, 0.1)
}
