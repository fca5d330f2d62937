package synth

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevecastle/recon3d/pointcloud"
)

func seeded() *Generator {
	return NewGenerator(rand.New(rand.NewPCG(1, 2)))
}

func assertColorsInRange(t *testing.T, pc *pointcloud.Cloud) {
	t.Helper()
	for i, c := range pc.Colors {
		for _, ch := range []float64{c.R, c.G, c.B} {
			if ch < 0 || ch > 1 {
				t.Fatalf("color %d out of range: %+v", i, c)
			}
		}
	}
}

// TestGenerateDeterministic verifies a fixed seed reproduces the same cloud.
func TestGenerateDeterministic(t *testing.T) {
	centroid := r3.Vector{X: 1, Y: -2, Z: 3}
	spread := r3.Vector{X: 0.5, Y: 1, Z: 2}

	a := seeded().Generate(centroid, spread, 500)
	b := seeded().Generate(centroid, spread, 500)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different clouds:\n%s", diff)
	}

	c := NewGenerator(rand.New(rand.NewPCG(3, 4))).Generate(centroid, spread, 500)
	assert.NotEqual(t, a.Points[0], c.Points[0])
}

func TestGenerateStatistics(t *testing.T) {
	centroid := r3.Vector{X: 1, Y: -2, Z: 3}
	spread := r3.Vector{X: 0.5, Y: 1, Z: 2}
	pc := seeded().Generate(centroid, spread, 20000)

	require.Equal(t, 20000, pc.Len())
	require.NoError(t, pc.Validate())
	assertColorsInRange(t, pc)

	var sum r3.Vector
	for _, p := range pc.Points {
		sum = sum.Add(p)
	}
	mean := sum.Mul(1 / float64(pc.Len()))
	assert.InDelta(t, centroid.X, mean.X, 0.05)
	assert.InDelta(t, centroid.Y, mean.Y, 0.05)
	assert.InDelta(t, centroid.Z, mean.Z, 0.1)

	var sq r3.Vector
	for _, p := range pc.Points {
		d := p.Sub(mean)
		sq = sq.Add(r3.Vector{X: d.X * d.X, Y: d.Y * d.Y, Z: d.Z * d.Z})
	}
	assert.InDelta(t, spread.Z, math.Sqrt(sq.Z/float64(pc.Len())), 0.1)
}

func TestGenerateColorIsPositional(t *testing.T) {
	pc := seeded().Generate(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}, 10)
	for i, p := range pc.Points {
		want := pointcloud.Color{
			R: 0.5 + 0.5*math.Sin(p.X),
			G: 0.5 + 0.5*math.Cos(p.Y),
			B: 0.5 + 0.5*math.Sin(p.Z),
		}
		assert.InDelta(t, want.R, pc.Colors[i].R, 1e-12)
		assert.InDelta(t, want.G, pc.Colors[i].G, 1e-12)
		assert.InDelta(t, want.B, pc.Colors[i].B, 1e-12)
	}
}

func TestGenerateNonPositiveCount(t *testing.T) {
	assert.Equal(t, 0, seeded().Generate(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1}, 0).Len())
	assert.Equal(t, 0, seeded().Surface(-5, DualCluster).Len())
	assert.Equal(t, 0, SphereSurface(0).Len())
}

func TestSphereSurface(t *testing.T) {
	for _, count := range []int{1, 7, 20, 15000} {
		pc := SphereSurface(count)
		require.Equal(t, count, pc.Len())
		require.NoError(t, pc.Validate())
		assertColorsInRange(t, pc)
		for i, p := range pc.Points {
			theta := 2 * math.Pi * float64(i) / float64(count)
			r := 0.8 + 0.2*math.Sin(3*theta)
			assert.InDelta(t, r, p.Norm(), 1e-9)
		}
	}

	// Deterministic with no randomness involved.
	if diff := cmp.Diff(SphereSurface(300), seeded().Surface(300, SphereModulated)); diff != "" {
		t.Errorf("sphere surface not deterministic:\n%s", diff)
	}
}

func TestSphereSurfaceColorRange(t *testing.T) {
	for _, c := range SphereSurface(1000).Colors {
		assert.GreaterOrEqual(t, c.R, 0.6-1e-12)
		assert.LessOrEqual(t, c.R, 1.0)
		assert.GreaterOrEqual(t, c.G, 0.6-1e-12)
		assert.GreaterOrEqual(t, c.B, 0.6-1e-12)
	}
}

func TestDualCluster(t *testing.T) {
	for _, count := range []int{1, 2, 3, 10, 15000} {
		pc := seeded().Surface(count, DualCluster)
		require.Equal(t, count, pc.Len())
		assertColorsInRange(t, pc)

		objects := 0
		for i, c := range pc.Colors {
			if c == objectColor {
				objects++
				n := pc.Points[i].Norm()
				assert.GreaterOrEqual(t, n, 0.5-1e-9)
				assert.LessOrEqual(t, n, 2.0+1e-9)
				continue
			}
			assert.Equal(t, backgroundColor, c)
			p := pc.Points[i]
			assert.True(t, p.X >= -5 && p.X <= 5 && p.Y >= -5 && p.Y <= 5 && p.Z >= -2 && p.Z <= 5, "background point %v outside box", p)
		}
		assert.Equal(t, int(math.Floor(2*float64(count)/3)), objects, "count %d", count)
	}
	assert.Equal(t, 10000, ObjectCount(15000))
}

func TestDualClusterDeterministic(t *testing.T) {
	if diff := cmp.Diff(seeded().Surface(900, DualCluster), seeded().Surface(900, DualCluster)); diff != "" {
		t.Errorf("dual cluster differs for equal seeds:\n%s", diff)
	}
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("Sphere")
	require.NoError(t, err)
	assert.Equal(t, SphereModulated, v)

	v, err = ParseVariant("dual_cluster")
	require.NoError(t, err)
	assert.Equal(t, DualCluster, v)
	assert.Equal(t, "dual_cluster", v.String())

	_, err = ParseVariant("torus")
	assert.Error(t, err)
}
