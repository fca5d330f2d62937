// Package synth builds point clouds from closed-form rules when no usable
// reconstruction exists. All randomness comes from the injected source.
package synth

import (
	"math"
	"math/rand/v2"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stevecastle/recon3d/pointcloud"
)

// Generator draws synthetic points from a caller-owned random source.
// A Generator is not safe for concurrent use.
type Generator struct {
	src rand.Source
}

// NewGenerator returns a generator drawing from rng. A nil rng gets a
// randomly seeded PCG source.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{src: rng}
}

// Generate draws count points independently from a normal distribution
// centered on centroid with per-axis standard deviation spread. Colors are a
// function of position.
func (g *Generator) Generate(centroid, spread r3.Vector, count int) *pointcloud.Cloud {
	if count <= 0 {
		return pointcloud.New()
	}
	dx := distuv.Normal{Mu: centroid.X, Sigma: spread.X, Src: g.src}
	dy := distuv.Normal{Mu: centroid.Y, Sigma: spread.Y, Src: g.src}
	dz := distuv.Normal{Mu: centroid.Z, Sigma: spread.Z, Src: g.src}

	pc := pointcloud.NewWithCapacity(count)
	for i := 0; i < count; i++ {
		p := r3.Vector{X: dx.Rand(), Y: dy.Rand(), Z: dz.Rand()}
		pc.Append(p, positionColor(p))
	}
	return pc
}

func positionColor(p r3.Vector) pointcloud.Color {
	return pointcloud.Color{
		R: 0.5 + 0.5*math.Sin(p.X),
		G: 0.5 + 0.5*math.Cos(p.Y),
		B: 0.5 + 0.5*math.Sin(p.Z),
	}.Clamp()
}
