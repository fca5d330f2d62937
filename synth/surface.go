package synth

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stevecastle/recon3d/pointcloud"
)

// Variant selects a parametric surface.
type Variant int

const (
	// SphereModulated is a deterministic sphere whose radius ripples with 3θ.
	SphereModulated Variant = iota
	// DualCluster is a spherical-shell object over a box of background points.
	DualCluster
)

func (v Variant) String() string {
	switch v {
	case SphereModulated:
		return "sphere"
	case DualCluster:
		return "dual_cluster"
	default:
		return "unknown"
	}
}

// ParseVariant maps a variant name back to its value.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sphere", "sphere_modulated":
		return SphereModulated, nil
	case "dual_cluster", "scene":
		return DualCluster, nil
	default:
		return 0, fmt.Errorf("unknown surface variant %q", s)
	}
}

var (
	objectColor     = pointcloud.Color{R: 0.6, G: 0.4, B: 0.2}
	backgroundColor = pointcloud.Color{R: 0.8, G: 0.8, B: 0.9}
)

// ObjectCount is the number of foreground points in a DualCluster cloud of count points.
func ObjectCount(count int) int {
	if count <= 0 {
		return 0
	}
	return 2 * count / 3
}

// Surface builds exactly count points of the given variant.
func (g *Generator) Surface(count int, v Variant) *pointcloud.Cloud {
	switch v {
	case DualCluster:
		return g.dualCluster(count)
	default:
		return SphereSurface(count)
	}
}

// SphereSurface is the SphereModulated variant. It consumes no randomness.
func SphereSurface(count int) *pointcloud.Cloud {
	if count <= 0 {
		return pointcloud.New()
	}
	pc := pointcloud.NewWithCapacity(count)
	for i := 0; i < count; i++ {
		theta := 2 * math.Pi * float64(i) / float64(count)
		phi := math.Pi * float64(i%20) / 20
		r := 0.8 + 0.2*math.Sin(3*theta)
		pc.Append(spherical(r, theta, phi), pointcloud.Color{
			R: 0.8 + 0.2*math.Sin(theta),
			G: 0.8 + 0.2*math.Cos(phi),
			B: 0.8 + 0.2*math.Sin(theta+phi),
		}.Clamp())
	}
	return pc
}

func (g *Generator) dualCluster(count int) *pointcloud.Cloud {
	if count <= 0 {
		return pointcloud.New()
	}
	objects := ObjectCount(count)
	radius := distuv.Uniform{Min: 0.5, Max: 2.0, Src: g.src}
	azimuth := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: g.src}
	polar := distuv.Uniform{Min: 0, Max: math.Pi, Src: g.src}
	bx := distuv.Uniform{Min: -5, Max: 5, Src: g.src}
	by := distuv.Uniform{Min: -5, Max: 5, Src: g.src}
	bz := distuv.Uniform{Min: -2, Max: 5, Src: g.src}

	pc := pointcloud.NewWithCapacity(count)
	for i := 0; i < objects; i++ {
		r, theta, phi := radius.Rand(), azimuth.Rand(), polar.Rand()
		pc.Append(spherical(r, theta, phi), objectColor)
	}
	for i := objects; i < count; i++ {
		pc.Append(r3.Vector{X: bx.Rand(), Y: by.Rand(), Z: bz.Rand()}, backgroundColor)
	}
	return pc
}

// spherical converts radius, azimuth theta and polar angle phi to Cartesian.
func spherical(r, theta, phi float64) r3.Vector {
	return r3.Vector{
		X: r * math.Sin(phi) * math.Cos(theta),
		Y: r * math.Sin(phi) * math.Sin(theta),
		Z: r * math.Cos(phi),
	}
}
