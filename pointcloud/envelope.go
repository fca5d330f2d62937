package pointcloud

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Envelope is the per-model wire representation consumed by viewers.
// PointCloud and Colors are row-major triples of equal length.
type Envelope struct {
	PointCloud []float64 `json:"pointCloud"`
	NumPoints  int       `json:"numPoints"`
	Colors     []float64 `json:"colors"`
}

// Flatten writes the cloud as x0,y0,z0,x1,... and r0,g0,b0,r1,...
func Flatten(c *Cloud) (points, colors []float64) {
	n := c.Len()
	points = make([]float64, 0, 3*n)
	colors = make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		p := c.Points[i]
		points = append(points, p.X, p.Y, p.Z)
		col := c.Colors[i]
		colors = append(colors, col.R, col.G, col.B)
	}
	return points, colors
}

// Aggregate flattens the cloud into its wire envelope.
func Aggregate(c *Cloud) Envelope {
	points, colors := Flatten(c)
	return Envelope{
		PointCloud: points,
		NumPoints:  c.Len(),
		Colors:     colors,
	}
}

// Unflatten rebuilds a cloud from flat point and color buffers.
func Unflatten(points, colors []float64) (*Cloud, error) {
	if len(points)%3 != 0 {
		return nil, fmt.Errorf("point buffer length %d is not a multiple of 3", len(points))
	}
	if len(colors) != len(points) {
		return nil, fmt.Errorf("%w: %d point scalars, %d color scalars", ErrLengthMismatch, len(points), len(colors))
	}
	n := len(points) / 3
	c := NewWithCapacity(n)
	for k := 0; k < n; k++ {
		o := 3 * k
		c.Append(
			r3.Vector{X: points[o], Y: points[o+1], Z: points[o+2]},
			Color{R: colors[o], G: colors[o+1], B: colors[o+2]},
		)
	}
	return c, nil
}

// Cloud decodes the envelope back into a cloud.
func (e Envelope) Cloud() (*Cloud, error) {
	c, err := Unflatten(e.PointCloud, e.Colors)
	if err != nil {
		return nil, err
	}
	if c.Len() != e.NumPoints {
		return nil, fmt.Errorf("envelope declares %d points but carries %d", e.NumPoints, c.Len())
	}
	return c, nil
}
