// Package pointcloud holds the colored point cloud type shared by every
// reconstruction path, plus its wire and file encodings.
package pointcloud

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
)

// ErrLengthMismatch is returned when a cloud's point and color sequences
// are not index aligned.
var ErrLengthMismatch = errors.New("point and color counts differ")

// Color is an RGB sample with channels in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// NewColor255 builds a Color from 8-bit channel values.
func NewColor255(r, g, b uint8) Color {
	return Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// Clamp returns the color with every channel limited to [0,1].
func (c Color) Clamp() Color {
	return Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}

// RGB255 returns the color quantized to 8 bits per channel.
func (c Color) RGB255() (uint8, uint8, uint8) {
	c = c.Clamp()
	return uint8(c.R*255 + 0.5), uint8(c.G*255 + 0.5), uint8(c.B*255 + 0.5)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Cloud is an ordered set of camera-space points with one color per point.
// Points[i] and Colors[i] always describe the same sample.
type Cloud struct {
	Points []r3.Vector
	Colors []Color
}

// New returns an empty cloud.
func New() *Cloud {
	return &Cloud{}
}

// NewWithCapacity returns an empty cloud with room for n points.
func NewWithCapacity(n int) *Cloud {
	if n < 0 {
		n = 0
	}
	return &Cloud{
		Points: make([]r3.Vector, 0, n),
		Colors: make([]Color, 0, n),
	}
}

// Len returns the number of points.
func (c *Cloud) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Points)
}

// Append adds one point and its color.
func (c *Cloud) Append(p r3.Vector, col Color) {
	c.Points = append(c.Points, p)
	c.Colors = append(c.Colors, col)
}

// Concat appends every sample of other to c.
func (c *Cloud) Concat(other *Cloud) {
	if other == nil {
		return
	}
	c.Points = append(c.Points, other.Points...)
	c.Colors = append(c.Colors, other.Colors...)
}

// Validate checks that points and colors are index aligned.
func (c *Cloud) Validate() error {
	if c == nil {
		return nil
	}
	if len(c.Points) != len(c.Colors) {
		return fmt.Errorf("%w: %d points, %d colors", ErrLengthMismatch, len(c.Points), len(c.Colors))
	}
	return nil
}

// Clone returns a deep copy.
func (c *Cloud) Clone() *Cloud {
	if c == nil {
		return New()
	}
	out := &Cloud{
		Points: make([]r3.Vector, len(c.Points)),
		Colors: make([]Color, len(c.Colors)),
	}
	copy(out.Points, c.Points)
	copy(out.Colors, c.Colors)
	return out
}

// ClampColors returns a copy of the cloud with all colors clamped into [0,1].
func (c *Cloud) ClampColors() *Cloud {
	out := c.Clone()
	for i := range out.Colors {
		out.Colors[i] = out.Colors[i].Clamp()
	}
	return out
}
