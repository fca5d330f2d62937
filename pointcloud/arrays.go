package pointcloud

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/golang/geo/r3"
)

// Arrays is the JSON layout for cached clouds: two N×3 arrays.
type Arrays struct {
	Points [][3]float64 `json:"points"`
	Colors [][3]float64 `json:"colors"`
}

// ToArrays converts a cloud to its N×3 array form.
func ToArrays(c *Cloud) Arrays {
	a := Arrays{
		Points: make([][3]float64, c.Len()),
		Colors: make([][3]float64, c.Len()),
	}
	for i := range a.Points {
		p, col := c.Points[i], c.Colors[i]
		a.Points[i] = [3]float64{p.X, p.Y, p.Z}
		a.Colors[i] = [3]float64{col.R, col.G, col.B}
	}
	return a
}

// Cloud converts the arrays into a cloud. Colors stored on a 0-255 scale
// are detected and normalized.
func (a Arrays) Cloud() (*Cloud, error) {
	if len(a.Points) != len(a.Colors) {
		return nil, fmt.Errorf("%w: %d points, %d colors", ErrLengthMismatch, len(a.Points), len(a.Colors))
	}
	scale := 1.0
	for _, col := range a.Colors {
		if col[0] > 1 || col[1] > 1 || col[2] > 1 {
			scale = 255
			break
		}
	}
	c := NewWithCapacity(len(a.Points))
	for i, p := range a.Points {
		col := a.Colors[i]
		c.Append(
			r3.Vector{X: p[0], Y: p[1], Z: p[2]},
			Color{R: col[0] / scale, G: col[1] / scale, B: col[2] / scale},
		)
	}
	return c, nil
}

// ReadArraysJSON decodes a cloud from the JSON arrays layout.
func ReadArraysJSON(r io.Reader) (*Cloud, error) {
	var a Arrays
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding point arrays: %w", err)
	}
	return a.Cloud()
}

// WriteArraysJSON encodes a cloud in the JSON arrays layout.
func WriteArraysJSON(c *Cloud, w io.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(ToArrays(c))
}
