// Package depth estimates per-pixel depth for an RGB image.
package depth

import (
	"context"
	"errors"

	"github.com/stevecastle/recon3d/projection"
)

// ErrCGORequired is returned when the ONNX estimator is requested from a
// binary built without CGO.
var ErrCGORequired = errors.New("onnx depth estimation requires CGO support; rebuild with CGO_ENABLED=1")

// Estimator turns a color image into a depth map of the same size.
type Estimator interface {
	Estimate(ctx context.Context, img projection.ColorImage) (projection.DepthMap, error)
	Name() string
}

// Luminance uses image brightness as a depth surrogate.
type Luminance struct{}

func (Luminance) Name() string { return "luminance" }

func (Luminance) Estimate(ctx context.Context, img projection.ColorImage) (projection.DepthMap, error) {
	if err := ctx.Err(); err != nil {
		return projection.DepthMap{}, err
	}
	return projection.LuminanceDepth(img), nil
}

// Options configures the ONNX estimator.
type Options struct {
	// Path to the onnxruntime shared library (.dll/.so/.dylib). If empty, the
	// environment variable ONNXRUNTIME_SHARED_LIBRARY_PATH will be respected.
	ORTSharedLibraryPath string

	InputName  string
	OutputName string

	InputWidth  int
	InputHeight int

	// NormalizeOutput rescales the raw model output to [0,1] per image.
	NormalizeOutput bool
}

// DefaultOptions matches a MiDaS small export with 384x384 input.
func DefaultOptions() Options {
	return Options{
		InputName:       "input",
		OutputName:      "output",
		InputWidth:      384,
		InputHeight:     384,
		NormalizeOutput: true,
	}
}

// normalize min-max scales v in place. A constant map becomes all zeros.
func normalize(v []float64) {
	if len(v) == 0 {
		return
	}
	lo, hi := v[0], v[0]
	for _, x := range v {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	span := hi - lo
	for i := range v {
		if span == 0 {
			v[i] = 0
			continue
		}
		v[i] = (v[i] - lo) / span
	}
}

// chwTensor lays out img as a planar float32 RGB buffer scaled to [0,1].
func chwTensor(img projection.ColorImage) []float32 {
	plane := img.Width * img.Height
	data := make([]float32, 3*plane)
	for i := 0; i < plane; i++ {
		data[i] = float32(img.Pix[i*3])
		data[plane+i] = float32(img.Pix[i*3+1])
		data[2*plane+i] = float32(img.Pix[i*3+2])
	}
	return data
}
