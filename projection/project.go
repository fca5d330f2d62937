package projection

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/stevecastle/recon3d/pointcloud"
)

var (
	// ErrShapeMismatch is returned when a depth map and its color image differ in size.
	ErrShapeMismatch = errors.New("depth map and color image dimensions differ")
	// ErrInvalidOptions is returned for a non-positive depth scale or stride.
	ErrInvalidOptions = errors.New("invalid projection options")
)

// Options control how depth values become points.
type Options struct {
	// DepthScale multiplies raw depth values.
	DepthScale float64 `json:"depthScale" mapstructure:"depthScale"`
	// MinDepth rejects pixels whose scaled depth is at or below it.
	MinDepth float64 `json:"minDepth" mapstructure:"minDepth"`
	// Stride samples every Stride-th pixel along both axes.
	Stride int `json:"stride" mapstructure:"stride"`
}

// DefaultOptions returns the standard sampling used for uploaded images.
func DefaultOptions() Options {
	return Options{
		DepthScale: 5.0,
		MinDepth:   0.1,
		Stride:     4,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.DepthScale <= 0 {
		return errors.Wrapf(ErrInvalidOptions, "depth scale %v", o.DepthScale)
	}
	if o.Stride <= 0 {
		return errors.Wrapf(ErrInvalidOptions, "stride %d", o.Stride)
	}
	// Points must stay in front of the camera.
	if o.MinDepth < 0 {
		return errors.Wrapf(ErrInvalidOptions, "min depth %v", o.MinDepth)
	}
	return nil
}

// MaxPoints is the upper bound on points emitted for a width×height input.
func (o Options) MaxPoints(width, height int) int {
	if o.Stride <= 0 {
		return 0
	}
	return ceilDiv(width, o.Stride) * ceilDiv(height, o.Stride)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Project back-projects the stride-sampled pixels of dm into camera space,
// coloring each point from ci. Pixels at or below MinDepth after scaling are
// dropped. The depth map and image must have identical dimensions.
func Project(dm DepthMap, ci ColorImage, intr Intrinsics, opts Options) (*pointcloud.Cloud, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := intr.CheckValid(); err != nil {
		return nil, err
	}
	if err := dm.check(); err != nil {
		return nil, err
	}
	if err := ci.check(); err != nil {
		return nil, err
	}
	if dm.Bounds() != ci.Bounds() {
		return nil, errors.Wrapf(ErrShapeMismatch, "Depth(%d,%d) != Color(%d,%d)",
			dm.Width, dm.Height, ci.Width, ci.Height)
	}

	pc := pointcloud.NewWithCapacity(opts.MaxPoints(dm.Width, dm.Height))
	for y := 0; y < dm.Height; y += opts.Stride {
		for x := 0; x < dm.Width; x += opts.Stride {
			z := dm.At(x, y) * opts.DepthScale
			// Also drops NaN.
			if !(z > opts.MinDepth) || math.IsInf(z, 0) {
				continue
			}
			px, py, pz := intr.PixelToPoint(float64(x), float64(y), z)
			pc.Append(r3.Vector{X: px, Y: py, Z: pz}, ci.At(x, y).Clamp())
		}
	}
	return pc, nil
}
