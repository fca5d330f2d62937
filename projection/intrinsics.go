package projection

import (
	"fmt"

	"github.com/pkg/errors"
)

// DefaultFocalFactor relates the synthetic focal length to image width.
const DefaultFocalFactor = 0.7

// ErrInvalidIntrinsics is returned for unusable camera parameters.
var ErrInvalidIntrinsics = errors.New("invalid camera intrinsics")

// Intrinsics are pinhole camera parameters in pixels.
type Intrinsics struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// IntrinsicsForSize derives intrinsics for an uncalibrated camera: square
// pixels with focal length focalFactor*width and the principal point at the
// image center.
func IntrinsicsForSize(width, height int, focalFactor float64) Intrinsics {
	f := focalFactor * float64(width)
	return Intrinsics{
		Width:  width,
		Height: height,
		Fx:     f,
		Fy:     f,
		Ppx:    float64(width) / 2,
		Ppy:    float64(height) / 2,
	}
}

// CheckValid reports whether the parameters can be used for back-projection.
func (in Intrinsics) CheckValid() error {
	if in.Width <= 0 || in.Height <= 0 {
		return errors.Wrap(ErrInvalidIntrinsics, fmt.Sprintf("size (%d, %d)", in.Width, in.Height))
	}
	if in.Fx <= 0 {
		return errors.Wrap(ErrInvalidIntrinsics, fmt.Sprintf("focal length Fx = %v", in.Fx))
	}
	if in.Fy <= 0 {
		return errors.Wrap(ErrInvalidIntrinsics, fmt.Sprintf("focal length Fy = %v", in.Fy))
	}
	return nil
}

// PixelToPoint back-projects pixel (x, y) at depth z into camera space.
func (in Intrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	return (x - in.Ppx) * z / in.Fx, (y - in.Ppy) * z / in.Fy, z
}

// PointToPixel projects a camera-space point onto the image plane.
// Points at zero depth map to (-1, -1).
func (in Intrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z == 0 {
		return -1, -1
	}
	return x/z*in.Fx + in.Ppx, y/z*in.Fy + in.Ppy
}
