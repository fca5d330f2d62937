// Package projection lifts depth maps into colored camera-space point clouds
// using a pinhole camera model.
package projection

import (
	"image"

	"github.com/pkg/errors"

	"github.com/stevecastle/recon3d/pointcloud"
)

// DepthMap is a row-major grid of non-negative depth values.
type DepthMap struct {
	Width  int
	Height int
	Data   []float64
}

// NewDepthMap allocates a zeroed depth map.
func NewDepthMap(width, height int) DepthMap {
	return DepthMap{Width: width, Height: height, Data: make([]float64, width*height)}
}

// At returns the depth at pixel (x, y).
func (dm DepthMap) At(x, y int) float64 {
	return dm.Data[y*dm.Width+x]
}

// Set stores the depth at pixel (x, y).
func (dm DepthMap) Set(x, y int, v float64) {
	dm.Data[y*dm.Width+x] = v
}

// Bounds returns the depth map rectangle anchored at the origin.
func (dm DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.Width, dm.Height)
}

func (dm DepthMap) check() error {
	if dm.Width <= 0 || dm.Height <= 0 || len(dm.Data) != dm.Width*dm.Height {
		return errors.Errorf("malformed depth map %dx%d with %d values", dm.Width, dm.Height, len(dm.Data))
	}
	return nil
}

// ColorImage is a row-major grid of RGB samples with channels in [0,1],
// stored as consecutive R, G, B values.
type ColorImage struct {
	Width  int
	Height int
	Pix    []float64
}

// NewColorImage allocates a black image.
func NewColorImage(width, height int) ColorImage {
	return ColorImage{Width: width, Height: height, Pix: make([]float64, 3*width*height)}
}

// ColorImageFromImage converts a decoded image, normalizing 8-bit channels to [0,1].
func ColorImageFromImage(img image.Image) ColorImage {
	b := img.Bounds()
	out := NewColorImage(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Set(x, y, pointcloud.NewColor255(uint8(r>>8), uint8(g>>8), uint8(bl>>8)))
		}
	}
	return out
}

// At returns the color at pixel (x, y).
func (ci ColorImage) At(x, y int) pointcloud.Color {
	o := 3 * (y*ci.Width + x)
	return pointcloud.Color{R: ci.Pix[o], G: ci.Pix[o+1], B: ci.Pix[o+2]}
}

// Set stores the color at pixel (x, y).
func (ci ColorImage) Set(x, y int, c pointcloud.Color) {
	o := 3 * (y*ci.Width + x)
	ci.Pix[o], ci.Pix[o+1], ci.Pix[o+2] = c.R, c.G, c.B
}

// Bounds returns the image rectangle anchored at the origin.
func (ci ColorImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, ci.Width, ci.Height)
}

// ToNRGBA renders the image back to 8 bits per channel.
func (ci ColorImage) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(ci.Bounds())
	for y := 0; y < ci.Height; y++ {
		for x := 0; x < ci.Width; x++ {
			r, g, b := ci.At(x, y).RGB255()
			o := out.PixOffset(x, y)
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = r, g, b, 255
		}
	}
	return out
}

func (ci ColorImage) check() error {
	if ci.Width <= 0 || ci.Height <= 0 || len(ci.Pix) != 3*ci.Width*ci.Height {
		return errors.Errorf("malformed color image %dx%d with %d samples", ci.Width, ci.Height, len(ci.Pix))
	}
	return nil
}

// LuminanceDepth derives a depth surrogate from image brightness, in [0,1].
// It stands in for a depth model when none is loaded.
func LuminanceDepth(ci ColorImage) DepthMap {
	dm := NewDepthMap(ci.Width, ci.Height)
	for y := 0; y < ci.Height; y++ {
		for x := 0; x < ci.Width; x++ {
			c := ci.At(x, y).Clamp()
			dm.Set(x, y, 0.299*c.R+0.587*c.G+0.114*c.B)
		}
	}
	return dm
}
