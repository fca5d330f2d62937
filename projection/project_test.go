package projection

import (
	"encoding/json"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevecastle/recon3d/pointcloud"
)

func uniformDepth(w, h int, v float64) DepthMap {
	dm := NewDepthMap(w, h)
	for i := range dm.Data {
		dm.Data[i] = v
	}
	return dm
}

func uniformColor(w, h int, c pointcloud.Color) ColorImage {
	ci := NewColorImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ci.Set(x, y, c)
		}
	}
	return ci
}

// TestProjectFlatGrayScene feeds a 384x384 unit depth map with a mid-gray
// image through the default options.
func TestProjectFlatGrayScene(t *testing.T) {
	const size = 384
	gray := pointcloud.NewColor255(128, 128, 128)
	dm := uniformDepth(size, size, 1.0)
	ci := uniformColor(size, size, gray)
	intr := IntrinsicsForSize(size, size, DefaultFocalFactor)

	pc, err := Project(dm, ci, intr, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, pc.Validate())
	require.Equal(t, (size/4)*(size/4), pc.Len())
	require.Equal(t, 9216, pc.Len())

	f := 0.7 * size
	minX, maxX := math.Inf(1), math.Inf(-1)
	for i, p := range pc.Points {
		assert.Equal(t, 5.0, p.Z)
		assert.Equal(t, gray, pc.Colors[i])
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
	}
	assert.InDelta(t, (0-192)*5.0/f, minX, 1e-12)
	assert.InDelta(t, (380-192)*5.0/f, maxX, 1e-12)
	// First sampled pixel is (0,0).
	assert.InDelta(t, (0-192)*5.0/f, pc.Points[0].Y, 1e-12)
}

func TestProjectDropsShallowPixels(t *testing.T) {
	dm := NewDepthMap(8, 8)
	// Row-major stride grid of 4: pixels (0,0), (4,0), (0,4), (4,4).
	dm.Set(0, 0, 0.01) // 0.05 after scaling, dropped
	dm.Set(4, 0, 0.021)
	dm.Set(0, 4, 0)
	dm.Set(4, 4, 1)
	ci := uniformColor(8, 8, pointcloud.Color{R: 1})

	pc, err := Project(dm, ci, IntrinsicsForSize(8, 8, DefaultFocalFactor), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, pc.Len())
	for _, p := range pc.Points {
		assert.Greater(t, p.Z, 0.1)
	}
}

func TestProjectDropsNonFiniteDepth(t *testing.T) {
	dm := NewDepthMap(8, 8)
	dm.Set(0, 0, math.NaN())
	dm.Set(4, 0, math.Inf(1))
	dm.Set(0, 4, math.Inf(-1))
	dm.Set(4, 4, 1)
	ci := uniformColor(8, 8, pointcloud.Color{G: 1})

	pc, err := Project(dm, ci, IntrinsicsForSize(8, 8, DefaultFocalFactor), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, pc.Len())
	assert.Equal(t, 5.0, pc.Points[0].Z)
	_, err = json.Marshal(pointcloud.Aggregate(pc))
	assert.NoError(t, err)
}

func TestProjectPointCountBound(t *testing.T) {
	opts := Options{DepthScale: 1, MinDepth: 0, Stride: 3}
	dm := uniformDepth(10, 7, 2)
	ci := uniformColor(10, 7, pointcloud.Color{G: 1})

	pc, err := Project(dm, ci, IntrinsicsForSize(10, 7, DefaultFocalFactor), opts)
	require.NoError(t, err)
	assert.Equal(t, opts.MaxPoints(10, 7), pc.Len())
	assert.Equal(t, 4*3, pc.Len())
	assert.Len(t, pc.Colors, pc.Len())
}

func TestProjectPinholeMath(t *testing.T) {
	intr := Intrinsics{Width: 4, Height: 4, Fx: 2, Fy: 4, Ppx: 1, Ppy: 2}
	dm := NewDepthMap(4, 4)
	dm.Set(3, 0, 1)
	ci := uniformColor(4, 4, pointcloud.Color{B: 1})

	pc, err := Project(dm, ci, intr, Options{DepthScale: 2, MinDepth: 0.1, Stride: 1})
	require.NoError(t, err)
	require.Equal(t, 1, pc.Len())
	p := pc.Points[0]
	assert.InDelta(t, (3-1)*2.0/2, p.X, 1e-12)
	assert.InDelta(t, (0-2)*2.0/4, p.Y, 1e-12)
	assert.InDelta(t, 2.0, p.Z, 1e-12)

	u, v := intr.PointToPixel(p.X, p.Y, p.Z)
	assert.InDelta(t, 3, u, 1e-12)
	assert.InDelta(t, 0, v, 1e-12)
}

func TestProjectShapeMismatch(t *testing.T) {
	dm := uniformDepth(8, 8, 1)
	ci := uniformColor(8, 6, pointcloud.Color{})
	_, err := Project(dm, ci, IntrinsicsForSize(8, 8, DefaultFocalFactor), DefaultOptions())
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestProjectInvalidOptions(t *testing.T) {
	dm := uniformDepth(4, 4, 1)
	ci := uniformColor(4, 4, pointcloud.Color{})
	intr := IntrinsicsForSize(4, 4, DefaultFocalFactor)

	for _, opts := range []Options{
		{DepthScale: 0, MinDepth: 0.1, Stride: 4},
		{DepthScale: 5, MinDepth: 0.1, Stride: 0},
		{DepthScale: 5, MinDepth: -1, Stride: 4},
	} {
		_, err := Project(dm, ci, intr, opts)
		assert.ErrorIs(t, err, ErrInvalidOptions, "%+v", opts)
	}

	_, err := Project(dm, ci, Intrinsics{Width: 4, Height: 4}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidIntrinsics)
}

func TestColorImageFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(2, 3, 4, 5))
	img.Set(3, 4, color.NRGBA{R: 255, G: 128, B: 0, A: 255})

	ci := ColorImageFromImage(img)
	require.Equal(t, 2, ci.Width)
	require.Equal(t, 2, ci.Height)
	got := ci.At(1, 1)
	assert.InDelta(t, 1.0, got.R, 1e-12)
	assert.InDelta(t, 128.0/255, got.G, 1e-12)
	assert.InDelta(t, 0.0, got.B, 1e-12)

	back := ci.ToNRGBA()
	assert.Equal(t, color.NRGBA{R: 255, G: 128, B: 0, A: 255}, back.NRGBAAt(1, 1))
}

func TestLuminanceDepth(t *testing.T) {
	ci := NewColorImage(2, 1)
	ci.Set(0, 0, pointcloud.Color{R: 1, G: 1, B: 1})
	dm := LuminanceDepth(ci)
	assert.InDelta(t, 1.0, dm.At(0, 0), 1e-12)
	assert.Equal(t, 0.0, dm.At(1, 0))
}
