package depth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevecastle/recon3d/pointcloud"
	"github.com/stevecastle/recon3d/projection"
)

func TestLuminanceEstimator(t *testing.T) {
	img := projection.NewColorImage(3, 1)
	img.Set(0, 0, pointcloud.Color{R: 1, G: 1, B: 1})
	img.Set(1, 0, pointcloud.Color{G: 1})

	var est Estimator = Luminance{}
	dm, err := est.Estimate(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, 3, dm.Width)
	assert.InDelta(t, 1.0, dm.At(0, 0), 1e-12)
	assert.InDelta(t, 0.587, dm.At(1, 0), 1e-12)
	assert.Equal(t, 0.0, dm.At(2, 0))
	assert.Equal(t, "luminance", est.Name())
}

func TestLuminanceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Luminance{}.Estimate(ctx, projection.NewColorImage(1, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalize(t *testing.T) {
	v := []float64{2, 4, 6}
	normalize(v)
	assert.Equal(t, []float64{0, 0.5, 1}, v)

	flat := []float64{3, 3}
	normalize(flat)
	assert.Equal(t, []float64{0, 0}, flat)

	normalize(nil)
}

func TestCHWTensor(t *testing.T) {
	img := projection.NewColorImage(2, 1)
	img.Set(0, 0, pointcloud.Color{R: 1, G: 0.5, B: 0})
	img.Set(1, 0, pointcloud.Color{R: 0, G: 0.25, B: 1})

	assert.Equal(t, []float32{1, 0, 0.5, 0.25, 0, 1}, chwTensor(img))
}

func TestONNXMissingModel(t *testing.T) {
	_, err := NewONNX("/nonexistent/midas.onnx", DefaultOptions())
	assert.Error(t, err)
}
