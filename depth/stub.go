//go:build !cgo
// +build !cgo

package depth

import (
	"context"

	"github.com/stevecastle/recon3d/projection"
)

// ONNX is unavailable in non-CGO builds.
type ONNX struct{}

// NewONNX returns ErrCGORequired.
func NewONNX(modelPath string, opts Options) (*ONNX, error) {
	return nil, ErrCGORequired
}

func (*ONNX) Name() string { return "onnx" }

func (*ONNX) Estimate(context.Context, projection.ColorImage) (projection.DepthMap, error) {
	return projection.DepthMap{}, ErrCGORequired
}

func (*ONNX) Close() error { return nil }
