//go:build cgo
// +build cgo

package depth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/stevecastle/recon3d/projection"
)

var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		} else if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return err
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() {
	envMu.Lock()
	defer envMu.Unlock()
	envRefs--
	if envRefs == 0 {
		ort.DestroyEnvironment()
	}
}

// ONNX runs a monocular depth model through onnxruntime. The session is
// created once and shared; Run is safe for concurrent use.
type ONNX struct {
	opts    Options
	session *ort.DynamicAdvancedSession
}

// NewONNX loads the model at modelPath.
func NewONNX(modelPath string, opts Options) (*ONNX, error) {
	if opts.InputWidth <= 0 || opts.InputHeight <= 0 {
		return nil, fmt.Errorf("invalid input size %dx%d", opts.InputWidth, opts.InputHeight)
	}
	if opts.InputName == "" || opts.OutputName == "" {
		return nil, errors.New("input and output names must be provided")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("depth model: %w", err)
	}
	if err := acquireEnvironment(opts.ORTSharedLibraryPath); err != nil {
		return nil, fmt.Errorf("init onnxruntime: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{opts.InputName}, []string{opts.OutputName}, nil)
	if err != nil {
		releaseEnvironment()
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &ONNX{opts: opts, session: session}, nil
}

func (e *ONNX) Name() string { return "onnx" }

// Estimate requires img to already be InputWidth x InputHeight.
func (e *ONNX) Estimate(ctx context.Context, img projection.ColorImage) (projection.DepthMap, error) {
	if err := ctx.Err(); err != nil {
		return projection.DepthMap{}, err
	}
	w, h := e.opts.InputWidth, e.opts.InputHeight
	if img.Width != w || img.Height != h {
		return projection.DepthMap{}, fmt.Errorf("%w: image %dx%d, model input %dx%d",
			projection.ErrShapeMismatch, img.Width, img.Height, w, h)
	}

	in, err := ort.NewTensor(ort.NewShape(1, 3, int64(h), int64(w)), chwTensor(img))
	if err != nil {
		return projection.DepthMap{}, err
	}
	defer in.Destroy()
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(h), int64(w)))
	if err != nil {
		return projection.DepthMap{}, err
	}
	defer out.Destroy()

	if err := e.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return projection.DepthMap{}, fmt.Errorf("run depth model: %w", err)
	}

	dm := projection.NewDepthMap(w, h)
	for i, v := range out.GetData() {
		dm.Data[i] = float64(v)
	}
	if e.opts.NormalizeOutput {
		normalize(dm.Data)
	}
	for i, v := range dm.Data {
		if v < 0 {
			dm.Data[i] = 0
		}
	}
	return dm, nil
}

// Close releases the session and, for the last estimator, the runtime.
func (e *ONNX) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	releaseEnvironment()
	return err
}
