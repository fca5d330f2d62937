// Package httpapi exposes reconstruction over HTTP.
package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/stevecastle/recon3d/auth"
	"github.com/stevecastle/recon3d/cache"
	"github.com/stevecastle/recon3d/imageio"
	"github.com/stevecastle/recon3d/reconstruct"
)

// Options configure request handling.
type Options struct {
	// ImageSize is the square edge uploads are resized to.
	ImageSize int
	// MaxUploadBytes bounds the whole multipart body.
	MaxUploadBytes int64
	// DepthEstimator names the estimator behind the nerf model, for /health.
	DepthEstimator string
	CORSOrigins    []string
}

// DefaultOptions returns the standard request limits.
func DefaultOptions() Options {
	return Options{
		ImageSize:      imageio.DefaultSize,
		MaxUploadBytes: 64 << 20,
		CORSOrigins:    []string{"*"},
	}
}

// Dependencies are the long-lived services the handlers share. Auth and
// Results may be nil.
type Dependencies struct {
	Service *reconstruct.Service
	Auth    *auth.Service
	Results *cache.ResultCache
	Logger  *zap.Logger
}

// NewHandler builds the routed, middleware-wrapped HTTP handler.
func NewHandler(deps *Dependencies, opts Options) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = imageio.DefaultSize
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultOptions().MaxUploadBytes
	}

	protect := func(h http.HandlerFunc) http.Handler {
		if deps.Auth == nil {
			return h
		}
		return RequireAuth(deps.Auth, h)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", healthHandler(deps, opts))
	mux.Handle("POST /reconstruct", protect(reconstructHandler(deps, opts)))
	mux.Handle("POST /login", loginHandler(deps))

	var h http.Handler = mux
	h = Recover(deps.Logger, h)
	h = Logger(deps.Logger, h)
	h = RequestID(h)
	h = CORS(opts.CORSOrigins, h)
	return h
}
