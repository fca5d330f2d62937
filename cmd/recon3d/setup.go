package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/stevecastle/recon3d/appconfig"
	"github.com/stevecastle/recon3d/cache"
	"github.com/stevecastle/recon3d/depth"
	"github.com/stevecastle/recon3d/downloads"
	"github.com/stevecastle/recon3d/platform"
	"github.com/stevecastle/recon3d/projection"
	"github.com/stevecastle/recon3d/reconstruct"
)

func projectionOptions(cfg appconfig.Config) projection.Options {
	return projection.Options{
		DepthScale: cfg.Projection.DepthScale,
		MinDepth:   cfg.Projection.MinDepth,
		Stride:     cfg.Projection.Stride,
	}
}

// buildEstimator loads the ONNX depth model when one is configured and falls
// back to the luminance estimator otherwise. The returned func releases it.
func buildEstimator(ctx context.Context, cfg appconfig.Config, logger *zap.Logger) (depth.Estimator, func()) {
	noop := func() {}
	dc := cfg.Depth
	if dc.ModelPath == "" && dc.ModelURL == "" {
		logger.Info("No depth model configured, using luminance depth")
		return depth.Luminance{}, noop
	}

	modelPath := dc.ModelPath
	if dc.ModelURL != "" {
		dir := platform.ModelDir()
		name := ""
		if modelPath != "" {
			dir, name = filepath.Dir(modelPath), filepath.Base(modelPath)
		}
		d := downloads.NewDownloader()
		d.Progress = downloads.LogProgress(logger, dc.ModelURL, 2*time.Second)
		p, err := d.EnsureModel(ctx, downloads.ModelSpec{URL: dc.ModelURL, Dir: dir, FileName: name})
		if err != nil {
			logger.Warn("Depth model unavailable, using luminance depth", zap.Error(err))
			return depth.Luminance{}, noop
		}
		modelPath = p
	}

	opts := depth.DefaultOptions()
	opts.ORTSharedLibraryPath = ortLibraryPath(dc.ORTSharedLibraryPath, platform.ModelDir())
	if dc.InputName != "" {
		opts.InputName = dc.InputName
	}
	if dc.OutputName != "" {
		opts.OutputName = dc.OutputName
	}
	if cfg.ImageSize > 0 {
		opts.InputWidth, opts.InputHeight = cfg.ImageSize, cfg.ImageSize
	}
	opts.NormalizeOutput = !dc.DisableNormalize

	est, err := depth.NewONNX(modelPath, opts)
	if err != nil {
		logger.Warn("Failed to load depth model, using luminance depth",
			zap.String("model", modelPath), zap.Error(err))
		return depth.Luminance{}, noop
	}
	logger.Info("Depth model loaded", zap.String("model", modelPath))
	return est, func() { _ = est.Close() }
}

// ortLibraryPath prefers the configured library, then one placed next to the
// downloaded models. Empty leaves the choice to the runtime.
func ortLibraryPath(configured, modelDir string) string {
	if configured != "" {
		return configured
	}
	p := filepath.Join(modelDir, platform.ORTLibraryName())
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// buildRegistry turns the per-model config into point sources. Cached clouds
// are loaded here, once. Any model that cannot be set up is registered as
// unavailable.
func buildRegistry(ctx context.Context, cfg appconfig.Config, loader *cache.Loader, est depth.Estimator, logger *zap.Logger) *reconstruct.Registry {
	sources := make(map[string]reconstruct.PointSource, len(cfg.Models))
	for name, mc := range cfg.Models {
		log := logger.With(zap.String("model", name), zap.String("source", mc.Source))
		switch mc.Source {
		case appconfig.SourceCache:
			pc, err := loader.Load(ctx, mc.CacheURI)
			if err != nil {
				log.Warn("Failed to load cached cloud, model unavailable", zap.String("uri", mc.CacheURI), zap.Error(err))
				sources[name] = &reconstruct.UnavailableSource{Count: mc.Count}
				continue
			}
			log.Info("Cached cloud loaded", zap.String("uri", mc.CacheURI), zap.Int("points", pc.Len()))
			sources[name] = &reconstruct.CachedSource{
				Cloud:          pc,
				MinPoints:      cfg.Quality.MinPoints,
				SyntheticCount: cfg.Quality.SyntheticCount,
				Logger:         logger,
			}
		case appconfig.SourceModel:
			switch name {
			case reconstruct.ModelNeRF:
				sources[name] = &reconstruct.DepthSource{
					Estimator:   est,
					Projection:  projectionOptions(cfg),
					FocalFactor: cfg.Projection.FocalFactor,
					Logger:      logger,
				}
			case reconstruct.ModelGaussianSplatting:
				sources[name] = &reconstruct.SceneSource{Count: mc.Count}
			default:
				log.Warn("No model implementation, model unavailable")
				sources[name] = &reconstruct.UnavailableSource{Count: mc.Count}
			}
		default:
			sources[name] = &reconstruct.UnavailableSource{Count: mc.Count}
		}
	}
	return reconstruct.NewRegistry(sources)
}
