// Package reconstruct turns a batch of uploaded images into one point cloud
// per reconstruction model.
package reconstruct

import (
	"context"
	"errors"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/stevecastle/recon3d/depth"
	"github.com/stevecastle/recon3d/pointcloud"
	"github.com/stevecastle/recon3d/projection"
	"github.com/stevecastle/recon3d/quality"
	"github.com/stevecastle/recon3d/synth"
)

// Default point counts for the synthetic paths.
const (
	DefaultSceneCount     = 15000
	DefaultFallbackCount  = 15000
	DefaultSyntheticCount = 5000
)

// ErrNoUsableImages is returned by DepthSource when every image failed.
var ErrNoUsableImages = errors.New("no image could be reconstructed")

// SourceKind names how a model's points are produced.
type SourceKind string

const (
	KindDepth       SourceKind = "depth"
	KindScene       SourceKind = "scene"
	KindCached      SourceKind = "cached"
	KindUnavailable SourceKind = "unavailable"
)

// Request is the per-request input shared by every source.
type Request struct {
	Images []projection.ColorImage
	// Rand is owned by the request and must not be shared across goroutines.
	Rand *rand.Rand
}

// PointSource produces the point cloud for one model.
type PointSource interface {
	PointCloud(ctx context.Context, req Request) (*pointcloud.Cloud, error)
	Kind() SourceKind
}

// DepthSource estimates depth for every image and back-projects it.
type DepthSource struct {
	Estimator   depth.Estimator
	Projection  projection.Options
	FocalFactor float64
	Logger      *zap.Logger
}

func (s *DepthSource) Kind() SourceKind { return KindDepth }

// PointCloud accumulates every image's points in upload order. Images that
// fail estimation or projection are logged and skipped. If all of them fail
// it returns ErrNoUsableImages.
func (s *DepthSource) PointCloud(ctx context.Context, req Request) (*pointcloud.Cloud, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	focal := s.FocalFactor
	if focal <= 0 {
		focal = projection.DefaultFocalFactor
	}
	if err := s.Projection.Validate(); err != nil {
		return nil, err
	}

	out := pointcloud.New()
	failed := 0
	for i, img := range req.Images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dm, err := s.Estimator.Estimate(ctx, img)
		if err != nil {
			log.Warn("Skipping image: depth estimation failed",
				zap.Int("image", i), zap.String("estimator", s.Estimator.Name()), zap.Error(err))
			failed++
			continue
		}
		pc, err := projection.Project(dm, img, projection.IntrinsicsForSize(img.Width, img.Height, focal), s.Projection)
		if err != nil {
			log.Warn("Skipping image: projection failed", zap.Int("image", i), zap.Error(err))
			failed++
			continue
		}
		out.Concat(pc)
	}
	if failed > 0 && failed == len(req.Images) {
		return nil, ErrNoUsableImages
	}
	return out, nil
}

// SceneSource simulates a particle scene: an object cluster over background.
type SceneSource struct {
	Count int
}

func (s *SceneSource) Kind() SourceKind { return KindScene }

func (s *SceneSource) PointCloud(ctx context.Context, req Request) (*pointcloud.Cloud, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return synth.NewGenerator(req.Rand).Surface(countOr(s.Count, DefaultSceneCount), synth.DualCluster), nil
}

// CachedSource serves a cloud loaded once at startup, replacing it with
// synthetic points when it is too sparse.
type CachedSource struct {
	Cloud          *pointcloud.Cloud
	MinPoints      int
	SyntheticCount int
	Logger         *zap.Logger
}

func (s *CachedSource) Kind() SourceKind { return KindCached }

func (s *CachedSource) PointCloud(ctx context.Context, req Request) (*pointcloud.Cloud, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	minPoints := s.MinPoints
	if minPoints <= 0 {
		minPoints = quality.DefaultMinPoints
	}
	v := quality.Assess(s.Cloud, minPoints)
	if v.Accepted {
		return v.Cloud, nil
	}
	if s.Logger != nil {
		s.Logger.Info("Cached cloud rejected, synthesizing",
			zap.Int("points", v.Stats.Count), zap.Int("min", minPoints))
	}
	return synth.NewGenerator(req.Rand).Generate(v.Stats.Centroid, v.Stats.Spread,
		countOr(s.SyntheticCount, DefaultSyntheticCount)), nil
}

// UnavailableSource stands in for a model that could not be loaded.
type UnavailableSource struct {
	Count int
}

func (s *UnavailableSource) Kind() SourceKind { return KindUnavailable }

func (s *UnavailableSource) PointCloud(ctx context.Context, _ Request) (*pointcloud.Cloud, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return synth.SphereSurface(countOr(s.Count, DefaultFallbackCount)), nil
}

func countOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
