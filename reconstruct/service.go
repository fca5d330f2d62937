package reconstruct

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/stevecastle/recon3d/pointcloud"
	"github.com/stevecastle/recon3d/projection"
)

// ErrNoImages is returned when a request carries no images.
var ErrNoImages = errors.New("no images provided")

// Result holds one envelope per model that ran.
type Result map[string]pointcloud.Envelope

// Service runs reconstructions against an immutable registry.
type Service struct {
	registry *Registry
	newRand  func() *rand.Rand
	logger   *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithRandFactory overrides how each request's random source is created.
func WithRandFactory(f func() *rand.Rand) Option {
	return func(s *Service) { s.newRand = f }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService returns a service over registry.
func NewService(registry *Registry, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		newRand:  SeededRand,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the service's registry.
func (s *Service) Registry() *Registry { return s.registry }

// SeededRand returns a PCG generator seeded from the operating system.
func SeededRand() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(seed[:8]), binary.LittleEndian.Uint64(seed[8:])))
}

// Reconstruct runs every model selected by mode over images, one after the
// other. A model whose source fails is served by the registry fallback.
func (s *Service) Reconstruct(ctx context.Context, mode Mode, images []projection.ColorImage) (Result, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	req := Request{Images: images, Rand: s.newRand()}

	result := make(Result, 2)
	for _, name := range mode.Models() {
		start := time.Now()
		src, _ := s.registry.Source(name)
		pc, err := src.PointCloud(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("Source failed, using fallback",
				zap.String("model", name), zap.String("kind", string(src.Kind())), zap.Error(err))
			if pc, err = s.registry.Fallback().PointCloud(ctx, req); err != nil {
				return nil, fmt.Errorf("%s fallback: %w", name, err)
			}
		}
		if err := pc.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		result[name] = pointcloud.Aggregate(pc)
		s.logger.Info("Model reconstructed",
			zap.String("model", name),
			zap.String("kind", string(src.Kind())),
			zap.Int("points", pc.Len()),
			zap.Duration("duration", time.Since(start)))
	}
	return result, nil
}
