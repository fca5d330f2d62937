// Command recon3d serves point cloud reconstructions over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stevecastle/recon3d/appconfig"
	"github.com/stevecastle/recon3d/auth"
	"github.com/stevecastle/recon3d/cache"
	"github.com/stevecastle/recon3d/httpapi"
	"github.com/stevecastle/recon3d/logging"
	"github.com/stevecastle/recon3d/reconstruct"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "recon3d:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, cfgPath, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logging.Sync(logger)
	logger.Info("Config loaded", zap.String("path", cfgPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := cache.OpenDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Connected to SQLite database", zap.String("path", cfg.DBPath))

	loader := &cache.Loader{Store: cache.NewStore(db)}
	if usesS3(cfg) {
		client, err := cache.NewS3Client(ctx, cache.S3Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			logger.Warn("S3 client unavailable", zap.Error(err))
		} else {
			loader.S3 = client
		}
	}

	estimator, closeEstimator := buildEstimator(ctx, cfg, logger)
	defer closeEstimator()
	registry := buildRegistry(ctx, cfg, loader, estimator, logger)

	results := cache.NewResultCache(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      time.Duration(cfg.Redis.TTLSeconds) * time.Second,
	}, logger)
	defer results.Close()

	var authSvc *auth.Service
	if cfg.AuthEnabled {
		authSvc = auth.NewService(db, cfg.JWTSecret)
		if err := authSvc.CreateDefaultUser(ctx); err != nil {
			return fmt.Errorf("create default user: %w", err)
		}
	}

	handler := httpapi.NewHandler(&httpapi.Dependencies{
		Service: reconstruct.NewService(registry, reconstruct.WithLogger(logger)),
		Auth:    authSvc,
		Results: results,
		Logger:  logger,
	}, httpapi.Options{
		ImageSize:      cfg.ImageSize,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		DepthEstimator: estimator.Name(),
		CORSOrigins:    cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", cfg.ListenAddr), zap.Any("models", registry.Describe()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func usesS3(cfg appconfig.Config) bool {
	for _, mc := range cfg.Models {
		if mc.Source == appconfig.SourceCache && strings.HasPrefix(mc.CacheURI, "s3://") {
			return true
		}
	}
	return false
}
