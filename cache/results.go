package cache

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stevecastle/recon3d/pointcloud"
)

// RedisConfig configures the result cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `json:"addr" mapstructure:"addr"`
	Password string        `json:"password" mapstructure:"password"`
	DB       int           `json:"db" mapstructure:"db"`
	TTL      time.Duration `json:"ttl" mapstructure:"ttl"`
}

// ResultCache stores reconstruction results in redis keyed by upload
// content. A nil *ResultCache is a valid, always-missing cache.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewResultCache connects to redis. It returns nil, without error, when the
// cache is disabled or the server does not answer.
func NewResultCache(ctx context.Context, cfg RedisConfig, logger *zap.Logger) *ResultCache {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, result cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		client.Close()
		return nil
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ResultCache{client: client, ttl: ttl, logger: logger}
}

// ResultKey derives the cache key from the mode and the raw upload bytes.
func ResultKey(mode string, uploads [][]byte) string {
	h := md5.New()
	h.Write([]byte(mode))
	for _, u := range uploads {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(u)))
		h.Write(n[:])
		h.Write(u)
	}
	return "recon:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key. A miss returns nil, nil.
func (c *ResultCache) Get(ctx context.Context, key string) (map[string]pointcloud.Envelope, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var result map[string]pointcloud.Envelope
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("failed to unmarshal cached result", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Set stores result under key with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, key string, result map[string]pointcloud.Envelope) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *ResultCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
