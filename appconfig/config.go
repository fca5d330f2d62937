// Package appconfig loads the service configuration from a JSON file in the
// platform data directory, with RECON3D_* environment overrides.
package appconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/stevecastle/recon3d/platform"
)

// EnvPrefix prefixes environment overrides, e.g. RECON3D_LISTENADDR or
// RECON3D_REDIS_ADDR.
const EnvPrefix = "RECON3D"

// Source kinds for a model entry.
const (
	SourceModel = "model"
	SourceCache = "cache"
	SourceNone  = "none"
)

// Config holds the service configuration.
type Config struct {
	ListenAddr string `json:"listenAddr" mapstructure:"listenAddr"`
	// LogMode is "development" or "production".
	LogMode string `json:"logMode" mapstructure:"logMode"`
	DBPath  string `json:"dbPath" mapstructure:"dbPath"`

	// Uploads are resized to ImageSize x ImageSize.
	ImageSize   int   `json:"imageSize" mapstructure:"imageSize"`
	MaxUploadMB int64 `json:"maxUploadMb" mapstructure:"maxUploadMb"`

	Projection ProjectionConfig       `json:"projection" mapstructure:"projection"`
	Quality    QualityConfig          `json:"quality" mapstructure:"quality"`
	Models     map[string]ModelConfig `json:"models" mapstructure:"models"`
	Depth      DepthConfig            `json:"depth" mapstructure:"depth"`
	S3         S3Config               `json:"s3" mapstructure:"s3"`
	Redis      RedisConfig            `json:"redis" mapstructure:"redis"`

	CORSOrigins []string `json:"corsOrigins" mapstructure:"corsOrigins"`
	AuthEnabled bool     `json:"authEnabled" mapstructure:"authEnabled"`
	// JWT Secret for authentication
	JWTSecret string `json:"jwtSecret" mapstructure:"jwtSecret"`
}

type ProjectionConfig struct {
	DepthScale  float64 `json:"depthScale" mapstructure:"depthScale"`
	MinDepth    float64 `json:"minDepth" mapstructure:"minDepth"`
	Stride      int     `json:"stride" mapstructure:"stride"`
	FocalFactor float64 `json:"focalFactor" mapstructure:"focalFactor"`
}

type QualityConfig struct {
	MinPoints      int `json:"minPoints" mapstructure:"minPoints"`
	SyntheticCount int `json:"syntheticCount" mapstructure:"syntheticCount"`
}

// ModelConfig selects how one model's points are produced.
type ModelConfig struct {
	// Source is "model", "cache" or "none".
	Source   string `json:"source" mapstructure:"source"`
	CacheURI string `json:"cacheUri,omitempty" mapstructure:"cacheUri"`
	Count    int    `json:"count,omitempty" mapstructure:"count"`
}

type DepthConfig struct {
	ModelPath            string `json:"modelPath" mapstructure:"modelPath"`
	ModelURL             string `json:"modelUrl" mapstructure:"modelUrl"`
	ORTSharedLibraryPath string `json:"ortSharedLibraryPath" mapstructure:"ortSharedLibraryPath"`
	InputName            string `json:"inputName" mapstructure:"inputName"`
	OutputName           string `json:"outputName" mapstructure:"outputName"`
	DisableNormalize     bool   `json:"disableNormalize" mapstructure:"disableNormalize"`
}

type S3Config struct {
	Region          string `json:"region" mapstructure:"region"`
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"accessKeyId" mapstructure:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey" mapstructure:"secretAccessKey"`
	UsePathStyle    bool   `json:"usePathStyle" mapstructure:"usePathStyle"`
}

// RedisConfig enables the result cache when Addr is set.
type RedisConfig struct {
	Addr       string `json:"addr" mapstructure:"addr"`
	Password   string `json:"password" mapstructure:"password"`
	DB         int    `json:"db" mapstructure:"db"`
	TTLSeconds int    `json:"ttlSeconds" mapstructure:"ttlSeconds"`
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	return filepath.Join(platform.GetDataDir(), "recon3d.db")
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	return platform.GetDataDir()
}

// defaultConfig returns a Config populated with sensible defaults.
func defaultConfig() Config {
	return Config{
		ListenAddr:  ":5000",
		LogMode:     "development",
		DBPath:      DefaultDBPath(),
		ImageSize:   384,
		MaxUploadMB: 64,
		Projection: ProjectionConfig{
			DepthScale:  5.0,
			MinDepth:    0.1,
			Stride:      4,
			FocalFactor: 0.7,
		},
		Quality: QualityConfig{
			MinPoints:      100,
			SyntheticCount: 5000,
		},
		Models: map[string]ModelConfig{
			"nerf":               {Source: SourceModel},
			"gaussian_splatting": {Source: SourceModel, Count: 15000},
		},
		Depth: DepthConfig{
			InputName:  "input",
			OutputName: "output",
		},
		Redis:       RedisConfig{TTLSeconds: 24 * 60 * 60},
		CORSOrigins: []string{"*"},
		JWTSecret:   uuid.New().String(),
	}
}

func isJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func deepMergeJSON(dst, src map[string]json.RawMessage) {
	for k, v := range src {
		if existing, ok := dst[k]; ok && isJSONObject(existing) && isJSONObject(v) {
			var dstObj map[string]json.RawMessage
			var srcObj map[string]json.RawMessage
			if err := json.Unmarshal(existing, &dstObj); err != nil {
				dst[k] = v
				continue
			}
			if err := json.Unmarshal(v, &srcObj); err != nil {
				dst[k] = v
				continue
			}
			deepMergeJSON(dstObj, srcObj)
			merged, err := json.Marshal(dstObj)
			if err != nil {
				dst[k] = v
				continue
			}
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}

// ConfigPath returns the config file location. RECON3D_CONFIG overrides it.
func ConfigPath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads the config at ConfigPath.
func Load() (Config, string, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config file at path.
// A missing file is created with defaults. Fields absent from the file keep
// their defaults, and the file is rewritten when top-level keys are missing.
// Environment variables override file values but are never saved.
func LoadFrom(path string) (Config, string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Config{}, "", fmt.Errorf("failed to create config directory %s: %v", filepath.Dir(path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, path, fmt.Errorf("failed to read config file at %s: %v", path, err)
		}
		if _, saveErr := SaveTo(path, defaultConfig()); saveErr != nil {
			return Config{}, path, fmt.Errorf("failed to create default config file: %v", saveErr)
		}
	} else {
		var present map[string]json.RawMessage
		if err := json.Unmarshal(data, &present); err != nil {
			return Config{}, path, fmt.Errorf("failed to parse config JSON: %v", err)
		}
		c := defaultConfig()
		if err := json.Unmarshal(data, &c); err != nil {
			return Config{}, path, fmt.Errorf("failed to parse config JSON: %v", err)
		}
		if missingKeys(present, c) {
			if c.JWTSecret == "" {
				c.JWTSecret = uuid.New().String()
			}
			if _, saveErr := SaveTo(path, c); saveErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save updated config: %v\n", saveErr)
			}
		}
	}

	c, err := readWithEnv(path)
	if err != nil {
		return Config{}, path, err
	}
	if c.JWTSecret == "" {
		c.JWTSecret = uuid.New().String()
	}
	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0755); err != nil {
		return Config{}, path, fmt.Errorf("failed to create database directory %s: %v", filepath.Dir(c.DBPath), err)
	}
	return c, path, nil
}

// missingKeys reports whether c has top-level keys the file lacks.
func missingKeys(present map[string]json.RawMessage, c Config) bool {
	raw, err := json.Marshal(c)
	if err != nil {
		return false
	}
	var full map[string]json.RawMessage
	if err := json.Unmarshal(raw, &full); err != nil {
		return false
	}
	for k := range full {
		if _, ok := present[k]; !ok {
			return true
		}
	}
	v, ok := present["jwtSecret"]
	return ok && string(bytes.TrimSpace(v)) == `""`
}

// readWithEnv decodes the file through viper so RECON3D_* variables
// override any key present in it.
func readWithEnv(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	c := defaultConfig()
	c.Models = nil
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return c, nil
}

// SaveTo writes the config to path, deep-merging it into any existing file so
// unknown keys survive. Returns the path.
func SaveTo(path string, c Config) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %v", err)
	}
	base := map[string]json.RawMessage{}
	if existing, readErr := os.ReadFile(path); readErr == nil {
		var tmp map[string]json.RawMessage
		if err := json.Unmarshal(existing, &tmp); err == nil {
			base = tmp
		}
	}

	marshaled, err := json.Marshal(c)
	if err != nil {
		return path, fmt.Errorf("failed to marshal config: %v", err)
	}
	incoming := map[string]json.RawMessage{}
	if err := json.Unmarshal(marshaled, &incoming); err != nil {
		return path, fmt.Errorf("failed to map config JSON: %v", err)
	}

	deepMergeJSON(base, incoming)

	mergedData, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return path, fmt.Errorf("failed to marshal merged config: %v", err)
	}
	if err := os.WriteFile(path, mergedData, 0644); err != nil {
		return path, fmt.Errorf("failed to write config file: %v", err)
	}
	return path, nil
}
