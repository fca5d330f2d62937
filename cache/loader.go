package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/stevecastle/recon3d/pointcloud"
)

var (
	// ErrUnsupportedURI is returned for a cache URI with an unknown scheme or extension.
	ErrUnsupportedURI = errors.New("unsupported cache uri")
	// ErrS3Disabled is returned for s3:// URIs when no S3 client is configured.
	ErrS3Disabled = errors.New("s3 access is not configured")
)

// ObjectGetter is the subset of the S3 client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the S3 client.
type S3Config struct {
	Region          string `json:"region" mapstructure:"region"`
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"accessKeyId" mapstructure:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey" mapstructure:"secretAccessKey"`
	UsePathStyle    bool   `json:"usePathStyle" mapstructure:"usePathStyle"`
}

// NewS3Client builds a client from cfg. Empty credentials fall back to the
// default AWS provider chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Loader resolves cache URIs into point clouds:
//
//	sqlite:<name>         cloud stored in the Store
//	file:<path>           .pcd or .json file on disk
//	s3://<bucket>/<key>   .pcd or .json object
type Loader struct {
	Store *Store
	S3    ObjectGetter
}

// Load reads the cloud identified by uri.
func (l *Loader) Load(ctx context.Context, uri string) (*pointcloud.Cloud, error) {
	switch {
	case strings.HasPrefix(uri, "sqlite:"):
		if l.Store == nil {
			return nil, fmt.Errorf("%w: no store for %s", ErrUnsupportedURI, uri)
		}
		return l.Store.Get(ctx, strings.TrimPrefix(uri, "sqlite:"))
	case strings.HasPrefix(uri, "file:"):
		return LoadFile(strings.TrimPrefix(uri, "file:"))
	case strings.HasPrefix(uri, "s3://"):
		return l.loadS3(ctx, strings.TrimPrefix(uri, "s3://"))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURI, uri)
	}
}

// LoadFile reads a .pcd or .json point cloud file.
func LoadFile(path string) (*pointcloud.Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeByExt(path, f)
}

func decodeByExt(name string, r io.Reader) (*pointcloud.Cloud, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pcd":
		return pointcloud.ReadPCD(r)
	case ".json":
		return pointcloud.ReadArraysJSON(r)
	default:
		return nil, fmt.Errorf("%w: extension of %s", ErrUnsupportedURI, name)
	}
}

func (l *Loader) loadS3(ctx context.Context, rest string) (*pointcloud.Cloud, error) {
	if l.S3 == nil {
		return nil, ErrS3Disabled
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: s3://%s", ErrUnsupportedURI, rest)
	}
	out, err := l.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return nil, fmt.Errorf("%w: s3://%s", ErrNotFound, rest)
		}
		return nil, fmt.Errorf("get s3://%s: %w", rest, err)
	}
	defer out.Body.Close()
	return decodeByExt(key, out.Body)
}
