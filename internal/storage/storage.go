package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Backend stores staged upload bytes and derived preview renditions.
type Backend interface {
	Store(ctx context.Context, path string, reader io.Reader) (int64, error)
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}

type BackendType string

const (
	BackendTypeLocal BackendType = "local"
	BackendTypeS3    BackendType = "s3"
)

type BackendConfig struct {
	Type        BackendType   `mapstructure:"type"`
	LocalPath   string        `mapstructure:"local_path"`
	S3Endpoint  string        `mapstructure:"s3_endpoint"`
	S3Bucket    string        `mapstructure:"s3_bucket"`
	S3AccessKey string        `mapstructure:"s3_access_key"`
	S3SecretKey string        `mapstructure:"s3_secret_key"`
	S3Region    string        `mapstructure:"s3_region"`
	S3UseSSL    bool          `mapstructure:"s3_use_ssl"`
	PresignTTL  time.Duration `mapstructure:"presign_ttl"`
	ExternalURL string        `mapstructure:"external_url"`
}

func NewBackend(config *BackendConfig) (Backend, error) {
	switch config.Type {
	case BackendTypeS3:
		return NewS3Storage(config)
	case BackendTypeLocal, "":
		return NewLocalStorage(config)
	default:
		return nil, fmt.Errorf("unknown storage backend type: %s", config.Type)
	}
}

// ThumbnailObjectName is the storage path of a thumbnail uploaded for videoID.
func ThumbnailObjectName(now time.Time, videoID string) string {
	return fmt.Sprintf("thumbnails/%d-%s-thumbnail", now.UnixMilli(), videoID)
}
