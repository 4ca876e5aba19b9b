package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/vidshare/vidshare_server/internal/bunny"
	"github.com/vidshare/vidshare_server/internal/storage"
	"github.com/vidshare/vidshare_server/internal/upload"
	"github.com/vidshare/vidshare_server/internal/user"
)

const (
	defaultConfigFile = "files/config.yaml"

	DatabaseDriverPostgres = "postgres"
	DatabaseDriverMemory   = "memory"

	ThumbnailBackendBunny = "bunny"
	ThumbnailBackendS3    = "s3"
)

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"`
	URL            string `mapstructure:"url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type ThumbnailsConfig struct {
	Backend string                `mapstructure:"backend"`
	S3      storage.BackendConfig `mapstructure:"s3"`
}

type UploadConfig struct {
	upload.Limits   `mapstructure:",squash"`
	TransferTimeout time.Duration `mapstructure:"transfer_timeout"`
	DraftTTL        time.Duration `mapstructure:"draft_ttl"`
}

type Config struct {
	Port           int                   `mapstructure:"port"`
	AllowedOrigins []string              `mapstructure:"allowed_origins"`
	Log            LogConfig             `mapstructure:"log"`
	Database       DatabaseConfig        `mapstructure:"database"`
	Users          user.Config           `mapstructure:"users"`
	Bunny          bunny.Config          `mapstructure:"bunny"`
	Thumbnails     ThumbnailsConfig      `mapstructure:"thumbnails"`
	Staging        storage.BackendConfig `mapstructure:"staging"`
	Upload         UploadConfig          `mapstructure:"upload"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("database.driver", DatabaseDriverPostgres)
	v.SetDefault("database.migrations_path", "file://files/migrations")
	v.SetDefault("users.jwt_issuer", "vidshare")
	v.SetDefault("users.jwt_expiration_hours", 24*7)
	v.SetDefault("bunny.stream_base_url", "https://video.bunnycdn.com/library")
	v.SetDefault("bunny.embed_base_url", "https://iframe.mediadelivery.net/embed")
	v.SetDefault("thumbnails.backend", ThumbnailBackendBunny)
	v.SetDefault("thumbnails.s3.type", string(storage.BackendTypeS3))
	v.SetDefault("thumbnails.s3.s3_region", "us-east-1")
	v.SetDefault("thumbnails.s3.s3_use_ssl", true)
	v.SetDefault("thumbnails.s3.presign_ttl", 15*time.Minute)
	v.SetDefault("staging.type", string(storage.BackendTypeLocal))
	v.SetDefault("staging.local_path", "./files/staging")
	v.SetDefault("upload.max_video_size_bytes", 500*1024*1024)
	v.SetDefault("upload.max_thumbnail_size_bytes", 5*1024*1024)
	v.SetDefault("upload.transfer_timeout", 30*time.Minute)
	v.SetDefault("upload.draft_ttl", 24*time.Hour)
}

// envKeys are bound explicitly so Unmarshal sees them even when the config file omits the key.
var envKeys = []string{
	"port",
	"allowed_origins",
	"log.level",
	"log.pretty",
	"database.driver",
	"database.url",
	"database.migrations_path",
	"users.jwt_secret",
	"users.jwt_issuer",
	"users.jwt_expiration_hours",
	"bunny.library_id",
	"bunny.stream_base_url",
	"bunny.stream_access_key",
	"bunny.embed_base_url",
	"bunny.storage_base_url",
	"bunny.storage_access_key",
	"bunny.cdn_url",
	"thumbnails.backend",
	"thumbnails.s3.s3_endpoint",
	"thumbnails.s3.s3_bucket",
	"thumbnails.s3.s3_access_key",
	"thumbnails.s3.s3_secret_key",
	"thumbnails.s3.s3_region",
	"thumbnails.s3.s3_use_ssl",
	"thumbnails.s3.external_url",
	"staging.type",
	"staging.local_path",
	"staging.s3_endpoint",
	"staging.s3_bucket",
	"staging.s3_access_key",
	"staging.s3_secret_key",
	"upload.max_video_size_bytes",
	"upload.max_thumbnail_size_bytes",
	"upload.transfer_timeout",
	"upload.draft_ttl",
}

// LoadConfig reads files/config.yaml when present and overlays environment
// variables: bunny.library_id is read from BUNNY_LIBRARY_ID, and so on.
func LoadConfig() (*Config, error) {
	return loadConfig(defaultConfigFile)
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// Validate reports every missing required value at once.
func (c *Config) Validate() error {
	var errs []error
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	require(c.Users.JWTSecret, "USERS_JWT_SECRET")
	require(c.Bunny.LibraryID, "BUNNY_LIBRARY_ID")
	require(c.Bunny.StreamBaseURL, "BUNNY_STREAM_BASE_URL")
	require(c.Bunny.StreamAccessKey, "BUNNY_STREAM_ACCESS_KEY")
	require(c.Bunny.EmbedBaseURL, "BUNNY_EMBED_BASE_URL")

	switch c.Database.Driver {
	case DatabaseDriverPostgres:
		require(c.Database.URL, "DATABASE_URL")
	case DatabaseDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	switch c.Thumbnails.Backend {
	case ThumbnailBackendBunny:
		require(c.Bunny.StorageBaseURL, "BUNNY_STORAGE_BASE_URL")
		require(c.Bunny.StorageAccessKey, "BUNNY_STORAGE_ACCESS_KEY")
		require(c.Bunny.CDNURL, "BUNNY_CDN_URL")
	case ThumbnailBackendS3:
		require(c.Thumbnails.S3.S3Endpoint, "THUMBNAILS_S3_S3_ENDPOINT")
		require(c.Thumbnails.S3.S3Bucket, "THUMBNAILS_S3_S3_BUCKET")
		require(c.Thumbnails.S3.ExternalURL, "THUMBNAILS_S3_EXTERNAL_URL")
	default:
		errs = append(errs, fmt.Errorf("unknown thumbnails backend %q", c.Thumbnails.Backend))
	}

	if c.Upload.MaxVideoSizeBytes <= 0 || c.Upload.MaxThumbnailSizeBytes <= 0 {
		errs = append(errs, errors.New("upload size limits must be positive"))
	}

	return errors.Join(errs...)
}

func ConfigureLogging(config LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if config.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
