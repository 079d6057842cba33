package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/newthinker/archivist/internal/core"
	"github.com/spf13/viper"
)

// Storage backend types
const (
	StorageS3      = "s3"
	StorageMinIO   = "minio"
	StorageLocalFS = "localfs"
)

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Clean   CleanConfig   `mapstructure:"clean"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "s3", "minio" or "localfs"
	Path  string      `mapstructure:"path"` // For localfs
	S3    S3Config    `mapstructure:"s3"`
	MinIO MinIOConfig `mapstructure:"minio"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ArchiveConfig holds upload settings.
type ArchiveConfig struct {
	// VerifyUpload compares a locally computed digest with the store's
	// ETag before a sidecar is written.
	VerifyUpload bool `mapstructure:"verify_upload"`
}

// CleanConfig holds cleanup settings.
type CleanConfig struct {
	RemoveSidecar bool `mapstructure:"remove_sidecar"`
}

// MetricsConfig holds batch metrics export settings.
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Textfile    string `mapstructure:"textfile"`
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

// NotifyConfig holds run summary notification settings.
type NotifyConfig struct {
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// envKeys can be set through ARCHIVIST_<KEY> even when no config file
// mentions them, e.g. ARCHIVIST_STORAGE_S3_BUCKET.
var envKeys = []string{
	"storage.type",
	"storage.path",
	"storage.s3.bucket",
	"storage.s3.endpoint",
	"storage.s3.region",
	"storage.s3.access_key",
	"storage.s3.secret_key",
	"storage.s3.prefix",
	"storage.minio.endpoint",
	"storage.minio.access_key",
	"storage.minio.secret_key",
	"storage.minio.bucket",
	"storage.minio.region",
	"storage.minio.prefix",
	"storage.minio.use_ssl",
	"archive.verify_upload",
	"clean.remove_sidecar",
	"metrics.enabled",
	"metrics.textfile",
	"metrics.pushgateway",
	"metrics.job",
	"notify.webhook.url",
	"notify.telegram.bot_token",
	"notify.telegram.chat_id",
}

// Load reads configuration from path, a .env file in the working directory
// and ARCHIVIST_* environment variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Support environment variable overrides
	v.SetEnvPrefix("ARCHIVIST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.s3.region", d.Storage.S3.Region)
	v.SetDefault("archive.verify_upload", d.Archive.VerifyUpload)
	v.SetDefault("clean.remove_sidecar", d.Clean.RemoveSidecar)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.job", d.Metrics.Job)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Type: StorageS3,
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Archive: ArchiveConfig{
			VerifyUpload: true,
		},
		Clean: CleanConfig{
			RemoveSidecar: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Job:     "archivist",
		},
	}
}

// SetBucket overrides the bucket of the selected backend.
func (c *Config) SetBucket(bucket string) {
	if bucket == "" {
		return
	}
	switch c.Storage.Type {
	case StorageMinIO:
		c.Storage.MinIO.Bucket = bucket
	default:
		c.Storage.S3.Bucket = bucket
	}
}

// Validate checks the settings every phase relies on.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageS3, StorageMinIO, StorageLocalFS:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	if c.Metrics.Enabled && c.Metrics.Textfile == "" && c.Metrics.Pushgateway == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("metrics enabled but neither textfile nor pushgateway set"))
	}

	if (c.Notify.Telegram.BotToken == "") != (c.Notify.Telegram.ChatID == "") {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("telegram bot_token and chat_id must be set together"))
	}

	return nil
}

// ValidateStorage checks the selected backend can be reached. Only phases
// that talk to the store call it.
func (c *Config) ValidateStorage() error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Storage.Type {
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when storage type is s3"))
		}
		if (c.Storage.S3.AccessKey == "") != (c.Storage.S3.SecretKey == "") {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("s3 access_key and secret_key must be set together"))
		}
	case StorageMinIO:
		if c.Storage.MinIO.Endpoint == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("minio endpoint required when storage type is minio"))
		}
		if c.Storage.MinIO.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("minio bucket required when storage type is minio"))
		}
	case StorageLocalFS:
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage path required when storage type is localfs"))
		}
	}

	return nil
}
