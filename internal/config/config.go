// Package config loads the service configuration from defaults, an optional
// yaml file and DROPCODE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retention RetentionConfig `mapstructure:"retention"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"` // Base URL for share links
}

// StorageConfig holds blob and metadata storage settings.
type StorageConfig struct {
	Driver     string  `mapstructure:"driver"` // "disk" or "s3"
	UploadPath string  `mapstructure:"upload_path"`
	SQLitePath string  `mapstructure:"sqlite_path"`
	MaxSizeMiB float64 `mapstructure:"max_size_mib"`
}

// RetentionConfig controls how long files are kept.
type RetentionConfig struct {
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// MinIOConfig holds object storage settings, used when storage.driver is "s3".
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080/")
	v.SetDefault("storage.driver", "disk")
	v.SetDefault("storage.upload_path", "./uploads")
	v.SetDefault("storage.sqlite_path", "./dropcode.db")
	v.SetDefault("storage.max_size_mib", 100.0)
	v.SetDefault("retention.window", "24h")
	v.SetDefault("retention.sweep_interval", "60s")
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "dropcode")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the configuration. A missing config file is not an error;
// defaults and environment variables are enough to run.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("DROPCODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Storage.MaxSizeMiB <= 0 {
		return fmt.Errorf("storage.max_size_mib must be greater than 0")
	}
	if c.Retention.Window <= 0 {
		return fmt.Errorf("retention.window must be greater than 0")
	}
	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("retention.sweep_interval must be greater than 0")
	}
	if c.Storage.Driver != "disk" && c.Storage.Driver != "s3" {
		return fmt.Errorf("storage.driver must be \"disk\" or \"s3\", got %q", c.Storage.Driver)
	}
	return nil
}

// MaxSizeBytes returns the upload cap in bytes.
func (c *StorageConfig) MaxSizeBytes() int64 {
	return int64(c.MaxSizeMiB * 1024 * 1024)
}
