package s3

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

type Config struct {
	AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	Bucket          string `mapstructure:"S3_BUCKET"`
	Endpoint        string `mapstructure:"S3_ENDPOINT"`
	Region          string `mapstructure:"S3_REGION"`
	UsePathStyle    bool   `mapstructure:"S3_USE_PATH_STYLE"`
}

// NewConfig reads the S3 settings from the env file at path, falling back
// to S3_* environment variables.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	v.BindEnv("S3_ACCESS_KEY_ID")
	v.BindEnv("S3_SECRET_ACCESS_KEY")
	v.BindEnv("S3_BUCKET")
	v.BindEnv("S3_ENDPOINT")
	v.BindEnv("S3_REGION")
	v.BindEnv("S3_USE_PATH_STYLE")

	v.SetDefault("S3_ENDPOINT", "https://storage.yandexcloud.net")
	v.SetDefault("S3_REGION", "ru-central1")

	if err := v.ReadInConfig(); err != nil {
		slog.Warn("s3 config file not loaded, using environment", "path", path, "error", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.AccessKeyID == "" {
		return nil, fmt.Errorf("AccessKeyID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("SecretAccessKey is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("Bucket is required")
	}

	return &cfg, nil
}
