package minio

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

type Config struct {
	Endpoint  string `mapstructure:"MINIO_ENDPOINT"`
	AccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	SecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	Bucket    string `mapstructure:"MINIO_BUCKET"`
	Region    string `mapstructure:"MINIO_REGION"`
	UseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
}

// NewConfig reads MinIO settings from the env file at path, falling back
// to MINIO_* environment variables.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	v.BindEnv("MINIO_ENDPOINT")
	v.BindEnv("MINIO_ACCESS_KEY")
	v.BindEnv("MINIO_SECRET_KEY")
	v.BindEnv("MINIO_BUCKET")
	v.BindEnv("MINIO_REGION")
	v.BindEnv("MINIO_USE_SSL")

	v.SetDefault("MINIO_BUCKET", "listing-images")
	v.SetDefault("MINIO_REGION", "us-east-1")

	if err := v.ReadInConfig(); err != nil {
		slog.Warn("minio config file not loaded, using environment", "path", path, "error", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}

	return &cfg, nil
}
