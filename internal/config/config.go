package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const (
	BackendGitHub = "github"
	BackendS3     = "s3"
	BackendMemory = "memory"

	BlobsStore = "store"
	BlobsMinIO = "minio"
)

type Config struct {
	Server ServerConfig `mapstructure:",squash"`
	Store  StoreConfig  `mapstructure:",squash"`
}

type ServerConfig struct {
	Port               string `mapstructure:"HTTP_PORT"`
	GRPCPort           string `mapstructure:"GRPC_PORT"`
	MaxBodyBytes       int64  `mapstructure:"MAX_BODY_BYTES"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// SharedToken, when set, must be presented as a bearer token on writes.
	SharedToken string `mapstructure:"SHARED_TOKEN"`
}

type StoreConfig struct {
	Backend     string `mapstructure:"STORE_BACKEND"`
	BlobBackend string `mapstructure:"BLOB_BACKEND"`
	TargetPath  string `mapstructure:"TARGET_PATH"`
	ImagesPath  string `mapstructure:"IMAGES_PATH"`
}

var defaults = map[string]any{
	"HTTP_PORT":            "8080",
	"GRPC_PORT":            "50051",
	"MAX_BODY_BYTES":       25 << 20,
	"CORS_ALLOWED_ORIGINS": "*",
	"SHARED_TOKEN":         "",
	"STORE_BACKEND":        BackendGitHub,
	"BLOB_BACKEND":         BlobsStore,
	"TARGET_PATH":          "data/formdata.json",
	"IMAGES_PATH":          "data/images",
}

// NewConfig reads the env file at path when it exists. Environment
// variables take precedence over the file.
func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		slog.Warn("config file not loaded, using environment", "path", path, "error", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that do not depend on a backend.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendGitHub, BackendS3, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.Store.BlobBackend {
	case BlobsStore, BlobsMinIO:
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.Store.BlobBackend)
	}
	if strings.TrimSpace(c.Store.TargetPath) == "" {
		return fmt.Errorf("TARGET_PATH must not be empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (s ServerConfig) AllowedOrigins() []string {
	var out []string
	for _, part := range strings.Split(s.CORSAllowedOrigins, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
