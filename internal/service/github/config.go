package github

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/viper"
)

// defaultBaseURL is the base URL for the public GitHub API.
const defaultBaseURL = "https://api.github.com"

// Config holds what is needed to address one repository through the
// contents API.
type Config struct {
	// BaseURL is the root URL for API requests. Must use HTTPS.
	BaseURL string `mapstructure:"GITHUB_API_URL"`

	// Token is a personal access token or fine-grained token with
	// contents:write on the repository.
	Token string `mapstructure:"GITHUB_TOKEN"`

	Owner string `mapstructure:"GITHUB_OWNER"`
	Repo  string `mapstructure:"GITHUB_REPO"`

	// Branch is the branch commits land on. Empty means the repository's
	// default branch.
	Branch string `mapstructure:"GITHUB_BRANCH"`

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client `mapstructure:"-"`

	// Logger defaults to slog.Default().
	Logger *slog.Logger `mapstructure:"-"`
}

// NewConfig reads GitHub settings from the env file at path, falling back
// to GITHUB_* environment variables.
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	v.BindEnv("GITHUB_TOKEN")
	v.BindEnv("GITHUB_OWNER")
	v.BindEnv("GITHUB_REPO")
	v.BindEnv("GITHUB_BRANCH")
	v.BindEnv("GITHUB_API_URL")

	v.SetDefault("GITHUB_API_URL", defaultBaseURL)

	if err := v.ReadInConfig(); err != nil {
		slog.Warn("github config file not loaded, using environment", "path", path, "error", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.Token == "" || cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("server misconfigured: GITHUB_TOKEN, GITHUB_OWNER and GITHUB_REPO are required")
	}

	return &cfg, nil
}
