// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"review-ladder/internal/model"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	DBURL    string `mapstructure:"DB_URL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	GithubAPI      string `mapstructure:"GITHUB_API"`
	GithubRepo     string `mapstructure:"GITHUB_REPO"`
	GithubToken    string `mapstructure:"GITHUB_TOKEN"`
	GithubUser     string `mapstructure:"GITHUB_USER"`
	GithubPassword string `mapstructure:"GITHUB_PASSWORD"`
	GithubSince    string `mapstructure:"GITHUB_SINCE"`

	WebhookSecret       string        `mapstructure:"GITHUB_WEBHOOK_SECRET"`
	WebhookVerifySource bool          `mapstructure:"WEBHOOK_VERIFY_SOURCE"`
	WebhookMetaTTL      time.Duration `mapstructure:"WEBHOOK_META_TTL"`

	SyncInterval     time.Duration `mapstructure:"SYNC_INTERVAL"`
	FullSyncInterval time.Duration `mapstructure:"FULL_SYNC_INTERVAL"`

	RateLimitThreshold int           `mapstructure:"RATE_LIMIT_THRESHOLD"`
	RateLimitWindow    time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	RateLimitMargin    time.Duration `mapstructure:"RATE_LIMIT_MARGIN"`

	Repo  model.RepoIdentifier `mapstructure:"-"`
	Since time.Time            `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_URL", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GITHUB_API", "https://api.github.com/")
	v.SetDefault("GITHUB_REPO", "")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_USER", "")
	v.SetDefault("GITHUB_PASSWORD", "")
	v.SetDefault("GITHUB_SINCE", "")
	v.SetDefault("GITHUB_WEBHOOK_SECRET", "")
	v.SetDefault("WEBHOOK_VERIFY_SOURCE", true)
	v.SetDefault("WEBHOOK_META_TTL", "10m")
	v.SetDefault("SYNC_INTERVAL", "1h")
	v.SetDefault("FULL_SYNC_INTERVAL", "24h")
	v.SetDefault("RATE_LIMIT_THRESHOLD", 5000)
	v.SetDefault("RATE_LIMIT_WINDOW", "1h")
	v.SetDefault("RATE_LIMIT_MARGIN", "5s")
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v)

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(configPath)
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	if cfg.GithubRepo == "" {
		return errors.New("GITHUB_REPO is a required configuration field")
	}
	repo, err := model.ParseRepoIdentifier(cfg.GithubRepo)
	if err != nil {
		return fmt.Errorf("GITHUB_REPO: %w", err)
	}
	cfg.Repo = repo

	// GITHUB_SINCE is optional; without it every event is admitted.
	if cfg.GithubSince != "" {
		since, err := time.Parse(time.RFC3339, cfg.GithubSince)
		if err != nil {
			return errors.New("GITHUB_SINCE must be in RFC3339 format (e.g. 2023-01-01T00:00:00Z)")
		}
		cfg.Since = since
	}

	if (cfg.GithubUser == "") != (cfg.GithubPassword == "") {
		return errors.New("GITHUB_USER and GITHUB_PASSWORD must be set together")
	}
	if cfg.SyncInterval <= 0 {
		return errors.New("SYNC_INTERVAL must be positive")
	}
	if cfg.FullSyncInterval <= 0 {
		return errors.New("FULL_SYNC_INTERVAL must be positive")
	}
	if cfg.RateLimitThreshold <= 0 {
		return errors.New("RATE_LIMIT_THRESHOLD must be positive")
	}
	return nil
}
