// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-ladder/internal/model"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/ladder")
	t.Setenv("GITHUB_REPO", "RIOT-OS/RIOT")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := load(viper.New(), t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "https://api.github.com/", cfg.GithubAPI)
	assert.Equal(t, model.RepoIdentifier{Owner: "RIOT-OS", Name: "RIOT"}, cfg.Repo)
	assert.True(t, cfg.Since.IsZero())
	assert.True(t, cfg.WebhookVerifySource)
	assert.Equal(t, 10*time.Minute, cfg.WebhookMetaTTL)
	assert.Equal(t, time.Hour, cfg.SyncInterval)
	assert.Equal(t, 24*time.Hour, cfg.FullSyncInterval)
	assert.Equal(t, 5000, cfg.RateLimitThreshold)
	assert.Equal(t, time.Hour, cfg.RateLimitWindow)
	assert.Equal(t, 5*time.Second, cfg.RateLimitMargin)
}

func TestLoad_Environment(t *testing.T) {
	setRequired(t)
	t.Setenv("GITHUB_SINCE", "2017-11-01T00:00:00Z")
	t.Setenv("GITHUB_WEBHOOK_SECRET", "s3cret")
	t.Setenv("WEBHOOK_VERIFY_SOURCE", "false")
	t.Setenv("SYNC_INTERVAL", "15m")

	cfg, err := load(viper.New(), t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 11, 1, 0, 0, 0, 0, time.UTC), cfg.Since)
	assert.Equal(t, "s3cret", cfg.WebhookSecret)
	assert.False(t, cfg.WebhookVerifySource)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	content := "DB_URL=postgres://file/ladder\nGITHUB_REPO=owner/name\nGITHUB_TOKEN=tok\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := load(viper.New(), dir)

	require.NoError(t, err)
	assert.Equal(t, "postgres://file/ladder", cfg.DBURL)
	assert.Equal(t, "tok", cfg.GithubToken)
	assert.Equal(t, "owner/name", cfg.Repo.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing db url", map[string]string{"DB_URL": ""}, "DB_URL"},
		{"missing repo", map[string]string{"GITHUB_REPO": ""}, "GITHUB_REPO"},
		{"bad repo", map[string]string{"GITHUB_REPO": "no-slash"}, "invalid repository format"},
		{"bad since", map[string]string{"GITHUB_SINCE": "yesterday"}, "GITHUB_SINCE"},
		{"half basic auth", map[string]string{"GITHUB_USER": "bot"}, "GITHUB_PASSWORD"},
		{"zero interval", map[string]string{"SYNC_INTERVAL": "0s"}, "SYNC_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := load(viper.New(), t.TempDir())

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
