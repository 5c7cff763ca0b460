package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 3000, cfg.Monitor.BasePollMs)
	assert.Equal(t, 60000, cfg.Monitor.MaxPollMs)
	assert.Equal(t, 800, cfg.Monitor.DegradedAboveMs)
	assert.Equal(t, 2, cfg.Monitor.OfflineAfter)
	assert.Equal(t, 100, cfg.Query.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Query.Temperature, 1e-9)
	assert.Equal(t, 20, cfg.Training.HistoryLimit)
	assert.Equal(t, ":8080", cfg.Console.Addr)
}

func TestLoad_ReadsYamlAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api:
  base_url: http://brainz.internal:9000
  api_key: secret
monitor:
  base_poll_ms: 1000
query:
  max_tokens: 256
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://brainz.internal:9000", cfg.API.BaseURL)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, 1000, cfg.Monitor.BasePollMs)
	assert.Equal(t, 60000, cfg.Monitor.MaxPollMs, "unset fields keep defaults")
	assert.Equal(t, 256, cfg.Query.MaxTokens)
	assert.Equal(t, 20, cfg.Query.HistoryLimit)
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://file-value:8000\n"), 0o644))

	t.Setenv(EnvBaseURL, "http://env-value:8000")
	t.Setenv(EnvAPIKey, "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env-value:8000", cfg.API.BaseURL)
	assert.Equal(t, "env-key", cfg.API.APIKey)
}

func TestLoad_RejectsMaxPollBelowBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  base_poll_ms: 5000\n  max_poll_ms: 1000\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsNegativeRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query:\n  retries: -1\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MalformedYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Monitor, cfg.Monitor)
}
