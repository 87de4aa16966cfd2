// ABOUTME: Tests for configuration loading, env expansion and validation
// ABOUTME: Covers defaults, duration parsing and invalid base URLs

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a temp YAML config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://atms.example.com/api/v1
  timeout: 45s
auth:
  refresh_threshold: 2m
  refresh_interval: 1m
keystore:
  path: /var/lib/atms/session.db
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://atms.example.com/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Auth.RefreshThreshold)
	assert.Equal(t, time.Minute, cfg.Auth.RefreshInterval)
	assert.Equal(t, "/var/lib/atms/session.db", cfg.Keystore.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeConfig(t, `
keystore:
  path: /tmp/session.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.API.Timeout)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_ATMS_URL", "https://prod.example.com/api/v1")
	path := writeConfig(t, `
api:
  base_url: ${TEST_ATMS_URL}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://prod.example.com/api/v1", cfg.API.BaseURL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
api:
  timeout: not-a-duration
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestLoad_InvalidScheme(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: ftp://atms.example.com
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault_UsesEnvURL(t *testing.T) {
	t.Setenv("ATMS_API_URL", "https://env.example.com/api/v1")
	assert.Equal(t, "https://env.example.com/api/v1", Default().API.BaseURL)
}
