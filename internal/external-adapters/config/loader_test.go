package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/vtscan/internal/domain/entities"
)

var envKeys = []string{
	"VT_API_KEY",
	"VTSCAN_API_URL",
	"VTSCAN_USER_AGENT",
	"VTSCAN_POLL_INTERVAL",
	"VTSCAN_MAX_ATTEMPTS",
	"VTSCAN_MAX_WAIT",
	"VTSCAN_SUBMIT_DELAY",
	"VTSCAN_HTTP_TIMEOUT",
	"VTSCAN_KEYRING",
}

// isolate unsets every variable the loader reads and points the default
// config location at an empty directory. Original values are restored by
// t.Setenv's cleanup.
func isolate(t *testing.T) *Loader {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	l := NewLoader("")
	l.DotEnvPath = filepath.Join(t.TempDir(), ".env")
	return l
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingCredential(t *testing.T) {
	l := isolate(t)

	_, err := l.Load()
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestLoad_BlankCredential(t *testing.T) {
	l := isolate(t)
	t.Setenv("VT_API_KEY", "   ")

	_, err := l.Load()
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestLoad_DefaultsWithEnvKey(t *testing.T) {
	l := isolate(t)
	t.Setenv("VT_API_KEY", "env-key")

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, entities.DefaultPollInterval, cfg.Poll.Interval)
	assert.Zero(t, cfg.Poll.MaxAttempts)
	assert.Zero(t, cfg.Poll.MaxWait)
	assert.NotEmpty(t, cfg.APIURL)
	assert.NotEmpty(t, cfg.UserAgent)
}

func TestLoad_Precedence(t *testing.T) {
	l := isolate(t)
	l.ConfigPath = writeFile(t, "config.yaml", `api_key: file-key
poll:
  interval: 30s
  max_attempts: 4
submit_delay: 3s
`)
	t.Setenv("VTSCAN_MAX_ATTEMPTS", "9")

	cfg, err := l.Load(func(c *entities.RunConfig) {
		c.SubmitDelay = time.Second
	})
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.APIKey, "file value should survive when env is unset")
	assert.Equal(t, 30*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 9, cfg.Poll.MaxAttempts, "env should override file")
	assert.Equal(t, time.Second, cfg.SubmitDelay, "overrides should win")
}

func TestLoad_DefaultConfigLocation(t *testing.T) {
	l := isolate(t)

	path, err := DefaultConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("api_key: default-location\n"), 0600))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "default-location", cfg.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	l := isolate(t)
	l.DotEnvPath = writeFile(t, ".env", "VT_API_KEY=dotenv-key\nVTSCAN_POLL_INTERVAL=5s\n")

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "dotenv-key", cfg.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
}

func TestLoad_ExplicitConfigMissing(t *testing.T) {
	l := isolate(t)
	t.Setenv("VT_API_KEY", "env-key")
	l.ConfigPath = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to access config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		override func(*entities.RunConfig)
		field    string
	}{
		{
			name:     "zero interval",
			override: func(c *entities.RunConfig) { c.Poll.Interval = 0 },
			field:    "Interval",
		},
		{
			name:     "negative attempts",
			override: func(c *entities.RunConfig) { c.Poll.MaxAttempts = -1 },
			field:    "MaxAttempts",
		},
		{
			name:     "bad url",
			override: func(c *entities.RunConfig) { c.APIURL = "not a url" },
			field:    "APIURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := isolate(t)
			t.Setenv("VT_API_KEY", "env-key")

			_, err := l.Load(tt.override)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	l := isolate(t)
	t.Setenv("VT_API_KEY", "env-key")
	t.Setenv("VTSCAN_POLL_INTERVAL", "soon")

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestLoad_EmptyEnvironmentValuesAreUnset(t *testing.T) {
	l := isolate(t)
	l.ConfigPath = writeFile(t, "config.yaml", "api_key: file-key\npoll:\n  interval: 5s\n  max_attempts: 7\n")
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	t.Setenv("VTSCAN_MAX_WAIT", "  ")

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 7, cfg.Poll.MaxAttempts)
	assert.Zero(t, cfg.Poll.MaxWait)
	assert.Equal(t, Defaults().APIURL, cfg.APIURL)
}

func TestLoad_InvalidEnvironmentInteger(t *testing.T) {
	l := isolate(t)
	t.Setenv("VT_API_KEY", "env-key")
	t.Setenv("VTSCAN_MAX_ATTEMPTS", "many")

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}
