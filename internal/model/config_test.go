package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendModeLocal, cfg.Backend.Mode)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, 1024, cfg.AI.MaxTokens)
	assert.Equal(t, "local", cfg.Profile.UserID)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  mode: rest
  url: https://api.example.com
ai:
  max_tokens: 2048
profile:
  user_id: user-42
  name: Dana
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, BackendModeRest, cfg.Backend.Mode)
	assert.Equal(t, "https://api.example.com", cfg.Backend.URL)
	assert.Equal(t, 2048, cfg.AI.MaxTokens)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model, "unset keys keep defaults")
	assert.Equal(t, "user-42", cfg.Profile.UserID)
	assert.Equal(t, "Dana", cfg.Profile.Name)
}

func TestLoadConfigRestModeRequiresURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  mode: rest\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "config.yaml")

	want := defaultAppConfig()
	want.Profile.UserID = "user-7"
	want.Display.Theme = "dark"
	require.NoError(t, SaveConfig(path, want))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "user-7", got.Profile.UserID)
	assert.Equal(t, "dark", got.Display.Theme)
	assert.Equal(t, want.Backend.Mode, got.Backend.Mode)
}
