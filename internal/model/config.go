package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Backend modes.
const (
	BackendModeLocal = "local"
	BackendModeRest  = "rest"
)

// BackendConfig selects and configures the remote persistence backend.
// Mode "local" keeps everything in a SQLite database on disk; mode "rest"
// talks to a hosted PostgREST-compatible backend at URL.
type BackendConfig struct {
	Mode   string `mapstructure:"mode" yaml:"mode"`
	URL    string `mapstructure:"url" yaml:"url"`
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// AIConfig holds settings for the Gemini assistant integration.
type AIConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// ProfileConfig identifies the local user. Every record in the backend is
// owned by exactly one user id; nothing is shared across users.
type ProfileConfig struct {
	UserID string `mapstructure:"user_id" yaml:"user_id"`
	Name   string `mapstructure:"name" yaml:"name"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	AI      AIConfig      `mapstructure:"ai" yaml:"ai"`
	Profile ProfileConfig `mapstructure:"profile" yaml:"profile"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/evolvedge/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "evolvedge", "config.yaml")
}

// DefaultDBPath returns the default location of the local SQLite database.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "evolvedge.db")
	}
	return filepath.Join(home, ".config", "evolvedge", "evolvedge.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{
			Mode:   BackendModeLocal,
			DBPath: DefaultDBPath(),
		},
		AI: AIConfig{
			Model:     "gemini-2.5-flash",
			MaxTokens: 1024,
		},
		Profile: ProfileConfig{
			UserID: "local",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("backend.mode", BackendModeLocal)
	v.SetDefault("backend.db_path", DefaultDBPath())
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("profile.user_id", "local")
	v.SetDefault("display.theme", "default")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Backend.Mode == BackendModeRest && cfg.Backend.URL == "" {
		return nil, fmt.Errorf("config %s: backend.url is required when backend.mode is %q", path, BackendModeRest)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("ai", cfg.AI)
	v.Set("profile", cfg.Profile)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
