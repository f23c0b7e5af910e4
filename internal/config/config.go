// Package config loads termbridge configuration from a YAML file in
// the user config dir with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Environment variables that govern whether the router activates the
// Claude adapter at all.
const (
	EnvAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	EnvAnthropicBaseURL = "ANTHROPIC_BASE_URL"
	EnvModel            = "TERMBRIDGE_MODEL"
)

type Config struct {
	Model     string          `mapstructure:"model"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Aider     AiderConfig     `mapstructure:"aider"`
	Session   SessionConfig   `mapstructure:"session"`
}

// AnthropicConfig configures the Claude adapter endpoint. Both fields
// are required before the router will hand a request to the adapter.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// AiderConfig configures the external aider subprocess.
type AiderConfig struct {
	Command        string        `mapstructure:"command"` // Binary name or path (default "aider")
	Model          string        `mapstructure:"model"`   // Passed as --model when set
	Args           []string      `mapstructure:"args"`    // Extra arguments
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
}

// SessionConfig configures local generation logging.
type SessionConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // Override default DB location
}

// GetConfigDir returns the termbridge config directory.
func GetConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "termbridge"), nil
}

// GetDataDir returns the termbridge data directory (session DB).
func GetDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "termbridge"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	viper.SetDefault("aider.command", "aider")
	viper.SetDefault("session.enabled", true)

	// Read config file (optional - won't error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides fills unset values from the environment. The env
// names are the external contract; the config file is a convenience.
func applyEnvOverrides(cfg *Config) {
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv(EnvAnthropicAPIKey)
	}
	if cfg.Anthropic.BaseURL == "" {
		cfg.Anthropic.BaseURL = os.Getenv(EnvAnthropicBaseURL)
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv(EnvModel)
	}
}
