// Package config handles the configuration of the credential manager.
// It loads the YAML config file and resolves where the store file lives.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vault-cli/credman/internal/vault"
)

// Environment variables
const (
	// EnvStorePath overrides the store file location
	EnvStorePath = "CMAN_DBFILE"
	// EnvDebug enables debug logging when set to a truthy value
	EnvDebug = "CREDMAN_DEBUG"
)

// DefaultStoreFile is the store file name used under the home directory
const DefaultStoreFile = ".creds.db"

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents the credential manager configuration
type Config struct {
	StorePath      string        `yaml:"store_path"`
	OutputFormat   string        `yaml:"output_format"`
	ClipboardTTL   time.Duration `yaml:"clipboard_ttl"`
	PasswordLength int           `yaml:"password_length"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
	KDF            KDFConfig     `yaml:"kdf"`
}

// KDFConfig represents KDF parameters for new stores
type KDFConfig struct {
	Memory      uint32 `yaml:"memory"`
	Iterations  uint32 `yaml:"iterations"`
	Parallelism uint8  `yaml:"parallelism"`
}

// Params converts the config into Argon2id parameters.
func (k KDFConfig) Params() vault.Argon2Params {
	return vault.Argon2Params{
		Memory:      k.Memory,
		Iterations:  k.Iterations,
		Parallelism: k.Parallelism,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	params := vault.DefaultArgon2Params()
	return &Config{
		OutputFormat:   FormatText,
		ClipboardTTL:   30 * time.Second,
		PasswordLength: 16,
		OpenTimeout:    5 * time.Second,
		KDF: KDFConfig{
			Memory:      params.Memory,
			Iterations:  params.Iterations,
			Parallelism: params.Parallelism,
		},
	}
}

// DefaultConfigPath returns $HOME/.config/credman/config.yaml
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "credman", "config.yaml")
}

// LoadConfig loads configuration from file. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, configPath string) error {
	cleanPath := filepath.Clean(configPath)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.OutputFormat)
	}
	if c.PasswordLength < 1 || c.PasswordLength > 255 {
		return fmt.Errorf("password_length must be between 1 and 255, got %d", c.PasswordLength)
	}
	if c.ClipboardTTL < 0 {
		return errors.New("clipboard_ttl cannot be negative")
	}
	if c.OpenTimeout < 0 {
		return errors.New("open_timeout cannot be negative")
	}
	if err := vault.ValidateArgon2Params(c.KDF.Params()); err != nil {
		return fmt.Errorf("kdf: %w", err)
	}
	return nil
}

// ResolveStorePath picks the store file location: the flag value, then
// $CMAN_DBFILE, then store_path from the config, then ~/.creds.db.
func (c *Config) ResolveStorePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(EnvStorePath); env != "" {
		return env, nil
	}
	if c.StorePath != "" {
		return expandHome(c.StorePath)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultStoreFile), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !hasHomePrefix(path) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func hasHomePrefix(path string) bool {
	return len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator)
}
