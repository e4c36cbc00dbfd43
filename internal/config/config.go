package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Duration is a time.Duration stored as a string such as "30s".
type Duration time.Duration

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// API configures the remote folder-invite endpoint.
type API struct {
	URL     string   `json:"url"`
	Token   string   `json:"token,omitempty"`
	Timeout Duration `json:"timeout"`
}

// Logger configures the default slog logger.
type Logger struct {
	Level     slog.Level `json:"level"`
	Plaintext bool       `json:"plaintext"`
}

// Config holds application configuration.
type Config struct {
	API      API    `json:"api"`
	StoreDSN string `json:"storeDsn"` // empty = default SQLite path
	Logger   Logger `json:"logger"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: API{
			URL:     "http://localhost:8080/api",
			Timeout: Duration(30 * time.Second),
		},
		Logger: Logger{
			Level:     slog.LevelInfo,
			Plaintext: true,
		},
	}
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if config.API.URL == "" {
		config.API.URL = defaults.API.URL
	}
	if config.API.Timeout <= 0 {
		config.API.Timeout = defaults.API.Timeout
	}

	return &config, nil
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfigFilePath returns the default config path: ~/.config/folderlink/config.json
func DefaultConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "folderlink", "config.json"), nil
}
