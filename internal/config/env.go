package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the JSON config at path and applies overrides from the
// environment. A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with FOLDERLINK_* variables that are set.
func applyEnv(cfg *Config) error {
	var errs []error

	if v, ok := lookup("FOLDERLINK_API_URL"); ok {
		cfg.API.URL = v
	}
	if v, ok := lookup("FOLDERLINK_API_TOKEN"); ok {
		cfg.API.Token = v
	}
	if v, ok := lookup("FOLDERLINK_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FOLDERLINK_TIMEOUT: %w", err))
		} else {
			cfg.API.Timeout = Duration(d)
		}
	}
	if v, ok := lookup("FOLDERLINK_STORE_DSN"); ok {
		cfg.StoreDSN = v
	}
	if v, ok := lookup("FOLDERLINK_LOG_LEVEL"); ok {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("FOLDERLINK_LOG_LEVEL: %w", err))
		} else {
			cfg.Logger.Level = level
		}
	}
	if v, ok := lookup("FOLDERLINK_LOG_PLAINTEXT"); ok {
		b, err := parseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FOLDERLINK_LOG_PLAINTEXT: %w", err))
		} else {
			cfg.Logger.Plaintext = b
		}
	}

	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q, want: true/false, yes/no, on/off, 1/0", s)
	}
}
