package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := LoadConfig(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, *cfg, DefaultConfig())

	_, err = os.Stat(path)
	assert.NilError(t, err, "expected config file to be created")
}

func TestLoadConfig_AppliesDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"storeDsn": "postgres://localhost/folderlink", "logger": {"level": "DEBUG"}}`
	assert.NilError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := LoadConfig(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.StoreDSN, "postgres://localhost/folderlink")
	assert.Equal(t, cfg.Logger.Level, slog.LevelDebug)
	assert.Equal(t, cfg.API.URL, DefaultConfig().API.URL)
	assert.Equal(t, time.Duration(cfg.API.Timeout), 30*time.Second)
}

func TestLoadConfig_ParsesTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{"api": {"url": "https://example.test", "timeout": "5s"}}`), 0600))

	cfg, err := LoadConfig(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.API.URL, "https://example.test")
	assert.Equal(t, time.Duration(cfg.API.Timeout), 5*time.Second)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FOLDERLINK_API_URL", "https://api.example.test")
	t.Setenv("FOLDERLINK_API_TOKEN", "secret")
	t.Setenv("FOLDERLINK_TIMEOUT", "2s")
	t.Setenv("FOLDERLINK_LOG_LEVEL", "warn")
	t.Setenv("FOLDERLINK_LOG_PLAINTEXT", "no")

	cfg := DefaultConfig()
	assert.NilError(t, applyEnv(&cfg))
	assert.Equal(t, cfg.API.URL, "https://api.example.test")
	assert.Equal(t, cfg.API.Token, "secret")
	assert.Equal(t, time.Duration(cfg.API.Timeout), 2*time.Second)
	assert.Equal(t, cfg.Logger.Level, slog.LevelWarn)
	assert.Equal(t, cfg.Logger.Plaintext, false)
}

func TestApplyEnv_CollectsErrors(t *testing.T) {
	t.Setenv("FOLDERLINK_TIMEOUT", "soon")
	t.Setenv("FOLDERLINK_LOG_PLAINTEXT", "maybe")

	cfg := DefaultConfig()
	err := applyEnv(&cfg)
	assert.ErrorContains(t, err, "FOLDERLINK_TIMEOUT")
	assert.ErrorContains(t, err, "FOLDERLINK_LOG_PLAINTEXT")
}

func TestDuration_TextRoundTrip(t *testing.T) {
	var d Duration
	assert.NilError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, d.Duration(), 90*time.Second)

	text, err := d.MarshalText()
	assert.NilError(t, err)
	assert.Equal(t, string(text), "1m30s")

	assert.Assert(t, d.UnmarshalText([]byte("soon")) != nil)
}
