package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/nikbrunner/folderlink/internal/config"
)

// New builds a logger writing to w as configured.
func New(w io.Writer, cfg config.Logger) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Plaintext {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetupDefault installs a stderr logger as the slog default.
func SetupDefault(cfg config.Logger) *slog.Logger {
	log := New(os.Stderr, cfg)
	slog.SetDefault(log)
	return log
}
