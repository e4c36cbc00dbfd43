package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedDSN is returned by Open for unknown DSN schemes.
var ErrUnsupportedDSN = errors.New("unsupported store dsn")

// Open opens the local store described by dsn.
// An empty dsn, a plain path, or a file/sqlite URL selects SQLite;
// postgres URLs select PostgreSQL.
func Open(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		path, err := DefaultSQLitePath()
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(path)
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse store dsn: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "":
		return NewSQLiteStore(dsn)
	case "file", "sqlite":
		path := parsed.Opaque
		if path == "" {
			path = parsed.Host + parsed.Path
		}
		if path == "" {
			return nil, fmt.Errorf("%w: missing path in %q", ErrUnsupportedDSN, dsn)
		}
		return NewSQLiteStore(path)
	case "postgres", "postgresql":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("%w: scheme %s", ErrUnsupportedDSN, parsed.Scheme)
	}
}

// DefaultSQLitePath returns the default database path: ~/.config/folderlink/folderlink.db
func DefaultSQLitePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "folderlink", "folderlink.db"), nil
}
