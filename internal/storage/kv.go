// Package storage provides the local key/value store that backs point
// persistence and user preferences.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Backend types accepted by Open.
const (
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// KV is a string-keyed byte store. A missing key is not an error: Get
// reports it through the ok result.
type KV interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Config selects and locates a backend.
type Config struct {
	Type string
	Path string
}

// DefaultDir returns the per-user directory that holds the store when no
// path is configured.
func DefaultDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "aprofinder")
}

// Open creates the backend described by cfg. An empty path places the
// store under DefaultDir.
func Open(cfg Config, log zerolog.Logger) (KV, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Type))
	if kind == "" {
		kind = TypeFile
	}

	switch kind {
	case TypeMemory:
		return NewMemory(), nil
	case TypeFile:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(DefaultDir(), "storage.json")
		}
		return OpenFile(path, log)
	case TypeSQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(DefaultDir(), "storage.db")
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("storage: unknown backend type %q", cfg.Type)
	}
}
