package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// CorruptSuffix is appended to a store file that could not be parsed when
// it is moved aside.
const CorruptSuffix = ".corrupt"

// File keeps every key in a single JSON object on disk. Each write
// rewrites the whole file through a temporary file and a rename.
type File struct {
	mu     sync.RWMutex
	values map[string]string
	path   string
	closed bool
}

// OpenFile loads the store at path. A missing file yields an empty store.
// A malformed file is moved to path+CorruptSuffix and the store starts
// empty; only a file that cannot be read at all is an error.
func OpenFile(path string, log zerolog.Logger) (*File, error) {
	f := &File{
		values: make(map[string]string),
		path:   path,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		f.values = make(map[string]string)
		aside := path + CorruptSuffix
		if rerr := os.Rename(path, aside); rerr != nil {
			log.Warn().Err(err).AnErr("rename", rerr).Str("file", path).
				Msg("Storage file is corrupt; starting empty")
			return f, nil
		}
		log.Warn().Err(err).Str("file", path).Str("moved", aside).
			Msg("Storage file is corrupt; moved aside and starting empty")
	}
	return f, nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Get returns the value stored under key.
func (f *File) Get(key string) ([]byte, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, false, ErrClosed
	}
	v, ok := f.values[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// Set stores value under key and writes the file. On a write failure the
// previous value is restored.
func (f *File) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	prev, had := f.values[key]
	f.values[key] = string(value)
	if err := f.save(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

// Delete removes key and writes the file.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	prev, had := f.values[key]
	if !had {
		return nil
	}
	delete(f.values, key)
	if err := f.save(); err != nil {
		f.values[key] = prev
		return err
	}
	return nil
}

// Close marks the store closed. Every write is already on disk.
func (f *File) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// save must be called with mu held.
func (f *File) save() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: replace %s: %w", f.path, err)
	}
	return nil
}
