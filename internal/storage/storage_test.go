package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	file, err := OpenFile(filepath.Join(dir, "kv.json"), zerolog.Nop())
	require.NoError(t, err)
	db, err := OpenSQLite(filepath.Join(dir, "kv.db"))
	require.NoError(t, err)

	all := map[string]KV{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": db,
	}
	t.Cleanup(func() {
		for _, kv := range all {
			kv.Close()
		}
	})
	return all
}

func TestKV_Contract(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := kv.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set("mapPoints", []byte(`[{"id":"1"}]`)))
			got, ok, err := kv.Get("mapPoints")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"1"}]`, string(got))

			require.NoError(t, kv.Set("mapPoints", []byte(`[]`)))
			got, _, err = kv.Get("mapPoints")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			require.NoError(t, kv.Delete("mapPoints"))
			require.NoError(t, kv.Delete("mapPoints"))
			_, ok, err = kv.Get("mapPoints")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestKV_ClosedStore(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Close())

			_, _, err := kv.Get("k")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, kv.Set("k", nil), ErrClosed)
		})
	}
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kv.json")

	f, err := OpenFile(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, f.Set("lastMap", []byte(`"mapa1"`)))
	require.NoError(t, f.Close())

	f, err = OpenFile(path, zerolog.Nop())
	require.NoError(t, err)
	got, ok, err := f.Get("lastMap")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"mapa1"`, string(got))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")
}

func TestFile_MalformedStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	corrupt := []byte(`{"mapPoints": "[{\"id\":`)
	require.NoError(t, os.WriteFile(path, corrupt, 0o644))

	var logs bytes.Buffer
	f, err := OpenFile(path, zerolog.New(&logs))
	require.NoError(t, err)

	_, ok, err := f.Get("mapPoints")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "corrupt")

	moved, err := os.ReadFile(path + CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, corrupt, moved)
	assert.NoFileExists(t, path)

	require.NoError(t, f.Set("mapPoints", []byte(`[]`)))
	f, err = OpenFile(path, zerolog.Nop())
	require.NoError(t, err)
	got, ok, err := f.Get("mapPoints")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(got))
}

func TestFile_UnreadableIsError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := OpenFile(filepath.Join(blocker, "kv.json"), zerolog.Nop())
	assert.Error(t, err)
}

func TestFile_WriteFailureKeepsPreviousValue(t *testing.T) {
	sub := filepath.Join(t.TempDir(), "sub")
	f, err := OpenFile(filepath.Join(sub, "kv.json"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, f.Set("k", []byte("v1")))

	// Swap the directory for a regular file so the next write cannot land.
	require.NoError(t, os.RemoveAll(sub))
	require.NoError(t, os.WriteFile(sub, nil, 0o644))

	assert.Error(t, f.Set("k", []byte("v2")))
	got, ok, err := f.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", string(got))

	assert.Error(t, f.Set("new", []byte("x")))
	_, ok, err = f.Get("new")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Set("mapPoints", []byte(`[1,2,3]`)))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	got, ok, err := db.Get("mapPoints")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1,2,3]`, string(got))
}

func TestSQLite_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not sqlite "), 100), 0o644))

	_, err := OpenSQLite(path)
	assert.Error(t, err)
	assert.NoError(t, os.Remove(path))
}

func TestSQLite_InMemory(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Set("a", []byte("1")))
	got, ok, err := db.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", string(got))

	_, ok, err = db.Get("")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		want    interface{}
		wantErr bool
	}{
		{"default is file", Config{Path: filepath.Join(dir, "a.json")}, &File{}, false},
		{"file", Config{Type: "FILE", Path: filepath.Join(dir, "b.json")}, &File{}, false},
		{"sqlite", Config{Type: "sqlite", Path: filepath.Join(dir, "c.db")}, &SQLite{}, false},
		{"memory", Config{Type: " memory "}, &Memory{}, false},
		{"unknown", Config{Type: "redis"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, err := Open(tt.cfg, zerolog.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { kv.Close() })
			assert.IsType(t, tt.want, kv)
		})
	}
}

func TestPrefs(t *testing.T) {
	kv := NewMemory()
	p := NewPrefs(kv)

	assert.Equal(t, "", p.String("lastMap"))
	assert.Equal(t, 1024.0, p.FloatWithFallback("windowWidth", 1024))

	require.NoError(t, p.SetString("lastMap", "mapa2"))
	require.NoError(t, p.SetFloat("windowWidth", 1280.5))
	assert.Equal(t, "mapa2", p.String("lastMap"))
	assert.Equal(t, 1280.5, p.FloatWithFallback("windowWidth", 1024))

	raw, ok, err := kv.Get("pref.lastMap")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"mapa2"`, string(raw))

	require.NoError(t, p.SetString("lastMap", "  "))
	assert.Equal(t, "", p.String("lastMap"))
}

func TestPrefs_CorruptValueFallsBack(t *testing.T) {
	kv := NewMemory()
	require.NoError(t, kv.Set("pref.windowWidth", []byte("wide")))

	assert.Equal(t, 800.0, NewPrefs(kv).FloatWithFallback("windowWidth", 800))
}
