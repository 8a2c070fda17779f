package exchange

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aprofinder/internal/points"
	"aprofinder/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportTime = time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("CST", -6*3600))

func seededStore(t *testing.T) *points.Store {
	t.Helper()
	s := points.Open(storage.NewMemory(), "", zerolog.Nop())
	require.NoError(t, s.SaveAll([]points.Point{
		{ID: "1", MapID: "mapa1", X: 1, Y: 2, BusinessName: "B", WorkerName: "W", Profession: "P", Rating: 3},
		{ID: "2", MapID: "mapa2", X: 3, Y: 4, BusinessName: "B2", WorkerName: "W2", Profession: "P2"},
	}))
	return s
}

func TestFileName_UsesUTCDate(t *testing.T) {
	assert.Equal(t, "puntos_mapa_2025-03-10.json", FileName(exportTime))
}

func TestExport_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, seededStore(t).All(), exportTime))

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	assert.Equal(t, "1.0", generic["version"])
	assert.Equal(t, "2025-03-10T05:30:00.000Z", generic["exportDate"])
	assert.Len(t, generic["points"], 2)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \""), "indented output")
}

func TestExport_EmptyWritesArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, nil, exportTime))
	assert.Contains(t, buf.String(), `"points": []`)
}

func TestRoundTrip(t *testing.T) {
	src := seededStore(t)
	path := filepath.Join(t.TempDir(), FileName(exportTime))
	require.NoError(t, ExportFile(path, src.All(), exportTime))

	dst := points.Open(storage.NewMemory(), "", zerolog.Nop())
	var asked int
	n, err := ImportFile(path, dst, func(count int) bool {
		asked = count
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, asked)
	assert.Equal(t, src.All(), dst.All())
}

func TestImport_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"no points key", `{"version":"1.0"}`, ErrNoPoints},
		{"points is null", `{"points":null}`, ErrNoPoints},
		{"points is object", `{"points":{"id":"1"}}`, ErrNoPoints},
		{"missing id", `{"points":[{"mapId":"m"}]}`, ErrInvalidRecord},
		{"missing mapId", `{"points":[{"id":"1"}]}`, ErrInvalidRecord},
		{"duplicate key", `{"points":[{"id":"1","mapId":"m"},{"id":"1","mapId":"m"}]}`, ErrInvalidRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(t)
			before := store.All()

			_, err := Import(strings.NewReader(tt.body), store, func(int) bool { return true })
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, store.All())
		})
	}
}

func TestImport_MalformedJSON(t *testing.T) {
	store := seededStore(t)
	before := store.All()

	_, err := Import(strings.NewReader(`{"points": [`), store, nil)
	assert.Error(t, err)
	assert.Equal(t, before, store.All())
}

func TestImport_Declined(t *testing.T) {
	store := seededStore(t)
	before := store.All()

	_, err := Import(strings.NewReader(`{"points":[]}`), store, func(int) bool { return false })
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, before, store.All())
}

func TestImport_EmptyArrayReplaces(t *testing.T) {
	store := seededStore(t)

	n, err := Import(strings.NewReader(`{"points":[]}`), store, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, store.Len())
}

func TestImportFile_Missing(t *testing.T) {
	_, err := ImportFile(filepath.Join(t.TempDir(), "nope.json"), seededStore(t), nil)
	assert.True(t, os.IsNotExist(err))
}
