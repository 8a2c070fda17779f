package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"aprofinder/internal/maps"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfgJSON := `{
		"logLevel": "debug",
		"storage": { "type": "sqlite", "path": "/tmp/pins.db" },
		"viewport": { "maxScale": 20 },
		"ui": { "resizeDebounce": "250ms" },
		"maps": [
			{ "id": "maps/centro.svg", "name": "Centro" },
			{ "id": "https://example.com/norte.png", "name": "Norte" }
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfgJSON), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "/tmp/pins.db", cfg.Storage.Path)
	assert.Equal(t, "mapPoints", cfg.Storage.Key)
	assert.Equal(t, 20.0, cfg.Viewport.MaxScale)
	assert.Equal(t, 0.1, cfg.Viewport.MinScale)
	assert.Equal(t, 250*time.Millisecond, cfg.UI.ResizeDebounce)
	assert.Equal(t, []maps.Map{
		{ID: "maps/centro.svg", Name: "Centro"},
		{ID: "https://example.com/norte.png", Name: "Norte"},
	}, cfg.Maps)
	assert.Equal(t, filepath.Join(dir, FileName), UsedFile())
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "file", cfg.Storage.Type)
	assert.Equal(t, 0.1, cfg.Viewport.InitialScale)
	assert.Equal(t, 50.0, cfg.Viewport.MaxScale)
	assert.Equal(t, 1.5, cfg.Viewport.ButtonStep)
	assert.Equal(t, 1.3, cfg.Viewport.MobileButtonStep)
	assert.Equal(t, 768.0, cfg.Viewport.NarrowWidth)
	assert.Equal(t, 20.0, cfg.Overlay.HitRadius)
	assert.Equal(t, 40.0, cfg.Overlay.MarginTop)
	assert.Equal(t, 100*time.Millisecond, cfg.UI.ResizeDebounce)
	assert.Equal(t, 3*time.Second, cfg.UI.NotificationTimeout)
	assert.Equal(t, "#ff6b6b", cfg.UI.AdminPinColor)
	assert.Equal(t, "#4CAF50", cfg.UI.VisitorPinColor)
	assert.Empty(t, cfg.Maps)
	assert.Empty(t, cfg.Admin.PasscodeHash)
	assert.Equal(t, "", UsedFile())
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"logLevel": `), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APROFINDER_STORAGE_TYPE", "memory")
	t.Setenv("APROFINDER_VIEWPORT_MAXSCALE", "8")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 8.0, cfg.Viewport.MaxScale)
}

func TestSettingsConversions(t *testing.T) {
	t.Cleanup(viper.Reset)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	vp := cfg.ViewportSettings()
	assert.Equal(t, 0.1, vp.MinScale)
	assert.Equal(t, 50.0, vp.MaxScale)

	ov := cfg.OverlaySettings()
	assert.Equal(t, 30.0, ov.Margins.Left)
	assert.Equal(t, 30.0, ov.Margins.Bottom)

	st := cfg.StorageSettings()
	assert.Equal(t, "file", st.Type)
}
