// Package config loads application settings from aprofinder.cfg.json and
// APROFINDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aprofinder/internal/maps"
	"aprofinder/internal/overlay"
	"aprofinder/internal/storage"
	"aprofinder/internal/viewport"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "aprofinder.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. APROFINDER_STORAGE_TYPE.
const EnvPrefix = "APROFINDER"

type StorageConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
	Key  string `mapstructure:"key"`
}

type ViewportConfig struct {
	MinScale         float64 `mapstructure:"minScale"`
	MaxScale         float64 `mapstructure:"maxScale"`
	InitialScale     float64 `mapstructure:"initialScale"`
	WheelStep        float64 `mapstructure:"wheelStep"`
	ButtonStep       float64 `mapstructure:"buttonStep"`
	MobileButtonStep float64 `mapstructure:"mobileButtonStep"`
	NarrowWidth      float64 `mapstructure:"narrowWidth"`
	Mobile           bool    `mapstructure:"mobile"`
}

type OverlayConfig struct {
	HitRadius    float64 `mapstructure:"hitRadius"`
	MarginLeft   float64 `mapstructure:"marginLeft"`
	MarginRight  float64 `mapstructure:"marginRight"`
	MarginTop    float64 `mapstructure:"marginTop"`
	MarginBottom float64 `mapstructure:"marginBottom"`
}

type UIConfig struct {
	ResizeDebounce      time.Duration `mapstructure:"resizeDebounce"`
	NotificationTimeout time.Duration `mapstructure:"notificationTimeout"`
	LoadTimeout         time.Duration `mapstructure:"loadTimeout"`
	AdminPinColor       string        `mapstructure:"adminPinColor"`
	VisitorPinColor     string        `mapstructure:"visitorPinColor"`
}

// AdminConfig holds the admin passcode. PasscodeHash is a bcrypt hash;
// Passcode is accepted in plain text when no hash is set. With neither,
// admin mode is unavailable.
type AdminConfig struct {
	PasscodeHash string `mapstructure:"passcodeHash"`
	Passcode     string `mapstructure:"passcode"`
}

// Config is the typed view of all settings.
type Config struct {
	LogLevel string         `mapstructure:"logLevel"`
	LogsDir  string         `mapstructure:"logsDir"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	Overlay  OverlayConfig  `mapstructure:"overlay"`
	UI       UIConfig       `mapstructure:"ui"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Maps     []maps.Map     `mapstructure:"maps"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "")

	viper.SetDefault("storage.type", storage.TypeFile)
	viper.SetDefault("storage.path", "")
	viper.SetDefault("storage.key", "mapPoints")

	vp := viewport.DefaultConfig()
	viper.SetDefault("viewport.minScale", vp.MinScale)
	viper.SetDefault("viewport.maxScale", vp.MaxScale)
	viper.SetDefault("viewport.initialScale", vp.InitialScale)
	viper.SetDefault("viewport.wheelStep", vp.WheelStep)
	viper.SetDefault("viewport.buttonStep", vp.ButtonStep)
	viper.SetDefault("viewport.mobileButtonStep", vp.MobileButtonStep)
	viper.SetDefault("viewport.narrowWidth", vp.NarrowWidth)
	viper.SetDefault("viewport.mobile", false)

	ov := overlay.DefaultConfig()
	viper.SetDefault("overlay.hitRadius", ov.HitRadius)
	viper.SetDefault("overlay.marginLeft", ov.Margins.Left)
	viper.SetDefault("overlay.marginRight", ov.Margins.Right)
	viper.SetDefault("overlay.marginTop", ov.Margins.Top)
	viper.SetDefault("overlay.marginBottom", ov.Margins.Bottom)

	viper.SetDefault("ui.resizeDebounce", "100ms")
	viper.SetDefault("ui.notificationTimeout", "3s")
	viper.SetDefault("ui.loadTimeout", "30s")
	viper.SetDefault("ui.adminPinColor", "#ff6b6b")
	viper.SetDefault("ui.visitorPinColor", "#4CAF50")

	viper.SetDefault("admin.passcodeHash", "")
	viper.SetDefault("admin.passcode", "")

	viper.SetDefault("maps", []map[string]interface{}{})
}

// Load sets defaults, reads FileName from configDir when present, applies
// environment overrides and returns the result. A missing file is not an
// error; a malformed one is.
func Load(configDir string) (Config, error) {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.SetConfigType("json")
	if configDir != "" {
		viper.AddConfigPath(configDir)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}

// UsedFile returns the config file that was read, or "" when defaults
// and the environment were used alone.
func UsedFile() string {
	return viper.ConfigFileUsed()
}

// ViewportSettings converts to the viewport controller configuration.
func (c Config) ViewportSettings() viewport.Config {
	v := c.Viewport
	return viewport.Config{
		MinScale:         v.MinScale,
		MaxScale:         v.MaxScale,
		InitialScale:     v.InitialScale,
		WheelStep:        v.WheelStep,
		ButtonStep:       v.ButtonStep,
		MobileButtonStep: v.MobileButtonStep,
		NarrowWidth:      v.NarrowWidth,
	}
}

// OverlaySettings converts to the overlay synchronizer configuration.
func (c Config) OverlaySettings() overlay.Config {
	o := c.Overlay
	return overlay.Config{
		HitRadius: o.HitRadius,
		Margins: overlay.Margins{
			Left:   o.MarginLeft,
			Right:  o.MarginRight,
			Top:    o.MarginTop,
			Bottom: o.MarginBottom,
		},
	}
}

// StorageSettings converts to the storage backend configuration.
func (c Config) StorageSettings() storage.Config {
	return storage.Config{Type: c.Storage.Type, Path: c.Storage.Path}
}
