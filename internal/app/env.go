package app

import (
	"errors"
	"fmt"
	"io"

	"aprofinder/internal/config"
	"aprofinder/internal/logging"
	"aprofinder/internal/maps"
	"aprofinder/internal/points"
	"aprofinder/internal/storage"

	"github.com/rs/zerolog"
)

// Env is the configured, storage-backed core shared by the window and
// the command-line tool.
type Env struct {
	Config config.Config
	Log    zerolog.Logger
	KV     storage.KV
	Prefs  *storage.Prefs
	Points *points.Store

	logCloser io.Closer
}

// EnvOptions locates the configuration and the console log output.
type EnvOptions struct {
	Name      string
	ConfigDir string
	Console   io.Writer
}

// Bootstrap loads the configuration, opens the logger and the store, and
// loads the points.
func Bootstrap(opts EnvOptions) (*Env, error) {
	if opts.ConfigDir == "" {
		opts.ConfigDir = storage.DefaultDir()
	}
	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	log, closer, err := logging.New(opts.Name, logging.Options{
		Level:   cfg.LogLevel,
		LogsDir: cfg.LogsDir,
		Console: opts.Console,
	})
	if err != nil {
		return nil, err
	}
	if used := config.UsedFile(); used != "" {
		log.Info().Str("file", used).Msg("Loaded configuration")
	}

	kv, err := storage.Open(cfg.StorageSettings(), log)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info().Str("type", cfg.Storage.Type).Msg("Opened storage")

	return &Env{
		Config:    cfg,
		Log:       log,
		KV:        kv,
		Prefs:     storage.NewPrefs(kv),
		Points:    points.Open(kv, cfg.Storage.Key, log),
		logCloser: closer,
	}, nil
}

// Catalog returns the configured maps.
func (e *Env) Catalog() *maps.Catalog {
	return maps.NewCatalog(e.Config.Maps)
}

// Authorizer builds the admin passcode check from the configuration.
func (e *Env) Authorizer() (*Authorizer, error) {
	return NewAuthorizer(e.Config.Admin.PasscodeHash, e.Config.Admin.Passcode)
}

// Loader creates a map loader with the configured timeout.
func (e *Env) Loader() *maps.Loader {
	return maps.NewLoader(e.Config.UI.LoadTimeout, e.Log)
}

// Close releases the store and the log file.
func (e *Env) Close() error {
	return errors.Join(e.KV.Close(), e.logCloser.Close())
}
