// Package main provides the entry point for the Aprofinder map viewer.
package main

import (
	"context"
	"os"

	"aprofinder/internal/app"
	"aprofinder/internal/version"
	"aprofinder/ui/canvas"
	"aprofinder/ui/mainwindow"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog/log"
)

const appID = "com.aprofinder.viewer"

func main() {
	// Optional argument: the directory holding aprofinder.cfg.json.
	configDir := ""
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	env, err := app.Bootstrap(app.EnvOptions{Name: "aprofinder", ConfigDir: configDir})
	if err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}
	defer env.Close()
	logger := env.Log
	logger.Info().Str("version", version.String()).Msg("Starting Aprofinder")

	auth, err := env.Authorizer()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid admin configuration")
	}
	if !auth.Available() {
		logger.Info().Msg("No admin passcode configured; admin mode disabled")
	}

	if err := canvas.SetPinColors(env.Config.UI.AdminPinColor, env.Config.UI.VisitorPinColor); err != nil {
		logger.Warn().Err(err).Msg("Ignoring pin colour setting")
	}

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&mainwindow.MapTheme{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vp := env.Config.ViewportSettings()
	pins := canvas.NewPinLayer()
	state := app.NewState(app.Options{
		Viewport: vp,
		Overlay:  env.Config.OverlaySettings(),
		Markers:  pins,
		Points:   env.Points,
		Catalog:  env.Catalog(),
		Loader:   env.Loader(),
		Prefs:    env.Prefs,
		Auth:     auth,
		Log:      logger,
	})
	state.Viewport.SetMobile(env.Config.Viewport.Mobile || fyne.CurrentDevice().IsMobile())

	win := mainwindow.New(ctx, fyneApp, state, pins, env.Prefs, mainwindow.Options{
		ResizeDebounce:      env.Config.UI.ResizeDebounce,
		NotificationTimeout: env.Config.UI.NotificationTimeout,
	})

	if m, ok := state.InitialMap(); ok {
		if err := state.SelectMap(ctx, m.ID); err != nil {
			logger.Error().Err(err).Str("map", m.ID).Msg("Failed to select initial map")
		}
	} else {
		logger.Warn().Msg("No maps configured")
	}

	win.ShowAndRun()

	if state.IsAdmin() {
		if err := state.DisableAdmin(); err != nil {
			logger.Error().Err(err).Msg("Failed to save points on exit")
		}
	}
	logger.Info().Msg("Exiting")
}
