// Package mainwindow provides the main application window.
package mainwindow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"aprofinder/internal/app"
	"aprofinder/internal/exchange"
	"aprofinder/internal/maps"
	"aprofinder/internal/points"
	"aprofinder/internal/storage"
	"aprofinder/internal/version"
	"aprofinder/ui/canvas"
	"aprofinder/ui/dialogs"
	"aprofinder/ui/panels"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fynestorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir      = "lastDirectory"
	prefKeyWindowWidth  = "windowWidth"
	prefKeyWindowHeight = "windowHeight"
)

const appTitle = "Aprofinder"

// Options tunes the window.
type Options struct {
	ResizeDebounce      time.Duration
	NotificationTimeout time.Duration
}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	state  *app.State
	prefs  *storage.Prefs
	opts   Options
	ctx    context.Context
	canvas *canvas.MapCanvas
	search *panels.SearchPanel

	mapSelect *widget.Select
	statusBar *widget.Label
	notice    *fynecanvas.Text
	noticeGen atomic.Int64

	// Items that follow the admin flag
	adminBtn   *widget.Button
	adminItem  *fyne.MenuItem
	exportItem *fyne.MenuItem
	importItem *fyne.MenuItem
}

// New creates the main window. pins must be the marker factory state was
// created with.
func New(ctx context.Context, fyneApp fyne.App, state *app.State, pins *canvas.PinLayer,
	prefs *storage.Prefs, opts Options) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  prefs,
		opts:   opts,
		ctx:    ctx,
	}

	mw.setupUI(pins)
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.restoreSize()
	mw.SetCloseIntercept(mw.Close)

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI(pins *canvas.PinLayer) {
	mw.canvas = canvas.NewMapCanvas(mw.state, pins, mw.opts.ResizeDebounce)
	mw.canvas.OnTap(mw.onCanvasTap)

	mw.search = panels.NewSearchPanel(mw.state)
	mw.search.OnSelect(mw.onGoToPoint)

	mw.statusBar = widget.NewLabel(mw.state.StatusText())
	mw.notice = fynecanvas.NewText("", theme.ForegroundColor())
	mw.notice.Alignment = fyne.TextAlignTrailing

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar,   // top
		nil,       // bottom
		nil,       // left
		nil,       // right
		mw.canvas, // center
	)

	split := container.NewHSplit(mw.search.Container(), canvasArea)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil, // top
		container.NewPadded(container.NewBorder(nil, nil, nil, mw.notice, mw.statusBar)), // bottom
		nil,   // left
		nil,   // right
		split, // center
	)

	mw.SetContent(content)
}

// createToolbar creates the map selector, zoom controls and admin toggle.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.mapSelect = widget.NewSelect(mw.state.Catalog.Labels(), func(label string) {
		m, ok := mw.state.Catalog.ByLabel(label)
		if !ok || m.ID == mw.state.ActiveMap().ID {
			return
		}
		if err := mw.state.SelectMap(mw.ctx, m.ID); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
	mw.mapSelect.PlaceHolder = "Seleccionar mapa"

	zoomOutBtn := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), mw.onZoomOut)
	zoomInBtn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), mw.onZoomIn)
	fitBtn := widget.NewButtonWithIcon("Ajustar", theme.ZoomFitIcon(), mw.onFit)
	resetBtn := widget.NewButtonWithIcon("Restablecer", theme.ViewRefreshIcon(), mw.onReset)

	mw.adminBtn = widget.NewButtonWithIcon("Administrar", theme.AccountIcon(), mw.onToggleAdmin)
	if !mw.state.AdminAvailable() {
		mw.adminBtn.Disable()
	}

	return container.NewHBox(
		widget.NewLabel("Mapa:"),
		mw.mapSelect,
		widget.NewSeparator(),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
		resetBtn,
		widget.NewSeparator(),
		mw.adminBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.exportItem = fyne.NewMenuItem("Exportar puntos...", mw.onExport)
	mw.importItem = fyne.NewMenuItem("Importar puntos...", mw.onImport)

	fileMenu := fyne.NewMenu("Archivo",
		mw.exportItem,
		mw.importItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Salir", func() { mw.app.Quit() }),
	)

	viewMenu := fyne.NewMenu("Ver",
		fyne.NewMenuItem("Acercar", mw.onZoomIn),
		fyne.NewMenuItem("Alejar", mw.onZoomOut),
		fyne.NewMenuItem("Ajustar a la ventana", mw.onFit),
		fyne.NewMenuItem("Restablecer vista", mw.onReset),
	)

	mw.adminItem = fyne.NewMenuItem("Modo Administrador", mw.onToggleAdmin)
	mw.adminItem.Disabled = !mw.state.AdminAvailable()
	adminMenu := fyne.NewMenu("Administrar", mw.adminItem)

	helpMenu := fyne.NewMenu("Ayuda",
		fyne.NewMenuItem("Acerca de", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, adminMenu, helpMenu))
	mw.updateAdminControls(false)
}

// setupShortcuts binds the keyboard zoom keys.
func (mw *MainWindow) setupShortcuts() {
	mw.Canvas().SetOnTypedRune(func(r rune) {
		if mw.Canvas().Focused() != nil {
			return
		}
		switch r {
		case '+', '=':
			mw.onZoomIn()
		case '-':
			mw.onZoomOut()
		case '0':
			mw.onReset()
		}
	})
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventViewChanged, func(interface{}) {
		mw.updateStatus()
	})

	mw.state.On(app.EventMapSelected, func(data interface{}) {
		if m, ok := data.(maps.Map); ok {
			mw.mapSelect.SetSelected(m.Label())
		}
		mw.updateStatus()
	})

	mw.state.On(app.EventMapLoaded, func(interface{}) {
		mw.SetTitle(appTitle + " - " + mw.state.ActiveMap().Label())
		mw.updateStatus()
	})

	mw.state.On(app.EventMapLoadFailed, func(data interface{}) {
		mw.updateStatus()
		if err, ok := data.(error); ok {
			mw.showNotice(app.Failure(err.Error()))
		}
	})

	mw.state.On(app.EventAdminChanged, func(data interface{}) {
		admin, _ := data.(bool)
		mw.updateAdminControls(admin)
	})

	mw.state.On(app.EventNotification, func(data interface{}) {
		if n, ok := data.(app.Notification); ok {
			mw.showNotice(n)
		}
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus() {
	mw.statusBar.SetText(mw.state.StatusText())
}

// showNotice shows a notification in the status bar until the timeout.
func (mw *MainWindow) showNotice(n app.Notification) {
	gen := mw.noticeGen.Add(1)

	switch n.Kind {
	case app.NotifySuccess:
		mw.notice.Color = canvas.VisitorPinColor
	case app.NotifyError:
		mw.notice.Color = canvas.AdminPinColor
	default:
		mw.notice.Color = theme.ForegroundColor()
	}
	mw.notice.Text = n.Message
	mw.notice.Refresh()

	if mw.opts.NotificationTimeout <= 0 {
		return
	}
	time.AfterFunc(mw.opts.NotificationTimeout, func() {
		if mw.noticeGen.Load() != gen {
			return
		}
		mw.notice.Text = ""
		mw.notice.Refresh()
	})
}

func (mw *MainWindow) updateAdminControls(admin bool) {
	if admin {
		mw.adminBtn.SetText("Salir de Administrador")
		mw.adminBtn.Importance = widget.DangerImportance
		mw.adminItem.Label = "Salir de Modo Administrador"
	} else {
		mw.adminBtn.SetText("Administrar")
		mw.adminBtn.Importance = widget.MediumImportance
		mw.adminItem.Label = "Modo Administrador"
	}
	mw.adminBtn.Refresh()
	mw.exportItem.Disabled = !admin
	mw.importItem.Disabled = !admin
	if menu := mw.MainMenu(); menu != nil {
		menu.Refresh()
	}
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := fynestorage.ListerForURI(fynestorage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	_ = mw.prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) restoreSize() {
	w := mw.prefs.FloatWithFallback(prefKeyWindowWidth, 1200)
	h := mw.prefs.FloatWithFallback(prefKeyWindowHeight, 800)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))
}

// SavePreferences writes the window size.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	if size.Width <= 0 || size.Height <= 0 {
		return
	}
	_ = mw.prefs.SetFloat(prefKeyWindowWidth, float64(size.Width))
	_ = mw.prefs.SetFloat(prefKeyWindowHeight, float64(size.Height))
}

// Close stops background work before closing the window.
func (mw *MainWindow) Close() {
	mw.SavePreferences()
	mw.canvas.Stop()
	mw.Window.Close()
}

// Canvas action handlers

func (mw *MainWindow) onCanvasTap(res app.TapResult) {
	switch res.Action {
	case app.TapPresent:
		dialogs.ShowPoint(res.Point, mw.Window)
	case app.TapEdit:
		dialogs.NewPointEditDialog(res.Point, mw.Window,
			func(p points.Point) error {
				_, err := mw.state.UpdatePoint(p)
				return ignorePersist(err)
			},
			func(p points.Point) error {
				return ignorePersist(mw.state.DeletePoint(p.Key()))
			}).Show()
	case app.TapAdd:
		draft := points.Point{X: res.ImageX, Y: res.ImageY, MapID: mw.state.ActiveMap().ID}
		dialogs.NewPointEditDialog(draft, mw.Window,
			func(p points.Point) error {
				_, err := mw.state.AddPoint(p)
				return ignorePersist(err)
			}, nil).Show()
	}
}

// ignorePersist drops storage failures; the state already notified them
// and kept the change in memory.
func ignorePersist(err error) error {
	if errors.Is(err, points.ErrPersist) {
		return nil
	}
	return err
}

func (mw *MainWindow) onGoToPoint(p points.Point) {
	if err := mw.state.GoToPoint(mw.ctx, p); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

// Menu action handlers

func (mw *MainWindow) onZoomIn() {
	mw.state.Viewport.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.state.Viewport.ZoomOut()
}

func (mw *MainWindow) onFit() {
	mw.state.Viewport.FitToScreen()
}

func (mw *MainWindow) onReset() {
	mw.state.Viewport.ResetView()
}

func (mw *MainWindow) onToggleAdmin() {
	if mw.state.IsAdmin() {
		if err := mw.state.DisableAdmin(); err != nil {
			dialog.ShowError(err, mw.Window)
		}
		return
	}
	dialogs.ShowPasscode(mw.Window, func(code string) error {
		if err := mw.state.EnableAdmin(code); err != nil {
			if errors.Is(err, app.ErrWrongPasscode) {
				return errors.New("código incorrecto")
			}
			return err
		}
		return nil
	})
}

func (mw *MainWindow) onExport() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		mw.saveLastDir(writer.URI().Path())
		if err := mw.state.Export(writer); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName(exchange.FileName(time.Now()))
	fd.SetFilter(fynestorage.NewExtensionFileFilter([]string{".json"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onImport() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.saveLastDir(reader.URI().Path())
		mw.confirmImport(data)
	}, mw.Window)
	fd.SetFilter(fynestorage.NewExtensionFileFilter([]string{".json"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// confirmImport asks before replacing every point with the file contents.
// The confirm dialog is asynchronous, so the file is decoded once to count
// the points and imported again after the answer.
func (mw *MainWindow) confirmImport(data []byte) {
	doc, err := exchange.Decode(bytes.NewReader(data))
	if err != nil {
		// Import reports the failure the same way.
		_, _ = mw.state.Import(bytes.NewReader(data), nil)
		return
	}
	msg := fmt.Sprintf("¿Reemplazar todos los puntos actuales con %d puntos importados?", len(doc.Points))
	dialog.ShowConfirm("Importar puntos", msg, func(ok bool) {
		if !ok {
			return
		}
		// Confirmed above; the state notifies the outcome.
		_, _ = mw.state.Import(bytes.NewReader(data), nil)
	}, mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("Acerca de "+appTitle,
		fmt.Sprintf("%s %s\n\n"+
			"Mapa de trabajadores y negocios locales.\n\n"+
			"%d mapas, %d puntos.",
			appTitle, version.String(), mw.state.Catalog.Len(), mw.state.Points.Len()),
		mw.Window)
}
