// Package app ties the viewport, overlay, point store and map loader
// together and exposes the operations the UI and CLI drive.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"aprofinder/internal/exchange"
	"aprofinder/internal/maps"
	"aprofinder/internal/overlay"
	"aprofinder/internal/points"
	"aprofinder/internal/storage"
	"aprofinder/internal/viewport"

	"github.com/rs/zerolog"
)

// PrefLastMap is the preference key holding the last selected map id.
const PrefLastMap = "lastMap"

var (
	// ErrNoMap is returned when an operation needs a selected, loaded map.
	ErrNoMap = errors.New("app: no map loaded")
	// ErrNotAdmin is returned for admin-only operations in visitor mode.
	ErrNotAdmin = errors.New("app: admin mode required")
	// ErrUnknownMap is returned when a map id is not in the catalog.
	ErrUnknownMap = errors.New("app: unknown map")
)

// EventType identifies different application events.
type EventType int

const (
	EventMapSelected   EventType = iota // data: maps.Map
	EventMapLoaded                      // data: *maps.Image
	EventMapLoadFailed                  // data: error
	EventPointsChanged                  // data: nil
	EventAdminChanged                   // data: bool
	EventViewChanged                    // data: viewport.State
	EventNotification                   // data: Notification
	EventPointFocused                   // data: points.Point
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Options wires the collaborators of a State.
type Options struct {
	Viewport viewport.Config
	Overlay  overlay.Config
	Markers  overlay.MarkerFactory

	Points  *points.Store
	Catalog *maps.Catalog
	Loader  *maps.Loader
	Prefs   *storage.Prefs
	Auth    *Authorizer
	Log     zerolog.Logger

	// Dispatch runs loader completions on the UI thread. Nil runs them on
	// the loader goroutine.
	Dispatch func(func())
}

// State holds the application state: the active map, the viewport, the
// markers and the admin flag. Listeners run synchronously on the
// goroutine that caused the event.
type State struct {
	mu sync.RWMutex

	Viewport *viewport.Controller
	Overlay  *overlay.Synchronizer
	Points   *points.Store
	Catalog  *maps.Catalog

	loader   *maps.Loader
	prefs    *storage.Prefs
	auth     *Authorizer
	log      zerolog.Logger
	dispatch func(func())

	activeMap maps.Map
	image     *maps.Image
	loading   bool
	loadErr   error
	admin     bool
	focus     *points.Key

	listeners map[EventType][]EventListener
}

// NewState creates the application state. The overlay follows every
// viewport change.
func NewState(opts Options) *State {
	s := &State{
		Viewport:  viewport.New(opts.Viewport),
		Points:    opts.Points,
		Catalog:   opts.Catalog,
		loader:    opts.Loader,
		prefs:     opts.Prefs,
		auth:      opts.Auth,
		log:       opts.Log.With().Str("component", "app").Logger(),
		dispatch:  opts.Dispatch,
		listeners: make(map[EventType][]EventListener),
	}
	if s.Catalog == nil {
		s.Catalog = maps.NewCatalog(nil)
	}
	if s.dispatch == nil {
		s.dispatch = func(fn func()) { fn() }
	}
	s.Overlay = overlay.New(s.Viewport, opts.Markers, opts.Overlay, opts.Log)

	s.Viewport.OnChange(func(vs viewport.State) {
		s.Overlay.RepositionAll()
		s.Emit(EventViewChanged, vs)
	})
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// ActiveMap returns the selected map, which may still be loading.
func (s *State) ActiveMap() maps.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeMap
}

// Image returns the loaded image of the active map, or nil.
func (s *State) Image() *maps.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image
}

// Loading reports whether a map image is being fetched.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LoadError returns the failure of the last map load, if any.
func (s *State) LoadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// IsAdmin reports whether admin mode is on.
func (s *State) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin
}

// AdminAvailable reports whether admin mode can be enabled at all.
func (s *State) AdminAvailable() bool {
	return s.auth.Available()
}

// InitialMap returns the map to open at startup: the last selected one
// when it is still in the catalog, otherwise the first.
func (s *State) InitialMap() (maps.Map, bool) {
	last := ""
	if s.prefs != nil {
		last = s.prefs.String(PrefLastMap)
	}
	return s.Catalog.Initial(last)
}

// SelectMap makes id the active map and starts loading its image. The
// previous image stays on screen until the new one arrives.
func (s *State) SelectMap(ctx context.Context, id string) error {
	m, ok := s.Catalog.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMap, id)
	}

	s.mu.Lock()
	s.activeMap = m
	s.loading = true
	s.loadErr = nil
	s.mu.Unlock()

	if s.prefs != nil {
		if err := s.prefs.SetString(PrefLastMap, m.ID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to remember selected map")
		}
	}
	s.log.Info().Str("map", m.ID).Msg("Selected map")
	s.Emit(EventMapSelected, m)

	s.loader.LoadAsync(ctx, m, func(img *maps.Image, err error) {
		if errors.Is(err, maps.ErrSuperseded) {
			return
		}
		s.dispatch(func() { s.finishLoad(m, img, err) })
	})
	return nil
}

// finishLoad applies a completed load for m.
func (s *State) finishLoad(m maps.Map, img *maps.Image, err error) {
	s.mu.Lock()
	if s.activeMap.ID != m.ID {
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		s.loadErr = err
		s.focus = nil
		s.mu.Unlock()
		s.Emit(EventMapLoadFailed, err)
		return
	}
	s.image = img
	focus := s.focus
	s.focus = nil
	s.mu.Unlock()

	size := img.Size()
	s.Viewport.ShowImage(size.Width, size.Height)
	s.Overlay.Rebuild(s.Points.All(), m.ID)
	s.Emit(EventMapLoaded, img)

	if focus != nil {
		if p, err := s.Points.Get(focus.ID, focus.MapID); err == nil {
			s.focusPoint(p)
		}
	}
}

// Redraw rebuilds the markers of the active map from the store.
func (s *State) Redraw() {
	if s.Image() == nil {
		return
	}
	s.Overlay.Rebuild(s.Points.All(), s.ActiveMap().ID)
}

// Notify publishes a user-facing message.
func (s *State) Notify(n Notification) {
	s.Emit(EventNotification, n)
}

// StatusText summarises the view for the status bar.
func (s *State) StatusText() string {
	if err := s.LoadError(); err != nil {
		return fmt.Sprintf("Error: No se pudo cargar %s", s.ActiveMap().ID)
	}
	if s.Loading() {
		return "Cargando mapa..."
	}
	if s.Image() == nil {
		return "Sin mapa"
	}
	return s.Viewport.Snapshot().Info().String()
}

// EnableAdmin switches to admin mode after checking passcode.
func (s *State) EnableAdmin(passcode string) error {
	if err := s.auth.Check(passcode); err != nil {
		s.log.Warn().Err(err).Msg("Admin mode refused")
		return err
	}
	s.setAdmin(true)
	s.Notify(Success("Modo Administrador Activado"))
	return nil
}

// DisableAdmin returns to visitor mode and writes the points again.
func (s *State) DisableAdmin() error {
	if !s.IsAdmin() {
		return nil
	}
	s.setAdmin(false)
	if err := s.Points.Flush(); err != nil {
		s.Notify(Failure("Error al guardar los cambios"))
		return err
	}
	s.Notify(Success("Cambios guardados. Modo Visitante activado"))
	return nil
}

func (s *State) setAdmin(admin bool) {
	s.mu.Lock()
	s.admin = admin
	s.mu.Unlock()

	s.Overlay.SetAdminMode(admin)
	s.log.Info().Bool("admin", admin).Msg("Admin mode changed")
	s.Emit(EventAdminChanged, admin)
}

// persistResult notifies about a store mutation. A persistence failure
// keeps the change and reports it; any other error is returned as is.
func (s *State) persistResult(err error, ok string) error {
	switch {
	case err == nil:
		s.Notify(Success(ok))
	case errors.Is(err, points.ErrPersist):
		s.Notify(Failure("Error al guardar los cambios"))
	default:
		return err
	}
	s.Redraw()
	s.Emit(EventPointsChanged, nil)
	return err
}

// AddPoint stores p on the active map. Admin only.
func (s *State) AddPoint(p points.Point) (points.Point, error) {
	if !s.IsAdmin() {
		return points.Point{}, ErrNotAdmin
	}
	if s.Image() == nil {
		return points.Point{}, ErrNoMap
	}
	p.MapID = s.ActiveMap().ID
	added, err := s.Points.Add(p)
	return added, s.persistResult(err, "Nuevo punto agregado")
}

// UpdatePoint replaces a point. Admin only.
func (s *State) UpdatePoint(p points.Point) (points.Point, error) {
	if !s.IsAdmin() {
		return points.Point{}, ErrNotAdmin
	}
	updated, err := s.Points.Update(p)
	return updated, s.persistResult(err, "Punto actualizado correctamente")
}

// DeletePoint removes a point. Admin only.
func (s *State) DeletePoint(k points.Key) error {
	if !s.IsAdmin() {
		return ErrNotAdmin
	}
	return s.persistResult(s.Points.Delete(k.ID, k.MapID), "Punto eliminado correctamente")
}

// Search runs a text query against the points of the active map.
func (s *State) Search(query string) []points.Point {
	return s.Points.Search(s.ActiveMap().ID, query)
}

// GoToPoint centers the view on p and highlights its marker. When p is on
// another map, that map is selected and the point is focused once its
// image has loaded.
func (s *State) GoToPoint(ctx context.Context, p points.Point) error {
	if p.MapID != s.ActiveMap().ID || s.Image() == nil {
		k := p.Key()
		s.mu.Lock()
		s.focus = &k
		s.mu.Unlock()
		if p.MapID == s.ActiveMap().ID && s.Loading() {
			return nil
		}
		return s.SelectMap(ctx, p.MapID)
	}
	s.focusPoint(p)
	return nil
}

func (s *State) focusPoint(p points.Point) {
	s.Viewport.CenterOn(p.X, p.Y)
	s.Overlay.Highlight(p.Key())
	s.Emit(EventPointFocused, p)
}

// TapAction says what a click on the canvas should open.
type TapAction int

const (
	TapNone    TapAction = iota
	TapPresent           // show the point to a visitor
	TapEdit              // open the point for editing
	TapAdd               // create a point at ImageX, ImageY
)

// TapResult is the outcome of HandleTap.
type TapResult struct {
	Action TapAction
	Point  points.Point
	ImageX float64
	ImageY float64
}

// HandleTap resolves a click at canvas coordinates. A hit opens the point,
// for editing in admin mode. A miss in admin mode starts a new point at
// the image position under the click.
func (s *State) HandleTap(sx, sy float64) TapResult {
	if s.Image() == nil {
		return TapResult{}
	}
	mapID := s.ActiveMap().ID
	if p, ok := s.Overlay.HitTest(s.Points.All(), mapID, sx, sy); ok {
		if s.IsAdmin() {
			return TapResult{Action: TapEdit, Point: p}
		}
		return TapResult{Action: TapPresent, Point: p}
	}
	if !s.IsAdmin() {
		return TapResult{}
	}
	x, y := s.Viewport.ScreenToImage(sx, sy)
	return TapResult{Action: TapAdd, ImageX: x, ImageY: y}
}

// Export writes every point in the exchange format. Admin only.
func (s *State) Export(w io.Writer) error {
	if !s.IsAdmin() {
		return ErrNotAdmin
	}
	if err := exchange.Export(w, s.Points.All(), time.Now()); err != nil {
		s.Notify(Failure("Error al exportar los datos"))
		return err
	}
	s.Notify(Success("Datos exportados correctamente"))
	return nil
}

// Import replaces every point with the contents of r after confirm
// accepts the count. Admin only. On failure the store is unchanged.
func (s *State) Import(r io.Reader, confirm exchange.Confirm) (int, error) {
	if !s.IsAdmin() {
		return 0, ErrNotAdmin
	}
	n, err := exchange.Import(r, s.Points, confirm)
	switch {
	case errors.Is(err, exchange.ErrCancelled):
		return 0, err
	case err != nil:
		s.log.Error().Err(err).Msg("Import failed")
		s.Notify(Failure("Error al importar: archivo inválido"))
		return 0, err
	}
	s.Redraw()
	s.Emit(EventPointsChanged, nil)
	s.Notify(Success(fmt.Sprintf("%d puntos importados correctamente", n)))
	return n, nil
}
