// Package overlay keeps the on-screen pin markers aligned with the viewport
// transform.
package overlay

import (
	"sync"

	"aprofinder/internal/points"
	"aprofinder/internal/viewport"
	"aprofinder/pkg/geometry"

	"github.com/rs/zerolog"
)

// DefaultHitRadius is the screen distance in pixels within which a click
// selects a point.
const DefaultHitRadius = 20

// Marker is a toolkit-owned visual for one point.
type Marker interface {
	SetPosition(x, y float64)
	SetVisible(visible bool)
	SetAdmin(admin bool)
	SetHighlighted(highlighted bool)
	Destroy()
}

// MarkerFactory creates markers for points.
type MarkerFactory interface {
	NewMarker(p points.Point, admin bool) Marker
}

// Viewport is the transform source a Synchronizer follows.
type Viewport interface {
	Snapshot() viewport.State
}

// Margins extend the canvas bounds when deciding marker visibility, so a
// pin partly off screen keeps showing.
type Margins struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// DefaultMargins leaves more room at the top, where the pin tip sits
// below its icon.
func DefaultMargins() Margins {
	return Margins{Left: 30, Right: 30, Top: 40, Bottom: 30}
}

// Config tunes visibility and hit-testing.
type Config struct {
	Margins   Margins
	HitRadius float64
}

// DefaultConfig returns the stock margins and hit radius.
func DefaultConfig() Config {
	return Config{Margins: DefaultMargins(), HitRadius: DefaultHitRadius}
}

// Placement is the current state of one live marker.
type Placement struct {
	Point   points.Point
	Screen  geometry.Point2D
	Visible bool
	Marker  Marker
}

// Synchronizer owns the markers of the active map. Marker calls happen
// with mu held, one operation at a time.
type Synchronizer struct {
	mu sync.Mutex

	view    Viewport
	factory MarkerFactory
	cfg     Config
	log     zerolog.Logger

	mapID       string
	admin       bool
	highlighted points.Key
	markers     map[points.Key]*Placement
	order       []points.Key
}

// headless creates markers that draw nothing, for use without a UI.
type headless struct{}

func (headless) NewMarker(points.Point, bool) Marker { return headlessMarker{} }

type headlessMarker struct{}

func (headlessMarker) SetPosition(float64, float64) {}
func (headlessMarker) SetVisible(bool)              {}
func (headlessMarker) SetAdmin(bool)                {}
func (headlessMarker) SetHighlighted(bool)          {}
func (headlessMarker) Destroy()                     {}

// New creates a synchronizer with no markers. A nil factory tracks
// positions without drawing anything.
func New(view Viewport, factory MarkerFactory, cfg Config, log zerolog.Logger) *Synchronizer {
	if cfg.HitRadius <= 0 {
		cfg.HitRadius = DefaultHitRadius
	}
	if factory == nil {
		factory = headless{}
	}
	return &Synchronizer{
		view:    view,
		factory: factory,
		cfg:     cfg,
		log:     log.With().Str("component", "overlay").Logger(),
		markers: make(map[points.Key]*Placement),
	}
}

// MapID returns the map whose points are currently shown.
func (s *Synchronizer) MapID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapID
}

// Rebuild destroys every marker and creates one per point of mapID,
// positioned for the current transform.
func (s *Synchronizer) Rebuild(all []points.Point, mapID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.mapID = mapID

	for _, p := range all {
		if p.MapID != mapID {
			continue
		}
		k := p.Key()
		if _, dup := s.markers[k]; dup {
			s.log.Warn().Str("id", p.ID).Str("map", mapID).Msg("Skipping duplicate point")
			continue
		}
		s.markers[k] = &Placement{
			Point:  p,
			Marker: s.factory.NewMarker(p, s.admin),
		}
		s.order = append(s.order, k)
	}
	s.reposition()
	s.log.Debug().Int("markers", len(s.order)).Str("map", mapID).Msg("Rebuilt markers")
}

// Clear destroys every marker.
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

func (s *Synchronizer) clear() {
	for _, k := range s.order {
		s.markers[k].Marker.Destroy()
	}
	s.markers = make(map[points.Key]*Placement)
	s.order = nil
	s.highlighted = points.Key{}
}

// visibleArea returns the canvas rectangle grown by the margins.
func (s *Synchronizer) visibleArea(canvas geometry.Size) geometry.Rect {
	m := s.cfg.Margins
	return geometry.NewRect(0, 0, canvas.Width, canvas.Height).Inset(-m.Left, -m.Top, -m.Right, -m.Bottom)
}

// RepositionAll recomputes every marker's screen position and visibility.
func (s *Synchronizer) RepositionAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reposition()
}

func (s *Synchronizer) reposition() {
	state := s.view.Snapshot()
	area := s.visibleArea(state.Canvas)

	for _, k := range s.order {
		pl := s.markers[k]
		pl.Screen = state.ImageToScreen(pl.Point.Position())
		pl.Visible = area.Contains(pl.Screen)
		pl.Marker.SetPosition(pl.Screen.X, pl.Screen.Y)
		pl.Marker.SetVisible(pl.Visible)
	}
}

// HitTest returns the first point of mapID, in store order, whose screen
// position lies within the hit radius of (sx, sy).
func (s *Synchronizer) HitTest(all []points.Point, mapID string, sx, sy float64) (points.Point, bool) {
	state := s.view.Snapshot()
	click := geometry.NewPoint2D(sx, sy)

	for _, p := range all {
		if p.MapID != mapID {
			continue
		}
		if state.ImageToScreen(p.Position()).Distance(click) <= s.cfg.HitRadius {
			return p, true
		}
	}
	return points.Point{}, false
}

// SetAdminMode restyles every marker for admin or visitor mode.
func (s *Synchronizer) SetAdminMode(admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admin = admin
	for _, k := range s.order {
		s.markers[k].Marker.SetAdmin(admin)
	}
}

// Highlight marks one marker and clears the previous highlight. A key
// with no marker only clears.
func (s *Synchronizer) Highlight(k points.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.markers[s.highlighted]; ok {
		prev.Marker.SetHighlighted(false)
	}
	s.highlighted = points.Key{}

	pl, ok := s.markers[k]
	if !ok {
		return false
	}
	pl.Marker.SetHighlighted(true)
	s.highlighted = k
	return true
}

// Markers returns the live placements in insertion order.
func (s *Synchronizer) Markers() []Placement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Placement, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, *s.markers[k])
	}
	return out
}

// Marker returns the placement for one key.
func (s *Synchronizer) Marker(k points.Key) (Placement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.markers[k]
	if !ok {
		return Placement{}, false
	}
	return *pl, true
}
