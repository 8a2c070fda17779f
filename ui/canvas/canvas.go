// Package canvas provides the map widget: the viewport-transformed image
// with pan and zoom, plus the pin markers laid over it.
package canvas

import (
	"image"
	"image/color"
	"math"
	"time"

	"aprofinder/internal/app"
	"aprofinder/internal/viewport"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Background is painted where the image does not cover the canvas.
var Background = color.RGBA{R: 0x2b, G: 0x2b, B: 0x2b, A: 0xff}

// MapCanvas displays the active map through the viewport transform.
// Dragging pans, the wheel zooms at the pointer, and a tap is resolved
// through the application state.
type MapCanvas struct {
	widget.BaseWidget

	state  *app.State
	raster *fynecanvas.Raster
	pins   *PinLayer

	// Drag gesture
	dragging bool

	resize   *app.Debouncer
	lastSize fyne.Size

	// Callbacks
	onTap func(app.TapResult)
}

// NewMapCanvas creates the map widget. pins must be the marker factory the
// state was built with so the markers render above the image.
func NewMapCanvas(state *app.State, pins *PinLayer, resizeDelay time.Duration) *MapCanvas {
	mc := &MapCanvas{
		state:  state,
		pins:   pins,
		resize: app.NewDebouncer(resizeDelay),
	}

	mc.raster = fynecanvas.NewRaster(mc.draw)
	mc.raster.ScaleMode = fynecanvas.ImageScaleSmooth

	state.On(app.EventViewChanged, func(interface{}) { mc.Refresh() })
	state.On(app.EventMapLoaded, func(interface{}) { mc.Refresh() })

	mc.ExtendBaseWidget(mc)
	return mc
}

// OnTap sets the callback for resolved canvas taps.
func (mc *MapCanvas) OnTap(callback func(app.TapResult)) {
	mc.onTap = callback
}

// Refresh redraws the image and the markers.
func (mc *MapCanvas) Refresh() {
	mc.raster.Refresh()
	mc.pins.Refresh()
}

// Dragged pans the view by the pointer movement.
func (mc *MapCanvas) Dragged(ev *fyne.DragEvent) {
	vp := mc.state.Viewport
	if !mc.dragging {
		// The event carries the position after the first move.
		start := ev.Position.Subtract(ev.Dragged)
		vp.BeginDrag(float64(start.X), float64(start.Y))
		mc.dragging = true
	}
	vp.UpdateDrag(float64(ev.Position.X), float64(ev.Position.Y))
}

// DragEnd finishes a pan.
func (mc *MapCanvas) DragEnd() {
	mc.dragging = false
	mc.state.Viewport.EndDrag()
}

// Scrolled zooms around the pointer, one exponential step per event.
func (mc *MapCanvas) Scrolled(ev *fyne.ScrollEvent) {
	dir := 0.0
	if ev.Scrolled.DY > 0 {
		dir = 1
	} else if ev.Scrolled.DY < 0 {
		dir = -1
	}
	if dir == 0 {
		return
	}
	mc.state.Viewport.ZoomAt(float64(ev.Position.X), float64(ev.Position.Y), dir)
}

// Tapped resolves a click against the markers.
func (mc *MapCanvas) Tapped(ev *fyne.PointEvent) {
	// Fyne can deliver taps from outside the widget after a drag.
	size := mc.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	res := mc.state.HandleTap(float64(ev.Position.X), float64(ev.Position.Y))
	if res.Action != app.TapNone && mc.onTap != nil {
		mc.onTap(res)
	}
}

// Resize lays the widget out and reports the new extent to the viewport
// once resizing settles.
func (mc *MapCanvas) Resize(size fyne.Size) {
	mc.BaseWidget.Resize(size)
	if size == mc.lastSize {
		return
	}
	first := mc.lastSize.Width == 0 && mc.lastSize.Height == 0
	mc.lastSize = size

	apply := func() {
		mc.state.Viewport.Resize(float64(size.Width), float64(size.Height))
	}
	if first {
		apply()
		return
	}
	mc.resize.Trigger(apply)
}

// Stop cancels a pending resize.
func (mc *MapCanvas) Stop() {
	mc.resize.Stop()
}

// draw renders the visible part of the image at raster resolution.
func (mc *MapCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(output, output.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	img := mc.state.Image()
	if img == nil || img.Image == nil {
		return output
	}
	vs := mc.state.Viewport.Snapshot()
	if !vs.HasImage() || vs.Canvas.IsEmpty() {
		return output
	}

	// Raster pixels per canvas unit.
	pixelScale := float64(w) / vs.Canvas.Width
	renderView(output, img.Image, vs, pixelScale)
	return output
}

// renderView draws src into dst with the viewport transform, scaled by
// pixelScale for high-density displays.
func renderView(dst draw.Image, src image.Image, vs viewport.State, pixelScale float64) {
	s := vs.Scale * pixelScale
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return
	}
	b := src.Bounds()
	m := f64.Aff3{
		s, 0, vs.Offset.X*pixelScale - float64(b.Min.X)*s,
		0, s, vs.Offset.Y*pixelScale - float64(b.Min.Y)*s,
	}
	interp := draw.Interpolator(draw.ApproxBiLinear)
	if s >= 4 {
		interp = draw.NearestNeighbor
	}
	interp.Transform(dst, m, src, b, draw.Over, nil)
}

// CreateRenderer implements fyne.Widget.
func (mc *MapCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &mapCanvasRenderer{
		canvas:  mc,
		objects: []fyne.CanvasObject{mc.raster, mc.pins.container},
	}
}

type mapCanvasRenderer struct {
	canvas  *MapCanvas
	objects []fyne.CanvasObject
}

func (r *mapCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
	r.canvas.pins.container.Resize(size)
}

func (r *mapCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *mapCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
	r.canvas.pins.Refresh()
}

func (r *mapCanvasRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *mapCanvasRenderer) Destroy() {}
