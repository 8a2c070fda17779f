package viewport

import (
	"math"
	"sync"

	"aprofinder/pkg/geometry"
)

// ChangeListener is called synchronously after every transform mutation,
// outside the controller lock, with the state that mutation produced.
type ChangeListener func(State)

// Controller holds the viewport transform and applies gestures to it.
// Every operation holds mu, so gestures, map loads and debounced resizes
// may arrive from different goroutines.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	scale  float64
	offset geometry.Point2D
	canvas geometry.Size
	image  geometry.Size

	// Drag gesture
	dragging   bool
	dragOrigin geometry.Point2D
	dragStart  geometry.Point2D // offset snapshot at BeginDrag

	pinch pinchState

	mobile    bool
	listeners []ChangeListener
}

// New creates a controller at the configured initial scale with no image.
func New(cfg Config) *Controller {
	cfg = cfg.normalized()
	return &Controller{
		cfg:   cfg,
		scale: cfg.InitialScale,
	}
}

// Config returns the normalized configuration in use.
func (c *Controller) Config() Config {
	return c.cfg
}

// OnChange registers a listener for transform changes.
func (c *Controller) OnChange(listener ChangeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// update runs fn under the lock. When fn reports a change the listeners
// receive the resulting state after the lock is released.
func (c *Controller) update(fn func() bool) bool {
	c.mu.Lock()
	changed := fn()
	s := c.snapshot()
	listeners := c.listeners
	c.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(s)
		}
	}
	return changed
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	return State{
		Scale:    c.scale,
		Offset:   c.offset,
		Canvas:   c.canvas,
		Image:    c.image,
		Dragging: c.dragging,
		Pinching: c.pinch.active,
	}
}

// Scale returns the current scale factor.
func (c *Controller) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// Offset returns the translation of the image origin in canvas space.
func (c *Controller) Offset() geometry.Point2D {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// SetMobile marks the host as a mobile-class device, which selects the
// coarser button zoom step regardless of canvas width.
func (c *Controller) SetMobile(mobile bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mobile = mobile
}

// SetCanvasSize sets the canvas extent without touching the offset.
// Use Resize for a live canvas that changes size.
func (c *Controller) SetCanvasSize(width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canvas = geometry.NewSize(width, height)
}

// SetImageSize records the pixel extent of the loaded image.
// Zero dimensions mean no image is loaded.
func (c *Controller) SetImageSize(width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = geometry.NewSize(width, height)
}

// HasImage reports whether image-dependent operations are enabled.
func (c *Controller) HasImage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasImage()
}

func (c *Controller) hasImage() bool {
	return !c.image.IsEmpty()
}

// ImageToScreen maps image-space coordinates to canvas coordinates.
func (c *Controller) ImageToScreen(x, y float64) (float64, float64) {
	p := c.Snapshot().ImageToScreen(geometry.NewPoint2D(x, y))
	return p.X, p.Y
}

// ScreenToImage maps canvas coordinates to image-space coordinates.
func (c *Controller) ScreenToImage(x, y float64) (float64, float64) {
	p := c.Snapshot().ScreenToImage(geometry.NewPoint2D(x, y))
	return p.X, p.Y
}

// clampOffset applies Clamp on both axes for the current scale.
func (c *Controller) clampOffset(offset geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: Clamp(offset.X, c.image.Width*c.scale, c.canvas.Width),
		Y: Clamp(offset.Y, c.image.Height*c.scale, c.canvas.Height),
	}
}

// anchoredOffset returns the offset that keeps the image point under
// anchor fixed on screen when the scale changes to newScale.
func (c *Controller) anchoredOffset(anchor geometry.Point2D, newScale float64) geometry.Point2D {
	ratio := newScale / c.scale
	return anchor.Sub(anchor.Sub(c.offset).Scale(ratio))
}

// applyScale moves to newScale around anchor and clamps the result.
func (c *Controller) applyScale(anchor geometry.Point2D, newScale float64) {
	offset := c.anchoredOffset(anchor, newScale)
	c.scale = newScale
	c.offset = c.clampOffset(offset)
}

func (c *Controller) inRange(scale float64) bool {
	return scale >= c.cfg.MinScale && scale <= c.cfg.MaxScale
}

// ZoomAt performs an exponential zoom step anchored at the pointer.
// direction is positive to zoom in and negative to zoom out. Steps that
// would leave the scale range are ignored. Returns whether the zoom applied.
func (c *Controller) ZoomAt(x, y, direction float64) bool {
	return c.update(func() bool {
		if !c.hasImage() {
			return false
		}
		newScale := c.scale * math.Exp(direction*c.cfg.WheelStep)
		if !c.inRange(newScale) {
			return false
		}
		c.applyScale(geometry.NewPoint2D(x, y), newScale)
		return true
	})
}

// ButtonStep returns the zoom factor used by ZoomToCenter for the current device class.
func (c *Controller) ButtonStep() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buttonStep()
}

func (c *Controller) buttonStep() float64 {
	if c.mobile || (c.canvas.Width > 0 && c.canvas.Width <= c.cfg.NarrowWidth) {
		return c.cfg.MobileButtonStep
	}
	return c.cfg.ButtonStep
}

// ZoomToCenter zooms one button step around the canvas center.
// Zooming in at the maximum (or out at the minimum) is ignored; otherwise
// the stepped scale is clamped into range.
func (c *Controller) ZoomToCenter(direction int) bool {
	return c.update(func() bool {
		if !c.hasImage() || direction == 0 {
			return false
		}
		if direction > 0 && c.scale >= c.cfg.MaxScale {
			return false
		}
		if direction < 0 && c.scale <= c.cfg.MinScale {
			return false
		}

		step := c.buttonStep()
		newScale := c.scale * step
		if direction < 0 {
			newScale = c.scale / step
		}
		newScale = clampScale(newScale, c.cfg.MinScale, c.cfg.MaxScale)

		c.applyScale(c.canvas.Center(), newScale)
		return true
	})
}

// ZoomIn zooms one button step in around the canvas center.
func (c *Controller) ZoomIn() bool {
	return c.ZoomToCenter(1)
}

// ZoomOut zooms one button step out around the canvas center.
func (c *Controller) ZoomOut() bool {
	return c.ZoomToCenter(-1)
}

// ResetView returns to the initial scale with the image centered.
func (c *Controller) ResetView() {
	c.update(c.reset)
}

// ShowImage records a newly loaded image extent and resets the view to it
// in one step.
func (c *Controller) ShowImage(width, height float64) {
	c.update(func() bool {
		c.image = geometry.NewSize(width, height)
		return c.reset()
	})
}

func (c *Controller) reset() bool {
	if !c.hasImage() {
		return false
	}
	c.scale = c.cfg.InitialScale
	c.offset = c.clampOffset(geometry.Point2D{
		X: (c.canvas.Width - c.image.Width*c.scale) / 2,
		Y: (c.canvas.Height - c.image.Height*c.scale) / 2,
	})
	return true
}

// FitToScreen scales the whole image into the canvas, preserving aspect
// ratio, and centers it.
func (c *Controller) FitToScreen() {
	c.update(func() bool {
		if !c.hasImage() || c.canvas.IsEmpty() {
			return false
		}
		fit := math.Min(c.canvas.Width/c.image.Width, c.canvas.Height/c.image.Height)
		c.scale = clampScale(fit, c.cfg.MinScale, c.cfg.MaxScale)
		c.offset = c.clampOffset(geometry.Point2D{
			X: (c.canvas.Width - c.image.Width*c.scale) / 2,
			Y: (c.canvas.Height - c.image.Height*c.scale) / 2,
		})
		return true
	})
}

// CenterOn brings an image-space point to the canvas center, zooming in
// to 2x first when the view is zoomed out below 100%.
func (c *Controller) CenterOn(x, y float64) {
	c.update(func() bool {
		if !c.hasImage() {
			return false
		}
		if c.scale < 1 {
			c.scale = math.Min(2, c.cfg.MaxScale)
		}
		center := c.canvas.Center()
		c.offset = c.clampOffset(geometry.Point2D{
			X: center.X - x*c.scale,
			Y: center.Y - y*c.scale,
		})
		return true
	})
}

// Resize applies a new canvas extent. Offsets are rescaled by the ratio of
// new to old extent to keep the relative position; they are not re-clamped.
func (c *Controller) Resize(width, height float64) {
	c.update(func() bool {
		old := c.canvas
		c.canvas = geometry.NewSize(width, height)
		if old.Width > 0 && old.Height > 0 {
			c.offset.X *= width / old.Width
			c.offset.Y *= height / old.Height
		}
		return true
	})
}
