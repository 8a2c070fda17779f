// Package viewport owns the scale/offset transform of the map image and
// converts user gestures into transform updates.
package viewport

import (
	"fmt"
	"math"

	"aprofinder/pkg/geometry"
)

// Config holds the zoom limits and step sizes of a Controller.
type Config struct {
	MinScale     float64
	MaxScale     float64
	InitialScale float64

	// WheelStep is k in newScale = scale * exp(direction*k).
	WheelStep float64

	// ButtonStep is the multiplicative factor for toolbar zoom buttons.
	// MobileButtonStep replaces it on narrow canvases.
	ButtonStep       float64
	MobileButtonStep float64

	// NarrowWidth is the canvas width at or below which the canvas counts
	// as a narrow (mobile-class) viewport.
	NarrowWidth float64
}

// DefaultConfig returns the stock limits: scale 0.1..50, reset to 10%.
func DefaultConfig() Config {
	return Config{
		MinScale:         0.1,
		MaxScale:         50,
		InitialScale:     0.1,
		WheelStep:        0.1,
		ButtonStep:       1.5,
		MobileButtonStep: 1.3,
		NarrowWidth:      768,
	}
}

// normalized fills zero fields from the defaults and keeps InitialScale in range.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MinScale <= 0 {
		c.MinScale = def.MinScale
	}
	if c.MaxScale < c.MinScale {
		c.MaxScale = math.Max(def.MaxScale, c.MinScale)
	}
	if c.InitialScale <= 0 {
		c.InitialScale = def.InitialScale
	}
	c.InitialScale = clampScale(c.InitialScale, c.MinScale, c.MaxScale)
	if c.WheelStep <= 0 {
		c.WheelStep = def.WheelStep
	}
	if c.ButtonStep <= 1 {
		c.ButtonStep = def.ButtonStep
	}
	if c.MobileButtonStep <= 1 {
		c.MobileButtonStep = def.MobileButtonStep
	}
	if c.NarrowWidth <= 0 {
		c.NarrowWidth = def.NarrowWidth
	}
	return c
}

// State is an immutable snapshot of the viewport transform.
type State struct {
	Scale    float64
	Offset   geometry.Point2D
	Canvas   geometry.Size
	Image    geometry.Size
	Dragging bool
	Pinching bool
}

// HasImage reports whether an image with known dimensions is loaded.
func (s State) HasImage() bool {
	return !s.Image.IsEmpty()
}

// ImageToScreen maps unscaled image coordinates to canvas coordinates.
func (s State) ImageToScreen(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: p.X*s.Scale + s.Offset.X,
		Y: p.Y*s.Scale + s.Offset.Y,
	}
}

// ScreenToImage maps canvas coordinates back to unscaled image coordinates.
func (s State) ScreenToImage(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: (p.X - s.Offset.X) / s.Scale,
		Y: (p.Y - s.Offset.Y) / s.Scale,
	}
}

// Info is the status-bar summary of a State.
type Info struct {
	ZoomPercent int
	PositionX   int
	PositionY   int
	ImageWidth  int
	ImageHeight int
}

// Info summarises the state for display.
func (s State) Info() Info {
	return Info{
		ZoomPercent: int(math.Round(s.Scale * 100)),
		PositionX:   int(math.Round(-s.Offset.X)),
		PositionY:   int(math.Round(-s.Offset.Y)),
		ImageWidth:  int(s.Image.Width),
		ImageHeight: int(s.Image.Height),
	}
}

func (i Info) String() string {
	text := fmt.Sprintf("Zoom %d%% | Pos %d, %d", i.ZoomPercent, i.PositionX, i.PositionY)
	if i.ImageWidth > 0 && i.ImageHeight > 0 {
		text += fmt.Sprintf(" | %d x %d", i.ImageWidth, i.ImageHeight)
	}
	return text
}

// Clamp applies the bounds policy to one axis. An image no larger than the
// canvas is centered; a larger image is kept covering the canvas edge to edge.
func Clamp(offset, imageExtent, canvasExtent float64) float64 {
	if imageExtent <= canvasExtent {
		return (canvasExtent - imageExtent) / 2
	}
	return math.Max(canvasExtent-imageExtent, math.Min(0, offset))
}

func clampScale(scale, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, scale))
}
