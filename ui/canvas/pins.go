package canvas

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"aprofinder/internal/maps"
	"aprofinder/internal/overlay"
	"aprofinder/internal/points"
	"aprofinder/pkg/colorutil"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

// Pin colours per mode.
var (
	AdminPinColor     = color.RGBA{R: 0xff, G: 0x6b, B: 0x6b, A: 0xff}
	VisitorPinColor   = color.RGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff}
	HighlightPinColor = color.RGBA{R: 0xff, G: 0xc1, B: 0x07, A: 0xff}
)

// SetPinColors replaces the admin and visitor pin colours from hex
// strings. Empty strings keep the current colour.
func SetPinColors(admin, visitor string) error {
	if admin != "" {
		c, err := colorutil.ParseHex(admin)
		if err != nil {
			return err
		}
		AdminPinColor = c
	}
	if visitor != "" {
		c, err := colorutil.ParseHex(visitor)
		if err != nil {
			return err
		}
		VisitorPinColor = c
	}
	return nil
}

// Pin geometry in canvas units. The tip sits at the bottom centre.
const (
	PinWidth  = 30
	PinHeight = 40
)

const pinSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 96 128"><g transform="scale(4)">
<path d="M12 0C5.4 0 0 5.4 0 12c0 9 12 20 12 20s12-11 12-20C24 5.4 18.6 0 12 0z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="12" cy="12" r="4.5" fill="%[2]s"/>
</g></svg>`

var (
	pinMu     sync.Mutex
	pinImages = make(map[color.RGBA]image.Image)
)

// pinImage rasterizes the pin icon in c, caching one image per colour.
func pinImage(c color.RGBA) image.Image {
	pinMu.Lock()
	defer pinMu.Unlock()
	if img, ok := pinImages[c]; ok {
		return img
	}
	img, _, err := maps.Decode(strings.NewReader(fmt.Sprintf(pinSVG, colorutil.Hex(c), colorutil.Hex(colorutil.White))), "pin.svg")
	if err != nil {
		img = image.NewUniform(c)
	}
	pinImages[c] = img
	return img
}

// PinLayer is the marker factory for the map canvas. Markers live in a
// layout-free container drawn above the image.
type PinLayer struct {
	container *fyne.Container
}

// NewPinLayer creates an empty marker layer.
func NewPinLayer() *PinLayer {
	return &PinLayer{container: container.NewWithoutLayout()}
}

// NewMarker implements overlay.MarkerFactory.
func (l *PinLayer) NewMarker(p points.Point, admin bool) overlay.Marker {
	m := &pin{
		layer: l,
		icon:  fynecanvas.NewImageFromImage(pinImage(VisitorPinColor)),
		ring:  fynecanvas.NewCircle(color.Transparent),
		admin: admin,
	}
	m.icon.FillMode = fynecanvas.ImageFillContain
	m.icon.Resize(fyne.NewSize(PinWidth, PinHeight))
	m.ring.StrokeColor = HighlightPinColor
	m.ring.StrokeWidth = 3
	m.ring.Resize(fyne.NewSize(PinWidth+8, PinWidth+8))
	m.ring.Hide()
	m.applyColour()

	l.container.Add(m.ring)
	l.container.Add(m.icon)
	return m
}

// Len returns the number of live markers.
func (l *PinLayer) Len() int {
	return len(l.container.Objects) / 2
}

// Refresh redraws every marker.
func (l *PinLayer) Refresh() {
	l.container.Refresh()
}

// pin is one marker: the icon and a highlight ring around its head.
type pin struct {
	layer *PinLayer
	icon  *fynecanvas.Image
	ring  *fynecanvas.Circle

	admin       bool
	highlighted bool
	visible     bool
}

func (m *pin) SetPosition(x, y float64) {
	left := float32(x) - PinWidth/2
	top := float32(y) - PinHeight
	m.icon.Move(fyne.NewPos(left, top))
	m.ring.Move(fyne.NewPos(left-4, top-4))
}

func (m *pin) SetVisible(visible bool) {
	m.visible = visible
	if visible {
		m.icon.Show()
	} else {
		m.icon.Hide()
	}
	m.updateRing()
}

func (m *pin) SetAdmin(admin bool) {
	m.admin = admin
	m.applyColour()
}

func (m *pin) SetHighlighted(highlighted bool) {
	m.highlighted = highlighted
	m.applyColour()
	m.updateRing()
}

func (m *pin) Destroy() {
	m.layer.container.Remove(m.ring)
	m.layer.container.Remove(m.icon)
}

func (m *pin) applyColour() {
	c := VisitorPinColor
	switch {
	case m.highlighted:
		c = HighlightPinColor
	case m.admin:
		c = AdminPinColor
	}
	m.icon.Image = pinImage(c)
	m.icon.Refresh()
}

func (m *pin) updateRing() {
	if m.visible && m.highlighted {
		m.ring.Show()
	} else {
		m.ring.Hide()
	}
}
