package viewport

import (
	"aprofinder/pkg/geometry"
)

// pinchState is fixed at gesture start so the scale during a pinch is a
// function of the current finger distance only.
type pinchState struct {
	active          bool
	initialScale    float64
	initialDistance float64
	center          geometry.Point2D
}

// Dragging reports whether a drag gesture is active.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// Pinching reports whether a pinch gesture is active.
func (c *Controller) Pinching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinch.active
}

// BeginDrag records the gesture origin and the current offset.
// Starting a drag cancels any pinch.
func (c *Controller) BeginDrag(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beginDrag(x, y)
}

func (c *Controller) beginDrag(x, y float64) {
	c.pinch.active = false
	c.dragging = true
	c.dragOrigin = geometry.NewPoint2D(x, y)
	c.dragStart = c.offset
}

// UpdateDrag moves the image by the pointer delta since BeginDrag.
func (c *Controller) UpdateDrag(x, y float64) {
	c.update(func() bool {
		if !c.dragging || !c.hasImage() {
			return false
		}
		delta := geometry.NewPoint2D(x, y).Sub(c.dragOrigin)
		c.offset = c.clampOffset(c.dragStart.Add(delta))
		return true
	})
}

// EndDrag clears the drag mode.
func (c *Controller) EndDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
}

// BeginPinch records the baseline of a two-finger gesture: the scale, the
// finger distance, and their midpoint as the zoom anchor. Starting a pinch
// cancels any drag. Coincident touches do not start a pinch.
func (c *Controller) BeginPinch(t1, t2 geometry.Point2D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging = false
	dist := t1.Distance(t2)
	if dist == 0 {
		c.pinch = pinchState{}
		return
	}
	c.pinch = pinchState{
		active:          true,
		initialScale:    c.scale,
		initialDistance: dist,
		center:          t1.Midpoint(t2),
	}
}

// UpdatePinch sets the scale to initialScale * distance/initialDistance,
// anchored at the pinch center. Out-of-range scales are ignored.
func (c *Controller) UpdatePinch(t1, t2 geometry.Point2D) bool {
	return c.update(func() bool {
		if !c.pinch.active || !c.hasImage() {
			return false
		}
		newScale := c.pinch.initialScale * t1.Distance(t2) / c.pinch.initialDistance
		if !c.inRange(newScale) {
			return false
		}
		c.applyScale(c.pinch.center, newScale)
		return true
	})
}

// EndPinch clears the pinch mode.
func (c *Controller) EndPinch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinch.active = false
}

// TouchEnd handles a finger lifting. With no touches left every gesture
// ends; with one finger left during a pinch the gesture becomes a drag
// from that finger.
func (c *Controller) TouchEnd(remaining []geometry.Point2D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case len(remaining) == 0:
		c.dragging = false
		c.pinch.active = false
	case len(remaining) == 1 && c.pinch.active:
		c.pinch.active = false
		c.beginDrag(remaining[0].X, remaining[0].Y)
	}
}
