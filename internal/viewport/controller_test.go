package viewport

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"aprofinder/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func newController(canvasW, canvasH, imageW, imageH float64) *Controller {
	c := New(DefaultConfig())
	c.SetCanvasSize(canvasW, canvasH)
	c.SetImageSize(imageW, imageH)
	return c
}

// fitted returns an 800x600 canvas showing an 8000x6000 image at scale 0.1.
func fitted(t *testing.T) *Controller {
	t.Helper()
	c := newController(800, 600, 8000, 6000)
	c.FitToScreen()
	require.InDelta(t, 0.1, c.Scale(), eps)
	return c
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name   string
		offset float64
		image  float64
		canvas float64
		want   float64
	}{
		{"smaller image is centered", 50, 400, 800, 200},
		{"equal image is centered", -10, 800, 800, 0},
		{"positive offset pulled to zero", 30, 1600, 800, 0},
		{"offset past far edge pulled back", -1000, 1600, 800, -800},
		{"offset inside range kept", -300, 1600, 800, -300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Clamp(tt.offset, tt.image, tt.canvas), eps)
		})
	}
}

func TestNew_NormalizesConfig(t *testing.T) {
	c := New(Config{MinScale: 1, MaxScale: 4, InitialScale: 0.1})
	cfg := c.Config()

	assert.Equal(t, 1.0, cfg.MinScale)
	assert.Equal(t, 4.0, cfg.MaxScale)
	assert.Equal(t, 1.0, cfg.InitialScale, "initial scale is pulled into range")
	assert.Equal(t, 0.1, cfg.WheelStep)
	assert.Equal(t, 1.0, c.Scale())
}

func TestFitToScreen_ExactFill(t *testing.T) {
	c := fitted(t)

	assert.InDelta(t, 0, c.Offset().X, eps)
	assert.InDelta(t, 0, c.Offset().Y, eps)
}

func TestFitToScreen_PreservesAspect(t *testing.T) {
	c := newController(800, 600, 4000, 1000)
	c.FitToScreen()

	assert.InDelta(t, 0.2, c.Scale(), eps)
	assert.InDelta(t, 0, c.Offset().X, eps)
	assert.InDelta(t, (600-200)/2.0, c.Offset().Y, eps, "short axis is centered")
}

func TestScreenToImage_AddPointScenario(t *testing.T) {
	c := fitted(t)

	x, y := c.ScreenToImage(400, 300)
	assert.InDelta(t, 4000, x, eps)
	assert.InDelta(t, 3000, y, eps)
}

func TestCoordinateInverseLaw(t *testing.T) {
	states := []State{
		{Scale: 0.1},
		{Scale: 1, Offset: geometry.NewPoint2D(-250, 75)},
		{Scale: 37.5, Offset: geometry.NewPoint2D(-123456.7, -0.25)},
		{Scale: 0.333, Offset: geometry.NewPoint2D(12.5, 99)},
	}
	points := []geometry.Point2D{{X: 0, Y: 0}, {X: 400, Y: 300}, {X: -17.25, Y: 1e4}, {X: 799.9, Y: 0.001}}

	for _, s := range states {
		for _, p := range points {
			back := s.ImageToScreen(s.ScreenToImage(p))
			assert.InDelta(t, p.X, back.X, 1e-6)
			assert.InDelta(t, p.Y, back.Y, 1e-6)
		}
	}
}

func TestZoomAt_AnchorStaysUnderPointer(t *testing.T) {
	c := fitted(t)
	pointer := geometry.NewPoint2D(200, 150)

	ix, iy := c.ScreenToImage(pointer.X, pointer.Y)
	require.True(t, c.ZoomAt(pointer.X, pointer.Y, 1))

	sx, sy := c.ImageToScreen(ix, iy)
	assert.InDelta(t, pointer.X, sx, 1e-6)
	assert.InDelta(t, pointer.Y, sy, 1e-6)
	assert.InDelta(t, 0.1*math.Exp(0.1), c.Scale(), eps)
}

func TestZoomAt_RepeatedCenterZoomHasNoDrift(t *testing.T) {
	c := fitted(t)
	center := geometry.NewPoint2D(400, 300)
	ix, iy := c.ScreenToImage(center.X, center.Y)

	for i := 0; i < 30; i++ {
		require.True(t, c.ZoomAt(center.X, center.Y, 1))
	}
	for i := 0; i < 10; i++ {
		require.True(t, c.ZoomAt(center.X, center.Y, -1))
	}

	sx, sy := c.ImageToScreen(ix, iy)
	assert.InDelta(t, center.X, sx, 1e-6)
	assert.InDelta(t, center.Y, sy, 1e-6)
}

func TestZoomAt_RejectsOutOfRange(t *testing.T) {
	c := fitted(t)
	before := c.Snapshot()

	assert.False(t, c.ZoomAt(100, 100, -1), "0.1 is already the minimum")
	assert.Equal(t, before, c.Snapshot())
}

func TestZoomAt_NoImageIsNoop(t *testing.T) {
	c := New(DefaultConfig())
	c.SetCanvasSize(800, 600)

	calls := 0
	c.OnChange(func(State) { calls++ })

	assert.False(t, c.ZoomAt(1, 1, 1))
	c.BeginDrag(0, 0)
	c.UpdateDrag(50, 50)
	assert.Equal(t, 0, calls)
}

func TestScaleBounds_RandomSequence(t *testing.T) {
	c := fitted(t)
	rng := rand.New(rand.NewSource(7))
	cfg := c.Config()

	for i := 0; i < 2000; i++ {
		x, y := rng.Float64()*800, rng.Float64()*600
		switch rng.Intn(4) {
		case 0, 1:
			dir := 1.0
			if rng.Intn(2) == 0 {
				dir = -1
			}
			c.ZoomAt(x, y, dir*float64(1+rng.Intn(20)))
		case 2:
			c.ZoomToCenter(1 - 2*rng.Intn(2))
		case 3:
			c.BeginPinch(geometry.NewPoint2D(x, y), geometry.NewPoint2D(x+50, y))
			c.UpdatePinch(geometry.NewPoint2D(x, y), geometry.NewPoint2D(x+rng.Float64()*400, y))
			c.EndPinch()
		}
		require.GreaterOrEqual(t, c.Scale(), cfg.MinScale)
		require.LessOrEqual(t, c.Scale(), cfg.MaxScale)
	}
}

func TestClampInvariants_AfterMutations(t *testing.T) {
	small := newController(800, 600, 400, 300)
	small.ResetView()
	large := fitted(t)

	check := func(c *Controller) {
		s := c.Snapshot()
		for _, axis := range []struct{ offset, image, canvas float64 }{
			{s.Offset.X, s.Image.Width * s.Scale, s.Canvas.Width},
			{s.Offset.Y, s.Image.Height * s.Scale, s.Canvas.Height},
		} {
			if axis.image <= axis.canvas {
				assert.InDelta(t, (axis.canvas-axis.image)/2, axis.offset, 1e-6)
			} else {
				assert.GreaterOrEqual(t, axis.offset, axis.canvas-axis.image-1e-6)
				assert.LessOrEqual(t, axis.offset, 1e-6)
			}
		}
	}

	for _, c := range []*Controller{small, large} {
		c.BeginDrag(100, 100)
		c.UpdateDrag(5000, -5000)
		check(c)
		c.UpdateDrag(-5000, 5000)
		check(c)
		c.EndDrag()

		c.ZoomAt(10, 10, 1)
		check(c)
		c.ZoomIn()
		check(c)
		c.ZoomAt(790, 590, 3)
		check(c)
		c.ZoomOut()
		check(c)
		c.CenterOn(0, 0)
		check(c)
	}
}

func TestUpdateDrag_MovesByDelta(t *testing.T) {
	c := fitted(t)
	c.ZoomIn() // scale 0.15, image 1200x900
	start := c.Offset()

	c.BeginDrag(100, 100)
	c.UpdateDrag(130, 80)

	assert.True(t, c.Dragging())
	assert.InDelta(t, start.X+30, c.Offset().X, eps)
	assert.InDelta(t, start.Y-20, c.Offset().Y, eps)

	c.EndDrag()
	c.EndDrag()
	assert.False(t, c.Dragging())
}

func TestUpdateDrag_WithoutBeginIsNoop(t *testing.T) {
	c := fitted(t)
	before := c.Snapshot()

	c.UpdateDrag(300, 300)
	assert.Equal(t, before, c.Snapshot())
}

func TestPinch_ScaleDependsOnlyOnCurrentDistance(t *testing.T) {
	t1 := geometry.NewPoint2D(300, 300)
	t2 := geometry.NewPoint2D(500, 300)
	final := geometry.NewPoint2D(600, 300)
	left := geometry.NewPoint2D(200, 300)

	direct := fitted(t)
	direct.BeginPinch(t1, t2)
	require.True(t, direct.UpdatePinch(left, final))

	stepped := fitted(t)
	stepped.BeginPinch(t1, t2)
	for _, d := range []float64{125, 175, 110, 260, 190} {
		stepped.UpdatePinch(geometry.NewPoint2D(400-d, 300), geometry.NewPoint2D(400+d, 300))
	}
	require.True(t, stepped.UpdatePinch(left, final))

	assert.InDelta(t, 0.2, direct.Scale(), eps)
	assert.InDelta(t, direct.Scale(), stepped.Scale(), eps)
	assert.InDelta(t, direct.Offset().X, stepped.Offset().X, 1e-6)
	assert.InDelta(t, direct.Offset().Y, stepped.Offset().Y, 1e-6)
	assert.InDelta(t, -400, direct.Offset().X, 1e-6)
	assert.InDelta(t, -300, direct.Offset().Y, 1e-6)
}

func TestPinch_OutOfRangeRejected(t *testing.T) {
	c := fitted(t)
	c.BeginPinch(geometry.NewPoint2D(300, 300), geometry.NewPoint2D(500, 300))

	assert.False(t, c.UpdatePinch(geometry.NewPoint2D(395, 300), geometry.NewPoint2D(405, 300)))
	assert.InDelta(t, 0.1, c.Scale(), eps)
	assert.True(t, c.Pinching())
}

func TestPinch_CoincidentTouchesDoNotStart(t *testing.T) {
	c := fitted(t)
	p := geometry.NewPoint2D(10, 10)
	c.BeginPinch(p, p)

	assert.False(t, c.Pinching())
	assert.False(t, c.UpdatePinch(p, geometry.NewPoint2D(100, 100)))
}

func TestGestureModesAreExclusive(t *testing.T) {
	c := fitted(t)

	c.BeginDrag(0, 0)
	c.BeginPinch(geometry.NewPoint2D(0, 0), geometry.NewPoint2D(10, 0))
	assert.True(t, c.Pinching())
	assert.False(t, c.Dragging())

	c.BeginDrag(5, 5)
	assert.True(t, c.Dragging())
	assert.False(t, c.Pinching())
}

func TestTouchEnd(t *testing.T) {
	c := fitted(t)
	c.BeginPinch(geometry.NewPoint2D(0, 0), geometry.NewPoint2D(10, 0))

	c.TouchEnd([]geometry.Point2D{{X: 10, Y: 0}})
	assert.False(t, c.Pinching())
	assert.True(t, c.Dragging(), "remaining finger continues as a drag")

	c.TouchEnd(nil)
	assert.False(t, c.Dragging())
	assert.False(t, c.Pinching())
}

func TestZoomToCenter_StepByDeviceClass(t *testing.T) {
	wide := fitted(t)
	assert.Equal(t, 1.5, wide.ButtonStep())
	require.True(t, wide.ZoomIn())
	assert.InDelta(t, 0.15, wide.Scale(), eps)

	narrow := newController(700, 600, 7000, 6000)
	assert.Equal(t, 1.3, narrow.ButtonStep())

	mobile := fitted(t)
	mobile.SetMobile(true)
	assert.Equal(t, 1.3, mobile.ButtonStep())
}

func TestZoomToCenter_KeepsCenterFixed(t *testing.T) {
	c := fitted(t)
	ix, iy := c.ScreenToImage(400, 300)

	require.True(t, c.ZoomIn())
	require.True(t, c.ZoomIn())

	sx, sy := c.ImageToScreen(ix, iy)
	assert.InDelta(t, 400, sx, 1e-6)
	assert.InDelta(t, 300, sy, 1e-6)
}

func TestZoomToCenter_StopsAtBounds(t *testing.T) {
	c := fitted(t)
	assert.False(t, c.ZoomOut(), "already at minimum")

	for i := 0; i < 50; i++ {
		c.ZoomIn()
	}
	assert.Equal(t, c.Config().MaxScale, c.Scale())
	assert.False(t, c.ZoomIn())
}

func TestResetView(t *testing.T) {
	c := newController(800, 600, 4000, 2000)
	c.ZoomAt(0, 0, 5)

	c.ResetView()
	assert.InDelta(t, 0.1, c.Scale(), eps)
	assert.InDelta(t, 200, c.Offset().X, eps)
	assert.InDelta(t, 200, c.Offset().Y, eps)
}

func TestResize_RescalesOffsetProportionally(t *testing.T) {
	c := fitted(t)
	c.ZoomIn()
	c.ZoomIn()
	before := c.Offset()

	c.Resize(400, 300)
	assert.InDelta(t, before.X/2, c.Offset().X, eps)
	assert.InDelta(t, before.Y/2, c.Offset().Y, eps)
	assert.Equal(t, geometry.NewSize(400, 300), c.Snapshot().Canvas)
}

func TestResize_FirstSizeLeavesOffset(t *testing.T) {
	c := New(DefaultConfig())
	c.Resize(1024, 768)

	assert.Equal(t, geometry.Point2D{}, c.Offset())
}

func TestCenterOn(t *testing.T) {
	c := fitted(t)

	c.CenterOn(4000, 3000)
	assert.InDelta(t, 2, c.Scale(), eps)
	sx, sy := c.ImageToScreen(4000, 3000)
	assert.InDelta(t, 400, sx, 1e-6)
	assert.InDelta(t, 300, sy, 1e-6)
}

func TestOnChange_CalledPerMutation(t *testing.T) {
	c := fitted(t)
	var got []State
	c.OnChange(func(s State) { got = append(got, s) })

	c.ZoomIn()
	c.BeginDrag(0, 0)
	c.UpdateDrag(10, 10)
	c.Resize(640, 480)

	require.Len(t, got, 3)
	assert.True(t, got[1].Dragging)
	assert.Equal(t, geometry.NewSize(640, 480), got[2].Canvas)
}

func TestController_ConcurrentMutations(t *testing.T) {
	c := fitted(t)
	cfg := c.Config()

	var mu sync.Mutex
	var seen []State
	c.OnChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.BeginDrag(0, 0)
			c.UpdateDrag(float64(i), float64(-i))
			c.EndDrag()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.ZoomAt(400, 300, float64(i%3-1))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.Resize(800+float64(i%2)*100, 600)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.ShowImage(8000, 6000)
			_ = c.Snapshot().Info()
		}
	}()
	wg.Wait()

	require.NotEmpty(t, seen)
	for _, s := range seen {
		assert.GreaterOrEqual(t, s.Scale, cfg.MinScale)
		assert.LessOrEqual(t, s.Scale, cfg.MaxScale)
	}
	assert.False(t, c.Dragging())
}

func TestShowImage_ResetsToNewExtent(t *testing.T) {
	c := fitted(t)
	c.ZoomIn()

	var got []State
	c.OnChange(func(s State) { got = append(got, s) })
	c.ShowImage(400, 300)

	require.Len(t, got, 1)
	assert.InDelta(t, 0.1, got[0].Scale, eps)
	assert.Equal(t, geometry.NewSize(400, 300), got[0].Image)
	assert.InDelta(t, 380, got[0].Offset.X, eps)
	assert.InDelta(t, 285, got[0].Offset.Y, eps)
}

func TestInfo(t *testing.T) {
	s := State{
		Scale:  0.1,
		Offset: geometry.NewPoint2D(-12.4, -7.6),
		Image:  geometry.NewSize(8000, 6000),
	}
	info := s.Info()

	assert.Equal(t, Info{ZoomPercent: 10, PositionX: 12, PositionY: 8, ImageWidth: 8000, ImageHeight: 6000}, info)
	assert.Equal(t, "Zoom 10% | Pos 12, 8 | 8000 x 6000", info.String())
}
