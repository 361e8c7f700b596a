package canvas_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkboard/inkboard/pkg/canvas"
	"github.com/inkboard/inkboard/pkg/models"
)

func TestScreenToWorldRoundTrip(t *testing.T) {
	viewports := []models.Viewport{
		{X: 0, Y: 0, Zoom: 1},
		{X: 100, Y: -250, Zoom: 0.5},
		{X: -33.5, Y: 17.25, Zoom: 2.75},
		{X: 1e6, Y: -1e6, Zoom: canvas.ZoomMin},
		{X: 3, Y: 4, Zoom: canvas.ZoomMax},
	}
	points := []canvas.Point{
		{X: 0, Y: 0},
		{X: 640, Y: 480},
		{X: -123.75, Y: 98.5},
	}

	for _, v := range viewports {
		for _, p := range points {
			w := canvas.ScreenToWorld(v, p)
			back := canvas.WorldToScreen(v, w)
			assert.InDelta(t, p.X, back.X, 1e-9)
			assert.InDelta(t, p.Y, back.Y, 1e-9)
		}
	}
}

func TestScreenToWorldKnownValues(t *testing.T) {
	v := models.Viewport{X: 100, Y: 50, Zoom: 2}

	w := canvas.ScreenToWorld(v, canvas.Point{X: 300, Y: 250})
	assert.Equal(t, canvas.Point{X: 100, Y: 100}, w)

	s := canvas.WorldToScreen(v, canvas.Point{X: 100, Y: 100})
	assert.Equal(t, canvas.Point{X: 300, Y: 250}, s)
}

func TestZoomAtKeepsPointerAnchored(t *testing.T) {
	v := models.Viewport{X: 40, Y: -20, Zoom: 1}
	pointer := canvas.Point{X: 400, Y: 300}
	anchor := canvas.ScreenToWorld(v, pointer)

	zoomed := canvas.ZoomAt(v, pointer, 0.5)
	require.Equal(t, 1.5, zoomed.Zoom)

	// The world point under the pointer before the zoom is still under the
	// pointer after it.
	after := canvas.WorldToScreen(zoomed, anchor)
	assert.InDelta(t, pointer.X, after.X, 1e-9)
	assert.InDelta(t, pointer.Y, after.Y, 1e-9)
}

func TestZoomAtClampsToBounds(t *testing.T) {
	v := models.Viewport{X: 0, Y: 0, Zoom: 1}

	out := canvas.ZoomAt(v, canvas.Point{X: 100, Y: 100}, 100)
	assert.Equal(t, canvas.ZoomMax, out.Zoom)

	out = canvas.ZoomAt(v, canvas.Point{X: 100, Y: 100}, -100)
	assert.Equal(t, canvas.ZoomMin, out.Zoom)
}

func TestZoomAtNoDriftAtBounds(t *testing.T) {
	v := models.Viewport{X: 12.5, Y: -7, Zoom: canvas.ZoomMax}
	pointer := canvas.Point{X: 250, Y: 125}

	// Zooming in while already at the maximum must not move the pan, no
	// matter how often it happens.
	for i := 0; i < 10; i++ {
		v = canvas.ZoomAt(v, pointer, 0.25)
	}
	assert.Equal(t, models.Viewport{X: 12.5, Y: -7, Zoom: canvas.ZoomMax}, v)

	v = models.Viewport{X: 3, Y: 9, Zoom: canvas.ZoomMin}
	for i := 0; i < 10; i++ {
		v = canvas.ZoomAt(v, pointer, -0.25)
	}
	assert.Equal(t, models.Viewport{X: 3, Y: 9, Zoom: canvas.ZoomMin}, v)
}

func TestPan(t *testing.T) {
	v := models.Viewport{X: 10, Y: 20, Zoom: 2}

	v = canvas.Pan(v, -15, 5)
	assert.Equal(t, models.Viewport{X: -5, Y: 25, Zoom: 2}, v)

	// Non-finite deltas are ignored.
	v = canvas.Pan(v, math.NaN(), 1)
	v = canvas.Pan(v, 1, math.Inf(1))
	assert.Equal(t, models.Viewport{X: -5, Y: 25, Zoom: 2}, v)
}

func TestNormalize(t *testing.T) {
	out := canvas.Normalize(models.Viewport{X: math.Inf(1), Y: math.NaN(), Zoom: 0})
	assert.Equal(t, models.Viewport{X: 0, Y: 0, Zoom: 1}, out)

	out = canvas.Normalize(models.Viewport{X: 5, Y: 6, Zoom: 99})
	assert.Equal(t, models.Viewport{X: 5, Y: 6, Zoom: canvas.ZoomMax}, out)

	out = canvas.Normalize(models.Viewport{X: 5, Y: 6, Zoom: 0.01})
	assert.Equal(t, models.Viewport{X: 5, Y: 6, Zoom: canvas.ZoomMin}, out)
}
