package canvas

import (
	"math"

	"github.com/inkboard/inkboard/pkg/models"
)

// Zoom bounds. ZoomMin must stay strictly positive: ScreenToWorld divides by
// the zoom factor, and a zero zoom would make the transform singular.
const (
	ZoomMin = 0.1
	ZoomMax = 4.0
)

// Point is a 2D coordinate, in either world or screen space depending on
// context.
type Point struct {
	X float64
	Y float64
}

// ScreenToWorld converts a screen-space point to world space under the given
// viewport: world = (screen - pan) / zoom.
func ScreenToWorld(v models.Viewport, s Point) Point {
	return Point{
		X: (s.X - v.X) / v.Zoom,
		Y: (s.Y - v.Y) / v.Zoom,
	}
}

// WorldToScreen converts a world-space point to screen space under the given
// viewport: screen = world*zoom + pan.
func WorldToScreen(v models.Viewport, w Point) Point {
	return Point{
		X: w.X*v.Zoom + v.X,
		Y: w.Y*v.Zoom + v.Y,
	}
}

// ZoomAt adjusts the zoom by delta, clamped to [ZoomMin, ZoomMax], and
// recomputes the pan so the world point currently under the pointer stays
// under the pointer. When the clamp leaves the zoom unchanged the viewport is
// returned as-is, so repeated zooming against a bound never drifts the pan.
func ZoomAt(v models.Viewport, pointer Point, delta float64) models.Viewport {
	zoom := clampZoom(v.Zoom + delta)
	if zoom == v.Zoom {
		return v
	}
	anchor := ScreenToWorld(v, pointer)
	return models.Viewport{
		X:    pointer.X - anchor.X*zoom,
		Y:    pointer.Y - anchor.Y*zoom,
		Zoom: zoom,
	}
}

// Pan shifts the viewport by a screen-space delta. The canvas is conceptually
// infinite so pan is unbounded, but non-finite deltas are ignored to keep the
// pan-always-finite invariant.
func Pan(v models.Viewport, dx, dy float64) models.Viewport {
	if !isFinite(dx) || !isFinite(dy) {
		return v
	}
	v.X += dx
	v.Y += dy
	return v
}

// Normalize clamps a viewport into its invariants: zoom within bounds and pan
// finite. Used when accepting a viewport from outside the engine, for example
// from a restored revision snapshot.
func Normalize(v models.Viewport) models.Viewport {
	if !isFinite(v.X) {
		v.X = 0
	}
	if !isFinite(v.Y) {
		v.Y = 0
	}
	if v.Zoom == 0 || !isFinite(v.Zoom) {
		v.Zoom = 1
	}
	v.Zoom = clampZoom(v.Zoom)
	return v
}

func clampZoom(z float64) float64 {
	return math.Min(ZoomMax, math.Max(ZoomMin, z))
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
