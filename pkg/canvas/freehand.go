package canvas

import (
	"strconv"
	"strings"

	"github.com/inkboard/inkboard/pkg/models"
)

// Freehand captures a stroke from a stream of pointer positions. It is a
// three-state machine, Idle -> Capturing -> Idle: Begin starts a capture,
// Accumulate extends it once per pointer move, and Finalize or Abort returns
// it to idle.
//
// World points are recorded through the viewport passed to Begin; the live
// path kept for rendering is screen-space. A Freehand is not safe for
// concurrent use: like the rest of the engine it belongs to the UI event
// loop.
type Freehand struct {
	viewport  models.Viewport
	points    []Point
	live      strings.Builder
	capturing bool
}

// Stroke is a finished freehand capture: the world-space bounding box of the
// stroke and its path encoded relative to the box origin.
type Stroke struct {
	X       float64
	Y       float64
	Width   float64
	Height  float64
	SVGPath string
}

// NewFreehand returns an idle capture pipeline.
func NewFreehand() *Freehand {
	return &Freehand{}
}

// Capturing reports whether a stroke is in progress.
func (f *Freehand) Capturing() bool {
	return f.capturing
}

// Begin starts a capture at the given screen point. The viewport is fixed for
// the duration of the stroke; pan/zoom during a capture does not retroactively
// move already-recorded points.
func (f *Freehand) Begin(screen Point, viewport models.Viewport) {
	f.viewport = viewport
	f.points = f.points[:0]
	f.live.Reset()
	f.capturing = true

	f.points = append(f.points, ScreenToWorld(viewport, screen))
	f.live.WriteString("M ")
	writeCoord(&f.live, screen.X)
	f.live.WriteByte(' ')
	writeCoord(&f.live, screen.Y)
}

// Accumulate appends a pointer position to the stroke. It records the world
// point and extends the screen-space live path with a line segment; nothing
// heavier happens here because pointer moves can arrive faster than frames
// are drawn.
func (f *Freehand) Accumulate(screen Point) {
	if !f.capturing {
		return
	}
	f.points = append(f.points, ScreenToWorld(f.viewport, screen))
	f.live.WriteString(" L ")
	writeCoord(&f.live, screen.X)
	f.live.WriteByte(' ')
	writeCoord(&f.live, screen.Y)
}

// Path returns the screen-space path of the capture in progress, for live
// rendering. The rendering layer decides its own sampling cadence; the
// pipeline never pushes updates.
func (f *Freehand) Path() string {
	return f.live.String()
}

// Abort discards the capture in progress, for tool switches or teardown.
func (f *Freehand) Abort() {
	f.points = f.points[:0]
	f.live.Reset()
	f.capturing = false
}

// Finalize ends the capture. A stroke needs at least two points; a bare tap
// is discarded and ok is false. Otherwise the stroke's bounding box is
// computed over all recorded world points, width and height are floored to 1
// so the box is never degenerate, and the points are re-encoded relative to
// the box origin as "M x0 y0 L x1 y1 ...".
func (f *Freehand) Finalize() (stroke Stroke, ok bool) {
	points := f.points
	f.points = nil
	f.live.Reset()
	f.capturing = false

	if len(points) < 2 {
		return Stroke{}, false
	}

	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	var b strings.Builder
	for i, p := range points {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		writeCoord(&b, p.X-minX)
		b.WriteByte(' ')
		writeCoord(&b, p.Y-minY)
	}

	return Stroke{
		X:       minX,
		Y:       minY,
		Width:   max1(maxX - minX),
		Height:  max1(maxY - minY),
		SVGPath: b.String(),
	}, true
}

// Item builds the board item create request for a finished stroke.
func (s Stroke) Item(strokeColor string, strokeWidth float64) *models.BoardItem {
	return &models.BoardItem{
		Type:   models.ItemTypeFreehand,
		X:      s.X,
		Y:      s.Y,
		Width:  s.Width,
		Height: s.Height,
		Style: models.JSONMap{
			models.StyleKeySVGPath:     s.SVGPath,
			models.StyleKeyStrokeColor: strokeColor,
			models.StyleKeyStrokeWidth: strokeWidth,
		},
	}
}

func max1(f float64) float64 {
	if f < 1 {
		return 1
	}
	return f
}

// writeCoord writes a coordinate in its shortest decimal form, so integral
// values encode without a fractional part ("10", not "10.000000"). Boards are
// shared across implementations; the encoding has to match exactly to avoid
// visual drift.
func writeCoord(b *strings.Builder, f float64) {
	b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
}
