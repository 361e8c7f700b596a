// Package canvas implements the geometry core of the whiteboard: coordinate
// conversion between world and screen space, pointer-anchored zoom, and the
// freehand capture pipeline that turns a stream of pointer positions into a
// finished stroke item.
//
// Everything in this package is pure computation. No function performs I/O,
// and the per-pointer-move path ([Freehand.Accumulate]) is O(1) so it can keep
// up with pointer events arriving well above 60/s. Creating the resulting
// board item is the job of [github.com/inkboard/inkboard/pkg/board.Session].
package canvas
