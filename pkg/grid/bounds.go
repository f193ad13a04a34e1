// Package grid provides the integer bounds and float64 pixel buffers used
// throughout the flat synthesis pipeline. Bounds are inclusive on both ends,
// matching the 1-based sensor pixel convention used by the synthesis engine.
package grid

import "fmt"

// Bounds is an inclusive integer rectangle. A Bounds with XMax < XMin or
// YMax < YMin is undefined and has zero area.
type Bounds struct {
	XMin, XMax, YMin, YMax int
}

// NewBounds returns the inclusive rectangle [xmin, xmax] x [ymin, ymax].
func NewBounds(xmin, xmax, ymin, ymax int) Bounds {
	return Bounds{XMin: xmin, XMax: xmax, YMin: ymin, YMax: ymax}
}

// IsDefined reports whether the bounds contain at least one pixel.
func (b Bounds) IsDefined() bool {
	return b.XMax >= b.XMin && b.YMax >= b.YMin
}

// Width returns the number of columns covered by the bounds.
func (b Bounds) Width() int {
	if !b.IsDefined() {
		return 0
	}
	return b.XMax - b.XMin + 1
}

// Height returns the number of rows covered by the bounds.
func (b Bounds) Height() int {
	if !b.IsDefined() {
		return 0
	}
	return b.YMax - b.YMin + 1
}

// Area returns the number of pixels covered by the bounds.
func (b Bounds) Area() int {
	return b.Width() * b.Height()
}

// WithBorder returns the bounds expanded by n pixels on every side.
// A negative n shrinks the bounds.
func (b Bounds) WithBorder(n int) Bounds {
	return Bounds{
		XMin: b.XMin - n,
		XMax: b.XMax + n,
		YMin: b.YMin - n,
		YMax: b.YMax + n,
	}
}

// Contains reports whether the pixel (x, y) lies inside the bounds.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.XMin && x <= b.XMax && y >= b.YMin && y <= b.YMax
}

// ContainsBounds reports whether o lies entirely inside b.
func (b Bounds) ContainsBounds(o Bounds) bool {
	return o.IsDefined() &&
		o.XMin >= b.XMin && o.XMax <= b.XMax &&
		o.YMin >= b.YMin && o.YMax <= b.YMax
}

// Intersect returns the overlap of b and o, which may be undefined when the
// two rectangles are disjoint.
func (b Bounds) Intersect(o Bounds) Bounds {
	return Bounds{
		XMin: max(b.XMin, o.XMin),
		XMax: min(b.XMax, o.XMax),
		YMin: max(b.YMin, o.YMin),
		YMax: min(b.YMax, o.YMax),
	}
}

// String implements fmt.Stringer.
func (b Bounds) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d]", b.XMin, b.XMax, b.YMin, b.YMax)
}
