package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// WCS maps pixel coordinates to sky coordinates. Implementations live in
// pkg/wcs; the engine only needs relative pixel areas and world positions.
type WCS interface {
	// RelativePixelArea returns the solid angle subtended by the pixel at
	// (x, y) relative to a nominal pixel, in arbitrary consistent units.
	RelativePixelArea(x, y float64) float64

	// ToWorld converts a pixel position to world coordinates (degrees).
	ToWorld(x, y float64) (ra, dec float64)
}

// Image is a 2-D float64 pixel buffer over an inclusive Bounds, tagged with
// the coordinate mapping of the image it belongs to.
//
// An Image created by SubImage shares storage with its parent and must not
// outlive it; Copy detaches a view into compact owned storage.
type Image struct {
	// WCS is the pixel-to-sky mapping for this image. Views inherit it.
	WCS WCS

	bounds Bounds
	pix    []float64
	stride int
	// origin is the bounds of the owning allocation; indexing is relative
	// to its (XMin, YMin) corner.
	origin Bounds
}

// NewImage allocates a zero-initialized image covering b.
func NewImage(b Bounds, w WCS) *Image {
	if !b.IsDefined() {
		panic(fmt.Sprintf("grid: undefined image bounds %v", b))
	}
	return &Image{
		WCS:    w,
		bounds: b,
		pix:    make([]float64, b.Area()),
		stride: b.Width(),
		origin: b,
	}
}

// Bounds returns the region of the image.
func (im *Image) Bounds() Bounds { return im.bounds }

func (im *Image) index(x, y int) int {
	return (y-im.origin.YMin)*im.stride + (x - im.origin.XMin)
}

// At returns the pixel value at (x, y). The pixel must lie inside Bounds.
func (im *Image) At(x, y int) float64 {
	if !im.bounds.Contains(x, y) {
		panic(fmt.Sprintf("grid: pixel (%d,%d) outside %v", x, y, im.bounds))
	}
	return im.pix[im.index(x, y)]
}

// Set stores v at pixel (x, y).
func (im *Image) Set(x, y int, v float64) {
	if !im.bounds.Contains(x, y) {
		panic(fmt.Sprintf("grid: pixel (%d,%d) outside %v", x, y, im.bounds))
	}
	im.pix[im.index(x, y)] = v
}

// AddAt adds v to the pixel at (x, y).
func (im *Image) AddAt(x, y int, v float64) {
	if !im.bounds.Contains(x, y) {
		panic(fmt.Sprintf("grid: pixel (%d,%d) outside %v", x, y, im.bounds))
	}
	im.pix[im.index(x, y)] += v
}

// Row returns the backing storage for row y restricted to the image bounds.
// The slice is a live view; writes through it modify the image.
func (im *Image) Row(y int) []float64 {
	start := im.index(im.bounds.XMin, y)
	return im.pix[start : start+im.bounds.Width()]
}

// SubImage returns a view of the region b, sharing storage with im.
func (im *Image) SubImage(b Bounds) *Image {
	if !im.bounds.ContainsBounds(b) {
		panic(fmt.Sprintf("grid: sub-bounds %v outside %v", b, im.bounds))
	}
	return &Image{
		WCS:    im.WCS,
		bounds: b,
		pix:    im.pix,
		stride: im.stride,
		origin: im.origin,
	}
}

// Copy returns a detached image with the same bounds and pixel values,
// backed by its own compact storage.
func (im *Image) Copy() *Image {
	out := NewImage(im.bounds, im.WCS)
	for y := im.bounds.YMin; y <= im.bounds.YMax; y++ {
		copy(out.Row(y), im.Row(y))
	}
	return out
}

// SetZero resets every pixel to zero.
func (im *Image) SetZero() {
	for y := im.bounds.YMin; y <= im.bounds.YMax; y++ {
		row := im.Row(y)
		for i := range row {
			row[i] = 0
		}
	}
}

// Fill sets every pixel to v.
func (im *Image) Fill(v float64) {
	for y := im.bounds.YMin; y <= im.bounds.YMax; y++ {
		row := im.Row(y)
		for i := range row {
			row[i] = v
		}
	}
}

// Scale multiplies every pixel by f.
func (im *Image) Scale(f float64) {
	for y := im.bounds.YMin; y <= im.bounds.YMax; y++ {
		floats.Scale(f, im.Row(y))
	}
}

// AddImage adds o into im pixel by pixel. The two images must cover
// identical bounds.
func (im *Image) AddImage(o *Image) error {
	if im.bounds != o.bounds {
		return fmt.Errorf("grid: bounds mismatch %v vs %v", im.bounds, o.bounds)
	}
	for y := im.bounds.YMin; y <= im.bounds.YMax; y++ {
		floats.Add(im.Row(y), o.Row(y))
	}
	return nil
}

// MulImage multiplies im by o pixel by pixel. The two images must cover
// identical bounds.
func (im *Image) MulImage(o *Image) error {
	if im.bounds != o.bounds {
		return fmt.Errorf("grid: bounds mismatch %v vs %v", im.bounds, o.bounds)
	}
	for y := im.bounds.YMin; y <= im.bounds.YMax; y++ {
		floats.Mul(im.Row(y), o.Row(y))
	}
	return nil
}

// Sum returns the sum of all pixel values.
func (im *Image) Sum() float64 {
	total := 0.0
	for y := im.bounds.YMin; y <= im.bounds.YMax; y++ {
		total += floats.Sum(im.Row(y))
	}
	return total
}

// Mean returns the mean pixel value.
func (im *Image) Mean() float64 {
	return im.Sum() / float64(im.bounds.Area())
}
