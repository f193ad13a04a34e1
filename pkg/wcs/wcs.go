// Package wcs provides pixel-to-sky coordinate mappings for synthesized
// images. The synthesis engine only consumes the grid.WCS capability; the
// concrete mappings here supply the smooth pixel-area variation a real
// focal plane exhibits across its field of view.
package wcs

import (
	"fmt"
	"math"

	"flatfield/pkg/grid"
)

// Uniform is the trivial mapping: every pixel subtends the same area and
// world coordinates are a direct scaling of pixel coordinates.
type Uniform struct {
	// PixelScale is the world size of one pixel in degrees. A zero value
	// means 0.2 arcsec, a typical LSST-class plate scale.
	PixelScale float64
}

func (u Uniform) scale() float64 {
	if u.PixelScale != 0 {
		return u.PixelScale
	}
	return 0.2 / 3600
}

// RelativePixelArea implements grid.WCS.
func (u Uniform) RelativePixelArea(x, y float64) float64 { return 1 }

// ToWorld implements grid.WCS.
func (u Uniform) ToWorld(x, y float64) (ra, dec float64) {
	s := u.scale()
	return x * s, y * s
}

// Tangent is a tangent-plane projection centered on (CRPixX, CRPixY) with a
// radial plate-scale distortion, so pixels far from the projection center
// subtend slightly different areas than pixels at the center.
type Tangent struct {
	// RA0, Dec0 are the world coordinates of the projection center, degrees.
	RA0, Dec0 float64

	// CRPixX, CRPixY are the pixel coordinates of the projection center.
	CRPixX, CRPixY float64

	// PixelScale is the plate scale at the center, degrees per pixel.
	PixelScale float64

	// Distortion is the quadratic radial distortion coefficient. The pixel
	// area varies as 1 + Distortion*r^2 with r in units of 1000 pixels.
	Distortion float64
}

// NewTangent returns a tangent-plane mapping centered on the middle of an
// xsize by ysize image.
func NewTangent(ra0, dec0 float64, xsize, ysize int, pixelScale, distortion float64) (*Tangent, error) {
	if pixelScale <= 0 {
		return nil, fmt.Errorf("wcs: pixel scale must be positive, got %g", pixelScale)
	}
	return &Tangent{
		RA0:        ra0,
		Dec0:       dec0,
		CRPixX:     float64(xsize+1) / 2,
		CRPixY:     float64(ysize+1) / 2,
		PixelScale: pixelScale,
		Distortion: distortion,
	}, nil
}

func (t *Tangent) r2(x, y float64) float64 {
	dx := (x - t.CRPixX) / 1000
	dy := (y - t.CRPixY) / 1000
	return dx*dx + dy*dy
}

// RelativePixelArea implements grid.WCS.
func (t *Tangent) RelativePixelArea(x, y float64) float64 {
	return 1 + t.Distortion*t.r2(x, y)
}

// ToWorld implements grid.WCS. The projection is the small-field tangent
// approximation: adequate for a single sensor's footprint.
func (t *Tangent) ToWorld(x, y float64) (ra, dec float64) {
	r2 := t.r2(x, y)
	s := t.PixelScale * (1 + t.Distortion*r2/2)
	dec = t.Dec0 + (y-t.CRPixY)*s
	ra = t.RA0 + (x-t.CRPixX)*s/math.Cos(dec*math.Pi/180)
	return ra, dec
}

// MakeSkyImage fills im with skyLevel scaled by the relative pixel area of
// the image's own coordinate mapping, evaluated at each pixel center.
func MakeSkyImage(im *grid.Image, skyLevel float64) error {
	if skyLevel <= 0 {
		return fmt.Errorf("wcs: sky level must be positive, got %g", skyLevel)
	}
	w := im.WCS
	if w == nil {
		return fmt.Errorf("wcs: image has no coordinate mapping")
	}
	b := im.Bounds()
	for y := b.YMin; y <= b.YMax; y++ {
		row := im.Row(y)
		for i := range row {
			row[i] = skyLevel * w.RelativePixelArea(float64(b.XMin+i), float64(y))
		}
	}
	return nil
}
