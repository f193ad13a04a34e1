package sensor

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"flatfield/pkg/grid"
	"flatfield/pkg/photon"
)

// ChargeFeedback is a stateful detector model with a brighter-fatter style
// response: pixels holding more charge than their neighbors shrink in
// effective area, pushing flux toward the neighbors. It also applies a
// simple wavelength-dependent collection efficiency in the photon path.
//
// The model caches its pixel-area map and only recomputes it after
// RecalcInterval counts of new charge have been seen, the same amortization
// a full silicon model uses. The cache is only valid within one section's
// sequential iterations; the engine calls Reset at section boundaries.
type ChargeFeedback struct {
	// Strength scales the area perturbation per unit of charge contrast
	// between a pixel and its neighbors. Typical useful values are small,
	// of order 1e-3 to 1e-1.
	Strength float64

	// RecalcInterval is the number of counts of newly accumulated charge
	// between recalculations of the area map. Zero or negative means
	// recalculate on every call.
	RecalcInterval float64

	rng      *rand.Rand
	areas    *grid.Image
	prevSum  float64
	seen     float64
	lastCalc float64
}

// NewChargeFeedback returns a charge-feedback detector.
func NewChargeFeedback(strength, recalcInterval float64) (*ChargeFeedback, error) {
	if strength < 0 {
		return nil, fmt.Errorf("sensor: feedback strength must be non-negative, got %g", strength)
	}
	return &ChargeFeedback{Strength: strength, RecalcInterval: recalcInterval}, nil
}

// SetRandomStream implements Sensor.
func (s *ChargeFeedback) SetRandomStream(rng *rand.Rand) { s.rng = rng }

// Reset implements Resettable, discarding the cached area map and charge
// bookkeeping at a section boundary.
func (s *ChargeFeedback) Reset() {
	s.areas = nil
	s.prevSum = 0
	s.seen = 0
	s.lastCalc = 0
}

// PixelAreas implements Sensor. The returned image is owned by the model
// and valid until the next PixelAreas, Accumulate or Reset call.
func (s *ChargeFeedback) PixelAreas(im *grid.Image) (*grid.Image, error) {
	sum := im.Sum()
	if s.areas != nil && im.Bounds() == s.areas.Bounds() {
		if delta := sum - s.prevSum; delta > 0 {
			s.seen += delta
		}
		s.prevSum = sum
		if s.RecalcInterval > 0 && s.seen-s.lastCalc < s.RecalcInterval {
			return s.areas, nil
		}
	} else {
		s.prevSum = sum
		s.seen = 0
	}
	s.recompute(im)
	s.lastCalc = s.seen
	return s.areas, nil
}

// recompute rebuilds the area map from the accumulated charge in im.
// The contrast between each pixel and the mean of its 4-neighbors drives
// the perturbation, normalized by the mean charge level so the effect rises
// with signal, as the brighter-fatter effect does.
func (s *ChargeFeedback) recompute(im *grid.Image) {
	b := im.Bounds()
	mean := im.Mean()
	areas := grid.NewImage(b, im.WCS)
	for y := b.YMin; y <= b.YMax; y++ {
		for x := b.XMin; x <= b.XMax; x++ {
			q := im.At(x, y)
			var nsum float64
			var n int
			for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nx, ny := x+d[0], y+d[1]
				if b.Contains(nx, ny) {
					nsum += im.At(nx, ny)
					n++
				}
			}
			contrast := nsum/float64(n) - q
			a := 1 + s.Strength*contrast/(mean+1)
			// Keep areas physical under extreme contrasts.
			areas.Set(x, y, math.Min(math.Max(a, 0.2), 5))
		}
	}
	s.areas = areas
}

// collectionEfficiency models the long-wavelength falloff of silicon:
// full efficiency through 950 nm, declining linearly to zero at 1100 nm.
// Unsampled photons (wavelength 0) are collected with full efficiency.
func collectionEfficiency(wavelength float64) float64 {
	switch {
	case wavelength <= 950:
		return 1
	case wavelength >= 1100:
		return 0
	default:
		return (1100 - wavelength) / 150
	}
}

// Accumulate implements Accumulator. Each photon deposits its flux, scaled
// by the collection efficiency for its wavelength and by the effective area
// of the pixel it lands in, into the nearest pixel.
func (s *ChargeFeedback) Accumulate(b *photon.Batch, im *grid.Image) error {
	areas, err := s.PixelAreas(im)
	if err != nil {
		return err
	}
	bounds := im.Bounds()
	added := 0.0
	for i := 0; i < b.Len(); i++ {
		x := int(math.Round(b.X[i]))
		y := int(math.Round(b.Y[i]))
		if !bounds.Contains(x, y) {
			continue
		}
		f := b.Flux[i] * collectionEfficiency(b.Wavelength[i]) * areas.At(x, y)
		im.AddAt(x, y, f)
		added += f
	}
	s.seen += added
	s.prevSum += added
	return nil
}
