// Package sensor defines the detector-response capability consumed by the
// flat synthesis engine, together with two reference models: a trivial
// identity detector and a stateful charge-feedback detector that mimics the
// brighter-fatter coupling between accumulated charge and pixel geometry.
package sensor

import (
	"golang.org/x/exp/rand"

	"flatfield/pkg/grid"
	"flatfield/pkg/photon"
)

// Sensor is the stateless (area-only) detector capability used by the
// mean-level synthesis mode.
type Sensor interface {
	// PixelAreas returns the effective relative area of each pixel given
	// the charge accumulated in im so far. A nil area image means the
	// detector response is uniform and no reweighting is needed.
	PixelAreas(im *grid.Image) (*grid.Image, error)

	// SetRandomStream hands the detector the shared random stream for any
	// stochastic internal effects. Models that draw no randomness may
	// ignore it.
	SetRandomStream(rng *rand.Rand)
}

// Accumulator is the stateful detector capability used by the
// photon-shooting mode: it deposits photons onto an image, applying
// geometric and wavelength-dependent effects itself.
type Accumulator interface {
	Sensor

	// Accumulate deposits the batch onto im.
	Accumulate(b *photon.Batch, im *grid.Image) error
}

// Resettable is implemented by detectors whose internal caches are only
// valid within one section's sequential iterations; the engine resets them
// at each section boundary.
type Resettable interface {
	Reset()
}
