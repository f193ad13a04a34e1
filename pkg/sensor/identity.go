package sensor

import (
	"math"

	"golang.org/x/exp/rand"

	"flatfield/pkg/grid"
	"flatfield/pkg/photon"
)

// Identity is the trivial detector: uniform pixel response and direct
// nearest-pixel photon deposition with no charge feedback.
type Identity struct{}

// PixelAreas implements Sensor. The nil return signals uniform response.
func (Identity) PixelAreas(im *grid.Image) (*grid.Image, error) {
	return nil, nil
}

// SetRandomStream implements Sensor.
func (Identity) SetRandomStream(rng *rand.Rand) {}

// Accumulate implements Accumulator: each photon's flux lands entirely in
// the pixel whose center is nearest its position. Photons outside the image
// bounds are dropped.
func (Identity) Accumulate(b *photon.Batch, im *grid.Image) error {
	bounds := im.Bounds()
	for i := 0; i < b.Len(); i++ {
		x := int(math.Round(b.X[i]))
		y := int(math.Round(b.Y[i]))
		if bounds.Contains(x, y) {
			im.AddAt(x, y, b.Flux[i])
		}
	}
	return nil
}
