// Package noise realizes expected-value images as stochastic draws.
package noise

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"flatfield/pkg/grid"
)

// ApplyPoisson replaces every pixel of im, holding the expectation value of
// the counts in that pixel, with a Poisson draw at that mean. Pixels are
// visited in row-major order so the stream advances deterministically.
// Non-positive expectations realize as zero counts.
func ApplyPoisson(im *grid.Image, rng *rand.Rand) error {
	if rng == nil {
		return fmt.Errorf("noise: nil random stream")
	}
	b := im.Bounds()
	for y := b.YMin; y <= b.YMax; y++ {
		row := im.Row(y)
		for i, mean := range row {
			if mean <= 0 {
				row[i] = 0
				continue
			}
			p := distuv.Poisson{Lambda: mean, Src: rng}
			row[i] = p.Rand()
		}
	}
	return nil
}
