package flat

import (
	"fmt"
	"math"

	"flatfield/internal/models"
	"flatfield/pkg/config"
)

// Default tiling for the two synthesis modes. Photon shooting uses a finer
// grid to bound the per-tile photon count; both are tunable via grid_x and
// grid_y in the configuration.
const (
	defaultGridX       = 8
	defaultGridY       = 2
	defaultPhotonGridX = 16
	defaultPhotonGridY = 16

	defaultBufferSize = 2
)

// Resolve validates the declarative configuration and derives the full
// parameter set for one flat image: output size, iteration count, section
// grid, synthesis mode and the detector recalculation interval.
//
// The iteration count satisfies niter = ceil(counts_per_pixel /
// max_counts_per_iter), with counts_per_iter = counts_per_pixel / niter so
// the iterations sum back to the target level exactly.
func Resolve(cfg *config.Config) (*models.SynthesisParams, error) {
	img := cfg.Image

	if img.CountsPerPixel <= 0 {
		return nil, fmt.Errorf("flat: counts_per_pixel is required and must be positive, got %g",
			img.CountsPerPixel)
	}
	if img.XSize <= 0 || img.YSize <= 0 {
		return nil, fmt.Errorf("flat: xsize and ysize are required and must be positive, got %dx%d",
			img.XSize, img.YSize)
	}
	maxPerIter := img.MaxCountsPerIter
	if maxPerIter == 0 {
		maxPerIter = 1000
	}
	if maxPerIter < 0 {
		return nil, fmt.Errorf("flat: max_counts_per_iter must be positive, got %g", maxPerIter)
	}

	bufferSize := defaultBufferSize
	if img.BufferSize != nil {
		bufferSize = *img.BufferSize
	}
	if bufferSize < 0 {
		return nil, fmt.Errorf("flat: buffer_size must be non-negative, got %d", bufferSize)
	}

	photonMode := cfg.SED.Present()
	gridX, gridY := img.GridX, img.GridY
	if gridX == 0 {
		if photonMode {
			gridX = defaultPhotonGridX
		} else {
			gridX = defaultGridX
		}
	}
	if gridY == 0 {
		if photonMode {
			gridY = defaultPhotonGridY
		} else {
			gridY = defaultGridY
		}
	}
	if gridX < 0 || gridY < 0 {
		return nil, fmt.Errorf("flat: grid dimensions must be positive, got %dx%d", gridX, gridY)
	}
	if gridX > img.XSize || gridY > img.YSize {
		return nil, fmt.Errorf("flat: grid %dx%d exceeds image size %dx%d",
			gridX, gridY, img.XSize, img.YSize)
	}

	niter := int(math.Ceil(img.CountsPerPixel / maxPerIter))
	if niter < 1 {
		niter = 1
	}

	return &models.SynthesisParams{
		CountsPerPixel:   img.CountsPerPixel,
		MaxCountsPerIter: maxPerIter,
		CountsPerIter:    img.CountsPerPixel / float64(niter),
		XSize:            img.XSize,
		YSize:            img.YSize,
		BufferSize:       bufferSize,
		GridX:            gridX,
		GridY:            gridY,
		NIter:            niter,
		RecalcInterval:   maxPerIter * float64(img.XSize) * float64(img.YSize),
		PhotonMode:       photonMode,
	}, nil
}
