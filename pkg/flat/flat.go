// Package flat implements the tiled, iterative flat-field synthesis engine.
//
// A flat is built by repeatedly adding low-level sky increments so that the
// detector model's charge-dependent response (the brighter-fatter feedback)
// is folded in as the exposure accumulates. To bound memory, the image is
// processed in buffered sections: each section is accumulated independently
// over its expanded bounds, then only its interior is merged into the
// output. The traversal order of sections and iterations is fixed because
// it determines the draw order from the shared random stream; two runs with
// the same seed and configuration produce bit-identical images.
package flat

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"flatfield/internal/models"
	"flatfield/pkg/grid"
	"flatfield/pkg/noise"
	"flatfield/pkg/photon"
	"flatfield/pkg/sensor"
	"flatfield/pkg/wcs"
)

// Options carries the collaborators a Builder needs. Zero-value fields get
// working defaults: a uniform WCS, an identity detector, a seed-0 stream
// and a no-op logger.
type Options struct {
	// WCS is the pixel-to-sky mapping of the output image.
	WCS grid.WCS

	// Sensor is the detector-response model. Photon mode requires it to
	// implement sensor.Accumulator.
	Sensor sensor.Sensor

	// Sampler assigns photon wavelengths in photon mode. It is the
	// bandpass-weighted spectral context; photon mode fails without it.
	Sampler *photon.WavelengthSampler

	// Rand is the shared random stream. It is advanced monotonically in
	// the fixed traversal order and must not be used concurrently.
	Rand *rand.Rand

	// Logger receives progress at section (info) and iteration (debug)
	// granularity.
	Logger *zap.SugaredLogger
}

// Builder synthesizes one flat-field image from resolved parameters.
type Builder struct {
	params  *models.SynthesisParams
	wcs     grid.WCS
	sensor  sensor.Sensor
	sampler *photon.WavelengthSampler
	rng     *rand.Rand
	log     *zap.SugaredLogger
}

// New returns a Builder for the given resolved parameters. Precondition
// failures, like photon mode without a wavelength sampler, are reported
// here, before any pixel work happens.
func New(p *models.SynthesisParams, opts Options) (*Builder, error) {
	if p == nil {
		return nil, fmt.Errorf("flat: nil synthesis parameters")
	}
	b := &Builder{
		params:  p,
		wcs:     opts.WCS,
		sensor:  opts.Sensor,
		sampler: opts.Sampler,
		rng:     opts.Rand,
		log:     opts.Logger,
	}
	if b.wcs == nil {
		b.wcs = wcs.Uniform{}
	}
	if b.sensor == nil {
		b.sensor = sensor.Identity{}
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(0))
	}
	if b.log == nil {
		b.log = zap.NewNop().Sugar()
	}
	if p.PhotonMode {
		if b.sampler == nil {
			return nil, fmt.Errorf("flat: using an SED requires a valid bandpass")
		}
		if _, ok := b.sensor.(sensor.Accumulator); !ok {
			return nil, fmt.Errorf("flat: photon mode requires an accumulating sensor, got %T", b.sensor)
		}
	}
	return b, nil
}

// BuildImage allocates the blank output image at the resolved size, tagged
// with the coordinate mapping. A flat draws no objects, so the image starts
// and stays structurally empty until Synthesize fills it.
func (b *Builder) BuildImage() *grid.Image {
	p := b.params
	return grid.NewImage(grid.NewBounds(1, p.XSize, 1, p.YSize), b.wcs)
}

// NumObjects returns the number of discrete sources drawn on a flat: zero.
func (b *Builder) NumObjects() int { return 0 }

// Synthesize builds the flat and returns it with its run summary. The
// reported noise variance is zero: the Poisson noise is baked into the
// pixel values by accumulation, not tracked as a separate term.
func (b *Builder) Synthesize() (*grid.Image, *models.RunSummary, error) {
	p := b.params

	image := b.BuildImage()
	b.sensor.SetRandomStream(b.rng)

	b.log.Infow("making flat",
		"niter", p.NIter,
		"counts_per_iter", p.CountsPerIter,
		"grid", fmt.Sprintf("%dx%d", p.GridX, p.GridY),
		"photon_mode", p.PhotonMode,
	)

	// In mean-level mode the noise-free base increment is built once over
	// the full buffered bounds and sliced per section.
	var baseImage *grid.Image
	if !p.PhotonMode {
		var err error
		baseImage, err = b.makeBaseImage(image.Bounds())
		if err != nil {
			return nil, nil, err
		}
	}

	sections := sectionGrid(p.XSize, p.YSize, p.GridX, p.GridY)
	for n, secBounds := range sections {
		b.log.Infof("section %d of %d: %v", n+1, len(sections), secBounds)
		bounds := secBounds.WithBorder(p.BufferSize)

		if r, ok := b.sensor.(sensor.Resettable); ok {
			r.Reset()
		}

		section := grid.NewImage(bounds, b.wcs)
		for it := 0; it < p.NIter; it++ {
			b.log.Debugf("iter %d", it)
			var err error
			if p.PhotonMode {
				err = b.shootPhotons(section)
			} else {
				err = b.addMeanLevel(section, baseImage)
			}
			if err != nil {
				return nil, nil, fmt.Errorf("flat: section %v iteration %d: %w", secBounds, it, err)
			}
		}

		// Merge only the interior: the buffered border exists to give the
		// detector model edge context and never reaches the output.
		if err := image.SubImage(secBounds).AddImage(section.SubImage(secBounds)); err != nil {
			return nil, nil, fmt.Errorf("flat: merging section %v: %w", secBounds, err)
		}
		b.log.Debugf("section %v mean level %.2f", secBounds, image.SubImage(secBounds).Mean())
	}

	summary := &models.RunSummary{
		NoiseVariance: 0,
		NumObjects:    b.NumObjects(),
		Sections:      len(sections),
		Iterations:    p.NIter,
		MeanLevel:     image.Mean(),
	}
	b.log.Infow("flat done", "mean_level", summary.MeanLevel)
	return image, summary, nil
}

// makeBaseImage builds the noise-free per-iteration increment over the
// buffered full-image bounds: relative pixel areas from the WCS, rescaled
// so the mean level equals counts_per_iter.
func (b *Builder) makeBaseImage(imageBounds grid.Bounds) (*grid.Image, error) {
	base := grid.NewImage(imageBounds.WithBorder(b.params.BufferSize), b.wcs)
	if err := wcs.MakeSkyImage(base, 1); err != nil {
		return nil, err
	}
	meanArea := base.Mean()
	if meanArea <= 0 {
		return nil, fmt.Errorf("flat: coordinate mapping yields non-positive mean pixel area %g", meanArea)
	}
	base.Scale(b.params.CountsPerIter / meanArea)
	return base, nil
}

// addMeanLevel performs one mean-level iteration on a section accumulator:
// slice the base image over the section's buffered bounds, reweight it by
// the detector's current pixel areas (normalized to mean 1 so the target
// level is preserved), Poisson-realize it, and add it in.
func (b *Builder) addMeanLevel(section, baseImage *grid.Image) error {
	areas, err := b.sensor.PixelAreas(section)
	if err != nil {
		return fmt.Errorf("pixel areas: %w", err)
	}

	temp := baseImage.SubImage(section.Bounds()).Copy()
	if areas != nil {
		meanArea := areas.Mean()
		if meanArea <= 0 {
			return fmt.Errorf("sensor returned non-positive mean pixel area %g", meanArea)
		}
		if err := temp.MulImage(areas); err != nil {
			return fmt.Errorf("area reweighting: %w", err)
		}
		temp.Scale(1 / meanArea)
	}

	// temp now holds the expectation value in each pixel; realize it.
	if err := noise.ApplyPoisson(temp, b.rng); err != nil {
		return err
	}
	return section.AddImage(temp)
}

// shootPhotons performs one photon-shooting iteration on a section
// accumulator: draw a Poisson photon count at rate counts_per_iter per
// pixel over the buffered bounds, place the photons uniformly over the
// continuous extent of those bounds (pixel centers at integer coordinates),
// sample their wavelengths, and hand the batch to the detector, which
// applies geometric and wavelength-dependent effects itself.
func (b *Builder) shootPhotons(section *grid.Image) error {
	bounds := section.Bounds()
	mean := b.params.CountsPerIter * float64(bounds.Area())
	pd := distuv.Poisson{Lambda: mean, Src: b.rng}
	n := int(pd.Rand())

	batch := photon.NewBatch(n)
	for i := 0; i < n; i++ {
		batch.X[i] = b.rng.Float64()*float64(bounds.Width()) + float64(bounds.XMin) - 0.5
	}
	for i := 0; i < n; i++ {
		batch.Y[i] = b.rng.Float64()*float64(bounds.Height()) + float64(bounds.YMin) - 0.5
	}
	for i := 0; i < n; i++ {
		batch.Flux[i] = 1
	}
	b.sampler.Apply(batch, b.rng)

	acc := b.sensor.(sensor.Accumulator) // checked in New
	if err := acc.Accumulate(batch, section); err != nil {
		return fmt.Errorf("accumulate %d photons: %w", n, err)
	}
	b.log.Debugf("added %d photons: mean level %.2f", n, section.Mean())
	return nil
}

// sectionGrid tiles the 1-based interior [1,ncol]x[1,nrow] into a gridX by
// gridY set of disjoint bounds. The last column and row absorb remainder
// pixels when the grid does not divide the image evenly, so the union of
// the returned bounds covers every interior pixel exactly once. Sections
// are ordered columns outer, rows inner; this order is part of the
// determinism contract.
func sectionGrid(ncol, nrow, gridX, gridY int) []grid.Bounds {
	dx := ncol / gridX
	dy := nrow / gridY
	sections := make([]grid.Bounds, 0, gridX*gridY)
	for i := 0; i < gridX; i++ {
		xmin := i*dx + 1
		xmax := (i + 1) * dx
		if i == gridX-1 {
			xmax = ncol
		}
		for j := 0; j < gridY; j++ {
			ymin := j*dy + 1
			ymax := (j + 1) * dy
			if j == gridY-1 {
				ymax = nrow
			}
			sections = append(sections, grid.NewBounds(xmin, xmax, ymin, ymax))
		}
	}
	return sections
}
