// Package photon holds photon batches and the spectral machinery used by
// the photon-shooting synthesis mode: tabulated SED and bandpass curves and
// a wavelength sampler over their product.
package photon

import (
	"fmt"
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// Batch is a struct-of-arrays photon list. All slices share one length.
type Batch struct {
	// X, Y are photon positions in pixel coordinates, with pixel centers
	// at integer coordinates.
	X, Y []float64

	// Flux is the photon flux, normally 1 per photon for a flat.
	Flux []float64

	// Wavelength is the photon wavelength in nm, zero until sampled.
	Wavelength []float64
}

// NewBatch allocates a batch of n photons with all fields zeroed.
func NewBatch(n int) *Batch {
	return &Batch{
		X:          make([]float64, n),
		Y:          make([]float64, n),
		Flux:       make([]float64, n),
		Wavelength: make([]float64, n),
	}
}

// Len returns the number of photons in the batch.
func (b *Batch) Len() int { return len(b.X) }

// Curve is a tabulated spectral curve: values sampled at strictly
// increasing wavelengths, linearly interpolated between nodes and zero
// outside the tabulated range.
type Curve struct {
	Wavelengths []float64
	Values      []float64
}

// NewCurve validates and returns a tabulated curve.
func NewCurve(wavelengths, values []float64) (*Curve, error) {
	if len(wavelengths) < 2 {
		return nil, fmt.Errorf("photon: curve needs at least 2 nodes, got %d", len(wavelengths))
	}
	if len(wavelengths) != len(values) {
		return nil, fmt.Errorf("photon: curve has %d wavelengths but %d values",
			len(wavelengths), len(values))
	}
	if !sort.Float64sAreSorted(wavelengths) {
		return nil, fmt.Errorf("photon: curve wavelengths must be increasing")
	}
	for i, v := range values {
		if v < 0 {
			return nil, fmt.Errorf("photon: curve value %g at %g nm is negative",
				v, wavelengths[i])
		}
	}
	return &Curve{Wavelengths: wavelengths, Values: values}, nil
}

// Eval returns the interpolated curve value at wavelength w.
func (c *Curve) Eval(w float64) float64 {
	n := len(c.Wavelengths)
	if w < c.Wavelengths[0] || w > c.Wavelengths[n-1] {
		return 0
	}
	i := sort.SearchFloat64s(c.Wavelengths, w)
	if i < n && c.Wavelengths[i] == w {
		return c.Values[i]
	}
	// w lies strictly between nodes i-1 and i.
	w0, w1 := c.Wavelengths[i-1], c.Wavelengths[i]
	t := (w - w0) / (w1 - w0)
	return c.Values[i-1]*(1-t) + c.Values[i]*t
}

// WavelengthSampler draws photon wavelengths from the product of an SED and
// a bandpass via inverse transform sampling on the tabulated product.
type WavelengthSampler struct {
	nodes   []float64
	density []float64 // normalized product density at each node
	cdf     []float64 // cumulative integral up to each node, cdf[0] == 0
}

// NewWavelengthSampler builds a sampler for sed weighted by bandpass. The
// two curves must overlap with a strictly positive integrated product.
func NewWavelengthSampler(sed, bandpass *Curve) (*WavelengthSampler, error) {
	if sed == nil || bandpass == nil {
		return nil, fmt.Errorf("photon: wavelength sampler needs both an SED and a bandpass")
	}

	// The product is zero outside the overlap of the two tabulated ranges,
	// so the sampler's support is the overlap, not the union. Clipping to
	// it keeps the step down to zero at either curve's edge from leaking
	// trapezoid mass outside the band.
	lo := math.Max(sed.Wavelengths[0], bandpass.Wavelengths[0])
	hi := math.Min(sed.Wavelengths[len(sed.Wavelengths)-1],
		bandpass.Wavelengths[len(bandpass.Wavelengths)-1])
	if hi <= lo {
		return nil, fmt.Errorf("photon: SED and bandpass do not overlap")
	}

	// Merge the interior node grids of both curves so every breakpoint of
	// the product inside the overlap is a node of the sampler.
	merged := make([]float64, 0, len(sed.Wavelengths)+len(bandpass.Wavelengths)+2)
	merged = append(merged, lo)
	for _, w := range sed.Wavelengths {
		if w > lo && w < hi {
			merged = append(merged, w)
		}
	}
	for _, w := range bandpass.Wavelengths {
		if w > lo && w < hi {
			merged = append(merged, w)
		}
	}
	merged = append(merged, hi)
	sort.Float64s(merged)
	nodes := merged[:1]
	for _, w := range merged[1:] {
		if w != nodes[len(nodes)-1] {
			nodes = append(nodes, w)
		}
	}

	density := make([]float64, len(nodes))
	for i, w := range nodes {
		density[i] = sed.Eval(w) * bandpass.Eval(w)
	}

	// Trapezoidal cumulative integral.
	cdf := make([]float64, len(nodes))
	for i := 1; i < len(nodes); i++ {
		dw := nodes[i] - nodes[i-1]
		cdf[i] = cdf[i-1] + 0.5*(density[i]+density[i-1])*dw
	}
	total := cdf[len(cdf)-1]
	if total <= 0 {
		return nil, fmt.Errorf("photon: SED and bandpass product integrates to zero")
	}
	floats.Scale(1/total, cdf)
	floats.Scale(1/total, density)

	return &WavelengthSampler{nodes: nodes, density: density, cdf: cdf}, nil
}

// Apply assigns a wavelength to every photon in the batch, advancing rng by
// exactly one uniform draw per photon.
func (s *WavelengthSampler) Apply(b *Batch, rng *rand.Rand) {
	for i := range b.Wavelength {
		b.Wavelength[i] = s.sample(rng.Float64())
	}
}

func (s *WavelengthSampler) sample(u float64) float64 {
	i := sort.SearchFloat64s(s.cdf, u)
	if i <= 0 {
		return s.nodes[0]
	}
	if i >= len(s.cdf) {
		return s.nodes[len(s.nodes)-1]
	}
	// The density is linear across the segment, so the CDF is quadratic
	// in the offset x from the left node:
	//   cdf(x) = c0 + d0*x + (d1-d0)/(2*dw)*x^2
	// Solving for x with the stable root form 2*du/(d0+sqrt(disc)) avoids
	// cancellation when the slope is small and reduces to du/d0 on flat
	// segments.
	w0, w1 := s.nodes[i-1], s.nodes[i]
	d0, d1 := s.density[i-1], s.density[i]
	dw := w1 - w0
	du := u - s.cdf[i-1]
	if du <= 0 {
		return w0
	}
	a := (d1 - d0) / (2 * dw)
	disc := d0*d0 + 4*a*du
	if disc < 0 {
		disc = 0
	}
	den := d0 + math.Sqrt(disc)
	if den <= 0 {
		return w0
	}
	x := 2 * du / den
	if x > dw {
		x = dw
	}
	return w0 + x
}
