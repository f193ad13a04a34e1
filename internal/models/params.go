// Package models holds the plain data types shared between the flat
// synthesis engine and its callers.
package models

// SynthesisParams is the fully resolved, immutable parameter set for one
// flat-field image. It is produced once by the sizing resolver and never
// mutated during synthesis.
type SynthesisParams struct {
	// CountsPerPixel is the target mean exposure level of the finished flat.
	CountsPerPixel float64

	// MaxCountsPerIter bounds the mean level added per accumulation round.
	MaxCountsPerIter float64

	// CountsPerIter is the mean level added per round, derived so that
	// NIter * CountsPerIter == CountsPerPixel exactly.
	CountsPerIter float64

	// XSize, YSize are the output image dimensions in pixels.
	XSize, YSize int

	// BufferSize is the border margin, in pixels, added to every section so
	// the detector model sees valid neighboring context at tile edges.
	BufferSize int

	// GridX, GridY are the section grid dimensions.
	GridX, GridY int

	// NIter is the number of accumulation rounds per section.
	NIter int

	// RecalcInterval is forwarded to detector models that amortize
	// expensive internal recomputation: MaxCountsPerIter * XSize * YSize.
	RecalcInterval float64

	// PhotonMode selects wavelength-resolved photon shooting instead of
	// mean-level accumulation. Set when a spectral distribution is present.
	PhotonMode bool
}

// RunSummary reports the bookkeeping the caller needs about a finished
// synthesis run. A flat carries its noise in the pixel values themselves,
// so the reported variance is always zero, and it has no discrete sources.
type RunSummary struct {
	// NoiseVariance is the separately tracked noise variance of the output
	// image. Always 0 for a flat.
	NoiseVariance float64

	// NumObjects is the number of discrete sources drawn. Always 0.
	NumObjects int

	// Sections is the number of sections processed.
	Sections int

	// Iterations is the number of accumulation rounds per section.
	Iterations int

	// MeanLevel is the mean pixel value of the finished image.
	MeanLevel float64
}
