package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"flatfield/pkg/config"
	"flatfield/pkg/flat"
	"flatfield/pkg/grid"
	"flatfield/pkg/photon"
	"flatfield/pkg/sensor"
	"flatfield/pkg/wcs"
)

func main() {
	configPath := flag.String("config", "", "YAML synthesis configuration")
	outputPath := flag.String("output", "flat.bin", "Output raw float64 image file")
	previewPath := flag.String("preview", "", "Optional 16-bit PNG preview file")
	seed := flag.Uint64("seed", 0, "Random seed (overrides random_seed in config when non-zero)")
	verbose := flag.Bool("verbose", false, "Enable per-section progress logging")
	flag.Parse()

	if *configPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *seed != 0 {
		cfg.Image.RandomSeed = *seed
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	params, err := flat.Resolve(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	opts, err := buildCollaborators(cfg)
	if err != nil {
		log.Fatalf("Failed to set up synthesis: %v", err)
	}

	builder, err := flat.New(params, opts)
	if err != nil {
		log.Fatalf("Failed to set up synthesis: %v", err)
	}

	fmt.Printf("Synthesizing %dx%d flat: %d sections, %d iterations of %.1f counts\n",
		params.XSize, params.YSize, params.GridX*params.GridY, params.NIter, params.CountsPerIter)

	startTime := time.Now()
	img, summary, err := builder.Synthesize()
	if err != nil {
		log.Fatalf("Synthesis failed: %v", err)
	}

	fmt.Printf("Done in %.2f seconds: mean level %.1f (target %.1f), variance reported %g, objects %d\n",
		time.Since(startTime).Seconds(), summary.MeanLevel, params.CountsPerPixel,
		summary.NoiseVariance, summary.NumObjects)

	if err := writeRaw(*outputPath, img); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	fmt.Printf("Image written to %s\n", *outputPath)

	if *previewPath != "" {
		if err := writePreview(*previewPath, img); err != nil {
			log.Fatalf("Failed to write preview: %v", err)
		}
		fmt.Printf("Preview written to %s\n", *previewPath)
	}
}

// buildCollaborators constructs the WCS, detector model, wavelength sampler
// and random stream described by the configuration.
func buildCollaborators(cfg *config.Config) (flat.Options, error) {
	var opts flat.Options

	tan, err := wcs.NewTangent(cfg.WCS.RA, cfg.WCS.Dec, cfg.Image.XSize, cfg.Image.YSize,
		cfg.WCS.PixelScale, cfg.WCS.Distortion)
	if err != nil {
		return opts, err
	}
	opts.WCS = tan

	switch cfg.Sensor.Model {
	case "", "none":
		opts.Sensor = sensor.Identity{}
	case "feedback":
		recalc := cfg.Image.MaxCountsPerIter * float64(cfg.Image.XSize) * float64(cfg.Image.YSize)
		fb, err := sensor.NewChargeFeedback(cfg.Sensor.Strength, recalc)
		if err != nil {
			return opts, err
		}
		opts.Sensor = fb
	default:
		return opts, fmt.Errorf("unknown sensor model %q", cfg.Sensor.Model)
	}

	if cfg.SED.Present() {
		sed, err := photon.NewCurve(cfg.SED.Wavelengths, cfg.SED.Values)
		if err != nil {
			return opts, fmt.Errorf("invalid sed: %w", err)
		}
		if !cfg.Bandpass.Present() {
			return opts, fmt.Errorf("using an SED requires a bandpass")
		}
		bp, err := photon.NewCurve(cfg.Bandpass.Wavelengths, cfg.Bandpass.Values)
		if err != nil {
			return opts, fmt.Errorf("invalid bandpass: %w", err)
		}
		opts.Sampler, err = photon.NewWavelengthSampler(sed, bp)
		if err != nil {
			return opts, err
		}
	}

	opts.Rand = rand.New(rand.NewSource(cfg.Image.RandomSeed))

	if cfg.Output.Verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return opts, err
		}
		opts.Logger = logger.Sugar()
	}

	return opts, nil
}

// writeRaw writes the image as little-endian float64 pixels in row-major
// order, preceded by two int64 dimensions.
func writeRaw(path string, img *grid.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	b := img.Bounds()
	if err := binary.Write(file, binary.LittleEndian, int64(b.Width())); err != nil {
		return err
	}
	if err := binary.Write(file, binary.LittleEndian, int64(b.Height())); err != nil {
		return err
	}
	for y := b.YMin; y <= b.YMax; y++ {
		if err := binary.Write(file, binary.LittleEndian, img.Row(y)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", y, err)
		}
	}
	return nil
}

// writePreview writes a 16-bit grayscale PNG with the pixel range scaled to
// the full 16-bit range.
func writePreview(path string, img *grid.Image) error {
	b := img.Bounds()
	lo, hi := img.At(b.XMin, b.YMin), img.At(b.XMin, b.YMin)
	for y := b.YMin; y <= b.YMax; y++ {
		for _, v := range img.Row(y) {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 65535 / (hi - lo)
	}

	out := image.NewGray16(image.Rect(0, 0, b.Width(), b.Height()))
	for y := b.YMin; y <= b.YMax; y++ {
		row := img.Row(y)
		for i, v := range row {
			out.SetGray16(i, y-b.YMin, color.Gray16{Y: uint16((v - lo) * scale)})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview file: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, out); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}
