package sensor

import (
	"math"
	"testing"

	"flatfield/pkg/grid"
	"flatfield/pkg/photon"
)

func TestIdentityPixelAreas(t *testing.T) {
	im := grid.NewImage(grid.NewBounds(1, 8, 1, 8), nil)
	areas, err := Identity{}.PixelAreas(im)
	if err != nil {
		t.Fatalf("PixelAreas failed: %v", err)
	}
	if areas != nil {
		t.Error("Identity should report uniform response with a nil area map")
	}
}

func TestIdentityAccumulate(t *testing.T) {
	im := grid.NewImage(grid.NewBounds(1, 4, 1, 4), nil)

	b := photon.NewBatch(3)
	b.X = []float64{2.1, 1.9, -5} // third photon is outside the image
	b.Y = []float64{3.4, 2.0, 2}
	b.Flux = []float64{1, 2, 1}
	b.Wavelength = []float64{0, 0, 0}

	if err := (Identity{}).Accumulate(b, im); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}

	if got := im.At(2, 3); got != 1 {
		t.Errorf("Expected flux 1 at (2,3), got %g", got)
	}
	if got := im.At(2, 2); got != 2 {
		t.Errorf("Expected flux 2 at (2,2), got %g", got)
	}
	if got := im.Sum(); got != 3 {
		t.Errorf("Out-of-bounds photon should be dropped; total flux %g", got)
	}
}

func TestChargeFeedbackValidation(t *testing.T) {
	if _, err := NewChargeFeedback(-0.1, 0); err == nil {
		t.Error("Negative strength should be rejected")
	}
}

func TestChargeFeedbackUniformCharge(t *testing.T) {
	fb, err := NewChargeFeedback(0.1, 0)
	if err != nil {
		t.Fatalf("NewChargeFeedback failed: %v", err)
	}

	im := grid.NewImage(grid.NewBounds(1, 10, 1, 10), nil)
	im.Fill(500)

	areas, err := fb.PixelAreas(im)
	if err != nil {
		t.Fatalf("PixelAreas failed: %v", err)
	}
	for y := 1; y <= 10; y++ {
		for x := 1; x <= 10; x++ {
			if got := areas.At(x, y); math.Abs(got-1) > 1e-12 {
				t.Fatalf("Uniform charge should give unit areas, got %g at (%d,%d)", got, x, y)
			}
		}
	}
}

func TestChargeFeedbackContrast(t *testing.T) {
	fb, err := NewChargeFeedback(0.1, 0)
	if err != nil {
		t.Fatalf("NewChargeFeedback failed: %v", err)
	}

	im := grid.NewImage(grid.NewBounds(1, 9, 1, 9), nil)
	im.Fill(100)
	im.Set(5, 5, 1000) // a bright pixel surrounded by dimmer neighbors

	areas, err := fb.PixelAreas(im)
	if err != nil {
		t.Fatalf("PixelAreas failed: %v", err)
	}

	if hot := areas.At(5, 5); hot >= 1 {
		t.Errorf("A pixel brighter than its neighbors should shrink, got area %g", hot)
	}
	if next := areas.At(4, 5); next <= 1 {
		t.Errorf("A neighbor of a bright pixel should grow, got area %g", next)
	}
	if far := areas.At(1, 1); math.Abs(far-1) > 1e-9 {
		t.Errorf("A pixel far from the contrast should be unperturbed, got %g", far)
	}
}

func TestChargeFeedbackRecalcInterval(t *testing.T) {
	fb, err := NewChargeFeedback(0.1, 1e6)
	if err != nil {
		t.Fatalf("NewChargeFeedback failed: %v", err)
	}

	im := grid.NewImage(grid.NewBounds(1, 6, 1, 6), nil)
	im.Fill(10)

	first, err := fb.PixelAreas(im)
	if err != nil {
		t.Fatalf("PixelAreas failed: %v", err)
	}

	// A small charge increment stays under the interval: the cached map
	// must be returned even though the charge pattern changed.
	im.Set(3, 3, 500)
	second, err := fb.PixelAreas(im)
	if err != nil {
		t.Fatalf("PixelAreas failed: %v", err)
	}
	if second != first {
		t.Error("Below the recalculation interval the cached area map should be reused")
	}

	// Reset invalidates the cache regardless of accumulated charge.
	fb.Reset()
	third, err := fb.PixelAreas(im)
	if err != nil {
		t.Fatalf("PixelAreas failed: %v", err)
	}
	if third == first {
		t.Error("Reset should force a fresh area map")
	}
	if third.At(3, 3) >= 1 {
		t.Errorf("Recomputed map should reflect the bright pixel, got %g", third.At(3, 3))
	}
}

func TestChargeFeedbackBoundsChange(t *testing.T) {
	fb, err := NewChargeFeedback(0.1, 1e6)
	if err != nil {
		t.Fatalf("NewChargeFeedback failed: %v", err)
	}

	a := grid.NewImage(grid.NewBounds(1, 6, 1, 6), nil)
	if _, err := fb.PixelAreas(a); err != nil {
		t.Fatalf("PixelAreas failed: %v", err)
	}

	b := grid.NewImage(grid.NewBounds(7, 12, 1, 6), nil)
	areas, err := fb.PixelAreas(b)
	if err != nil {
		t.Fatalf("PixelAreas failed: %v", err)
	}
	if areas.Bounds() != b.Bounds() {
		t.Errorf("Area map should cover the new bounds %v, got %v", b.Bounds(), areas.Bounds())
	}
}

func TestChargeFeedbackAccumulate(t *testing.T) {
	fb, err := NewChargeFeedback(0, 0)
	if err != nil {
		t.Fatalf("NewChargeFeedback failed: %v", err)
	}

	im := grid.NewImage(grid.NewBounds(1, 4, 1, 4), nil)

	b := photon.NewBatch(3)
	b.X = []float64{2, 3, 2}
	b.Y = []float64{2, 3, 3}
	b.Flux = []float64{1, 1, 1}
	b.Wavelength = []float64{600, 1025, 1200} // visible, half-collected, lost

	if err := fb.Accumulate(b, im); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}

	if got := im.At(2, 2); got != 1 {
		t.Errorf("600 nm photon should deposit full flux, got %g", got)
	}
	if got := im.At(3, 3); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("1025 nm photon should deposit half flux, got %g", got)
	}
	if got := im.At(2, 3); got != 0 {
		t.Errorf("1200 nm photon should deposit nothing, got %g", got)
	}
}
