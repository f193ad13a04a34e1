package wcs

import (
	"math"
	"testing"

	"flatfield/pkg/grid"
)

func TestUniform(t *testing.T) {
	u := Uniform{}
	if got := u.RelativePixelArea(100, -3); got != 1 {
		t.Errorf("Uniform area should be 1 everywhere, got %g", got)
	}

	ra, dec := u.ToWorld(3600, 7200)
	scale := 0.2 / 3600
	if math.Abs(ra-3600*scale) > 1e-12 || math.Abs(dec-7200*scale) > 1e-12 {
		t.Errorf("Unexpected world coordinates (%g, %g)", ra, dec)
	}
}

func TestTangentValidation(t *testing.T) {
	if _, err := NewTangent(0, 0, 100, 100, 0, 0.1); err == nil {
		t.Error("Zero pixel scale should be rejected")
	}
	if _, err := NewTangent(0, 0, 100, 100, -1, 0.1); err == nil {
		t.Error("Negative pixel scale should be rejected")
	}
}

func TestTangentPixelArea(t *testing.T) {
	tan, err := NewTangent(15, -30, 4000, 4000, 0.2/3600, 0.05)
	if err != nil {
		t.Fatalf("NewTangent failed: %v", err)
	}

	center := tan.RelativePixelArea(tan.CRPixX, tan.CRPixY)
	if math.Abs(center-1) > 1e-12 {
		t.Errorf("Area at projection center should be 1, got %g", center)
	}

	corner := tan.RelativePixelArea(1, 1)
	if corner <= center {
		t.Errorf("Positive distortion should grow areas off-center: corner %g <= center %g",
			corner, center)
	}

	// Area must grow monotonically with radius for positive distortion.
	prev := center
	for r := 500.0; r <= 2000; r += 500 {
		a := tan.RelativePixelArea(tan.CRPixX+r, tan.CRPixY)
		if a <= prev {
			t.Errorf("Area not monotonic at radius %g: %g <= %g", r, a, prev)
		}
		prev = a
	}
}

func TestTangentToWorld(t *testing.T) {
	tan, err := NewTangent(15, -30, 2000, 2000, 0.2/3600, 0)
	if err != nil {
		t.Fatalf("NewTangent failed: %v", err)
	}

	ra, dec := tan.ToWorld(tan.CRPixX, tan.CRPixY)
	if math.Abs(ra-15) > 1e-9 || math.Abs(dec+30) > 1e-9 {
		t.Errorf("Projection center should map to (15, -30), got (%g, %g)", ra, dec)
	}

	_, decUp := tan.ToWorld(tan.CRPixX, tan.CRPixY+1000)
	if decUp <= -30 {
		t.Errorf("Moving up in y should increase dec, got %g", decUp)
	}
}

func TestMakeSkyImage(t *testing.T) {
	tan, err := NewTangent(0, 0, 64, 64, 0.2/3600, 0.2)
	if err != nil {
		t.Fatalf("NewTangent failed: %v", err)
	}

	im := grid.NewImage(grid.NewBounds(1, 64, 1, 64), tan)
	if err := MakeSkyImage(im, 250); err != nil {
		t.Fatalf("MakeSkyImage failed: %v", err)
	}

	// Every pixel is the sky level scaled by its relative area.
	want := 250 * tan.RelativePixelArea(10, 20)
	if got := im.At(10, 20); math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %g at (10,20), got %g", want, got)
	}

	if im.Mean() < 250 {
		t.Errorf("With positive distortion the mean should exceed the sky level, got %g", im.Mean())
	}
}

func TestMakeSkyImageErrors(t *testing.T) {
	im := grid.NewImage(grid.NewBounds(1, 4, 1, 4), Uniform{})
	if err := MakeSkyImage(im, 0); err == nil {
		t.Error("Zero sky level should be rejected")
	}
	if err := MakeSkyImage(im, -5); err == nil {
		t.Error("Negative sky level should be rejected")
	}

	bare := grid.NewImage(grid.NewBounds(1, 4, 1, 4), nil)
	if err := MakeSkyImage(bare, 1); err == nil {
		t.Error("Image without a coordinate mapping should be rejected")
	}
}
