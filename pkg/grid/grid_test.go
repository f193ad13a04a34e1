package grid

import (
	"math"
	"testing"
)

func TestBoundsDimensions(t *testing.T) {
	b := NewBounds(1, 8, 1, 4)
	if b.Width() != 8 || b.Height() != 4 || b.Area() != 32 {
		t.Errorf("Expected 8x4 (32 px), got %dx%d (%d px)", b.Width(), b.Height(), b.Area())
	}

	undefined := NewBounds(5, 4, 1, 1)
	if undefined.IsDefined() {
		t.Error("Bounds with XMax < XMin should be undefined")
	}
	if undefined.Area() != 0 {
		t.Errorf("Undefined bounds should have zero area, got %d", undefined.Area())
	}
}

func TestBoundsWithBorder(t *testing.T) {
	b := NewBounds(1, 10, 1, 5).WithBorder(2)
	want := NewBounds(-1, 12, -1, 7)
	if b != want {
		t.Errorf("Expected %v, got %v", want, b)
	}

	// A zero border must be a no-op.
	if got := want.WithBorder(0); got != want {
		t.Errorf("WithBorder(0) changed bounds: %v -> %v", want, got)
	}
}

func TestBoundsContainsAndIntersect(t *testing.T) {
	b := NewBounds(1, 10, 1, 5)
	if !b.Contains(1, 1) || !b.Contains(10, 5) {
		t.Error("Bounds should contain their corners")
	}
	if b.Contains(0, 1) || b.Contains(11, 5) || b.Contains(5, 6) {
		t.Error("Bounds should not contain pixels outside them")
	}

	o := NewBounds(8, 15, 4, 9)
	got := b.Intersect(o)
	want := NewBounds(8, 10, 4, 5)
	if got != want {
		t.Errorf("Expected intersection %v, got %v", want, got)
	}

	disjoint := b.Intersect(NewBounds(20, 25, 20, 25))
	if disjoint.IsDefined() {
		t.Errorf("Disjoint intersection should be undefined, got %v", disjoint)
	}
}

func TestImageAccessors(t *testing.T) {
	im := NewImage(NewBounds(3, 7, 2, 4), nil)
	im.Set(3, 2, 1.5)
	im.AddAt(3, 2, 0.5)
	im.Set(7, 4, -2)

	if got := im.At(3, 2); got != 2 {
		t.Errorf("Expected 2 at (3,2), got %g", got)
	}
	if got := im.At(7, 4); got != -2 {
		t.Errorf("Expected -2 at (7,4), got %g", got)
	}
	if got := im.At(5, 3); got != 0 {
		t.Errorf("Untouched pixel should be zero, got %g", got)
	}
}

func TestSubImageSharesStorage(t *testing.T) {
	parent := NewImage(NewBounds(1, 10, 1, 10), nil)
	view := parent.SubImage(NewBounds(4, 6, 4, 6))

	view.Set(5, 5, 3)
	if got := parent.At(5, 5); got != 3 {
		t.Errorf("Write through view should reach parent, got %g", got)
	}

	parent.Set(4, 4, 7)
	if got := view.At(4, 4); got != 7 {
		t.Errorf("Parent write should be visible through view, got %g", got)
	}

	// Copy must detach.
	detached := view.Copy()
	detached.Set(5, 5, 99)
	if got := parent.At(5, 5); got != 3 {
		t.Errorf("Copy should not alias parent storage, parent changed to %g", got)
	}
}

func TestImageArithmetic(t *testing.T) {
	b := NewBounds(1, 4, 1, 3)
	a := NewImage(b, nil)
	a.Fill(2)
	c := NewImage(b, nil)
	c.Fill(3)

	if err := a.AddImage(c); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}
	if got := a.At(2, 2); got != 5 {
		t.Errorf("Expected 5 after add, got %g", got)
	}

	if err := a.MulImage(c); err != nil {
		t.Fatalf("MulImage failed: %v", err)
	}
	if got := a.At(2, 2); got != 15 {
		t.Errorf("Expected 15 after mul, got %g", got)
	}

	a.Scale(0.5)
	if got := a.At(2, 2); got != 7.5 {
		t.Errorf("Expected 7.5 after scale, got %g", got)
	}

	if got := a.Sum(); math.Abs(got-7.5*12) > 1e-12 {
		t.Errorf("Expected sum %g, got %g", 7.5*12, got)
	}
	if got := a.Mean(); math.Abs(got-7.5) > 1e-12 {
		t.Errorf("Expected mean 7.5, got %g", got)
	}

	mismatched := NewImage(NewBounds(1, 5, 1, 3), nil)
	if err := a.AddImage(mismatched); err == nil {
		t.Error("AddImage with mismatched bounds should fail")
	}
}

func TestSubImageArithmeticOnViews(t *testing.T) {
	parent := NewImage(NewBounds(1, 6, 1, 6), nil)
	parent.Fill(1)

	inner := NewBounds(2, 5, 2, 5)
	add := NewImage(inner, nil)
	add.Fill(10)

	if err := parent.SubImage(inner).AddImage(add); err != nil {
		t.Fatalf("AddImage into view failed: %v", err)
	}

	if got := parent.At(3, 3); got != 11 {
		t.Errorf("Interior pixel should be 11, got %g", got)
	}
	if got := parent.At(1, 1); got != 1 {
		t.Errorf("Border pixel should be untouched, got %g", got)
	}
	if got := parent.Sum(); math.Abs(got-(36+160)) > 1e-12 {
		t.Errorf("Expected sum 196, got %g", got)
	}
}
