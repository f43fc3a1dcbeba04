package main

import (
	"image/color"
	"testing"
)

func TestRenderComparison(t *testing.T) {
	original := writeTemp(t, "before.png", pngBytes(t, 40, 20, color.Gray{Y: 60}))
	colorized := writeTemp(t, "after.png", pngBytes(t, 40, 20, color.RGBA{G: 200, A: 255}))

	frame, err := renderComparison(original, colorized, 0, 120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Bounds().Dx() != 120 || frame.Bounds().Dy() != 60 {
		t.Fatalf("frame = %v, want 120x60", frame.Bounds())
	}

	// Position 0 shows only the colorized image away from the divider.
	r, g, b, _ := frame.At(100, 10).RGBA()
	if g>>8 < 190 || r>>8 > 10 || b>>8 > 10 {
		t.Errorf("pixel = (%d, %d, %d), want green", r>>8, g>>8, b>>8)
	}
}

func TestRenderComparisonErrors(t *testing.T) {
	good := writeTemp(t, "good.png", pngBytes(t, 4, 4, color.White))
	bad := writeTemp(t, "bad.png", []byte("not a png"))

	if _, err := renderComparison(bad, good, 50, 100); err == nil {
		t.Error("expected decode error for original")
	}
	if _, err := renderComparison(good, good+".missing", 50, 100); err == nil {
		t.Error("expected error for missing colorized file")
	}
	if _, err := renderComparison(good, good, 50, 0); err == nil {
		t.Error("expected error for zero width")
	}
}
