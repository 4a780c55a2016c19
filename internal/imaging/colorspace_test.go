package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestRecolorRGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{200, 40, 40, 255})
	img.Set(1, 0, color.RGBA{0, 0, 255, 255})

	f, err := Recolor(img, SpaceRGB)
	if err != nil {
		t.Fatalf("Recolor failed: %v", err)
	}

	r, g, b := f.At(0, 0)
	if r != 200 || g != 40 || b != 40 {
		t.Errorf("pixel (0,0): got (%g,%g,%g), want (200,40,40)", r, g, b)
	}
	r, g, b = f.At(1, 0)
	if r != 0 || g != 0 || b != 255 {
		t.Errorf("pixel (1,0): got (%g,%g,%g), want (0,0,255)", r, g, b)
	}
}

func TestRecolorLab(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})
	img.Set(1, 0, color.RGBA{0, 0, 0, 255})

	f, err := Recolor(img, SpaceLab)
	if err != nil {
		t.Fatalf("Recolor failed: %v", err)
	}

	// White is L=100 with near-zero chroma; black is L=0.
	l, a, b := f.At(0, 0)
	if math.Abs(l-100) > 1 || math.Abs(a) > 1 || math.Abs(b) > 1 {
		t.Errorf("white: got Lab (%g,%g,%g), want (~100,~0,~0)", l, a, b)
	}
	l, _, _ = f.At(1, 0)
	if math.Abs(l) > 1 {
		t.Errorf("black: got L %g, want ~0", l)
	}
}

func TestRecolorUnknownSpace(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if _, err := Recolor(img, "hsv"); err == nil {
		t.Error("unknown color space should be rejected")
	}
}

func TestMaskFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})
	img.Set(1, 0, color.RGBA{10, 10, 10, 255})

	mask := MaskFromImage(img)
	if mask.At(0, 0) != 1 {
		t.Error("bright pixel should be tissue (1)")
	}
	if mask.At(1, 0) != 0 {
		t.Error("dark pixel should be background (0)")
	}
}
