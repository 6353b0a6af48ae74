package detect

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestDownscale_QuarterSize(t *testing.T) {
	data := encodeTestJPEG(t, 640, 480)

	small, err := Downscale(data, 0.25)
	if err != nil {
		t.Fatalf("downscale failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(small))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if img.Bounds().Dx() != 160 || img.Bounds().Dy() != 120 {
		t.Errorf("expected 160x120, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestDownscale_FactorOneIsPassthrough(t *testing.T) {
	data := encodeTestJPEG(t, 10, 10)

	out, err := Downscale(data, 1)
	if err != nil {
		t.Fatalf("downscale failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("expected identity for factor 1")
	}
}

func TestDownscale_InvalidFactor(t *testing.T) {
	if _, err := Downscale(encodeTestJPEG(t, 4, 4), 0); err == nil {
		t.Error("expected error for zero factor")
	}
	if _, err := Downscale(encodeTestJPEG(t, 4, 4), -1); err == nil {
		t.Error("expected error for negative factor")
	}
}

func TestDownscale_TinyImageClampsToOnePixel(t *testing.T) {
	data := encodeTestJPEG(t, 2, 2)

	small, err := Downscale(data, 0.1)
	if err != nil {
		t.Fatalf("downscale failed: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(small))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if img.Bounds().Dx() < 1 || img.Bounds().Dy() < 1 {
		t.Error("expected at least 1x1 output")
	}
}

func TestDownscale_GarbageInput(t *testing.T) {
	if _, err := Downscale([]byte("not an image"), 0.5); err == nil {
		t.Error("expected decode error for garbage input")
	}
}
