package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ahrdadan/snapq/internal/imaging"
)

// gradientPNG renders a PNG with far more than 256 distinct colors.
func gradientPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: uint8(y * 2), B: uint8((x + y) % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestOptimizeQuantizes(t *testing.T) {
	raw := gradientPNG(t)

	out, err := imaging.Optimize(raw)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Output is not a valid PNG: %v", err)
	}

	paletted, ok := decoded.(*image.Paletted)
	if !ok {
		t.Fatalf("Expected a paletted image, got %T", decoded)
	}
	if len(paletted.Palette) > 256 {
		t.Errorf("Expected at most 256 colors, got %d", len(paletted.Palette))
	}

	if decoded.Bounds() != image.Rect(0, 0, 128, 128) {
		t.Errorf("Expected dimensions to be preserved, got %v", decoded.Bounds())
	}
}

func TestOptimizeRejectsMalformedInput(t *testing.T) {
	if _, err := imaging.Optimize([]byte("definitely not a png")); err == nil {
		t.Error("Expected an error for malformed input")
	}
}

func TestOptimizeRejectsEmptyInput(t *testing.T) {
	if _, err := imaging.Optimize(nil); err == nil {
		t.Error("Expected an error for empty input")
	}
}
