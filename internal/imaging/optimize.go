// Package imaging shrinks capture output with lossy palette quantization.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/ericpauley/go-quantize/quantize"
)

// paletteSize is the target color count after quantization.
const paletteSize = 256

// Optimize re-encodes PNG bytes onto a median-cut palette of at most 256
// colors with Floyd-Steinberg dithering. Pure and stateless; malformed
// input is an error, never retried.
func Optimize(raw []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode png: %w", err)
	}

	q := quantize.MedianCutQuantizer{
		Aggregation:    quantize.Mean,
		AddTransparent: true,
	}
	palette := q.Quantize(make(color.Palette, 0, paletteSize), src)

	bounds := src.Bounds()
	dst := image.NewPaletted(bounds, palette)
	draw.FloydSteinberg.Draw(dst, bounds, src, bounds.Min)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
