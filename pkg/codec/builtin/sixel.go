package builtin

import (
	"fmt"
	"image"
	"image/draw"
	"io"

	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/mattn/go-sixel"
	"github.com/soniakeys/quant/median"
)

// SixelOptions tunes the native (sixel) writer
type SixelOptions struct {
	// Palette is the number of colors to quantize to before encoding (2-256).
	// Zero leaves quantization to the encoder.
	Palette int
	// Dither enables error diffusion when a palette is applied
	Dither bool
}

// EncodeSixel writes img to w as a complete sixel DCS sequence.
func EncodeSixel(w io.Writer, img image.Image, opts SixelOptions) error {
	enc := sixel.NewEncoder(w)
	enc.Dither = opts.Dither

	if opts.Palette > 0 {
		img = applyOptimizedPalette(img, opts.Palette, opts.Dither)
		// palette already reduced above
		enc.Dither = false
	}

	if err := enc.Encode(img); err != nil {
		return fmt.Errorf("failed to encode sixel: %w", err)
	}
	return nil
}

// applyOptimizedPalette applies median cut quantization for optimal palette
func applyOptimizedPalette(img image.Image, paletteSize int, diffuse bool) image.Image {
	paletteSize = min(max(paletteSize, 2), 256)

	palette := median.Quantizer(paletteSize).Palette(img).ColorPalette()

	if !diffuse {
		bounds := img.Bounds()
		dst := image.NewPaletted(bounds, palette)
		draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
		return dst
	}

	ditherer := dither.NewDitherer(palette)
	ditherer.Matrix = dither.Stucki

	return ditherer.Dither(img)
}
