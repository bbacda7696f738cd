package builtin

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSixel(t *testing.T) {
	img := createTestImage(40, 20)

	tests := []struct {
		name string
		opts SixelOptions
	}{
		{name: "encoder defaults", opts: SixelOptions{}},
		{name: "palette", opts: SixelOptions{Palette: 16}},
		{name: "palette with dither", opts: SixelOptions{Palette: 16, Dither: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeSixel(&buf, img, tt.opts))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x1bP")))
			assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\x1b\\")))
		})
	}
}

func TestApplyOptimizedPalette(t *testing.T) {
	img := createTestImage(32, 32)

	out := applyOptimizedPalette(img, 8, false)
	paletted, ok := out.(*image.Paletted)
	require.True(t, ok)
	assert.LessOrEqual(t, len(paletted.Palette), 8)
	assert.Equal(t, img.Bounds(), paletted.Bounds())

	// out of range sizes are clamped
	out = applyOptimizedPalette(img, 1000, true)
	assert.Equal(t, img.Bounds(), out.Bounds())
}
