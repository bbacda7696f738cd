package builtin

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 128, A: 255})
		}
	}
	return img
}

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, createTestImage(width, height)))
	return path
}

func TestLoad(t *testing.T) {
	lib, err := Loader.Load()
	require.NoError(t, err)
	assert.Equal(t, Name, lib.Name)
	assert.NoError(t, lib.Validate())
	assert.NoError(t, lib.Unload())
}

func TestPipeline(t *testing.T) {
	lib := New(SixelOptions{})
	path := writeTestPNG(t, 100, 50)

	ex, err := lib.AcquireException()
	require.NoError(t, err)
	defer lib.DestroyException(ex)

	info, err := lib.AcquireImageInfo()
	require.NoError(t, err)
	info.SetFilename(path)
	original, err := lib.ReadImage(info, ex)
	require.NoError(t, err)
	lib.DestroyImageInfo(info)
	assert.Equal(t, 100, original.Columns())
	assert.Equal(t, 50, original.Rows())

	resized, err := lib.ResizeImage(original, 24, 12, ex)
	require.NoError(t, err)
	lib.DestroyImage(original)
	defer lib.DestroyImage(resized)
	assert.Equal(t, 24, resized.Columns())
	assert.Equal(t, 12, resized.Rows())

	out, err := lib.AcquireImageInfo()
	require.NoError(t, err)
	defer lib.DestroyImageInfo(out)

	t.Run("rgba blob", func(t *testing.T) {
		out.SetFormat(codec.FormatRGBA)
		blob, err := lib.ImageToBlob(out, resized, ex)
		require.NoError(t, err)
		assert.Len(t, blob, 24*12*4)
	})

	t.Run("png blob", func(t *testing.T) {
		out.SetFormat(codec.FormatPNG)
		blob, err := lib.ImageToBlob(out, resized, ex)
		require.NoError(t, err)
		decoded, err := png.Decode(bytes.NewReader(blob))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 24, 12), decoded.Bounds())
	})

	t.Run("sixel write", func(t *testing.T) {
		var buf bytes.Buffer
		out.SetFormat(codec.FormatSixel)
		out.SetOutput(&buf)
		require.NoError(t, lib.WriteImage(out, resized, ex))
		assert.True(t, strings.HasPrefix(buf.String(), "\x1bP"), "DCS introducer")
		assert.True(t, strings.HasSuffix(buf.String(), "\x1b\\"), "string terminator")
	})

	t.Run("unsupported blob format", func(t *testing.T) {
		out.SetFormat("TIFF")
		_, err := lib.ImageToBlob(out, resized, ex)
		require.Error(t, err)
		assert.Equal(t, err, ex.Err())
	})
}

func TestReadImageErrors(t *testing.T) {
	lib := New(SixelOptions{})
	ex, _ := lib.AcquireException()
	info, _ := lib.AcquireImageInfo()

	_, err := lib.ReadImage(info, ex)
	assert.ErrorContains(t, err, "no filename")

	info.SetFilename(filepath.Join(t.TempDir(), "missing.png"))
	_, err = lib.ReadImage(info, ex)
	require.Error(t, err)
	assert.Equal(t, err, ex.Err())

	garbage := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	info.SetFilename(garbage)
	_, err = lib.ReadImage(info, ex)
	assert.ErrorContains(t, err, "decode")
}

func TestResizeImage(t *testing.T) {
	img := createTestImage(400, 200)

	for _, size := range [][2]uint{{240, 120}, {12, 6}, {1, 1}, {800, 400}} {
		resized := ResizeImage(img, size[0], size[1])
		assert.Equal(t, int(size[0]), resized.Bounds().Dx())
		assert.Equal(t, int(size[1]), resized.Bounds().Dy())
	}

	lib := New(SixelOptions{})
	_, err := lib.ResizeImage(Wrap(img), 0, 10, &exception{})
	assert.Error(t, err)
}

func TestToNRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 9, 7))
	src.Set(5, 5, color.RGBA{R: 255, A: 255})

	n := toNRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 4, 2), n.Bounds())
	assert.Len(t, n.Pix, 4*2*4)
	assert.Equal(t, []uint8{255, 0, 0, 255}, n.Pix[:4])
}

func TestRGBABlobOfSubImage(t *testing.T) {
	full := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range full.Pix {
		full.Pix[i] = uint8(i)
	}

	tests := []struct {
		name string
		img  image.Image
		w, h int
	}{
		{name: "whole image", img: full, w: 8, h: 8},
		{name: "top rows", img: full.SubImage(image.Rect(0, 0, 8, 2)), w: 8, h: 2},
		{name: "left columns", img: full.SubImage(image.Rect(0, 0, 4, 2)), w: 4, h: 2},
		{name: "offset", img: full.SubImage(image.Rect(2, 3, 6, 5)), w: 4, h: 2},
	}

	lib := New(SixelOptions{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, _ := lib.AcquireImageInfo()
			info.SetFormat(codec.FormatRGBA)
			blob, err := lib.ImageToBlob(info, Wrap(tt.img), &exception{})
			require.NoError(t, err)
			assert.Len(t, blob, tt.w*tt.h*4)
		})
	}
}

func TestBase64Encode(t *testing.T) {
	for _, size := range []int{1, 2, 3, 4096, 10000} {
		src := bytes.Repeat([]byte{0x5a, 0x01, 0xff}, size)[:size]
		assert.Equal(t, base64.StdEncoding.EncodeToString(src), string(Base64Encode(src)))
	}

	first := Base64Encode([]byte("first"))
	Base64Encode([]byte("second payload"))
	assert.Equal(t, "Zmlyc3Q=", string(first), "pooled buffer must not alias results")

	lib := New(SixelOptions{})
	_, err := lib.Base64Encode(nil)
	assert.Error(t, err)
}
