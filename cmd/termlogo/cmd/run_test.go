package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/blacktop/go-termlogo"
	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/blacktop/go-termlogo/pkg/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedTerminal reports an 80x24 terminal with 12x20 pixel cells
type fixedTerminal struct{}

func (fixedTerminal) Winsize() (termlogo.Geometry, error) {
	return termlogo.Geometry{Rows: 24, Cols: 80, PixelHeight: 480, PixelWidth: 960}, nil
}

func (fixedTerminal) Query(string, byte, time.Duration) (string, error) {
	return "", errors.New("no controlling terminal")
}

func testRenderer() *termlogo.Renderer {
	return &termlogo.Renderer{
		Terminal:     fixedTerminal{},
		Compression:  compress.Zlib(),
		QueryTimeout: 10 * time.Millisecond,
		Log:          &log.Logger{Handler: discard.Default, Level: log.DebugLevel},
	}
}

func writeLogo(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	for y := range 50 {
		for x := range 100 {
			img.Set(x, y, color.NRGBA{R: uint8(x * 2), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func notInstalled(name string) codec.Loader {
	return codec.LoaderFunc{ID: name, Func: func() (*codec.Library, error) {
		return nil, fmt.Errorf("%w: %s: not installed", codec.ErrInit, name)
	}}
}

func TestRunKittyWithBuiltin(t *testing.T) {
	isolateXDG(t)
	source := writeLogo(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	cfg.Source = source
	cfg.Width = 20
	cfg.Padding = PaddingConfig{Left: 2, Right: 1}
	cfg.Protocol = "kitty"
	cfg.Codecs = []string{"builtin"}

	var out bytes.Buffer
	require.NoError(t, run(&out, testRenderer(), cfg))

	output := out.String()
	assert.True(t, strings.HasPrefix(output, "  \x1b_Ga=T,f=32,s=240,v=120,m=1,o=z;\x1b\\"))

	reset := strings.Index(output, "\x1b_Gm=0;\x1b\\\x1b[9999999D\x1b[6A")
	require.Positive(t, reset, "terminator then cursor reset")
	info := strings.Index(output, "\x1b[23Clogo.png\n")
	require.Positive(t, info)
	assert.Greater(t, info, reset, "info lines follow the cursor reset")
	assert.Contains(t, output[info:], "\x1b[23C240x120 px, 6 rows\n")
	assert.Contains(t, output[info:], "\x1b[23Ckitty (zlib)\n")
	assert.Contains(t, output[info:], "\x1b[23Ccodec: builtin\n")
}

func TestRenderFallback(t *testing.T) {
	source := writeLogo(t)
	blocks, err := termlogo.RenderBlocks(source, 20)
	require.NoError(t, err)

	tests := []struct {
		name     string
		source   string
		protocol termlogo.Protocol
		loaders  []codec.Loader
		fallback string
		want     string
		wantErr  error
	}{
		{
			name:     "missing backends draw blocks",
			source:   source,
			protocol: termlogo.Kitty,
			loaders:  []codec.Loader{notInstalled("magick7"), notInstalled("magick6")},
			fallback: FallbackBlocks,
			want:     blocks + "\n",
		},
		{
			name:     "missing backends without fallback",
			source:   source,
			protocol: termlogo.Kitty,
			loaders:  []codec.Loader{notInstalled("magick7"), notInstalled("magick6")},
			fallback: FallbackNone,
			wantErr:  termlogo.ErrInit,
		},
		{
			name:     "unsupported protocol draws blocks",
			source:   source,
			protocol: termlogo.Unsupported,
			loaders:  []codec.Loader{notInstalled("magick7")},
			fallback: FallbackBlocks,
			want:     blocks + "\n",
		},
		{
			name:     "run error is not covered by blocks",
			source:   filepath.Join(t.TempDir(), "missing.png"),
			protocol: termlogo.Kitty,
			loaders:  []codec.Loader{notInstalled("magick7"), mustLoaders(t, "builtin")[0]},
			fallback: FallbackBlocks,
			wantErr:  termlogo.ErrRun,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Source: tt.source, Width: 20, Fallback: tt.fallback}

			var out bytes.Buffer
			err := render(&out, testRenderer(), cfg, tt.protocol, tt.loaders)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, out.String())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
			assert.NotContains(t, out.String(), "\x1b_G")
		})
	}
}

func mustLoaders(t *testing.T, names ...string) []codec.Loader {
	t.Helper()
	loaders, err := Loaders(names)
	require.NoError(t, err)
	return loaders
}
