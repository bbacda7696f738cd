package termlogo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/blacktop/go-termlogo/pkg/csi"
)

// fakeTerminal answers the geometry probe from fixed values
type fakeTerminal struct {
	winsize Geometry
	winErr  error
	replies map[string]string
	queries []string
}

func (f *fakeTerminal) Winsize() (Geometry, error) {
	return f.winsize, f.winErr
}

func (f *fakeTerminal) Query(query string, final byte, timeout time.Duration) (string, error) {
	f.queries = append(f.queries, query)
	if resp, ok := f.replies[query]; ok {
		return resp, nil
	}
	return "", fmt.Errorf("%w after %v", csi.ErrTimeout, timeout)
}

// terminal80x24 has 12x20 pixel cells
func terminal80x24() *fakeTerminal {
	return &fakeTerminal{winsize: Geometry{Rows: 24, Cols: 80, PixelHeight: 480, PixelWidth: 960}}
}

type fakeImage struct {
	columns, rows int
}

func (f *fakeImage) Columns() int { return f.columns }
func (f *fakeImage) Rows() int    { return f.rows }

type fakeInfo struct {
	filename string
	format   string
	out      io.Writer
}

func (f *fakeInfo) SetFilename(name string) { f.filename = name }
func (f *fakeInfo) SetFormat(format string) { f.format = format }
func (f *fakeInfo) Format() string          { return f.format }
func (f *fakeInfo) SetOutput(w io.Writer)   { f.out = w }

type fakeException struct{}

func (fakeException) Err() error { return nil }

var errInjected = errors.New("injected failure")

// fakeCodec is a codec backend that counts every acquire and release
type fakeCodec struct {
	srcColumns, srcRows int
	// blob overrides the RGBA serialization when set
	blob []byte
	// sixel is what WriteImage emits
	sixel string
	fail  map[string]bool

	acquired map[string]int
	released map[string]int
	calls    []string
	resized  [2]int
	loads    int
	closed   int
}

func newFakeCodec(columns, rows int) *fakeCodec {
	return &fakeCodec{
		srcColumns: columns,
		srcRows:    rows,
		sixel:      "\x1bPq#0~-\x1b\\",
		fail:       map[string]bool{},
		acquired:   map[string]int{},
		released:   map[string]int{},
	}
}

func (f *fakeCodec) failing(op string) error {
	f.calls = append(f.calls, op)
	if f.fail[op] {
		return errInjected
	}
	return nil
}

func (f *fakeCodec) balanced() bool {
	for kind, n := range f.acquired {
		if f.released[kind] != n {
			return false
		}
	}
	for kind, n := range f.released {
		if f.acquired[kind] != n {
			return false
		}
	}
	return true
}

func (f *fakeCodec) called(op string) bool {
	for _, c := range f.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (f *fakeCodec) library() *codec.Library {
	return &codec.Library{
		Name: "fake",
		AcquireException: func() (codec.Exception, error) {
			if err := f.failing("exception"); err != nil {
				return nil, err
			}
			f.acquired["exception"]++
			return fakeException{}, nil
		},
		DestroyException: func(codec.Exception) { f.released["exception"]++ },
		AcquireImageInfo: func() (codec.ImageInfo, error) {
			if err := f.failing("info"); err != nil {
				return nil, err
			}
			f.acquired["info"]++
			return &fakeInfo{}, nil
		},
		DestroyImageInfo: func(codec.ImageInfo) { f.released["info"]++ },
		ReadImage: func(info codec.ImageInfo, ex codec.Exception) (codec.Image, error) {
			if err := f.failing("read"); err != nil {
				return nil, err
			}
			f.acquired["image"]++
			return &fakeImage{columns: f.srcColumns, rows: f.srcRows}, nil
		},
		ResizeImage: func(img codec.Image, columns, rows int, ex codec.Exception) (codec.Image, error) {
			if err := f.failing("resize"); err != nil {
				return nil, err
			}
			f.resized = [2]int{columns, rows}
			f.acquired["image"]++
			return &fakeImage{columns: columns, rows: rows}, nil
		},
		DestroyImage: func(codec.Image) { f.released["image"]++ },
		ImageToBlob: func(info codec.ImageInfo, img codec.Image, ex codec.Exception) ([]byte, error) {
			if err := f.failing("blob"); err != nil {
				return nil, err
			}
			if f.blob != nil {
				return f.blob, nil
			}
			return make([]byte, img.Columns()*img.Rows()*4), nil
		},
		WriteImage: func(info codec.ImageInfo, img codec.Image, ex codec.Exception) error {
			if err := f.failing("write"); err != nil {
				return err
			}
			fi := info.(*fakeInfo)
			if fi.format != codec.FormatSixel {
				return fmt.Errorf("unexpected format %q", fi.format)
			}
			_, err := io.WriteString(fi.out, f.sixel)
			return err
		},
		Base64Encode: func(data []byte) ([]byte, error) {
			if err := f.failing("base64"); err != nil {
				return nil, err
			}
			return []byte(base64.StdEncoding.EncodeToString(data)), nil
		},
		Close: func() error {
			f.closed++
			return nil
		},
	}
}

func (f *fakeCodec) loader() codec.Loader {
	return codec.LoaderFunc{ID: "fake", Func: func() (*codec.Library, error) {
		f.loads++
		return f.library(), nil
	}}
}

// missingLoader is a backend that is not installed
func missingLoader(name string) codec.Loader {
	return codec.LoaderFunc{ID: name, Func: func() (*codec.Library, error) {
		return nil, fmt.Errorf("%w: %s: not installed", codec.ErrInit, name)
	}}
}
