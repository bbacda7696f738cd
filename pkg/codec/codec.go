/*
Package codec describes the image codec a terminal logo render depends on.

A codec is resolved at render time into a Library: a table of function values
covering exception-context lifecycle, image-info lifecycle, decode, resize,
blob serialization, native writing and base64 encoding. Backends either fill
every field or fail with ErrInit.
*/
package codec

import (
	"errors"
	"fmt"
	"io"
	"reflect"
)

var (
	// ErrInit reports that a required capability (library or symbol) is missing.
	// Callers should move on to another backend instead of retrying this one.
	ErrInit = errors.New("codec initialization failed")
	// ErrRun reports a failure of a single render attempt.
	ErrRun = errors.New("codec operation failed")
)

// Format tags understood by ImageInfo.SetFormat
const (
	FormatRGBA  = "RGBA"
	FormatPNG   = "PNG"
	FormatSixel = "SIXEL"
)

// Exception collects the diagnostic state of the codec for one render.
type Exception interface {
	// Err returns the last error recorded by the codec, or nil.
	Err() error
}

// ImageInfo describes where an image is read from or how it is serialized.
type ImageInfo interface {
	SetFilename(name string)
	SetFormat(format string)
	Format() string
	// SetOutput redirects native writes to w.
	SetOutput(w io.Writer)
}

// Image is a decoded pixel buffer owned by exactly one holder.
type Image interface {
	Columns() int
	Rows() int
}

// Library is the resolved function table of a codec backend.
type Library struct {
	Name string

	AcquireException func() (Exception, error)
	DestroyException func(Exception)

	AcquireImageInfo func() (ImageInfo, error)
	DestroyImageInfo func(ImageInfo)

	ReadImage    func(info ImageInfo, ex Exception) (Image, error)
	ResizeImage  func(img Image, columns, rows int, ex Exception) (Image, error)
	DestroyImage func(Image)

	ImageToBlob  func(info ImageInfo, img Image, ex Exception) ([]byte, error)
	WriteImage   func(info ImageInfo, img Image, ex Exception) error
	Base64Encode func(data []byte) ([]byte, error)

	// Close unloads the backend. It may be nil for backends with nothing to unload.
	Close func() error
}

// Validate makes sure every required function is present.
func (l *Library) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: nil library", ErrInit)
	}
	v := reflect.ValueOf(l).Elem()
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Type.Kind() != reflect.Func || f.Name == "Close" {
			continue
		}
		if v.Field(i).IsNil() {
			return fmt.Errorf("%w: %s: missing %s", ErrInit, l.Name, f.Name)
		}
	}
	return nil
}

// Unload closes the library if it has anything to release.
func (l *Library) Unload() error {
	if l == nil || l.Close == nil {
		return nil
	}
	return l.Close()
}

// Loader resolves a Library. Implementations return an error wrapping ErrInit
// when the backend is not available on this system.
type Loader interface {
	Name() string
	Load() (*Library, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc struct {
	ID   string
	Func func() (*Library, error)
}

func (f LoaderFunc) Name() string { return f.ID }

func (f LoaderFunc) Load() (*Library, error) { return f.Func() }

// RunError wraps err as a per-call failure unless it already carries a sentinel.
func RunError(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrRun, op)
	}
	if errors.Is(err, ErrRun) || errors.Is(err, ErrInit) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrRun, op, err)
}
