/*
Package magick resolves the codec function table from a system ImageMagick
(MagickWand) installation at render time, without cgo.

MagickWand 7 and 6 differ in their resize entry point, so each major version
has its own Loader. Symbols are resolved on every Load and the shared object
is closed again by Library.Close.
*/
package magick

import (
	"fmt"
	"io"
	"slices"

	"github.com/blacktop/go-termlogo/pkg/codec"
)

// Backend names
const (
	Name7 = "magick7"
	Name6 = "magick6"
)

// Shared object names tried in order, per major version.
var (
	Libraries7 = []string{
		"libMagickWand-7.Q16HDRI.so.10",
		"libMagickWand-7.Q16HDRI.so",
		"libMagickWand-7.Q16.so.10",
		"libMagickWand-7.Q16.so",
		"libMagickWand-7.Q16HDRI.dylib",
		"libMagickWand-7.Q16.dylib",
	}
	Libraries6 = []string{
		"libMagickWand-6.Q16.so.6",
		"libMagickWand-6.Q16.so",
		"libMagickWand-6.Q16HDRI.so.6",
		"libMagickWand-6.Q16HDRI.so",
		"libMagickWand-6.Q16.dylib",
	}
)

// lanczosFilter is LanczosFilter in both FilterType enums
const lanczosFilter = 22

// Magick7 loads MagickWand 7.
var Magick7 = NewMagick7()

// Magick6 loads MagickWand 6.
var Magick6 = NewMagick6()

// NewMagick7 returns a MagickWand 7 loader trying paths before Libraries7.
func NewMagick7(paths ...string) codec.Loader {
	libs := append(slices.Clone(paths), Libraries7...)
	return codec.LoaderFunc{ID: Name7, Func: func() (*codec.Library, error) {
		return load(Name7, libs, 7)
	}}
}

// NewMagick6 returns a MagickWand 6 loader trying paths before Libraries6.
func NewMagick6(paths ...string) codec.Loader {
	libs := append(slices.Clone(paths), Libraries6...)
	return codec.LoaderFunc{ID: Name6, Func: func() (*codec.Library, error) {
		return load(Name6, libs, 6)
	}}
}

type exception struct {
	err error
}

func (e *exception) Err() error { return e.err }

func throw(ex codec.Exception, err error) error {
	if e, ok := ex.(*exception); ok && e != nil {
		e.err = err
	}
	return err
}

// imageInfo lives on the Go side: MagickWand keeps the read/write settings on
// the wand, so they are applied when the wand is used.
type imageInfo struct {
	filename string
	format   string
	output   io.Writer
}

func (i *imageInfo) SetFilename(name string) { i.filename = name }
func (i *imageInfo) SetFormat(format string) { i.format = format }
func (i *imageInfo) Format() string          { return i.format }
func (i *imageInfo) SetOutput(w io.Writer)   { i.output = w }

func infoOf(info codec.ImageInfo) (*imageInfo, error) {
	ii, ok := info.(*imageInfo)
	if !ok || ii == nil {
		return nil, fmt.Errorf("not a magick image info: %T", info)
	}
	return ii, nil
}

// wand is a MagickWand holding exactly one image.
type wand struct {
	ptr     uintptr
	columns int
	rows    int
}

func (w *wand) Columns() int { return w.columns }
func (w *wand) Rows() int    { return w.rows }

func wandOf(img codec.Image) (*wand, error) {
	w, ok := img.(*wand)
	if !ok || w == nil || w.ptr == 0 {
		return nil, fmt.Errorf("not a magick image: %T", img)
	}
	return w, nil
}
