//go:build darwin || linux

package magick

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/ebitengine/purego"
)

const magickTrue = 1

// functions are the MagickWand entry points used by the function table.
type functions struct {
	genesis  func()
	terminus func()

	newWand     func() uintptr
	destroyWand func(wand uintptr) uintptr
	cloneWand   func(wand uintptr) uintptr

	readImage   func(wand uintptr, filename string) int32
	imageWidth  func(wand uintptr) uint64
	imageHeight func(wand uintptr) uint64
	resize      func(wand uintptr, columns, rows uint64) int32

	setFormat  func(wand uintptr, format string) int32
	setDepth   func(wand uintptr, depth uint64) int32
	imageBlob  func(wand uintptr, length *uint64) uintptr
	relinquish func(ptr uintptr) uintptr

	exception    func(wand uintptr, severity *int32) uintptr
	base64Encode func(blob *byte, length uint64, encoded *uint64) uintptr
}

func openLibrary(names []string) (uintptr, error) {
	var errs []error
	for _, name := range names {
		handle, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return handle, nil
		}
		errs = append(errs, err)
	}
	return 0, errors.Join(errs...)
}

func bind(handle uintptr, fptr any, symbol string) error {
	sym, err := purego.Dlsym(handle, symbol)
	if err != nil {
		return fmt.Errorf("missing symbol %s: %w", symbol, err)
	}
	purego.RegisterFunc(fptr, sym)
	return nil
}

func load(name string, libraries []string, major int) (*codec.Library, error) {
	handle, err := openLibrary(libraries)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", codec.ErrInit, name, err)
	}

	var fn functions
	binds := []struct {
		fptr   any
		symbol string
	}{
		{&fn.genesis, "MagickWandGenesis"},
		{&fn.terminus, "MagickWandTerminus"},
		{&fn.newWand, "NewMagickWand"},
		{&fn.destroyWand, "DestroyMagickWand"},
		{&fn.cloneWand, "CloneMagickWand"},
		{&fn.readImage, "MagickReadImage"},
		{&fn.imageWidth, "MagickGetImageWidth"},
		{&fn.imageHeight, "MagickGetImageHeight"},
		{&fn.setFormat, "MagickSetImageFormat"},
		{&fn.setDepth, "MagickSetImageDepth"},
		{&fn.imageBlob, "MagickGetImageBlob"},
		{&fn.relinquish, "MagickRelinquishMemory"},
		{&fn.exception, "MagickGetException"},
		{&fn.base64Encode, "Base64Encode"},
	}
	for _, b := range binds {
		if err := bind(handle, b.fptr, b.symbol); err != nil {
			purego.Dlclose(handle)
			return nil, fmt.Errorf("%w: %s: %v", codec.ErrInit, name, err)
		}
	}

	// MagickResizeImage gained a blur argument in 6 and lost it again in 7
	switch major {
	case 7:
		var resize7 func(wand uintptr, columns, rows uint64, filter int32) int32
		if err := bind(handle, &resize7, "MagickResizeImage"); err != nil {
			purego.Dlclose(handle)
			return nil, fmt.Errorf("%w: %s: %v", codec.ErrInit, name, err)
		}
		fn.resize = func(wand uintptr, columns, rows uint64) int32 {
			return resize7(wand, columns, rows, lanczosFilter)
		}
	default:
		var resize6 func(wand uintptr, columns, rows uint64, filter int32, blur float64) int32
		if err := bind(handle, &resize6, "MagickResizeImage"); err != nil {
			purego.Dlclose(handle)
			return nil, fmt.Errorf("%w: %s: %v", codec.ErrInit, name, err)
		}
		fn.resize = func(wand uintptr, columns, rows uint64) int32 {
			return resize6(wand, columns, rows, lanczosFilter, 1.0)
		}
	}

	lib := fn.library(name)
	lib.Close = func() error {
		return purego.Dlclose(handle)
	}
	return lib, nil
}

func (fn *functions) library(name string) *codec.Library {
	return &codec.Library{
		Name: name,
		AcquireException: func() (codec.Exception, error) {
			fn.genesis()
			return &exception{}, nil
		},
		DestroyException: func(codec.Exception) {
			fn.terminus()
		},
		AcquireImageInfo: func() (codec.ImageInfo, error) { return &imageInfo{}, nil },
		DestroyImageInfo: func(codec.ImageInfo) {},
		ReadImage:        fn.read,
		ResizeImage:      fn.resizeImage,
		DestroyImage: func(img codec.Image) {
			if w, err := wandOf(img); err == nil {
				fn.destroyWand(w.ptr)
				w.ptr = 0
			}
		},
		ImageToBlob:  fn.toBlob,
		WriteImage:   fn.write,
		Base64Encode: fn.encode,
	}
}

// wandError pulls the pending exception text off a wand.
func (fn *functions) wandError(ptr uintptr, op string) error {
	var severity int32
	msg := fn.exception(ptr, &severity)
	if msg == 0 {
		return fmt.Errorf("%s failed", op)
	}
	defer fn.relinquish(msg)
	return fmt.Errorf("%s failed: %s (severity %d)", op, cString(msg), severity)
}

func (fn *functions) read(info codec.ImageInfo, ex codec.Exception) (codec.Image, error) {
	ii, err := infoOf(info)
	if err != nil {
		return nil, throw(ex, err)
	}
	ptr := fn.newWand()
	if ptr == 0 {
		return nil, throw(ex, errors.New("NewMagickWand returned NULL"))
	}
	if fn.readImage(ptr, ii.filename) != magickTrue {
		err := fn.wandError(ptr, "MagickReadImage")
		fn.destroyWand(ptr)
		return nil, throw(ex, err)
	}
	return &wand{
		ptr:     ptr,
		columns: int(fn.imageWidth(ptr)),
		rows:    int(fn.imageHeight(ptr)),
	}, nil
}

func (fn *functions) resizeImage(img codec.Image, columns, rows int, ex codec.Exception) (codec.Image, error) {
	src, err := wandOf(img)
	if err != nil {
		return nil, throw(ex, err)
	}
	if columns <= 0 || rows <= 0 {
		return nil, throw(ex, fmt.Errorf("invalid target size %dx%d", columns, rows))
	}
	ptr := fn.cloneWand(src.ptr)
	if ptr == 0 {
		return nil, throw(ex, errors.New("CloneMagickWand returned NULL"))
	}
	if fn.resize(ptr, uint64(columns), uint64(rows)) != magickTrue {
		err := fn.wandError(ptr, "MagickResizeImage")
		fn.destroyWand(ptr)
		return nil, throw(ex, err)
	}
	return &wand{
		ptr:     ptr,
		columns: int(fn.imageWidth(ptr)),
		rows:    int(fn.imageHeight(ptr)),
	}, nil
}

// blob serializes the wand in format and copies the result into Go memory.
func (fn *functions) blob(w *wand, format string) ([]byte, error) {
	if fn.setFormat(w.ptr, format) != magickTrue {
		return nil, fn.wandError(w.ptr, "MagickSetImageFormat")
	}
	if format == codec.FormatRGBA {
		if fn.setDepth(w.ptr, 8) != magickTrue {
			return nil, fn.wandError(w.ptr, "MagickSetImageDepth")
		}
	}

	var length uint64
	ptr := fn.imageBlob(w.ptr, &length)
	if ptr == 0 {
		return nil, fn.wandError(w.ptr, "MagickGetImageBlob")
	}
	defer fn.relinquish(ptr)

	return copyBytes(ptr, length), nil
}

func (fn *functions) toBlob(info codec.ImageInfo, img codec.Image, ex codec.Exception) ([]byte, error) {
	w, err := wandOf(img)
	if err != nil {
		return nil, throw(ex, err)
	}
	data, err := fn.blob(w, info.Format())
	if err != nil {
		return nil, throw(ex, err)
	}
	return data, nil
}

func (fn *functions) write(info codec.ImageInfo, img codec.Image, ex codec.Exception) error {
	ii, err := infoOf(info)
	if err != nil {
		return throw(ex, err)
	}
	w, err := wandOf(img)
	if err != nil {
		return throw(ex, err)
	}
	if ii.output == nil {
		return throw(ex, errors.New("no output set"))
	}
	data, err := fn.blob(w, ii.format)
	if err != nil {
		return throw(ex, err)
	}
	if _, err := ii.output.Write(data); err != nil {
		return throw(ex, fmt.Errorf("failed to write %s data: %w", ii.format, err))
	}
	return nil
}

func (fn *functions) encode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("nothing to encode")
	}
	var length uint64
	ptr := fn.base64Encode(&data[0], uint64(len(data)), &length)
	if ptr == 0 {
		return nil, errors.New("Base64Encode returned NULL")
	}
	defer fn.relinquish(ptr)
	return copyBytes(ptr, length), nil
}

// cPointer turns an address handed out by the C library into a pointer
// without a uintptr to unsafe.Pointer conversion.
func cPointer(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

func copyBytes(ptr uintptr, length uint64) []byte {
	if length == 0 {
		return []byte{}
	}
	out := make([]byte, length)
	copy(out, unsafe.Slice((*byte)(cPointer(ptr)), length))
	return out
}

func cString(ptr uintptr) string {
	p := cPointer(ptr)
	var n int
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
