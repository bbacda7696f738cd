/*
Package builtin implements the codec function table in pure Go.

It is always available, so it is the last entry of the default backend order.
*/
package builtin

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"sync"

	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Name of the builtin backend
const Name = "builtin"

// Loader is the codec.Loader for the builtin backend.
var Loader codec.Loader = codec.LoaderFunc{ID: Name, Func: Load}

// Load returns the builtin function table.
func Load() (*codec.Library, error) {
	return New(SixelOptions{}), nil
}

// New returns the builtin function table using opts for native writes.
func New(opts SixelOptions) *codec.Library {
	return &codec.Library{
		Name:             Name,
		AcquireException: func() (codec.Exception, error) { return &exception{}, nil },
		DestroyException: func(codec.Exception) {},
		AcquireImageInfo: func() (codec.ImageInfo, error) { return &imageInfo{}, nil },
		DestroyImageInfo: func(codec.ImageInfo) {},
		ReadImage:        readImage,
		ResizeImage:      resizeImage,
		DestroyImage:     func(codec.Image) {},
		ImageToBlob:      imageToBlob,
		WriteImage: func(info codec.ImageInfo, img codec.Image, ex codec.Exception) error {
			return writeImage(info, img, ex, opts)
		},
		Base64Encode: func(data []byte) ([]byte, error) {
			if len(data) == 0 {
				return nil, fmt.Errorf("nothing to encode")
			}
			return Base64Encode(data), nil
		},
	}
}

type exception struct {
	err error
}

func (e *exception) Err() error { return e.err }

func (e *exception) record(err error) error {
	if e != nil {
		e.err = err
	}
	return err
}

func throw(ex codec.Exception, err error) error {
	if e, ok := ex.(*exception); ok {
		return e.record(err)
	}
	return err
}

type imageInfo struct {
	filename string
	format   string
	output   io.Writer
}

func (i *imageInfo) SetFilename(name string) { i.filename = name }
func (i *imageInfo) SetFormat(format string) { i.format = format }
func (i *imageInfo) Format() string          { return i.format }
func (i *imageInfo) SetOutput(w io.Writer)   { i.output = w }

// Image wraps a decoded image.Image.
type Image struct {
	img image.Image
}

// Columns returns the width in pixels
func (i *Image) Columns() int { return i.img.Bounds().Dx() }

// Rows returns the height in pixels
func (i *Image) Rows() int { return i.img.Bounds().Dy() }

// Wrap turns an in-memory image into a codec image.
func Wrap(img image.Image) *Image { return &Image{img: img} }

func unwrap(img codec.Image) (*Image, error) {
	bi, ok := img.(*Image)
	if !ok || bi == nil || bi.img == nil {
		return nil, fmt.Errorf("not a builtin image: %T", img)
	}
	return bi, nil
}

func infoOf(info codec.ImageInfo) (*imageInfo, error) {
	ii, ok := info.(*imageInfo)
	if !ok || ii == nil {
		return nil, fmt.Errorf("not a builtin image info: %T", info)
	}
	return ii, nil
}

func readImage(info codec.ImageInfo, ex codec.Exception) (codec.Image, error) {
	ii, err := infoOf(info)
	if err != nil {
		return nil, throw(ex, err)
	}
	if ii.filename == "" {
		return nil, throw(ex, errors.New("no filename set"))
	}

	file, err := os.Open(ii.filename)
	if err != nil {
		return nil, throw(ex, fmt.Errorf("failed to open file: %w", err))
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, throw(ex, fmt.Errorf("failed to decode image: %w", err))
	}
	ii.format = format

	return &Image{img: img}, nil
}

func resizeImage(img codec.Image, columns, rows int, ex codec.Exception) (codec.Image, error) {
	bi, err := unwrap(img)
	if err != nil {
		return nil, throw(ex, err)
	}
	if columns <= 0 || rows <= 0 {
		return nil, throw(ex, fmt.Errorf("invalid target size %dx%d", columns, rows))
	}
	return &Image{img: ResizeImage(bi.img, uint(columns), uint(rows))}, nil
}

// ResizeImage scales img to exactly width x height pixels.
func ResizeImage(img image.Image, width, height uint) image.Image {
	bounds := img.Bounds()

	var interp resize.InterpolationFunction
	sourcePixels := bounds.Dx() * bounds.Dy()
	targetPixels := int(width * height)

	// strong downscales need a wide kernel to avoid aliasing
	if sourcePixels > targetPixels*4 {
		interp = resize.Lanczos3
	} else {
		interp = resize.Bilinear
	}

	return resize.Resize(width, height, img, interp)
}

func imageToBlob(info codec.ImageInfo, img codec.Image, ex codec.Exception) ([]byte, error) {
	bi, err := unwrap(img)
	if err != nil {
		return nil, throw(ex, err)
	}

	switch info.Format() {
	case codec.FormatRGBA:
		return toNRGBA(bi.img).Pix, nil
	case codec.FormatPNG:
		var buf bytes.Buffer
		if err := png.Encode(&buf, bi.img); err != nil {
			return nil, throw(ex, fmt.Errorf("failed to encode png: %w", err))
		}
		return buf.Bytes(), nil
	default:
		return nil, throw(ex, fmt.Errorf("unsupported blob format %q", info.Format()))
	}
}

// toNRGBA returns a tightly packed, non-premultiplied copy of img starting at (0,0).
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) &&
		n.Stride == 4*bounds.Dx() && len(n.Pix) == 4*bounds.Dx()*bounds.Dy() {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

func writeImage(info codec.ImageInfo, img codec.Image, ex codec.Exception, opts SixelOptions) error {
	ii, err := infoOf(info)
	if err != nil {
		return throw(ex, err)
	}
	bi, err := unwrap(img)
	if err != nil {
		return throw(ex, err)
	}
	if ii.output == nil {
		return throw(ex, errors.New("no output set"))
	}
	if ii.format != codec.FormatSixel {
		return throw(ex, fmt.Errorf("unsupported write format %q", ii.format))
	}
	if err := EncodeSixel(ii.output, bi.img, opts); err != nil {
		return throw(ex, err)
	}
	return nil
}

// Base64 encoder pool to reuse encoding buffers
var base64EncoderPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 4096*2)
		return &buf
	},
}

// Base64Encode encodes src with the standard alphabet reusing pooled buffers.
func Base64Encode(src []byte) []byte {
	bufPtr := base64EncoderPool.Get().(*[]byte)
	defer base64EncoderPool.Put(bufPtr)

	encodedLen := base64.StdEncoding.EncodedLen(len(src))
	if cap(*bufPtr) < encodedLen {
		*bufPtr = make([]byte, encodedLen)
	} else {
		*bufPtr = (*bufPtr)[:encodedLen]
	}

	base64.StdEncoding.Encode(*bufPtr, src)

	// the pooled buffer is reused, hand out a copy
	out := make([]byte, encodedLen)
	copy(out, *bufPtr)
	return out
}
