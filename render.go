package termlogo

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/blacktop/go-termlogo/pkg/compress"
	"github.com/blacktop/go-termlogo/pkg/csi"
)

// ErrDegenerate is returned when the requested width maps to less than one pixel
var ErrDegenerate = fmt.Errorf("%w: target image smaller than one pixel", ErrRun)

// Padding is the number of blank cells around the image
type Padding struct {
	Left  uint32
	Right uint32
}

// Options configures a single render
type Options struct {
	// Source is the path of the image file
	Source string
	// Width is the target width in character cells
	Width    uint32
	Padding  Padding
	Protocol Protocol
}

// Layout is what a successful render leaves on screen, for callers that
// compose text beside the image.
type Layout struct {
	// Rows is the number of terminal rows the image covers
	Rows uint32
	// Columns is the image width plus both paddings
	Columns uint32

	PixelWidth  int
	PixelHeight int
	Codec       string
	Compressed  bool
}

// Renderer draws images inline in the terminal
type Renderer struct {
	Terminal     Terminal
	Out          io.Writer
	Compression  compress.Capability
	QueryTimeout time.Duration
	Log          log.Interface
	// Passthrough wraps image output for tmux
	Passthrough bool
}

// NewRenderer returns a Renderer bound to standard output
func NewRenderer() *Renderer {
	return &Renderer{
		Terminal:     SystemTerminal{Out: os.Stdout},
		Out:          os.Stdout,
		Compression:  compress.Zlib(),
		QueryTimeout: 100 * time.Millisecond,
		Log:          log.Log,
		Passthrough:  csi.InTmux(),
	}
}

func (r *Renderer) logger() log.Interface {
	if r.Log == nil {
		return log.Log
	}
	return r.Log
}

func (r *Renderer) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *Renderer) probe() (Geometry, error) {
	timeout := r.QueryTimeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	term := r.Terminal
	if term == nil {
		term = SystemTerminal{}
	}
	geo, err := ProbeGeometry(term, timeout)
	if err != nil {
		return geo, err
	}
	r.logger().WithField("geometry", geo.String()).Debug("probed terminal")
	return geo, nil
}

// Render draws opts.Source with the codec resolved by loader.
func (r *Renderer) Render(opts Options, loader codec.Loader) (*Layout, error) {
	geo, err := r.probe()
	if err != nil {
		return nil, err
	}
	return r.renderWith(geo, opts, loader)
}

// RenderWithFallback probes the terminal once and tries each loader in order.
// A loader failing with ErrInit hands over to the next one; any other outcome
// is final.
func (r *Renderer) RenderWithFallback(opts Options, loaders ...codec.Loader) (*Layout, error) {
	if len(loaders) == 0 {
		return nil, fmt.Errorf("%w: no codec backends", ErrInit)
	}

	geo, err := r.probe()
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, loader := range loaders {
		layout, err := r.renderWith(geo, opts, loader)
		if err == nil || !errors.Is(err, ErrInit) {
			return layout, err
		}
		r.logger().WithError(err).WithField("codec", loader.Name()).Debug("codec unavailable")
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func (r *Renderer) renderWith(geo Geometry, opts Options, loader codec.Loader) (*Layout, error) {
	transmitter, err := opts.Protocol.Transmitter()
	if err != nil {
		return nil, err
	}

	lib, err := loader.Load()
	if err != nil {
		if !errors.Is(err, ErrInit) && !errors.Is(err, ErrRun) {
			err = fmt.Errorf("%w: %s: %v", ErrInit, loader.Name(), err)
		}
		return nil, err
	}
	defer func() {
		if err := lib.Unload(); err != nil {
			r.logger().WithError(err).Warn("failed to unload codec")
		}
	}()
	if err := lib.Validate(); err != nil {
		return nil, err
	}

	layout, err := r.draw(geo, opts, lib, transmitter)
	if err != nil {
		return nil, err
	}

	// back to the start of the line, then up over the image.
	// CSI 0 A moves one row in most terminals.
	fmt.Fprint(r.out(), "\x1b[9999999D")
	if layout.Rows > 0 {
		fmt.Fprintf(r.out(), "\x1b[%dA", layout.Rows)
	}

	return layout, nil
}

// draw runs decode, resize and transmit. Every codec resource it acquires is
// released before it returns.
func (r *Renderer) draw(geo Geometry, opts Options, lib *codec.Library, transmitter Transmitter) (*Layout, error) {
	ex, err := lib.AcquireException()
	if err != nil || ex == nil {
		return nil, codec.RunError("acquire exception", err)
	}
	defer lib.DestroyException(ex)

	original, err := readImage(lib, ex, opts.Source)
	if err != nil {
		return nil, err
	}

	target, err := TargetSize(geo, opts.Width, original.Columns(), original.Rows())
	if err != nil {
		lib.DestroyImage(original)
		return nil, err
	}

	srcColumns, srcRows := original.Columns(), original.Rows()
	columns, rows := target.Pixels()
	resized, err := lib.ResizeImage(original, columns, rows, ex)
	lib.DestroyImage(original)
	if err != nil || resized == nil {
		return nil, codec.RunError("resize", err)
	}
	defer lib.DestroyImage(resized)

	info, err := lib.AcquireImageInfo()
	if err != nil || info == nil {
		return nil, codec.RunError("acquire image info", err)
	}
	defer lib.DestroyImageInfo(info)

	r.logger().WithFields(log.Fields{
		"codec":    lib.Name,
		"protocol": opts.Protocol.String(),
		"source":   fmt.Sprintf("%dx%d", srcColumns, srcRows),
		"target":   fmt.Sprintf("%dx%d", resized.Columns(), resized.Rows()),
	}).Debug("transmitting image")

	t := &Transmission{
		Lib:         lib,
		Info:        info,
		Image:       resized,
		Exception:   ex,
		PaddingLeft: opts.Padding.Left,
		Out:         r.out(),
		Compression: r.Compression,
		Log:         r.logger(),
		Passthrough: r.Passthrough,
	}
	if err := transmitter.Transmit(t); err != nil {
		return nil, err
	}

	return &Layout{
		Rows:        target.Rows(),
		Columns:     opts.Width + opts.Padding.Left + opts.Padding.Right,
		PixelWidth:  resized.Columns(),
		PixelHeight: resized.Rows(),
		Codec:       lib.Name,
		Compressed:  t.Compressed,
	}, nil
}

func readImage(lib *codec.Library, ex codec.Exception, source string) (codec.Image, error) {
	info, err := lib.AcquireImageInfo()
	if err != nil || info == nil {
		return nil, codec.RunError("acquire image info", err)
	}
	info.SetFilename(source)

	img, err := lib.ReadImage(info, ex)
	lib.DestroyImageInfo(info)
	if err != nil || img == nil {
		return nil, codec.RunError(fmt.Sprintf("read %s", source), err)
	}
	if img.Columns() <= 0 || img.Rows() <= 0 {
		lib.DestroyImage(img)
		return nil, codec.RunError(fmt.Sprintf("read %s", source), errors.New("empty image"))
	}
	return img, nil
}

// Target is the pixel size an image is scaled to
type Target struct {
	CellWidth  float64
	CellHeight float64
	// Width and Height keep their fractional part
	Width  float64
	Height float64
}

// Pixels returns the whole-pixel size handed to the resize
func (t Target) Pixels() (columns, rows int) {
	return int(math.Floor(t.Width)), int(math.Floor(t.Height))
}

// Rows returns the number of terminal rows the image covers
func (t Target) Rows() uint32 {
	return uint32(math.Floor(t.Height / t.CellHeight))
}

// TargetSize maps a width in cells to pixel dimensions that keep the source
// aspect ratio.
func TargetSize(geo Geometry, columns uint32, srcColumns, srcRows int) (Target, error) {
	if !geo.Complete() {
		return Target{}, fmt.Errorf("%w (%s)", ErrGeometry, geo)
	}
	if srcColumns <= 0 || srcRows <= 0 {
		return Target{}, codec.RunError("target size", fmt.Errorf("invalid source size %dx%d", srcColumns, srcRows))
	}

	cellW, cellH := geo.CellSize()
	width := float64(columns) * cellW
	height := width / float64(srcColumns) * float64(srcRows)

	if width < 1.0 || height < 1.0 {
		return Target{}, fmt.Errorf("%w (%.2fx%.2f)", ErrDegenerate, width, height)
	}
	return Target{
		CellWidth:  cellW,
		CellHeight: cellH,
		Width:      width,
		Height:     height,
	}, nil
}
