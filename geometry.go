package termlogo

import (
	"fmt"
	"os"
	"time"

	"github.com/blacktop/go-termlogo/pkg/csi"
)

// ErrGeometry is returned when the terminal size in cells and pixels cannot be resolved
var ErrGeometry = fmt.Errorf("%w: terminal geometry unavailable", ErrRun)

// Geometry is the terminal size in character cells and in pixels
type Geometry struct {
	Rows        uint16
	Cols        uint16
	PixelHeight uint16
	PixelWidth  uint16
}

// Complete reports whether every field is known
func (g Geometry) Complete() bool {
	return g.Rows > 0 && g.Cols > 0 && g.PixelHeight > 0 && g.PixelWidth > 0
}

// CellSize returns the pixel size of one character cell
func (g Geometry) CellSize() (width, height float64) {
	return float64(g.PixelWidth) / float64(g.Cols), float64(g.PixelHeight) / float64(g.Rows)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d cells, %dx%d px", g.Cols, g.Rows, g.PixelWidth, g.PixelHeight)
}

// Terminal is what the geometry probe needs from the terminal
type Terminal interface {
	// Winsize returns the geometry reported by the operating system.
	// Fields the terminal does not fill are zero.
	Winsize() (Geometry, error)
	csi.Querier
}

// ProbeGeometry resolves the terminal geometry. The operating system is asked
// first; missing cell or pixel fields are then queried with CSI 18 t and
// CSI 14 t, each bounded by timeout.
func ProbeGeometry(t Terminal, timeout time.Duration) (Geometry, error) {
	// not every terminal fills every field, start from zero
	var geo Geometry
	if ws, err := t.Winsize(); err == nil {
		geo = ws
	}

	if geo.Rows == 0 || geo.Cols == 0 {
		if resp, err := t.Query(csi.QueryWindowSizeChars, 't', timeout); err == nil {
			if rows, cols, ok := csi.ParseWindowSizeChars(resp); ok {
				geo.Rows, geo.Cols = rows, cols
			}
		}
	}

	if geo.PixelHeight == 0 || geo.PixelWidth == 0 {
		if resp, err := t.Query(csi.QueryWindowSizePixels, 't', timeout); err == nil {
			if height, width, ok := csi.ParseWindowSizePixels(resp); ok {
				geo.PixelHeight, geo.PixelWidth = height, width
			}
		}
	}

	if !geo.Complete() {
		return geo, fmt.Errorf("%w (%s)", ErrGeometry, geo)
	}
	return geo, nil
}

// SystemTerminal probes the terminal attached to standard output and answers
// queries through the controlling terminal.
type SystemTerminal struct {
	Out *os.File
}

// Winsize implements Terminal
func (s SystemTerminal) Winsize() (Geometry, error) {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	rows, cols, ph, pw, err := csi.Winsize(out.Fd())
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{Rows: rows, Cols: cols, PixelHeight: ph, PixelWidth: pw}, nil
}

// Query implements csi.Querier
func (s SystemTerminal) Query(query string, final byte, timeout time.Duration) (string, error) {
	if !csi.QuerySupported() {
		return "", fmt.Errorf("terminal does not answer queries")
	}
	tty, err := csi.OpenTTY()
	if err != nil {
		return "", err
	}
	defer tty.Close()
	return tty.Query(query, final, timeout)
}
