package termlogo

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/blacktop/go-termlogo/pkg/csi"
)

// SixelTransmitter lets the codec write the image as a sixel stream straight
// to the terminal.
type SixelTransmitter struct{}

// Transmit implements Transmitter
func (s *SixelTransmitter) Transmit(t *Transmission) error {
	if _, err := io.WriteString(t.Out, strings.Repeat(" ", int(t.PaddingLeft))); err != nil {
		return codec.RunError("write padding", err)
	}

	t.Info.SetFormat(codec.FormatSixel)
	// tmux needs the whole DCS stream before it can be wrapped
	var stream bytes.Buffer
	if t.Passthrough {
		t.Info.SetOutput(&stream)
	} else {
		t.Info.SetOutput(t.Out)
	}

	err := t.Lib.WriteImage(t.Info, t.Image, t.Exception)
	if err == nil && t.Passthrough {
		_, err = io.WriteString(t.Out, csi.Passthrough(stream.String()))
	}
	if err != nil {
		// take back the padding printed above
		if t.PaddingLeft > 0 {
			fmt.Fprintf(t.Out, "\x1b[%dD", t.PaddingLeft)
		}
		return codec.RunError("write sixel", err)
	}
	return nil
}
