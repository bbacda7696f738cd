package termlogo

import (
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/blacktop/go-termlogo/pkg/compress"
)

// Protocol is a terminal graphics protocol
type Protocol int

const (
	Unsupported Protocol = iota
	// Kitty is the chunked, base64 framed graphics protocol
	Kitty
	// Sixel is the dense pixel stream written by the codec itself
	Sixel
)

func (p Protocol) String() string {
	switch p {
	case Kitty:
		return "kitty"
	case Sixel:
		return "sixel"
	default:
		return "unsupported"
	}
}

// ParseProtocol parses a protocol name. "auto" and "" detect the terminal's protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DetectProtocol(), nil
	case "kitty":
		return Kitty, nil
	case "sixel":
		return Sixel, nil
	default:
		return Unsupported, fmt.Errorf("unknown protocol %q", s)
	}
}

// Transmitter sends one resized image to the terminal
type Transmitter interface {
	Transmit(t *Transmission) error
}

// Transmission is everything a Transmitter needs for one image. The codec
// handles are borrowed: the orchestrator releases them after Transmit returns.
type Transmission struct {
	Lib         *codec.Library
	Info        codec.ImageInfo
	Image       codec.Image
	Exception   codec.Exception
	PaddingLeft uint32
	Out         io.Writer
	Compression compress.Capability
	Log         log.Interface
	// Passthrough wraps every escape sequence for tmux
	Passthrough bool

	// Compressed is set by the transmitter when the payload was deflated
	Compressed bool
}

// Transmitter returns the encoder for the protocol
func (p Protocol) Transmitter() (Transmitter, error) {
	switch p {
	case Kitty:
		return &KittyTransmitter{ChunkSize: KittyChunkSize}, nil
	case Sixel:
		return &SixelTransmitter{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported protocol: %s", ErrInit, p)
	}
}
