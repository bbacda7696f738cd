package termlogo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/dustin/go-humanize"
)

// KittyChunkSize is the largest base64 payload carried by one frame
const KittyChunkSize = 4096

// Kitty graphics protocol escape sequences
const (
	kittyStart = "\x1b_G"
	kittyEnd   = "\x1b\\"
	// kittyTerminator closes a chunked transmission
	kittyTerminator = kittyStart + "m=0;" + kittyEnd

	tmuxStart = "\x1bPtmux;"
	tmuxEnd   = "\x1b\\"
)

// pixelBlob holds one stage of the encode pipeline. take moves the bytes to
// the next stage so no two stages hold the same buffer.
type pixelBlob struct {
	data       []byte
	compressed bool
}

func (b *pixelBlob) take() []byte {
	data := b.data
	b.data = nil
	return data
}

// KittyTransmitter sends raw RGBA pixels with the chunked graphics protocol
type KittyTransmitter struct {
	ChunkSize int
}

// Transmit implements Transmitter
func (k *KittyTransmitter) Transmit(t *Transmission) error {
	logger := t.Log
	if logger == nil {
		logger = log.Log
	}

	t.Info.SetFormat(codec.FormatRGBA)

	raw, err := t.Lib.ImageToBlob(t.Info, t.Image, t.Exception)
	if err != nil {
		return codec.RunError("image to blob", err)
	}
	if len(raw) == 0 {
		return codec.RunError("image to blob", errors.New("empty blob"))
	}
	blob := &pixelBlob{data: raw}

	if data, ok, err := t.Compression.Apply(blob.data); ok {
		logger.WithFields(log.Fields{
			"compressor": t.Compression.Name(),
			"raw":        humanize.Bytes(uint64(len(blob.data))),
			"compressed": humanize.Bytes(uint64(len(data))),
		}).Debug("compressed pixel data")
		blob.take()
		blob = &pixelBlob{data: data, compressed: true}
	} else if err != nil {
		logger.WithError(err).Debug("compression failed, sending uncompressed")
	}
	t.Compressed = blob.compressed

	encoded, err := t.Lib.Base64Encode(blob.take())
	if err != nil {
		return codec.RunError("base64 encode", err)
	}
	if len(encoded) == 0 {
		return codec.RunError("base64 encode", errors.New("empty payload"))
	}

	chunkSize := k.ChunkSize
	if chunkSize <= 0 {
		chunkSize = KittyChunkSize
	}

	w := bufio.NewWriter(t.Out)
	w.Write(bytes.Repeat([]byte{' '}, int(t.PaddingLeft)))
	writeKittyCommand(w, t.Passthrough, kittyControl(t.Image.Columns(), t.Image.Rows(), blob.compressed), nil)
	frames := writeKittyChunks(w, t.Passthrough, encoded, chunkSize)
	writeKittyCommand(w, t.Passthrough, "m=0", nil)
	if err := w.Flush(); err != nil {
		return codec.RunError("transmit", err)
	}

	logger.WithFields(log.Fields{
		"payload": humanize.Bytes(uint64(len(encoded))),
		"frames":  frames,
	}).Debug("sent kitty image")

	return nil
}

// kittyControl declares a transmit-and-display of width x height RGBA pixels
// whose data follows in chunks.
func kittyControl(width, height int, compressed bool) string {
	var compression string
	if compressed {
		compression = ",o=z"
	}
	return fmt.Sprintf("a=T,f=32,s=%d,v=%d,m=1%s", width, height, compression)
}

// writeKittyCommand writes one graphics command. Inside tmux the command is
// sent through a DCS passthrough with its ESC bytes doubled; the base64
// payload never contains ESC.
func writeKittyCommand(w *bufio.Writer, passthrough bool, control string, payload []byte) {
	start, end := kittyStart, kittyEnd
	if passthrough {
		w.WriteString(tmuxStart)
		start, end = "\x1b"+kittyStart, "\x1b"+kittyEnd
	}
	w.WriteString(start)
	w.WriteString(control)
	w.WriteByte(';')
	w.Write(payload)
	w.WriteString(end)
	if passthrough {
		w.WriteString(tmuxEnd)
	}
}

// writeKittyChunks writes payload as consecutive "more data follows" frames of
// at most chunkSize bytes and returns the number of frames written.
func writeKittyChunks(w *bufio.Writer, passthrough bool, payload []byte, chunkSize int) int {
	var frames int
	for len(payload) > 0 {
		n := min(chunkSize, len(payload))
		writeKittyCommand(w, passthrough, "m=1", payload[:n])
		payload = payload[n:]
		frames++
	}
	return frames
}
