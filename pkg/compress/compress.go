/*
Package compress provides the optional deflate stage applied to raw pixel blobs
before they are transmitted with the chunked graphics protocol.

Compression is best effort: every failure hands back the input unchanged.
*/
package compress

import (
	"bytes"
	"compress/zlib"
	"fmt"
)

// Compressor deflates a blob into a zlib (RFC 1950) stream.
type Compressor interface {
	Name() string
	Compress(data []byte) ([]byte, error)
}

// Capability is either present (wrapping a Compressor) or absent.
type Capability struct {
	c Compressor
}

// Absent is the capability of a system without compression.
func Absent() Capability { return Capability{} }

// With returns a present capability backed by c.
func With(c Compressor) Capability {
	return Capability{c: c}
}

// Zlib returns the capability backed by compress/zlib at best compression.
func Zlib() Capability {
	return With(stdZlib{level: zlib.BestCompression})
}

// Present reports whether compression can be attempted.
func (c Capability) Present() bool { return c.c != nil }

// Name of the backing compressor, "none" when absent.
func (c Capability) Name() string {
	if c.c == nil {
		return "none"
	}
	return c.c.Name()
}

// Apply compresses data. It returns the compressed blob and true on success,
// or data itself and false when the capability is absent or compression fails.
// The returned error explains a failed attempt and is informational only.
func (c Capability) Apply(data []byte) ([]byte, bool, error) {
	if c.c == nil || len(data) == 0 {
		return data, false, nil
	}
	out, err := c.c.Compress(data)
	if err != nil {
		return data, false, fmt.Errorf("%s: %w", c.c.Name(), err)
	}
	if len(out) == 0 {
		return data, false, fmt.Errorf("%s: empty output", c.c.Name())
	}
	return out, true, nil
}

type stdZlib struct {
	level int
}

func (stdZlib) Name() string { return "zlib" }

func (z stdZlib) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, z.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
