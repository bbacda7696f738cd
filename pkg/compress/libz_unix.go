//go:build darwin || linux

package compress

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ebitengine/purego"
)

// LibZ lists the shared object names tried when loading the system zlib.
var LibZ = []string{"libz.so.1", "libz.so", "libz.1.dylib", "libz.dylib"}

const (
	zOK              = 0
	zBestCompression = 9
)

// LoadLibZ returns a capability that resolves compress2 from the system zlib
// on every call and unloads it again afterwards. paths are tried before LibZ.
func LoadLibZ(paths ...string) Capability {
	return With(libz{names: append(slices.Clone(paths), LibZ...)})
}

type libz struct {
	names []string
}

func (libz) Name() string { return "libz" }

func (z libz) Compress(data []byte) ([]byte, error) {
	var (
		handle uintptr
		err    error
	)
	for _, name := range z.names {
		if handle, err = purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_LOCAL); err == nil {
			break
		}
	}
	if handle == 0 {
		return nil, fmt.Errorf("failed to load zlib: %w", err)
	}
	defer purego.Dlclose(handle)

	var (
		compressBound func(sourceLen uint64) uint64
		compress2     func(dest *byte, destLen *uint64, source *byte, sourceLen uint64, level int32) int32
	)
	for _, b := range []struct {
		fptr   any
		symbol string
	}{
		{&compressBound, "compressBound"},
		{&compress2, "compress2"},
	} {
		sym, err := purego.Dlsym(handle, b.symbol)
		if err != nil {
			return nil, fmt.Errorf("missing symbol %s: %w", b.symbol, err)
		}
		purego.RegisterFunc(b.fptr, sym)
	}

	destLen := compressBound(uint64(len(data)))
	if destLen == 0 {
		return nil, errors.New("compressBound returned 0")
	}
	dest := make([]byte, destLen)
	if rc := compress2(&dest[0], &destLen, &data[0], uint64(len(data)), zBestCompression); rc != zOK {
		return nil, fmt.Errorf("compress2 failed with status %d", rc)
	}
	return dest[:destLen], nil
}
