//go:build !(darwin || linux)

package magick

import (
	"fmt"
	"runtime"

	"github.com/blacktop/go-termlogo/pkg/codec"
)

func load(name string, _ []string, _ int) (*codec.Library, error) {
	return nil, fmt.Errorf("%w: %s: dynamic loading is not supported on %s", codec.ErrInit, name, runtime.GOOS)
}
