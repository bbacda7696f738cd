package termlogo

import (
	"errors"

	"github.com/blacktop/go-termlogo/pkg/codec"
)

// Error sentinels shared with the codec backends
var (
	// ErrInit means a required capability is missing; try another backend
	ErrInit = codec.ErrInit
	// ErrRun means this render attempt failed; report it and stop
	ErrRun = codec.ErrRun
)

// Result is the outcome of a render
type Result int

const (
	Success Result = iota
	RunError
	InitError
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case RunError:
		return "run error"
	case InitError:
		return "init error"
	default:
		return "unknown"
	}
}

// ResultOf classifies err. Errors that carry neither sentinel count as RunError.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrInit):
		return InitError
	default:
		return RunError
	}
}
