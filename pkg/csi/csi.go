/*
Package csi provides CSI (Control Sequence Introducer) query functions for terminal geometry
*/
package csi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// QueryTimeout is the default timeout for CSI queries
const QueryTimeout = 100 * time.Millisecond

// Window manipulation (XTWINOPS) queries and their report prefixes
const (
	QueryWindowSizeChars  = "\x1b[18t" // reply: CSI 8 ; rows ; cols t
	QueryWindowSizePixels = "\x1b[14t" // reply: CSI 4 ; height ; width t

	ReportWindowSizeChars  = 8
	ReportWindowSizePixels = 4
)

// ErrTimeout is returned when the terminal does not answer in time
var ErrTimeout = errors.New("csi query timed out")

// Querier sends an escape sequence and collects the reply up to and including final.
type Querier interface {
	Query(query string, final byte, timeout time.Duration) (string, error)
}

// Query writes query to rw and reads until final is seen or timeout expires.
// A read that outlives the timeout is abandoned; its result is discarded.
func Query(rw io.ReadWriter, query string, final byte, timeout time.Duration) (string, error) {
	if _, err := io.WriteString(rw, WrapTmuxPassthrough(query)); err != nil {
		return "", fmt.Errorf("failed to send query: %w", err)
	}

	type result struct {
		resp string
		err  error
	}
	responseChan := make(chan result, 1)

	go func() {
		var resp []byte
		buf := make([]byte, 64)
		for {
			n, err := rw.Read(buf)
			if n > 0 {
				resp = append(resp, buf[:n]...)
				// the reply ends with the final byte after the CSI introducer
				if i := bytes.Index(resp, []byte("\x1b[")); i >= 0 && bytes.IndexByte(resp[i+2:], final) >= 0 {
					responseChan <- result{resp: string(resp)}
					return
				}
			}
			if err != nil {
				responseChan <- result{resp: string(resp), err: err}
				return
			}
		}
	}()

	select {
	case r := <-responseChan:
		if r.err != nil {
			return r.resp, fmt.Errorf("failed to read reply: %w", r.err)
		}
		return r.resp, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("%w after %v", ErrTimeout, timeout)
	}
}

// ParseWindowSizeChars parses a CSI 8 ; rows ; cols t report
func ParseWindowSizeChars(response string) (rows, cols uint16, ok bool) {
	return parseReport(response, ReportWindowSizeChars)
}

// ParseWindowSizePixels parses a CSI 4 ; height ; width t report
func ParseWindowSizePixels(response string) (height, width uint16, ok bool) {
	return parseReport(response, ReportWindowSizePixels)
}

// parseReport extracts the two numeric fields of a "CSI ps ; a ; b t" report.
func parseReport(response string, ps int) (a, b uint16, ok bool) {
	prefix := "\x1b[" + strconv.Itoa(ps) + ";"
	start := strings.Index(response, prefix)
	if start == -1 {
		return 0, 0, false
	}
	remaining := response[start+len(prefix):]

	end := strings.IndexByte(remaining, 't')
	if end == -1 {
		return 0, 0, false
	}

	parts := strings.Split(remaining[:end], ";")
	if len(parts) != 2 {
		return 0, 0, false
	}
	first, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, 0, false
	}
	second, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, 0, false
	}
	return uint16(first), uint16(second), true
}

// TTY is the controlling terminal opened for query/response.
type TTY struct {
	file  *os.File
	state *term.State
}

// OpenTTY opens /dev/tty and switches it to raw mode so replies are not echoed.
func OpenTTY() (*TTY, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open controlling terminal: %w", err)
	}
	oldState, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	return &TTY{file: tty, state: oldState}, nil
}

// Query implements Querier on the controlling terminal
func (t *TTY) Query(query string, final byte, timeout time.Duration) (string, error) {
	// best effort: not every platform can set deadlines on a tty
	_ = t.file.SetReadDeadline(time.Now().Add(timeout))
	defer t.file.SetReadDeadline(time.Time{})
	return Query(t.file, query, final, timeout)
}

// Fd returns the terminal file descriptor
func (t *TTY) Fd() uintptr { return t.file.Fd() }

// Close restores the terminal state and closes it
func (t *TTY) Close() error {
	rerr := term.Restore(int(t.file.Fd()), t.state)
	cerr := t.file.Close()
	return errors.Join(rerr, cerr)
}

// QuerySupported checks if a terminal likely answers CSI queries
func QuerySupported() bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	switch os.Getenv("TERM_PROGRAM") {
	case "Apple_Terminal":
		// Apple Terminal often has CSI queries disabled for security
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// InTmux checks if running inside tmux
func InTmux() bool {
	return os.Getenv("TMUX") != "" || os.Getenv("TERM_PROGRAM") == "tmux"
}

// Passthrough wraps an escape sequence in a tmux DCS passthrough: every ESC of
// the sequence is doubled and the whole is sent as \ePtmux;...\e\\.
func Passthrough(seq string) string {
	if !strings.HasPrefix(seq, "\x1b") {
		return seq
	}
	return "\x1bPtmux;" + strings.ReplaceAll(seq, "\x1b", "\x1b\x1b") + "\x1b\\"
}

// WrapTmuxPassthrough wraps seq for tmux when running inside tmux
func WrapTmuxPassthrough(seq string) string {
	if InTmux() {
		return Passthrough(seq)
	}
	return seq
}
