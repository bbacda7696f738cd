package termlogo

import (
	"os"
	"strings"
)

// DetectProtocol returns the preferred graphics protocol of the current
// terminal: Kitty, then Sixel, else Unsupported.
func DetectProtocol() Protocol {
	if KittySupported() {
		return Kitty
	}
	if SixelSupported() {
		return Sixel
	}
	return Unsupported
}

// KittySupported checks if the current terminal supports the Kitty graphics protocol
func KittySupported() bool {
	switch {
	case os.Getenv("KITTY_WINDOW_ID") != "":
		return true
	case strings.Contains(strings.ToLower(os.Getenv("TERM")), "kitty"):
		return true
	case strings.Contains(strings.ToLower(os.Getenv("TERM")), "ghostty"):
		return true
	case os.Getenv("TERM_PROGRAM") == "ghostty":
		return true
	case os.Getenv("TERM_PROGRAM") == "WezTerm":
		return true
	case strings.Contains(os.Getenv("TERMINFO"), "Ghostty"): // tmux
		return true
	default:
		return false
	}
}

// SixelSupported checks if Sixel protocol is supported in the current environment
func SixelSupported() bool {
	termEnv := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	switch {
	case strings.Contains(termEnv, "sixel"):
		return true
	case strings.Contains(termEnv, "mlterm"):
		return true
	case strings.Contains(termEnv, "foot"):
		return true
	case strings.Contains(termEnv, "yaft"):
		return true
	case strings.Contains(termEnv, "xterm") && os.Getenv("XTERM_VERSION") != "":
		// xterm needs to be started with -ti 340 flag
		return true
	}

	switch {
	case strings.Contains(termProgram, "mlterm"):
		return true
	case termProgram == "iTerm.app":
		return true
	case termProgram == "mintty":
		return true
	case termProgram == "rio":
		return true
	}
	return false
}
