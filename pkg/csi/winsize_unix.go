//go:build unix

package csi

import (
	"golang.org/x/sys/unix"
)

// Winsize reads the cell and pixel geometry of the terminal behind fd
// with TIOCGWINSZ. Fields the terminal does not fill are zero.
func Winsize(fd uintptr) (rows, cols, pixelHeight, pixelWidth uint16, err error) {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return ws.Row, ws.Col, ws.Ypixel, ws.Xpixel, nil
}
