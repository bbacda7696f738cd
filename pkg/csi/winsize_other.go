//go:build !unix

package csi

import (
	"golang.org/x/term"
)

// Winsize reports the cell geometry only; pixel fields are left to CSI queries.
func Winsize(fd uintptr) (rows, cols, pixelHeight, pixelWidth uint16, err error) {
	w, h, err := term.GetSize(int(fd))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return uint16(h), uint16(w), 0, 0, nil
}
