package termlogo

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/charmbracelet/x/mosaic"
)

// RenderBlocks draws the image at path with Unicode half blocks, width cells
// wide. It needs no graphics protocol and serves as a text fallback when no
// codec backend or protocol is available.
func RenderBlocks(path string, width int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("%w: invalid width %d", ErrRun, width)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	return BlocksFromImage(img, width), nil
}

// BlocksFromImage renders img with half blocks. Each cell covers one pixel
// column and two pixel rows, so the height follows from the aspect ratio.
func BlocksFromImage(img image.Image, width int) string {
	bounds := img.Bounds()
	height := max(int(float64(width)*float64(bounds.Dy())/float64(bounds.Dx())/2.0), 1)

	m := mosaic.New().Width(width).Height(height)
	return m.Render(img)
}
