// internal/raster/image.go
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "github.com/mrjoshuak/go-jpeg2000"

	"escpr-service/internal/escp"
)

// inkThreshold is the CMYK component level at which a dot is inked.
const inkThreshold = 0x80

// Image adapts a decoded image to a Source, one device dot per pixel.
type Image struct {
	img    image.Image
	bounds image.Rectangle
}

// NewImage wraps img.
func NewImage(img image.Image) *Image {
	return &Image{img: img, bounds: img.Bounds()}
}

// ErrImageTooLarge is returned for images whose header declares more pixels
// than the caller allows.
var ErrImageTooLarge = errors.New("image too large")

// Decode reads a PNG, JPEG or JPEG 2000 image and returns it as a Source
// along with the detected format name. The header is checked against
// maxPixels before any pixel data is decoded; zero or less means no limit.
func Decode(r io.Reader, maxPixels int) (*Image, string, error) {
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", fmt.Errorf("%w: %d x %d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return NewImage(img), format, nil
}

func (m *Image) Size() (int, int) {
	return m.bounds.Dx(), m.bounds.Dy()
}

// BitLine thresholds the CMYK separation of row y. Each inked dot is set to
// all ones at the requested depth.
func (m *Image) BitLine(y int, ci escp.ColorIndex, bpp int) []byte {
	if y < 0 || y >= m.bounds.Dy() || bpp < 1 || bpp > 8 || 8%bpp != 0 {
		return nil
	}

	width := m.bounds.Dx()
	out := make([]byte, bitWidth(width, bpp))
	dot := byte(1)<<bpp - 1
	inked := false

	for x := 0; x < width; x++ {
		c := color.CMYKModel.Convert(m.img.At(m.bounds.Min.X+x, m.bounds.Min.Y+y)).(color.CMYK)

		var level uint8
		switch ci {
		case escp.ColorBlack:
			level = c.K
		case escp.ColorMagenta:
			level = c.M
		case escp.ColorCyan:
			level = c.C
		case escp.ColorYellow:
			level = c.Y
		default:
			return nil
		}
		if level < inkThreshold {
			continue
		}

		inked = true
		bit := x * bpp
		out[bit/8] |= dot << (8 - bpp - bit%8)
	}

	if !inked {
		return nil
	}
	return out
}

func (m *Image) Line(y int) []byte {
	if y < 0 || y >= m.bounds.Dy() {
		return nil
	}

	width := m.bounds.Dx()
	out := make([]byte, 0, width*3)
	for x := 0; x < width; x++ {
		c := color.RGBAModel.Convert(m.img.At(m.bounds.Min.X+x, m.bounds.Min.Y+y)).(color.RGBA)
		out = append(out, c.R, c.G, c.B)
	}
	return out
}
