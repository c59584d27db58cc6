// internal/raster/source.go

// Package raster provides page sources for print jobs: synthetic test
// pages and decoded images.
package raster

import (
	"bytes"

	"escpr-service/internal/escp"
)

// Source is one page of raster data.
type Source interface {
	// Size returns the page size in dots.
	Size() (width, height int)
	// BitLine returns row y of one ink plane at bpp bits per dot, or nil
	// when the plane has no ink on that row.
	BitLine(y int, color escp.ColorIndex, bpp int) []byte
	// Line returns row y as packed 24-bit RGB, or nil past the last row.
	Line(y int) []byte
}

// planes is the number of ink planes a plain job transfers per row.
const planes = 4

// Planes lists the ink planes sent for each row of a plain job.
func Planes() []escp.ColorIndex {
	out := make([]escp.ColorIndex, planes)
	for i := range out {
		out[i] = escp.ColorIndex(i)
	}
	return out
}

func bitWidth(width, bpp int) int {
	return (width + 7) / 8 * bpp
}

// TestPattern cycles through ink combinations every 60 rows and renders an
// RGB gradient for raster jobs.
type TestPattern struct {
	Width  int
	Height int
}

// NewTestPattern returns a width by height test page.
func NewTestPattern(width, height int) *TestPattern {
	return &TestPattern{Width: width, Height: height}
}

func (p *TestPattern) Size() (int, int) {
	return p.Width, p.Height
}

func (p *TestPattern) BitLine(y int, color escp.ColorIndex, bpp int) []byte {
	if color >= planes {
		return nil
	}
	mask := (y / 60) % 15
	if mask&(1<<color) == 0 {
		return nil
	}
	return bytes.Repeat([]byte{0xFF}, bitWidth(p.Width, bpp))
}

func (p *TestPattern) Line(y int) []byte {
	if y < 0 || y >= p.Height {
		return nil
	}

	color := (y / 60) % 7
	rising := [3]bool{color&1 != 0, color&2 != 0, color&4 != 0}

	out := make([]byte, 0, p.Width*3)
	for i := 0; i < p.Width; i++ {
		pos := byte(256 * i / p.Width)
		for _, up := range rising {
			if up {
				out = append(out, pos)
			} else {
				out = append(out, 255-pos)
			}
		}
	}
	return out
}

// Solid inks every plane on every row and renders a single RGB color.
type Solid struct {
	Width  int
	Height int
	RGB    [3]byte
}

func (s *Solid) Size() (int, int) {
	return s.Width, s.Height
}

func (s *Solid) BitLine(y int, color escp.ColorIndex, bpp int) []byte {
	if y < 0 || y >= s.Height {
		return nil
	}
	return bytes.Repeat([]byte{0xFF}, bitWidth(s.Width, bpp))
}

func (s *Solid) Line(y int) []byte {
	if y < 0 || y >= s.Height {
		return nil
	}
	return bytes.Repeat(s.RGB[:], s.Width)
}
