package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"escpr-service/internal/escp"
)

// TestPatternPlanes verifies the ink mask changes every 60 rows.
func TestPatternPlanes(t *testing.T) {
	p := NewTestPattern(20, 600)

	for _, ci := range Planes() {
		if line := p.BitLine(0, ci, 1); line != nil {
			t.Fatalf("row 0 plane %d = % x, want nil", ci, line)
		}
	}

	if line := p.BitLine(60, escp.ColorBlack, 1); !bytes.Equal(line, []byte{0xFF, 0xFF, 0xFF}) {
		t.Fatalf("row 60 black = % x, want ff ff ff", line)
	}
	if line := p.BitLine(60, escp.ColorMagenta, 1); line != nil {
		t.Fatalf("row 60 magenta = % x, want nil", line)
	}

	// Mask 7 inks black, magenta and cyan.
	for ci, want := range map[escp.ColorIndex]bool{0: true, 1: true, 2: true, 3: false} {
		if got := p.BitLine(420, ci, 2) != nil; got != want {
			t.Fatalf("row 420 plane %d inked = %v, want %v", ci, got, want)
		}
	}
	if line := p.BitLine(420, escp.ColorBlack, 2); len(line) != 6 {
		t.Fatalf("2 bpp line length = %d, want 6", len(line))
	}
}

func TestPatternLine(t *testing.T) {
	p := NewTestPattern(4, 120)

	line := p.Line(0)
	want := []byte{255, 255, 255, 191, 191, 191, 127, 127, 127, 63, 63, 63}
	if !bytes.Equal(line, want) {
		t.Fatalf("Line(0) = %v, want %v", line, want)
	}

	// Row 60 raises red only.
	line = p.Line(60)
	if line[0] != 0 || line[1] != 255 || line[3] != 64 {
		t.Fatalf("Line(60) = %v", line)
	}

	if p.Line(120) != nil {
		t.Fatal("Line past the last row should be nil")
	}
}

func TestSolid(t *testing.T) {
	s := &Solid{Width: 9, Height: 2, RGB: [3]byte{1, 2, 3}}
	if line := s.BitLine(1, escp.ColorYellow, 1); !bytes.Equal(line, []byte{0xFF, 0xFF}) {
		t.Fatalf("BitLine = % x, want ff ff", line)
	}
	if line := s.Line(0); len(line) != 27 || line[26] != 3 {
		t.Fatalf("Line(0) = %v", line)
	}
	if s.BitLine(2, escp.ColorBlack, 1) != nil {
		t.Fatal("BitLine past the last row should be nil")
	}
}

// TestImageSeparation verifies pixels are separated into thresholded CMYK
// planes.
func TestImageSeparation(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 1))
	for x := 0; x < 10; x++ {
		img.Set(x, 0, color.White)
	}
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(9, 0, color.Black)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	src, format, err := Decode(&buf, 10)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if format != "png" {
		t.Fatalf("format = %q, want png", format)
	}
	if w, h := src.Size(); w != 10 || h != 1 {
		t.Fatalf("Size() = %d x %d, want 10 x 1", w, h)
	}

	tests := []struct {
		ci   escp.ColorIndex
		want []byte
	}{
		{escp.ColorMagenta, []byte{0x80, 0x00}},
		{escp.ColorYellow, []byte{0x80, 0x00}},
		{escp.ColorBlack, []byte{0x00, 0x40}},
		{escp.ColorCyan, nil},
	}
	for _, tt := range tests {
		if got := src.BitLine(0, tt.ci, 1); !bytes.Equal(got, tt.want) {
			t.Fatalf("BitLine(plane %d) = % x, want % x", tt.ci, got, tt.want)
		}
	}

	if got := src.BitLine(0, escp.ColorBlack, 2); !bytes.Equal(got, []byte{0, 0, 0x30, 0}) {
		t.Fatalf("2 bpp black = % x, want 00 00 30 00", got)
	}

	if rgb := src.Line(0); !bytes.Equal(rgb[:6], []byte{255, 0, 0, 255, 255, 255}) {
		t.Fatalf("Line(0) = %v", rgb[:6])
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := Decode(bytes.NewReader([]byte("not an image")), 0); err == nil {
		t.Fatal("Decode() error = nil, want error")
	}
}

// TestDecodeRejectsOversizedHeader verifies the declared dimensions are
// checked before the pixel data is decoded.
func TestDecodeRejectsOversizedHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Decode(bytes.NewReader(buf.Bytes()), 1); err != nil {
		t.Fatalf("Decode() of a 1 x 1 image error = %v", err)
	}

	// Rewrite the IHDR chunk to declare 50000 x 50000 pixels.
	data := bytes.Clone(buf.Bytes())
	binary.BigEndian.PutUint32(data[16:], 50000)
	binary.BigEndian.PutUint32(data[20:], 50000)
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))

	_, _, err := Decode(bytes.NewReader(data), 64_000_000)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("Decode() error = %v, want ErrImageTooLarge", err)
	}
}
