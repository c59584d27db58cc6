package rle

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
)

// TestEncodeDecodeRoundTrip checks that raster-scheme decoding inverts Encode.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	cases := map[string][]byte{
		"empty":       {},
		"single":      {0x42},
		"pair":        {0x42, 0x42},
		"distinct":    {1, 2, 3, 4, 5},
		"long repeat": bytes.Repeat([]byte{0xFF}, 1000),
		"long unique": func() []byte {
			b := make([]byte, 700)
			for i := range b {
				b[i] = byte(i)
			}
			return b
		}(),
		"mixed": append(append([]byte{1, 2, 3}, bytes.Repeat([]byte{9}, 130)...), 4, 5, 5, 6),
	}
	for i := 0; i < 50; i++ {
		b := make([]byte, rng.Intn(600))
		for j := range b {
			// Small alphabet so that runs actually occur.
			b[j] = byte(rng.Intn(3))
		}
		cases["random"+string(rune('a'+i%26))+string(rune('a'+i/26))] = b
	}

	for name, line := range cases {
		encoded := Encode(line, 1)
		decoded, err := Decode(bytes.NewReader(encoded), len(line), 1)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if !bytes.Equal(decoded, line) {
			t.Fatalf("%s: decoded %d bytes, want %d (mismatch)", name, len(decoded), len(line))
		}
	}
}

// TestEncodeStride3 verifies RGB grouping and Expand.
func TestEncodeStride3(t *testing.T) {
	red := []byte{0xFF, 0, 0}
	var line []byte
	for i := 0; i < 10; i++ {
		line = append(line, red...)
	}
	line = append(line, 1, 2, 3, 4, 5, 6)

	encoded := Encode(line, 3)
	want := []byte{257 - 10, 0xFF, 0, 0, 1, 1, 2, 3, 4, 5, 6}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("Encode = % x, want % x", encoded, want)
	}

	expanded, err := Expand(encoded, 3)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if !bytes.Equal(expanded, line) {
		t.Fatalf("Expand = % x, want % x", expanded, line)
	}
}

// TestEncodeNeverEmitsNoOpControl checks that repeat runs stay within 2..128.
func TestEncodeNeverEmitsNoOpControl(t *testing.T) {
	encoded := Encode(bytes.Repeat([]byte{7}, 129), 1)
	want := []byte{257 - 128, 7, 0, 7}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("Encode = % x, want % x", encoded, want)
	}
}

// TestDecodeLengthMismatch rejects runs that overshoot the target length.
func TestDecodeLengthMismatch(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0xFE, 0xAA}), 2, 1) // 3 repeats into 2 bytes
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}

	_, err = Decode(bytes.NewReader([]byte{0x02, 1, 2, 3}), 2, 1)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
}

// TestDecodeTruncated reports io.ErrUnexpectedEOF for short input.
func TestDecodeTruncated(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x03, 1, 2}), 4, 1)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}

	_, err = DecodeBitImage(bytes.NewReader(nil), 1)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

// TestDecodeBitImageBoundary checks the 127/128 literal/repeat boundary.
func TestDecodeBitImageBoundary(t *testing.T) {
	literal := append([]byte{127}, bytes.Repeat([]byte{0x11}, 128)...)
	out, err := DecodeBitImage(bytes.NewReader(literal), 128)
	if err != nil {
		t.Fatalf("literal: %v", err)
	}
	if len(out) != 128 {
		t.Fatalf("literal run = %d bytes, want 128", len(out))
	}

	out, err = DecodeBitImage(bytes.NewReader([]byte{128, 0x22}), 129)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if len(out) != 129 || out[0] != 0x22 || out[128] != 0x22 {
		t.Fatalf("repeat run = %d bytes, want 129 of 0x22", len(out))
	}

	out, err = DecodeBitImage(bytes.NewReader([]byte{0xFF, 0x33}), 2)
	if err != nil {
		t.Fatalf("short repeat: %v", err)
	}
	if !bytes.Equal(out, []byte{0x33, 0x33}) {
		t.Fatalf("short repeat = % x", out)
	}
}

// TestSchemesAgreeOnRepeats checks both decoders expand repeat controls identically.
func TestSchemesAgreeOnRepeats(t *testing.T) {
	for c := 0x80; c <= 0xFF; c++ {
		n := 257 - c
		a, err := Decode(bytes.NewReader([]byte{byte(c), 5}), n, 1)
		if err != nil {
			t.Fatalf("c=%#x raster: %v", c, err)
		}
		b, err := DecodeBitImage(bytes.NewReader([]byte{byte(c), 5}), n)
		if err != nil {
			t.Fatalf("c=%#x bit image: %v", c, err)
		}
		if !bytes.Equal(a, b) {
			t.Fatalf("c=%#x: schemes disagree", c)
		}
	}
}
