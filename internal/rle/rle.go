// internal/rle/rle.go

// Package rle implements the run-length schemes used by ESC/P raster data.
//
// Two decoders exist. The raster scheme (used by ESC i and ESC/P-R dsnd) treats a
// control byte c < 0x80 as a literal run of c+1 groups and c >= 0x80 as a single
// group repeated 257-c times. The bit-image scheme (ESC .) uses counter+1 literal
// bytes for counter <= 127 and 256-counter+1 repeats otherwise. The repeat formulas
// are arithmetically equal; they are kept as separate entry points because they
// serve separate commands on the wire.
package rle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxRun is the longest literal or repeat run a single control byte describes.
const MaxRun = 128

// ErrLengthMismatch is returned when runs overshoot the declared output length.
var ErrLengthMismatch = errors.New("rle: decoded length does not match declared length")

// Decode reads raster-scheme runs from r until exactly n bytes are produced.
// stride is the group size in bytes (1 for ESC i, 3 for RGB ESC/P-R lines).
// A short read returns io.ErrUnexpectedEOF.
func Decode(r io.Reader, n, stride int) ([]byte, error) {
	if stride < 1 {
		return nil, fmt.Errorf("rle: invalid stride %d", stride)
	}

	out := make([]byte, 0, n)
	var ctl [1]byte
	for len(out) < n {
		if _, err := io.ReadFull(r, ctl[:]); err != nil {
			return out, unexpected(err)
		}

		var err error
		if ctl[0] < 0x80 {
			out, err = literal(r, out, (int(ctl[0])+1)*stride, n)
		} else {
			out, err = repeat(r, out, 257-int(ctl[0]), stride, n)
		}
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

// DecodeBitImage reads bit-image runs from r until exactly n bytes are produced.
func DecodeBitImage(r io.Reader, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	var ctl [1]byte
	for len(out) < n {
		if _, err := io.ReadFull(r, ctl[:]); err != nil {
			return out, unexpected(err)
		}

		counter := int(ctl[0])
		var err error
		if counter <= 127 {
			out, err = literal(r, out, counter+1, n)
		} else {
			out, err = repeat(r, out, 256-counter+1, 1, n)
		}
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

// Expand decodes a complete raster-scheme buffer whose output length is not
// declared, such as an ESC/P-R dsnd payload.
func Expand(src []byte, stride int) ([]byte, error) {
	if stride < 1 {
		return nil, fmt.Errorf("rle: invalid stride %d", stride)
	}

	r := bytes.NewReader(src)
	var out []byte
	for r.Len() > 0 {
		c, _ := r.ReadByte()
		if c < 0x80 {
			run := make([]byte, (int(c)+1)*stride)
			if _, err := io.ReadFull(r, run); err != nil {
				return out, unexpected(err)
			}
			out = append(out, run...)
			continue
		}

		group := make([]byte, stride)
		if _, err := io.ReadFull(r, group); err != nil {
			return out, unexpected(err)
		}
		for i := 0; i < 257-int(c); i++ {
			out = append(out, group...)
		}
	}

	return out, nil
}

// Encode run-length encodes line in groups of stride bytes using the raster
// scheme. A trailing partial group is zero-padded to a full group.
func Encode(line []byte, stride int) []byte {
	if stride < 1 {
		stride = 1
	}

	groups := len(line) / stride
	group := func(i int) []byte { return line[i*stride : (i+1)*stride] }
	same := func(i, j int) bool { return bytes.Equal(group(i), group(j)) }

	out := make([]byte, 0, len(line)+len(line)/MaxRun+2)
	for i := 0; i < groups; {
		run := 1
		for i+run < groups && run < MaxRun && same(i, i+run) {
			run++
		}

		if run > 1 {
			out = append(out, byte(257-run))
			out = append(out, group(i)...)
			i += run
			continue
		}

		// Literal run stops before the next pair of identical groups.
		n := 1
		for i+n < groups && n < MaxRun {
			if i+n+1 < groups && same(i+n, i+n+1) {
				break
			}
			n++
		}
		out = append(out, byte(n-1))
		out = append(out, line[i*stride:(i+n)*stride]...)
		i += n
	}

	if tail := line[groups*stride:]; len(tail) > 0 {
		out = append(out, 0)
		out = append(out, tail...)
		out = append(out, make([]byte, stride-len(tail))...)
	}

	return out
}

func literal(r io.Reader, out []byte, count, limit int) ([]byte, error) {
	if len(out)+count > limit {
		return out, fmt.Errorf("%w: literal run of %d at %d/%d", ErrLengthMismatch, count, len(out), limit)
	}

	start := len(out)
	out = append(out, make([]byte, count)...)
	if _, err := io.ReadFull(r, out[start:]); err != nil {
		return out[:start], unexpected(err)
	}
	return out, nil
}

func repeat(r io.Reader, out []byte, count, stride, limit int) ([]byte, error) {
	if len(out)+count*stride > limit {
		return out, fmt.Errorf("%w: repeat run of %d at %d/%d", ErrLengthMismatch, count*stride, len(out), limit)
	}

	group := make([]byte, stride)
	if _, err := io.ReadFull(r, group); err != nil {
		return out, unexpected(err)
	}
	for i := 0; i < count; i++ {
		out = append(out, group...)
	}
	return out, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
