// internal/escp/errors.go
package escp

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated means the stream ended inside a command.
	ErrTruncated = errors.New("truncated stream")
	// ErrUnsupportedLength means a versioned field had an unknown payload length.
	ErrUnsupportedLength = errors.New("unsupported field length")
	// ErrInvalidMode means an ESC . compression byte other than 0 or 1.
	ErrInvalidMode = errors.New("invalid bit image mode")
	// ErrLengthMismatch means compressed raster data did not fit its declared size.
	ErrLengthMismatch = errors.New("raster length mismatch")
)

// DecodeError is a fatal decoding failure at a stream offset.
type DecodeError struct {
	Op     string
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
