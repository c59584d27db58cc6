// internal/transport/transport.go

// Package transport defines the byte channel that the ESC/P encoder writes to
// and the decoder reads from, plus in-memory implementations of it.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Transport is the capability both the encoder and the decoder consume.
//
// Recv returns up to expected bytes; an empty result with a nil error, or
// io.EOF, marks the end of the stream.
type Transport interface {
	Send(data []byte) error
	Recv(expected int) ([]byte, error)
}

// TransportError reports a failed send or receive.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err came from a transport.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Connection is a context-aware device link such as a USB or TCP connection.
type Connection interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context, maxBytes int) ([]byte, error)
}

type bound struct {
	ctx  context.Context
	conn Connection
}

// Bind adapts a Connection to a Transport whose calls run under ctx.
func Bind(ctx context.Context, conn Connection) Transport {
	return &bound{ctx: ctx, conn: conn}
}

func (b *bound) Send(data []byte) error {
	if err := b.conn.Write(b.ctx, data); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

func (b *bound) Recv(expected int) ([]byte, error) {
	data, err := b.conn.Read(b.ctx, expected)
	if err != nil && !errors.Is(err, io.EOF) {
		return data, &TransportError{Op: "recv", Err: err}
	}
	return data, err
}

// Buffer is an in-memory Transport. Sent bytes are appended and can be
// received back in order.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewBuffer returns a Buffer preloaded with data.
func NewBuffer(data []byte) *Buffer {
	b := &Buffer{}
	b.buf.Write(data)
	return b
}

func (b *Buffer) Send(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(data)
	return nil
}

func (b *Buffer) Recv(expected int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() == 0 {
		return nil, io.EOF
	}
	return b.buf.Next(expected), nil
}

// Bytes returns a copy of the unread bytes.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

type reader struct {
	r io.Reader
}

// NewReader exposes a read-only stream, such as a capture file, as a
// Transport. Send always fails.
func NewReader(r io.Reader) Transport {
	return &reader{r: r}
}

func (r *reader) Send([]byte) error {
	return &TransportError{Op: "send", Err: errors.New("read-only transport")}
}

func (r *reader) Recv(expected int) ([]byte, error) {
	buf := make([]byte, expected)
	n, err := io.ReadFull(r.r, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:n], nil
	default:
		return buf[:n], &TransportError{Op: "recv", Err: err}
	}
}

// Stream turns a Transport back into an io.Reader.
func Stream(t Transport) io.Reader {
	return &stream{t: t}
}

type stream struct {
	t Transport
}

func (s *stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data, err := s.t.Recv(len(p))
	n := copy(p, data)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	if errors.Is(err, io.EOF) && n > 0 {
		return n, nil
	}
	return n, err
}
