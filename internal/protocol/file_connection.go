// internal/protocol/file_connection.go
package protocol

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"escpr-service/internal/model"
)

// zstdMagic starts every zstd frame
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ErrWriteOnly is returned when reading from a capture file connection
var ErrWriteOnly = errors.New("capture file connection is write-only")

// FileConnection captures the print stream to a file, optionally zstd
// compressed. Captures can be decoded later through OpenCapture.
type FileConnection struct {
	config  *FileConfig
	file    *os.File
	encoder *zstd.Encoder
	out     io.Writer
	logger  *zap.Logger
	mutex   sync.RWMutex
	isOpen  bool
	stats   statsRecorder
}

// NewFileConnection creates a new capture file connection
func NewFileConnection(config *FileConfig, logger *zap.Logger) *FileConnection {
	return &FileConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "file"),
			zap.String("path", config.Path),
		),
	}
}

// Open creates or truncates the capture file
func (fc *FileConnection) Open(ctx context.Context) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if fc.isOpen {
		return nil
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if fc.config.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	file, err := os.OpenFile(fc.config.Path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}

	fc.file = file
	fc.out = file
	if fc.config.Compress {
		encoder, err := zstd.NewWriter(file, zstd.WithEncoderConcurrency(1))
		if err != nil {
			file.Close()
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		fc.encoder = encoder
		fc.out = encoder
	}

	fc.isOpen = true
	fc.stats.connected(true)

	fc.logger.Info("Capture file opened", zap.Bool("compress", fc.config.Compress))
	return nil
}

// Close flushes the compressor, if any, and closes the file
func (fc *FileConnection) Close() error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if !fc.isOpen {
		return nil
	}

	var errs []error
	if fc.encoder != nil {
		if err := fc.encoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush zstd stream: %w", err))
		}
		fc.encoder = nil
	}
	if err := fc.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close capture file: %w", err))
	}

	fc.file = nil
	fc.out = nil
	fc.isOpen = false
	fc.stats.connected(false)

	if err := errors.Join(errs...); err != nil {
		fc.logger.Error("Failed to close capture file", zap.Error(err))
		return err
	}

	fc.logger.Info("Capture file closed")
	return nil
}

// IsOpen returns whether the connection is open
func (fc *FileConnection) IsOpen() bool {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()
	return fc.isOpen
}

// Write appends data to the capture
func (fc *FileConnection) Write(ctx context.Context, data []byte) error {
	// Exclusive: the zstd encoder is not safe for concurrent writes
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if !fc.isOpen {
		return fmt.Errorf("capture file not open")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	startTime := time.Now()
	n, err := fc.out.Write(data)
	if err != nil {
		fc.stats.failed()
		fc.logger.Error("Capture write failed", zap.Error(err))
		return fmt.Errorf("failed to write capture: %w", err)
	}

	fc.stats.wrote(n, time.Since(startTime))
	return nil
}

// Read always fails: a capture file has no printer on the other end
func (fc *FileConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	return nil, ErrWriteOnly
}

// GetProtocolType returns the protocol type
func (fc *FileConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeFile
}

// Stats returns a snapshot of the connection counters
func (fc *FileConnection) Stats() ProtocolStats {
	return fc.stats.snapshot()
}

// OpenCapture opens a capture file for decoding. zstd captures are detected
// by their frame magic and decompressed transparently.
func OpenCapture(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}

	rc, err := NewCaptureReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &captureFile{ReadCloser: rc, file: file}, nil
}

// NewCaptureReader wraps r so that zstd compressed streams are decompressed.
// Closing the result does not close r.
func NewCaptureReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	if !bytes.Equal(head, zstdMagic) {
		return io.NopCloser(br), nil
	}

	decoder, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return decoder.IOReadCloser(), nil
}

type captureFile struct {
	io.ReadCloser
	file *os.File
}

func (c *captureFile) Close() error {
	c.ReadCloser.Close()
	return c.file.Close()
}
