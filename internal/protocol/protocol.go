// internal/protocol/protocol.go
package protocol

import (
	"context"
	"sync"
	"time"

	"escpr-service/internal/model"
	"escpr-service/internal/transport"
)

// DeviceProtocol represents a link to a printer. Its Write and Read satisfy
// transport.Connection, so an open protocol can be bound as a job transport.
type DeviceProtocol interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication
	transport.Connection

	// Protocol information
	GetProtocolType() model.ConnectionType
	Stats() ProtocolStats
}

// ProtocolStats provides protocol-level statistics
type ProtocolStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}

// statsRecorder keeps ProtocolStats for one connection. Reads may run in a
// goroutine outside the connection mutex, so it has its own lock.
type statsRecorder struct {
	mu    sync.Mutex
	stats ProtocolStats
}

func (r *statsRecorder) connected(open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.IsConnected = open
	if open {
		r.stats.LastActivity = time.Now()
	}
}

func (r *statsRecorder) wrote(n int, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.BytesWritten += int64(n)
	r.stats.OperationCount++
	r.stats.LastActivity = time.Now()
	if r.stats.AverageLatency == 0 {
		r.stats.AverageLatency = latency
	} else {
		r.stats.AverageLatency = (r.stats.AverageLatency + latency) / 2
	}
}

func (r *statsRecorder) read(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.BytesRead += int64(n)
	r.stats.OperationCount++
	r.stats.LastActivity = time.Now()
}

func (r *statsRecorder) failed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.ErrorCount++
}

func (r *statsRecorder) snapshot() ProtocolStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// readResult carries the outcome of a blocking read started in a goroutine.
type readResult struct {
	data []byte
	err  error
}

// readAsync runs read in a goroutine and returns when it finishes or ctx is done.
func readAsync(ctx context.Context, maxBytes int, read func([]byte) (int, error)) ([]byte, error) {
	done := make(chan readResult, 1)
	go func() {
		buffer := make([]byte, maxBytes)
		n, err := read(buffer)
		done <- readResult{data: buffer[:n], err: err}
	}()

	select {
	case result := <-done:
		return result.data, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
