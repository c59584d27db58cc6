// internal/job/state.go
package job

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrJobFinished is returned when a job that already ran is printed again.
var ErrJobFinished = errors.New("job already finished")

// State is the lifecycle position of a job. Jobs only move forward.
type State int

const (
	StateStart State = iota
	StatePages
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StatePages:
		return "pages"
	case StateEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Progress is called after each page is transferred.
type Progress func(page, total int)

// Option customizes a job.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	progress Progress
	now      func() time.Time
	jobID    *uint32
}

// WithLogger sets the logger for page-level debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProgress registers a per-page callback.
func WithProgress(fn Progress) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithClock overrides the clock sent in the REMOTE1 time frame.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithJobID sets the id announced in the REMOTE1 job header.
func WithJobID(id uint32) Option {
	return func(o *options) {
		o.jobID = &id
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// lifecycle guards the START -> PAGES -> END progression shared by both job kinds.
type lifecycle struct {
	state State
}

func (l *lifecycle) begin() error {
	if l.state != StateStart {
		return ErrJobFinished
	}
	l.state = StatePages
	return nil
}

// finish moves to END. A failed job also ends: the printer state is unknown
// after a partial transfer, so the job cannot be resumed.
func (l *lifecycle) finish() {
	l.state = StateEnd
}
