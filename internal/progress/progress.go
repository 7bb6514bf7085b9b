// Package progress defines the ExecutionUpdate event stream the Executor
// emits and the WebhookSink consumes: a single-producer, single-consumer
// channel whose ordering guarantee is absolute, mirroring the progress
// channel pattern in orchestrator/cancellation.go's event notifications.
package progress

import (
	"time"

	"github.com/railyard/factotum/internal/state"
)

// TaskSnapshot is an immutable, independently-owned copy of one task's
// execution state at the moment an ExecutionUpdate was built. It mirrors
// executor.TaskInstance's fields without importing the executor package,
// so progress stays a leaf dependency of both executor and webhook.
type TaskSnapshot struct {
	Name               string
	State              state.TaskState
	RunStarted         *time.Time
	Duration           time.Duration
	ReturnCode         int
	HasResult          bool
	Stdout             *string
	Stderr             *string
	TaskExecutionError *string
}

// JobTransition describes a job-level state change. From is nil for the
// very first update (Started).
type JobTransition struct {
	From *state.ExecutionKind
	To   state.ExecutionKind
}

// TaskTransition describes one task's state change.
type TaskTransition struct {
	Name      string
	FromState state.TaskState
	ToState   state.TaskState
}

// Transition is either exactly one JobTransition or a non-empty list of
// TaskTransitions — never both, and a TaskTransitions list is never empty.
type Transition struct {
	Job   *JobTransition
	Tasks []TaskTransition
}

// ExecutionUpdate is one emitted progress event.
type ExecutionUpdate struct {
	ExecutionState state.ExecutionKind
	Snapshot       []TaskSnapshot
	Transition     Transition
}

// Stream is a single-producer, single-consumer ordered channel of
// ExecutionUpdate values. The zero value is not usable; use NewStream.
type Stream struct {
	ch chan ExecutionUpdate
}

// defaultBuffer is generous enough that the Executor essentially never
// blocks on a connected-but-slow consumer within one execution; the
// ordering guarantee holds regardless of buffer size.
const defaultBuffer = 256

// NewStream creates a connected stream. The returned Sink is for the
// Executor to emit on; the returned Source is for a consumer (WebhookSink,
// tests) to range over. Close must be called by the emitter exactly once,
// after the final Finished update.
func NewStream() (*Sink, *Source) {
	ch := make(chan ExecutionUpdate, defaultBuffer)
	return &Sink{ch: ch}, &Source{ch: ch}
}

// Sink is the producer half of a Stream.
type Sink struct {
	ch     chan ExecutionUpdate
	closed bool
}

// Emit sends an update. It is a no-op on a nil Sink, so callers can pass
// a nil sink to run an Executor with no progress consumer attached.
func (s *Sink) Emit(u ExecutionUpdate) {
	if s == nil {
		return
	}
	s.ch <- u
}

// Close signals that no more updates will be emitted.
func (s *Sink) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Source is the consumer half of a Stream.
type Source struct {
	ch chan ExecutionUpdate
}

// Next blocks until an update is available or the stream is closed, in
// which case ok is false.
func (src *Source) Next() (ExecutionUpdate, bool) {
	u, ok := <-src.ch
	return u, ok
}

// All ranges over every remaining update until the stream closes.
func (src *Source) All() <-chan ExecutionUpdate {
	return src.ch
}
