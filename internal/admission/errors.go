// Package admission implements the AdmissionPipeline: validates incoming
// job submissions, deduplicates against the KV store, and hands accepted
// requests to the dispatcher.
package admission

import "fmt"

// ValidationError is an admission-time rejection of a malformed
// JobRequest. It is never retried and is reported to the HTTP client as a
// 400 with a human-readable message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// DuplicateJobError is returned when the KV store already holds a
// non-Done entry for the computed job fingerprint.
type DuplicateJobError struct{}

func (e *DuplicateJobError) Error() string { return "Job has already been run" }

// QueueFullError is returned when the dispatcher's queue is at capacity.
type QueueFullError struct{}

func (e *QueueFullError) Error() string { return "Queue is full" }

// DispatchError is returned when the server is in drain state.
type DispatchError struct{}

func (e *DispatchError) Error() string { return "Server is draining; not accepting new work" }

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
