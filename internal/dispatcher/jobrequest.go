// Package dispatcher owns the bounded FIFO job queue and fixed-size
// worker pool: a single coordinator goroutine mutates all queue state, so
// there is no lock on the queue itself — every other goroutine talks to
// it through a command channel, the same pattern orchestrator/
// cancellation.go uses for its active-execution registry.
package dispatcher

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobRequest is what the admission pipeline enqueues and a worker later
// runs.
type JobRequest struct {
	JobID        string    `json:"jobId"`
	JobName      string    `json:"jobName"`
	FactfilePath string    `json:"factfilePath"`
	FactfileArgs []string  `json:"factfileArgs"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
}

// EntryState discriminates a JobEntry's lifecycle stage.
type EntryState int

const (
	Queued EntryState = iota
	Working
	Done
)

func (s EntryState) String() string {
	switch s {
	case Queued:
		return "Queued"
	case Working:
		return "Working"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

func (s EntryState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *EntryState) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return err
	}
	switch text {
	case "Queued":
		*s = Queued
	case "Working":
		*s = Working
	case "Done":
		*s = Done
	default:
		return fmt.Errorf("unknown job entry state %q", text)
	}
	return nil
}

// JobEntry is what gets persisted to the KV store at
// "{namespace}/{jobId}", tracking a job's lifecycle independent of
// whether the process restarts mid-run.
type JobEntry struct {
	State       EntryState `json:"state"`
	Request     JobRequest `json:"jobRequest"`
	LastRunFrom string     `json:"lastRunFrom"`
}

func marshalEntry(e JobEntry) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEntry decodes a JobEntry previously written by persist. Used by
// the admission pipeline to check an existing entry's state.
func UnmarshalEntry(raw string) (JobEntry, error) {
	var e JobEntry
	err := json.Unmarshal([]byte(raw), &e)
	return e, err
}
