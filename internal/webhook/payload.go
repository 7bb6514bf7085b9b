// Package webhook consumes a progress.Source and POSTs each
// ExecutionUpdate to a configured URL as a self-describing JSON envelope,
// with bounded per-event retries. It is the one package that owns the
// wire schema described in spec.md §6.
package webhook

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/railyard/factotum/internal/progress"
	"github.com/railyard/factotum/internal/state"
)

const (
	jobUpdateSchema  = "iglu:com.snowplowanalytics.factotum/job_update/jsonschema/1-0-0"
	taskUpdateSchema = "iglu:com.snowplowanalytics.factotum/task_update/jsonschema/1-0-0"

	applicationName = "factotum"
)

// envelope is the outer {schema, data} wrapper placed around every
// webhook payload.
type envelope struct {
	Schema string      `json:"schema"`
	Data   interface{} `json:"data"`
}

type applicationContext struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type jobTransitionDTO struct {
	PreviousState string `json:"previousState,omitempty"`
	CurrentState  string `json:"currentState"`
}

type taskTransitionDTO struct {
	TaskName      string `json:"taskName"`
	PreviousState string `json:"previousState"`
	CurrentState  string `json:"currentState"`
}

type taskStateDTO struct {
	TaskName     string  `json:"taskName"`
	State        string  `json:"state"`
	Started      *string `json:"started,omitempty"`
	Duration     *string `json:"duration,omitempty"`
	Stdout       *string `json:"stdout,omitempty"`
	Stderr       *string `json:"stderr,omitempty"`
	ReturnCode   *int    `json:"returnCode,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
}

type jobUpdateData struct {
	JobName            string              `json:"jobName"`
	JobReference       string              `json:"jobReference"`
	RunReference       string              `json:"runReference"`
	Factfile           string              `json:"factfile"`
	ApplicationContext applicationContext  `json:"applicationContext"`
	RunState           string              `json:"runState"`
	StartTime          string              `json:"startTime"`
	RunDuration        string              `json:"runDuration"`
	Tags               map[string]string   `json:"tags"`
	TaskStates         []taskStateDTO      `json:"taskStates"`
	JobTransition      *jobTransitionDTO   `json:"jobTransition,omitempty"`
	TaskTransitions    []taskTransitionDTO `json:"taskTransitions,omitempty"`
}

// JobContext carries the identifying, mostly-constant information every
// payload built from the same execution shares.
type JobContext struct {
	JobName            string
	JobReference       string
	RunReference       string
	FactfileJSON       []byte
	ApplicationVersion string
	Tags               map[string]string
	StartTime          time.Time
}

// buildPayload renders one ExecutionUpdate into its envelope, choosing the
// job-update or task-update schema according to which Transition variant
// is present. trimChars bounds stdout/stderr tail-preserving truncation.
func buildPayload(ctx JobContext, update progress.ExecutionUpdate, trimChars int) envelope {
	data := jobUpdateData{
		JobName:      ctx.JobName,
		JobReference: ctx.JobReference,
		RunReference: ctx.RunReference,
		Factfile:     base64.StdEncoding.EncodeToString(ctx.FactfileJSON),
		ApplicationContext: applicationContext{
			Name:    applicationName,
			Version: ctx.ApplicationVersion,
		},
		RunState:    runState(update),
		StartTime:   formatTimestamp(ctx.StartTime),
		RunDuration: formatISODuration(time.Since(ctx.StartTime)),
		Tags:        ctx.Tags,
		TaskStates:  buildTaskStates(update.Snapshot, trimChars),
	}

	schema := jobUpdateSchema
	if update.Transition.Job != nil {
		jt := &jobTransitionDTO{CurrentState: update.Transition.Job.To.String()}
		if update.Transition.Job.From != nil {
			jt.PreviousState = update.Transition.Job.From.String()
		}
		data.JobTransition = jt
	} else {
		schema = taskUpdateSchema
		transitions := make([]taskTransitionDTO, 0, len(update.Transition.Tasks))
		for _, t := range update.Transition.Tasks {
			transitions = append(transitions, taskTransitionDTO{
				TaskName:      t.Name,
				PreviousState: taskRunState(t.FromState),
				CurrentState:  taskRunState(t.ToState),
			})
		}
		data.TaskTransitions = transitions
	}

	return envelope{Schema: schema, Data: data}
}

func runState(update progress.ExecutionUpdate) string {
	switch update.ExecutionState {
	case state.Started:
		return "WAITING"
	case state.Finished:
		for _, t := range update.Snapshot {
			if t.State.Kind == state.Failed {
				return "FAILED"
			}
		}
		return "SUCCEEDED"
	default:
		return "RUNNING"
	}
}

func taskRunState(s state.TaskState) string {
	switch s.Kind {
	case state.Waiting:
		return "WAITING"
	case state.Running:
		return "RUNNING"
	case state.Success:
		return "SUCCEEDED"
	case state.SuccessNoop:
		return "SUCCEEDED_NO_OP"
	case state.Failed:
		return "FAILED"
	case state.Skipped:
		return "SKIPPED"
	default:
		return "WAITING"
	}
}

func buildTaskStates(snapshot []progress.TaskSnapshot, trimChars int) []taskStateDTO {
	out := make([]taskStateDTO, 0, len(snapshot))
	for _, t := range snapshot {
		dto := taskStateDTO{TaskName: t.Name, State: taskRunState(t.State)}
		if t.RunStarted != nil {
			s := formatTimestamp(*t.RunStarted)
			dto.Started = &s
		}
		if t.HasResult {
			d := formatISODuration(t.Duration)
			dto.Duration = &d
			rc := t.ReturnCode
			dto.ReturnCode = &rc
			if t.Stdout != nil {
				s := tailTruncate(*t.Stdout, trimChars)
				dto.Stdout = &s
			}
			if t.Stderr != nil {
				s := tailTruncate(*t.Stderr, trimChars)
				dto.Stderr = &s
			}
		}
		switch t.State.Kind {
		case state.Failed, state.Skipped:
			msg := t.State.Reason
			dto.ErrorMessage = &msg
		}
		if t.TaskExecutionError != nil {
			dto.ErrorMessage = t.TaskExecutionError
		}
		out = append(out, dto)
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// formatISODuration renders d as an ISO 8601 duration of the form
// "PT<seconds>S", trimming a zero fractional part.
func formatISODuration(d time.Duration) string {
	seconds := d.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	s := fmt.Sprintf("%.3f", seconds)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return "PT" + s + "S"
}

// tailTruncate keeps only the last n characters of s, preserving error
// context near the end of long output.
func tailTruncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func marshalPayload(e envelope) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling webhook payload: %w", err)
	}
	return b, nil
}
