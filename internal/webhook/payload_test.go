package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/railyard/factotum/internal/progress"
	"github.com/railyard/factotum/internal/state"
)

func TestBuildPayloadJobTransitionUsesJobSchema(t *testing.T) {
	ctx := JobContext{
		JobName:            "nightly-etl",
		JobReference:       "ref-1",
		RunReference:       "run-1",
		FactfileJSON:       []byte(`{"schema":"x","data":{}}`),
		ApplicationVersion: "1.2.3",
		Tags:               map[string]string{"env": "prod"},
		StartTime:          time.Now().Add(-5 * time.Second),
	}
	from := state.Started
	update := progress.ExecutionUpdate{
		ExecutionState: state.RunningJob,
		Transition: progress.Transition{
			Job: &progress.JobTransition{From: &from, To: state.RunningJob},
		},
	}

	env := buildPayload(ctx, update, defaultTrimLen)
	if env.Schema != jobUpdateSchema {
		t.Fatalf("schema = %q, want job update schema", env.Schema)
	}
	data, ok := env.Data.(jobUpdateData)
	if !ok {
		t.Fatalf("data is %T, want jobUpdateData", env.Data)
	}
	if data.JobTransition == nil || data.JobTransition.CurrentState != "Running" {
		t.Fatalf("job transition = %+v", data.JobTransition)
	}
	if data.JobTransition.PreviousState != "Started" {
		t.Fatalf("previous state = %q, want Started", data.JobTransition.PreviousState)
	}
	if data.TaskTransitions != nil {
		t.Fatalf("task transitions should be absent on a job-update payload")
	}
}

func TestBuildPayloadTaskTransitionUsesTaskSchema(t *testing.T) {
	ctx := JobContext{JobName: "j", StartTime: time.Now()}
	update := progress.ExecutionUpdate{
		ExecutionState: state.RunningJob,
		Transition: progress.Transition{
			Tasks: []progress.TaskTransition{
				{Name: "apple", FromState: state.WaitingState(), ToState: state.RunningState()},
			},
		},
	}

	env := buildPayload(ctx, update, defaultTrimLen)
	if env.Schema != taskUpdateSchema {
		t.Fatalf("schema = %q, want task update schema", env.Schema)
	}
	data := env.Data.(jobUpdateData)
	if data.JobTransition != nil {
		t.Fatalf("job transition should be absent on a task-update payload")
	}
	if len(data.TaskTransitions) != 1 || data.TaskTransitions[0].TaskName != "apple" {
		t.Fatalf("task transitions = %+v", data.TaskTransitions)
	}
}

func TestBuildPayloadMarshalsCleanlyWithoutOptionalFields(t *testing.T) {
	ctx := JobContext{JobName: "j", StartTime: time.Now()}
	update := progress.ExecutionUpdate{
		ExecutionState: state.Started,
		Transition:     progress.Transition{Job: &progress.JobTransition{To: state.Started}},
	}
	env := buildPayload(ctx, update, defaultTrimLen)
	b, err := marshalPayload(env)
	if err != nil {
		t.Fatalf("marshalPayload: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	inner := decoded["data"].(map[string]interface{})
	if _, present := inner["taskTransitions"]; present {
		t.Fatalf("taskTransitions should be omitted entirely, not null")
	}
	jt := inner["jobTransition"].(map[string]interface{})
	if _, present := jt["previousState"]; present {
		t.Fatalf("previousState should be omitted when there is no prior state")
	}
}

func TestTailTruncateKeepsSuffix(t *testing.T) {
	s := "0123456789"
	if got := tailTruncate(s, 4); got != "6789" {
		t.Fatalf("tailTruncate = %q, want 6789", got)
	}
	if got := tailTruncate(s, 100); got != s {
		t.Fatalf("tailTruncate should be a no-op under the limit, got %q", got)
	}
}

func TestFormatISODurationTrimsTrailingZeros(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "PT0S",
		5 * time.Second:         "PT5S",
		1500 * time.Millisecond: "PT1.5S",
		10 * time.Second:        "PT10S",
	}
	for d, want := range cases {
		if got := formatISODuration(d); got != want {
			t.Fatalf("formatISODuration(%v) = %q, want %q", d, got, want)
		}
	}
}
