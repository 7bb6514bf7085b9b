// Package state defines the tagged state variants driving a TaskInstance
// and an execution as a whole. These are deliberately not bare strings:
// Skipped and Failed carry a reason. The zero value of Kind is Waiting, so
// an uninitialized TaskState reads as a task not yet scheduled.
package state

// Kind discriminates a TaskState's variant.
type Kind int

const (
	// Waiting is the zero value on purpose: an uninitialized TaskState is
	// indistinguishable from one that has never been scheduled.
	Waiting Kind = iota
	Running
	Success
	SuccessNoop
	Failed
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Waiting:
		return "Waiting"
	case Running:
		return "Running"
	case Success:
		return "Success"
	case SuccessNoop:
		return "SuccessNoop"
	case Failed:
		return "Failed"
	case Skipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// TaskState is the state of one TaskInstance. Reason is populated only for
// Failed and Skipped, and is empty (not meaningful) otherwise.
type TaskState struct {
	Kind   Kind
	Reason string
}

func WaitingState() TaskState      { return TaskState{Kind: Waiting} }
func RunningState() TaskState      { return TaskState{Kind: Running} }
func SuccessState() TaskState      { return TaskState{Kind: Success} }
func SuccessNoopState() TaskState  { return TaskState{Kind: SuccessNoop} }
func FailedState(reason string) TaskState  { return TaskState{Kind: Failed, Reason: reason} }
func SkippedState(reason string) TaskState { return TaskState{Kind: Skipped, Reason: reason} }

// IsTerminal reports whether no further transition is possible from this state.
func (s TaskState) IsTerminal() bool {
	switch s.Kind {
	case Success, SuccessNoop, Failed, Skipped:
		return true
	default:
		return false
	}
}

// ExecutionKind discriminates the job-level ExecutionState.
type ExecutionKind int

const (
	Started ExecutionKind = iota
	RunningJob
	Finished
)

func (k ExecutionKind) String() string {
	switch k {
	case Started:
		return "Started"
	case RunningJob:
		return "Running"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}
