package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/railyard/factotum/internal/dag"
	"github.com/railyard/factotum/internal/factfile"
	"github.com/railyard/factotum/internal/progress"
	"github.com/railyard/factotum/internal/state"
)

// taskResult pairs a completed task's index within its group with the
// RunResult its strategy invocation produced — the same rendezvous shape
// as orchestrator/dag_engine.go's taskExecResult, scoped to one group
// instead of the whole graph.
type taskResult struct {
	index  int
	result RunResult
}

// Execute runs factfile's TaskGraph to completion. startOpt, when
// non-empty, restricts the run to the named task and its descendants —
// callers must have already checked factfile.IsProperSubTree(startOpt).
// sink may be nil, in which case no progress events are emitted.
func Execute(ff *factfile.Factfile, startOpt string, strategy Strategy, sink *progress.Sink) (*TaskList, error) {
	var layers [][]*dag.TaskSpec
	var err error
	if startOpt == "" {
		layers, err = ff.TasksInOrder()
	} else {
		layers, err = ff.TasksInOrderFrom(startOpt)
	}
	if err != nil {
		return nil, err
	}

	tl := NewTaskList(layers, ff.Graph.ChildrenMap())

	emitJob := func(from *state.ExecutionKind, to state.ExecutionKind) {
		var fromPtr *state.ExecutionKind
		if from != nil {
			f := *from
			fromPtr = &f
		}
		sink.Emit(progress.ExecutionUpdate{
			ExecutionState: to,
			Snapshot:       tl.Snapshot(),
			Transition:     progress.Transition{Job: &progress.JobTransition{From: fromPtr, To: to}},
		})
	}

	started := state.Started
	emitJob(nil, state.Started)

	firstGroupEmitted := false

	for _, group := range tl.Groups {
		var launched []int
		var waitingToRunning []progress.TaskTransition

		for i, inst := range group {
			if inst.State.Kind != state.Waiting {
				continue
			}
			inst.State = state.RunningState()
			now := time.Now()
			inst.RunStarted = &now
			launched = append(launched, i)
			waitingToRunning = append(waitingToRunning, progress.TaskTransition{
				Name:      inst.Name,
				FromState: state.WaitingState(),
				ToState:   state.RunningState(),
			})
		}

		if !firstGroupEmitted {
			emitJob(&started, state.RunningJob)
			firstGroupEmitted = true
		}

		if len(launched) > 0 {
			sink.Emit(progress.ExecutionUpdate{
				ExecutionState: state.RunningJob,
				Snapshot:       tl.Snapshot(),
				Transition:     progress.Transition{Tasks: waitingToRunning},
			})
		}

		results := make(chan taskResult, len(launched))
		for _, idx := range launched {
			inst := group[idx]
			if strategy.RequiresShellExecutor() && inst.Spec.Executor != "shell" {
				msg := "Only shell executions are supported currently"
				go func(idx int, msg string) {
					results <- taskResult{index: idx, result: RunResult{ReturnCode: -1, TaskExecutionError: &msg}}
				}(idx, msg)
				continue
			}
			go func(idx int, name, command string) {
				results <- taskResult{index: idx, result: strategy.Run(name, command)}
			}(idx, inst.Name, inst.Spec.ShellCommand())
		}

		for range launched {
			res := <-results
			inst := group[res.index]
			fromState := inst.State
			inst.Result = &res.result

			var toState state.TaskState
			var skipReason string
			switch {
			case res.result.TaskExecutionError != nil:
				toState = state.FailedState(*res.result.TaskExecutionError)
				skipReason = fmt.Sprintf("the task '%s' failed", inst.Name)
			case containsCode(inst.Spec.OnResult.TerminateJobWithSuccess, res.result.ReturnCode):
				toState = state.SuccessNoopState()
				skipReason = fmt.Sprintf("the task '%s' requested early termination", inst.Name)
			case containsCode(inst.Spec.OnResult.ContinueJob, res.result.ReturnCode):
				toState = state.SuccessState()
			default:
				reason := fmt.Sprintf(
					"the task '%s' returned code %d, expected one of %v to continue or %v to terminate successfully",
					inst.Name, res.result.ReturnCode, inst.Spec.OnResult.ContinueJob, inst.Spec.OnResult.TerminateJobWithSuccess,
				)
				toState = state.FailedState(reason)
				skipReason = fmt.Sprintf("the task '%s' failed", inst.Name)
			}
			inst.State = toState

			transitions := []progress.TaskTransition{{Name: inst.Name, FromState: fromState, ToState: toState}}
			if skipReason != "" {
				transitions = append(transitions, tl.propagateSkip(inst.Name, skipReason)...)
			}

			sink.Emit(progress.ExecutionUpdate{
				ExecutionState: state.RunningJob,
				Snapshot:       tl.Snapshot(),
				Transition:     progress.Transition{Tasks: transitions},
			})
		}
	}

	running := state.RunningJob
	emitJob(&running, state.Finished)
	sink.Close()

	return tl, nil
}

func containsCode(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// propagateSkip marks every Waiting descendant of triggerName as Skipped,
// and appends a chained reason to any descendant already Skipped by an
// earlier cause in this same execution. It returns the TaskTransitions
// for every instance it actually changed.
func (tl *TaskList) propagateSkip(triggerName, reasonSuffix string) []progress.TaskTransition {
	var out []progress.TaskTransition
	for _, name := range tl.descendants(triggerName) {
		inst, ok := tl.Instance(name)
		if !ok {
			continue
		}
		switch inst.State.Kind {
		case state.Waiting:
			from := inst.State
			inst.State = state.SkippedState(reasonSuffix)
			out = append(out, progress.TaskTransition{Name: name, FromState: from, ToState: inst.State})
		case state.Skipped:
			from := inst.State
			inst.State = state.SkippedState(strings.Join([]string{inst.State.Reason, reasonSuffix}, ", "))
			out = append(out, progress.TaskTransition{Name: name, FromState: from, ToState: inst.State})
		}
	}
	return out
}
