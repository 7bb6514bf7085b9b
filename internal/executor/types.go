// Package executor drives one factfile's TaskGraph through its task
// state machine: group-parallel launch, skip propagation on failure or
// early termination, and streamed progress events. It is the one package
// that knows nothing about HTTP, the dispatcher, or persistence — it
// takes a factfile and a strategy and returns a TaskList.
package executor

import (
	"time"

	"github.com/railyard/factotum/internal/dag"
	"github.com/railyard/factotum/internal/progress"
	"github.com/railyard/factotum/internal/state"
)

// RunResult is what an ExecutionStrategy reports back for one task.
type RunResult struct {
	Duration           time.Duration
	ReturnCode         int
	Stdout             *string
	Stderr             *string
	TaskExecutionError *string
}

// TaskInstance is the mutable, per-execution counterpart to a TaskSpec.
type TaskInstance struct {
	Name       string
	Spec       *dag.TaskSpec
	State      state.TaskState
	RunStarted *time.Time
	Result     *RunResult
}

// snapshot returns an immutable copy safe to hand to a progress consumer
// that may read it long after the executor has moved on.
func (t *TaskInstance) snapshot() progress.TaskSnapshot {
	snap := progress.TaskSnapshot{
		Name:       t.Name,
		State:      t.State,
		RunStarted: t.RunStarted,
	}
	if t.Result != nil {
		snap.HasResult = true
		snap.Duration = t.Result.Duration
		snap.ReturnCode = t.Result.ReturnCode
		snap.Stdout = t.Result.Stdout
		snap.Stderr = t.Result.Stderr
		snap.TaskExecutionError = t.Result.TaskExecutionError
	}
	return snap
}

// TaskList is the per-execution materialization of a Factfile's TaskGraph:
// ordered groups of TaskInstances, plus the parent→children adjacency
// carried over from the graph for skip-propagation lookups.
type TaskList struct {
	Groups   [][]*TaskInstance
	Children map[string][]string

	byName map[string]*TaskInstance
}

// NewTaskList materializes layers (as produced by dag.TaskGraph.TasksInOrder
// or TasksInOrderFrom) into waiting TaskInstances.
func NewTaskList(layers [][]*dag.TaskSpec, children map[string][]string) *TaskList {
	tl := &TaskList{
		Children: children,
		byName:   make(map[string]*TaskInstance),
	}
	for _, layer := range layers {
		group := make([]*TaskInstance, 0, len(layer))
		for _, spec := range layer {
			inst := &TaskInstance{Name: spec.Name, Spec: spec, State: state.WaitingState()}
			group = append(group, inst)
			tl.byName[spec.Name] = inst
		}
		tl.Groups = append(tl.Groups, group)
	}
	return tl
}

// Instance looks up a task by name.
func (tl *TaskList) Instance(name string) (*TaskInstance, bool) {
	inst, ok := tl.byName[name]
	return inst, ok
}

// Snapshot returns an immutable, independently-owned copy of every
// TaskInstance, suitable for attaching to an ExecutionUpdate.
func (tl *TaskList) Snapshot() []progress.TaskSnapshot {
	out := make([]progress.TaskSnapshot, 0, len(tl.byName))
	for _, group := range tl.Groups {
		for _, inst := range group {
			out = append(out, inst.snapshot())
		}
	}
	return out
}

// descendants returns the transitive children of name using the
// adjacency map carried on the list.
func (tl *TaskList) descendants(name string) []string {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(n string) {
		for _, child := range tl.Children[n] {
			if !seen[child] {
				seen[child] = true
				walk(child)
			}
		}
	}
	walk(name)
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	return out
}
