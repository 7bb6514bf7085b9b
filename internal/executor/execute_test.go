package executor_test

import (
	"strings"
	"testing"

	"github.com/railyard/factotum/internal/dag"
	"github.com/railyard/factotum/internal/executor"
	"github.com/railyard/factotum/internal/factfile"
	"github.com/railyard/factotum/internal/progress"
	"github.com/railyard/factotum/internal/state"
)

func buildDiamond(t *testing.T, appleContinue, turnipContinue []int) *factfile.Factfile {
	t.Helper()
	g := dag.NewTaskGraph()
	add := func(name string, continueJob []int, deps ...string) {
		t.Helper()
		if err := g.AddTask(dag.TaskSpec{
			Name:      name,
			DependsOn: deps,
			Command:   "true",
			OnResult:  dag.OnResult{ContinueJob: continueJob},
		}); err != nil {
			t.Fatalf("AddTask(%s): %v", name, err)
		}
	}
	add("apple", appleContinue)
	add("turnip", turnipContinue)
	add("orange", []int{0}, "apple")
	add("egg", []int{0}, "apple")
	add("potato", []int{0}, "apple", "egg")
	add("chicken", []int{0}, "potato", "orange")
	return &factfile.Factfile{Name: "diamond", Raw: []byte("{}"), Graph: g}
}

// runAll executes ff to completion against a connected stream and returns
// the TaskList plus the sequence of job-level transition labels observed.
func runAll(t *testing.T, ff *factfile.Factfile) (*executor.TaskList, []string) {
	t.Helper()
	sink, source := progress.NewStream()
	tl, err := executor.Execute(ff, "", executor.SimulationStrategy{}, sink)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var labels []string
	for u := range source.All() {
		if u.Transition.Job != nil {
			labels = append(labels, "job:"+u.Transition.Job.To.String())
		}
	}
	return tl, labels
}

func TestExecuteScenarioA_AllSucceed(t *testing.T) {
	ff := buildDiamond(t, []int{0}, []int{0})
	tl, labels := runAll(t, ff)

	for _, group := range tl.Groups {
		for _, inst := range group {
			if inst.State.Kind != state.Success {
				t.Fatalf("task %s ended in %s, want Success", inst.Name, inst.State.Kind)
			}
		}
	}

	started, runningJob, finished := 0, 0, 0
	for _, l := range labels {
		switch l {
		case "job:Started":
			started++
		case "job:Running":
			runningJob++
		case "job:Finished":
			finished++
		}
	}
	if started != 1 || runningJob != 1 || finished != 1 {
		t.Fatalf("job transition counts = (%d,%d,%d), want (1,1,1)", started, runningJob, finished)
	}
}

func TestExecuteScenarioB_AppleFailsSkipsDescendants(t *testing.T) {
	ff := buildDiamond(t, []int{1}, []int{0})
	tl, _ := runAll(t, ff)

	apple, _ := tl.Instance("apple")
	if apple.State.Kind != state.Failed {
		t.Fatalf("apple state = %s, want Failed", apple.State.Kind)
	}
	turnip, _ := tl.Instance("turnip")
	if turnip.State.Kind != state.Success {
		t.Fatalf("turnip state = %s, want Success", turnip.State.Kind)
	}
	for _, name := range []string{"orange", "egg", "potato", "chicken"} {
		inst, _ := tl.Instance(name)
		if inst.State.Kind != state.Skipped {
			t.Fatalf("%s state = %s, want Skipped", name, inst.State.Kind)
		}
		if !strings.Contains(inst.State.Reason, "apple") {
			t.Fatalf("%s skip reason %q does not name apple", name, inst.State.Reason)
		}
	}
}

func TestExecuteScenarioC_EarlyTerminationSkipsDescendants(t *testing.T) {
	g := dag.NewTaskGraph()
	mustAddSimple(t, g, "a", []int{1}, []int{0})
	mustAddSimple(t, g, "b", []int{0}, nil, "a")
	mustAddSimple(t, g, "c", []int{0}, nil, "b")
	ff := &factfile.Factfile{Name: "chain", Raw: []byte("{}"), Graph: g}

	tl, _ := runAll(t, ff)

	a, _ := tl.Instance("a")
	if a.State.Kind != state.SuccessNoop {
		t.Fatalf("a state = %s, want SuccessNoop", a.State.Kind)
	}
	b, _ := tl.Instance("b")
	if b.State.Kind != state.Skipped || !strings.Contains(b.State.Reason, "early termination") {
		t.Fatalf("b state = %+v, want Skipped with early-termination reason", b.State)
	}
	c, _ := tl.Instance("c")
	if c.State.Kind != state.Skipped {
		t.Fatalf("c state = %+v, want Skipped", c.State)
	}
}

func mustAddSimple(t *testing.T, g *dag.TaskGraph, name string, continueJob, terminate []int, deps ...string) {
	t.Helper()
	if err := g.AddTask(dag.TaskSpec{
		Name:      name,
		DependsOn: deps,
		Command:   "true",
		OnResult:  dag.OnResult{ContinueJob: continueJob, TerminateJobWithSuccess: terminate},
	}); err != nil {
		t.Fatalf("AddTask(%s): %v", name, err)
	}
}
