package dag

import "testing"

func mustAdd(t *testing.T, g *TaskGraph, name string, deps ...string) {
	t.Helper()
	if err := g.AddTask(TaskSpec{
		Name:      name,
		DependsOn: deps,
		Command:   "true",
		OnResult:  OnResult{ContinueJob: []int{0}},
	}); err != nil {
		t.Fatalf("AddTask(%s): %v", name, err)
	}
}

func TestAddTaskRejectsSelfDependency(t *testing.T) {
	g := NewTaskGraph()
	err := g.AddTask(TaskSpec{Name: "a", DependsOn: []string{"a"}, OnResult: OnResult{ContinueJob: []int{0}}})
	if err == nil {
		t.Fatal("expected error for self-dependency")
	}
}

func TestAddTaskRejectsForwardReference(t *testing.T) {
	g := NewTaskGraph()
	err := g.AddTask(TaskSpec{Name: "a", DependsOn: []string{"b"}, OnResult: OnResult{ContinueJob: []int{0}}})
	if err == nil {
		t.Fatal("expected error for dependency on not-yet-added task")
	}
}

func TestAddTaskRejectsEmptyContinueJob(t *testing.T) {
	g := NewTaskGraph()
	err := g.AddTask(TaskSpec{Name: "a"})
	if err == nil {
		t.Fatal("expected error for empty ContinueJob")
	}
}

func TestAddTaskRejectsOverlappingOnResult(t *testing.T) {
	g := NewTaskGraph()
	err := g.AddTask(TaskSpec{
		Name:     "a",
		OnResult: OnResult{ContinueJob: []int{0}, TerminateJobWithSuccess: []int{0}},
	})
	if err == nil {
		t.Fatal("expected error for overlapping OnResult sets")
	}
}

func TestTasksInOrderLayersByDependency(t *testing.T) {
	g := NewTaskGraph()
	mustAdd(t, g, "apple")
	mustAdd(t, g, "turnip")
	mustAdd(t, g, "banana", "apple", "turnip")
	mustAdd(t, g, "carrot", "banana")

	layers, err := g.TasksInOrder()
	if err != nil {
		t.Fatalf("TasksInOrder: %v", err)
	}
	if len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(layers))
	}
	if len(layers[0]) != 2 || layers[0][0].Name != "apple" || layers[0][1].Name != "turnip" {
		t.Fatalf("unexpected first layer: %+v", layers[0])
	}
	if len(layers[1]) != 1 || layers[1][0].Name != "banana" {
		t.Fatalf("unexpected second layer: %+v", layers[1])
	}
	if len(layers[2]) != 1 || layers[2][0].Name != "carrot" {
		t.Fatalf("unexpected third layer: %+v", layers[2])
	}
}

func TestGetDescendants(t *testing.T) {
	g := NewTaskGraph()
	mustAdd(t, g, "a")
	mustAdd(t, g, "b", "a")
	mustAdd(t, g, "c", "a")
	mustAdd(t, g, "d", "b", "c")

	got := g.GetDescendants("a")
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("GetDescendants(a) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("GetDescendants(a) = %v, want %v", got, want)
		}
	}
}

func TestIsProperSubTree(t *testing.T) {
	g := NewTaskGraph()
	mustAdd(t, g, "a")
	mustAdd(t, g, "b")
	mustAdd(t, g, "c", "a", "b")
	mustAdd(t, g, "d", "c")

	if g.IsProperSubTree("a") {
		t.Fatal("starting from 'a' should not be a proper sub-tree: 'c' also depends on 'b'")
	}
	if !g.IsProperSubTree("c") {
		t.Fatal("starting from 'c' should be a proper sub-tree")
	}
}

func TestTasksInOrderFromRestrictsToDescendants(t *testing.T) {
	g := NewTaskGraph()
	mustAdd(t, g, "a")
	mustAdd(t, g, "b", "a")
	mustAdd(t, g, "c", "b")

	layers, err := g.TasksInOrderFrom("b")
	if err != nil {
		t.Fatalf("TasksInOrderFrom: %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers starting from b, got %d", len(layers))
	}
	if layers[0][0].Name != "b" || layers[1][0].Name != "c" {
		t.Fatalf("unexpected layers: %+v", layers)
	}
}
