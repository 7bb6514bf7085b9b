// Package dag implements the in-memory task graph: named tasks, dependency
// edges, topological layering, descendant lookup, and the sub-tree validity
// check used to reject an unsafe `--start=`.
//
// The graph is built incrementally (addTask) rather than all at once, the
// way orchestrator/dag_engine.go's buildDAG builds a dagNode map from a
// flat task list — but addTask additionally refuses to wire an edge to a
// dependency that doesn't exist yet, which is what makes the graph
// acyclic by construction: a cycle would require two tasks that each
// depend on the other, and one of them must be added first.
package dag

import (
	"fmt"
	"sort"
)

// OnResult partitions a task's possible return codes into two disjoint
// sets: codes that mean "continue the job as normal" and codes that mean
// "stop scheduling new work, but the job succeeded".
type OnResult struct {
	ContinueJob             []int
	TerminateJobWithSuccess []int
}

// TaskSpec is immutable once added to a TaskGraph.
type TaskSpec struct {
	Name      string
	DependsOn []string
	Executor  string
	Command   string
	Arguments []string
	OnResult  OnResult
}

// ShellCommand renders the command the OS execution strategy should run:
// the command string followed by each argument individually double-quoted
// and space-joined, per spec.md §4.3.
func (t *TaskSpec) ShellCommand() string {
	cmd := t.Command
	for _, arg := range t.Arguments {
		cmd += fmt.Sprintf(" %q", arg)
	}
	return cmd
}

func (o OnResult) validate(taskName string) error {
	if len(o.ContinueJob) == 0 {
		return &ParseError{Msg: fmt.Sprintf("the task '%s' has no way to continue successfully.", taskName)}
	}
	seen := make(map[int]bool, len(o.ContinueJob))
	for _, c := range o.ContinueJob {
		seen[c] = true
	}
	for _, c := range o.TerminateJobWithSuccess {
		if seen[c] {
			return &ParseError{Msg: fmt.Sprintf("the task '%s' has conflicting actions.", taskName)}
		}
	}
	return nil
}

// ParseError reports a malformed or semantically invalid factfile/task
// definition. It is fatal to the request that produced it and is never
// retried — see spec.md §7.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

type taskNode struct {
	spec     *TaskSpec
	children []string
}

// TaskGraph is a named-task DAG: a node per task, plus an implicit root
// with edges to every dependency-free task.
type TaskGraph struct {
	nodes map[string]*taskNode
	// order preserves insertion order for deterministic iteration in tests
	// and diagnostics; it carries no scheduling meaning (spec.md §4.1:
	// order within a layer is unspecified).
	order []string
}

// NewTaskGraph returns an empty graph.
func NewTaskGraph() *TaskGraph {
	return &TaskGraph{nodes: make(map[string]*taskNode)}
}

// AddTask wires spec into the graph. It fails if the name is already
// taken, if spec depends on itself, or if any listed dependency has not
// already been added.
func (g *TaskGraph) AddTask(spec TaskSpec) error {
	if _, exists := g.nodes[spec.Name]; exists {
		return &ParseError{Msg: fmt.Sprintf("duplicate task name '%s'", spec.Name)}
	}
	for _, dep := range spec.DependsOn {
		if dep == spec.Name {
			return &ParseError{Msg: fmt.Sprintf("the task '%s' depends on itself", spec.Name)}
		}
		if _, exists := g.nodes[dep]; !exists {
			return &ParseError{Msg: fmt.Sprintf("the task '%s' depends on non-existent task '%s'", spec.Name, dep)}
		}
	}
	if err := spec.OnResult.validate(spec.Name); err != nil {
		return err
	}

	specCopy := spec
	g.nodes[spec.Name] = &taskNode{spec: &specCopy}
	g.order = append(g.order, spec.Name)
	for _, dep := range spec.DependsOn {
		g.nodes[dep].children = append(g.nodes[dep].children, spec.Name)
	}
	return nil
}

// Has reports whether name has been added.
func (g *TaskGraph) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Task returns the spec for name.
func (g *TaskGraph) Task(name string) (*TaskSpec, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, false
	}
	return n.spec, true
}

// ChildrenMap returns the parent-name to children-names adjacency for
// every task in the graph, for callers (executor.TaskList) that need to
// walk descendants without holding a reference to the graph itself.
func (g *TaskGraph) ChildrenMap() map[string][]string {
	out := make(map[string][]string, len(g.nodes))
	for name, n := range g.nodes {
		children := make([]string, len(n.children))
		copy(children, n.children)
		out[name] = children
	}
	return out
}

// Names returns every task name in insertion order.
func (g *TaskGraph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// GetDescendants returns the deduplicated, sorted list of every transitive
// child of name.
func (g *TaskGraph) GetDescendants(name string) []string {
	seen := make(map[string]bool)
	g.collectDescendants(name, seen)
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (g *TaskGraph) collectDescendants(name string, seen map[string]bool) {
	n, ok := g.nodes[name]
	if !ok {
		return
	}
	for _, child := range n.children {
		if !seen[child] {
			seen[child] = true
			g.collectDescendants(child, seen)
		}
	}
}

// IsProperSubTree reports whether every transitive descendant of name has
// all of its own dependencies reachable from name too — i.e. starting
// execution at name would not skip over an un-satisfied upstream
// dependency of something downstream.
func (g *TaskGraph) IsProperSubTree(name string) bool {
	if !g.Has(name) {
		return false
	}
	descendants := g.GetDescendants(name)
	scope := make(map[string]bool, len(descendants)+1)
	scope[name] = true
	for _, d := range descendants {
		scope[d] = true
	}
	for _, d := range descendants {
		spec, _ := g.Task(d)
		for _, dep := range spec.DependsOn {
			if !scope[dep] {
				return false
			}
		}
	}
	return true
}

// TasksInOrder returns the full graph as a layered topological ordering:
// tasks-in-topological-groups. Each group contains only tasks whose
// dependencies are all satisfied by strictly earlier groups.
func (g *TaskGraph) TasksInOrder() ([][]*TaskSpec, error) {
	return g.tasksInOrderWithin(g.allNames())
}

// TasksInOrderFrom returns tasks-in-topological-groups-starting-from(name):
// the layered ordering restricted to name and its transitive descendants.
// Callers should check IsProperSubTree(name) first; TasksInOrderFrom does
// not itself reject an improper start, it simply ignores dependency edges
// that point outside the restricted scope.
func (g *TaskGraph) TasksInOrderFrom(name string) ([][]*TaskSpec, error) {
	if !g.Has(name) {
		return nil, fmt.Errorf("unknown start task '%s'", name)
	}
	scope := map[string]bool{name: true}
	for _, d := range g.GetDescendants(name) {
		scope[d] = true
	}
	return g.tasksInOrderWithin(scope)
}

func (g *TaskGraph) allNames() map[string]bool {
	scope := make(map[string]bool, len(g.order))
	for _, name := range g.order {
		scope[name] = true
	}
	return scope
}

// tasksInOrderWithin performs Kahn's algorithm restricted to scope: a task
// becomes ready only once every in-scope dependency has already been
// placed, so it is placed as late as any of its ancestors demands.
func (g *TaskGraph) tasksInOrderWithin(scope map[string]bool) ([][]*TaskSpec, error) {
	indegree := make(map[string]int, len(scope))
	for name := range scope {
		spec, _ := g.Task(name)
		count := 0
		for _, dep := range spec.DependsOn {
			if scope[dep] {
				count++
			}
		}
		indegree[name] = count
	}

	remaining := len(scope)
	var layers [][]*TaskSpec
	for remaining > 0 {
		var layerNames []string
		for name, deg := range indegree {
			if deg == 0 {
				layerNames = append(layerNames, name)
			}
		}
		if len(layerNames) == 0 {
			return nil, fmt.Errorf("cycle or unresolved dependency detected among remaining tasks")
		}
		sort.Strings(layerNames)

		layer := make([]*TaskSpec, 0, len(layerNames))
		for _, name := range layerNames {
			spec, _ := g.Task(name)
			layer = append(layer, spec)
			delete(indegree, name)
			remaining--
			for _, child := range g.nodes[name].children {
				if _, inScope := indegree[child]; inScope {
					indegree[child]--
				}
			}
		}
		layers = append(layers, layer)
	}
	return layers, nil
}
