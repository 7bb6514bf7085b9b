// Package factfile decodes the self-describing factfile JSON envelope into
// a dag.TaskGraph. Schema validation and `{{mustache}}` placeholder
// substitution are out of scope here (spec.md §1) — a schema-checking,
// template-resolving parser is expected to sit in front of this package
// and hand it already-resolved JSON.
package factfile

import (
	"encoding/json"
	"fmt"

	"github.com/railyard/factotum/internal/dag"
)

// Factfile is a named TaskGraph plus the original JSON text it was parsed
// from, kept verbatim so the webhook sink can base64 it unmodified.
type Factfile struct {
	Name  string
	Raw   []byte
	Graph *dag.TaskGraph
}

type envelope struct {
	Schema string          `json:"schema"`
	Data   json.RawMessage `json:"data"`
}

type factfileData struct {
	Name  string     `json:"name"`
	Tasks []taskJSON `json:"tasks"`
}

type taskJSON struct {
	Name      string       `json:"name"`
	Executor  string       `json:"executor"`
	Command   string       `json:"command"`
	Arguments []string     `json:"arguments"`
	DependsOn []string     `json:"dependsOn"`
	OnResult  onResultJSON `json:"onResult"`
}

type onResultJSON struct {
	ContinueJob             []int `json:"continueJob"`
	TerminateJobWithSuccess []int `json:"terminateJobWithSuccess"`
}

// Parse decodes raw factfile JSON and builds its TaskGraph. Tasks are
// added to the graph in the order they appear in the document, so a task
// must list only dependencies that appear earlier in the array — the
// same forward-reference discipline dag.TaskGraph.AddTask enforces.
func Parse(raw []byte) (*Factfile, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &dag.ParseError{Msg: fmt.Sprintf("factfile is not valid JSON: %v", err)}
	}
	if len(env.Data) == 0 {
		return nil, &dag.ParseError{Msg: "factfile is missing a 'data' field"}
	}

	var data factfileData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &dag.ParseError{Msg: fmt.Sprintf("factfile data is malformed: %v", err)}
	}
	if data.Name == "" {
		return nil, &dag.ParseError{Msg: "factfile is missing a name"}
	}

	graph := dag.NewTaskGraph()
	for _, t := range data.Tasks {
		if t.Executor == "" {
			t.Executor = "shell"
		}
		spec := dag.TaskSpec{
			Name:      t.Name,
			DependsOn: t.DependsOn,
			Executor:  t.Executor,
			Command:   t.Command,
			Arguments: t.Arguments,
			OnResult: dag.OnResult{
				ContinueJob:             t.OnResult.ContinueJob,
				TerminateJobWithSuccess: t.OnResult.TerminateJobWithSuccess,
			},
		}
		if err := graph.AddTask(spec); err != nil {
			return nil, err
		}
	}

	return &Factfile{Name: data.Name, Raw: raw, Graph: graph}, nil
}

// TasksInOrder delegates to the underlying TaskGraph.
func (f *Factfile) TasksInOrder() ([][]*dag.TaskSpec, error) {
	return f.Graph.TasksInOrder()
}

// TasksInOrderFrom delegates to the underlying TaskGraph.
func (f *Factfile) TasksInOrderFrom(start string) ([][]*dag.TaskSpec, error) {
	return f.Graph.TasksInOrderFrom(start)
}

// IsProperSubTree delegates to the underlying TaskGraph.
func (f *Factfile) IsProperSubTree(start string) bool {
	return f.Graph.IsProperSubTree(start)
}
