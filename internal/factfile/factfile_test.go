package factfile

import "testing"

const sampleJSON = `{
  "schema": "iglu:com.snowplowanalytics.factotum/factfile/jsonschema/1-0-0",
  "data": {
    "name": "sample",
    "tasks": [
      {"name": "apple", "executor": "shell", "command": "true", "arguments": [], "dependsOn": [], "onResult": {"continueJob": [0], "terminateJobWithSuccess": []}},
      {"name": "turnip", "executor": "shell", "command": "true", "arguments": [], "dependsOn": [], "onResult": {"continueJob": [0], "terminateJobWithSuccess": []}},
      {"name": "banana", "executor": "shell", "command": "true", "arguments": [], "dependsOn": ["apple", "turnip"], "onResult": {"continueJob": [0], "terminateJobWithSuccess": []}}
    ]
  }
}`

func TestParseBuildsGraph(t *testing.T) {
	ff, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ff.Name != "sample" {
		t.Fatalf("Name = %q, want sample", ff.Name)
	}
	layers, err := ff.TasksInOrder()
	if err != nil {
		t.Fatalf("TasksInOrder: %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if len(layers[0]) != 2 || len(layers[1]) != 1 {
		t.Fatalf("unexpected layer shapes: %+v", layers)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseRejectsMissingData(t *testing.T) {
	if _, err := Parse([]byte(`{"schema":"x"}`)); err == nil {
		t.Fatal("expected error for missing data field")
	}
}

func TestParseRejectsForwardReference(t *testing.T) {
	raw := `{"schema":"x","data":{"name":"n","tasks":[
		{"name":"a","command":"true","onResult":{"continueJob":[0]},"dependsOn":["b"]},
		{"name":"b","command":"true","onResult":{"continueJob":[0]}}
	]}}`
	if _, err := Parse([]byte(raw)); err == nil {
		t.Fatal("expected error for forward dependency reference")
	}
}
