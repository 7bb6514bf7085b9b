package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Strategy is the capability interface the Executor drives every task
// through. It knows nothing about the DAG — it sees one task name and one
// already-rendered shell command and returns a RunResult.
type Strategy interface {
	// Run launches command (the rendered shell command line) and reports
	// back its result. taskName is for logging/tracing only.
	Run(taskName, command string) RunResult

	// RequiresShellExecutor reports whether this strategy refuses to run
	// a task whose TaskSpec.Executor isn't "shell". The OS strategy does;
	// the simulation strategy accepts anything, since it never actually
	// invokes the executor tag.
	RequiresShellExecutor() bool
}

var tracer = otel.Tracer("factotum/executor")

// OSStrategy runs each task as `sh -c "<command>"` and captures its
// output and exit code.
type OSStrategy struct{}

func (OSStrategy) RequiresShellExecutor() bool { return true }

func (OSStrategy) Run(taskName, command string) RunResult {
	_, span := tracer.Start(context.Background(), "task.run",
		trace.WithAttributes(attribute.String("task.name", taskName)))
	defer span.End()

	start := time.Now()
	cmd := exec.Command("sh", "-c", command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			if code < 0 {
				// Killed by signal: the source defaults to 1 rather than
				// surfacing the negative/signal-derived code.
				code = 1
			}
			outStr := strings.TrimRight(stdout.String(), " \t\r\n")
			errStr := strings.TrimRight(stderr.String(), " \t\r\n")
			return RunResult{
				Duration:   duration,
				ReturnCode: code,
				Stdout:     &outStr,
				Stderr:     &errStr,
			}
		}
		msg := fmt.Sprintf("Error executing process - %v", err)
		return RunResult{
			Duration:           duration,
			ReturnCode:         -1,
			TaskExecutionError: &msg,
		}
	}

	outStr := strings.TrimRight(stdout.String(), " \t\r\n")
	errStr := strings.TrimRight(stderr.String(), " \t\r\n")
	return RunResult{
		Duration:   duration,
		ReturnCode: 0,
		Stdout:     &outStr,
		Stderr:     &errStr,
	}
}

// SimulationStrategy never touches the OS. It reports instant success and
// describes, in its stdout, what would have run — used for --dry-run and
// for deterministic tests.
type SimulationStrategy struct{}

func (SimulationStrategy) RequiresShellExecutor() bool { return false }

func (SimulationStrategy) Run(taskName, command string) RunResult {
	out := fmt.Sprintf("[simulation] task %q would run: %s", taskName, command)
	return RunResult{Duration: 0, ReturnCode: 0, Stdout: &out}
}
