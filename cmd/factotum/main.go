// Command factotum is the standalone executor CLI: it runs one factfile
// to completion and exits with a code describing the outcome, per
// spec.md §6.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/railyard/factotum/internal/dag"
	"github.com/railyard/factotum/internal/logging"
	"github.com/railyard/factotum/internal/runjob"
	"github.com/railyard/factotum/internal/telemetry"
)

const version = "dev"

const (
	exitSuccess     = 0
	exitParseError  = 1
	exitTaskFailure = 2
	exitOther       = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logging.Init("factotum")

	if len(args) < 2 || args[0] != "run" {
		fmt.Fprintln(os.Stderr, "usage: factotum run <factfile> [--dry-run] [--start=TASK] [--webhook=URL] [--no-colour] [--tag KEY,VALUE]...")
		return exitOther
	}
	factfilePath := args[1]
	rest := args[2:]

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, "factotum")
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry init failed: %v\n", err)
	}
	defer shutdown(ctx)

	result, err := runjob.Run(ctx, factfilePath, rest, version)
	if err != nil {
		var parseErr *dag.ParseError
		if errors.As(err, &parseErr) {
			fmt.Fprintf(os.Stderr, "parse error: %v\n", parseErr)
			return exitParseError
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitOther
	}

	if result.Failed() {
		return exitTaskFailure
	}
	return exitSuccess
}
