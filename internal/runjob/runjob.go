// Package runjob ties factfile parsing, the Executor, and the
// WebhookSink together into the single operation both the standalone
// executor CLI and the dispatcher's worker invoke: parse a factfile, run
// it, optionally stream progress to a webhook.
package runjob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/railyard/factotum/internal/clockid"
	"github.com/railyard/factotum/internal/executor"
	"github.com/railyard/factotum/internal/factfile"
	"github.com/railyard/factotum/internal/progress"
	"github.com/railyard/factotum/internal/state"
	"github.com/railyard/factotum/internal/webhook"
)

// Options are the flags the executor CLI and the dispatcher both parse
// out of a factfileArgs slice.
type Options struct {
	Start      string
	DryRun     bool
	WebhookURI string
	NoColour   bool
	Tags       map[string]string
}

// ParseArgs extracts the recognized flags from args, ignoring any it
// doesn't understand (factfile template arguments are out of scope here
// per spec.md §1).
func ParseArgs(args []string) Options {
	opts := Options{Tags: make(map[string]string)}
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--dry-run":
			opts.DryRun = true
		case args[i] == "--no-colour":
			opts.NoColour = true
		case args[i] == "--start" && i+1 < len(args):
			opts.Start = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--start="):
			opts.Start = strings.TrimPrefix(args[i], "--start=")
		case args[i] == "--webhook" && i+1 < len(args):
			opts.WebhookURI = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--webhook="):
			opts.WebhookURI = strings.TrimPrefix(args[i], "--webhook=")
		case args[i] == "--tag" && i+1 < len(args):
			parts := strings.SplitN(args[i+1], ",", 2)
			if len(parts) == 2 {
				opts.Tags[parts[0]] = parts[1]
			}
			i++
		}
	}
	return opts
}

// Result is what Run hands back to its caller.
type Result struct {
	TaskList       *executor.TaskList
	WebhookSummary *webhook.Summary
}

// Run parses factfilePath, executes it, and — if a webhook URI is
// configured — streams every update to it concurrently. appVersion is
// carried into every webhook payload's applicationContext.
func Run(ctx context.Context, factfilePath string, args []string, appVersion string) (*Result, error) {
	opts := ParseArgs(args)

	raw, err := os.ReadFile(factfilePath)
	if err != nil {
		return nil, fmt.Errorf("reading factfile: %w", err)
	}
	ff, err := factfile.Parse(raw)
	if err != nil {
		return nil, err
	}

	if opts.Start != "" && !ff.IsProperSubTree(opts.Start) {
		return nil, fmt.Errorf("--start=%s would leave an upstream dependency unsatisfied", opts.Start)
	}

	var strategy executor.Strategy = executor.OSStrategy{}
	if opts.DryRun {
		strategy = executor.SimulationStrategy{}
	}

	var sink *progress.Sink
	var source *progress.Source
	var webhookDone chan webhook.Summary
	if opts.WebhookURI != "" {
		sink, source = progress.NewStream()
		webhookDone = make(chan webhook.Summary, 1)

		canonical := raw
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, raw); err == nil {
			canonical = compacted.Bytes()
		}
		jobRef := clockid.JobFingerprint(canonical, opts.Tags)
		runRef, err := clockid.RunReference()
		if err != nil {
			return nil, fmt.Errorf("generating run reference: %w", err)
		}

		jobCtx := webhook.JobContext{
			JobName:            ff.Name,
			JobReference:       jobRef,
			RunReference:       runRef,
			FactfileJSON:       raw,
			ApplicationVersion: appVersion,
			Tags:               opts.Tags,
			StartTime:          clockid.SystemClock{}.Now(),
		}

		whSink := webhook.NewSink(opts.WebhookURI)
		go func() {
			webhookDone <- whSink.Run(ctx, jobCtx, source)
		}()
	}

	tl, err := executor.Execute(ff, opts.Start, strategy, sink)
	if err != nil {
		return nil, err
	}

	result := &Result{TaskList: tl}
	if webhookDone != nil {
		summary := <-webhookDone
		result.WebhookSummary = &summary
	}
	return result, nil
}

// Failed reports whether any task in the result ended in Failed.
func (r *Result) Failed() bool {
	for _, group := range r.TaskList.Groups {
		for _, inst := range group {
			if inst.State.Kind == state.Failed {
				return true
			}
		}
	}
	return false
}
