package admission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/railyard/factotum/internal/clockid"
	"github.com/railyard/factotum/internal/dispatcher"
	"github.com/railyard/factotum/internal/kvstore"
)

// Submission is the candidate JobRequest decoded from a /submit body.
type Submission struct {
	JobName      string   `json:"jobName" validate:"required"`
	FactfilePath string   `json:"factfilePath" validate:"required"`
	FactfileArgs []string `json:"factfileArgs"`
}

// Config holds the pipeline's fixed, server-wide settings.
type Config struct {
	FactotumBinPath string
	WebhookURI      string
	NoColour        bool
	Namespace       string
}

// Pipeline is the AdmissionPipeline of spec.md §4.7.
type Pipeline struct {
	cfg        Config
	store      kvstore.KVStore
	dispatcher *dispatcher.Dispatcher
	state      *ServerState
	validate   *validator.Validate
}

// New builds a Pipeline.
func New(cfg Config, store kvstore.KVStore, disp *dispatcher.Dispatcher, state *ServerState) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		dispatcher: disp,
		state:      state,
		validate:   validator.New(),
	}
}

// Submit runs a candidate submission through every admission check and,
// if accepted, hands it to the dispatcher. It returns the assigned jobId.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (string, error) {
	if err := p.validate.Struct(sub); err != nil {
		return "", validationErrorf("invalid job submission: %v", err)
	}

	if p.state.IsDraining() {
		return "", &DispatchError{}
	}

	info, err := os.Stat(sub.FactfilePath)
	if err != nil || info.IsDir() {
		return "", validationErrorf("factfile path does not exist: %s", sub.FactfilePath)
	}

	if err := p.dryRun(ctx, sub); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(sub.FactfilePath)
	if err != nil {
		return "", validationErrorf("could not read factfile: %v", err)
	}
	canonical, err := canonicalizeJSON(raw)
	if err != nil {
		return "", validationErrorf("factfile is not valid JSON: %v", err)
	}

	tags := extractTags(sub.FactfileArgs)
	jobID := clockid.JobFingerprint(canonical, tags)

	if existing, found, err := p.store.GetKey(p.store.PrependNamespace(jobID)); err == nil && found {
		entry, decodeErr := dispatcher.UnmarshalEntry(existing)
		if decodeErr == nil && entry.State != dispatcher.Done {
			return "", &DuplicateJobError{}
		}
	}

	if p.dispatcher.QueueFull() {
		return "", &QueueFullError{}
	}

	args := append([]string{}, sub.FactfileArgs...)
	if p.cfg.WebhookURI != "" {
		args = append(args, "--webhook", p.cfg.WebhookURI)
	}
	if p.cfg.NoColour {
		args = append(args, "--no-colour")
	}

	p.dispatcher.Submit(dispatcher.JobRequest{
		JobID:        jobID,
		JobName:      sub.JobName,
		FactfilePath: sub.FactfilePath,
		FactfileArgs: args,
		EnqueuedAt:   time.Now(),
	})

	return jobID, nil
}

// dryRun shells out to the standalone executor binary with --dry-run to
// validate the factfile parses and its tasks are well-formed before
// admitting the job onto the queue.
func (p *Pipeline) dryRun(ctx context.Context, sub Submission) error {
	if p.cfg.FactotumBinPath == "" {
		return nil
	}
	args := append([]string{"run", sub.FactfilePath, "--dry-run"}, sub.FactfileArgs...)
	cmd := exec.CommandContext(ctx, p.cfg.FactotumBinPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return validationErrorf("factfile dry-run failed: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}

// extractTags pulls out repeated "--tag KEY,VALUE" occurrences.
func extractTags(args []string) map[string]string {
	tags := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if args[i] != "--tag" || i+1 >= len(args) {
			continue
		}
		kv := args[i+1]
		parts := strings.SplitN(kv, ",", 2)
		if len(parts) == 2 {
			tags[parts[0]] = parts[1]
		}
		i++
	}
	return tags
}

// canonicalizeJSON re-serializes raw with json.Compact so fingerprinting
// is insensitive to incidental whitespace differences in the source file.
func canonicalizeJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("compacting factfile JSON: %w", err)
	}
	return buf.Bytes(), nil
}
