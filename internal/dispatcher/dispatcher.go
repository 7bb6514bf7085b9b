package dispatcher

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/railyard/factotum/internal/kvstore"
)

const (
	defaultMaxJobs    = 1000
	defaultMaxWorkers = 20
)

// RunFunc is how the dispatcher actually executes one job: dispatcher
// itself knows nothing about factfiles, strategies, or webhooks, only
// that running a JobRequest eventually succeeds or fails.
type RunFunc func(ctx context.Context, req JobRequest) error

// Status is the reply to a StatusQuery command.
type Status struct {
	QueueLength   int
	MaxQueueSize  int
	WorkersTotal  int
	WorkersActive int
	WorkersIdle   int
	FailCount     int
	SuccessCount  int
}

// command is the sealed set of messages the coordinator accepts. Only
// the coordinator goroutine ever reads or writes queue/worker state;
// every other goroutine only ever sends on cmds.
type command struct {
	kind        commandKind
	req         JobRequest
	statusReply chan Status
	fullReply   chan bool
}

type commandKind int

const (
	cmdNewRequest commandKind = iota
	cmdProcessRequest
	cmdRequestComplete
	cmdRequestFailure
	cmdStatusQuery
	cmdQueueFullQuery
	cmdStopProcessing
)

// Dispatcher is the bounded FIFO queue + fixed worker pool described in
// spec.md §4.6. All mutation happens inside coordinate(), the single
// coordinator loop; Submit/StatusSnapshot/QueueFull/Stop are the public
// entry points and they all talk to it via cmds.
type Dispatcher struct {
	maxJobs    int
	maxWorkers int
	store      kvstore.KVStore
	run_       RunFunc

	cmds chan command
	done chan struct{}

	// Fields below are only ever touched from inside the coordinator
	// goroutine (coordinate).
	queue        []JobRequest
	activeCount  int
	successCount int
	failCount    int

	activeCounter metric.Int64UpDownCounter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithMaxJobs(n int) Option    { return func(d *Dispatcher) { d.maxJobs = n } }
func WithMaxWorkers(n int) Option { return func(d *Dispatcher) { d.maxWorkers = n } }

// New builds a Dispatcher backed by store for JobEntry persistence and
// runFn to actually execute an admitted job. Call Start to launch the
// coordinator before sending any command.
func New(store kvstore.KVStore, runFn RunFunc, opts ...Option) *Dispatcher {
	meter := otel.Meter("factotum/dispatcher")
	activeCounter, _ := meter.Int64UpDownCounter("factotum_dispatcher_active_jobs")

	d := &Dispatcher{
		maxJobs:       defaultMaxJobs,
		maxWorkers:    defaultMaxWorkers,
		store:         store,
		run_:          runFn,
		cmds:          make(chan command, 4096),
		done:          make(chan struct{}),
		activeCounter: activeCounter,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the coordinator goroutine and returns immediately; the
// goroutine runs until Stop's StopProcessing command is processed.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.coordinate(ctx)
}

// Stop requests the coordinator loop end cleanly; in-flight executions are
// not interrupted.
func (d *Dispatcher) Stop() {
	d.cmds <- command{kind: cmdStopProcessing}
	<-d.done
}

// Submit appends req to the queue. Callers should have already checked
// QueueFull.
func (d *Dispatcher) Submit(req JobRequest) {
	d.cmds <- command{kind: cmdNewRequest, req: req}
}

// QueueFull reports whether the queue is currently at capacity.
func (d *Dispatcher) QueueFull() bool {
	reply := make(chan bool, 1)
	d.cmds <- command{kind: cmdQueueFullQuery, fullReply: reply}
	return <-reply
}

// StatusSnapshot reports the current queue/worker counts.
func (d *Dispatcher) StatusSnapshot() Status {
	reply := make(chan Status, 1)
	d.cmds <- command{kind: cmdStatusQuery, statusReply: reply}
	return <-reply
}

func (d *Dispatcher) coordinate(ctx context.Context) {
	defer close(d.done)
	for cmd := range d.cmds {
		switch cmd.kind {
		case cmdStopProcessing:
			return

		case cmdStatusQuery:
			cmd.statusReply <- Status{
				QueueLength:   len(d.queue),
				MaxQueueSize:  d.maxJobs,
				WorkersTotal:  d.maxWorkers,
				WorkersActive: d.activeCount,
				WorkersIdle:   d.maxWorkers - d.activeCount,
				FailCount:     0, // reserved for future use, per spec.md §9
				SuccessCount:  0,
			}

		case cmdQueueFullQuery:
			cmd.fullReply <- len(d.queue) >= d.maxJobs

		case cmdNewRequest:
			d.queue = append(d.queue, cmd.req)
			d.persist(cmd.req, Queued)
			if d.activeCount < d.maxWorkers {
				d.cmds <- command{kind: cmdProcessRequest}
			}

		case cmdProcessRequest:
			if len(d.queue) == 0 || d.activeCount >= d.maxWorkers {
				continue
			}
			req := d.queue[0]
			d.queue = d.queue[1:]
			d.activeCount++
			d.activeCounter.Add(ctx, 1)
			d.persist(req, Working)
			go d.runWorker(ctx, req)

		case cmdRequestComplete:
			d.activeCount--
			d.activeCounter.Add(ctx, -1)
			d.successCount++
			d.persist(cmd.req, Done)
			d.cmds <- command{kind: cmdProcessRequest}

		case cmdRequestFailure:
			d.activeCount--
			d.activeCounter.Add(ctx, -1)
			d.failCount++
			d.persist(cmd.req, Done)
			d.cmds <- command{kind: cmdProcessRequest}
		}
	}
}

// runWorker executes one job end to end and reports the outcome back to
// the coordinator. It is the only place that calls into the executor, and
// it never touches queue/worker state directly.
func (d *Dispatcher) runWorker(ctx context.Context, req JobRequest) {
	err := d.run_(ctx, req)
	if err != nil {
		slog.Error("job failed", "job_id", req.JobID, "error", err)
		d.cmds <- command{kind: cmdRequestFailure, req: req}
		return
	}
	d.cmds <- command{kind: cmdRequestComplete, req: req}
}

// persist writes a JobEntry. A persistence failure is logged and does not
// block the Dispatcher command loop (spec.md §7, PersistenceError).
func (d *Dispatcher) persist(req JobRequest, entryState EntryState) {
	if d.store == nil {
		return
	}
	entry := JobEntry{State: entryState, Request: req, LastRunFrom: d.store.ID()}
	raw, err := marshalEntry(entry)
	if err != nil {
		slog.Error("failed to encode job entry", "job_id", req.JobID, "error", err)
		return
	}
	if err := d.store.SetKey(d.store.PrependNamespace(req.JobID), raw); err != nil {
		slog.Error("failed to persist job entry", "job_id", req.JobID, "error", err)
	}
}
