package webhook

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/railyard/factotum/internal/progress"
	"github.com/railyard/factotum/internal/state"
)

const (
	maxAttempts    = 3
	maxBackoff     = 60 * time.Second
	defaultTrimLen = 10000
)

// AttemptRecord is one delivery attempt against one ExecutionUpdate.
type AttemptRecord struct {
	EventIndex int
	Attempt    int
	StatusCode int
	Err        error
}

// Summary is produced once the sink has drained the stream.
type Summary struct {
	EventsReceived int
	SuccessCount   int
	FailureCount   int
	Attempts       []AttemptRecord
}

// Sink POSTs every ExecutionUpdate read from a progress.Source to url as
// a self-describing JSON envelope.
type Sink struct {
	url       string
	client    *http.Client
	trimChars int

	attemptCounter metric.Int64Counter
	successCounter metric.Int64Counter
	failureCounter metric.Int64Counter
}

// Option configures a Sink.
type Option func(*Sink)

// WithTrimChars overrides the default 10000-character stdout/stderr tail
// truncation length.
func WithTrimChars(n int) Option {
	return func(s *Sink) { s.trimChars = n }
}

// WithHTTPClient overrides the default http.Client, e.g. for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) { s.client = c }
}

// NewSink builds a sink posting to url.
func NewSink(url string, opts ...Option) *Sink {
	meter := otel.Meter("factotum/webhook")
	attemptCounter, _ := meter.Int64Counter("factotum_webhook_delivery_attempts_total")
	successCounter, _ := meter.Int64Counter("factotum_webhook_delivery_success_total")
	failureCounter, _ := meter.Int64Counter("factotum_webhook_delivery_failure_total")

	s := &Sink{
		url:            url,
		client:         &http.Client{Timeout: 10 * time.Second},
		trimChars:      defaultTrimLen,
		attemptCounter: attemptCounter,
		successCounter: successCounter,
		failureCounter: failureCounter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drains src, delivering every ExecutionUpdate to the configured URL.
// It returns once a Finished job-level update has been consumed and
// delivered (successfully or not).
func (s *Sink) Run(ctx context.Context, ctxInfo JobContext, src *progress.Source) Summary {
	var summary Summary

	for {
		update, ok := src.Next()
		if !ok {
			break
		}
		summary.EventsReceived++

		payload := buildPayload(ctxInfo, update, s.trimChars)
		body, err := marshalPayload(payload)
		if err != nil {
			slog.Error("webhook payload encode failed", "error", err)
			summary.FailureCount++
			continue
		}

		delivered := false
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			status, deliverErr := s.deliver(ctx, body)
			s.attemptCounter.Add(ctx, 1, metric.WithAttributes(attribute.Int("attempt", attempt)))
			summary.Attempts = append(summary.Attempts, AttemptRecord{
				EventIndex: summary.EventsReceived - 1,
				Attempt:    attempt,
				StatusCode: status,
				Err:        deliverErr,
			})
			if deliverErr == nil && status == http.StatusOK {
				delivered = true
				s.successCounter.Add(ctx, 1)
				break
			}
			if attempt < maxAttempts {
				sleep := time.Duration(rand.Int63n(int64(maxBackoff)))
				select {
				case <-ctx.Done():
					attempt = maxAttempts
				case <-time.After(sleep):
				}
			}
		}
		if delivered {
			summary.SuccessCount++
		} else {
			summary.FailureCount++
			s.failureCounter.Add(ctx, 1)
		}

		if update.Transition.Job != nil && update.Transition.Job.To == state.Finished {
			break
		}
	}

	return summary
}

func (s *Sink) deliver(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
