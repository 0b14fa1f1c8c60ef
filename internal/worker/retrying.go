package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/metrics"
	"git.home.luguber.info/inful/foliobuilder/internal/plan"
	"git.home.luguber.info/inful/foliobuilder/internal/retry"
)

// Retrying wraps another Worker and re-attempts transient failures according
// to a retry policy. Permanent failures and Success=false results pass
// through on the first attempt.
type Retrying struct {
	inner    Worker
	policy   retry.Policy
	recorder metrics.Recorder
}

// NewRetrying builds a retrying wrapper around inner.
func NewRetrying(inner Worker, policy retry.Policy) *Retrying {
	if inner == nil {
		panic("NewRetrying: inner worker is required")
	}
	if policy.Validate() != nil {
		policy = retry.DefaultPolicy()
	}
	return &Retrying{inner: inner, policy: policy, recorder: metrics.NoopRecorder{}}
}

// SetRecorder injects a metrics recorder for retry counters (optional).
func (r *Retrying) SetRecorder(rec metrics.Recorder) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	r.recorder = rec
}

// Execute runs the inner worker, retrying transient errors with backoff until
// the policy is exhausted or the context is canceled.
func (r *Retrying) Execute(ctx context.Context, task *plan.Task, files map[string]string) (Result, error) {
	var (
		result  Result
		err     error
		retries int
	)

	for {
		result, err = r.inner.Execute(ctx, task, files)

		var transient *TransientError
		if err == nil || !errors.As(err, &transient) {
			return result, err
		}
		if retries >= r.policy.MaxRetries {
			r.recorder.IncWorkerRetryExhausted(string(task.Kind))
			return result, err
		}

		retries++
		r.recorder.IncWorkerRetry(string(task.Kind))
		delay := r.policy.Delay(retries)
		slog.Warn("Transient worker error, retrying",
			"task_id", task.ID,
			"retry", retries,
			"max_retries", r.policy.MaxRetries,
			"delay", delay,
			"err", err,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}
}
