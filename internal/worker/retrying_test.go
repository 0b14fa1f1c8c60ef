package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/foliobuilder/internal/plan"
	"git.home.luguber.info/inful/foliobuilder/internal/retry"
)

// flakyWorker fails transiently a fixed number of times before succeeding.
type flakyWorker struct {
	failures int
	calls    int
	err      error
}

func (f *flakyWorker) Execute(_ context.Context, task *plan.Task, _ map[string]string) (Result, error) {
	f.calls++
	if f.calls <= f.failures {
		return Result{TaskID: task.ID}, f.err
	}
	return Result{TaskID: task.ID, Success: true}, nil
}

func fastPolicy(maxRetries int) retry.Policy {
	return retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, maxRetries)
}

func TestRetrying_RecoversFromTransientErrors(t *testing.T) {
	inner := &flakyWorker{failures: 2, err: Transient(errors.New("blip"))}
	w := NewRetrying(inner, fastPolicy(3))

	res, err := w.Execute(context.Background(), &plan.Task{ID: "t1", Kind: plan.TaskKindSection}, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, inner.calls)
}

func TestRetrying_ExhaustsRetries(t *testing.T) {
	inner := &flakyWorker{failures: 10, err: Transient(errors.New("blip"))}
	w := NewRetrying(inner, fastPolicy(2))

	_, err := w.Execute(context.Background(), &plan.Task{ID: "t1", Kind: plan.TaskKindSection}, nil)
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls, "initial attempt plus two retries")
}

func TestRetrying_PermanentErrorNotRetried(t *testing.T) {
	inner := &flakyWorker{failures: 10, err: errors.New("broken")}
	w := NewRetrying(inner, fastPolicy(5))

	_, err := w.Execute(context.Background(), &plan.Task{ID: "t1", Kind: plan.TaskKindSection}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetrying_FailureResultPassesThrough(t *testing.T) {
	inner := &staticWorker{result: Result{TaskID: "t1", Success: false, Error: "generation failed"}}
	w := NewRetrying(inner, fastPolicy(5))

	res, err := w.Execute(context.Background(), &plan.Task{ID: "t1", Kind: plan.TaskKindSection}, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, inner.calls)
}

// staticWorker always returns the same result.
type staticWorker struct {
	result Result
	calls  int
}

func (s *staticWorker) Execute(context.Context, *plan.Task, map[string]string) (Result, error) {
	s.calls++
	return s.result, nil
}

func TestTransient_NilStaysNil(t *testing.T) {
	assert.NoError(t, Transient(nil))

	err := Transient(errors.New("x"))
	var te *TransientError
	assert.True(t, errors.As(err, &te))
}
