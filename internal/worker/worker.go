// Package worker defines the generation worker contract the orchestrator
// executes tasks against, plus the built-in template-based implementation.
//
// A worker turns one task into file outputs or a failure. Workers may be
// called repeatedly for the same task (retry, regenerate) and must tolerate
// that; they are not required to be idempotent.
package worker

import (
	"context"

	"git.home.luguber.info/inful/foliobuilder/internal/plan"
)

// Output is one file produced by a task execution.
type Output struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

// Result is the outcome of executing one task. A worker reports generation
// failure through Success=false and Error; a returned Go error means the call
// itself could not run. The orchestrator treats both the same way.
type Result struct {
	TaskID  string   `json:"task_id"`
	Success bool     `json:"success"`
	Outputs []Output `json:"outputs,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Worker executes a single task against the current file snapshot. The
// snapshot is read-only input; all writes go through the returned outputs.
// Implementations own their time bounds; the orchestrator imposes none.
type Worker interface {
	Execute(ctx context.Context, task *plan.Task, files map[string]string) (Result, error)
}

// TransientError marks a failure worth retrying inside a retrying wrapper.
// Plain errors are treated as permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so a retrying worker will re-attempt it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}
