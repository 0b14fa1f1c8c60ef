// Package orchestrator drives portfolio builds end to end: it plans a task
// graph from the content source, executes tasks against a worker in
// dependency order, accumulates outputs in the build's file store, and
// publishes lifecycle events to subscribers.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/metrics"
	"git.home.luguber.info/inful/foliobuilder/internal/plan"
	"git.home.luguber.info/inful/foliobuilder/internal/worker"
)

// StartRequest carries everything needed to begin a build.
type StartRequest struct {
	OwnerID     string             `json:"owner_id"`
	PortfolioID string             `json:"portfolio_id,omitempty"`
	Source      plan.ContentSource `json:"source"`
	Style       string             `json:"style"`
	Sections    []string           `json:"sections,omitempty"`
}

// Orchestrator runs builds. It is safe for concurrent use; each build's
// execution loop runs on its own goroutine, detached from the caller's
// context so an HTTP disconnect does not abort generation.
type Orchestrator struct {
	registry *Registry
	worker   worker.Worker
	recorder metrics.Recorder

	mu    sync.RWMutex
	sinks []EventSink
}

// New creates an orchestrator executing tasks against the given worker.
func New(registry *Registry, w worker.Worker) *Orchestrator {
	if registry == nil {
		panic("orchestrator: nil registry")
	}
	if w == nil {
		panic("orchestrator: nil worker")
	}
	return &Orchestrator{
		registry: registry,
		worker:   w,
		recorder: metrics.NoopRecorder{},
	}
}

// SetRecorder injects a metrics recorder (optional).
func (o *Orchestrator) SetRecorder(rec metrics.Recorder) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	o.recorder = rec
	o.registry.SetRecorder(rec)
}

// AddSink registers an event sink mirroring every emitted event.
func (o *Orchestrator) AddSink(s EventSink) {
	if s == nil {
		return
	}
	o.mu.Lock()
	o.sinks = append(o.sinks, s)
	o.mu.Unlock()
}

// Registry exposes the build registry for API handlers and sweepers.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// NewBuildID returns a fresh build identifier.
func NewBuildID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// StartBuild registers a new build and begins executing it in the
// background. The returned build is already visible through GetBuild and
// Subscribe; the call itself never blocks on generation.
func (o *Orchestrator) StartBuild(ctx context.Context, req StartRequest) (*Build, error) {
	if req.Style == "" {
		return nil, fmt.Errorf("style is required")
	}

	b := newBuild(NewBuildID(), req.OwnerID, req.PortfolioID, req.Source, req.Style)
	o.registry.Register(b)

	slog.Info("Build accepted",
		logfields.BuildID(b.ID), logfields.OwnerID(b.OwnerID), logfields.Style(b.Style))

	// Execution outlives the request; only explicit Cancel stops it.
	bg := context.WithoutCancel(ctx)
	go o.executeBuild(bg, b, req.Sections)

	return b, nil
}

// GetBuild returns a build by ID, or nil.
func (o *Orchestrator) GetBuild(id string) *Build {
	return o.registry.Get(id)
}

// GetBuildFiles returns a copy of the build's current files, or nil for an
// unknown build.
func (o *Orchestrator) GetBuildFiles(id string) map[string]string {
	b := o.registry.Get(id)
	if b == nil {
		return nil
	}
	return b.Store().GetAllFiles()
}

// Cancel requests a stop for a running build. The current round of tasks
// finishes; no further rounds start. Returns false when the build is unknown
// or already terminal.
func (o *Orchestrator) Cancel(id string) bool {
	b := o.registry.Get(id)
	if b == nil {
		return false
	}
	b.mu.Lock()
	if b.status.IsTerminal() {
		b.mu.Unlock()
		return false
	}
	b.status = BuildStatusCancelled
	now := time.Now().UTC()
	b.completedAt = &now
	b.mu.Unlock()

	slog.Info("Build cancelled", logfields.BuildID(id))
	o.emit(b, NewEvent(EventBuildCancelled, map[string]any{"build_id": id}))
	o.recorder.IncBuildOutcome("cancelled")
	return true
}

// RetryTask resets a failed task to pending and resumes execution. Tasks
// that are running, pending, or already completed are rejected.
func (o *Orchestrator) RetryTask(ctx context.Context, buildID, taskID string) error {
	b := o.registry.Get(buildID)
	if b == nil {
		return fmt.Errorf("unknown build %q", buildID)
	}

	b.mu.Lock()
	if b.graph == nil {
		b.mu.Unlock()
		return fmt.Errorf("build %q has no task graph yet", buildID)
	}
	t := b.graph.GetTask(taskID)
	if t == nil {
		b.mu.Unlock()
		return fmt.Errorf("unknown task %q", taskID)
	}
	if t.Status != plan.TaskStatusFailed {
		b.mu.Unlock()
		return fmt.Errorf("task %q is %s, only failed tasks can be retried", taskID, t.Status)
	}
	o.resetTaskLocked(b, t)
	b.mu.Unlock()

	slog.Info("Retrying task", logfields.BuildID(buildID), logfields.TaskID(taskID))
	go o.resumeBuild(context.WithoutCancel(ctx), b)
	return nil
}

// RegenerateSection re-runs one task with an optional extra instruction
// appended to its context. The identifier is resolved as a task ID first and
// a section ID second, so structural tasks like init or finalize can be
// regenerated too. The task's previous output files are removed from the
// store before re-execution, even if the new run fails.
func (o *Orchestrator) RegenerateSection(ctx context.Context, buildID, sectionID, instruction string) error {
	b := o.registry.Get(buildID)
	if b == nil {
		return fmt.Errorf("unknown build %q", buildID)
	}

	b.mu.Lock()
	if b.graph == nil {
		b.mu.Unlock()
		return fmt.Errorf("build %q has no task graph yet", buildID)
	}
	t := b.graph.GetTask(sectionID)
	if t == nil {
		t = o.findSectionTaskLocked(b, sectionID)
	}
	if t == nil {
		b.mu.Unlock()
		return fmt.Errorf("build %q has no task or section %q", buildID, sectionID)
	}
	if t.Status == plan.TaskStatusRunning {
		b.mu.Unlock()
		return fmt.Errorf("section %q is currently generating", sectionID)
	}

	// Stale outputs go first so a failed regeneration never leaves the old
	// content behind.
	for _, path := range t.OutputFiles {
		b.store.Delete(path)
	}
	if sc, ok := t.Context.(plan.SectionContext); ok {
		sc.Instruction = mergeInstruction(sc.Instruction, instruction)
		t.Context = sc
	}
	o.resetTaskLocked(b, t)
	b.mu.Unlock()

	slog.Info("Regenerating section", logfields.BuildID(buildID), logfields.Section(sectionID))
	go o.resumeBuild(context.WithoutCancel(ctx), b)
	return nil
}

func (o *Orchestrator) findSectionTaskLocked(b *Build, sectionID string) *plan.Task {
	for _, t := range b.graph.Tasks {
		if t.Kind != plan.TaskKindSection {
			continue
		}
		if sc, ok := t.Context.(plan.SectionContext); ok && sc.SectionID == sectionID {
			return t
		}
	}
	return nil
}

// resetTaskLocked rewinds one task to pending and reopens the build for
// execution. Caller holds b.mu.
func (o *Orchestrator) resetTaskLocked(b *Build, t *plan.Task) {
	t.Status = plan.TaskStatusPending
	t.Error = ""
	t.OutputFiles = nil
	t.StartedAt = nil
	t.CompletedAt = nil

	if b.status.IsTerminal() {
		b.status = BuildStatusBuilding
		b.err = ""
		b.completedAt = nil
	}
}

func mergeInstruction(existing, extra string) string {
	extra = strings.TrimSpace(extra)
	switch {
	case extra == "":
		return existing
	case existing == "":
		return extra
	default:
		return existing + "\n" + extra
	}
}

// executeBuild runs the full lifecycle: plan, execute, finish.
func (o *Orchestrator) executeBuild(ctx context.Context, b *Build, sections []string) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	start := time.Now()
	o.emit(b, NewEvent(EventBuildStarted, map[string]any{
		"build_id": b.ID,
		"style":    b.Style,
	}))

	b.mu.Lock()
	b.status = BuildStatusPlanning
	b.mu.Unlock()
	o.emit(b, NewEvent(EventPlanningStarted, map[string]any{"build_id": b.ID}))

	graph, err := plan.CreatePlan(b.ID, b.Source, b.Style, sections)
	if err != nil {
		slog.Error("Planning failed", logfields.BuildID(b.ID), logfields.Error(err))
		o.failBuild(b, fmt.Sprintf("planning failed: %v", err), start)
		return
	}

	b.mu.Lock()
	b.graph = graph
	b.status = BuildStatusBuilding
	b.mu.Unlock()

	o.emit(b, NewEvent(EventPlanningCompleted, map[string]any{
		"build_id":   b.ID,
		"task_count": len(graph.Tasks),
		"tasks":      b.Snapshot().Tasks,
	}))
	o.emit(b, NewEvent(EventBuildPhaseStarted, map[string]any{
		"build_id": b.ID,
		"phase":    string(BuildStatusBuilding),
	}))

	o.runRounds(ctx, b)
	o.finishBuild(b, start)
}

// resumeBuild re-enters the execution loop after a retry or regenerate.
func (o *Orchestrator) resumeBuild(ctx context.Context, b *Build) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.mu.RLock()
	ready := b.graph != nil && b.status == BuildStatusBuilding
	b.mu.RUnlock()
	if !ready {
		return
	}

	start := time.Now()
	o.runRounds(ctx, b)
	o.finishBuild(b, start)
}

// runRounds executes ready tasks in rounds until the graph settles. Tasks
// within one round have no dependency ordering between them and run
// concurrently.
func (o *Orchestrator) runRounds(ctx context.Context, b *Build) {
	for {
		if b.Status() == BuildStatusCancelled {
			return
		}

		b.mu.Lock()
		ready := b.graph.GetReadyTasks()
		for _, t := range ready {
			now := time.Now().UTC()
			t.Status = plan.TaskStatusRunning
			t.StartedAt = &now
		}
		stuck := len(ready) == 0 && b.graph.HasPending()
		b.mu.Unlock()

		if stuck {
			// Pending tasks remain but none can become ready: an
			// upstream task failed.
			return
		}
		if len(ready) == 0 {
			return
		}

		var wg sync.WaitGroup
		for _, t := range ready {
			wg.Add(1)
			go func(t *plan.Task) {
				defer wg.Done()
				o.executeTask(ctx, b, t)
			}(t)
		}
		wg.Wait()
	}
}

// executeTask runs one task against the worker and folds the result into the
// build.
func (o *Orchestrator) executeTask(ctx context.Context, b *Build, t *plan.Task) {
	start := time.Now()
	o.emit(b, NewEvent(EventTaskStarted, map[string]any{
		"build_id": b.ID,
		"task_id":  t.ID,
		"kind":     string(t.Kind),
		"name":     t.Name,
	}))

	files := b.store.GetAllFiles()
	result, err := o.worker.Execute(ctx, t, files)

	failure := ""
	switch {
	case err != nil:
		failure = err.Error()
	case !result.Success:
		failure = result.Error
		if failure == "" {
			failure = "worker reported failure"
		}
	}

	if failure != "" {
		now := time.Now().UTC()
		b.mu.Lock()
		t.Status = plan.TaskStatusFailed
		t.Error = failure
		t.CompletedAt = &now
		b.mu.Unlock()

		slog.Warn("Task failed",
			logfields.BuildID(b.ID), logfields.TaskID(t.ID), slog.String("error", failure))
		o.recorder.ObserveTaskDuration(string(t.Kind), time.Since(start))
		o.recorder.IncTaskResult(string(t.Kind), metrics.ResultFailed)
		o.emit(b, NewEvent(EventTaskFailed, map[string]any{
			"build_id": b.ID,
			"task_id":  t.ID,
			"error":    failure,
		}))
		return
	}

	written := make([]string, 0, len(result.Outputs))
	for _, out := range result.Outputs {
		f := b.store.Write(out.Path, out.Content)
		written = append(written, f.Path)
		o.emit(b, NewEvent(EventFileWritten, map[string]any{
			"build_id":     b.ID,
			"task_id":      t.ID,
			"path":         f.Path,
			"content":      out.Content,
			"content_type": out.ContentType,
			"version":      f.Version,
		}))
	}

	now := time.Now().UTC()
	b.mu.Lock()
	t.Status = plan.TaskStatusCompleted
	t.OutputFiles = written
	t.CompletedAt = &now
	progress := b.graph.GetProgress()
	b.mu.Unlock()

	o.recorder.ObserveTaskDuration(string(t.Kind), time.Since(start))
	o.recorder.IncTaskResult(string(t.Kind), metrics.ResultSuccess)
	o.emit(b, NewEvent(EventTaskCompleted, map[string]any{
		"build_id": b.ID,
		"task_id":  t.ID,
		"files":    written,
		"progress": progress.Percent,
	}))
}

// finishBuild settles the build's terminal status after the loop exits. Only
// a stuck graph fails the build; a failed task with no pending dependents
// leaves the build completed, inspectable and retryable.
func (o *Orchestrator) finishBuild(b *Build, start time.Time) {
	if b.Status() == BuildStatusCancelled {
		return
	}

	b.mu.RLock()
	var failed []*plan.Task
	pending := b.graph.HasPending()
	for _, t := range b.graph.Tasks {
		if t.Status == plan.TaskStatusFailed {
			failed = append(failed, t)
		}
	}
	b.mu.RUnlock()

	if len(failed) > 0 && pending {
		o.failBuild(b, fmt.Sprintf("build stuck: dependencies failed (task %s: %s)",
			failed[0].ID, failed[0].Error), start)
		return
	}

	now := time.Now().UTC()
	b.mu.Lock()
	b.status = BuildStatusCompleted
	b.completedAt = &now
	b.mu.Unlock()
	files := b.store.ListFiles("")

	if len(failed) > 0 {
		slog.Warn("Build completed with failed tasks", logfields.BuildID(b.ID),
			slog.Int("failed_tasks", len(failed)),
			logfields.TaskID(failed[0].ID))
	}
	slog.Info("Build completed", logfields.BuildID(b.ID),
		slog.Int("files", len(files)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	o.recorder.ObserveBuildDuration(time.Since(start))
	o.recorder.IncBuildOutcome("completed")
	o.emit(b, NewEvent(EventBuildCompleted, map[string]any{
		"build_id":   b.ID,
		"status":     string(BuildStatusCompleted),
		"files":      files,
		"file_count": len(files),
	}))
}

func (o *Orchestrator) failBuild(b *Build, msg string, start time.Time) {
	now := time.Now().UTC()
	b.mu.Lock()
	b.status = BuildStatusFailed
	b.err = msg
	b.completedAt = &now
	b.mu.Unlock()

	slog.Error("Build failed", logfields.BuildID(b.ID), slog.String("error", msg))
	o.recorder.ObserveBuildDuration(time.Since(start))
	o.recorder.IncBuildOutcome("failed")
	o.emit(b, NewEvent(EventBuildFailed, map[string]any{
		"build_id": b.ID,
		"error":    msg,
	}))
}

// emit publishes to subscribers and mirrors to sinks. Sink errors are logged
// and swallowed.
func (o *Orchestrator) emit(b *Build, event Event) {
	o.registry.Publish(b.ID, event)

	o.mu.RLock()
	sinks := o.sinks
	o.mu.RUnlock()
	for _, s := range sinks {
		if err := s.Record(b.ID, event); err != nil {
			slog.Warn("Event sink failed", logfields.BuildID(b.ID),
				logfields.EventType(event.Type), logfields.Error(err))
		}
	}
}
