package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for build and task metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil receivers
// when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveTaskDuration(kind string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncTaskResult(kind string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: completed|failed|cancelled
	SetActiveBuilds(n int)
	IncWorkerRetry(kind string)
	IncWorkerRetryExhausted(kind string)
	IncEventsPublished(eventType string)
	IncEventsDropped(eventType string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)        {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(string)                    {}
func (NoopRecorder) SetActiveBuilds(int)                       {}
func (NoopRecorder) IncWorkerRetry(string)                     {}
func (NoopRecorder) IncWorkerRetryExhausted(string)            {}
func (NoopRecorder) IncEventsPublished(string)                 {}
func (NoopRecorder) IncEventsDropped(string)                   {}
