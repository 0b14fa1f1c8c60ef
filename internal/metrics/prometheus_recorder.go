package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	taskDuration     *prom.HistogramVec
	buildDuration    prom.Histogram
	taskResults      *prom.CounterVec
	buildOutcome     *prom.CounterVec
	activeBuilds     prom.Gauge
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
	eventsPublished  *prom.CounterVec
	eventsDropped    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.taskDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "foliobuilder",
			Name:      "task_duration_seconds",
			Help:      "Duration of individual generation tasks",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "foliobuilder",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.taskResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "foliobuilder",
			Name:      "task_results_total",
			Help:      "Task result counts by outcome",
		}, []string{"kind", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "foliobuilder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.activeBuilds = prom.NewGauge(prom.GaugeOpts{
			Namespace: "foliobuilder",
			Name:      "active_builds",
			Help:      "Number of builds currently registered and not yet discarded",
		})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "foliobuilder",
			Name:      "worker_retries_total",
			Help:      "Total worker retries (transient failures)",
		}, []string{"kind"})
		pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "foliobuilder",
			Name:      "worker_retry_exhausted_total",
			Help:      "Count of tasks where worker retries were exhausted",
		}, []string{"kind"})
		pr.eventsPublished = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "foliobuilder",
			Name:      "events_published_total",
			Help:      "Build events delivered to subscribers",
		}, []string{"type"})
		pr.eventsDropped = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "foliobuilder",
			Name:      "events_dropped_total",
			Help:      "Build events dropped because a subscriber channel was full",
		}, []string{"type"})
		reg.MustRegister(pr.taskDuration, pr.buildDuration, pr.taskResults, pr.buildOutcome,
			pr.activeBuilds, pr.retries, pr.retriesExhausted, pr.eventsPublished, pr.eventsDropped)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(kind string, d time.Duration) {
	if p == nil || p.taskDuration == nil {
		return
	}
	p.taskDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(kind string, result ResultLabel) {
	if p == nil || p.taskResults == nil {
		return
	}
	p.taskResults.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetActiveBuilds(n int) {
	if p == nil || p.activeBuilds == nil {
		return
	}
	p.activeBuilds.Set(float64(n))
}

func (p *PrometheusRecorder) IncWorkerRetry(kind string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncWorkerRetryExhausted(kind string) {
	if p == nil || p.retriesExhausted == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncEventsPublished(eventType string) {
	if p == nil || p.eventsPublished == nil {
		return
	}
	p.eventsPublished.WithLabelValues(eventType).Inc()
}

func (p *PrometheusRecorder) IncEventsDropped(eventType string) {
	if p == nil || p.eventsDropped == nil {
		return
	}
	p.eventsDropped.WithLabelValues(eventType).Inc()
}
