package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/logfields"
	"git.home.luguber.info/inful/foliobuilder/internal/metrics"
)

// defaultSubscriberBuffer is the per-subscriber channel depth. A subscriber
// that falls this far behind starts losing events rather than slowing the
// build.
const defaultSubscriberBuffer = 64

// Registry holds the live builds and their event subscribers. It replaces
// the process-wide mutable maps of earlier designs with an injectable service
// so lifetime and test isolation are explicit.
type Registry struct {
	mu       sync.RWMutex
	builds   map[string]*Build
	subs     map[string][]*subscriber
	recorder metrics.Recorder
}

// subscriber pairs a delivery channel with close-once state. The channel is
// only ever closed while the registry write lock is held, and only through
// shutdown, so Publish (which sends under the read lock) can never race a
// close, and cancel and Remove can both run without double-closing.
type subscriber struct {
	ch        chan Event
	closeOnce sync.Once
}

func (s *subscriber) shutdown() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builds:   make(map[string]*Build),
		subs:     make(map[string][]*subscriber),
		recorder: metrics.NoopRecorder{},
	}
}

// SetRecorder injects a metrics recorder (optional).
func (r *Registry) SetRecorder(rec metrics.Recorder) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	r.mu.Lock()
	r.recorder = rec
	r.mu.Unlock()
}

// Register adds a build. The registry keeps it until Remove or a retention
// sweep discards it.
func (r *Registry) Register(b *Build) {
	r.mu.Lock()
	r.builds[b.ID] = b
	n := len(r.builds)
	rec := r.recorder
	r.mu.Unlock()
	rec.SetActiveBuilds(n)
}

// Get returns a build by ID, or nil.
func (r *Registry) Get(id string) *Build {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.builds[id]
}

// List returns the registered builds in unspecified order.
func (r *Registry) List() []*Build {
	r.mu.RLock()
	defer r.mu.RUnlock()

	builds := make([]*Build, 0, len(r.builds))
	for _, b := range r.builds {
		builds = append(builds, b)
	}
	return builds
}

// Remove discards a build, its store and graph, and closes any remaining
// subscriber channels. Returns false for an unknown ID.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.builds[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.builds, id)
	for _, sub := range r.subs[id] {
		sub.shutdown()
	}
	delete(r.subs, id)
	n := len(r.builds)
	rec := r.recorder
	r.mu.Unlock()

	rec.SetActiveBuilds(n)
	return true
}

// Subscribe registers an observer for one build's events. The returned
// channel receives events in emit order; the cancel function deregisters and
// closes it. Subscribing to an unknown build is allowed (events simply start
// flowing if the build appears).
func (r *Registry) Subscribe(buildID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, defaultSubscriberBuffer)}

	r.mu.Lock()
	r.subs[buildID] = append(r.subs[buildID], sub)
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		subs := r.subs[buildID]
		for i, s := range subs {
			if s == sub {
				r.subs[buildID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(r.subs[buildID]) == 0 {
			delete(r.subs, buildID)
		}
		sub.shutdown()
		r.mu.Unlock()
	}
	return sub.ch, cancel
}

// SubscriberCount returns the number of active subscribers for a build.
func (r *Registry) SubscriberCount(buildID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[buildID])
}

// Publish delivers an event to every current subscriber of the build.
// Delivery is non-blocking: a full subscriber channel drops the event with a
// log line so one slow observer cannot stall the orchestration loop. Having
// no subscribers at all is normal; execution never gates on observation.
// The read lock is held across the sends so a concurrent unsubscribe cannot
// close a channel mid-delivery.
func (r *Registry) Publish(buildID string, event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subs[buildID] {
		select {
		case sub.ch <- event:
			r.recorder.IncEventsPublished(event.Type)
		default:
			r.recorder.IncEventsDropped(event.Type)
			slog.Warn("Subscriber channel full, dropping event",
				logfields.BuildID(buildID), logfields.EventType(event.Type))
		}
	}
}

// Sweep removes finished builds whose completion is older than maxAge and
// returns how many were discarded. Running builds are never touched.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	r.mu.RLock()
	var stale []string
	for id, b := range r.builds {
		v := b.Snapshot()
		if !v.Status.IsTerminal() {
			continue
		}
		finished := v.CreatedAt
		if v.CompletedAt != nil {
			finished = *v.CompletedAt
		}
		if finished.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.Remove(id)
		slog.Info("Swept finished build", logfields.BuildID(id))
	}
	return len(stale)
}
