package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/foliobuilder/internal/orchestrator"
)

// streamIdleTimeout closes an SSE stream that has seen no events for this
// long; clients reconnect if they still care.
const streamIdleTimeout = 60 * time.Second

// handleBuildEvents streams build events over Server-Sent Events. The stream
// closes on client disconnect, idle timeout, or a terminal build event.
func (s *Server) handleBuildEvents(w http.ResponseWriter, r *http.Request) {
	buildID := chi.URLParam(r, "id")
	b := s.orch.GetBuild(buildID)
	if b == nil {
		s.Error(w, http.StatusNotFound, "build not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	eventCh, unsubscribe := s.orch.Registry().Subscribe(buildID)
	defer unsubscribe()

	slog.Info("Build event stream opened", "build_id", buildID)

	s.sendSSEEvent(w, orchestrator.NewEvent("connected", map[string]any{
		"build_id": buildID,
		"status":   string(b.Status()),
	}))

	// A subscriber attaching after the build finished would otherwise wait
	// out the idle timeout for events that will never come.
	if b.Status().IsTerminal() {
		s.sendSSEEvent(w, terminalEvent(b))
		return
	}

	done := r.Context().Done()
	idle := time.NewTimer(streamIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-done:
			slog.Debug("Build event stream closed (client disconnect)", "build_id", buildID)
			return

		case <-idle.C:
			slog.Debug("Build event stream closed (idle timeout)", "build_id", buildID)
			return

		case event, ok := <-eventCh:
			if !ok {
				return
			}
			s.sendSSEEvent(w, event)
			if isTerminalEvent(event.Type) {
				slog.Info("Build event stream closed (terminal event)",
					"build_id", buildID, "type", event.Type)
				return
			}
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(streamIdleTimeout)
		}
	}
}

func isTerminalEvent(eventType string) bool {
	switch eventType {
	case orchestrator.EventBuildCompleted, orchestrator.EventBuildFailed, orchestrator.EventBuildCancelled:
		return true
	}
	return false
}

// terminalEvent synthesizes the closing event for a build that already
// finished before the stream opened.
func terminalEvent(b *orchestrator.Build) orchestrator.Event {
	v := b.Snapshot()
	switch v.Status {
	case orchestrator.BuildStatusFailed:
		return orchestrator.NewEvent(orchestrator.EventBuildFailed, map[string]any{
			"build_id": v.ID, "error": v.Error,
		})
	case orchestrator.BuildStatusCancelled:
		return orchestrator.NewEvent(orchestrator.EventBuildCancelled, map[string]any{
			"build_id": v.ID,
		})
	default:
		return orchestrator.NewEvent(orchestrator.EventBuildCompleted, map[string]any{
			"build_id": v.ID,
		})
	}
}

func (s *Server) sendSSEEvent(w http.ResponseWriter, event orchestrator.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal SSE event", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
