package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/orchestrator"
)

// appendTimeout bounds one sink write so a slow disk cannot stall the
// orchestration loop for long.
const appendTimeout = 5 * time.Second

// Sink adapts a Store to the orchestrator's event sink interface.
type Sink struct {
	store *Store
}

// NewSink wraps a store as an event sink.
func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

// Record implements orchestrator.EventSink.
func (s *Sink) Record(buildID string, event orchestrator.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	return s.store.Append(ctx, buildID, event.Type, event.Timestamp, payload)
}
