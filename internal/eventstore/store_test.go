package eventstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/foliobuilder/internal/orchestrator"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndGetByBuildID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Append(ctx, "b1", "build_started", now, []byte(`{"style":"modern"}`)))
	require.NoError(t, s.Append(ctx, "b1", "task_started", now.Add(time.Second), []byte(`{"task_id":"init"}`)))
	require.NoError(t, s.Append(ctx, "b2", "build_started", now, []byte(`{}`)))

	records, err := s.GetByBuildID(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "build_started", records[0].Type)
	assert.Equal(t, "task_started", records[1].Type)
	assert.Equal(t, "b1", records[0].BuildID)
	assert.JSONEq(t, `{"style":"modern"}`, string(records[0].Payload))
	assert.WithinDuration(t, now, records[0].Timestamp, time.Millisecond)

	empty, err := s.GetByBuildID(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, "b1", "task_completed",
			base.Add(time.Duration(i)*time.Minute), []byte(`{}`)))
	}

	records, err := s.GetRange(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, s.Append(ctx, "b1", "build_started", base.Add(-2*time.Hour), []byte(`{}`)))
	require.NoError(t, s.Append(ctx, "b1", "build_completed", base, []byte(`{}`)))

	n, err := s.Prune(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	records, err := s.GetByBuildID(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "build_completed", records[0].Type)
}

func TestSinkRecordsOrchestratorEvents(t *testing.T) {
	s := newTestStore(t)
	sink := NewSink(s)

	ev := orchestrator.NewEvent(orchestrator.EventFileWritten, map[string]any{
		"path": "/index.html", "version": 2,
	})
	require.NoError(t, sink.Record("b1", ev))

	records, err := s.GetByBuildID(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, orchestrator.EventFileWritten, records[0].Type)

	var data map[string]any
	require.NoError(t, json.Unmarshal(records[0].Payload, &data))
	assert.Equal(t, "/index.html", data["path"])
}
