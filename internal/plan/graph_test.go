package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func task(id string, deps ...string) *Task {
	return &Task{ID: id, Kind: TaskKindSection, Status: TaskStatusPending, DependsOn: deps}
}

func TestNewGraph_Valid(t *testing.T) {
	g, err := NewGraph("b1", []*Task{task("a"), task("b", "a"), task("c", "b")})
	require.NoError(t, err)
	assert.NotNil(t, g.GetTask("b"))
	assert.Nil(t, g.GetTask("missing"))
}

func TestNewGraph_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		tasks []*Task
	}{
		{"dangling dependency", []*Task{task("a", "ghost")}},
		{"self dependency", []*Task{task("a", "a")}},
		{"duplicate id", []*Task{task("a"), task("a")}},
		{"empty id", []*Task{task("")}},
		{"two-node cycle", []*Task{task("a", "b"), task("b", "a")}},
		{"indirect cycle", []*Task{task("a", "c"), task("b", "a"), task("c", "b")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph("b1", tt.tasks)
			assert.Error(t, err)
		})
	}
}

func TestGraph_GetReadyTasks(t *testing.T) {
	g, err := NewGraph("b1", []*Task{task("a"), task("b", "a"), task("c", "b")})
	require.NoError(t, err)

	ready := g.GetReadyTasks()
	require.Len(t, ready, 1)
	assert.Equal(t, "a", ready[0].ID)

	// A running dependency does not unblock dependents.
	g.GetTask("a").Status = TaskStatusRunning
	assert.Empty(t, g.GetReadyTasks())

	g.GetTask("a").Status = TaskStatusCompleted
	ready = g.GetReadyTasks()
	require.Len(t, ready, 1)
	assert.Equal(t, "b", ready[0].ID)

	// A failed dependency blocks dependents permanently.
	g.GetTask("b").Status = TaskStatusFailed
	assert.Empty(t, g.GetReadyTasks())
}

func TestGraph_IsComplete(t *testing.T) {
	g, err := NewGraph("b1", []*Task{task("a"), task("b", "a")})
	require.NoError(t, err)
	assert.False(t, g.IsComplete())

	g.GetTask("a").Status = TaskStatusCompleted
	g.GetTask("b").Status = TaskStatusRunning
	assert.False(t, g.IsComplete(), "a running task blocks completion")

	g.GetTask("b").Status = TaskStatusFailed
	assert.True(t, g.IsComplete())

	g.GetTask("b").Status = TaskStatusSkipped
	assert.True(t, g.IsComplete())
}

func TestGraph_GetProgress(t *testing.T) {
	g, err := NewGraph("b1", []*Task{task("a"), task("b", "a"), task("c", "b"), task("d", "c")})
	require.NoError(t, err)

	g.GetTask("a").Status = TaskStatusCompleted
	g.GetTask("b").Status = TaskStatusCompleted
	g.GetTask("c").Status = TaskStatusFailed

	p := g.GetProgress()
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 2, p.Completed)
	assert.Equal(t, 1, p.Failed)
	assert.Equal(t, 1, p.Pending)
	assert.Equal(t, 50, p.Percent)
}
