package plan

import (
	"fmt"
	"time"
)

// Progress summarizes task counts per status for one graph.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
	Skipped   int `json:"skipped"`
	Percent   int `json:"percent"`
}

// Graph is the ordered DAG of tasks for one build. Dependencies reference
// sibling task IDs only. A Graph is validated at construction; an instance
// that exists is acyclic with fully resolvable dependencies.
//
// The Graph itself does no locking: task status fields are mutated only by
// the orchestrator, which serializes access.
type Graph struct {
	BuildID   string    `json:"build_id"`
	Tasks     []*Task   `json:"tasks"`
	CreatedAt time.Time `json:"created_at"`

	byID map[string]*Task
}

// NewGraph builds and validates a graph. It rejects duplicate or empty task
// IDs, dependencies that do not resolve within the graph, and cycles.
func NewGraph(buildID string, tasks []*Task) (*Graph, error) {
	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("task ID is required")
		}
		if _, exists := byID[t.ID]; exists {
			return nil, fmt.Errorf("duplicate task ID %q", t.ID)
		}
		byID[t.ID] = t
	}

	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return nil, fmt.Errorf("task %q depends on itself", t.ID)
			}
			if _, ok := byID[dep]; !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", t.ID, dep)
			}
		}
	}

	g := &Graph{
		BuildID:   buildID,
		Tasks:     tasks,
		CreatedAt: time.Now().UTC(),
		byID:      byID,
	}
	if cycle := g.findCycle(); cycle != "" {
		return nil, fmt.Errorf("dependency cycle through task %q", cycle)
	}
	return g, nil
}

// findCycle runs a three-color DFS and returns the ID of a task on a cycle,
// or "" when the graph is acyclic.
func (g *Graph) findCycle() string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Tasks))

	var dfs func(id string) string
	dfs = func(id string) string {
		color[id] = gray
		for _, dep := range g.byID[id].DependsOn {
			switch color[dep] {
			case gray:
				return dep
			case white:
				if hit := dfs(dep); hit != "" {
					return hit
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, t := range g.Tasks {
		if color[t.ID] == white {
			if hit := dfs(t.ID); hit != "" {
				return hit
			}
		}
	}
	return ""
}

// GetTask returns the task with the given ID, or nil.
func (g *Graph) GetTask(id string) *Task {
	return g.byID[id]
}

// GetReadyTasks returns the pending tasks whose every dependency has
// completed. A task behind a pending, running, or failed dependency is never
// ready.
func (g *Graph) GetReadyTasks() []*Task {
	var ready []*Task
	for _, t := range g.Tasks {
		if t.Status != TaskStatusPending {
			continue
		}
		ok := true
		for _, dep := range t.DependsOn {
			if g.byID[dep].Status != TaskStatusCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, t)
		}
	}
	return ready
}

// IsComplete reports whether every task has reached a terminal status.
func (g *Graph) IsComplete() bool {
	for _, t := range g.Tasks {
		if !t.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// HasPending reports whether any task is still pending.
func (g *Graph) HasPending() bool {
	for _, t := range g.Tasks {
		if t.Status == TaskStatusPending {
			return true
		}
	}
	return false
}

// GetProgress returns per-status counts and a percent-complete figure.
func (g *Graph) GetProgress() Progress {
	p := Progress{Total: len(g.Tasks)}
	for _, t := range g.Tasks {
		switch t.Status {
		case TaskStatusCompleted:
			p.Completed++
		case TaskStatusFailed:
			p.Failed++
		case TaskStatusRunning:
			p.Running++
		case TaskStatusPending:
			p.Pending++
		case TaskStatusSkipped:
			p.Skipped++
		}
	}
	if p.Total > 0 {
		p.Percent = p.Completed * 100 / p.Total
	}
	return p
}
