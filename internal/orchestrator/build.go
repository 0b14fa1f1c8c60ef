package orchestrator

import (
	"sync"
	"time"

	"git.home.luguber.info/inful/foliobuilder/internal/plan"
	"git.home.luguber.info/inful/foliobuilder/internal/vfs"
)

// BuildStatus is the lifecycle state of one build.
type BuildStatus string

const (
	BuildStatusPending   BuildStatus = "pending"
	BuildStatusPlanning  BuildStatus = "planning"
	BuildStatusBuilding  BuildStatus = "building"
	BuildStatusCompleted BuildStatus = "completed"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal reports whether no further execution will happen without an
// explicit retry.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusCompleted || s == BuildStatusFailed || s == BuildStatusCancelled
}

// Build is the aggregate root of one orchestration run. It owns exactly one
// task graph and one file store; both are discarded with the build.
//
// The mutex guards status, error, timestamps, and all task mutations. The
// file store carries its own locking and is never touched under this mutex
// during a worker call.
type Build struct {
	ID          string
	OwnerID     string
	PortfolioID string
	Source      plan.ContentSource
	Style       string

	// runMu serializes execution loops: the initial run and any
	// retry/regenerate resume. Never held while mu is held.
	runMu sync.Mutex

	mu          sync.RWMutex
	status      BuildStatus
	graph       *plan.Graph
	store       *vfs.Store
	err         string
	createdAt   time.Time
	completedAt *time.Time
}

func newBuild(id, ownerID, portfolioID string, source plan.ContentSource, style string) *Build {
	return &Build{
		ID:          id,
		OwnerID:     ownerID,
		PortfolioID: portfolioID,
		Source:      source,
		Style:       style,
		status:      BuildStatusPending,
		store:       vfs.NewStore(id),
		createdAt:   time.Now().UTC(),
	}
}

// Status returns the current lifecycle state.
func (b *Build) Status() BuildStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Error returns the build-level error message, if any.
func (b *Build) Error() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Store returns the build's file store.
func (b *Build) Store() *vfs.Store {
	return b.store
}

// TaskView is a copy of one task for external consumption.
type TaskView struct {
	ID          string          `json:"id"`
	Kind        plan.TaskKind   `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	DependsOn   []string        `json:"depends_on"`
	Status      plan.TaskStatus `json:"status"`
	OutputFiles []string        `json:"output_files"`
	Error       string          `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// View is a consistent read snapshot of a build.
type View struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	PortfolioID string        `json:"portfolio_id,omitempty"`
	Status      BuildStatus   `json:"status"`
	Style       string        `json:"style"`
	Tasks       []TaskView    `json:"tasks"`
	Progress    plan.Progress `json:"progress"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Snapshot copies the build's externally visible state under the lock.
func (b *Build) Snapshot() View {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v := View{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		PortfolioID: b.PortfolioID,
		Status:      b.status,
		Style:       b.Style,
		Error:       b.err,
		CreatedAt:   b.createdAt,
		CompletedAt: b.completedAt,
	}
	if b.graph != nil {
		v.Progress = b.graph.GetProgress()
		v.Tasks = make([]TaskView, 0, len(b.graph.Tasks))
		for _, t := range b.graph.Tasks {
			v.Tasks = append(v.Tasks, taskView(t))
		}
	}
	return v
}

func taskView(t *plan.Task) TaskView {
	return TaskView{
		ID:          t.ID,
		Kind:        t.Kind,
		Name:        t.Name,
		Description: t.Description,
		DependsOn:   append([]string(nil), t.DependsOn...),
		Status:      t.Status,
		OutputFiles: append([]string(nil), t.OutputFiles...),
		Error:       t.Error,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}
