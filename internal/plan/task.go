package plan

import "time"

// TaskKind classifies a task within the build pipeline.
type TaskKind string

const (
	TaskKindInit     TaskKind = "init"     // base project structure
	TaskKindStyle    TaskKind = "style"    // theme and design tokens
	TaskKindSection  TaskKind = "section"  // one portfolio section
	TaskKindFinalize TaskKind = "finalize" // final assembly
)

// TaskStatus tracks a task through its lifecycle. Transitions are monotonic
// within a run (pending → running → completed|failed); only the orchestrator's
// retry/regenerate operations move a task back to pending.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// IsTerminal reports whether the status counts toward graph completion.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusSkipped
}

// TaskContext is the typed per-kind input a worker receives. Exactly one
// concrete type exists per TaskKind, replacing an open map so each worker call
// has a checkable shape.
type TaskContext interface {
	Kind() TaskKind
}

// InitContext is the input for the project-initialization task.
type InitContext struct {
	Style    string   `json:"style"`
	Name     string   `json:"name,omitempty"`
	Headline string   `json:"headline,omitempty"`
	Sections []string `json:"sections"`
}

func (InitContext) Kind() TaskKind { return TaskKindInit }

// StyleContext is the input for the styling task.
type StyleContext struct {
	Style string `json:"style"`
}

func (StyleContext) Kind() TaskKind { return TaskKindStyle }

// SectionContext is the input for one content-section task. Data carries only
// the slice of the content source relevant to the section, never the whole
// source.
type SectionContext struct {
	SectionID   string      `json:"section_id"`
	Style       string      `json:"style"`
	Data        SectionData `json:"data"`
	Instruction string      `json:"instruction,omitempty"`
}

func (SectionContext) Kind() TaskKind { return TaskKindSection }

// FinalizeContext is the input for the finalization task.
type FinalizeContext struct {
	Style    string   `json:"style"`
	Title    string   `json:"title,omitempty"`
	Sections []string `json:"sections"`
}

func (FinalizeContext) Kind() TaskKind { return TaskKindFinalize }

// Task is a single unit of generation work. Tasks belong to exactly one Graph
// and are mutated only by the orchestrator.
type Task struct {
	ID          string      `json:"id"`
	Kind        TaskKind    `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	DependsOn   []string    `json:"depends_on"`
	Status      TaskStatus  `json:"status"`
	Context     TaskContext `json:"-"`
	OutputFiles []string    `json:"output_files"`
	Error       string      `json:"error,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
