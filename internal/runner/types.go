package runner

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned by stores for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Status is the lifecycle state of a Run.
type Status string

// Run statuses.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Run is the metadata recorded for one execution of an ingestion job. The
// ingested records themselves are never stored.
type Run struct {
	ID          string
	Job         string
	Subject     string
	SinceDays   int
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      Status
	RecordCount int
	ErrorText   string
}

// RunStore persists run metadata.
type RunStore interface {
	StartRun(ctx context.Context, run Run) error
	FinishRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, job string, limit int) ([]Run, error)
}

// Publisher pushes run completion events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Event is the completion message published for every finished run.
type Event struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	Status     Status    `json:"status"`
	Records    int       `json:"records"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// Attributes returns message attributes for routing on the subscriber side.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"job":    e.Job,
		"status": string(e.Status),
	}
}
