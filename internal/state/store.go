// Package state records experiment runs and their invocations in SQLite.
package state

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one pipeline execution producing a run directory.
type Run struct {
	ID          string     `json:"id"`
	Directory   string     `json:"directory"`
	Schema      string     `json:"schema"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Experiments int        `json:"experiments"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
}

// Invocation is a single external program call for one record.
type Invocation struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Seq       int           `json:"seq"`
	Label     string        `json:"label"`
	Args      []string      `json:"args"`
	ExitCode  int           `json:"exit_code"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
	Error     string        `json:"error,omitempty"`
}

// Succeeded reports whether the program started and exited with zero.
func (i *Invocation) Succeeded() bool {
	return i.ExitCode == 0 && i.Error == ""
}

// Store persists run history.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(directory, schema string, experiments int) (*Run, error)
	CompleteRun(id string, status RunStatus, failed int, errMsg string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	RecordInvocation(inv *Invocation) error
	ListInvocations(runID string) ([]*Invocation, error)
}
