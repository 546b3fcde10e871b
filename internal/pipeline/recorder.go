package pipeline

import "github.com/leapstack-labs/leapsweep/internal/state"

// Recorder is the slice of the state store the pipeline writes to.
type Recorder interface {
	CreateRun(directory, schema string, experiments int) (*state.Run, error)
	RecordInvocation(inv *state.Invocation) error
	CompleteRun(id string, status state.RunStatus, failed int, errMsg string) error
}

// NopRecorder discards run history.
type NopRecorder struct{}

var (
	_ Recorder = NopRecorder{}
	_ Recorder = (*state.SQLiteStore)(nil)
)

// CreateRun returns an unsaved run without an ID.
func (NopRecorder) CreateRun(directory, schema string, experiments int) (*state.Run, error) {
	return &state.Run{Directory: directory, Schema: schema, Status: state.RunStatusRunning, Experiments: experiments}, nil
}

// RecordInvocation does nothing.
func (NopRecorder) RecordInvocation(*state.Invocation) error { return nil }

// CompleteRun does nothing.
func (NopRecorder) CompleteRun(string, state.RunStatus, int, string) error { return nil }
