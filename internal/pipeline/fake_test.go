package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leapstack-labs/leapsweep/internal/process"
	"github.com/leapstack-labs/leapsweep/internal/state"
)

// fakeExecutor records every command and answers from a script keyed by
// the last argument.
type fakeExecutor struct {
	mu       sync.Mutex
	calls    []process.Command
	output   func(c process.Command) string
	exitCode map[string]int
	startErr map[string]bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{exitCode: map[string]int{}, startErr: map[string]bool{}}
}

func (f *fakeExecutor) Run(_ context.Context, c process.Command) (process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	key := c.Name
	if len(c.Args) > 0 {
		key = c.Args[len(c.Args)-1]
	}
	res := process.Result{StartedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Duration: 10 * time.Millisecond}

	if f.startErr[key] || f.startErr[c.Name] {
		res.ExitCode = -1
		return res, errors.New("executable file not found")
	}
	if f.output != nil && c.Stdout != nil {
		_, _ = fmt.Fprint(c.Stdout, f.output(c))
	}
	res.ExitCode = f.exitCode[key]
	return res, nil
}

func (f *fakeExecutor) names() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.Name)
	}
	return out
}

// memRecorder keeps run history in memory.
type memRecorder struct {
	runs        []*state.Run
	invocations []*state.Invocation
	completed   map[string]state.RunStatus
	createErr   error
	recordErr   error
}

func newMemRecorder() *memRecorder {
	return &memRecorder{completed: map[string]state.RunStatus{}}
}

func (m *memRecorder) CreateRun(directory, schema string, experiments int) (*state.Run, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	run := &state.Run{ID: fmt.Sprintf("run-%d", len(m.runs)+1), Directory: directory, Schema: schema, Experiments: experiments}
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *memRecorder) RecordInvocation(inv *state.Invocation) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.invocations = append(m.invocations, inv)
	return nil
}

func (m *memRecorder) CompleteRun(id string, status state.RunStatus, failed int, _ string) error {
	m.completed[id] = status
	for _, r := range m.runs {
		if r.ID == id {
			r.Status = status
			r.Failed = failed
		}
	}
	return nil
}
