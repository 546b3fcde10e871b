package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/leapstack-labs/leapsweep/internal/process"
	"github.com/leapstack-labs/leapsweep/internal/rundir"
	"github.com/leapstack-labs/leapsweep/internal/runlog"
	"github.com/leapstack-labs/leapsweep/internal/state"
	"github.com/leapstack-labs/leapsweep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	base     string
	files    []string
	exec     *fakeExecutor
	recorder *memRecorder
	progress *bytes.Buffer
}

func newFixture(t *testing.T, contents ...string) *fixture {
	t.Helper()
	f := &fixture{
		base:     t.TempDir(),
		exec:     newFakeExecutor(),
		recorder: newMemRecorder(),
		progress: &bytes.Buffer{},
	}
	src := t.TempDir()
	for i, c := range contents {
		path := filepath.Join(src, "exp"+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(path, []byte(c), 0o600))
		f.files = append(f.files, path)
	}
	return f
}

func (f *fixture) pipeline(t *testing.T, mutate func(cfg *Config)) *Pipeline {
	t.Helper()
	schema, err := experiment.Preset(experiment.SchemaDivisor)
	require.NoError(t, err)
	logger := testutil.NewTestLogger(t)

	loader, err := experiment.NewLoader(experiment.LoaderConfig{Schema: schema, Logger: logger})
	require.NoError(t, err)

	cfg := Config{
		Loader:   loader,
		Runner:   NewRunner(RunnerConfig{Program: "java", Executor: f.exec, Logger: logger}),
		Builder:  &Builder{Command: "ant", Args: []string{"clean", "compile"}, Executor: f.exec, Logger: logger},
		Plotter:  &Plotter{Command: "gnuplot", Executor: f.exec, Logger: logger},
		Recorder: f.recorder,
		BaseDir:  f.base,
		Progress: f.progress,
		Now:      func() time.Time { return runStart },
		Logger:   logger,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func TestPipeline_Run(t *testing.T) {
	f := newFixture(t,
		"A 1,2 3 4 42 uniform SainteLague\nbad line\n",
		"B 5 6 7 8 poisson Danish\n",
	)
	f.exec.output = func(c process.Command) string {
		// The program writes a plot script and redraws its progress line.
		_ = os.WriteFile(filepath.Join(c.Dir, "tmp", c.Args[0]+".gp"), nil, 0o600)
		return "n=1\n" + runlog.CursorUpClear + "n=2\n"
	}

	res, err := f.pipeline(t, nil).Run(context.Background(), f.files)
	require.NoError(t, err)

	assert.True(t, res.Built)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, RunStats{Attempted: 2}, res.Run)
	assert.Equal(t, PlotStats{Attempted: 2}, res.Plots)
	assert.Equal(t, 2, res.Cleaned)
	assert.Equal(t, filepath.Join(f.base, "experiments_2024-03-01-12:00:00"), res.Directory)
	assert.Equal(t, "run-1", res.RunID)

	assert.Equal(t, []string{"ant", "java", "java", "gnuplot", "gnuplot"}, f.exec.names())

	log, err := os.ReadFile(filepath.Join(res.Directory, runlog.DefaultLogFile))
	require.NoError(t, err)
	want := "n=1\n        n=2\n" + runlog.Separator + "n=1\n        n=2\n" + runlog.Separator + runlog.DoneMarker
	assert.Equal(t, want, string(log))

	assert.Equal(t, state.RunStatusCompleted, f.recorder.completed["run-1"])
	require.Len(t, f.recorder.invocations, 2)
	for _, inv := range f.recorder.invocations {
		assert.Equal(t, "run-1", inv.RunID)
	}
	assert.Equal(t, "divisor", f.recorder.runs[0].Schema)
	assert.Contains(t, f.progress.String(), "Performing 2 experiments...")
	assert.Contains(t, f.progress.String(), "tail -f ")
	assert.Contains(t, f.progress.String(), "Plotting...")
}

func TestPipeline_ZeroRecordsStillCreatesDirectory(t *testing.T) {
	f := newFixture(t, "# nothing valid\nbad\n")

	res, err := f.pipeline(t, nil).Run(context.Background(), f.files)
	require.NoError(t, err)

	assert.Zero(t, res.Records)
	assert.DirExists(t, res.Directory)
	assert.Equal(t, []string{"ant"}, f.exec.names())

	log, err := os.ReadFile(filepath.Join(res.Directory, runlog.DefaultLogFile))
	require.NoError(t, err)
	assert.Equal(t, runlog.DoneMarker, string(log))
}

func TestPipeline_DryRunStopsAfterValidation(t *testing.T) {
	f := newFixture(t, "A 1 1 1 1 uniform Danish\n")

	res, err := f.pipeline(t, func(cfg *Config) { cfg.DryRun = true }).Run(context.Background(), f.files)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Records)
	assert.Empty(t, res.Directory)
	assert.Empty(t, f.exec.calls)
	assert.Empty(t, f.recorder.runs)

	entries, err := os.ReadDir(f.base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPipeline_OptionalSteps(t *testing.T) {
	f := newFixture(t, "A 1 1 1 1 uniform Danish\n")

	res, err := f.pipeline(t, func(cfg *Config) {
		cfg.Builder = nil
		cfg.Plotter = nil
		cfg.Recorder = nil
	}).Run(context.Background(), f.files)
	require.NoError(t, err)

	assert.False(t, res.Built)
	assert.Equal(t, []string{"java"}, f.exec.names())
	assert.Empty(t, res.RunID)
	assert.NotContains(t, f.progress.String(), "Plotting")
}

func TestPipeline_FailedBuildDoesNotAbort(t *testing.T) {
	f := newFixture(t, "A 1 1 1 1 uniform Danish\n")
	f.exec.startErr["ant"] = true

	res, err := f.pipeline(t, nil).Run(context.Background(), f.files)
	require.NoError(t, err)
	assert.False(t, res.Built)
	assert.Equal(t, 1, res.Run.Attempted)
}

func TestPipeline_DirectoryCollisionIsFatal(t *testing.T) {
	f := newFixture(t, "A 1 1 1 1 uniform Danish\n")
	require.NoError(t, os.Mkdir(filepath.Join(f.base, "experiments_2024-03-01-12:00:00"), 0o750))

	_, err := f.pipeline(t, nil).Run(context.Background(), f.files)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rundir.ErrExists))
	assert.Equal(t, []string{"ant"}, f.exec.names(), "no experiment runs after a fatal error")
	assert.Empty(t, f.recorder.runs)
}

func TestPipeline_RecorderFailureIsFatal(t *testing.T) {
	f := newFixture(t, "A 1 1 1 1 uniform Danish\n")
	f.recorder.createErr = errors.New("database is locked")

	_, err := f.pipeline(t, nil).Run(context.Background(), f.files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register run")
}

func TestPipeline_MissingFileKeepsGoing(t *testing.T) {
	f := newFixture(t, "A 1 1 1 1 uniform Danish\n")
	files := append([]string{filepath.Join(t.TempDir(), "missing.txt")}, f.files...)

	res, err := f.pipeline(t, nil).Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)
	require.Len(t, res.Load.Errors, 1)
}

func TestNew_RequiresComponents(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	schema, err := experiment.Preset(experiment.DefaultSchema)
	require.NoError(t, err)
	loader, err := experiment.NewLoader(experiment.LoaderConfig{Schema: schema})
	require.NoError(t, err)

	_, err = New(Config{Loader: loader})
	assert.Error(t, err)
}

func TestPipeline_OnLoadRunsBeforeExperiments(t *testing.T) {
	f := newFixture(t, "A 1 1 1 1 uniform Danish\nbad\n")

	var callsAtLoad []string
	var invalid int
	res, err := f.pipeline(t, func(cfg *Config) {
		cfg.OnLoad = func(load *experiment.LoadResult) {
			callsAtLoad = f.exec.names()
			invalid = load.InvalidLines()
		}
	}).Run(context.Background(), f.files)
	require.NoError(t, err)

	assert.Equal(t, []string{"ant"}, callsAtLoad, "diagnostics come before any experiment")
	assert.Equal(t, 1, invalid)
	assert.Equal(t, 1, res.Run.Attempted)
}
