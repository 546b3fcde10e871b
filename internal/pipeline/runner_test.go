package pipeline

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/leapsweep/internal/experiment"
	"github.com/leapstack-labs/leapsweep/internal/process"
	"github.com/leapstack-labs/leapsweep/internal/rundir"
	"github.com/leapstack-labs/leapsweep/internal/runlog"
	"github.com/leapstack-labs/leapsweep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords(t *testing.T, lines ...string) experiment.Set {
	t.Helper()
	schema, err := experiment.Preset(experiment.SchemaDivisor)
	require.NoError(t, err)
	v, err := experiment.NewValidator(schema)
	require.NoError(t, err)

	var set experiment.Set
	for i, line := range lines {
		rec, errs := v.ValidateLine("exp.txt", i+1, line)
		require.Empty(t, errs, line)
		set = append(set, rec)
	}
	return set
}

func testDir(t *testing.T) *rundir.Dir {
	t.Helper()
	d, err := rundir.Create(rundir.Options{BaseDir: t.TempDir(), Now: func() time.Time { return time.Unix(0, 0) }})
	require.NoError(t, err)
	return d
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunner_WritesAuditAndLogInOrder(t *testing.T) {
	dir := testDir(t)
	exec := newFakeExecutor()
	exec.output = func(c process.Command) string { return "out " + c.Args[3] + "\n" }
	rec := newMemRecorder()

	r := NewRunner(RunnerConfig{
		Program:  "java",
		Args:     []string{"-cp", "../build", "RunningTimeMain"},
		Executor: exec,
		Logger:   testutil.NewTestLogger(t),
	})
	records := testRecords(t,
		"A 1,2 3 4 42 uniform SainteLague",
		"B 5 6 7 8 poisson Danish",
	)

	stats, err := r.Run(context.Background(), dir, rec, "run-1", records)
	require.NoError(t, err)
	assert.Equal(t, RunStats{Attempted: 2}, stats)

	assert.Equal(t, "A\t1,2\t3\t4\t42\tuniform\tSainteLague\nB\t5\t6\t7\t8\tpoisson\tDanish\n",
		readFile(t, dir.Join(runlog.DefaultAuditFile)))
	assert.Equal(t, "out A\n"+runlog.Separator+"out B\n"+runlog.Separator+runlog.DoneMarker,
		readFile(t, dir.Join(runlog.DefaultLogFile)))

	require.Len(t, exec.calls, 2)
	first := exec.calls[0]
	assert.Equal(t, "java", first.Name)
	assert.Equal(t, []string{"-cp", "../build", "RunningTimeMain", "A", "1,2", "3", "4", "42", "uniform", "SainteLague"}, first.Args)
	assert.Equal(t, dir.Path, first.Dir)

	require.Len(t, rec.invocations, 2)
	assert.Equal(t, 1, rec.invocations[0].Seq)
	assert.Equal(t, "B", rec.invocations[1].Label)
	assert.Equal(t, "run-1", rec.invocations[1].RunID)
	assert.Equal(t, records[1].Fields(), rec.invocations[1].Args)
}

func TestRunner_ContinuesWhenEveryInvocationFails(t *testing.T) {
	dir := testDir(t)
	exec := newFakeExecutor()
	exec.startErr["java"] = true
	rec := newMemRecorder()

	r := NewRunner(RunnerConfig{Program: "java", Executor: exec})
	records := testRecords(t,
		"A 1 1 1 1 uniform Danish",
		"B 2 2 2 2 uniform Danish",
		"C 3 3 3 3 uniform Danish",
	)

	stats, err := r.Run(context.Background(), dir, rec, "run-1", records)
	require.NoError(t, err)
	assert.Equal(t, RunStats{Attempted: 3, Failed: 3}, stats)

	audit := strings.Split(strings.TrimSuffix(readFile(t, r.AuditPath(dir)), "\n"), "\n")
	require.Len(t, audit, 3)
	assert.True(t, strings.HasPrefix(audit[0], "A\t"))
	assert.True(t, strings.HasPrefix(audit[2], "C\t"))

	assert.Equal(t, strings.Repeat(runlog.Separator, 3)+runlog.DoneMarker, readFile(t, r.LogPath(dir)))

	require.Len(t, rec.invocations, 3)
	for _, inv := range rec.invocations {
		assert.Equal(t, -1, inv.ExitCode)
		assert.Equal(t, "executable file not found", inv.Error)
	}
}

func TestRunner_NonZeroExitIsCountedNotFatal(t *testing.T) {
	dir := testDir(t)
	exec := newFakeExecutor()
	exec.exitCode["Imperiali"] = 2

	r := NewRunner(RunnerConfig{Program: "java", Executor: exec})
	records := testRecords(t,
		"A 1 1 1 1 uniform Imperiali",
		"B 2 2 2 2 uniform Danish",
	)

	stats, err := r.Run(context.Background(), dir, nil, "", records)
	require.NoError(t, err)
	assert.Equal(t, RunStats{Attempted: 2, Failed: 1}, stats)
}

func TestRunner_RecorderErrorsAreNotFatal(t *testing.T) {
	dir := testDir(t)
	rec := newMemRecorder()
	rec.recordErr = assert.AnError

	r := NewRunner(RunnerConfig{Program: "java", Executor: newFakeExecutor()})
	stats, err := r.Run(context.Background(), dir, rec, "run-1", testRecords(t, "A 1 1 1 1 uniform Danish"))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Attempted)
}

func TestRunner_EmptySetStillMarksDone(t *testing.T) {
	dir := testDir(t)
	r := NewRunner(RunnerConfig{Program: "java", Executor: newFakeExecutor()})

	stats, err := r.Run(context.Background(), dir, nil, "", nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Attempted)
	assert.Equal(t, runlog.DoneMarker, readFile(t, r.LogPath(dir)))
	assert.Empty(t, readFile(t, r.AuditPath(dir)))
}

func TestRunner_UnwritableDirIsFatal(t *testing.T) {
	dir := testDir(t)
	require.NoError(t, os.RemoveAll(dir.Path))

	r := NewRunner(RunnerConfig{Program: "java", Executor: newFakeExecutor()})
	_, err := r.Run(context.Background(), dir, nil, "", testRecords(t, "A 1 1 1 1 uniform Danish"))
	assert.Error(t, err)
}

func TestRunner_NoRunIDSkipsRecording(t *testing.T) {
	dir := testDir(t)
	rec := newMemRecorder()

	r := NewRunner(RunnerConfig{Program: "java", Executor: newFakeExecutor()})
	_, err := r.Run(context.Background(), dir, rec, "", testRecords(t, "A 1 1 1 1 uniform Danish"))
	require.NoError(t, err)
	assert.Empty(t, rec.invocations)
}
