package commands

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapsweep/internal/cli/config"
	"github.com/leapstack-labs/leapsweep/internal/runlog"
	"github.com/leapstack-labs/leapsweep/internal/state"
	"github.com/leapstack-labs/leapsweep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoConfig runs echo instead of the benchmark program and skips build and plots.
const echoConfig = `program:
  command: echo
  args: []
build:
  skip: true
plot:
  skip: true
`

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	setupProject(t)

	out, _, err := execute(NewRunCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "run FILE...")

	entries, err := os.ReadDir(".")
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be created without input files")
}

func TestRun_DryRun(t *testing.T) {
	dir := setupProject(t)
	path := writeFile(t, dir, "exp.txt", validExperiments+"bad 1 2\n")

	out, stderr, err := execute(NewRunCommand(), "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "need eight columns")
	assert.Contains(t, out, "2 valid experiments")
	assert.Contains(t, out, "(1 invalid lines)")
	assert.Contains(t, out, "Dry run")

	matches, err := filepath.Glob(filepath.Join(dir, "experiments_*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRun_ExecutesEveryExperiment(t *testing.T) {
	requireTool(t, "echo")
	dir := setupProject(t)
	useConfig(t, echoConfig)
	path := writeFile(t, dir, "exp.txt", validExperiments)

	out, _, err := execute(NewRunCommand(), path)
	require.NoError(t, err)
	assert.Contains(t, out, "Performing 2 experiments...")
	assert.Contains(t, out, "tail -f ")
	assert.Contains(t, out, "2 experiments")
	assert.Contains(t, out, "(0 failed)")

	matches, err := filepath.Glob(filepath.Join(dir, "experiments_*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	runDir := matches[0]
	assert.Contains(t, out, runDir)

	for _, sub := range []string{"tmp", "data", "plots/times", "plots/averages"} {
		assert.DirExists(t, filepath.Join(runDir, sub))
	}

	audit, err := os.ReadFile(filepath.Join(runDir, runlog.DefaultAuditFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(audit), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "small\t100,200\t2,4\t10\t3\t42\tuniform\tSainteLague", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ldm\t1000\t5\t10\t3\t"))
	assert.NotContains(t, lines[1], "NOW")

	log, err := os.ReadFile(filepath.Join(runDir, runlog.DefaultLogFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(log), "small 100,200 2,4 10 3 42 uniform SainteLague\n"+runlog.Separator))
	assert.True(t, strings.HasSuffix(string(log), runlog.Separator+runlog.DoneMarker))

	// The run is recorded with one invocation per experiment.
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(filepath.Join(dir, ".leapsweep", "state.db")))
	defer store.Close()
	runs, err := store.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].Experiments)
	invs, err := store.ListInvocations(runs[0].ID)
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.Equal(t, "small", invs[0].Label)
	assert.True(t, invs[0].Succeeded())
}

func TestRun_JSON(t *testing.T) {
	requireTool(t, "echo")
	dir := setupProject(t)
	useConfig(t, echoConfig)
	path := writeFile(t, dir, "exp.txt", validExperiments)

	out, stderr, err := execute(NewRunCommand(), "--json", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Performing 2 experiments...")
	assert.True(t, strings.HasPrefix(out, "{"), "stdout must hold only JSON, got %q", out)
	assert.Contains(t, out, `"records": 2`)
	assert.Contains(t, out, `"duration"`)
}

func TestRun_UnusableStateStoreStillRunsExperiments(t *testing.T) {
	requireTool(t, "echo")
	dir := setupProject(t)
	writeFile(t, dir, "blocker", "not a directory")
	useConfig(t, echoConfig+"state_path: blocker/state.db\n")
	path := writeFile(t, dir, "exp.txt", validExperiments)

	out, _, err := execute(NewRunCommand(), path)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 failed)")

	matches, err := filepath.Glob(filepath.Join(dir, "experiments_*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	audit, err := os.ReadFile(filepath.Join(matches[0], runlog.DefaultAuditFile))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(audit), "\n"))

	log, err := os.ReadFile(filepath.Join(matches[0], runlog.DefaultLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(log), "small 100,200 2,4 10 3 42 uniform SainteLague\n")
	assert.True(t, strings.HasSuffix(string(log), runlog.DoneMarker))
}

func TestRun_ReportsInvalidLinesOnceBeforeRunning(t *testing.T) {
	requireTool(t, "echo")
	dir := setupProject(t)
	useConfig(t, echoConfig)
	path := writeFile(t, dir, "exp.txt", validExperiments+"bad 1 2\n")

	var combined bytes.Buffer
	cmd := NewRunCommand()
	cmd.SetOut(&combined)
	cmd.SetErr(&combined)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	got := combined.String()
	assert.Equal(t, 1, strings.Count(got, "need eight columns"))
	diag := strings.Index(got, "need eight columns")
	progress := strings.Index(got, "Performing 2 experiments...")
	require.NotEqual(t, -1, progress)
	assert.Less(t, diag, progress)
}

func TestRun_StepFlagsReachConfig(t *testing.T) {
	dir := setupProject(t)

	cmd := NewRunCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--skip-build", "--no-plot", "--base-dir", "out"}))

	cfg, err := config.LoadConfig("", cmd.Flags())
	require.NoError(t, err)
	assert.True(t, cfg.Build.Skip)
	assert.True(t, cfg.Plot.Skip)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Run.BaseDir)
}
