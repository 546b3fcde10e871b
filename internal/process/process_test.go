package process

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestExecExecutor_CapturesCombinedOutput(t *testing.T) {
	sh := requireShell(t)
	var out bytes.Buffer

	res, err := ExecExecutor{}.Run(context.Background(), Command{
		Name:   sh,
		Args:   []string{"-c", `echo "out $1"; echo "err $2" >&2`, "sh", "a b", "c;d"},
		Stdout: &out,
		Stderr: &out,
	})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Contains(t, out.String(), "out a b\n")
	assert.Contains(t, out.String(), "err c;d\n")
	assert.False(t, res.StartedAt.IsZero())
}

func TestExecExecutor_NonZeroExit(t *testing.T) {
	sh := requireShell(t)

	res, err := ExecExecutor{}.Run(context.Background(), Command{Name: sh, Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Success())
}

func TestExecExecutor_WorkingDir(t *testing.T) {
	sh := requireShell(t)
	dir := t.TempDir()
	var out bytes.Buffer

	_, err := ExecExecutor{}.Run(context.Background(), Command{Name: sh, Args: []string{"-c", "pwd -P"}, Dir: dir, Stdout: &out})
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out.String())
}

func TestExecExecutor_StartFailure(t *testing.T) {
	res, err := ExecExecutor{}.Run(context.Background(), Command{Name: filepath.Join(t.TempDir(), "no-such-program")})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)

	_, err = ExecExecutor{}.Run(context.Background(), Command{})
	assert.Error(t, err)
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "java", Args: []string{"-cp", "../build", "Main", "a b", "", "LDM(1,2)"}}
	assert.Equal(t, `java -cp ../build Main "a b" "" "LDM(1,2)"`, c.String())
}
