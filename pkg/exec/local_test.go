package exec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCommand struct {
	tool     string
	exitCode int
}

type fakeObserver struct {
	calls []recordedCommand
}

func (f *fakeObserver) ObserveCommand(tool string, exitCode int, _ time.Duration) {
	f.calls = append(f.calls, recordedCommand{tool: tool, exitCode: exitCode})
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestLocalExec_Run_Success(t *testing.T) {
	skipWithoutShell(t)
	observer := &fakeObserver{}
	e := NewLocalExec(observer)

	result, err := e.Run(context.Background(), []string{"echo", "hello world"}, Opts{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello world", strings.TrimSpace(result.Stdout))
	assert.Positive(t, result.Duration)
	assert.Equal(t, []recordedCommand{{tool: "echo", exitCode: 0}}, observer.calls)
}

func TestLocalExec_Run_NonZeroExit(t *testing.T) {
	skipWithoutShell(t)
	observer := &fakeObserver{}
	e := NewLocalExec(observer)

	result, err := e.Run(context.Background(), []string{"sh", "-c", "echo broken >&2; exit 3"}, Opts{})
	require.Error(t, err)

	var pe *ProcessError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.ExitCode)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, []recordedCommand{{tool: "sh", exitCode: 3}}, observer.calls)
}

func TestLocalExec_Run_MissingBinary(t *testing.T) {
	e := NewLocalExec(nil)

	_, err := e.Run(context.Background(), []string{"rtool-definitely-not-installed"}, Opts{})
	var pe *ProcessError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, -1, pe.ExitCode)
}

func TestLocalExec_Run_EmptyCommand(t *testing.T) {
	_, err := NewLocalExec(nil).Run(context.Background(), nil, Opts{})
	require.Error(t, err)
}

func TestLocalExec_Run_MissingWorkDir(t *testing.T) {
	_, err := NewLocalExec(nil).Run(context.Background(), []string{"echo"}, Opts{Dir: "/nonexistent/rtool"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "working directory does not exist")
}

func TestLocalExec_Run_WorkDirAndTee(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	var live bytes.Buffer

	result, err := NewLocalExec(nil).Run(context.Background(), []string{"pwd"}, Opts{Dir: dir, Stdout: &live})
	require.NoError(t, err)

	// Resolve symlinks (macOS /var -> /private/var).
	want, _ := os.Stat(dir)
	got, statErr := os.Stat(strings.TrimSpace(result.Stdout))
	require.NoError(t, statErr)
	assert.True(t, os.SameFile(want, got))
	assert.Equal(t, result.Stdout, live.String())
}

func TestLocalExec_Run_ScrubsPythonPath(t *testing.T) {
	skipWithoutShell(t)
	t.Setenv("PYTHONPATH", "/host/site-packages")

	out, err := Output(context.Background(), NewLocalExec(nil),
		[]string{"sh", "-c", `printf '[%s]' "$PYTHONPATH"`}, Opts{Env: []string{"RTOOL_TEST=1"}})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestLocalExec_Run_RedactsSecrets(t *testing.T) {
	skipWithoutShell(t)

	_, err := NewLocalExec(nil).Run(context.Background(),
		[]string{"sh", "-c", "echo s3cret >&2; exit 1", "-p", "s3cret"}, Opts{Redact: []string{"s3cret"}})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cret")
	assert.Contains(t, err.Error(), "****")
}

func TestBuildEnv(t *testing.T) {
	env := buildEnv([]string{"PATH=/bin", "PYTHONPATH=/x", "HOME=/root"}, []string{"EXTRA=1"})
	assert.Equal(t, []string{"PATH=/bin", "HOME=/root", "PYTHONPATH=", "EXTRA=1"}, env)
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "pip", toolName("/release/build/venv/bin/pip"))
	assert.Equal(t, "pyinstaller", toolName(`pyinstaller.exe`))
}
