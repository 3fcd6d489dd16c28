// Package exec runs the external tools the release pipelines are built from:
// packaging backends, virtual environments, the freezing tool, the upload client
// and source control. Every non-zero exit becomes a *ProcessError.
package exec

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Executor defines the interface for executing external commands.
type Executor interface {
	// Run executes argv (NOT a shell string) and returns the captured result.
	// A non-zero exit status is reported as a *ProcessError together with the result.
	Run(ctx context.Context, argv []string, opts Opts) (Result, error)

	// Name returns the executor type name for logging/debugging.
	Name() string
}

// Opts contains options for command execution.
//
//nolint:govet // Configuration struct, logical grouping preferred
type Opts struct {
	// Dir is the working directory for the command. Empty means the current directory.
	Dir string

	// Env contains additional environment variables (KEY=VALUE format).
	Env []string

	// Stdout and Stderr optionally receive a live copy of the output.
	Stdout io.Writer
	Stderr io.Writer

	// Redact lists values (passwords) masked in logs and errors.
	Redact []string
}

// Result contains the result of command execution.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// CommandObserver receives one observation per finished command.
type CommandObserver interface {
	ObserveCommand(tool string, exitCode int, duration time.Duration)
}

// ProcessError reports an external command that failed to start or exited non-zero.
type ProcessError struct {
	Err      error
	Dir      string
	Stderr   string
	Argv     []string // already redacted
	ExitCode int
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("command %q failed", strings.Join(e.Argv, " "))
	if e.Dir != "" {
		msg += " in " + e.Dir
	}
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit status %d", e.ExitCode)
	}
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	if tail := lastLines(e.Stderr, 5); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Output runs argv and returns its trimmed standard output.
func Output(ctx context.Context, e Executor, argv []string, opts Opts) (string, error) {
	res, err := e.Run(ctx, argv, opts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// redact replaces every secret occurrence with ****.
func redact(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "****")
		}
	}
	return s
}

func redactArgv(argv, secrets []string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = redact(a, secrets)
	}
	return out
}

// toolName is the metric label for a command: the executable's base name.
func toolName(argv0 string) string {
	name := filepath.Base(argv0)
	return strings.TrimSuffix(name, ".exe")
}

func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
