package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"rtool/pkg/logx"
)

// scrubbedVars are cleared in every child environment so that tools run inside the
// scratch virtual environment cannot import modules from the host installation.
var scrubbedVars = []string{"PYTHONPATH"} //nolint:gochecknoglobals

// LocalExec executes commands directly on the local system.
type LocalExec struct {
	logger   *logx.Logger
	observer CommandObserver
}

// NewLocalExec creates a new LocalExec executor. observer may be nil.
func NewLocalExec(observer CommandObserver) *LocalExec {
	return &LocalExec{
		logger:   logx.NewLogger("exec"),
		observer: observer,
	}
}

// Name returns the executor type name.
func (e *LocalExec) Name() string {
	return "local"
}

// Run executes a command locally with the given options.
func (e *LocalExec) Run(ctx context.Context, argv []string, opts Opts) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("command cannot be empty")
	}

	shown := redactArgv(argv, opts.Redact)

	if opts.Dir != "" {
		if info, err := os.Stat(opts.Dir); err != nil || !info.IsDir() {
			return Result{}, &ProcessError{
				Argv:     shown,
				Dir:      opts.Dir,
				ExitCode: -1,
				Err:      fmt.Errorf("working directory does not exist: %s", opts.Dir),
			}
		}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = buildEnv(os.Environ(), opts.Env)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = tee(&stdoutBuf, opts.Stdout)
	cmd.Stderr = tee(&stderrBuf, opts.Stderr)

	e.logger.Debug("$ %s", strings.Join(shown, " "))

	start := time.Now()
	runErr := cmd.Run()
	result := Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
	}

	if e.observer != nil {
		e.observer.ObserveCommand(toolName(argv[0]), result.ExitCode, result.Duration)
	}

	if runErr != nil {
		e.logger.Debug("Command failed after %s: %s", result.Duration, redact(runErr.Error(), opts.Redact))
		return result, &ProcessError{
			Argv:     shown,
			Dir:      opts.Dir,
			ExitCode: result.ExitCode,
			Stderr:   redact(result.Stderr, opts.Redact),
			Err:      runErr,
		}
	}
	return result, nil
}

// buildEnv returns base without the scrubbed variables, with the scrubbed variables set
// empty and extra applied last.
func buildEnv(base, extra []string) []string {
	env := make([]string, 0, len(base)+len(scrubbedVars)+len(extra))
	for _, kv := range base {
		if isScrubbed(kv) {
			continue
		}
		env = append(env, kv)
	}
	for _, name := range scrubbedVars {
		env = append(env, name+"=")
	}
	return append(env, extra...)
}

func isScrubbed(kv string) bool {
	for _, name := range scrubbedVars {
		if strings.HasPrefix(kv, name+"=") {
			return true
		}
	}
	return false
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
