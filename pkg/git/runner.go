// Package git wraps the source-control operations used by release workflows:
// describing HEAD for snapshot versions, checking the working tree, tagging,
// committing, pushing, and regenerating the contributors file.
package git

import (
	"context"
	"strings"

	"rtool/pkg/exec"
	"rtool/pkg/logx"
)

// Runner provides an interface for running Git commands with dependency injection support.
type Runner interface {
	// Run executes a Git command in the specified directory and returns its stdout.
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// DefaultRunner implements Runner using the system git command.
type DefaultRunner struct {
	executor exec.Executor
	logger   *logx.Logger
	binary   string
}

// NewDefaultRunner creates a runner that invokes git through executor.
func NewDefaultRunner(executor exec.Executor) *DefaultRunner {
	return &DefaultRunner{
		executor: executor,
		binary:   "git",
		logger:   logx.NewLogger("git"),
	}
}

// Run executes a Git command.
func (g *DefaultRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	logDir := dir
	if logDir == "" {
		logDir = "."
	}
	g.logger.Debug("Executing Git command: cd %s && git %s", logDir, strings.Join(args, " "))

	argv := append([]string{g.binary}, args...)
	result, err := g.executor.Run(ctx, argv, exec.Opts{Dir: dir})
	if err != nil {
		g.logger.Debug("Git command output: %s%s", result.Stdout, result.Stderr)
		return []byte(result.Stdout), err
	}
	return []byte(result.Stdout), nil
}
