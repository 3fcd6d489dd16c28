package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"rtool/pkg/exec"
)

// ExecCall records the parameters of an Executor.Run call.
type ExecCall struct {
	Dir  string
	Argv []string
	Env  []string
}

// Command returns the call's argv joined by spaces.
func (c ExecCall) Command() string {
	return strings.Join(c.Argv, " ")
}

// MockExecutor implements exec.Executor for testing.
// By default every command succeeds with empty output.
type MockExecutor struct {
	// RunFunc is called when Run is invoked. Override to customize behavior.
	RunFunc func(ctx context.Context, argv []string, opts exec.Opts) (exec.Result, error)

	// Calls tracks all calls to Run for verification.
	Calls []ExecCall

	mu sync.Mutex
}

// NewMockExecutor creates a new mock executor with default behavior.
func NewMockExecutor() *MockExecutor {
	m := &MockExecutor{}
	m.RunFunc = func(_ context.Context, _ []string, _ exec.Opts) (exec.Result, error) {
		return exec.Result{}, nil
	}
	return m
}

// Name implements exec.Executor.
func (m *MockExecutor) Name() string {
	return "mock"
}

// Run implements exec.Executor.
func (m *MockExecutor) Run(ctx context.Context, argv []string, opts exec.Opts) (exec.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, ExecCall{
		Dir:  opts.Dir,
		Argv: append([]string(nil), argv...),
		Env:  append([]string(nil), opts.Env...),
	})
	m.mu.Unlock()

	result, err := m.RunFunc(ctx, argv, opts)
	if err == nil && opts.Stdout != nil && result.Stdout != "" {
		_, _ = opts.Stdout.Write([]byte(result.Stdout))
	}
	return result, err
}

// OnRun sets a custom handler for Run calls.
func (m *MockExecutor) OnRun(fn func(ctx context.Context, argv []string, opts exec.Opts) (exec.Result, error)) {
	m.RunFunc = fn
}

// FailWhen makes matching commands exit with status 1. Other commands succeed.
func (m *MockExecutor) FailWhen(match func(argv []string) bool) {
	m.RunFunc = func(_ context.Context, argv []string, opts exec.Opts) (exec.Result, error) {
		if match(argv) {
			return exec.Result{ExitCode: 1}, &exec.ProcessError{
				Argv:     argv,
				Dir:      opts.Dir,
				ExitCode: 1,
				Err:      fmt.Errorf("exit status 1"),
			}
		}
		return exec.Result{}, nil
	}
}

// Commands returns the recorded argv of every call, joined by spaces.
func (m *MockExecutor) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.Command()
	}
	return out
}

// Snapshot returns a copy of the recorded calls.
func (m *MockExecutor) Snapshot() []ExecCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecCall(nil), m.Calls...)
}
