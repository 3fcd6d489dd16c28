package mocks

import (
	"context"
	"strings"
	"sync"
)

// GitRunCall records the parameters of a Git command call.
type GitRunCall struct {
	Dir  string
	Args []string
}

// MockGitRunner implements git.Runner for testing.
// Responses are scripted per git subcommand; unscripted commands succeed with empty output.
type MockGitRunner struct {
	responses map[string]gitResponse

	// RunCalls tracks all calls to Run for verification.
	RunCalls []GitRunCall

	mu sync.Mutex
}

type gitResponse struct {
	err    error
	output string
}

// NewMockGitRunner creates a new mock git runner.
func NewMockGitRunner() *MockGitRunner {
	return &MockGitRunner{responses: make(map[string]gitResponse)}
}

// Run implements git.Runner. Like a real process, it fails once ctx is done.
func (m *MockGitRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunCalls = append(m.RunCalls, GitRunCall{Dir: dir, Args: append([]string(nil), args...)})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return nil, nil
	}
	resp := m.responses[args[0]]
	return []byte(resp.output), resp.err
}

// RespondTo scripts the output of a git subcommand (e.g. "describe").
func (m *MockGitRunner) RespondTo(subcommand, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[subcommand] = gitResponse{output: output}
}

// FailCommandWith makes a git subcommand fail with err.
func (m *MockGitRunner) FailCommandWith(subcommand string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[subcommand] = gitResponse{err: err}
}

// Commands returns every recorded call as "git <args>".
func (m *MockGitRunner) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.RunCalls))
	for i, c := range m.RunCalls {
		out[i] = "git " + strings.Join(c.Args, " ")
	}
	return out
}
