// Package mocks provides shared mock implementations for testing.
//
// These mocks stand in for the external collaborators of the release pipelines
// (process execution, git, the snapshot server, the terminal) so tests never
// need python, git, or network access.
//
// # Usage
//
//	import "rtool/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    executor := mocks.NewMockExecutor()
//	    executor.FailWhen(func(argv []string) bool { return argv[0] == "virtualenv" })
//	    // Use executor in test...
//	}
//
// # Available Mocks
//
//   - MockExecutor: Mock for pkg/exec.Executor
//   - MockGitRunner: Mock for pkg/git.Runner
//   - MemoryRemoteFS: in-memory stand-in for the snapshot server session
//   - MockPrompter: scripted answers for pkg/prompt.Prompter
package mocks
