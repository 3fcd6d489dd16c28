package cli

import (
	"errors"

	"rtool/pkg/config"
	"rtool/pkg/preflight"
	"rtool/pkg/prompt"
	"rtool/pkg/publish"
	"rtool/pkg/version"
)

// Exit codes returned by rtool.
const (
	// ExitSuccess indicates every command of the chain completed.
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure (a tool failed, an upload failed, etc.).
	ExitFailure = 1

	// ExitConfigError indicates a usage or configuration error.
	ExitConfigError = 2

	// ExitEnvError indicates an unmet precondition (dirty tree, missing tool, no tags).
	ExitEnvError = 3

	// ExitAborted indicates the user declined a confirmation or closed the input.
	ExitAborted = 4
)

// usageError marks command-line mistakes.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// ExitCodeFor maps an error returned by a command to a process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *usageError
	switch {
	case errors.Is(err, prompt.ErrAborted):
		return ExitAborted
	case errors.As(err, &usage),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrUnknownProject),
		errors.Is(err, config.ErrWrongPassword),
		errors.Is(err, version.ErrVersionFile),
		errors.Is(err, version.ErrVersionPattern),
		errors.Is(err, version.ErrInvalidVersion):
		return ExitConfigError
	case errors.Is(err, preflight.ErrDirtyTree),
		errors.Is(err, preflight.ErrMissingTool),
		errors.Is(err, version.ErrNoTags),
		errors.Is(err, publish.ErrKeyPassphrase):
		return ExitEnvError
	default:
		return ExitFailure
	}
}
