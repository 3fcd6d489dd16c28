// Package preflight validates the environment before a release workflow mutates anything.
// Checks are independent; Run reports every outcome, Validate fails on the first report
// with failures and keeps the sentinel errors inspectable with errors.Is.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rtool/pkg/config"
)

var (
	// ErrDirtyTree means the working tree has uncommitted changes.
	ErrDirtyTree = errors.New("working tree has uncommitted changes")

	// ErrMissingTool means a required executable is not on PATH.
	ErrMissingTool = errors.New("required tool not found")
)

// Check identifies one preflight check.
type Check string

// Available checks.
const (
	CheckCleanTree   Check = "clean-tree"
	CheckTools       Check = "tools"
	CheckVersionFile Check = "version-file"
)

// AllChecks is the order used by the doctor command.
func AllChecks() []Check {
	return []Check{CheckVersionFile, CheckTools, CheckCleanTree}
}

// CheckResult represents the outcome of a single preflight check.
type CheckResult struct {
	Error   error
	Message string
	Check   Check
	Passed  bool
}

// Results contains all preflight check results.
type Results struct {
	Summary string
	Checks  []CheckResult
	Passed  bool
}

// StatusReader reports the state of the working tree.
type StatusReader interface {
	Status(ctx context.Context) (string, error)
}

// Checker runs preflight checks against a configuration.
type Checker struct {
	cfg      *config.Config
	repo     StatusReader
	version  func() (string, error)
	lookPath func(string) (string, error)
}

// NewChecker creates a checker. readVersion returns the current version string.
func NewChecker(cfg *config.Config, repo StatusReader, readVersion func() (string, error)) *Checker {
	return &Checker{
		cfg:      cfg,
		repo:     repo,
		version:  readVersion,
		lookPath: lookPath,
	}
}

// RequiredTools lists the executables the pipelines invoke directly.
func RequiredTools(cfg *config.Config) []string {
	return []string{"git", cfg.Python, cfg.Virtualenv, cfg.UploadClient}
}

// Run executes the given checks (all of them when none are given).
func (c *Checker) Run(ctx context.Context, checks ...Check) *Results {
	if len(checks) == 0 {
		checks = AllChecks()
	}

	results := &Results{
		Checks: make([]CheckResult, 0, len(checks)),
		Passed: true,
	}

	failed := 0
	for _, check := range checks {
		result := c.runCheck(ctx, check)
		results.Checks = append(results.Checks, result)
		if !result.Passed {
			results.Passed = false
			failed++
		}
	}

	if results.Passed {
		results.Summary = fmt.Sprintf("All %d preflight checks passed", len(results.Checks))
	} else {
		results.Summary = fmt.Sprintf("%d of %d preflight checks failed", failed, len(results.Checks))
	}
	return results
}

func (c *Checker) runCheck(ctx context.Context, check Check) CheckResult {
	switch check {
	case CheckCleanTree:
		return c.checkCleanTree(ctx)
	case CheckTools:
		return c.checkTools()
	case CheckVersionFile:
		return c.checkVersionFile()
	default:
		return CheckResult{
			Check:   check,
			Message: "Unknown check",
			Error:   fmt.Errorf("unknown preflight check: %s", check),
		}
	}
}

// Validate runs the checks and returns an error if any of them fail.
// The returned error wraps every failing check's error.
func (c *Checker) Validate(ctx context.Context, checks ...Check) error {
	results := c.Run(ctx, checks...)
	if results.Passed {
		return nil
	}

	var errs []error
	var lines []string
	for i := range results.Checks {
		if !results.Checks[i].Passed {
			errs = append(errs, results.Checks[i].Error)
			lines = append(lines, strings.TrimRight(FormatCheckError(results.Checks[i]), "\n"))
		}
	}
	return &Error{errs: errs, text: strings.Join(lines, "\n")}
}

// Error aggregates failed checks.
type Error struct {
	text string
	errs []error
}

func (e *Error) Error() string {
	return e.text
}

// Unwrap exposes the individual check errors to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return e.errs
}
