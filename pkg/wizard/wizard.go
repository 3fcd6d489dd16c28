// Package wizard drives an interactive release from a clean working tree to a published,
// tagged release and a pushed version bump, pausing for the release manager to test
// the build and to wait for CI.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"rtool/pkg/build"
	"rtool/pkg/config"
	"rtool/pkg/logx"
	"rtool/pkg/preflight"
	"rtool/pkg/prompt"
	"rtool/pkg/publish"
	"rtool/pkg/version"
)

// ErrRejected means the release manager did not approve the test build.
var ErrRejected = fmt.Errorf("release rejected: %w", prompt.ErrAborted)

// Questions asked by the wizard.
const (
	ConfirmReleaseQuestion = "Please test the release now. Is it ok?"
	WaitForCIQuestion      = "Now please wait until CI has built binaries. Finished?"
	BumpCommitMessage      = "bump version"
)

// Repo is the source-control surface used by the wizard.
type Repo interface {
	UpdateContributors(ctx context.Context, path string) error
	CheckoutPath(ctx context.Context, path string) error
	Tag(ctx context.Context, name string) error
	PushTags(ctx context.Context) error
	CommitAll(ctx context.Context, message string) error
	Push(ctx context.Context) error
}

// Checker validates preconditions.
type Checker interface {
	Validate(ctx context.Context, checks ...preflight.Check) error
}

// Builder builds the test release.
type Builder interface {
	Bdist(ctx context.Context, projects []config.Project, opts build.BdistOpts) error
}

// Releaser uploads the release to the package index.
type Releaser interface {
	UploadRelease(ctx context.Context, projects []config.Project, creds publish.IndexCredentials, opts publish.ReleaseOpts) error
}

// Versions reads and rewrites the version file.
type Versions interface {
	Get() (version.Version, error)
	Set(v string) error
}

// Deps are the collaborators of a wizard run.
type Deps struct {
	Config   *config.Config
	Repo     Repo
	Checker  Checker
	Builder  Builder
	Releaser Releaser
	Versions Versions
	Prompter prompt.Prompter
}

// Options are the inputs of one release.
type Options struct {
	NextVersion string
	PyInstaller string
	Credentials publish.IndexCredentials
	Projects    []config.Project
}

// Wizard is one release run.
type Wizard struct {
	Deps
	logger *logx.Logger
	opts   Options
	state  State
}

// New creates a wizard positioned at its first state.
func New(deps Deps) *Wizard {
	return &Wizard{
		Deps:   deps,
		logger: logx.NewLogger("wizard"),
		state:  StateCheckClean,
	}
}

// State returns the current state; after a failed run it is the state that failed.
func (w *Wizard) State() State {
	return w.state
}

// Run performs the release. The next version is validated before anything else happens.
func (w *Wizard) Run(ctx context.Context, opts Options) error {
	if _, err := version.ParseVersion(opts.NextVersion); err != nil {
		return fmt.Errorf("invalid next version: %w", err)
	}
	w.opts = opts

	for w.state != StateDone {
		if err := ctx.Err(); err != nil {
			return err
		}

		w.Prompter.Section(w.state.Title())
		w.logger.DebugState("enter", string(w.state))

		next, err := w.step(ctx)
		if err != nil {
			w.logger.DebugState("fail", string(w.state), err.Error())
			return err
		}
		if !IsValidTransition(w.state, next) {
			return fmt.Errorf("invalid wizard transition %s -> %s", w.state, next)
		}
		w.logger.DebugState("transition", string(next), "from="+string(w.state))
		w.state = next
	}

	w.logger.Info("🎉 All done!")
	return nil
}

func (w *Wizard) step(ctx context.Context) (State, error) {
	switch w.state {
	case StateCheckClean:
		if err := w.Checker.Validate(ctx, preflight.CheckCleanTree); err != nil {
			return StateError, fmt.Errorf("repository is not clean: %w", err)
		}
		return StateUpdateContributors, nil

	case StateUpdateContributors:
		if err := w.Repo.UpdateContributors(ctx, w.Config.ContributorsFile()); err != nil {
			return StateError, err
		}
		return StateTestBuild, nil

	case StateTestBuild:
		if err := w.Builder.Bdist(ctx, w.opts.Projects, build.BdistOpts{PyInstaller: w.opts.PyInstaller}); err != nil {
			return StateError, err
		}
		return StateConfirmOk, nil

	case StateConfirmOk:
		return w.confirmRelease(ctx)

	case StateTagAndPush:
		v, err := w.Versions.Get()
		if err != nil {
			return StateError, err
		}
		if err := w.Repo.Tag(ctx, "v"+v.String()); err != nil {
			return StateError, err
		}
		if err := w.Repo.PushTags(ctx); err != nil {
			return StateError, err
		}
		return StatePublishRelease, nil

	case StatePublishRelease:
		opts := publish.ReleaseOpts{Sdist: true, Wheel: true}
		if err := w.Releaser.UploadRelease(ctx, w.opts.Projects, w.opts.Credentials, opts); err != nil {
			return StateError, err
		}
		return StateWaitForCI, nil

	case StateWaitForCI:
		finished, err := w.Prompter.Confirm(WaitForCIQuestion)
		if err != nil {
			return StateError, err
		}
		if !finished {
			w.logger.Warn("Continuing without confirmed CI binaries")
		}
		return StateBumpVersion, nil

	case StateBumpVersion:
		if err := w.Versions.Set(w.opts.NextVersion); err != nil {
			return StateError, err
		}
		return StateCommitAndPush, nil

	case StateCommitAndPush:
		if err := w.Repo.CommitAll(ctx, BumpCommitMessage); err != nil {
			return StateError, err
		}
		if err := w.Repo.Push(ctx); err != nil {
			return StateError, err
		}
		return StateDone, nil

	default:
		return StateError, fmt.Errorf("unknown wizard state %s", w.state)
	}
}

// confirmRelease is the rollback point: anything but an explicit yes restores the
// contributors file and stops before anything is tagged or published.
func (w *Wizard) confirmRelease(ctx context.Context) (State, error) {
	ok, err := w.Prompter.Confirm(ConfirmReleaseQuestion)
	if err == nil && ok {
		return StateTagAndPush, nil
	}

	w.logger.Info("↩️  Reverting %s", config.ContributorsFileName)
	rejected := ErrRejected
	if err != nil && !errors.Is(err, prompt.ErrAborted) {
		rejected = fmt.Errorf("%w: %w", ErrRejected, err)
	}
	// An interrupt at the prompt cancels ctx; the revert must still run.
	if checkoutErr := w.Repo.CheckoutPath(context.WithoutCancel(ctx), config.ContributorsFileName); checkoutErr != nil {
		return StateError, errors.Join(rejected, checkoutErr)
	}
	return StateError, rejected
}
