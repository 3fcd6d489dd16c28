package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"rtool/pkg/build"
	"rtool/pkg/config"
	"rtool/pkg/exec"
	"rtool/pkg/git"
	"rtool/pkg/journal"
	"rtool/pkg/logx"
	"rtool/pkg/metrics"
	"rtool/pkg/preflight"
	"rtool/pkg/prompt"
	"rtool/pkg/publish"
	"rtool/pkg/version"
)

const progressWidth = 40

// globalOptions are the root flags shared by every command of a chain.
type globalOptions struct {
	releaseDir  string
	metricsFile string
	projects    []string
	debug       bool
}

// App is the state shared by the commands of one invocation.
//
//nolint:govet // Grouped by lifecycle.
type App struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	globals globalOptions
	logger  *logx.Logger

	// Collaborators left nil are created by setup.
	executor  exec.Executor
	gitRunner git.Runner
	prompter  prompt.Prompter
	dialer    func(*publish.SFTPDialer) publish.Dialer

	cfg      *config.Config
	repo     *git.Repo
	versions *version.Resolver
	recorder *metrics.PrometheusRecorder
	journal  *journal.Journal
	secrets  *config.SecretStore
	unlocked bool
	// secretsPass is kept for re-saving the store after secrets set.
	secretsPass string
	ready       bool
	runID       string
}

func newApp(in io.Reader, out, errOut io.Writer) *App {
	return &App{
		in:     in,
		out:    out,
		errOut: errOut,
		logger: logx.NewLogger("rtool"),
	}
}

// setup loads the configuration and wires the collaborators once per invocation.
func (a *App) setup(ctx context.Context) error {
	if a.ready {
		return nil
	}
	logx.SetOutput(a.errOut)
	if a.globals.debug {
		logx.SetDebug(true)
	}

	cfg, err := config.Load(a.globals.releaseDir)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.DebugState("setup", "config", cfg.ReleaseDir, string(cfg.Platform))

	if a.globals.metricsFile != "" {
		a.recorder = metrics.NewPrometheusRecorder()
	}
	if a.executor == nil {
		var observer exec.CommandObserver
		if a.recorder != nil {
			observer = a.recorder
		}
		a.executor = exec.NewLocalExec(observer)
	}
	if a.gitRunner == nil {
		a.gitRunner = git.NewDefaultRunner(a.executor)
	}
	a.repo = git.NewRepo(a.gitRunner, cfg.RootDir)
	a.versions = version.NewResolver(cfg.VersionFile, a.repo)

	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			a.logger.Warn("Journal unavailable, continuing without it: %v", err)
		} else {
			a.journal = j
		}
	}
	if a.prompter == nil {
		a.prompter = prompt.NewTerminal(a.in, a.errOut).WithContext(ctx)
	}
	if a.dialer == nil {
		a.dialer = func(d *publish.SFTPDialer) publish.Dialer { return d }
	}
	a.secrets = config.NewSecretStore(cfg.SecretsFile())
	a.ready = true
	return nil
}

// close flushes the metrics textfile and closes the journal.
func (a *App) close() error {
	var errs []error
	if a.recorder != nil && a.globals.metricsFile != "" {
		if err := a.recorder.WriteTextfile(a.globals.metricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.journal.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) metrics() metrics.Recorder {
	if a.recorder == nil {
		return metrics.Nop()
	}
	return a.recorder
}

func (a *App) pipeline() *build.Pipeline {
	return build.NewPipeline(a.cfg, a.executor, a.versions, a.metrics(), a.out)
}

func (a *App) publisher() *publish.Publisher {
	p := publish.NewPublisher(a.cfg, a.executor, a.versions, a.metrics(), a.out).
		WithProgress(publish.NewTerminalProgress(a.errOut, progressWidth))
	if a.journal != nil {
		p = p.WithJournal(a.journal, a.runID)
	}
	return p
}

func (a *App) checker() *preflight.Checker {
	return preflight.NewChecker(a.cfg, a.repo, a.currentVersion)
}

func (a *App) currentVersion() (string, error) {
	v, err := a.versions.Get()
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// tracked wraps a command that operates on the selected projects and records it
// in the journal.
func (a *App) tracked(name string, fn func(ctx context.Context, projects []config.Project, args []string) error) func(ctx context.Context, args []string) error {
	return func(ctx context.Context, args []string) (err error) {
		if err := a.setup(ctx); err != nil {
			return err
		}
		projects, err := a.cfg.Select(a.globals.projects)
		if err != nil {
			return err
		}

		a.startRun(ctx, name, projects)
		defer func() { a.finishRun(ctx, err) }()
		return fn(ctx, projects, args)
	}
}

func (a *App) startRun(ctx context.Context, name string, projects []config.Project) {
	names := make([]string, 0, len(projects))
	for i := range projects {
		names = append(names, projects[i].Name)
	}
	current, _ := a.currentVersion()

	id, err := a.journal.StartRun(ctx, name, names, current)
	if err != nil {
		a.logger.Warn("Could not record %s in the journal: %v", name, err)
	}
	a.runID = id
}

func (a *App) finishRun(ctx context.Context, runErr error) {
	status := journal.StatusFor(runErr, errors.Is(runErr, prompt.ErrAborted))
	// The command context may already be cancelled.
	if err := a.journal.FinishRun(context.WithoutCancel(ctx), a.runID, status, runErr); err != nil {
		a.logger.Warn("Could not record run result: %v", err)
	}
	a.runID = ""
}

func (a *App) requireJournal() error {
	if a.journal == nil {
		return fmt.Errorf("%w (set journal in the config file or RTOOL_JOURNAL)", journal.ErrDisabled)
	}
	return nil
}
