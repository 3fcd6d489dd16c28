// Package build produces release artifacts: source distributions and wheels for every
// selected project, a scratch virtual environment with a test install, and frozen
// per-platform binaries packed into one archive per project.
//
// The pipelines abort on the first failing step. Nothing is rolled back; partially
// written artifacts stay in the dist directory until the next run clears it.
package build

import (
	"context"
	"fmt"
	"io"
	"os"

	"rtool/pkg/config"
	"rtool/pkg/exec"
	"rtool/pkg/logx"
	"rtool/pkg/metrics"
	"rtool/pkg/naming"
	"rtool/pkg/version"
)

// VersionSource reads the current release version.
type VersionSource interface {
	Get() (version.Version, error)
}

// Pipeline builds source and binary distributions.
type Pipeline struct {
	cfg      *config.Config
	executor exec.Executor
	versions VersionSource
	metrics  metrics.Recorder
	logger   *logx.Logger
	out      io.Writer
}

// NewPipeline creates a build pipeline. Tool output shown to the user goes to out.
func NewPipeline(cfg *config.Config, executor exec.Executor, versions VersionSource, rec metrics.Recorder, out io.Writer) *Pipeline {
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{
		cfg:      cfg,
		executor: executor,
		versions: versions,
		metrics:  metrics.OrNop(rec),
		logger:   logx.NewLogger("build"),
		out:      out,
	}
}

// Sdist builds source distributions and wheels into a freshly emptied dist directory,
// installs them into a fresh virtual environment and smoke tests every tool.
func (p *Pipeline) Sdist(ctx context.Context, projects []config.Project) (err error) {
	done := metrics.Stage(p.metrics, "sdist")
	defer func() { done(err) }()

	p.logger.Info("🏗️  Building release...")
	if err := removeTree(p.cfg.DistDir); err != nil {
		return err
	}

	for i := range projects {
		project := &projects[i]
		p.logger.Info("📦 Creating %s source distribution...", project.Name)
		argv := []string{
			p.cfg.Python, "./setup.py", "-q",
			"sdist", "--dist-dir", p.cfg.DistDir, "--formats=gztar",
			"bdist_wheel", "--dist-dir", p.cfg.DistDir,
		}
		if err := p.run(ctx, project.Dir, argv); err != nil {
			return fmt.Errorf("failed to build %s distributions: %w", project.Name, err)
		}
	}

	p.logger.Info("🐍 Creating virtualenv for test install...")
	if err := removeTree(p.cfg.VenvDir()); err != nil {
		return err
	}
	if err := p.run(ctx, p.cfg.ReleaseDir, []string{p.cfg.Virtualenv, "-q", p.cfg.VenvDir()}); err != nil {
		return fmt.Errorf("failed to create virtualenv: %w", err)
	}

	v, err := p.versions.Get()
	if err != nil {
		return err
	}

	// Installs run from the dist directory in configuration order so that
	// dependencies between projects resolve against the fresh sdists.
	for i := range projects {
		project := &projects[i]
		p.logger.Info("📥 Installing %s...", project.Name)
		argv := []string{p.cfg.VenvTool("pip"), "install", "-q", naming.SdistName(project.Name, v.String())}
		if err := p.run(ctx, p.cfg.DistDir, argv); err != nil {
			return fmt.Errorf("failed to install %s: %w", project.Name, err)
		}
	}

	p.logger.Info("🧪 Running binaries...")
	for i := range projects {
		for _, tool := range projects[i].ToolsFor(p.cfg.Platform) {
			executable := p.cfg.VenvTool(tool)
			fmt.Fprintf(p.out, "> %s --version\n", executable)
			output, err := exec.Output(ctx, p.executor, []string{executable, "--version"}, exec.Opts{Dir: p.cfg.DistDir})
			if err != nil {
				return fmt.Errorf("smoke test of %s failed: %w", tool, err)
			}
			fmt.Fprintln(p.out, output)
		}
	}

	fmt.Fprintln(p.out, "Virtualenv available for further testing:")
	fmt.Fprintf(p.out, "source %s\n", p.cfg.ActivateScript())
	return nil
}

func (p *Pipeline) run(ctx context.Context, dir string, argv []string) error {
	_, err := p.executor.Run(ctx, argv, exec.Opts{Dir: dir})
	return err
}

func removeTree(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}
