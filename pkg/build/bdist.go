package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rtool/pkg/config"
	"rtool/pkg/exec"
	"rtool/pkg/metrics"
	"rtool/pkg/naming"
)

// BdistOpts controls a binary distribution build.
type BdistOpts struct {
	// PyInstaller is the pip requirement used to install the freezing tool.
	PyInstaller string

	// UseExistingSdist skips the source distribution step and reuses the virtualenv.
	UseExistingSdist bool
}

// Bdist freezes every tool of every selected project and packs one archive per project.
// Projects without tools on this platform produce no archive.
func (p *Pipeline) Bdist(ctx context.Context, projects []config.Project, opts BdistOpts) (err error) {
	if opts.PyInstaller == "" {
		opts.PyInstaller = p.cfg.PyInstaller
	}

	if err := removeTree(p.cfg.PyInstallerTemp()); err != nil {
		return err
	}
	if err := removeTree(p.cfg.PyInstallerDist()); err != nil {
		return err
	}

	if !opts.UseExistingSdist {
		if err := p.Sdist(ctx, projects); err != nil {
			return err
		}
	}

	done := metrics.Stage(p.metrics, "bdist")
	defer func() { done(err) }()

	p.logger.Info("📥 Installing PyInstaller...")
	if err := p.run(ctx, p.cfg.ReleaseDir, []string{p.cfg.VenvTool("pip"), "install", "-q", opts.PyInstaller}); err != nil {
		return fmt.Errorf("failed to install %s: %w", opts.PyInstaller, err)
	}

	v, err := p.versions.Get()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.cfg.DistDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", p.cfg.DistDir, err)
	}

	for i := range projects {
		project := &projects[i]
		tools := project.ToolsFor(p.cfg.Platform)
		if len(tools) == 0 {
			continue
		}

		name := naming.ArchiveName(project.Name, v.String(), p.cfg.Platform)
		if err := p.packProject(ctx, filepath.Join(p.cfg.DistDir, name), tools); err != nil {
			return fmt.Errorf("failed to build %s binaries: %w", project.Name, err)
		}
		p.logger.Info("🗜️  Packed %s.", name)
	}
	return nil
}

func (p *Pipeline) packProject(ctx context.Context, archivePath string, tools []string) (err error) {
	archive, err := CreateArchive(archivePath, p.cfg.Platform)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := archive.Close(); err == nil {
			err = closeErr
		}
	}()

	for _, tool := range tools {
		p.logger.Info("🔨 Building %s binary...", tool)
		argv := []string{
			p.cfg.VenvTool("pyinstaller"),
			"--clean",
			"--workpath", p.cfg.PyInstallerTemp(),
			"--distpath", p.cfg.PyInstallerDist(),
			p.cfg.SpecFile(tool),
		}
		if err := p.run(ctx, p.cfg.ReleaseDir, argv); err != nil {
			return err
		}

		output, executable := p.frozenOutput(tool)
		fmt.Fprintf(p.out, "> %s --version\n", executable)
		if _, err := p.executor.Run(ctx, []string{executable, "--version"}, exec.Opts{Dir: p.cfg.ReleaseDir, Stdout: p.out}); err != nil {
			return fmt.Errorf("smoke test of %s failed: %w", tool, err)
		}

		if err := archive.Add(output, filepath.Base(output)); err != nil {
			return err
		}
	}
	return nil
}

// frozenOutput returns what PyInstaller produced for tool and the executable inside it.
// A one-dir build leaves a directory named after the tool holding the executable.
func (p *Pipeline) frozenOutput(tool string) (output, executable string) {
	exe := tool + p.cfg.Platform.ExeSuffix()
	dir := filepath.Join(p.cfg.PyInstallerDist(), tool)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, filepath.Join(dir, exe)
	}
	output = filepath.Join(p.cfg.PyInstallerDist(), exe)
	return output, output
}
