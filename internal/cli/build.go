package cli

import (
	"context"

	"github.com/spf13/cobra"

	"rtool/pkg/build"
	"rtool/pkg/config"
)

func (a *App) newContributorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contributors",
		Short: "Regenerate the CONTRIBUTORS file from the git history",
		Args:  usageArgs(cobra.NoArgs),
		RunE: runE(a.tracked("contributors", func(ctx context.Context, _ []config.Project, _ []string) error {
			return a.repo.UpdateContributors(ctx, a.cfg.ContributorsFile())
		})),
	}
}

func (a *App) newSetVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-version VERSION",
		Short: "Rewrite the version tuple in the version file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: runE(a.tracked("set-version", func(_ context.Context, _ []config.Project, args []string) error {
			return a.versions.Set(args[0])
		})),
	}
}

func (a *App) newSdistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sdist",
		Short: "Build source and wheel distributions and smoke-test them in a fresh virtualenv",
		Args:  usageArgs(cobra.NoArgs),
		RunE: runE(a.tracked("sdist", func(ctx context.Context, projects []config.Project, _ []string) error {
			return a.pipeline().Sdist(ctx, projects)
		})),
	}
}

func (a *App) newBdistCmd() *cobra.Command {
	var useExisting bool

	cmd := &cobra.Command{
		Use:   "bdist [PYINSTALLER_VERSION]",
		Short: "Freeze the command-line tools into a platform archive per project",
		Long: `Freeze the command-line tools of each project with PyInstaller and pack them
into one archive per project. PYINSTALLER_VERSION is a pip requirement
(env PYINSTALLER_VERSION, default from the config file).`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: runE(a.tracked("bdist", func(ctx context.Context, projects []config.Project, args []string) error {
			opts := build.BdistOpts{
				PyInstaller:      a.cfg.PyInstaller,
				UseExistingSdist: useExisting,
			}
			if len(args) == 1 {
				opts.PyInstaller = args[0]
			}
			return a.pipeline().Bdist(ctx, projects, opts)
		})),
	}
	addSwitch(cmd.Flags(), &useExisting, "use-existing-sdist", false, "Reuse the sdist virtualenv instead of rebuilding it")
	return cmd
}
