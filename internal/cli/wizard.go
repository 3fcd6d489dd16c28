package cli

import (
	"context"

	"github.com/spf13/cobra"

	"rtool/pkg/config"
	"rtool/pkg/wizard"
)

func (a *App) newWizardCmd() *cobra.Command {
	var nextVersion, username, password, repository string

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Interactive release: build, test, tag, upload and bump the version",
		Args:  usageArgs(cobra.NoArgs),
		RunE: runE(a.tracked("wizard", func(ctx context.Context, projects []config.Project, _ []string) error {
			next, err := a.resolve(credential{flag: nextVersion, label: "Next version"})
			if err != nil {
				return err
			}
			creds, err := a.indexCredentials(username, password, repository)
			if err != nil {
				return err
			}

			w := wizard.New(wizard.Deps{
				Config:   a.cfg,
				Repo:     a.repo,
				Checker:  a.checker(),
				Builder:  a.pipeline(),
				Releaser: a.publisher(),
				Versions: a.versions,
				Prompter: a.prompter,
			})
			return w.Run(ctx, wizard.Options{
				NextVersion: next,
				PyInstaller: a.cfg.PyInstaller,
				Credentials: creds,
				Projects:    projects,
			})
		})),
	}

	flags := cmd.Flags()
	flags.StringVar(&nextVersion, "next-version", "", "Version to set after the release, e.g. 0.18")
	flags.StringVar(&username, "username", "", "Package index username (env PYPI_USERNAME)")
	flags.StringVar(&password, "password", "", "Package index password (env PYPI_PASSWORD)")
	flags.StringVar(&repository, "repository", "", "Upload client repository name (default from config)")
	return cmd
}
