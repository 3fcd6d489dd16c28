package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) newSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage the encrypted credentials store",
		Long: `Credentials stored here are used when a flag or environment variable does not
provide them. Known names: PYPI_USERNAME, PYPI_PASSWORD, SNAPSHOT_USER, SNAPSHOT_PASS.
The store password is read from RTOOL_SECRETS_PASSWORD or prompted for.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set NAME",
			Short: "Store a secret (the value is prompted for)",
			Args:  usageArgs(cobra.ExactArgs(1)),
			RunE: runE(func(ctx context.Context, args []string) error {
				if err := a.setup(ctx); err != nil {
					return err
				}
				if a.secrets.Exists() {
					if err := a.unlockSecrets(); err != nil {
						return err
					}
				} else {
					password, err := a.secretsPassword()
					if err != nil {
						return err
					}
					a.secretsPass = password
				}

				value, err := a.prompter.Password(args[0])
				if err != nil {
					return err
				}
				a.secrets.Set(args[0], value)
				if err := a.secrets.Save(a.secretsPass); err != nil {
					return err
				}
				a.unlocked = true
				a.logger.Info("🔐 Stored %s in %s", args[0], a.secrets.Path())
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored secret names",
			Args:  usageArgs(cobra.NoArgs),
			RunE: runE(func(ctx context.Context, _ []string) error {
				if err := a.setup(ctx); err != nil {
					return err
				}
				if !a.secrets.Exists() {
					fmt.Fprintln(a.out, "No secrets stored.")
					return nil
				}
				if err := a.unlockSecrets(); err != nil {
					return err
				}
				for _, name := range a.secrets.Names() {
					fmt.Fprintln(a.out, name)
				}
				return nil
			}),
		},
	)
	return cmd
}
