package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rtool/pkg/preflight"
)

func (a *App) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the working tree, required tools and the version file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: runE(func(ctx context.Context, _ []string) error {
			if err := a.setup(ctx); err != nil {
				return err
			}
			results := a.checker().Run(ctx, preflight.AllChecks()...)
			fmt.Fprint(a.out, preflight.FormatResults(results))
			fmt.Fprintln(a.out, results.Summary)
			if results.Passed {
				return nil
			}

			var errs []error
			for i := range results.Checks {
				if !results.Checks[i].Passed {
					errs = append(errs, results.Checks[i].Error)
				}
			}
			return fmt.Errorf("%s: %w", results.Summary, errors.Join(errs...))
		}),
	}
}
