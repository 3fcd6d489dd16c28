// Package cli implements the rtool command tree. Commands can be chained in one
// invocation; they run in order on shared state and the first failure stops the chain.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"

	"github.com/spf13/cobra"

	"rtool/pkg/version"
)

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newApp(os.Stdin, os.Stdout, os.Stderr).run(ctx, args)
}

func (a *App) run(ctx context.Context, args []string) int {
	globals, segments := splitChain(a.rootCommand(), args)
	if segments == nil {
		globals, segments = args, [][]string{nil}
	}

	var err error
	for _, segment := range segments {
		root := a.rootCommand()
		root.SetArgs(append(slices.Clone(globals), segment...))
		if err = root.ExecuteContext(ctx); err != nil {
			break
		}
	}

	if closeErr := a.close(); closeErr != nil {
		a.logger.Warn("%v", closeErr)
	}
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
	}
	return ExitCodeFor(err)
}

// rootCommand builds a fresh command tree bound to the app.
func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "rtool",
		Short: "Release automation for the mitmproxy project family",
		Long: `rtool builds, freezes, publishes and tags releases of a family of Python
projects that share one version number.

Commands can be chained: rtool -p mitmproxy sdist upload-snapshot --sdist`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version.BuildVersion, version.BuildCommit, version.BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringArrayVarP(&a.globals.projects, "project", "p", nil, "Project to operate on (repeatable, default all)")
	flags.StringVar(&a.globals.releaseDir, "release-dir", envOr("RTOOL_RELEASE_DIR", "."), "Release directory holding rtool.yaml (env RTOOL_RELEASE_DIR)")
	flags.StringVar(&a.globals.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")
	flags.BoolVar(&a.globals.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		a.newContributorsCmd(),
		a.newSetVersionCmd(),
		a.newSdistCmd(),
		a.newBdistCmd(),
		a.newUploadReleaseCmd(),
		a.newUploadSnapshotCmd(),
		a.newWizardCmd(),
		a.newDoctorCmd(),
		a.newHistoryCmd(),
		a.newSecretsCmd(),
	)
	return root
}

// runE adapts an app command to cobra.
func runE(fn func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return fn(cmd.Context(), args)
	}
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}
