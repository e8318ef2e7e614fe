// Package cli implements the Cobra command hierarchy for the stagewright
// CLI: the root command handles cross-cutting concerns (logging setup,
// exit-code extraction) and delegates actual orchestration to internal/app.
package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stagewright/stagewright/internal/config"
	"github.com/stagewright/stagewright/internal/model"
)

// flagValues holds the parsed global flag values, populated by
// config.BindFlags during command initialization and validated in
// PersistentPreRunE.
var flagValues *config.FlagValues

var rootCmd = &cobra.Command{
	Use:   "stagewright",
	Short: "Run end-to-end test suites in staged, sharded, parallel waves.",
	Long: `Stagewright discovers test files across one or more projects, groups
them into the minimal set of worker-sharing units, applies a sharding
policy, and dispatches them in strict stage order while honoring interrupt,
timeout, and cascading-failure semantics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateFlags(flagValues, cmd); err != nil {
			return err
		}

		level := config.ResolveLogLevel(flagValues.Quiet)
		format := config.ResolveLogFormat()
		config.SetupLogging(level, format)

		slog.Debug("logging initialized", "level", level, "format", format)
		return nil
	},
	// Running stagewright with no subcommand is equivalent to `stagewright test`.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTest(cmd, args)
	},
}

func init() {
	flagValues = config.BindFlags(rootCmd)

	rootCmd.RegisterFlagCompletionFunc("update-snapshots", completeUpdateSnapshots)
	rootCmd.RegisterFlagCompletionFunc("reporter", completeReporter)
}

func completeUpdateSnapshots(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"all", "none", "missing"}, cobra.ShellCompDirectiveNoFileComp
}

func completeReporter(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"list", "line", "dot", "json", "junit", "null", "github", "html"}, cobra.ShellCompDirectiveNoFileComp
}

// Execute runs the root command and returns an appropriate exit code. If the
// error is a *model.RunError, its Code is used; any other non-nil error
// returns ExitError (1); nil returns ExitSuccess (0).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		slog.Error(err.Error())
		return extractExitCode(err)
	}
	return int(model.ExitSuccess)
}

func extractExitCode(err error) int {
	if err == nil {
		return int(model.ExitSuccess)
	}
	var runErr *model.RunError
	if errors.As(err, &runErr) {
		return int(runErr.Code)
	}
	return int(model.ExitError)
}

// RootCmd returns the root cobra.Command for use in testing and subcommand
// registration.
func RootCmd() *cobra.Command {
	return rootCmd
}

// GlobalFlags returns the parsed global flag values. Available after
// PersistentPreRunE has run; subcommands use this to access shared config.
func GlobalFlags() *config.FlagValues {
	return flagValues
}
