package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagewright/stagewright/internal/app"
	"github.com/stagewright/stagewright/internal/config"
	"github.com/stagewright/stagewright/internal/model"
)

var testCmd = &cobra.Command{
	Use:     "test [file-patterns...]",
	Aliases: []string{"run"},
	Short:   "Run the test suites discovered under the configured projects",
	Long: `Discovers test files, groups them into worker-sharing units, applies
sharding, and dispatches them in stage order.

Running 'stagewright' with no subcommand is equivalent to running
'stagewright test'.`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	opts, err := config.ToRunOptions(flagValues, args)
	if err != nil {
		return model.NewError("invalid run options", err)
	}

	overrides, err := config.ToOverrides(flagValues, cmd)
	if err != nil {
		return model.NewError("invalid config overrides", err)
	}

	configPath, err := config.ResolveConfigPath(flagValues.Config)
	if err != nil {
		return model.NewError("resolving config path", err)
	}

	result, err := app.Run(cmd.Context(), app.Request{
		ConfigPath: configPath,
		Options:    opts,
		Overrides:  overrides,
	})
	if err != nil {
		return err
	}

	if result.Status != model.RunPassed {
		return &model.RunError{
			Code:    model.ExitError,
			Message: fmt.Sprintf("run finished with status %q", result.Status),
		}
	}
	return nil
}
