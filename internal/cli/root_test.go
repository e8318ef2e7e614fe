package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagewright/stagewright/internal/model"
)

func TestRootCommandUse(t *testing.T) {
	assert.Equal(t, "stagewright", rootCmd.Use)
}

func TestRootCommandSilenceFlags(t *testing.T) {
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)
}

func TestRootCommandHasConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag, "root command must have --config persistent flag")
	assert.Equal(t, "c", flag.Shorthand)
	assert.Equal(t, ".", flag.DefValue)
}

func TestRootCommandHasWorkersFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("workers")
	require.NotNil(t, flag, "root command must have --workers persistent flag")
	assert.Equal(t, "j", flag.Shorthand)
}

func TestRootCommandHasShardFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("shard")
	require.NotNil(t, flag, "root command must have --shard persistent flag")
}

func TestTestAndListFilesCommandsRegistered(t *testing.T) {
	var foundTest, foundListFiles, foundVersion bool
	for _, cmd := range rootCmd.Commands() {
		switch cmd.Use {
		case "test [file-patterns...]":
			foundTest = true
		case "list-files [file-patterns...]":
			foundListFiles = true
		case "version":
			foundVersion = true
		}
	}
	assert.True(t, foundTest, "test subcommand must be registered")
	assert.True(t, foundListFiles, "list-files subcommand must be registered")
	assert.True(t, foundVersion, "version subcommand must be registered")
}

func TestExtractExitCode(t *testing.T) {
	assert.Equal(t, int(model.ExitSuccess), extractExitCode(nil))
	assert.Equal(t, int(model.ExitError), extractExitCode(errors.New("boom")))

	runErr := &model.RunError{Code: model.ExitCode(7), Message: "custom"}
	assert.Equal(t, 7, extractExitCode(runErr))
}
