package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagewright/stagewright/internal/model"
)

func TestRunTest_PassesWithDiscoveredSpecs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.spec.ts"), []byte(""), 0o644))

	cmd := RootCmd()
	cmd.SetArgs([]string{"test", "--config", dir})
	defer cmd.SetArgs(nil)

	err := cmd.Execute()
	assert.NoError(t, err)
}

func TestRunTest_NoTestsIsAFatalRunError(t *testing.T) {
	dir := t.TempDir()

	cmd := RootCmd()
	cmd.SetArgs([]string{"test", "--config", dir})
	defer cmd.SetArgs(nil)

	err := cmd.Execute()
	require.Error(t, err)
	var runErr *model.RunError
	assert.ErrorAs(t, err, &runErr)
}

func TestRunTest_PassWithNoTestsFlagAvoidsFailure(t *testing.T) {
	dir := t.TempDir()

	cmd := RootCmd()
	cmd.SetArgs([]string{"test", "--config", dir, "--pass-with-no-tests"})
	defer cmd.SetArgs(nil)

	assert.NoError(t, cmd.Execute())
}

func TestRunTest_BadShardIsRejectedBeforeRunning(t *testing.T) {
	dir := t.TempDir()

	cmd := RootCmd()
	cmd.SetArgs([]string{"test", "--config", dir, "--shard", "nonsense"})
	defer cmd.SetArgs(nil)

	assert.Error(t, cmd.Execute())
}
