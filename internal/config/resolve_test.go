package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath_FileIsItsOwnConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.config.ts")
	require.NoError(t, os.WriteFile(file, []byte(""), 0o644))

	got, err := ResolveConfigPath(file)
	require.NoError(t, err)
	assert.Equal(t, file, got)
}

func TestResolveConfigPath_DirectorySearchesInOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	js := filepath.Join(dir, "stagewright.config.js")
	mjs := filepath.Join(dir, "stagewright.config.mjs")
	require.NoError(t, os.WriteFile(js, []byte(""), 0o644))
	require.NoError(t, os.WriteFile(mjs, []byte(""), 0o644))

	got, err := ResolveConfigPath(dir)
	require.NoError(t, err)
	assert.Equal(t, js, got, "ts is preferred over js/mjs, but js over mjs when ts is absent")
}

func TestResolveConfigPath_BareDirectoryIsTestingRoot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got, err := ResolveConfigPath(dir)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveConfigPath_NonExistentPathIsError(t *testing.T) {
	t.Parallel()
	_, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestResolveConfigPath_DoesNotSearchUpward(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stagewright.config.ts"), []byte(""), 0o644))
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	got, err := ResolveConfigPath(sub)
	require.NoError(t, err)
	assert.Empty(t, got, "resolver must not walk toward a parent directory")
}
