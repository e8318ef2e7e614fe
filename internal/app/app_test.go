package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagewright/stagewright/internal/model"
)

func writeSpecFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("// test"), 0o644))
	return path
}

func TestRun_EndToEndPassesWithDefaultLoader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeSpecFile(t, dir, "a.spec.ts")
	writeSpecFile(t, dir, "b.spec.ts")

	result, err := Run(context.Background(), Request{ConfigPath: dir})
	require.NoError(t, err)
	assert.Equal(t, model.RunPassed, result.Status)
}

func TestRun_NoTestsIsFatalUnlessPassWithNoTests(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	result, err := Run(context.Background(), Request{ConfigPath: dir})
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, result.Status)

	result, err = Run(context.Background(), Request{
		ConfigPath: dir,
		Options:    model.RunOptions{PassWithNoTests: true},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunPassed, result.Status)
}

func TestRun_ListOnlyNeverDispatches(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeSpecFile(t, dir, "a.spec.ts")

	result, err := Run(context.Background(), Request{
		ConfigPath: dir,
		Options:    model.RunOptions{ListOnly: true},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunPassed, result.Status)
}

func TestSelectProjects_UnknownNameErrors(t *testing.T) {
	t.Parallel()
	projects := []*model.Project{{Name: "default"}}
	_, _, err := selectProjects(projects, []string{"nope"})
	assert.Error(t, err)
}

func TestSelectProjects_CaseInsensitive(t *testing.T) {
	t.Parallel()
	projects := []*model.Project{{Name: "Default"}, {Name: "Other"}}
	kept, excluded, err := selectProjects(projects, []string{"default"})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "Default", kept[0].Name)
	assert.True(t, excluded["Other"])
}

func TestFilterByFileArgs_NarrowsToMatchingPattern(t *testing.T) {
	t.Parallel()
	root := "/repo"
	paths := []string{"/repo/a.spec.ts", "/repo/sub/b.spec.ts"}
	kept := filterByFileArgs(root, paths, []model.TestFileFilter{{FilePattern: "sub/*.spec.ts"}})
	require.Len(t, kept, 1)
	assert.Equal(t, "/repo/sub/b.spec.ts", kept[0])
}

func TestDefaultLoader_TitlesFromBaseName(t *testing.T) {
	t.Parallel()
	suite, err := defaultLoader{}.Load(context.Background(), "/repo/login.spec.ts")
	require.NoError(t, err)
	require.Len(t, suite.Entries, 1)
	tc := suite.Entries[0].(*model.TestCase)
	assert.Equal(t, "login.spec", tc.Title)
}
