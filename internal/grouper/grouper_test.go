package grouper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagewright/stagewright/internal/model"
)

func newTest(title, workerHash, requireFile, projectID string) *model.TestCase {
	return &model.TestCase{Title: title, WorkerHash: workerHash, RequireFile: requireFile, ProjectID: projectID}
}

func TestGroup_PlainTestsGoToGeneral(t *testing.T) {
	t.Parallel()
	root := &model.Suite{Kind: model.KindRoot}
	file := &model.Suite{Kind: model.KindFile, SourceFile: "a.spec.ts", Parent: root}
	root.Entries = []model.Entry{file}
	a, b := newTest("one", "w1", "a.spec.ts", "p"), newTest("two", "w1", "a.spec.ts", "p")
	a.Parent, b.Parent = file, file
	file.Entries = []model.Entry{a, b}

	groups := Group(root, 2)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Tests, 2)
}

func TestGroup_SeparateWorkerHashesProduceSeparateBuckets(t *testing.T) {
	t.Parallel()
	root := &model.Suite{Kind: model.KindRoot}
	file := &model.Suite{Kind: model.KindFile, SourceFile: "a.spec.ts", Parent: root}
	root.Entries = []model.Entry{file}
	a, b := newTest("one", "chromium", "a.spec.ts", "chromium"), newTest("two", "firefox", "a.spec.ts", "firefox")
	a.Parent, b.Parent = file, file
	file.Entries = []model.Entry{a, b}

	groups := Group(root, 1)
	assert.Len(t, groups, 2)
}

func TestGroup_PureParallelTestsEachGetTheirOwnGroup(t *testing.T) {
	t.Parallel()
	root := &model.Suite{Kind: model.KindRoot}
	file := &model.Suite{Kind: model.KindFile, SourceFile: "a.spec.ts", Parent: root}
	parallelSuite := &model.Suite{Kind: model.KindDescribe, ParallelMode: model.ParallelModeParallel, Parent: file}
	root.Entries = []model.Entry{file}
	file.Entries = []model.Entry{parallelSuite}

	a, b := newTest("one", "w1", "a.spec.ts", "p"), newTest("two", "w1", "a.spec.ts", "p")
	a.Parent, b.Parent = parallelSuite, parallelSuite
	parallelSuite.Entries = []model.Entry{a, b}

	groups := Group(root, 4)
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.Len(t, g.Tests, 1)
	}
}

func TestGroup_SerialSuiteInsideParallelKeepsOneGroup(t *testing.T) {
	t.Parallel()
	root := &model.Suite{Kind: model.KindRoot}
	file := &model.Suite{Kind: model.KindFile, SourceFile: "a.spec.ts", Parent: root}
	parallelSuite := &model.Suite{Kind: model.KindDescribe, ParallelMode: model.ParallelModeParallel, Parent: file}
	serialSuite := &model.Suite{Kind: model.KindDescribe, ParallelMode: model.ParallelModeSerial, Parent: parallelSuite}
	root.Entries = []model.Entry{file}
	file.Entries = []model.Entry{parallelSuite}
	parallelSuite.Entries = []model.Entry{serialSuite}

	a, b := newTest("one", "w1", "a.spec.ts", "p"), newTest("two", "w1", "a.spec.ts", "p")
	a.Parent, b.Parent = serialSuite, serialSuite
	serialSuite.Entries = []model.Entry{a, b}

	groups := Group(root, 4)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Tests, 2)
}

// TestGroup_ParallelWithHooksChunking reproduces spec.md §8 scenario 4: a
// describe.parallel suite with 5 tests and a beforeAll, workers=2, should
// produce two parallelWithHooks groups of ceil(5/2)=3 and 2.
func TestGroup_ParallelWithHooksChunking(t *testing.T) {
	t.Parallel()
	root := &model.Suite{Kind: model.KindRoot}
	file := &model.Suite{Kind: model.KindFile, SourceFile: "a.spec.ts", Parent: root}
	parallelSuite := &model.Suite{
		Kind:         model.KindDescribe,
		ParallelMode: model.ParallelModeParallel,
		Hooks:        []model.Hook{{Type: model.HookBeforeAll}},
		Parent:       file,
	}
	root.Entries = []model.Entry{file}
	file.Entries = []model.Entry{parallelSuite}

	var tests []*model.TestCase
	for i := 0; i < 5; i++ {
		tc := newTest("t", "w1", "a.spec.ts", "p")
		tc.Parent = parallelSuite
		tests = append(tests, tc)
		parallelSuite.Entries = append(parallelSuite.Entries, tc)
	}

	groups := Group(root, 2)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Tests, 3)
	assert.Len(t, groups[1].Tests, 2)
}

func TestGroup_GroupPurityAcrossRepeatEachAndProject(t *testing.T) {
	t.Parallel()
	root := &model.Suite{Kind: model.KindRoot}
	file := &model.Suite{Kind: model.KindFile, SourceFile: "a.spec.ts", Parent: root}
	root.Entries = []model.Entry{file}

	a := newTest("one", "w1", "a.spec.ts", "p")
	a.RepeatEachIndex = 0
	b := newTest("one", "w1", "a.spec.ts", "p")
	b.RepeatEachIndex = 1
	a.Parent, b.Parent = file, file
	file.Entries = []model.Entry{a, b}

	groups := Group(root, 1)
	require.Len(t, groups, 2)
	for _, g := range groups {
		for _, tc := range g.Tests {
			assert.Equal(t, g.RepeatEachIndex, tc.RepeatEachIndex)
			assert.Equal(t, g.WorkerHash, tc.WorkerHash)
			assert.Equal(t, g.RequireFile, tc.RequireFile)
			assert.Equal(t, g.ProjectID, tc.ProjectID)
		}
	}
}

func TestGroup_EmptyRootYieldsNoGroups(t *testing.T) {
	t.Parallel()
	root := &model.Suite{Kind: model.KindRoot}
	assert.Empty(t, Group(root, 3))
}
