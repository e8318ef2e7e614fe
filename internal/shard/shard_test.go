package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagewright/stagewright/internal/model"
)

func tests(n int) []*model.TestCase {
	out := make([]*model.TestCase, n)
	for i := range out {
		out[i] = &model.TestCase{Title: "t"}
	}
	return out
}

// TestWindow_ScenarioFromSpec reproduces spec.md §8 scenario 2: 10 shardable
// tests, shard={current:3,total:3} → from=7, to=10.
func TestWindow_ScenarioFromSpec(t *testing.T) {
	t.Parallel()
	from, to := Window(10, model.Shard{Current: 3, Total: 3})
	assert.Equal(t, 7, from)
	assert.Equal(t, 10, to)
}

func TestWindow_FirstShardGetsExtra(t *testing.T) {
	t.Parallel()
	from, to := Window(10, model.Shard{Current: 1, Total: 3})
	assert.Equal(t, 0, from)
	assert.Equal(t, 4, to) // shardSize=3, extraOne=1, shard 1 gets the extra test
}

func TestWindow_SecondShardNoExtra(t *testing.T) {
	t.Parallel()
	from, to := Window(10, model.Shard{Current: 2, Total: 3})
	assert.Equal(t, 4, from)
	assert.Equal(t, 7, to)
}

func TestFilter_TotalOneIsIdentity(t *testing.T) {
	t.Parallel()
	stages := []Stage{{Ordinal: 0, Groups: []*model.TestGroup{{Tests: tests(5)}}}}
	out := Filter(stages, model.Shard{Current: 1, Total: 1})
	assert.Equal(t, stages, out)
}

func TestFilter_AlwaysGroupsNeverExcludedAndDoNotConsumeWindow(t *testing.T) {
	t.Parallel()
	always := &model.TestGroup{Run: model.RunAlways, Tests: tests(2)}
	shardable := &model.TestGroup{Tests: tests(10)}
	stages := []Stage{{Ordinal: 0, Groups: []*model.TestGroup{always, shardable}}}

	out := Filter(stages, model.Shard{Current: 1, Total: 3})
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Groups, always)
}

func TestFilter_DropsEmptyStagesAfterFiltering(t *testing.T) {
	t.Parallel()
	stageA := Stage{Ordinal: 0, Groups: []*model.TestGroup{{Tests: tests(10)}}}
	stageB := Stage{Ordinal: 1, Groups: []*model.TestGroup{{Tests: tests(1)}}}

	// Shard 1 of 3 over stageA's 10 tests consumes indices [0,4); stageB's
	// lone group starts at counter=10, outside shard 1's window [0,4) once
	// shardableTotal is 11 (it falls in shard 3's window [8,11)).
	out := Filter([]Stage{stageA, stageB}, model.Shard{Current: 1, Total: 3})
	for _, s := range out {
		assert.NotEqual(t, 1, s.Ordinal)
	}
}

func TestKeptTestsAndPruneSuite_PreservesEntryOrder(t *testing.T) {
	t.Parallel()
	a := &model.TestCase{Title: "a"}
	b := &model.TestCase{Title: "b"}
	c := &model.TestCase{Title: "c"}
	file := &model.Suite{Kind: model.KindFile, Entries: []model.Entry{a, b, c}}
	a.Parent, b.Parent, c.Parent = file, file, file

	stages := []Stage{{Groups: []*model.TestGroup{{Tests: []*model.TestCase{a, c}}}}}
	kept := KeptTests(stages)
	pruned := PruneSuite(file, kept)

	require.Len(t, pruned.Entries, 2)
	assert.Equal(t, "a", pruned.Entries[0].(*model.TestCase).Title)
	assert.Equal(t, "c", pruned.Entries[1].(*model.TestCase).Title)
}
