// Package shard implements the shard-partition arithmetic of spec.md §4.5:
// given a 1-based (current, total) shard selection and a sequence of staged
// test groups, it retains only the groups (and suite-tree entries) that fall
// within this shard's slice of the shardable test count.
package shard

import "github.com/stagewright/stagewright/internal/model"

// Stage is one ordinal's worth of groups, as produced by the stage
// collector (spec.md §4.4).
type Stage struct {
	Ordinal int
	Groups  []*model.TestGroup
}

// Filter applies spec.md §4.5 across every stage in order, returning the
// stages that still have groups after filtering (empty stages are dropped).
// Groups with Run == model.RunAlways are always retained and do not consume
// the shard window; all other groups are retained iff the running counter
// (before adding the group) falls in [from, to).
func Filter(stages []Stage, s model.Shard) []Stage {
	if s.Total <= 1 {
		return stages
	}

	shardableTotal := 0
	for _, stage := range stages {
		for _, g := range stage.Groups {
			if g.Run != model.RunAlways {
				shardableTotal += len(g.Tests)
			}
		}
	}

	from, to := Window(shardableTotal, s)

	counter := 0
	var out []Stage
	for _, stage := range stages {
		var kept []*model.TestGroup
		for _, g := range stage.Groups {
			if g.Run == model.RunAlways {
				kept = append(kept, g)
				continue
			}
			if counter >= from && counter < to {
				kept = append(kept, g)
			}
			counter += len(g.Tests)
		}
		if len(kept) > 0 {
			out = append(out, Stage{Ordinal: stage.Ordinal, Groups: kept})
		}
	}
	return out
}

// Window computes the [from, to) half-open interval of shardable-test
// indices owned by shard s out of shardableTotal shardable tests, per
// spec.md §4.5's shardSize/extraOne arithmetic.
func Window(shardableTotal int, s model.Shard) (from, to int) {
	if s.Total <= 0 {
		return 0, shardableTotal
	}
	shardSize := shardableTotal / s.Total
	extraOne := shardableTotal - shardSize*s.Total

	k := s.Current - 1
	if k < 0 {
		k = 0
	}
	min := extraOne
	if k < min {
		min = k
	}
	from = shardSize*k + min
	to = from + shardSize
	if k < extraOne {
		to++
	}
	return from, to
}

// PruneSuite retains, within suite, only TestCase leaves present in kept
// (by pointer identity) and the describe/file/project ancestors that still
// have a retained descendant, mirroring the only-semantics pruning used by
// the suite builder so entry order is preserved (spec.md §8 "entry-order
// preservation").
func PruneSuite(suite *model.Suite, kept map[*model.TestCase]bool) *model.Suite {
	clone := *suite
	clone.Entries = nil
	for _, e := range suite.Entries {
		switch v := e.(type) {
		case *model.TestCase:
			if kept[v] {
				clone.Entries = append(clone.Entries, v)
			}
		case *model.Suite:
			child := PruneSuite(v, kept)
			child.Parent = &clone
			if len(child.Entries) > 0 {
				clone.Entries = append(clone.Entries, child)
			}
		}
	}
	return &clone
}

// KeptTests collects every TestCase referenced by the groups retained
// across stages, for use with PruneSuite.
func KeptTests(stages []Stage) map[*model.TestCase]bool {
	out := make(map[*model.TestCase]bool)
	for _, stage := range stages {
		for _, g := range stage.Groups {
			for _, t := range g.Tests {
				out[t] = true
			}
		}
	}
	return out
}
