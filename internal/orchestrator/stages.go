// Package orchestrator drives the staged dispatch control flow of spec.md
// §4.6-§4.8: stage collection, shard filtering, cascading failure across
// stages, global setup/teardown, output-directory cleanup, and the
// global-timeout/signal races.
package orchestrator

import (
	"sort"

	"github.com/stagewright/stagewright/internal/grouper"
	"github.com/stagewright/stagewright/internal/model"
	"github.com/stagewright/stagewright/internal/shard"
)

// BuildStages groups root's project subtrees into TestGroups via
// internal/grouper, then bins the groups by project.Stage ordinal
// (spec.md §4.4: "projects with the same stage ordinal form one stage"),
// returning stages in ascending ordinal order.
func BuildStages(root *model.Suite, workers int) []shard.Stage {
	byStage := make(map[int][]*model.TestGroup)
	for _, e := range root.Entries {
		projectSuite, ok := e.(*model.Suite)
		if !ok || projectSuite.Project == nil {
			continue
		}
		groups := grouper.Group(projectSuite, workers)
		byStage[projectSuite.Project.Stage] = append(byStage[projectSuite.Project.Stage], groups...)
	}

	ordinals := make([]int, 0, len(byStage))
	for o := range byStage {
		ordinals = append(ordinals, o)
	}
	sort.Ints(ordinals)

	stages := make([]shard.Stage, 0, len(ordinals))
	for _, o := range ordinals {
		stages = append(stages, shard.Stage{Ordinal: o, Groups: byStage[o]})
	}
	return stages
}

// MaxConcurrentGroups returns max(|groups per stage|) across stages, the
// `_maxConcurrentTestGroups` value spec.md §9's Open Questions says should
// be computed from the shard-filtered structure (including always-run
// groups, since the source computes it that way).
func MaxConcurrentGroups(stages []shard.Stage) int {
	max := 0
	for _, s := range stages {
		if len(s.Groups) > max {
			max = len(s.Groups)
		}
	}
	return max
}
