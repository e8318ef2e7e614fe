// Package grouper implements spec.md §4.3: it turns a filtered suite tree
// into the flat list of TestGroups the dispatcher consumes, bucketing tests
// by worker compatibility and parallel/serial/hook semantics so that
// ordering and beforeEach/afterEach guarantees hold within each group while
// independent tests can still run across workers.
package grouper

import "github.com/stagewright/stagewright/internal/model"

// key identifies one (workerHash, requireFile, repeatEachIndex, projectId)
// bucket. Every group emitted from the same bucket shares these four
// fields, satisfying the "group purity" invariant.
type key struct {
	workerHash      string
	requireFile     string
	repeatEachIndex int
	projectID       string
}

type bucket struct {
	key               key
	general           []*model.TestCase
	parallel          map[any][]*model.TestCase
	parallelOrder     []any // preserves first-seen order for deterministic emission
	parallelWithHooks []*model.TestCase
}

func newBucket(k key) *bucket {
	return &bucket{key: k, parallel: make(map[any][]*model.TestCase)}
}

// Group walks every TestCase reachable from root and emits the flat list of
// TestGroups described in spec.md §4.3. workers must be >= 1.
func Group(root *model.Suite, workers int) []*model.TestGroup {
	if workers < 1 {
		workers = 1
	}

	buckets := make(map[key]*bucket)
	var order []key

	for _, t := range root.AllTests() {
		k := key{
			workerHash:      t.WorkerHash,
			requireFile:     t.RequireFile,
			repeatEachIndex: t.RepeatEachIndex,
			projectID:       t.ProjectID,
		}
		b, ok := buckets[k]
		if !ok {
			b = newBucket(k)
			buckets[k] = b
			order = append(order, k)
		}
		placeTest(b, t)
	}

	var groups []*model.TestGroup
	for _, k := range order {
		b := buckets[k]

		if len(b.general) > 0 {
			groups = append(groups, newGroup(b.key, b.general))
		}
		for _, pk := range b.parallelOrder {
			groups = append(groups, newGroup(b.key, b.parallel[pk]))
		}
		groups = append(groups, chunkParallelWithHooks(b.key, b.parallelWithHooks, workers)...)
	}

	return groups
}

// placeTest classifies t by walking its ancestor chain once, then adds it to
// the appropriate bucket container per the spec.md §4.3 decision table.
func placeTest(b *bucket, t *model.TestCase) {
	insideParallel := false
	var outerMostSerial *model.Suite
	hasAllHooks := false

	for cur := t.Parent; cur != nil; cur = cur.Parent {
		if cur.ParallelMode == model.ParallelModeParallel {
			insideParallel = true
		}
		if cur.ParallelMode == model.ParallelModeSerial {
			outerMostSerial = cur // keep overwriting: last assignment (outermost) wins
		}
		for _, h := range cur.Hooks {
			if h.Type == model.HookBeforeAll || h.Type == model.HookAfterAll {
				hasAllHooks = true
			}
		}
	}

	switch {
	case !insideParallel:
		b.general = append(b.general, t)
	case hasAllHooks && outerMostSerial == nil:
		b.parallelWithHooks = append(b.parallelWithHooks, t)
	default:
		var pk any = t
		if outerMostSerial != nil {
			pk = outerMostSerial
		}
		if _, ok := b.parallel[pk]; !ok {
			b.parallelOrder = append(b.parallelOrder, pk)
		}
		b.parallel[pk] = append(b.parallel[pk], t)
	}
}

func newGroup(k key, tests []*model.TestCase) *model.TestGroup {
	run := model.RunDefault
	if len(tests) > 0 && tests[0].Parent != nil {
		if p := findProject(tests[0].Parent); p != nil {
			run = p.Run
		}
	}
	return &model.TestGroup{
		WorkerHash:      k.workerHash,
		RequireFile:     k.requireFile,
		RepeatEachIndex: k.repeatEachIndex,
		ProjectID:       k.projectID,
		Run:             run,
		Tests:           tests,
	}
}

func findProject(s *model.Suite) *model.Project {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == model.KindProject && cur.Project != nil {
			return cur.Project
		}
	}
	return nil
}

// chunkParallelWithHooks splits tests into contiguous chunks of size
// ceil(len(tests)/workers), each emitted as one group, per spec.md §4.3.
func chunkParallelWithHooks(k key, tests []*model.TestCase, workers int) []*model.TestGroup {
	if len(tests) == 0 {
		return nil
	}
	chunkSize := (len(tests) + workers - 1) / workers
	if chunkSize < 1 {
		chunkSize = 1
	}

	var groups []*model.TestGroup
	for start := 0; start < len(tests); start += chunkSize {
		end := start + chunkSize
		if end > len(tests) {
			end = len(tests)
		}
		groups = append(groups, newGroup(k, tests[start:end]))
	}
	return groups
}
