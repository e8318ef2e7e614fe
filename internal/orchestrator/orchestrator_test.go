package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagewright/stagewright/internal/dispatcher"
	"github.com/stagewright/stagewright/internal/model"
	"github.com/stagewright/stagewright/internal/plugin"
)

// recordingReporter captures every call for assertions, avoiding a
// dependency on the reporter package's built-ins from orchestrator tests.
type recordingReporter struct {
	mu        sync.Mutex
	begun     bool
	errors    []*model.TestError
	ended     *model.FullResult
	skipped   []string
	testEnds  []string
}

func (r *recordingReporter) OnBegin(*model.FullConfigInternal, *model.Suite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begun = true
}
func (r *recordingReporter) OnTestBegin(*model.TestCase, *model.AttemptResult) {}
func (r *recordingReporter) OnTestEnd(test *model.TestCase, result *model.AttemptResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.testEnds = append(r.testEnds, test.Title)
	if result.Status == model.StatusSkipped {
		r.skipped = append(r.skipped, test.Title)
	}
}
func (r *recordingReporter) OnError(err *model.TestError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}
func (r *recordingReporter) OnStdOut(string) {}
func (r *recordingReporter) OnEnd(result model.FullResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = &result
}
func (r *recordingReporter) OnExit()            {}
func (r *recordingReporter) PrintsToStdio() bool { return false }

// fakeDispatcher runs each test through a fixed per-title status map, for
// deterministic stage-cascade tests.
type fakeDispatcher struct {
	statuses map[string]model.TestStatus
	ran      bool
}

func (d *fakeDispatcher) Run(_ context.Context, groups []*model.TestGroup) error {
	d.ran = true
	for _, g := range groups {
		for _, t := range g.Tests {
			status := d.statuses[t.Title]
			if status == "" {
				status = model.StatusPassed
			}
			t.Attempts = append(t.Attempts, model.AttemptResult{Status: status})
		}
	}
	return nil
}
func (d *fakeDispatcher) Stop(context.Context) error { return nil }
func (d *fakeDispatcher) HasWorkerErrors() bool       { return false }

func projectSuite(name string, stage int, run model.RunDisposition, titles ...string) *model.Suite {
	project := &model.Project{Name: name, Stage: stage, Run: run}
	file := &model.Suite{Kind: model.KindFile, SourceFile: name + ".spec.ts"}
	ps := &model.Suite{Kind: model.KindProject, Title: name, Project: project}
	ps.Entries = []model.Entry{file}
	for _, title := range titles {
		tc := &model.TestCase{Title: title, WorkerHash: name, ProjectID: name, RequireFile: file.SourceFile}
		tc.Parent = file
		file.Entries = append(file.Entries, tc)
	}
	file.Parent = ps
	return ps
}

func baseInput(root *model.Suite, statuses map[string]model.TestStatus) (*recordingReporter, RunInput) {
	rep := &recordingReporter{}
	input := RunInput{
		Config: &model.FullConfigInternal{
			Projects: collectProjects(root),
			Workers:  1,
		},
		Root:     root,
		Reporter: rep,
		NewDispatcher: func(int, dispatcher.EventSink) dispatcher.Dispatcher {
			return &fakeDispatcher{statuses: statuses}
		},
	}
	return rep, input
}

func collectProjects(root *model.Suite) []*model.Project {
	var out []*model.Project
	for _, e := range root.Entries {
		if s, ok := e.(*model.Suite); ok && s.Project != nil {
			out = append(out, s.Project)
		}
	}
	return out
}

// TestRun_TwoStageCascade reproduces spec.md §8 scenario 1: project A
// (stage 0, 3 tests, 2 fail) then project B (stage 1, 2 tests) — B's tests
// are emitted as skipped, final status failed.
func TestRun_TwoStageCascade(t *testing.T) {
	t.Parallel()
	a := projectSuite("A", 0, model.RunDefault, "a1", "a2", "a3")
	b := projectSuite("B", 1, model.RunDefault, "b1", "b2")
	root := &model.Suite{Kind: model.KindRoot, Entries: []model.Entry{a, b}}

	rep, input := baseInput(root, map[string]model.TestStatus{
		"a1": model.StatusFailed,
		"a2": model.StatusFailed,
	})

	result := Run(context.Background(), input)
	assert.Equal(t, model.RunFailed, result.Status)
	assert.ElementsMatch(t, []string{"b1", "b2"}, rep.skipped)
}

// TestRun_AlwaysRunGroupSurvivesCascade reproduces spec.md §8 scenario 3.
func TestRun_AlwaysRunGroupSurvivesCascade(t *testing.T) {
	t.Parallel()
	a := projectSuite("A", 0, model.RunDefault, "a1")
	always := projectSuite("Always", 1, model.RunAlways, "keep1")
	def := projectSuite("Def", 1, model.RunDefault, "skip1")
	root := &model.Suite{Kind: model.KindRoot, Entries: []model.Entry{a, always, def}}

	rep, input := baseInput(root, map[string]model.TestStatus{"a1": model.StatusFailed})

	result := Run(context.Background(), input)
	assert.Equal(t, model.RunFailed, result.Status)
	assert.Contains(t, rep.testEnds, "keep1")
	assert.Contains(t, rep.skipped, "skip1")
}

// TestRun_GlobalTimeoutOverridesStatus reproduces spec.md §8 scenario 6's
// status/teardown contract without an actual 10s blocking plugin: a
// NewDispatcher that blocks past the configured timeout stands in for the
// slow plugin setup.
func TestRun_GlobalTimeoutOverridesStatus(t *testing.T) {
	t.Parallel()
	a := projectSuite("A", 0, model.RunDefault, "a1")
	root := &model.Suite{Kind: model.KindRoot, Entries: []model.Entry{a}}

	rep, input := baseInput(root, nil)
	input.Config.GlobalTimeout = 20 * time.Millisecond
	input.NewDispatcher = func(int, dispatcher.EventSink) dispatcher.Dispatcher {
		return &slowDispatcher{delay: 200 * time.Millisecond}
	}

	result := Run(context.Background(), input)
	assert.Equal(t, model.RunTimedOut, result.Status)
	require.NotEmpty(t, rep.errors)
}

type slowDispatcher struct{ delay time.Duration }

func (d *slowDispatcher) Run(ctx context.Context, _ []*model.TestGroup) error {
	select {
	case <-time.After(d.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
func (d *slowDispatcher) Stop(context.Context) error { return nil }
func (d *slowDispatcher) HasWorkerErrors() bool       { return false }

// blockingPlugin.Setup never selects on ctx: it blocks for delay
// unconditionally, the way a real Plugin.Setup performing a raw blocking
// call (no context plumbing at all) would. This is deliberately the
// adversarial case RunGlobalSetup must still bound by racing the select
// against ctx itself, rather than trusting the plugin to cooperate.
type blockingPlugin struct{ delay time.Duration }

func (p *blockingPlugin) Name() string { return "blocking" }
func (p *blockingPlugin) Setup(context.Context) error {
	time.Sleep(p.delay)
	return nil
}
func (p *blockingPlugin) Teardown(context.Context) error { return nil }

// TestRun_GlobalTimeoutDuringUncooperativePluginSetup reproduces spec.md §8
// scenario 6 with a plugin whose Setup doesn't observe ctx at all: the run
// must still time out at globalTimeout rather than waiting out the
// plugin's full delay.
func TestRun_GlobalTimeoutDuringUncooperativePluginSetup(t *testing.T) {
	t.Parallel()
	a := projectSuite("A", 0, model.RunDefault, "a1")
	root := &model.Suite{Kind: model.KindRoot, Entries: []model.Entry{a}}

	rep, input := baseInput(root, nil)
	input.Config.GlobalTimeout = 20 * time.Millisecond
	input.Plugins = []plugin.Plugin{&blockingPlugin{delay: 200 * time.Millisecond}}

	start := time.Now()
	result := Run(context.Background(), input)
	elapsed := time.Since(start)

	assert.Equal(t, model.RunTimedOut, result.Status)
	require.NotEmpty(t, rep.errors)
	assert.Less(t, elapsed, 150*time.Millisecond, "Run must not wait out the plugin's full setup delay")
}

func TestRun_FatalCollectionErrorsSkipDispatchEntirely(t *testing.T) {
	t.Parallel()
	root := &model.Suite{Kind: model.KindRoot}
	rep, input := baseInput(root, nil)
	input.FatalErrors = []*model.CollectionError{model.NewCollectionError("boom")}

	result := Run(context.Background(), input)
	assert.Equal(t, model.RunFailed, result.Status)
	assert.True(t, rep.begun)
	require.Len(t, rep.errors, 1)
}

func TestRun_ListOnlyProducesNoTestEvents(t *testing.T) {
	t.Parallel()
	a := projectSuite("A", 0, model.RunDefault, "a1")
	root := &model.Suite{Kind: model.KindRoot, Entries: []model.Entry{a}}
	rep, input := baseInput(root, nil)
	input.Options.ListOnly = true

	result := Run(context.Background(), input)
	assert.Equal(t, model.RunPassed, result.Status)
	assert.Empty(t, rep.testEnds)
}

func TestRun_WorkerErrorFailsRun(t *testing.T) {
	t.Parallel()
	a := projectSuite("A", 0, model.RunDefault, "a1")
	root := &model.Suite{Kind: model.KindRoot, Entries: []model.Entry{a}}
	rep, input := baseInput(root, nil)
	input.NewDispatcher = func(int, dispatcher.EventSink) dispatcher.Dispatcher {
		return &workerErrDispatcher{}
	}

	result := Run(context.Background(), input)
	assert.Equal(t, model.RunFailed, result.Status)
	_ = rep
}

type workerErrDispatcher struct{}

func (workerErrDispatcher) Run(context.Context, []*model.TestGroup) error { return fmt.Errorf("infra blew up") }
func (workerErrDispatcher) Stop(context.Context) error                   { return nil }
func (workerErrDispatcher) HasWorkerErrors() bool                         { return true }

func TestBuildStages_OrdersByProjectStage(t *testing.T) {
	t.Parallel()
	a := projectSuite("A", 1, model.RunDefault, "a1")
	b := projectSuite("B", 0, model.RunDefault, "b1")
	root := &model.Suite{Kind: model.KindRoot, Entries: []model.Entry{a, b}}

	stages := BuildStages(root, 1)
	require.Len(t, stages, 2)
	assert.Equal(t, 0, stages[0].Ordinal)
	assert.Equal(t, 1, stages[1].Ordinal)
}
