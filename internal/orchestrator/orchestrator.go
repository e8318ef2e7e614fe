package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagewright/stagewright/internal/dispatcher"
	"github.com/stagewright/stagewright/internal/model"
	"github.com/stagewright/stagewright/internal/plugin"
	"github.com/stagewright/stagewright/internal/reporter"
	"github.com/stagewright/stagewright/internal/shard"
	"github.com/stagewright/stagewright/internal/signalwatch"
)

// RunInput is everything Run needs: the fully resolved configuration, the
// already-filtered suite tree (from internal/suitebuild), any fatal
// collection errors accumulated before dispatch, the reporter, a
// dispatcher factory, and the plugins to run through the global lifecycle.
type RunInput struct {
	Config      *model.FullConfigInternal
	Options     model.RunOptions
	Root        *model.Suite
	FatalErrors []*model.CollectionError

	Reporter reporter.Reporter

	// NewDispatcher builds a fresh Dispatcher for one stage's groups. The
	// sink lets the dispatcher report onTestBegin/onTestEnd through the
	// same reporter Run already holds.
	NewDispatcher func(workers int, sink dispatcher.EventSink) dispatcher.Dispatcher

	Plugins []plugin.Plugin

	// ExcludedProjects names projects the user filtered out via
	// --project, skipped during output-directory cleanup.
	ExcludedProjects map[string]bool
}

// Run implements the ten-step control flow of spec.md §4.6.
func Run(ctx context.Context, input RunInput) model.FullResult {
	start := time.Now()
	rep := input.Reporter

	// Step 1.
	rep.OnBegin(input.Config, input.Root)

	// Step 2.
	if len(input.FatalErrors) > 0 {
		for _, e := range input.FatalErrors {
			rep.OnError(model.NewTestError(e))
		}
		return finish(rep, model.RunFailed, start)
	}

	// Step 3.
	if input.Options.ListOnly {
		return finish(rep, model.RunPassed, start)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if input.Config.GlobalTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, input.Config.GlobalTimeout)
		defer cancel()
	}

	watcher := signalwatch.New()
	defer watcher.Disarm()

	status := model.RunPassed

	// Step 4.
	if err := CleanOutputDirs(input.Config.Projects, input.ExcludedProjects); err != nil {
		rep.OnError(model.NewTestError(err))
		status = model.RunFailed
	}

	// Step 5. A deadline reached mid-setup aborts only the wait: RunGlobalSetup
	// returns immediately with context.DeadlineExceeded without cancelling the
	// plugin goroutine it raced against. That case is deliberately not
	// reported here -- the overarching deadline check at the end of Run
	// reports it once, as a single stackless timeout error, and forces
	// status=timedout regardless of what's assigned below.
	var completedPlugins []plugin.Plugin
	var globalSetupTeardown func() error
	if status == model.RunPassed && runCtx.Err() == nil {
		var interrupted bool
		var err error
		completedPlugins, globalSetupTeardown, interrupted, err = RunGlobalSetup(runCtx, input.Plugins, input.Config, watcher)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			// Handled by the deadline check below; fall through to teardown.
		case err != nil:
			rep.OnError(model.NewTestError(err))
			status = model.RunFailed
		case interrupted:
			status = model.RunInterrupted
		}
	}

	// Steps 6-9.
	if status == model.RunPassed && runCtx.Err() == nil {
		stages := BuildStages(input.Root, input.Config.Workers)
		if input.Config.Shard != nil {
			stages = shard.Filter(stages, *input.Config.Shard)
		}
		status = runStages(runCtx, stages, input, watcher)
	}

	// Step 10: teardown always runs.
	teardownFailed := RunTeardown(context.Background(), completedPlugins, globalSetupTeardown, input.Config.GlobalTeardown, rep.OnError)
	if teardownFailed && status == model.RunPassed {
		status = model.RunFailed
	}

	if runCtx.Err() == context.DeadlineExceeded {
		status = model.RunTimedOut
		rep.OnError(model.NewStacklessError(fmt.Sprintf("Timed out waiting %s for the run to complete", input.Config.GlobalTimeout)))
	}

	return finish(rep, status, start)
}

func finish(rep reporter.Reporter, status model.RunStatus, start time.Time) model.FullResult {
	result := model.FullResult{Status: status, Duration: time.Since(start)}
	rep.OnEnd(result)
	rep.OnExit()
	return result
}

// runStages implements steps 6-9: cascading stage dispatch with
// skip-non-always on failure, the per-stage signal race, and the final
// status derivation.
func runStages(ctx context.Context, stages []shard.Stage, input RunInput, watcher *signalwatch.Watcher) model.RunStatus {
	rep := input.Reporter
	previousStageFailed := false
	anyTestFailed := false

	for _, stage := range stages {
		var toRun []*model.TestGroup
		if previousStageFailed {
			for _, g := range stage.Groups {
				if g.Run == model.RunAlways {
					toRun = append(toRun, g)
				} else {
					emitSkipped(rep, g)
				}
			}
		} else {
			toRun = stage.Groups
		}

		if len(toRun) == 0 {
			// Pass-through: previousStageFailed is neither set nor cleared
			// when a stage yields zero groups and is not the last stage
			// (spec.md §9 Open Questions).
			continue
		}

		d := input.NewDispatcher(input.Config.Workers, sinkAdapter{rep})

		doneCh := make(chan error, 1)
		go func() { doneCh <- d.Run(ctx, toRun) }()

		var signaled, timedOut bool
		select {
		case err := <-doneCh:
			if err != nil {
				rep.OnError(model.NewTestError(err))
			}
		case <-watcher.Done():
			signaled = true
		case <-ctx.Done():
			// Global timeout: abort the wait without requiring the
			// dispatcher itself to observe ctx promptly. Run's overarching
			// deadline check reports the error and forces status=timedout;
			// this loop just needs to stop blocking here.
			timedOut = true
		}

		// Stop with a background context: ctx may already be expired, but the
		// dispatcher still needs a live context to act on the stop request.
		_ = d.Stop(context.Background())
		if timedOut {
			return model.RunPassed
		}
		if signaled {
			<-doneCh // allow the stage to drain before returning, per spec.md §5
			return model.RunInterrupted
		}

		if d.HasWorkerErrors() {
			return model.RunFailed
		}

		stageFailed := anyFailed(toRun)
		if stageFailed {
			anyTestFailed = true
		}
		previousStageFailed = stageFailed
	}

	if anyTestFailed {
		return model.RunFailed
	}
	return model.RunPassed
}

func anyFailed(groups []*model.TestGroup) bool {
	for _, g := range groups {
		for _, t := range g.Tests {
			if n := len(t.Attempts); n > 0 {
				switch t.Attempts[n-1].Status {
				case model.StatusFailed, model.StatusTimedOut, model.StatusInterrupted:
					return true
				}
			}
		}
	}
	return false
}

// emitSkipped reports a synthetic skipped begin/end pair for every test in
// a group that lost out to cascading failure, per spec.md §4.6 step 6.
func emitSkipped(rep reporter.Reporter, g *model.TestGroup) {
	for _, t := range g.Tests {
		rep.OnTestBegin(t, nil)
		result := model.AttemptResult{Status: model.StatusSkipped}
		t.Attempts = append(t.Attempts, result)
		rep.OnTestEnd(t, &result)
	}
}

// sinkAdapter lets a dispatcher.Dispatcher report directly through the
// run's reporter without depending on the reporter package itself.
type sinkAdapter struct {
	rep reporter.Reporter
}

func (s sinkAdapter) OnTestBegin(test *model.TestCase, result *model.AttemptResult) {
	s.rep.OnTestBegin(test, result)
}

func (s sinkAdapter) OnTestEnd(test *model.TestCase, result *model.AttemptResult) {
	s.rep.OnTestEnd(test, result)
}

var _ dispatcher.EventSink = sinkAdapter{}
