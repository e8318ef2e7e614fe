package orchestrator

import (
	"context"

	"github.com/stagewright/stagewright/internal/model"
	"github.com/stagewright/stagewright/internal/plugin"
	"github.com/stagewright/stagewright/internal/signalwatch"
)

// RunGlobalSetup sets up plugins in order, each raced against watcher and
// ctx, then invokes config.GlobalSetup if present (spec.md §4.7). It
// returns the plugins that completed setup (so the caller can tear them
// down in reverse), the teardown function GlobalSetup optionally returned,
// whether setup was interrupted by a signal, and any setup error.
//
// ctx carries the run's global-timeout deadline. Per spec.md §4.6/§8
// scenario 6, the deadline only aborts the wait for a blocking plugin setup
// -- it does not cancel the plugin's own goroutine, which is left to finish
// or ignore ctx on its own; a well-behaved Plugin.Setup still selects on ctx
// itself. If ctx expires first, the race below returns immediately with
// ctx.Err() so the run doesn't hang for the plugin's full duration.
func RunGlobalSetup(
	ctx context.Context,
	plugins []plugin.Plugin,
	config *model.FullConfigInternal,
	watcher *signalwatch.Watcher,
) (completed []plugin.Plugin, globalSetupTeardown func() error, interrupted bool, err error) {
	for _, p := range plugins {
		errCh := make(chan error, 1)
		go func() { errCh <- p.Setup(ctx) }()

		select {
		case setupErr := <-errCh:
			if setupErr != nil {
				return completed, nil, false, setupErr
			}
			completed = append(completed, p)
		case <-watcher.Done():
			return completed, nil, true, nil
		case <-ctx.Done():
			return completed, nil, false, ctx.Err()
		}
	}

	if config.GlobalSetup != nil {
		setupErrCh := make(chan error, 1)
		var teardown func() error
		go func() {
			td, setupErr := config.GlobalSetup()
			teardown = td
			setupErrCh <- setupErr
		}()

		select {
		case setupErr := <-setupErrCh:
			if setupErr != nil {
				return completed, nil, false, setupErr
			}
			globalSetupTeardown = teardown
		case <-watcher.Done():
			return completed, nil, true, nil
		case <-ctx.Done():
			return completed, nil, false, ctx.Err()
		}
	}
	return completed, globalSetupTeardown, false, nil
}

// RunTeardown runs every teardown step unconditionally, in the order spec.md
// §9's Open Question resolution preserves: the globalSetup-returned
// function first, then config.GlobalTeardown, then completed plugins in
// reverse. Each step is wrapped so a failure is reported via onError and
// does not stop the remaining steps from running ("run-and-report-error").
// It returns whether any step failed.
func RunTeardown(
	ctx context.Context,
	completed []plugin.Plugin,
	globalSetupTeardown func() error,
	globalTeardown func() error,
	onError func(*model.TestError),
) bool {
	failed := false
	runAndReport := func(fn func() error) {
		if fn == nil {
			return
		}
		if err := fn(); err != nil {
			failed = true
			onError(model.NewTestError(err))
		}
	}

	runAndReport(globalSetupTeardown)
	runAndReport(globalTeardown)
	for i := len(completed) - 1; i >= 0; i-- {
		p := completed[i]
		runAndReport(func() error { return p.Teardown(ctx) })
	}
	return failed
}
