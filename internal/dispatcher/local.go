package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/stagewright/stagewright/internal/model"
)

// TestRunner executes one attempt of a TestCase and returns its result.
// Running actual test bodies is out of scope (spec.md §1 Non-goals); this
// is the injection point a real embedder supplies.
type TestRunner func(ctx context.Context, test *model.TestCase) model.AttemptResult

// EventSink receives per-test begin/end notifications as Local dispatches
// them, mirroring the reporter calls the orchestrator would otherwise have
// to interleave itself.
type EventSink interface {
	OnTestBegin(test *model.TestCase, result *model.AttemptResult)
	OnTestEnd(test *model.TestCase, result *model.AttemptResult)
}

// Local is the bundled reference Dispatcher: an errgroup-bounded goroutine
// pool sized to Workers, one goroutine per TestGroup (mirroring the
// teacher's bounded-concurrency errgroup.SetLimit pattern in
// discovery.Walker.Walk's stat phase). Tests within a group always run
// sequentially, since general and parallelWithHooks groups rely on
// beforeEach/afterEach and shared-hook ordering within the group; the
// concurrency is across groups, not within one.
type Local struct {
	Workers int
	Runner  TestRunner
	Sink    EventSink

	mu          sync.Mutex
	stopped     bool
	workerError atomic.Bool
}

func NewLocal(workers int, runner TestRunner, sink EventSink) *Local {
	if workers < 1 {
		workers = 1
	}
	if runner == nil {
		runner = defaultRunner
	}
	return &Local{Workers: workers, Runner: runner, Sink: sink}
}

func defaultRunner(context.Context, *model.TestCase) model.AttemptResult {
	return model.AttemptResult{Status: model.StatusPassed}
}

// Run dispatches every group concurrently, bounded by Workers. It returns a
// non-nil error only for infrastructure failures (a runner panic) or when
// ctx is cancelled before a test starts; plain test failures are recorded
// on each TestCase's Attempts and do not make Run return an error.
func (d *Local) Run(ctx context.Context, groups []*model.TestGroup) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)

	for _, group := range groups {
		group := group
		g.Go(func() error {
			return d.runGroup(gctx, group)
		})
	}
	return g.Wait()
}

func (d *Local) runGroup(ctx context.Context, group *model.TestGroup) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.workerError.Store(true)
			err = fmt.Errorf("dispatcher: worker panic: %v", r)
		}
	}()

	for _, test := range group.Tests {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if stopped {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.Sink != nil {
			d.Sink.OnTestBegin(test, nil)
		}
		result := d.Runner(ctx, test)
		test.Attempts = append(test.Attempts, result)
		if d.Sink != nil {
			d.Sink.OnTestEnd(test, &result)
		}
	}
	return nil
}

// Stop requests an orderly drain: in-flight groups finish their current
// test then stop picking up new ones within the group. Groups not yet
// started are still started by Run's errgroup (Stop does not cancel
// already-scheduled work; it only flips the drain flag future iterations
// observe), matching spec.md §4.6 step 7's "disarm... then call
// dispatcher.stop()" ordering where stop happens after Run already
// returned or is returning.
func (d *Local) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	return nil
}

// HasWorkerErrors reports whether any group's runner failed for an
// infrastructure reason (a panic), as opposed to a normal test failure.
func (d *Local) HasWorkerErrors() bool {
	return d.workerError.Load()
}

var _ Dispatcher = (*Local)(nil)
