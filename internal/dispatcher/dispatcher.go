// Package dispatcher defines the Dispatcher boundary the orchestrator's
// stage loop drives (spec.md §4.6) and ships Local, a bundled
// errgroup-bounded reference implementation.
package dispatcher

import (
	"context"

	"github.com/stagewright/stagewright/internal/model"
)

// Dispatcher runs one stage's worth of test groups. Run may be called at
// most once; Stop requests an orderly drain (in-flight groups finish, no
// new ones start) and HasWorkerErrors reports whether any group failed for
// an infrastructure reason (not a plain test failure).
type Dispatcher interface {
	Run(ctx context.Context, groups []*model.TestGroup) error
	Stop(ctx context.Context) error
	HasWorkerErrors() bool
}
