// Package reporter defines the Reporter interface consumed by the
// orchestrator and a name-based registry replacing the dynamic,
// path-based reporter loading described in spec.md §9 Design Notes
// ("Dynamic reporter loading"). Reporters are registered at init and looked
// up by name, mirroring the teacher's flag-completion registration pattern
// in internal/cli/root.go generalized into a real lookup table.
package reporter

import (
	"fmt"
	"io"
	"sync"

	"github.com/stagewright/stagewright/internal/model"
)

// Reporter receives the run's lifecycle events. A Multiplexer fans a single
// event stream out to every configured reporter.
type Reporter interface {
	OnBegin(config *model.FullConfigInternal, root *model.Suite)
	OnTestBegin(test *model.TestCase, result *model.AttemptResult)
	OnTestEnd(test *model.TestCase, result *model.AttemptResult)
	OnError(err *model.TestError)
	OnStdOut(text string)
	OnEnd(result model.FullResult)
	OnExit()
	PrintsToStdio() bool
}

// Constructor builds a Reporter, optionally writing to w (nil means the
// reporter should pick its own default, typically os.Stdout).
type Constructor func(w io.Writer) Reporter

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register adds name to the registry. Called from each built-in reporter's
// init() and may also be called by embedders to add custom reporters.
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// New looks up name and constructs a reporter writing to w. An unknown name
// is a configuration error (spec.md §7), reported as a plain Go error since
// it is detected before onBegin is ever called.
func New(name string, w io.Writer) (Reporter, error) {
	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("reporter: unknown reporter %q", name)
	}
	return ctor(w), nil
}

// Names returns the currently registered reporter names, for --help text and
// flag completion.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}

// DefaultCIUnset and DefaultCISet are the human/dot default reporters chosen
// per spec.md §6 based on the CI environment variable.
const (
	DefaultCIUnset = "line"
	DefaultCISet   = "dot"
)

// Multiplexer fans every event to a fixed list of reporters in order,
// matching spec.md §6 ("a multiplexer fans events to all configured
// reporters").
type Multiplexer struct {
	reporters []Reporter
}

func NewMultiplexer(reporters ...Reporter) *Multiplexer {
	return &Multiplexer{reporters: reporters}
}

func (m *Multiplexer) OnBegin(config *model.FullConfigInternal, root *model.Suite) {
	for _, r := range m.reporters {
		r.OnBegin(config, root)
	}
}

func (m *Multiplexer) OnTestBegin(test *model.TestCase, result *model.AttemptResult) {
	for _, r := range m.reporters {
		r.OnTestBegin(test, result)
	}
}

func (m *Multiplexer) OnTestEnd(test *model.TestCase, result *model.AttemptResult) {
	for _, r := range m.reporters {
		r.OnTestEnd(test, result)
	}
}

func (m *Multiplexer) OnError(err *model.TestError) {
	for _, r := range m.reporters {
		r.OnError(err)
	}
}

func (m *Multiplexer) OnStdOut(text string) {
	for _, r := range m.reporters {
		r.OnStdOut(text)
	}
}

func (m *Multiplexer) OnEnd(result model.FullResult) {
	for _, r := range m.reporters {
		r.OnEnd(result)
	}
}

func (m *Multiplexer) OnExit() {
	for _, r := range m.reporters {
		r.OnExit()
	}
}

func (m *Multiplexer) PrintsToStdio() bool {
	for _, r := range m.reporters {
		if r.PrintsToStdio() {
			return true
		}
	}
	return false
}

var _ Reporter = (*Multiplexer)(nil)
