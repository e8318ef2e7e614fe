package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/stagewright/stagewright/internal/model"
)

func init() {
	Register("list", func(w io.Writer) Reporter { return newListReporter(resolveWriter(w), false) })
	Register("line", func(w io.Writer) Reporter { return newLineReporter(resolveWriter(w)) })
	Register("dot", func(w io.Writer) Reporter { return newDotReporter(resolveWriter(w)) })
	Register("json", func(w io.Writer) Reporter { return newJSONReporter(resolveWriter(w)) })
	Register("junit", func(w io.Writer) Reporter { return newJUnitReporter(resolveWriter(w)) })
	Register("null", func(io.Writer) Reporter { return nullReporter{} })
	Register("github", func(w io.Writer) Reporter { return newGithubReporter(resolveWriter(w)) })
	Register("html", func(w io.Writer) Reporter { return newHTMLReporter(resolveWriter(w)) })
}

func resolveWriter(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// NewListMode returns the minimal reporter spec.md §6 mandates replace
// list/line/dot when RunOptions.ListOnly is set: it prints each collected
// test's full title, any reported errors and the final run status, emitting
// no onTestBegin/onTestEnd events (satisfying the §8 round-trip property).
func NewListMode() Reporter {
	return newListReporter(os.Stdout, true)
}

// listReporter prints one line per test at onBegin; in listModeOnly it
// never touches onTestBegin/onTestEnd at all, even if the dispatcher were
// (incorrectly) invoked.
type listReporter struct {
	w            io.Writer
	listModeOnly bool
}

func newListReporter(w io.Writer, listModeOnly bool) *listReporter {
	return &listReporter{w: w, listModeOnly: listModeOnly}
}

func (r *listReporter) OnBegin(_ *model.FullConfigInternal, root *model.Suite) {
	for _, t := range root.AllTests() {
		fmt.Fprintln(r.w, t.FullTitle())
	}
}
func (r *listReporter) OnTestBegin(test *model.TestCase, result *model.AttemptResult) {
	if r.listModeOnly {
		return
	}
	fmt.Fprintf(r.w, "  %s\n", test.FullTitle())
}
func (r *listReporter) OnTestEnd(*model.TestCase, *model.AttemptResult) {}
func (r *listReporter) OnError(err *model.TestError) {
	if err != nil {
		fmt.Fprintln(r.w, "error:", err.Message)
	}
}
func (r *listReporter) OnStdOut(string)                {}
func (r *listReporter) OnEnd(result model.FullResult)  { fmt.Fprintln(r.w, result.Status) }
func (r *listReporter) OnExit()                        {}
func (r *listReporter) PrintsToStdio() bool             { return true }

// lineReporter prints one line per finished test, the teacher's CI==unset
// human default (spec.md §6: DefaultCIUnset).
type lineReporter struct{ w io.Writer }

func newLineReporter(w io.Writer) *lineReporter { return &lineReporter{w: w} }

func (r *lineReporter) OnBegin(*model.FullConfigInternal, *model.Suite) {}
func (r *lineReporter) OnTestBegin(*model.TestCase, *model.AttemptResult) {}
func (r *lineReporter) OnTestEnd(test *model.TestCase, result *model.AttemptResult) {
	fmt.Fprintf(r.w, "%-10s %s (%s)\n", result.Status, test.FullTitle(), result.Duration)
}
func (r *lineReporter) OnError(err *model.TestError) {
	if err != nil {
		fmt.Fprintln(r.w, "error:", err.Message)
	}
}
func (r *lineReporter) OnStdOut(string)               {}
func (r *lineReporter) OnEnd(result model.FullResult) { fmt.Fprintln(r.w, "result:", result.Status) }
func (r *lineReporter) OnExit()                       {}
func (r *lineReporter) PrintsToStdio() bool            { return true }

// dotReporter emits one character per finished test, the CI-set default.
type dotReporter struct{ w io.Writer }

func newDotReporter(w io.Writer) *dotReporter { return &dotReporter{w: w} }

func (r *dotReporter) OnBegin(*model.FullConfigInternal, *model.Suite) {}
func (r *dotReporter) OnTestBegin(*model.TestCase, *model.AttemptResult) {}
func (r *dotReporter) OnTestEnd(_ *model.TestCase, result *model.AttemptResult) {
	switch result.Status {
	case model.StatusPassed:
		fmt.Fprint(r.w, ".")
	case model.StatusSkipped:
		fmt.Fprint(r.w, "-")
	default:
		fmt.Fprint(r.w, "F")
	}
}
func (r *dotReporter) OnError(*model.TestError) {}
func (r *dotReporter) OnStdOut(string)          {}
func (r *dotReporter) OnEnd(result model.FullResult) {
	fmt.Fprintf(r.w, "\n%s\n", result.Status)
}
func (r *dotReporter) OnExit()            {}
func (r *dotReporter) PrintsToStdio() bool { return true }

// nullReporter discards every event.
type nullReporter struct{}

func (nullReporter) OnBegin(*model.FullConfigInternal, *model.Suite)     {}
func (nullReporter) OnTestBegin(*model.TestCase, *model.AttemptResult)   {}
func (nullReporter) OnTestEnd(*model.TestCase, *model.AttemptResult)     {}
func (nullReporter) OnError(*model.TestError)                            {}
func (nullReporter) OnStdOut(string)                                     {}
func (nullReporter) OnEnd(model.FullResult)                              {}
func (nullReporter) OnExit()                                             {}
func (nullReporter) PrintsToStdio() bool                                 { return false }

// jsonTestResult and jsonReport are the serialized shapes written by
// jsonReporter. Kept small and explicit rather than reusing model types
// directly, so wire shape changes don't ripple into the data model.
type jsonTestResult struct {
	Title    string `json:"title"`
	Status   string `json:"status"`
	Duration int64  `json:"durationMs"`
}

type jsonReport struct {
	Status string           `json:"status"`
	Tests  []jsonTestResult `json:"tests"`
}

type jsonReporter struct {
	w       io.Writer
	results []jsonTestResult
}

func newJSONReporter(w io.Writer) *jsonReporter { return &jsonReporter{w: w} }

func (r *jsonReporter) OnBegin(*model.FullConfigInternal, *model.Suite)   {}
func (r *jsonReporter) OnTestBegin(*model.TestCase, *model.AttemptResult) {}
func (r *jsonReporter) OnTestEnd(test *model.TestCase, result *model.AttemptResult) {
	r.results = append(r.results, jsonTestResult{
		Title:    test.FullTitle(),
		Status:   string(result.Status),
		Duration: result.Duration.Milliseconds(),
	})
}
func (r *jsonReporter) OnError(*model.TestError) {}
func (r *jsonReporter) OnStdOut(string)          {}
func (r *jsonReporter) OnEnd(result model.FullResult) {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jsonReport{Status: string(result.Status), Tests: r.results})
}
func (r *jsonReporter) OnExit()            {}
func (r *jsonReporter) PrintsToStdio() bool { return false }

// junitReporter writes a minimal JUnit-style XML summary.
type junitReporter struct {
	w       io.Writer
	results []jsonTestResult
}

func newJUnitReporter(w io.Writer) *junitReporter { return &junitReporter{w: w} }

func (r *junitReporter) OnBegin(*model.FullConfigInternal, *model.Suite)   {}
func (r *junitReporter) OnTestBegin(*model.TestCase, *model.AttemptResult) {}
func (r *junitReporter) OnTestEnd(test *model.TestCase, result *model.AttemptResult) {
	r.results = append(r.results, jsonTestResult{Title: test.FullTitle(), Status: string(result.Status)})
}
func (r *junitReporter) OnError(*model.TestError) {}
func (r *junitReporter) OnStdOut(string)          {}
func (r *junitReporter) OnEnd(result model.FullResult) {
	fmt.Fprintf(r.w, "<testsuite tests=\"%d\" failures=\"%d\">\n", len(r.results), countFailures(r.results))
	for _, tr := range r.results {
		fmt.Fprintf(r.w, "  <testcase name=%q status=%q/>\n", tr.Title, tr.Status)
	}
	fmt.Fprintln(r.w, "</testsuite>")
}
func (r *junitReporter) OnExit()            {}
func (r *junitReporter) PrintsToStdio() bool { return false }

func countFailures(results []jsonTestResult) int {
	n := 0
	for _, r := range results {
		if r.Status == string(model.StatusFailed) || r.Status == string(model.StatusTimedOut) {
			n++
		}
	}
	return n
}

// githubReporter emits GitHub Actions workflow-command annotations for
// failures, the CI-integration reporter named in spec.md §6.
type githubReporter struct{ w io.Writer }

func newGithubReporter(w io.Writer) *githubReporter { return &githubReporter{w: w} }

func (r *githubReporter) OnBegin(*model.FullConfigInternal, *model.Suite)   {}
func (r *githubReporter) OnTestBegin(*model.TestCase, *model.AttemptResult) {}
func (r *githubReporter) OnTestEnd(test *model.TestCase, result *model.AttemptResult) {
	if result.Status != model.StatusFailed && result.Status != model.StatusTimedOut {
		return
	}
	msg := "test failed"
	if result.Error != nil {
		msg = result.Error.Message
	}
	fmt.Fprintf(r.w, "::error title=%s::%s\n", test.FullTitle(), msg)
}
func (r *githubReporter) OnError(err *model.TestError) {
	if err != nil {
		fmt.Fprintf(r.w, "::error::%s\n", err.Message)
	}
}
func (r *githubReporter) OnStdOut(string)               {}
func (r *githubReporter) OnEnd(model.FullResult)        {}
func (r *githubReporter) OnExit()                       {}
func (r *githubReporter) PrintsToStdio() bool            { return true }

// htmlReporter accumulates results and writes a single minimal static HTML
// summary page at OnEnd. A real Playwright-style HTML report (trace viewer,
// attachments) is out of scope; this is a best-effort static summary.
type htmlReporter struct {
	w       io.Writer
	results []jsonTestResult
}

func newHTMLReporter(w io.Writer) *htmlReporter { return &htmlReporter{w: w} }

func (r *htmlReporter) OnBegin(*model.FullConfigInternal, *model.Suite)   {}
func (r *htmlReporter) OnTestBegin(*model.TestCase, *model.AttemptResult) {}
func (r *htmlReporter) OnTestEnd(test *model.TestCase, result *model.AttemptResult) {
	r.results = append(r.results, jsonTestResult{Title: test.FullTitle(), Status: string(result.Status)})
}
func (r *htmlReporter) OnError(*model.TestError) {}
func (r *htmlReporter) OnStdOut(string)          {}
func (r *htmlReporter) OnEnd(result model.FullResult) {
	fmt.Fprintf(r.w, "<html><body><h1>%s</h1><ul>\n", result.Status)
	for _, tr := range r.results {
		fmt.Fprintf(r.w, "<li>%s: %s</li>\n", tr.Title, tr.Status)
	}
	fmt.Fprintln(r.w, "</ul></body></html>")
}
func (r *htmlReporter) OnExit()            {}
func (r *htmlReporter) PrintsToStdio() bool { return false }

var (
	_ Reporter = (*listReporter)(nil)
	_ Reporter = (*lineReporter)(nil)
	_ Reporter = (*dotReporter)(nil)
	_ Reporter = nullReporter{}
	_ Reporter = (*jsonReporter)(nil)
	_ Reporter = (*junitReporter)(nil)
	_ Reporter = (*githubReporter)(nil)
	_ Reporter = (*htmlReporter)(nil)
)
