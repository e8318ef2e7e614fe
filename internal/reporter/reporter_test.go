package reporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagewright/stagewright/internal/model"
)

func TestNew_UnknownReporterIsError(t *testing.T) {
	t.Parallel()
	_, err := New("does-not-exist", nil)
	require.Error(t, err)
}

func TestNew_BuiltinsAllConstruct(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"list", "line", "dot", "json", "junit", "null", "github", "html"} {
		var buf bytes.Buffer
		r, err := New(name, &buf)
		require.NoErrorf(t, err, "reporter %s", name)
		assert.NotNil(t, r)
	}
}

func TestMultiplexer_FansOutToEveryReporter(t *testing.T) {
	t.Parallel()
	var a, b bytes.Buffer
	dotA, _ := New("dot", &a)
	dotB, _ := New("dot", &b)
	mux := NewMultiplexer(dotA, dotB)

	tc := &model.TestCase{Title: "t"}
	mux.OnTestEnd(tc, &model.AttemptResult{Status: model.StatusPassed})

	assert.Equal(t, ".", a.String())
	assert.Equal(t, ".", b.String())
}

func TestListMode_OnlyPrintsAtOnBegin(t *testing.T) {
	t.Parallel()
	file := &model.Suite{Kind: model.KindFile}
	tc := &model.TestCase{Title: "alpha", Parent: file}
	file.Entries = []model.Entry{tc}

	// NewListMode writes to os.Stdout; exercise the underlying constructor
	// directly against a buffer to assert on output without touching stdio.
	var buf bytes.Buffer
	lr := newListReporter(&buf, true)
	lr.OnBegin(nil, file)
	lr.OnTestBegin(tc, &model.AttemptResult{}) // must be a no-op in list-mode-only

	assert.Equal(t, "alpha\n", buf.String())
}

func TestJSONReporter_EncodesResults(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r, err := New("json", &buf)
	require.NoError(t, err)

	tc := &model.TestCase{Title: "one"}
	r.OnTestEnd(tc, &model.AttemptResult{Status: model.StatusPassed, Duration: 5 * time.Millisecond})
	r.OnEnd(model.FullResult{Status: model.RunPassed})

	assert.Contains(t, buf.String(), `"status": "passed"`)
	assert.Contains(t, buf.String(), `"title": "one"`)
}

func TestNullReporter_NeverWrites(t *testing.T) {
	t.Parallel()
	r, err := New("null", nil)
	require.NoError(t, err)
	r.OnTestEnd(&model.TestCase{Title: "x"}, &model.AttemptResult{Status: model.StatusFailed})
	assert.False(t, r.PrintsToStdio())
}
