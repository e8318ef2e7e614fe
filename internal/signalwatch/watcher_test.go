package signalwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatcher_InitiallyHasNoSignal(t *testing.T) {
	t.Parallel()
	w := newUnarmed()
	assert.False(t, w.HadSignal())
	select {
	case <-w.Done():
		t.Fatal("Done should not resolve before a signal")
	default:
	}
}

func TestWatcher_InjectedSignalResolvesDone(t *testing.T) {
	t.Parallel()
	w := newUnarmed()
	go w.run()
	Inject(w)

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("Done did not resolve after injected signal")
	}
	assert.True(t, w.HadSignal())
}

func TestWatcher_DisarmIsIdempotent(t *testing.T) {
	t.Parallel()
	w := newUnarmed()
	assert.NotPanics(t, func() {
		w.Disarm()
		w.Disarm()
	})
}

func TestWatcher_RaceAgainstOperation(t *testing.T) {
	t.Parallel()
	w := newUnarmed()
	go w.run()

	opDone := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(opDone)
	}()

	select {
	case <-w.Done():
		t.Fatal("operation should win this race")
	case <-opDone:
	}
	assert.False(t, w.HadSignal())
}
