package handlers

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusflow/signals/internal/pipeline"
)

// overlapWriter fails the test if two WriteJSON calls ever overlap, the way
// the real connection would panic.
type overlapWriter struct {
	active     int32
	overlapped int32
	mu         sync.Mutex
	messages   []any
}

func (w *overlapWriter) WriteJSON(v interface{}) error {
	if atomic.AddInt32(&w.active, 1) > 1 {
		atomic.StoreInt32(&w.overlapped, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&w.active, -1)

	w.mu.Lock()
	w.messages = append(w.messages, v)
	w.mu.Unlock()
	return nil
}

func (w *overlapWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages)
}

func TestWritePumpSerializesEventsAndErrors(t *testing.T) {
	writer := &overlapWriter{}
	events := make(chan pipeline.Event)
	out := make(chan any)
	done := make(chan struct{})

	pumpDone := make(chan struct{})
	go func() {
		writePump(writer, events, out, done)
		close(pumpDone)
	}()

	const perSide = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < perSide; i++ {
			events <- pipeline.Event{Stage: "detect", Status: "running"}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < perSide; i++ {
			out <- map[string]any{"type": "error", "error": "audit already running"}
		}
	}()
	wg.Wait()

	close(done)
	select {
	case <-pumpDone:
	case <-time.After(time.Second):
		t.Fatal("writePump did not stop")
	}

	assert.Equal(t, int32(0), atomic.LoadInt32(&writer.overlapped), "concurrent WriteJSON calls")
	assert.Equal(t, 2*perSide, writer.count())
}

func TestWritePumpStopsWhenEventsClose(t *testing.T) {
	writer := &overlapWriter{}
	events := make(chan pipeline.Event)
	done := make(chan struct{})
	defer close(done)

	pumpDone := make(chan struct{})
	go func() {
		writePump(writer, events, make(chan any), done)
		close(pumpDone)
	}()

	close(events)
	select {
	case <-pumpDone:
	case <-time.After(time.Second):
		t.Fatal("writePump did not stop after events closed")
	}
}

type failingWriter struct {
	calls int32
}

func (w *failingWriter) WriteJSON(v interface{}) error {
	atomic.AddInt32(&w.calls, 1)
	return errors.New("connection gone")
}

func TestWritePumpStopsOnWriteError(t *testing.T) {
	writer := &failingWriter{}
	events := make(chan pipeline.Event, 1)
	events <- pipeline.Event{Stage: "detect"}
	done := make(chan struct{})
	defer close(done)

	pumpDone := make(chan struct{})
	go func() {
		writePump(writer, events, make(chan any), done)
		close(pumpDone)
	}()

	select {
	case <-pumpDone:
	case <-time.After(time.Second):
		t.Fatal("writePump did not stop after write error")
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&writer.calls))
}
