package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []call
	histograms []call
	flushes    int
}

type call struct {
	Name   string
	Value  float64
	Labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, call{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, call{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

// install swaps the global backend for the test's lifetime.
func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := current()
	fb := &fakeBackend{}
	SetBackend(fb)
	t.Cleanup(func() { SetBackend(orig) })
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := install(t)

	RecordStep("stops", StepTransform, nil, 2*time.Second)
	RecordStep("stops", StepLoad, errors.New("deadlock"), 1500*time.Millisecond)

	wantCounters := []call{
		{StepTotal, 1, Labels{"job": "stops", "step": "transform", "status": "success"}},
		{StepTotal, 1, Labels{"job": "stops", "step": "load", "status": "failure"}},
	}
	if diff := cmp.Diff(wantCounters, fb.counters); diff != "" {
		t.Fatalf("counters (-want +got):\n%s", diff)
	}
	wantHist := []call{
		{StepDuration, 2, Labels{"job": "stops", "step": "transform", "status": "success"}},
		{StepDuration, 1.5, Labels{"job": "stops", "step": "load", "status": "failure"}},
	}
	if diff := cmp.Diff(wantHist, fb.histograms); diff != "" {
		t.Fatalf("histograms (-want +got):\n%s", diff)
	}
}

func TestRecordRowAndChunks(t *testing.T) {
	fb := install(t)

	RecordRow("stops", KindRead, 3)
	RecordRow("stops", KindDropped, 0) // ignored
	RecordRow("stops", KindInserted, 5)
	RecordChunks("stops", 2)
	RecordChunks("stops", -1) // ignored

	want := []call{
		{RecordsTotal, 3, Labels{"job": "stops", "kind": "read"}},
		{RecordsTotal, 5, Labels{"job": "stops", "kind": "inserted"}},
		{ChunksTotal, 2, Labels{"job": "stops"}},
	}
	if diff := cmp.Diff(want, fb.counters); diff != "" {
		t.Fatalf("counters (-want +got):\n%s", diff)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushes != 1 {
		t.Fatalf("expected 1 flush, got %d", fb.flushes)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if current() != Backend(fb) {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
