package pipeline

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/backhand/internal/gesture"
)

func TestEventRingWraparound(t *testing.T) {
	ring := NewEventRing(3)

	if ring.Size() != 0 {
		t.Errorf("empty ring Size() = %d, want 0", ring.Size())
	}
	if ring.Snapshot() != nil {
		t.Error("empty ring Snapshot() should be nil")
	}

	for i := 0; i < 5; i++ {
		ring.Add(EventRecord{
			ID:   string(rune('a' + i)),
			Kind: gesture.EventTap,
			Tap:  gesture.TapSingle,
			T:    testBase.Add(time.Duration(i) * time.Second),
		})
	}

	if ring.Size() != 3 {
		t.Errorf("Size() = %d, want 3", ring.Size())
	}
	if ring.Capacity() != 3 {
		t.Errorf("Capacity() = %d, want 3", ring.Capacity())
	}

	snap := ring.Snapshot()
	ids := make([]string, len(snap))
	for i, rec := range snap {
		ids[i] = rec.ID
	}
	want := []string{"c", "d", "e"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("Snapshot order mismatch (-want +got):\n%s", diff)
	}
}

func TestEventRingDefaultCapacity(t *testing.T) {
	ring := NewEventRing(0)
	if ring.Capacity() != 128 {
		t.Errorf("Capacity() = %d, want 128", ring.Capacity())
	}
}

func TestEventRecordLabel(t *testing.T) {
	tap := EventRecord{Kind: gesture.EventTap, Tap: gesture.TapDouble}
	if got := tap.Label(); got != "tap:double" {
		t.Errorf("Label() = %q, want tap:double", got)
	}
	swipe := EventRecord{Kind: gesture.EventSwipe, Swipe: gesture.SwipeLeft}
	if got := swipe.Label(); got != "swipe:left" {
		t.Errorf("Label() = %q, want swipe:left", got)
	}
}

func TestTraceRingLastAndSignals(t *testing.T) {
	ring := NewTraceRing(4)

	if _, ok := ring.Last(); ok {
		t.Error("empty ring Last() should report no record")
	}
	if ring.Signals() != nil {
		t.Error("empty ring Signals() should be nil")
	}

	for i := 0; i < 6; i++ {
		ring.Add(TraceRecord{
			T:      testBase.Add(time.Duration(i) * 33 * time.Millisecond),
			Signal: float64(100 + i),
		})
	}

	last, ok := ring.Last()
	if !ok {
		t.Fatal("Last() should report a record")
	}
	if last.Signal != 105 {
		t.Errorf("Last().Signal = %f, want 105", last.Signal)
	}

	want := []float64{102, 103, 104, 105}
	if diff := cmp.Diff(want, ring.Signals()); diff != "" {
		t.Errorf("Signals mismatch (-want +got):\n%s", diff)
	}
}
