package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/backhand/internal/timeutil"
)

func TestFrameRateCounting(t *testing.T) {
	m := NewFrameRate(timeutil.NewMockClock(time.Now()), 0)

	m.Add(1)
	m.Add(1)
	m.Add(3)
	m.AddDropped(2)

	frames, dropped := m.Totals()
	assert.Equal(t, int64(5), frames)
	assert.Equal(t, int64(2), dropped)

	// No interval has closed yet.
	assert.Equal(t, int64(0), m.Rate())
}

func TestFrameRateRollsOncePerInterval(t *testing.T) {
	original := Logf
	SetLogger(nil)
	defer SetLogger(original)

	start := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	m := NewFrameRate(clock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	m.Add(30)

	// Let Run reach its ticker before advancing the clock.
	waitUntil(t, func() bool {
		clock.Advance(time.Second)
		return m.Rate() == 30
	})

	// The open bucket restarted from zero.
	m.Add(7)
	waitUntil(t, func() bool {
		clock.Advance(time.Second)
		return m.Rate() == 7
	})

	frames, _ := m.Totals()
	assert.Equal(t, int64(37), frames)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestFrameRateAddNeverBlocks(t *testing.T) {
	// Without anyone running the roll loop, Add must still return
	// immediately.
	m := NewFrameRate(timeutil.NewMockClock(time.Now()), time.Second)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100000; i++ {
			m.Add(1)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Add blocked")
	}

	frames, _ := m.Totals()
	require.Equal(t, int64(100000), frames)
}

// waitUntil retries cond with a short sleep until it holds or the deadline
// passes. Mock ticker delivery crosses a goroutine boundary, so assertions
// poll rather than assume synchronous delivery.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}
