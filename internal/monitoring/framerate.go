package monitoring

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/banshee-data/backhand/internal/timeutil"
)

// DefaultRateInterval is the bucket width for throughput snapshots.
const DefaultRateInterval = time.Second

// FrameRate counts delivered frames and reports the rate over the previous
// interval. Counting is a single atomic add so the frame path never blocks;
// the snapshot/reset cycle runs on its own ticker, independent of frame
// arrival.
type FrameRate struct {
	clock    timeutil.Clock
	interval time.Duration

	bucket       atomic.Int64 // frames in the open interval
	lastRate     atomic.Int64 // frames in the last closed interval
	totalFrames  atomic.Int64
	totalDropped atomic.Int64
}

// NewFrameRate builds a throughput counter. A zero interval selects
// DefaultRateInterval; a nil clock selects the real one.
func NewFrameRate(clock timeutil.Clock, interval time.Duration) *FrameRate {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval <= 0 {
		interval = DefaultRateInterval
	}
	return &FrameRate{clock: clock, interval: interval}
}

// Add records n processed frames.
func (m *FrameRate) Add(n int) {
	m.bucket.Add(int64(n))
	m.totalFrames.Add(int64(n))
}

// AddDropped records n frames that were delivered but not processed
// (busy tick, malformed frame, subscriber overflow).
func (m *FrameRate) AddDropped(n int) {
	m.totalDropped.Add(int64(n))
}

// Rate returns the frame count of the last closed interval.
func (m *FrameRate) Rate() int64 {
	return m.lastRate.Load()
}

// Totals returns the monotonic processed and dropped counters.
func (m *FrameRate) Totals() (frames, dropped int64) {
	return m.totalFrames.Load(), m.totalDropped.Load()
}

// Run snapshots and resets the open bucket once per interval until ctx is
// cancelled. It owns no goroutine itself; callers run it in one.
func (m *FrameRate) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			m.roll()
		}
	}
}

// roll closes the open bucket.
func (m *FrameRate) roll() {
	rate := m.bucket.Swap(0)
	m.lastRate.Store(rate)
	if rate > 0 {
		Logf("throughput: %d frames/interval (%d total, %d dropped)",
			rate, m.totalFrames.Load(), m.totalDropped.Load())
	}
}
