package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/backhand/internal/gesture"
	"github.com/banshee-data/backhand/internal/luma"
)

// TraceRecord captures one processed tick: the six region means, the tap
// signal they reduced to, and whether the signal crossed the darkness
// threshold. The trace backs the luminance chart, calibration sampling, and
// the CSV export.
type TraceRecord struct {
	T       time.Time                          `json:"time"`
	Regions [luma.SlotCount]gesture.RegionLuma `json:"regions"`
	Signal  float64                            `json:"signal"`
	Dark    bool                               `json:"dark"`
}

// TraceRing keeps a sliding window of recent tick records. Safe for
// concurrent use.
type TraceRing struct {
	mu       sync.Mutex
	records  []TraceRecord
	capacity int
	head     int
	size     int
}

// NewTraceRing creates a trace ring with the specified capacity.
func NewTraceRing(capacity int) *TraceRing {
	if capacity < 1 {
		capacity = 1024
	}
	return &TraceRing{
		records:  make([]TraceRecord, capacity),
		capacity: capacity,
	}
}

// Add stores a record, overwriting the oldest if at capacity.
func (r *TraceRing) Add(rec TraceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[r.head] = rec
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// Size returns the current number of records stored.
func (r *TraceRing) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the maximum number of records the ring holds.
func (r *TraceRing) Capacity() int {
	return r.capacity
}

// Last returns the most recent record, if any.
func (r *TraceRing) Last() (TraceRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return TraceRecord{}, false
	}
	idx := (r.head - 1 + r.capacity) % r.capacity
	return r.records[idx], true
}

// Snapshot returns the stored records from oldest to newest.
func (r *TraceRing) Snapshot() []TraceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil
	}
	out := make([]TraceRecord, r.size)
	for i := 0; i < r.size; i++ {
		idx := (r.head - r.size + i + r.capacity) % r.capacity
		out[i] = r.records[idx]
	}
	return out
}

// Signals returns the tap-signal series from oldest to newest. Calibration
// consumes this.
func (r *TraceRing) Signals() []float64 {
	snap := r.Snapshot()
	if len(snap) == 0 {
		return nil
	}
	out := make([]float64, len(snap))
	for i, rec := range snap {
		out[i] = rec.Signal
	}
	return out
}

// WriteTraceCSV writes records as CSV: timestamp, six region means (empty
// cell for a failed sample), signal, dark flag.
func WriteTraceCSV(w io.Writer, records []TraceRecord) error {
	cw := csv.NewWriter(w)

	header := []string{"timestamp"}
	for s := luma.Slot(0); s < luma.SlotCount; s++ {
		header = append(header, s.String())
	}
	header = append(header, "signal", "dark")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{rec.T.Format(time.RFC3339Nano)}
		for _, reg := range rec.Regions {
			if reg.Valid {
				row = append(row, fmt.Sprintf("%.3f", reg.Value))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, fmt.Sprintf("%.3f", rec.Signal))
		row = append(row, fmt.Sprintf("%t", rec.Dark))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
