// Package framemux provides an abstraction over a frame byte stream with the
// ability for multiple clients to subscribe to decoded frames from a single
// source. Sources speak the framed packet codec in parse.go; serial camera
// heads and synthetic generators both produce it.
package framemux

import (
	"bufio"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/backhand/internal/luma"
	"github.com/banshee-data/backhand/internal/monitoring"
	"github.com/banshee-data/backhand/internal/timeutil"
)

const (
	initialScanBuffer = 64 * 1024
	maxScanBuffer     = 2 << 20
)

// FrameEvent is one decoded frame fanned out to subscribers, stamped with
// its arrival time.
type FrameEvent struct {
	Frame *luma.Frame
	Seq   uint32
	T     time.Time
}

// Stats counts what the mux has seen since construction.
type Stats struct {
	// Decoded is the number of well-formed packets delivered to fan-out.
	Decoded int64 `json:"decoded"`
	// Rejected is the number of framed packets that failed decoding.
	Rejected int64 `json:"rejected"`
	// SeqGaps is the number of discontinuities in the sequence counter.
	SeqGaps int64 `json:"seq_gaps"`
	// Shed is the number of frame deliveries skipped because a subscriber
	// was not ready.
	Shed int64 `json:"shed"`
}

// FrameMux is a generic frame source multiplexer that allows multiple
// clients to subscribe to decoded frames from a single port.
type FrameMux[T FramePorter] struct {
	port         T
	subscribers  map[string]chan FrameEvent
	subscriberMu sync.Mutex
	closing      bool
	closingMu    sync.Mutex
	clock        timeutil.Clock

	// sequence tracking lives on the scan goroutine; counters are atomic
	// for Stats readers.
	lastSeq uint32
	haveSeq bool

	decoded  atomic.Int64
	rejected atomic.Int64
	seqGaps  atomic.Int64
	shed     atomic.Int64
}

// FrameMuxInterface defines the interface for the FrameMux type.
type FrameMuxInterface interface {
	// Subscribe creates a new channel for receiving frame events. The
	// channel ID identifies the subscription when unsubscribing.
	Subscribe() (string, chan FrameEvent)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// Monitor reads packets from the source and fans decoded frames out
	// to subscribers until the context ends or the source fails.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the source.
	Close() error
}

// NewFrameMux creates a FrameMux instance backed by the given port.
func NewFrameMux[T FramePorter](port T) *FrameMux[T] {
	return &FrameMux[T]{
		port:        port,
		subscribers: make(map[string]chan FrameEvent),
		clock:       timeutil.RealClock{},
	}
}

// Subscribe registers a new frame consumer. The channel carries a one-slot
// buffer to absorb tick-boundary jitter; a subscriber still busy when the
// next frame lands sheds that frame rather than stalling the source.
func (m *FrameMux[T]) Subscribe() (string, chan FrameEvent) {
	id := uuid.NewString()
	ch := make(chan FrameEvent, 1)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *FrameMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Stats returns the mux counters.
func (m *FrameMux[T]) Stats() Stats {
	return Stats{
		Decoded:  m.decoded.Load(),
		Rejected: m.rejected.Load(),
		SeqGaps:  m.seqGaps.Load(),
		Shed:     m.shed.Load(),
	}
}

// noteSeq tracks sequence continuity. Called only from the scan goroutine.
func (m *FrameMux[T]) noteSeq(seq uint32) {
	if m.haveSeq && seq != m.lastSeq+1 {
		gaps := m.seqGaps.Add(1)
		if gaps%50 == 1 {
			monitoring.Logf("framemux: sequence gap: got %d after %d (%d gaps total)",
				seq, m.lastSeq, gaps)
		}
	}
	m.lastSeq = seq
	m.haveSeq = true
}

// Monitor reads packets from the source and fans decoded frames out to
// subscribers.
func (m *FrameMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(m.port)
	scan.Buffer(make([]byte, initialScanBuffer), maxScanBuffer)
	scan.Split(ScanPackets)

	eventChan := make(chan FrameEvent)
	scanErrChan := make(chan error, 1)

	// The blocking scan.Scan runs in its own goroutine so the outer loop
	// can await events and context cancellation. Decoding happens here
	// too: the scanner's token buffer is only valid until the next Scan.
	go func() {
		defer close(eventChan)
		for scan.Scan() {
			pkt, err := DecodePacket(scan.Bytes())
			if err != nil {
				m.rejected.Add(1)
				monitoring.Logf("framemux: dropping packet: %v", err)
				continue
			}
			m.noteSeq(pkt.Seq)
			ev := FrameEvent{Frame: pkt.Frame, Seq: pkt.Seq, T: m.clock.Now()}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case ev, ok := <-eventChan:
			// channel closed means the source is exhausted
			if !ok {
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}

			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.decoded.Add(1)
			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- ev:
				default:
					// skip a subscriber that is not ready so as not
					// to block the outer loop
					m.shed.Add(1)
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

// Close closes all subscriber channels and the underlying source.
func (m *FrameMux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
