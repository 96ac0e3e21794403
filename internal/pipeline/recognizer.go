package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/backhand/internal/config"
	"github.com/banshee-data/backhand/internal/gesture"
	"github.com/banshee-data/backhand/internal/luma"
	"github.com/banshee-data/backhand/internal/monitoring"
	"github.com/banshee-data/backhand/internal/timeutil"
)

var (
	// ErrBusy rejects a frame that arrived while the previous tick was
	// still processing. The caller may retry with the next frame; the
	// rejected one is counted as dropped.
	ErrBusy = errors.New("tick in progress")

	// ErrClosed rejects frames delivered after Close.
	ErrClosed = errors.New("recognizer closed")
)

// RecognizerConfig holds geometry and dependencies for the recognizer.
type RecognizerConfig struct {
	// Rows, Cols fix the frame geometry. Every delivered frame must match.
	Rows int
	Cols int

	// Tuning supplies runtime tuning; nil selects compiled defaults.
	Tuning *config.TuningConfig

	// Sink receives finalized gestures on a dedicated worker. Optional.
	Sink gesture.Sink

	// Clock stamps frame arrival times; nil selects the real clock.
	Clock timeutil.Clock
}

// Recognizer turns a stream of grayscale frames into gesture events. One
// DeliverFrame call is one tick; ticks are strictly serialized and a tick
// that finds another in flight returns ErrBusy instead of queueing.
type Recognizer struct {
	catalog  *luma.Catalog
	agg      *luma.Aggregator
	detector *gesture.Detector
	rate     *monitoring.FrameRate
	clock    timeutil.Clock
	tapSlots []luma.Slot
	tuning   *config.TuningConfig

	events *EventRing
	trace  *TraceRing

	// tickMu serializes ticks. DeliverFrameAt try-locks it so a busy tick
	// surfaces as ErrBusy rather than a stall.
	tickMu sync.Mutex

	// stateMu guards the snapshot diagnostics readers poll, so polling
	// never contends the tick try-lock.
	stateMu   sync.RWMutex
	lastState gesture.TapState
	lastTick  time.Time

	sink        gesture.Sink
	sinkCh      chan gesture.Event
	sinkWG      sync.WaitGroup
	sinkDropped atomic.Int64

	// subscribers receive a live copy of each event record, on top of the
	// sink. Delivery is non-blocking; a slow subscriber misses events.
	subscribers  map[string]chan EventRecord
	subscriberMu sync.Mutex

	started time.Time

	closedMu sync.Mutex
	closed   bool
}

// NewRecognizer builds the full analysis chain for the given geometry. The
// tap signal defaults to the mean over the three horizontal bands, which
// together tile the frame; tuning may name an explicit region set instead.
func NewRecognizer(cfg RecognizerConfig) (*Recognizer, error) {
	tuning := cfg.Tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("tuning: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	catalog, err := luma.NewCatalog(cfg.Rows, cfg.Cols)
	if err != nil {
		return nil, err
	}

	agg, err := luma.NewAggregator(catalog, luma.AggregatorConfig{
		JobTimeout: tuning.GetJobTimeout(),
		MaxWorkers: tuning.GetMaxWorkers(),
	})
	if err != nil {
		return nil, err
	}

	tapSlots, err := resolveTapSlots(tuning.GetTapRegions())
	if err != nil {
		return nil, err
	}

	detector := gesture.NewDetector(gesture.DetectorConfig{
		DarknessThreshold:   tuning.GetDarknessThreshold(),
		DebounceFloor:       tuning.GetDebounceFloor(),
		DebounceWindow:      tuning.GetDebounceWindow(),
		MinGapAfterFinalize: tuning.GetMinGapAfterFinalize(),
		SwipeStepTimeout:    tuning.GetSwipeStepTimeout(),
	})

	r := &Recognizer{
		catalog:     catalog,
		agg:         agg,
		detector:    detector,
		rate:        monitoring.NewFrameRate(clock, tuning.GetRateInterval()),
		clock:       clock,
		tapSlots:    tapSlots,
		tuning:      tuning,
		events:      NewEventRing(tuning.GetEventRingSize()),
		trace:       NewTraceRing(tuning.GetTraceRingSize()),
		lastState:   gesture.TapNone,
		sink:        cfg.Sink,
		sinkCh:      make(chan gesture.Event, tuning.GetSinkQueueSize()),
		subscribers: make(map[string]chan EventRecord),
		started:     clock.Now(),
	}

	r.sinkWG.Add(1)
	go r.runSink()

	return r, nil
}

// resolveTapSlots parses the configured tap region names. An empty list
// selects the horizontal bands, whose unweighted mean is the whole-frame
// aggregate.
func resolveTapSlots(names []string) ([]luma.Slot, error) {
	if len(names) == 0 {
		return []luma.Slot{luma.Top, luma.CenterHoriz, luma.Bottom}, nil
	}
	seen := map[luma.Slot]bool{}
	slots := make([]luma.Slot, 0, len(names))
	for _, name := range names {
		s, err := luma.ParseSlot(name)
		if err != nil {
			return nil, fmt.Errorf("tap_regions: %w", err)
		}
		if !seen[s] {
			seen[s] = true
			slots = append(slots, s)
		}
	}
	return slots, nil
}

// DeliverFrame runs one tick at the clock's current time.
func (r *Recognizer) DeliverFrame(ctx context.Context, f *luma.Frame) error {
	return r.DeliverFrameAt(ctx, f, r.clock.Now())
}

// DeliverFrameAt runs one tick with an explicit frame time. Replay sources
// use this to drive classification from capture timestamps so results match
// the live run that recorded them.
func (r *Recognizer) DeliverFrameAt(ctx context.Context, f *luma.Frame, t time.Time) error {
	if !r.tickMu.TryLock() {
		r.rate.AddDropped(1)
		return ErrBusy
	}
	defer r.tickMu.Unlock()

	if r.isClosed() {
		return ErrClosed
	}

	samples, err := r.agg.All(ctx, f)
	if err != nil {
		// Malformed frame or mismatched geometry. Nothing advanced.
		r.rate.AddDropped(1)
		return err
	}

	var regions [luma.SlotCount]gesture.RegionLuma
	for i, s := range samples {
		if s.Err != nil {
			opsf("region %s sample failed: %v", luma.Slot(i), s.Err)
			continue
		}
		regions[i] = gesture.RegionLuma{Value: s.Value, Valid: true}
	}

	signal, err := r.tapSignal(samples)
	if err != nil {
		// The tap signal carries no information this tick; skip it rather
		// than advance the machine on a guess.
		r.rate.AddDropped(1)
		return err
	}

	dark := signal < r.detector.Config().DarknessThreshold
	r.trace.Add(TraceRecord{T: t, Regions: regions, Signal: signal, Dark: dark})
	tracef("tick %s signal=%.1f dark=%t", t.Format(time.RFC3339Nano), signal, dark)

	for _, ev := range r.detector.Observe(t, signal, regions) {
		rec := EventRecord{
			ID:    uuid.New().String(),
			Kind:  ev.Kind,
			Tap:   ev.Tap,
			Swipe: ev.Swipe,
			T:     ev.T,
		}
		r.events.Add(rec)
		diagf("gesture %s id=%s", rec.Label(), rec.ID)
		r.publishEvent(rec)
		r.dispatch(ev)
	}

	r.stateMu.Lock()
	r.lastState = r.detector.State()
	r.lastTick = t
	r.stateMu.Unlock()

	r.rate.Add(1)
	return nil
}

// tapSignal reduces the configured tap regions to their unweighted mean. A
// failed contributing sample fails the reduction.
func (r *Recognizer) tapSignal(samples [luma.SlotCount]luma.Sample) (float64, error) {
	var sum float64
	for _, s := range r.tapSlots {
		smp := samples[s]
		if smp.Err != nil {
			return 0, smp.Err
		}
		sum += smp.Value
	}
	return sum / float64(len(r.tapSlots)), nil
}

// SubscribeEvents registers a live event consumer. The channel carries a
// small buffer; a consumer that falls behind misses events rather than
// stalling the tick. After Close the returned channel is already closed.
func (r *Recognizer) SubscribeEvents() (string, chan EventRecord) {
	id := uuid.NewString()
	ch := make(chan EventRecord, 8)
	r.subscriberMu.Lock()
	defer r.subscriberMu.Unlock()
	if r.isClosed() {
		close(ch)
		return id, ch
	}
	r.subscribers[id] = ch
	return id, ch
}

// UnsubscribeEvents removes a subscriber and closes its channel.
func (r *Recognizer) UnsubscribeEvents(id string) {
	r.subscriberMu.Lock()
	defer r.subscriberMu.Unlock()
	if ch, ok := r.subscribers[id]; ok {
		close(ch)
		delete(r.subscribers, id)
	}
}

// publishEvent fans a record out to live subscribers. Runs under tickMu.
func (r *Recognizer) publishEvent(rec EventRecord) {
	r.subscriberMu.Lock()
	defer r.subscriberMu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- rec:
		default:
			opsf("event subscriber busy, dropping %s", rec.Label())
		}
	}
}

// dispatch hands an event to the sink queue without blocking the tick.
func (r *Recognizer) dispatch(ev gesture.Event) {
	if r.sink == nil {
		return
	}
	select {
	case r.sinkCh <- ev:
	default:
		r.sinkDropped.Add(1)
		opsf("sink queue full, dropping %s event", ev.Kind)
	}
}

// runSink drains the event queue to the sink, one event at a time.
func (r *Recognizer) runSink() {
	defer r.sinkWG.Done()
	for ev := range r.sinkCh {
		switch ev.Kind {
		case gesture.EventTap:
			r.sink.OnTap(ev.Tap)
		case gesture.EventSwipe:
			r.sink.OnSwipe(ev.Swipe)
		}
	}
}

// Run drives the throughput counter's interval roll until ctx is cancelled.
// Callers run it in a goroutine alongside the frame source.
func (r *Recognizer) Run(ctx context.Context) {
	r.rate.Run(ctx)
}

// Close stops the sink worker after the in-flight tick, if any, completes.
// Queued events are drained before Close returns. Frames delivered after
// Close are rejected with ErrClosed.
func (r *Recognizer) Close() error {
	r.closedMu.Lock()
	if r.closed {
		r.closedMu.Unlock()
		return nil
	}
	r.closed = true
	r.closedMu.Unlock()

	// Taking the tick lock orders the queue close after any tick that
	// already held it.
	r.tickMu.Lock()
	close(r.sinkCh)
	r.subscriberMu.Lock()
	for id, ch := range r.subscribers {
		close(ch)
		delete(r.subscribers, id)
	}
	r.subscriberMu.Unlock()
	r.tickMu.Unlock()

	r.sinkWG.Wait()
	return nil
}

func (r *Recognizer) isClosed() bool {
	r.closedMu.Lock()
	defer r.closedMu.Unlock()
	return r.closed
}

// Catalog returns the region catalog frames are analyzed against.
func (r *Recognizer) Catalog() *luma.Catalog {
	return r.catalog
}

// Tuning returns the effective tuning the recognizer was built with.
func (r *Recognizer) Tuning() *config.TuningConfig {
	return r.tuning
}

// State returns the tap classification as of the last completed tick.
func (r *Recognizer) State() gesture.TapState {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.lastState
}

// LastTick returns the time of the last completed tick, zero if none.
func (r *Recognizer) LastTick() time.Time {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.lastTick
}

// Events returns the recent gesture records, oldest first.
func (r *Recognizer) Events() []EventRecord {
	return r.events.Snapshot()
}

// Trace returns the recent tick records, oldest first.
func (r *Recognizer) Trace() []TraceRecord {
	return r.trace.Snapshot()
}

// LastTrace returns the most recent tick record, if any.
func (r *Recognizer) LastTrace() (TraceRecord, bool) {
	return r.trace.Last()
}

// Signals returns the recent tap-signal series, oldest first.
func (r *Recognizer) Signals() []float64 {
	return r.trace.Signals()
}

// Rate returns the frame count of the last closed throughput interval.
func (r *Recognizer) Rate() int64 {
	return r.rate.Rate()
}

// Totals returns the processed and dropped frame counters and the count of
// events shed because the sink queue was full.
func (r *Recognizer) Totals() (frames, dropped, sinkDropped int64) {
	frames, dropped = r.rate.Totals()
	return frames, dropped, r.sinkDropped.Load()
}

// Started returns when the recognizer was constructed.
func (r *Recognizer) Started() time.Time {
	return r.started
}

// Clock returns the clock the recognizer times ticks with.
func (r *Recognizer) Clock() timeutil.Clock {
	return r.clock
}
