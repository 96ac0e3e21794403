package gesture

import (
	"time"

	"github.com/banshee-data/backhand/internal/luma"
)

// Default debounce tuning. The floor rejects contact bounce of a single
// covering; the window is how long the machine waits for a re-covering
// before finalizing the sequence.
const (
	DefaultDarknessThreshold = 50.0
	DefaultDebounceFloor     = 120 * time.Millisecond
	DefaultDebounceWindow    = 500 * time.Millisecond
)

// DetectorConfig holds the tuning for the gesture state machine.
type DetectorConfig struct {
	// DarknessThreshold is the mean luminance below which a signal counts
	// as occluded.
	DarknessThreshold float64

	// DebounceFloor is the minimum gap between distinct occlusion onsets.
	// Re-darkening inside the floor is contact bounce of the same covering.
	DebounceFloor time.Duration

	// DebounceWindow is the maximum gap between distinct occlusion onsets
	// of one sequence, and the quiet period after which the sequence
	// finalizes.
	DebounceWindow time.Duration

	// MinGapAfterFinalize drops an occlusion onset arriving within this
	// gap of the previous finalization. Zero accepts it as a new sequence
	// immediately.
	MinGapAfterFinalize time.Duration

	// SwipeStepTimeout bounds the gap between swipe stage transitions.
	// Defaults to DebounceWindow.
	SwipeStepTimeout time.Duration
}

// withDefaults fills unset fields with the canonical tuning.
func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.DarknessThreshold <= 0 {
		c.DarknessThreshold = DefaultDarknessThreshold
	}
	if c.DebounceFloor <= 0 {
		c.DebounceFloor = DefaultDebounceFloor
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = DefaultDebounceWindow
	}
	if c.SwipeStepTimeout <= 0 {
		c.SwipeStepTimeout = c.DebounceWindow
	}
	return c
}

// EventKind discriminates dispatched gesture events.
type EventKind string

const (
	EventTap   EventKind = "tap"
	EventSwipe EventKind = "swipe"
)

// Event is one finalized gesture produced by a tick.
type Event struct {
	Kind  EventKind
	Tap   TapState       // set when Kind == EventTap
	Swipe SwipeDirection // set when Kind == EventSwipe
	T     time.Time      // tick time that finalized the gesture
}

// RegionLuma is one region's mean luminance for a tick. Valid is false when
// the region's analysis job failed and the sample carries no information.
type RegionLuma struct {
	Value float64
	Valid bool
}

// Detector is the tap/swipe state machine. It is frame-driven: all timing
// derives from observation timestamps, so identical streams produce
// identical classifications regardless of processing speed.
//
// The detector is not safe for concurrent use; the pipeline serializes
// ticks before it.
type Detector struct {
	cfg DetectorConfig

	current  TapState
	epoch    time.Time // most recent counted occlusion event
	epochSet bool
	prevDark bool
	heldAt   time.Time // when the cover was first classified as a hold

	lastFinalize    time.Time
	lastFinalizeSet bool

	vert  *axisTracker
	horiz *axisTracker
}

// NewDetector builds a detector, applying defaults for unset config fields.
func NewDetector(config DetectorConfig) *Detector {
	cfg := config.withDefaults()
	return &Detector{
		cfg:     cfg,
		current: TapNone,
		vert:    newAxisTracker(SwipeDown, SwipeUp, cfg.SwipeStepTimeout),
		horiz:   newAxisTracker(SwipeRight, SwipeLeft, cfg.SwipeStepTimeout),
	}
}

// Config returns the effective tuning after defaults.
func (d *Detector) Config() DetectorConfig {
	return d.cfg
}

// State returns the in-flight tap classification.
func (d *Detector) State() TapState {
	return d.current
}

// Reset clears all sequence state without dispatching anything.
func (d *Detector) Reset() {
	d.current = TapNone
	d.epochSet = false
	d.prevDark = false
	d.lastFinalizeSet = false
	d.vert.reset()
	d.horiz.reset()
}

// Observe advances the machine by one frame tick: signal is the tap-signal
// mean luminance at time t, regions the per-region means for swipe
// evaluation. It returns the gestures this tick finalized, in order.
func (d *Detector) Observe(t time.Time, signal float64, regions [luma.SlotCount]RegionLuma) []Event {
	var events []Event

	dark := signal < d.cfg.DarknessThreshold
	onset := dark && !d.prevDark

	switch {
	case onset && !d.epochSet:
		if d.acceptFresh(t) {
			d.epoch = t
			d.epochSet = true
			d.current = d.current.escalate()
		}

	case onset:
		delta := t.Sub(d.epoch)
		switch {
		case delta <= d.cfg.DebounceFloor:
			// Bounce of the same covering; the sequence keeps its epoch.
		case delta < d.cfg.DebounceWindow:
			d.epoch = t
			d.current = d.current.escalate()
			if d.current == TapMaybeHeld {
				d.heldAt = t
			}
		default:
			// The stream stalled past the window with a sequence still
			// open. Finalize it now, then treat this onset as fresh.
			events = append(events, d.finalize(t)...)
			if d.acceptFresh(t) {
				d.epoch = t
				d.epochSet = true
				d.current = d.current.escalate()
			}
		}

	case dark && d.epochSet:
		// Continuous cover. Once it outlasts the window it becomes a hold;
		// from then on the epoch follows the cover's trailing edge so
		// finalization waits for a full quiet window after release.
		switch {
		case t.Sub(d.epoch) > d.cfg.DebounceWindow:
			d.current = TapMaybeHeld
			d.heldAt = t
			d.epoch = t
		case d.current == TapMaybeHeld || d.current == TapHeld:
			if d.current == TapMaybeHeld && t.Sub(d.heldAt) > d.cfg.DebounceWindow {
				d.current = TapHeld
			}
			d.epoch = t
		}

	default:
		if d.epochSet && t.Sub(d.epoch) > d.cfg.DebounceWindow {
			events = append(events, d.finalize(t)...)
		}
	}

	d.prevDark = dark

	events = append(events, d.observeSwipe(t, regions)...)
	return events
}

// acceptFresh applies the configured refractory gap after a finalization.
func (d *Detector) acceptFresh(t time.Time) bool {
	if d.cfg.MinGapAfterFinalize <= 0 || !d.lastFinalizeSet {
		return true
	}
	return t.Sub(d.lastFinalize) > d.cfg.MinGapAfterFinalize
}

// finalize resolves the open sequence, dispatching every classification
// except held, and returns the machine to idle.
func (d *Detector) finalize(t time.Time) []Event {
	resolved := d.current.resolve()
	d.current = TapNone
	d.epochSet = false
	d.lastFinalize = t
	d.lastFinalizeSet = true

	if resolved == TapNone || resolved == TapHeld {
		return nil
	}
	return []Event{{Kind: EventTap, Tap: resolved, T: t}}
}

// observeSwipe feeds the axis trackers. Swipe evaluation is suppressed while
// a tap sequence is open, and only one axis may be mid-progression at a
// time.
func (d *Detector) observeSwipe(t time.Time, regions [luma.SlotCount]RegionLuma) []Event {
	if d.current != TapNone {
		d.vert.reset()
		d.horiz.reset()
		return nil
	}

	vertDark, vertOK := d.axisDarkness(regions, luma.Top, luma.CenterHoriz, luma.Bottom)
	horizDark, horizOK := d.axisDarkness(regions, luma.Left, luma.CenterVert, luma.Right)

	var events []Event

	if vertOK && !d.horiz.active() {
		if dir, ok := d.vert.observe(t, vertDark); ok {
			events = append(events, Event{Kind: EventSwipe, Swipe: dir, T: t})
		}
	}
	if horizOK && !d.vert.active() {
		if dir, ok := d.horiz.observe(t, horizDark); ok {
			events = append(events, Event{Kind: EventSwipe, Swipe: dir, T: t})
		}
	}
	return events
}

// axisDarkness maps three region samples to darkness flags. A tick with a
// failed sample on the axis is skipped rather than guessed at.
func (d *Detector) axisDarkness(regions [luma.SlotCount]RegionLuma, a, b, c luma.Slot) ([3]bool, bool) {
	var out [3]bool
	for i, s := range []luma.Slot{a, b, c} {
		r := regions[s]
		if !r.Valid {
			return out, false
		}
		out[i] = r.Value < d.cfg.DarknessThreshold
	}
	return out, true
}
