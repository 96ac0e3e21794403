package gesture

// Sink receives finalized gesture events. Calls are fire-and-forget: the
// pipeline never waits on a sink's return value, and each finalized gesture
// is delivered at most once. Implementations that block should hand off to
// their own goroutine.
type Sink interface {
	// OnTap is called with the resolved tap classification
	// (single, double, or triple; held sequences are never dispatched).
	OnTap(state TapState)

	// OnSwipe is called with the travel direction of a completed swipe.
	OnSwipe(direction SwipeDirection)
}

// SinkFuncs adapts plain functions to the Sink interface. Nil fields are
// no-ops, so callers may subscribe to only one event kind.
type SinkFuncs struct {
	Tap   func(TapState)
	Swipe func(SwipeDirection)
}

func (s SinkFuncs) OnTap(state TapState) {
	if s.Tap != nil {
		s.Tap(state)
	}
}

func (s SinkFuncs) OnSwipe(direction SwipeDirection) {
	if s.Swipe != nil {
		s.Swipe(direction)
	}
}
