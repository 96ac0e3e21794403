package gesture

// TapState represents the classification of the occlusion sequence in
// progress. The maybe_* forms hold while the debounce window is still open;
// finalization resolves them to their definite counterparts before dispatch.
type TapState string

const (
	TapNone        TapState = "none"
	TapMaybeSingle TapState = "maybe_single"
	TapSingle      TapState = "single"
	TapMaybeDouble TapState = "maybe_double"
	TapDouble      TapState = "double"
	TapMaybeTriple TapState = "maybe_triple"
	TapTriple      TapState = "triple"
	TapMaybeHeld   TapState = "maybe_held"
	TapHeld        TapState = "held"
)

// Pending reports whether the state is an in-flight classification that a
// further occlusion could still escalate.
func (s TapState) Pending() bool {
	switch s {
	case TapMaybeSingle, TapMaybeDouble, TapMaybeTriple, TapMaybeHeld:
		return true
	}
	return false
}

// escalate advances one step along the occlusion-count chain. The chain
// saturates: once a sequence reaches held it stays held.
func (s TapState) escalate() TapState {
	switch s {
	case TapNone:
		return TapMaybeSingle
	case TapMaybeSingle:
		return TapMaybeDouble
	case TapMaybeDouble:
		return TapMaybeTriple
	case TapMaybeTriple:
		return TapMaybeHeld
	default:
		return TapHeld
	}
}

// resolve maps an in-flight state to the classification finalization
// dispatches. maybe_held resolves to held, which is suppressed.
func (s TapState) resolve() TapState {
	switch s {
	case TapMaybeSingle:
		return TapSingle
	case TapMaybeDouble:
		return TapDouble
	case TapMaybeTriple:
		return TapTriple
	case TapMaybeHeld:
		return TapHeld
	default:
		return s
	}
}

// SwipeDirection is the travel direction of a detected swipe across the
// camera: the direction the occluded region moved.
type SwipeDirection string

const (
	SwipeUp    SwipeDirection = "up"
	SwipeDown  SwipeDirection = "down"
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)
