package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTapStateEscalation(t *testing.T) {
	t.Parallel()

	chain := []TapState{TapNone, TapMaybeSingle, TapMaybeDouble, TapMaybeTriple, TapMaybeHeld}
	for i := 0; i < len(chain)-1; i++ {
		assert.Equal(t, chain[i+1], chain[i].escalate(), "from %s", chain[i])
	}

	// The chain saturates at held.
	assert.Equal(t, TapHeld, TapMaybeHeld.escalate())
	assert.Equal(t, TapHeld, TapHeld.escalate())
}

func TestTapStateResolve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TapSingle, TapMaybeSingle.resolve())
	assert.Equal(t, TapDouble, TapMaybeDouble.resolve())
	assert.Equal(t, TapTriple, TapMaybeTriple.resolve())
	assert.Equal(t, TapHeld, TapMaybeHeld.resolve())
	assert.Equal(t, TapHeld, TapHeld.resolve())
	assert.Equal(t, TapNone, TapNone.resolve())
}

func TestTapStatePending(t *testing.T) {
	t.Parallel()

	for _, s := range []TapState{TapMaybeSingle, TapMaybeDouble, TapMaybeTriple, TapMaybeHeld} {
		assert.True(t, s.Pending(), "%s", s)
	}
	for _, s := range []TapState{TapNone, TapSingle, TapDouble, TapTriple, TapHeld} {
		assert.False(t, s.Pending(), "%s", s)
	}
}

func TestSinkFuncs(t *testing.T) {
	t.Parallel()

	var taps []TapState
	var swipes []SwipeDirection

	sink := SinkFuncs{
		Tap:   func(s TapState) { taps = append(taps, s) },
		Swipe: func(d SwipeDirection) { swipes = append(swipes, d) },
	}
	sink.OnTap(TapDouble)
	sink.OnSwipe(SwipeLeft)

	assert.Equal(t, []TapState{TapDouble}, taps)
	assert.Equal(t, []SwipeDirection{SwipeLeft}, swipes)

	// Nil fields are tolerated.
	empty := SinkFuncs{}
	empty.OnTap(TapSingle)
	empty.OnSwipe(SwipeUp)
}
