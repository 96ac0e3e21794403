package gesture

import (
	"time"
)

// axisStage tracks how far an occlusion has progressed across one axis.
type axisStage int

const (
	stageIdle     axisStage = iota
	stageStartEnd           // entry region dark
	stageMiddle             // occlusion reached the center band
	stageFarEnd             // occlusion reached the exit region
)

// axisTracker watches one axis of the region catalog for a monotonic
// occlusion sweep: entry band dark, then the center band (entry cleared),
// then the exit band (center cleared), then everything bright. The sweep may
// run in either orientation; the reported direction is the direction of
// travel. Each stage transition must arrive within stepTimeout of the
// previous one or the tracker resets.
type axisTracker struct {
	forward  SwipeDirection // direction when entering at band index 0
	backward SwipeDirection // direction when entering at band index 2

	stepTimeout time.Duration

	stage    axisStage
	reversed bool // sweep entered at band index 2
	stepAt   time.Time
}

func newAxisTracker(forward, backward SwipeDirection, stepTimeout time.Duration) *axisTracker {
	return &axisTracker{forward: forward, backward: backward, stepTimeout: stepTimeout}
}

func (a *axisTracker) reset() {
	a.stage = stageIdle
	a.reversed = false
}

func (a *axisTracker) active() bool {
	return a.stage != stageIdle
}

// observe advances the tracker with the darkness flags of the axis's three
// bands in catalog order and reports a completed swipe, if any.
func (a *axisTracker) observe(t time.Time, dark [3]bool) (SwipeDirection, bool) {
	// A full-axis cover is a tap-like event, not a sweep.
	if dark[0] && dark[1] && dark[2] {
		a.reset()
		return "", false
	}

	if a.stage != stageIdle && t.Sub(a.stepAt) > a.stepTimeout {
		a.reset()
	}

	// Orient the flags so index 0 is always the entry band.
	entry, mid, exit := dark[0], dark[1], dark[2]
	if a.reversed {
		entry, exit = exit, entry
	}

	switch a.stage {
	case stageIdle:
		// Arm only on an unambiguous single-ended entry.
		if dark[0] != dark[2] && !dark[1] {
			a.reversed = dark[2]
			a.stage = stageStartEnd
			a.stepAt = t
		}

	case stageStartEnd:
		switch {
		case exit:
			// Occlusion jumped past the center band; not a sweep.
			a.reset()
		case mid && !entry:
			a.stage = stageMiddle
			a.stepAt = t
		}

	case stageMiddle:
		switch {
		case entry:
			// Direction reversed mid-sweep.
			a.reset()
		case exit && !mid:
			a.stage = stageFarEnd
			a.stepAt = t
		}

	case stageFarEnd:
		switch {
		case entry || mid:
			a.reset()
		case !exit:
			// Exit band brightened: the sweep left the lens.
			dir := a.forward
			if a.reversed {
				dir = a.backward
			}
			a.reset()
			return dir, true
		}
	}

	return "", false
}
