// Package gesture classifies per-frame luminance observations into tap and
// swipe events. The detector is a frame-driven state machine: it advances
// only when an observation arrives, never on wall-clock timers, so replayed
// streams classify identically to live ones.
package gesture
