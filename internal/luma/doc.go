// Package luma provides grayscale frame sampling primitives: an 8-bit
// luminance frame type, the six-region catalog that partitions a frame into
// overlapping thirds, a per-region mean analyzer, and a bounded parallel
// aggregator that fans region analysis jobs out over a frame snapshot.
//
// The package is purely computational. It holds no gesture state and does
// no scheduling of its own; callers drive it once per delivered frame.
package luma
