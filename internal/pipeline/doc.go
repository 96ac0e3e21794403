// Package pipeline wires frame analysis to gesture classification. The
// Recognizer owns the region catalog, the parallel aggregator, the tap/swipe
// detector, the throughput counter, and the in-memory event and trace rings
// the diagnostics API reads.
//
// Frame delivery is strictly serial: a tick that arrives while the previous
// one is still processing is rejected with ErrBusy and counted as dropped.
// Gesture dispatch to the sink runs on its own worker so a slow consumer
// never stalls the tick path.
package pipeline
