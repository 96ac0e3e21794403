package luma

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAnalysisFailed flags the failure of a single region job inside the
// aggregator (panic, timeout, or cancellation). A failed job poisons only
// its own sample; sibling jobs still report.
var ErrAnalysisFailed = errors.New("region analysis job failed")

// Sample is the outcome of one region job. Err is non-nil when the job
// failed; Value is meaningful only when Err is nil.
type Sample struct {
	Slot  Slot
	Value float64
	Err   error
}

// AggregatorConfig tunes the fan-out behavior.
type AggregatorConfig struct {
	// JobTimeout bounds each region job. Zero disables the deadline.
	JobTimeout time.Duration

	// MaxWorkers caps concurrently running jobs. Defaults to the catalog
	// size; fan-out never exceeds the number of requested regions.
	MaxWorkers int
}

// Aggregator fans region analysis jobs out over a frame and joins their
// results. One analyzer per catalog slot is built up front so bound
// validation happens once, at construction.
type Aggregator struct {
	catalog *Catalog
	timeout time.Duration
	sem     chan struct{}

	// runRegion is the per-job work function; tests swap it to simulate
	// slow or failing jobs.
	runRegion func(s Slot, f *Frame) (float64, error)
}

// NewAggregator builds an aggregator over the catalog, applying defaults
// for unset config fields.
func NewAggregator(catalog *Catalog, config AggregatorConfig) (*Aggregator, error) {
	if config.MaxWorkers <= 0 || config.MaxWorkers > SlotCount {
		config.MaxWorkers = SlotCount
	}
	if config.JobTimeout < 0 {
		config.JobTimeout = 0
	}

	analyzers := [SlotCount]*Analyzer{}
	for i := range analyzers {
		a, err := NewRegionAnalyzer(catalog.Region(Slot(i)))
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", Slot(i), err)
		}
		analyzers[i] = a
	}

	g := &Aggregator{
		catalog: catalog,
		timeout: config.JobTimeout,
		sem:     make(chan struct{}, config.MaxWorkers),
	}
	g.runRegion = func(s Slot, f *Frame) (float64, error) {
		return analyzers[s].Analyze(f)
	}
	return g, nil
}

// checkFrame rejects frames the catalog cannot describe before any job is
// scheduled; a malformed frame fails the whole operation, not single jobs.
func (g *Aggregator) checkFrame(f *Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if !g.catalog.Fits(f) {
		return fmt.Errorf("%w: frame %dx%d does not match catalog %dx%d",
			ErrMalformedFrame, f.Rows, f.Cols, g.catalog.Rows(), g.catalog.Cols())
	}
	return nil
}

// analyze runs one job per slot and joins the results in slot order.
func (g *Aggregator) analyze(ctx context.Context, f *Frame, slots []Slot) []Sample {
	results := make([]Sample, len(slots))
	var wg sync.WaitGroup
	for i, s := range slots {
		wg.Add(1)
		go func(i int, s Slot) {
			defer wg.Done()
			g.sem <- struct{}{}
			defer func() { <-g.sem }()
			results[i] = g.runJob(ctx, f, s)
		}(i, s)
	}
	wg.Wait()
	return results
}

// runJob executes one region job with panic recovery and the configured
// per-job deadline. A job that overruns its deadline keeps computing in the
// background but its result is discarded.
func (g *Aggregator) runJob(ctx context.Context, f *Frame, s Slot) Sample {
	done := make(chan Sample, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Sample{Slot: s, Err: fmt.Errorf("%w: %s: panic: %v", ErrAnalysisFailed, s, r)}
			}
		}()
		v, err := g.runRegion(s, f)
		if err != nil {
			done <- Sample{Slot: s, Err: fmt.Errorf("%w: %s: %v", ErrAnalysisFailed, s, err)}
			return
		}
		done <- Sample{Slot: s, Value: v}
	}()

	var timeoutC <-chan time.Time
	if g.timeout > 0 {
		t := time.NewTimer(g.timeout)
		defer t.Stop()
		timeoutC = t.C
	}

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return Sample{Slot: s, Err: fmt.Errorf("%w: %s: %v", ErrAnalysisFailed, s, ctx.Err())}
	case <-timeoutC:
		return Sample{Slot: s, Err: fmt.Errorf("%w: %s: timeout after %v", ErrAnalysisFailed, s, g.timeout)}
	}
}

// forwardSlots resolves a contiguous-forward selection: offsets below the
// vertical axis span the horizontal bands [offset,3), the rest span the
// vertical bands [offset,6).
func forwardSlots(offset int) ([]Slot, error) {
	if offset < 0 || offset >= SlotCount {
		return nil, fmt.Errorf("forward offset %d out of range [0,%d)", offset, SlotCount)
	}
	end := vertAxisStart
	if offset >= vertAxisStart {
		end = SlotCount
	}
	slots := make([]Slot, 0, end-offset)
	for i := offset; i < end; i++ {
		slots = append(slots, Slot(i))
	}
	return slots, nil
}

// backwardSlots resolves a contiguous-backward selection counted down from a
// catalog boundary: offsets up to 3 walk the vertical bands from RIGHT,
// larger offsets walk the horizontal bands from BOTTOM.
func backwardSlots(offset int) ([]Slot, error) {
	if offset < 1 || offset > SlotCount {
		return nil, fmt.Errorf("backward offset %d out of range [1,%d]", offset, SlotCount)
	}
	from := SlotCount - 1
	if offset > vertAxisStart {
		from = vertAxisStart - 1
	}
	slots := make([]Slot, 0, offset)
	for i := from; i >= SlotCount-offset; i-- {
		slots = append(slots, Slot(i))
	}
	return slots, nil
}

// Forward analyzes the contiguous slot run starting at offset and returns
// the per-region samples in catalog order, failed jobs flagged in place.
func (g *Aggregator) Forward(ctx context.Context, f *Frame, offset int) ([]Sample, error) {
	slots, err := forwardSlots(offset)
	if err != nil {
		return nil, err
	}
	if err := g.checkFrame(f); err != nil {
		return nil, err
	}
	return g.analyze(ctx, f, slots), nil
}

// ForwardMean analyzes the contiguous slot run starting at offset and
// reduces the samples to their unweighted average. Reduction cannot express
// a partial result, so any failed contributing job fails the operation.
func (g *Aggregator) ForwardMean(ctx context.Context, f *Frame, offset int) (float64, error) {
	samples, err := g.Forward(ctx, f, offset)
	if err != nil {
		return 0, err
	}
	return reduceMean(samples)
}

// BackwardMean analyzes the slot run counted down from the catalog boundary
// and reduces it to the unweighted average, with the same failure semantics
// as ForwardMean.
func (g *Aggregator) BackwardMean(ctx context.Context, f *Frame, offset int) (float64, error) {
	slots, err := backwardSlots(offset)
	if err != nil {
		return 0, err
	}
	if err := g.checkFrame(f); err != nil {
		return 0, err
	}
	return reduceMean(g.analyze(ctx, f, slots))
}

// Explicit analyzes a named set of slots with no reduction; callers address
// each region's sample individually. Duplicate slots collapse.
func (g *Aggregator) Explicit(ctx context.Context, f *Frame, slots ...Slot) (map[Slot]Sample, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("explicit selection requires at least one region")
	}
	seen := map[Slot]bool{}
	unique := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !s.Valid() {
			return nil, fmt.Errorf("explicit selection: %w: %s", ErrInvalidRegion, s)
		}
		if !seen[s] {
			seen[s] = true
			unique = append(unique, s)
		}
	}
	if err := g.checkFrame(f); err != nil {
		return nil, err
	}

	out := make(map[Slot]Sample, len(unique))
	for _, smp := range g.analyze(ctx, f, unique) {
		out[smp.Slot] = smp
	}
	return out, nil
}

// All analyzes every catalog slot and returns the samples indexed by slot.
func (g *Aggregator) All(ctx context.Context, f *Frame) ([SlotCount]Sample, error) {
	var out [SlotCount]Sample
	if err := g.checkFrame(f); err != nil {
		return out, err
	}
	slots := make([]Slot, SlotCount)
	for i := range slots {
		slots[i] = Slot(i)
	}
	for i, smp := range g.analyze(ctx, f, slots) {
		out[i] = smp
	}
	return out, nil
}

func reduceMean(samples []Sample) (float64, error) {
	var sum float64
	for _, s := range samples {
		if s.Err != nil {
			return 0, s.Err
		}
		sum += s.Value
	}
	return sum / float64(len(samples)), nil
}
