// Package calibrate derives a darkness threshold from observed luminance.
// Operators capture a short trace while covering and uncovering the lens;
// Suggest splits the samples into dark and bright populations and proposes
// the midpoint of their means.
package calibrate

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientSamples means the trace is too short to calibrate.
	ErrInsufficientSamples = errors.New("not enough luminance samples to calibrate")

	// ErrNoSeparation means the samples hold no distinct dark population,
	// typically because the lens was never covered during the capture.
	ErrNoSeparation = errors.New("luminance samples do not separate into dark and bright populations")
)

const (
	// MinSamples is the smallest trace Suggest accepts.
	MinSamples = 30

	// minSeparation is the smallest p10-p90 spread, in luma levels, that
	// counts as two populations rather than noise around one.
	minSeparation = 32.0

	// minPopulation is the smallest population size with a defined sample
	// standard deviation plus margin.
	minPopulation = 3
)

// Suggestion is a proposed darkness threshold with the population statistics
// it was derived from.
type Suggestion struct {
	Threshold    float64 `json:"threshold"`
	DarkMean     float64 `json:"dark_mean"`
	DarkStdDev   float64 `json:"dark_std_dev"`
	BrightMean   float64 `json:"bright_mean"`
	BrightStdDev float64 `json:"bright_std_dev"`
	DarkCount    int     `json:"dark_samples"`
	BrightCount  int     `json:"bright_samples"`
	Samples      int     `json:"samples"`

	// Confident is set when the population means sit at least four pooled
	// standard deviations apart. A hard midpoint split of a single smeared
	// population lands near three, so the bar sits above that.
	Confident bool `json:"confident"`
}

// Suggest proposes a darkness threshold from aggregate luminance samples.
func Suggest(samples []float64) (Suggestion, error) {
	if len(samples) < MinSamples {
		return Suggestion{}, ErrInsufficientSamples
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	lo := stat.Quantile(0.10, stat.Empirical, sorted, nil)
	hi := stat.Quantile(0.90, stat.Empirical, sorted, nil)
	if hi-lo < minSeparation {
		return Suggestion{}, ErrNoSeparation
	}

	// Provisional cut between the quantiles, then refine against the
	// resulting population means.
	cut := (lo + hi) / 2
	var dark, bright []float64
	for _, v := range sorted {
		if v < cut {
			dark = append(dark, v)
		} else {
			bright = append(bright, v)
		}
	}
	if len(dark) < minPopulation || len(bright) < minPopulation {
		return Suggestion{}, ErrNoSeparation
	}

	s := Suggestion{
		DarkMean:     stat.Mean(dark, nil),
		DarkStdDev:   stat.StdDev(dark, nil),
		BrightMean:   stat.Mean(bright, nil),
		BrightStdDev: stat.StdDev(bright, nil),
		DarkCount:    len(dark),
		BrightCount:  len(bright),
		Samples:      len(samples),
	}
	s.Threshold = (s.DarkMean + s.BrightMean) / 2

	pooled := pooledStdDev(dark, bright, s.DarkStdDev, s.BrightStdDev)
	switch {
	case math.IsNaN(pooled):
	case pooled == 0:
		// Two constant populations, already known to sit apart.
		s.Confident = true
	default:
		s.Confident = s.BrightMean-s.DarkMean >= 4*pooled
	}

	return s, nil
}

// pooledStdDev combines the two sample deviations weighted by population.
func pooledStdDev(dark, bright []float64, sdDark, sdBright float64) float64 {
	n1 := float64(len(dark))
	n2 := float64(len(bright))
	v := ((n1-1)*sdDark*sdDark + (n2-1)*sdBright*sdBright) / (n1 + n2 - 2)
	return math.Sqrt(v)
}
