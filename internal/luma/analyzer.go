package luma

import (
	"fmt"
)

// Analyzer computes the arithmetic mean luminance of one fixed region.
// Construction validates the region eagerly; a zero-area or inverted window
// never reaches the analysis path.
type Analyzer struct {
	region Region
}

// NewAnalyzer returns an analyzer for the given window, or ErrInvalidRegion
// if the bounds cannot describe a non-empty region.
func NewAnalyzer(startRow, endRow, startCol, endCol int) (*Analyzer, error) {
	r, err := NewRegion(startRow, endRow, startCol, endCol)
	if err != nil {
		return nil, err
	}
	return &Analyzer{region: r}, nil
}

// NewRegionAnalyzer wraps an already validated region.
func NewRegionAnalyzer(r Region) (*Analyzer, error) {
	return NewAnalyzer(r.StartRow, r.EndRow, r.StartCol, r.EndCol)
}

// Region returns the window the analyzer reads.
func (a *Analyzer) Region() Region {
	return a.region
}

// Analyze returns the mean luminance of the analyzer's region in f.
//
// The frame buffer may be overwritten by the producer while analysis runs,
// so the region window is copied out before iteration; the mean is computed
// over that private snapshot. Accumulation is float64 throughout with a
// single division by the exact cell count at the end.
func (a *Analyzer) Analyze(f *Frame) (float64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	r := a.region
	if !r.fits(f.Rows, f.Cols) {
		return 0, fmt.Errorf("%w: rows [%d,%d) cols [%d,%d) outside %dx%d frame",
			ErrInvalidRegion, r.StartRow, r.EndRow, r.StartCol, r.EndCol, f.Rows, f.Cols)
	}

	width := r.EndCol - r.StartCol
	snap := make([]uint8, r.Cells())
	for row := r.StartRow; row < r.EndRow; row++ {
		src := f.Pix[row*f.Cols+r.StartCol : row*f.Cols+r.EndCol]
		copy(snap[(row-r.StartRow)*width:], src)
	}

	var sum float64
	for _, v := range snap {
		sum += float64(v)
	}
	return sum / float64(len(snap)), nil
}
