package luma

import (
	"errors"
	"fmt"
)

// ErrMalformedFrame indicates a frame whose declared dimensions do not match
// its pixel buffer. Such frames are rejected before any analysis runs.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is a single grayscale capture: Rows x Cols 8-bit luminance samples in
// row-major order. The buffer may be reused by the producer after delivery,
// so consumers that read it asynchronously must copy the window they need.
type Frame struct {
	Rows int
	Cols int
	Pix  []uint8
}

// NewFrame allocates a zeroed frame with the given dimensions.
func NewFrame(rows, cols int) *Frame {
	return &Frame{
		Rows: rows,
		Cols: cols,
		Pix:  make([]uint8, rows*cols),
	}
}

// Validate checks that the frame's declared dimensions are positive and
// consistent with its buffer length.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrMalformedFrame)
	}
	if f.Rows <= 0 || f.Cols <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrMalformedFrame, f.Rows, f.Cols)
	}
	if len(f.Pix) != f.Rows*f.Cols {
		return fmt.Errorf("%w: %dx%d frame with %d pixels", ErrMalformedFrame, f.Rows, f.Cols, len(f.Pix))
	}
	return nil
}

// At returns the luminance sample at row r, column c. Bounds are the
// caller's responsibility.
func (f *Frame) At(r, c int) uint8 {
	return f.Pix[r*f.Cols+c]
}

// Set writes the luminance sample at row r, column c.
func (f *Frame) Set(r, c int, v uint8) {
	f.Pix[r*f.Cols+c] = v
}

// Fill sets every sample in the frame to v.
func (f *Frame) Fill(v uint8) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// FillRect sets the half-open window [r0,r1) x [c0,c1) to v, clamped to the
// frame bounds.
func (f *Frame) FillRect(r0, r1, c0, c1 int, v uint8) {
	r0 = max(r0, 0)
	c0 = max(c0, 0)
	r1 = min(r1, f.Rows)
	c1 = min(c1, f.Cols)
	for r := r0; r < r1; r++ {
		base := r * f.Cols
		for c := c0; c < c1; c++ {
			f.Pix[base+c] = v
		}
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{Rows: f.Rows, Cols: f.Cols, Pix: make([]uint8, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}
