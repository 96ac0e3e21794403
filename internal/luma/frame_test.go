package luma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid frame passes", func(t *testing.T) {
		f := NewFrame(4, 6)
		assert.NoError(t, f.Validate())
	})

	t.Run("nil frame rejected", func(t *testing.T) {
		var f *Frame
		assert.ErrorIs(t, f.Validate(), ErrMalformedFrame)
	})

	t.Run("non-positive dimensions rejected", func(t *testing.T) {
		f := &Frame{Rows: 0, Cols: 6}
		assert.ErrorIs(t, f.Validate(), ErrMalformedFrame)
	})

	t.Run("buffer length mismatch rejected", func(t *testing.T) {
		f := &Frame{Rows: 4, Cols: 6, Pix: make([]uint8, 23)}
		assert.ErrorIs(t, f.Validate(), ErrMalformedFrame)
	})
}

func TestFrameClone(t *testing.T) {
	t.Parallel()

	f := NewFrame(3, 3)
	f.Fill(100)
	g := f.Clone()

	// Mutating the original must not leak into the clone.
	f.Fill(7)

	require.Equal(t, f.Rows, g.Rows)
	require.Equal(t, f.Cols, g.Cols)
	for i := range g.Pix {
		assert.Equal(t, uint8(100), g.Pix[i])
	}
}

func TestFrameFillRect(t *testing.T) {
	t.Parallel()

	f := NewFrame(4, 4)
	f.Fill(255)
	f.FillRect(1, 3, 1, 3, 0)

	assert.Equal(t, uint8(255), f.At(0, 0))
	assert.Equal(t, uint8(0), f.At(1, 1))
	assert.Equal(t, uint8(0), f.At(2, 2))
	assert.Equal(t, uint8(255), f.At(3, 3))

	// Out-of-range windows clamp instead of panicking.
	f.FillRect(-2, 10, -2, 10, 42)
	assert.Equal(t, uint8(42), f.At(0, 0))
	assert.Equal(t, uint8(42), f.At(3, 3))
}
