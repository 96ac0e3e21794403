package luma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalyzerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewAnalyzer(0, 0, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidRegion)

	_, err = NewAnalyzer(2, 1, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidRegion)

	a, err := NewAnalyzer(0, 2, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, Region{StartRow: 0, EndRow: 2, StartCol: 0, EndCol: 4}, a.Region())
}

func TestAnalyzeUniformFrame(t *testing.T) {
	t.Parallel()

	// A uniform frame must report exactly its fill value for any region.
	for _, v := range []uint8{0, 50, 200, 255} {
		f := NewFrame(10, 10)
		f.Fill(v)

		a, err := NewAnalyzer(0, 10, 0, 10)
		require.NoError(t, err)

		got, err := a.Analyze(f)
		require.NoError(t, err)
		assert.Equal(t, float64(v), got)
	}
}

func TestAnalyzeReadsOnlyItsWindow(t *testing.T) {
	t.Parallel()

	f := NewFrame(6, 6)
	f.Fill(0)
	f.FillRect(2, 4, 2, 4, 255)

	inside, err := NewAnalyzer(2, 4, 2, 4)
	require.NoError(t, err)
	outside, err := NewAnalyzer(0, 2, 0, 6)
	require.NoError(t, err)

	got, err := inside.Analyze(f)
	require.NoError(t, err)
	assert.Equal(t, 255.0, got)

	got, err = outside.Analyze(f)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestAnalyzeExactDivision(t *testing.T) {
	t.Parallel()

	// One bright cell in a 3x3 window divides by the exact cell count.
	f := NewFrame(3, 3)
	f.Set(1, 1, 255)

	a, err := NewAnalyzer(0, 3, 0, 3)
	require.NoError(t, err)

	got, err := a.Analyze(f)
	require.NoError(t, err)
	assert.Equal(t, 255.0/9.0, got)
}

func TestAnalyzeConcurrentReaders(t *testing.T) {
	t.Parallel()

	// Analyzers share no mutable state, so many may read one frame at once.
	f := NewFrame(9, 9)
	f.Fill(80)

	a, err := NewAnalyzer(0, 9, 0, 9)
	require.NoError(t, err)

	results := make(chan float64, 16)
	for i := 0; i < 16; i++ {
		go func() {
			got, err := a.Analyze(f)
			assert.NoError(t, err)
			results <- got
		}()
	}
	for i := 0; i < 16; i++ {
		assert.Equal(t, 80.0, <-results)
	}
}

func TestAnalyzeFrameErrors(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(0, 10, 0, 10)
	require.NoError(t, err)

	t.Run("malformed frame", func(t *testing.T) {
		f := &Frame{Rows: 10, Cols: 10, Pix: make([]uint8, 5)}
		_, err := a.Analyze(f)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("region outside frame", func(t *testing.T) {
		_, err := a.Analyze(NewFrame(4, 4))
		assert.ErrorIs(t, err, ErrInvalidRegion)
	})
}
