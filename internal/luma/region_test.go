package luma

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegionValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                               string
		startRow, endRow, startCol, endCol int
		wantErr                            bool
	}{
		{"valid window", 0, 2, 0, 2, false},
		{"single cell", 1, 2, 1, 2, false},
		{"empty rows", 2, 2, 0, 2, true},
		{"inverted rows", 3, 1, 0, 2, true},
		{"empty cols", 0, 2, 2, 2, true},
		{"inverted cols", 0, 2, 3, 1, true},
		{"negative origin", -1, 2, 0, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegion(tt.startRow, tt.endRow, tt.startCol, tt.endCol)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRegion)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegionCells(t *testing.T) {
	t.Parallel()

	r, err := NewRegion(2, 5, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 18, r.Cells())
}

func TestSlotNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "top", Top.String())
	assert.Equal(t, "center_horiz", CenterHoriz.String())
	assert.Equal(t, "bottom", Bottom.String())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "center_vert", CenterVert.String())
	assert.Equal(t, "right", Right.String())

	for i := 0; i < SlotCount; i++ {
		s, err := ParseSlot(Slot(i).String())
		require.NoError(t, err)
		assert.Equal(t, Slot(i), s)
	}

	_, err := ParseSlot("diagonal")
	assert.Error(t, err)
}

func TestCatalogGeometry(t *testing.T) {
	t.Parallel()

	t.Run("evenly divisible", func(t *testing.T) {
		c, err := NewCatalog(9, 12)
		require.NoError(t, err)

		want := map[Slot]Region{
			Top:         {StartRow: 0, EndRow: 3, StartCol: 0, EndCol: 12},
			CenterHoriz: {StartRow: 3, EndRow: 6, StartCol: 0, EndCol: 12},
			Bottom:      {StartRow: 6, EndRow: 9, StartCol: 0, EndCol: 12},
			Left:        {StartRow: 0, EndRow: 9, StartCol: 0, EndCol: 4},
			CenterVert:  {StartRow: 0, EndRow: 9, StartCol: 4, EndCol: 8},
			Right:       {StartRow: 0, EndRow: 9, StartCol: 8, EndCol: 12},
		}
		for slot, region := range want {
			if diff := cmp.Diff(region, c.Region(slot)); diff != "" {
				t.Errorf("slot %s mismatch (-want +got):\n%s", slot, diff)
			}
		}
	})

	t.Run("trailing band absorbs remainder", func(t *testing.T) {
		c, err := NewCatalog(10, 11)
		require.NoError(t, err)

		// 10/3 = 3, so the bottom band runs rows [6,10).
		assert.Equal(t, Region{StartRow: 6, EndRow: 10, StartCol: 0, EndCol: 11}, c.Region(Bottom))
		// 11/3 = 3, so the right band runs cols [6,11).
		assert.Equal(t, Region{StartRow: 0, EndRow: 10, StartCol: 6, EndCol: 11}, c.Region(Right))
		// Non-trailing bands keep the truncated width.
		assert.Equal(t, Region{StartRow: 3, EndRow: 6, StartCol: 0, EndCol: 11}, c.Region(CenterHoriz))
		assert.Equal(t, Region{StartRow: 0, EndRow: 10, StartCol: 3, EndCol: 6}, c.Region(CenterVert))
	})

	t.Run("frames thinner than three samples rejected", func(t *testing.T) {
		_, err := NewCatalog(2, 12)
		assert.ErrorIs(t, err, ErrInvalidRegion)

		_, err = NewCatalog(12, 2)
		assert.ErrorIs(t, err, ErrInvalidRegion)
	})
}

func TestCatalogFits(t *testing.T) {
	t.Parallel()

	c, err := NewCatalog(6, 9)
	require.NoError(t, err)

	assert.True(t, c.Fits(NewFrame(6, 9)))
	assert.False(t, c.Fits(NewFrame(9, 6)))
}
