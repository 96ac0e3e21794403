package luma

import (
	"errors"
	"fmt"
)

// ErrInvalidRegion indicates region bounds that cannot describe a non-empty
// window (start not strictly below end). It is raised at construction time,
// before any frame is analyzed.
var ErrInvalidRegion = errors.New("invalid region bounds")

// Slot identifies one of the six canonical regions. The numeric order is the
// catalog order used by contiguous selection: the three horizontal bands
// first, then the three vertical bands.
type Slot int

const (
	Top Slot = iota
	CenterHoriz
	Bottom
	Left
	CenterVert
	Right

	// SlotCount is the size of the region catalog.
	SlotCount = 6

	// vertAxisStart is the first slot of the vertical-band axis.
	vertAxisStart = int(Left)
)

var slotNames = [SlotCount]string{
	"top", "center_horiz", "bottom", "left", "center_vert", "right",
}

// String returns the lowercase wire/config name of the slot.
func (s Slot) String() string {
	if s < 0 || int(s) >= SlotCount {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// Valid reports whether s names a catalog slot.
func (s Slot) Valid() bool {
	return s >= 0 && int(s) < SlotCount
}

// ParseSlot maps a config/API name to its Slot.
func ParseSlot(name string) (Slot, error) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown region %q", name)
}

// Region is a half-open rectangular window over a frame:
// rows [StartRow,EndRow) by columns [StartCol,EndCol).
type Region struct {
	StartRow int
	EndRow   int
	StartCol int
	EndCol   int
}

// NewRegion validates bounds ordering eagerly so that misconfigured regions
// fail at setup time rather than mid-stream.
func NewRegion(startRow, endRow, startCol, endCol int) (Region, error) {
	if startRow >= endRow || startCol >= endCol {
		return Region{}, fmt.Errorf("%w: rows [%d,%d) cols [%d,%d)",
			ErrInvalidRegion, startRow, endRow, startCol, endCol)
	}
	if startRow < 0 || startCol < 0 {
		return Region{}, fmt.Errorf("%w: negative origin rows [%d,%d) cols [%d,%d)",
			ErrInvalidRegion, startRow, endRow, startCol, endCol)
	}
	return Region{StartRow: startRow, EndRow: endRow, StartCol: startCol, EndCol: endCol}, nil
}

// Cells returns the exact number of samples the region covers.
func (r Region) Cells() int {
	return (r.EndRow - r.StartRow) * (r.EndCol - r.StartCol)
}

// fits reports whether the region lies inside a rows x cols frame.
func (r Region) fits(rows, cols int) bool {
	return r.EndRow <= rows && r.EndCol <= cols
}

// Catalog fixes the six canonical regions for one frame geometry. Horizontal
// bands are Rows/3 thick and span the full width; vertical bands are Cols/3
// wide and span the full height. Integer division truncates, so the trailing
// band of each axis absorbs the remainder rows or columns.
type Catalog struct {
	rows    int
	cols    int
	regions [SlotCount]Region
}

// NewCatalog builds the catalog for a rows x cols frame. Frames smaller than
// three samples in either direction cannot produce non-empty thirds and are
// rejected with ErrInvalidRegion.
func NewCatalog(rows, cols int) (*Catalog, error) {
	hBand := rows / 3
	vBand := cols / 3

	bounds := [SlotCount][4]int{
		Top:         {0, hBand, 0, cols},
		CenterHoriz: {hBand, 2 * hBand, 0, cols},
		Bottom:      {2 * hBand, rows, 0, cols},
		Left:        {0, rows, 0, vBand},
		CenterVert:  {0, rows, vBand, 2 * vBand},
		Right:       {0, rows, 2 * vBand, cols},
	}

	c := &Catalog{rows: rows, cols: cols}
	for i, b := range bounds {
		r, err := NewRegion(b[0], b[1], b[2], b[3])
		if err != nil {
			return nil, fmt.Errorf("catalog %dx%d slot %s: %w", rows, cols, Slot(i), err)
		}
		c.regions[i] = r
	}
	return c, nil
}

// Region returns the window for a catalog slot.
func (c *Catalog) Region(s Slot) Region {
	return c.regions[s]
}

// Rows returns the frame height the catalog was built for.
func (c *Catalog) Rows() int { return c.rows }

// Cols returns the frame width the catalog was built for.
func (c *Catalog) Cols() int { return c.cols }

// Fits reports whether a frame matches the catalog geometry.
func (c *Catalog) Fits(f *Frame) bool {
	return f.Rows == c.rows && f.Cols == c.cols
}
