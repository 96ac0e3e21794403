package framemux

import (
	"io"
	"time"

	"github.com/banshee-data/backhand/internal/luma"
)

// MockFramePort implements FramePorter over an in-process pipe fed by a
// scripted frame sequence.
type MockFramePort struct {
	io.Reader
	pipe *io.PipeReader
}

// Close closes the read side of the pipe, which unblocks and stops the
// script writer.
func (m *MockFramePort) Close() error {
	return m.pipe.Close()
}

// NewMockFrameMux creates a FrameMux fed by the script, one frame per
// interval, looping forever. Dev mode runs on this when no hardware is
// attached.
func NewMockFrameMux(script []*luma.Frame, interval time.Duration) *FrameMux[*MockFramePort] {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}

	r, w := io.Pipe()
	port := &MockFramePort{Reader: r, pipe: r}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var seq uint32
		for range ticker.C {
			f := script[int(seq)%len(script)]
			pkt, err := EncodePacket(seq, f)
			if err != nil {
				return
			}
			// a write error means the port was closed
			if _, err := w.Write(pkt); err != nil {
				return
			}
			seq++
		}
	}()

	return NewFrameMux(port)
}

// GestureScript builds a frame sequence that plays one center tap followed
// by a downward swipe, padded with bright frames so the loop boundary stays
// quiet. At the default 33ms interval the tap finalizes and every swipe
// step lands inside the default debounce window.
func GestureScript(rows, cols int) []*luma.Frame {
	bright := func() *luma.Frame {
		f := luma.NewFrame(rows, cols)
		f.Fill(200)
		return f
	}
	band := func(r0, r1 int) *luma.Frame {
		f := bright()
		f.FillRect(r0, r1, 0, cols, 10)
		return f
	}
	dark := func() *luma.Frame {
		f := luma.NewFrame(rows, cols)
		f.Fill(10)
		return f
	}

	var script []*luma.Frame
	add := func(n int, mk func() *luma.Frame) {
		for i := 0; i < n; i++ {
			script = append(script, mk())
		}
	}

	third := rows / 3

	// a short cover, then enough quiet to finalize a single tap
	add(8, bright)
	add(2, dark)
	add(18, bright)

	// a top-to-bottom sweep, two frames per band
	add(2, func() *luma.Frame { return band(0, third) })
	add(2, func() *luma.Frame { return band(third, 2*third) })
	add(2, func() *luma.Frame { return band(2*third, rows) })
	add(8, bright)

	return script
}
