package framemux

import (
	"io"
)

// FramePorter defines the minimal interface needed for a frame source. The
// stream is one-way: camera heads emit packets and accept nothing back.
// This abstraction enables unit testing without real hardware.
type FramePorter interface {
	io.Reader
	io.Closer
}
