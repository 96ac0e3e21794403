package framemux

import (
	"go.bug.st/serial"
)

// NewSerialFrameMux creates a FrameMux backed by a real serial port at the
// given path using the provided serial options.
func NewSerialFrameMux(path string, opts PortOptions) (*FrameMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewFrameMux[serial.Port](port), nil
}
