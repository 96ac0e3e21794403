package framemux

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/banshee-data/backhand/internal/luma"
)

// PacketVersion is the codec revision this build speaks.
const PacketVersion byte = 1

const (
	magic0    = 'B'
	magic1    = 'H'
	headerLen = 12

	// maxFramePixels bounds rows*cols so a corrupt header cannot demand an
	// absurd read.
	maxFramePixels = 1 << 20
)

// ErrBadPacket indicates a packet that could not be decoded.
var ErrBadPacket = errors.New("malformed frame packet")

// Packet is one decoded frame packet. The wire layout is:
//
//	'B' 'H' | version(1) | flags(1) | seq(4, BE) | rows(2, BE) | cols(2, BE) | rows*cols luma bytes
//
// The sequence counter detects drops; it never gates delivery.
type Packet struct {
	Version byte
	Flags   byte
	Seq     uint32
	Frame   *luma.Frame
}

// EncodePacket serializes a frame into a packet with the given sequence
// number.
func EncodePacket(seq uint32, f *luma.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Rows > 0xFFFF || f.Cols > 0xFFFF {
		return nil, fmt.Errorf("%w: dimensions %dx%d exceed the header range", ErrBadPacket, f.Rows, f.Cols)
	}

	buf := make([]byte, headerLen+len(f.Pix))
	buf[0] = magic0
	buf[1] = magic1
	buf[2] = PacketVersion
	buf[3] = 0
	binary.BigEndian.PutUint32(buf[4:8], seq)
	binary.BigEndian.PutUint16(buf[8:10], uint16(f.Rows))
	binary.BigEndian.PutUint16(buf[10:12], uint16(f.Cols))
	copy(buf[headerLen:], f.Pix)
	return buf, nil
}

// DecodePacket parses one complete packet. The input must be exactly one
// packet: undersized, oversized, or trailing-garbage buffers are rejected.
// The pixel payload is copied, so the input buffer may be reused.
func DecodePacket(b []byte) (*Packet, error) {
	if len(b) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrBadPacket, len(b))
	}
	if b[0] != magic0 || b[1] != magic1 {
		return nil, fmt.Errorf("%w: bad magic 0x%02x%02x", ErrBadPacket, b[0], b[1])
	}
	if b[2] != PacketVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadPacket, b[2])
	}

	rows := int(binary.BigEndian.Uint16(b[8:10]))
	cols := int(binary.BigEndian.Uint16(b[10:12]))
	if rows == 0 || cols == 0 || int64(rows)*int64(cols) > maxFramePixels {
		return nil, fmt.Errorf("%w: implausible dimensions %dx%d", ErrBadPacket, rows, cols)
	}
	if want := headerLen + rows*cols; len(b) != want {
		return nil, fmt.Errorf("%w: %dx%d packet wants %d bytes, got %d", ErrBadPacket, rows, cols, want, len(b))
	}

	pix := make([]uint8, rows*cols)
	copy(pix, b[headerLen:])

	return &Packet{
		Version: b[2],
		Flags:   b[3],
		Seq:     binary.BigEndian.Uint32(b[4:8]),
		Frame:   &luma.Frame{Rows: rows, Cols: cols, Pix: pix},
	}, nil
}

// ScanPackets is a bufio.SplitFunc that frames packets out of a byte
// stream. Garbage between packets is discarded; an implausible header is
// treated as stream noise and the scan resynchronizes on the next magic.
func ScanPackets(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		if data[start] == magic0 {
			if start+1 < len(data) {
				if data[start+1] == magic1 {
					break
				}
			} else if !atEOF {
				// a trailing first magic byte may begin a packet
				break
			}
		}
		start++
	}

	if start >= len(data)-1 {
		// no full magic in the window
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	if len(data)-start < headerLen {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	rows := int(binary.BigEndian.Uint16(data[start+8 : start+10]))
	cols := int(binary.BigEndian.Uint16(data[start+10 : start+12]))
	if rows == 0 || cols == 0 || int64(rows)*int64(cols) > maxFramePixels {
		return start + 2, nil, nil
	}

	total := headerLen + rows*cols
	if len(data)-start < total {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	return start + total, data[start : start+total], nil
}
