package network

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/backhand/internal/monitoring"
)

// PacketStats tracks frame packet statistics with thread-safe operations
type PacketStats struct {
	mu          sync.Mutex
	packetCount int64
	byteCount   int64
	rejectCount int64
	gapCount    int64
	lastReset   time.Time
}

// NewPacketStats creates a new PacketStats instance
func NewPacketStats() *PacketStats {
	return &PacketStats{
		lastReset: time.Now(),
	}
}

// AddPacket increments packet count and byte count
func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packetCount++
	ps.byteCount += int64(bytes)
}

// AddRejected increments the count of datagrams that failed decoding
func (ps *PacketStats) AddRejected() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.rejectCount++
}

// AddGap increments the count of sequence number discontinuities
func (ps *PacketStats) AddGap() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.gapCount++
}

// GetAndReset returns current stats and resets counters
func (ps *PacketStats) GetAndReset() (packets, bytes, rejected, gaps int64, duration time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	duration = now.Sub(ps.lastReset)
	packets = ps.packetCount
	bytes = ps.byteCount
	rejected = ps.rejectCount
	gaps = ps.gapCount

	ps.packetCount = 0
	ps.byteCount = 0
	ps.rejectCount = 0
	ps.gapCount = 0
	ps.lastReset = now

	return
}

// LogStats logs a one-line rate summary and resets the counters. Quiet
// intervals with no traffic produce no log line.
func (ps *PacketStats) LogStats() {
	packets, bytes, rejected, gaps, duration := ps.GetAndReset()
	if packets == 0 && rejected == 0 {
		return
	}

	framesPerSec := float64(packets) / duration.Seconds()
	kbPerSec := float64(bytes) / duration.Seconds() / 1024

	logMsg := fmt.Sprintf("Frame stream stats (/sec): %.2f KB, %.1f frames", kbPerSec, framesPerSec)
	if rejected > 0 {
		logMsg += fmt.Sprintf(", %d rejected", rejected)
	}
	if gaps > 0 {
		logMsg += fmt.Sprintf(", %d sequence gaps", gaps)
	}

	monitoring.Logf("%s", logMsg)
}
