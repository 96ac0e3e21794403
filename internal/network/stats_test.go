package network

import (
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/banshee-data/backhand/internal/monitoring"
)

func TestPacketStatsGetAndReset(t *testing.T) {
	ps := NewPacketStats()
	ps.AddPacket(93)
	ps.AddPacket(93)
	ps.AddRejected()
	ps.AddGap()

	packets, bytes, rejected, gaps, duration := ps.GetAndReset()
	if packets != 2 {
		t.Errorf("expected 2 packets, got %d", packets)
	}
	if bytes != 186 {
		t.Errorf("expected 186 bytes, got %d", bytes)
	}
	if rejected != 1 {
		t.Errorf("expected 1 rejected, got %d", rejected)
	}
	if gaps != 1 {
		t.Errorf("expected 1 gap, got %d", gaps)
	}
	if duration <= 0 {
		t.Errorf("expected positive duration, got %v", duration)
	}

	packets, bytes, rejected, gaps, _ = ps.GetAndReset()
	if packets != 0 || bytes != 0 || rejected != 0 || gaps != 0 {
		t.Errorf("expected counters reset to zero, got %d/%d/%d/%d",
			packets, bytes, rejected, gaps)
	}
}

func TestPacketStatsLogStats(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	defer monitoring.SetLogger(log.Printf)

	ps := NewPacketStats()

	// A quiet interval logs nothing.
	ps.LogStats()
	if len(lines) != 0 {
		t.Fatalf("expected no log lines for quiet interval, got %v", lines)
	}

	ps.AddPacket(93)
	ps.AddRejected()
	ps.AddGap()
	ps.LogStats()

	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "Frame stream stats") {
		t.Errorf("unexpected log line: %q", lines[0])
	}
	if !strings.Contains(lines[0], "1 rejected") {
		t.Errorf("expected rejected count in log line: %q", lines[0])
	}
	if !strings.Contains(lines[0], "1 sequence gaps") {
		t.Errorf("expected gap count in log line: %q", lines[0])
	}

	// Counters reset after logging, so a second call is quiet again.
	lines = nil
	ps.LogStats()
	if len(lines) != 0 {
		t.Fatalf("expected no log lines after reset, got %v", lines)
	}
}
