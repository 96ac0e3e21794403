//go:build !pcap
// +build !pcap

package network

import (
	"context"
	"strings"
	"testing"
)

// TestReplayPCAPFileStub tests the stub implementation returns an error
func TestReplayPCAPFileStub(t *testing.T) {
	err := ReplayPCAPFile(context.Background(), "capture.pcap", 6581, nil, nil)
	if err == nil {
		t.Fatal("expected error from stub implementation")
	}
	if !strings.HasPrefix(err.Error(), "PCAP support not enabled") {
		t.Errorf("unexpected stub error message: %q", err.Error())
	}
}
