//go:build pcap
// +build pcap

package network

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/backhand/internal/framemux"
	"github.com/banshee-data/backhand/internal/monitoring"
)

// ReplayPCAPFile reads framed luma packets from a PCAP capture and delivers
// each decoded frame to the handler, stamped with its capture timestamp so
// gesture timing replays exactly as recorded.
// This function is only available when building with the 'pcap' build tag.
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, handler FrameHandler, stats PacketStatsInterface) error {
	if stats == nil {
		stats = &noopStats{}
	}

	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	// Set BPF filter to only capture UDP packets on the specified port
	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("failed to set BPF filter '%s': %w", filterStr, err)
	}
	monitoring.Logf("PCAP BPF filter set: %s", filterStr)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetCount := 0
	startTime := time.Now()

	var lastSeq uint32
	haveSeq := false

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("PCAP replay stopping due to context cancellation (processed %d packets)", packetCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				// End of PCAP file
				elapsed := time.Since(startTime)
				monitoring.Logf("PCAP replay complete: %d packets processed in %v", packetCount, elapsed)
				return nil
			}

			packetCount++

			// Extract UDP layer
			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue // Skip non-UDP packets (shouldn't happen with BPF filter)
			}

			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}

			payload := udp.Payload
			if len(payload) == 0 {
				continue
			}

			stats.AddPacket(len(payload))

			pkt, err := framemux.DecodePacket(payload)
			if err != nil {
				stats.AddRejected()
				monitoring.Logf("Error decoding PCAP packet %d: %v", packetCount, err)
				continue
			}

			if haveSeq && pkt.Seq != lastSeq+1 {
				stats.AddGap()
			}
			lastSeq = pkt.Seq
			haveSeq = true

			// Prefer capture timestamps over wall clock so debounce and
			// swipe windows replay with recorded spacing.
			ts := packet.Metadata().Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}

			if handler != nil {
				handler.HandleFrame(framemux.FrameEvent{
					Frame: pkt.Frame,
					Seq:   pkt.Seq,
					T:     ts,
				})
			}

			// Log progress periodically
			if packetCount%1000 == 0 {
				elapsed := time.Since(startTime)
				monitoring.Logf("PCAP progress: %d packets processed in %v (%.0f pkt/s)",
					packetCount, elapsed, float64(packetCount)/elapsed.Seconds())
			}
		}
	}
}
