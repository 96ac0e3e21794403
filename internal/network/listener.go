package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/backhand/internal/framemux"
	"github.com/banshee-data/backhand/internal/monitoring"
	"github.com/banshee-data/backhand/internal/timeutil"
)

// PacketStatsInterface provides packet statistics management
type PacketStatsInterface interface {
	AddPacket(bytes int)
	AddRejected()
	AddGap()
	LogStats()
}

// FrameHandler consumes decoded frames from a listener or replay source.
type FrameHandler interface {
	HandleFrame(ev framemux.FrameEvent)
}

// FrameHandlerFunc adapts a plain function to the FrameHandler interface.
type FrameHandlerFunc func(ev framemux.FrameEvent)

// HandleFrame calls f(ev).
func (f FrameHandlerFunc) HandleFrame(ev framemux.FrameEvent) { f(ev) }

// UDPListener receives framed luma packets over UDP, decodes them, and hands
// each frame to the configured handler with an arrival timestamp.
type UDPListener struct {
	address       string
	rcvBuf        int
	logInterval   time.Duration
	connMu        sync.RWMutex // Protects conn field
	conn          UDPSocket
	stats         PacketStatsInterface
	handler       FrameHandler
	clock         timeutil.Clock
	socketFactory UDPSocketFactory

	// sequence tracking lives on the Start loop goroutine
	lastSeq uint32
	haveSeq bool
}

// UDPListenerConfig contains configuration options for the UDP listener
type UDPListenerConfig struct {
	Address       string
	RcvBuf        int
	LogInterval   time.Duration
	Stats         PacketStatsInterface
	Handler       FrameHandler
	Clock         timeutil.Clock
	SocketFactory UDPSocketFactory // Optional: factory for creating UDP sockets (for testing)
}

// NewUDPListener creates a new UDP listener with the provided configuration
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	// Provide a no-op stats implementation when none is supplied to avoid
	// nil pointer dereferences in the packet handling and logging paths.
	var stats PacketStatsInterface
	if config.Stats != nil {
		stats = config.Stats
	} else {
		stats = &noopStats{}
	}

	// Default a sensible log interval if not provided
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	rcvBuf := config.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 1 << 20
	}

	// Default to real socket factory if not provided
	socketFactory := config.SocketFactory
	if socketFactory == nil {
		socketFactory = NewRealUDPSocketFactory()
	}

	var clock timeutil.Clock = timeutil.RealClock{}
	if config.Clock != nil {
		clock = config.Clock
	}

	return &UDPListener{
		address:       config.Address,
		rcvBuf:        rcvBuf,
		logInterval:   logInterval,
		stats:         stats,
		handler:       config.Handler,
		clock:         clock,
		socketFactory: socketFactory,
	}
}

// noopStats is a PacketStatsInterface implementation that does nothing.
// It is used as a safe default when no stats collector is provided.
type noopStats struct{}

func (n *noopStats) AddPacket(bytes int) {}
func (n *noopStats) AddRejected()        {}
func (n *noopStats) AddGap()             {}
func (n *noopStats) LogStats()           {}

// Start begins listening for UDP packets and processing them
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := l.socketFactory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.setConn(conn)
	defer conn.Close()

	// Set receive buffer size
	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
	}

	monitoring.Logf("UDP listener started on %s with receive buffer %d bytes", l.address, l.rcvBuf)

	// Start statistics logging
	go l.startStatsLogging(ctx)

	// Prepare buffer for incoming datagrams. A 9x9 frame packet is 93
	// bytes, but allow anything up to the UDP payload ceiling.
	buffer := make([]byte, 65536)
	var deadlineErrLogged bool

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("UDP listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Set read deadline to allow checking context cancellation
			if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
				if !deadlineErrLogged {
					monitoring.Logf("failed to set read deadline: %v", err)
					deadlineErrLogged = true
				}
				// Continue anyway - this is non-fatal
			}

			n, addr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // Continue on timeout to check context
				}
				// Connection closed or context cancelled: clean shutdown.
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return nil
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			datagram := buffer[:n]
			if err := l.handleDatagram(datagram); err != nil {
				monitoring.Logf("Error handling datagram from %v: %v", addr, err)
			}
		}
	}
}

// startStatsLogging starts a goroutine that periodically logs packet statistics
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	// Trigger an initial stats report shortly after startup to avoid a long
	// silence on first-run. Then continue on the configured interval.
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}

// handleDatagram decodes a single received datagram and delivers the frame.
// Each datagram is expected to carry exactly one framed luma packet.
func (l *UDPListener) handleDatagram(datagram []byte) error {
	l.stats.AddPacket(len(datagram))

	pkt, err := framemux.DecodePacket(datagram)
	if err != nil {
		l.stats.AddRejected()
		return fmt.Errorf("decode frame packet: %w", err)
	}

	if l.haveSeq && pkt.Seq != l.lastSeq+1 {
		l.stats.AddGap()
	}
	l.lastSeq = pkt.Seq
	l.haveSeq = true

	if l.handler != nil {
		l.handler.HandleFrame(framemux.FrameEvent{
			Frame: pkt.Frame,
			Seq:   pkt.Seq,
			T:     l.clock.Now(),
		})
	}
	return nil
}

// setConn sets the connection with mutex protection
func (l *UDPListener) setConn(conn UDPSocket) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	l.conn = conn
}

// Close closes the UDP listener and releases resources.
// It is safe to call Close multiple times.
func (l *UDPListener) Close() error {
	l.connMu.Lock()
	conn := l.conn
	l.conn = nil
	l.connMu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
