package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/backhand/internal/api"
	"github.com/banshee-data/backhand/internal/config"
	"github.com/banshee-data/backhand/internal/framemux"
	"github.com/banshee-data/backhand/internal/gesture"
	"github.com/banshee-data/backhand/internal/network"
	"github.com/banshee-data/backhand/internal/pipeline"
	"github.com/banshee-data/backhand/internal/version"
)

var (
	listen      = flag.String("listen", ":8081", "HTTP listen address for the diagnostics API")
	source      = flag.String("source", "udp", "Frame source: udp, serial, mock, or pcap")
	udpPort     = flag.Int("udp-port", 2371, "UDP port to listen for frame packets")
	udpAddress  = flag.String("udp-addr", "", "UDP bind address (default: listen on all interfaces)")
	serialPath  = flag.String("serial-path", "/dev/ttyUSB0", "Serial device streaming frame packets")
	baudRate    = flag.Int("baud", 115200, "Serial baud rate")
	tuningFile  = flag.String("config", "", "Path to a tuning config JSON file (optional)")
	rows        = flag.Int("rows", 9, "Frame rows the recognizer accepts")
	cols        = flag.Int("cols", 9, "Frame columns the recognizer accepts")
	rcvBuf      = flag.Int("rcvbuf", 1<<20, "UDP receive buffer size in bytes (default 1MB)")
	logInterval = flag.Int("log-interval", 60, "Frame statistics logging interval in seconds")
	mockFPS     = flag.Int("mock-fps", 30, "Mock source frame rate")
	pcapFile    = flag.String("pcap", "", "PCAP capture of the UDP stream to replay (source=pcap)")
	debugDiag   = flag.Bool("debug", false, "Log finalized gestures and tick diagnostics")
	debugTrace  = flag.Bool("trace", false, "Log per-tick telemetry (implies -debug)")
)

// Main
func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}

	log.Printf("backhand %s", version.String())

	// Wire the pipeline log streams. Ops warnings always reach stderr;
	// the diag and trace streams are opt-in.
	var diagW, traceW io.Writer
	if *debugDiag || *debugTrace {
		diagW = os.Stderr
	}
	if *debugTrace {
		traceW = os.Stderr
	}
	pipeline.SetLogWriters(os.Stderr, diagW, traceW)

	var tuning *config.TuningConfig
	if *tuningFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *tuningFile)
	}

	rec, err := pipeline.NewRecognizer(pipeline.RecognizerConfig{
		Rows:   *rows,
		Cols:   *cols,
		Tuning: tuning,
		Sink: gesture.SinkFuncs{
			Tap:   func(state gesture.TapState) { log.Printf("gesture: tap %s", state) },
			Swipe: func(dir gesture.SwipeDirection) { log.Printf("gesture: swipe %s", dir) },
		},
	})
	if err != nil {
		log.Fatalf("Failed to build recognizer: %v", err)
	}
	defer rec.Close()

	// Create a wait group for the frame source, throughput monitor, and
	// HTTP server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Throughput monitor routine
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec.Run(ctx)
		log.Print("throughput monitor routine terminated")
	}()

	deliver := func(ev framemux.FrameEvent) {
		if err := rec.DeliverFrameAt(ctx, ev.Frame, ev.T); err != nil {
			// A busy tick is already counted as a dropped frame.
			if !errors.Is(err, pipeline.ErrBusy) && !errors.Is(err, pipeline.ErrClosed) {
				log.Printf("frame rejected: %v", err)
			}
		}
	}

	// apiSource feeds transport counters to /api/status when the source
	// has them.
	var apiSource api.SourceStats

	switch *source {
	case "udp":
		var udpListenAddr string
		if *udpAddress == "" {
			udpListenAddr = fmt.Sprintf(":%d", *udpPort)
		} else {
			udpListenAddr = fmt.Sprintf("%s:%d", *udpAddress, *udpPort)
		}

		listener := network.NewUDPListener(network.UDPListenerConfig{
			Address:     udpListenAddr,
			RcvBuf:      *rcvBuf,
			LogInterval: time.Duration(*logInterval) * time.Second,
			Stats:       network.NewPacketStats(),
			Handler:     network.FrameHandlerFunc(deliver),
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("UDP listener error: %v", err)
				stop()
			}
			log.Print("UDP listener routine terminated")
		}()

	case "serial", "mock":
		var m framemux.FrameMuxInterface
		if *source == "serial" {
			sm, err := framemux.NewSerialFrameMux(*serialPath, framemux.PortOptions{BaudRate: *baudRate})
			if err != nil {
				log.Fatalf("Failed to open serial frame source: %v", err)
			}
			m = sm
			apiSource = sm
			log.Printf("Reading frame packets from %s at %d baud", *serialPath, *baudRate)
		} else {
			if *mockFPS < 1 {
				log.Fatalf("mock-fps must be at least 1, got %d", *mockFPS)
			}
			mm := framemux.NewMockFrameMux(framemux.GestureScript(*rows, *cols), time.Second/time.Duration(*mockFPS))
			m = mm
			apiSource = mm
			log.Printf("Playing synthetic gestures at %d fps", *mockFPS)
		}
		defer m.Close()

		// run the monitor routine to manage IO on the frame port
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("frame monitor error: %v", err)
				stop()
			}
			log.Print("frame monitor routine terminated")
		}()

		// subscribe to decoded frames and pass them to the recognizer
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, c := m.Subscribe()
			defer m.Unsubscribe(id)
			for {
				select {
				case ev := <-c:
					deliver(ev)
				case <-ctx.Done():
					log.Print("frame subscribe routine terminated")
					return
				}
			}
		}()

	case "pcap":
		if *pcapFile == "" {
			log.Fatal("source=pcap requires -pcap with a capture file")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := network.ReplayPCAPFile(ctx, *pcapFile, *udpPort, network.FrameHandlerFunc(deliver), network.NewPacketStats())
			if err != nil && err != context.Canceled {
				log.Printf("PCAP replay error: %v", err)
				stop()
				return
			}
			// Keep the diagnostics API up so the replayed events and
			// trace can be inspected.
			log.Print("PCAP replay complete; interrupt to exit")
		}()

	default:
		log.Fatalf("unknown source %q: expected udp, serial, mock, or pcap", *source)
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		server := api.NewServer(api.ServerConfig{
			Address:    *listen,
			Recognizer: rec,
			Source:     apiSource,
		})
		if err := server.Start(ctx); err != nil {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
		log.Print("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Print("Graceful shutdown complete")
}
