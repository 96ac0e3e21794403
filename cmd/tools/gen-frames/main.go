// Command gen-frames plays the synthetic gesture script as framed luma
// packets, either over UDP to a running listener or into a file for replay
// tests.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"time"

	"github.com/banshee-data/backhand/internal/framemux"
)

func main() {
	target := flag.String("target", "localhost:2371", "UDP address to send frame packets to")
	output := flag.String("o", "", "write the packet stream to a file instead of sending UDP")
	fps := flag.Int("fps", 30, "frames per second")
	loops := flag.Int("loops", 1, "times to play the gesture script (0 = forever, UDP only)")
	rows := flag.Int("rows", 9, "frame rows")
	cols := flag.Int("cols", 9, "frame columns")
	flag.Parse()

	if *fps < 1 {
		log.Fatalf("fps must be at least 1, got %d", *fps)
	}

	script := framemux.GestureScript(*rows, *cols)

	if *output != "" {
		if *loops < 1 {
			log.Fatal("file output needs a positive -loops count")
		}
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer f.Close()

		var seq uint32
		for i := 0; i < *loops; i++ {
			for _, frame := range script {
				pkt, err := framemux.EncodePacket(seq, frame)
				if err != nil {
					log.Fatalf("Failed to encode frame %d: %v", seq, err)
				}
				if _, err := f.Write(pkt); err != nil {
					log.Fatalf("Failed to write frame %d: %v", seq, err)
				}
				seq++
			}
		}
		log.Printf("✓ Created: %s (%d frames)", *output, seq)
		return
	}

	conn, err := net.Dial("udp", *target)
	if err != nil {
		log.Fatalf("Failed to dial %s: %v", *target, err)
	}
	defer conn.Close()

	interval := time.Second / time.Duration(*fps)
	log.Printf("Sending %dx%d frames to %s at %d fps", *rows, *cols, *target, *fps)

	var seq uint32
	for loop := 0; *loops == 0 || loop < *loops; loop++ {
		for _, frame := range script {
			pkt, err := framemux.EncodePacket(seq, frame)
			if err != nil {
				log.Fatalf("Failed to encode frame %d: %v", seq, err)
			}
			if _, err := conn.Write(pkt); err != nil {
				log.Fatalf("Failed to send frame %d: %v", seq, err)
			}
			seq++
			if seq%100 == 0 {
				log.Printf("%d frames sent", seq)
			}
			time.Sleep(interval)
		}
	}
	log.Printf("✓ Sent %d frames", seq)
}
