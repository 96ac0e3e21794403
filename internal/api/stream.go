package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banshee-data/backhand/internal/monitoring"
)

// handleEventStream streams gesture events over Server-Sent Events. Each
// event is one `data:` line of JSON. The stream stays open until the client
// disconnects or the recognizer shuts down.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, events := s.rec.SubscribeEvents()
	defer s.rec.UnsubscribeEvents(id)

	// Open the stream immediately so clients see a live connection before
	// the first gesture lands.
	fmt.Fprintf(w, ": ping\n\n")
	flusher.Flush()

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				monitoring.Logf("Error marshaling %s event for stream: %v", ev.Label(), err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
