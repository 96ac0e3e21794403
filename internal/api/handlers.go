package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/backhand/internal/calibrate"
	"github.com/banshee-data/backhand/internal/framemux"
	"github.com/banshee-data/backhand/internal/gesture"
	"github.com/banshee-data/backhand/internal/luma"
	"github.com/banshee-data/backhand/internal/monitoring"
	"github.com/banshee-data/backhand/internal/pipeline"
	"github.com/banshee-data/backhand/internal/version"
)

type statusResponse struct {
	Version      string           `json:"version"`
	Tap          gesture.TapState `json:"tap"`
	FramesPerSec int64            `json:"frames_per_sec"`
	Frames       int64            `json:"frames"`
	Dropped      int64            `json:"dropped"`
	SinkDropped  int64            `json:"sink_dropped"`
	UptimeSec    float64          `json:"uptime_sec"`
	LastTick     *time.Time       `json:"last_tick,omitempty"`
	Source       *framemux.Stats  `json:"source,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	frames, dropped, sinkDropped := s.rec.Totals()
	resp := statusResponse{
		Version:      version.Version,
		Tap:          s.rec.State(),
		FramesPerSec: s.rec.Rate(),
		Frames:       frames,
		Dropped:      dropped,
		SinkDropped:  sinkDropped,
		UptimeSec:    s.rec.Clock().Since(s.rec.Started()).Seconds(),
	}
	if t := s.rec.LastTick(); !t.IsZero() {
		resp.LastTick = &t
	}
	if s.source != nil {
		stats := s.source.Stats()
		resp.Source = &stats
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type regionSample struct {
	Region   string  `json:"region"`
	Mean     float64 `json:"mean"`
	Valid    bool    `json:"valid"`
	StartRow int     `json:"start_row"`
	EndRow   int     `json:"end_row"`
	StartCol int     `json:"start_col"`
	EndCol   int     `json:"end_col"`
}

type regionsResponse struct {
	Time    time.Time      `json:"time"`
	Signal  float64        `json:"signal"`
	Dark    bool           `json:"dark"`
	Regions []regionSample `json:"regions"`
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.rec.LastTrace()
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no trace data available")
		return
	}

	catalog := s.rec.Catalog()
	resp := regionsResponse{
		Time:    rec.T,
		Signal:  rec.Signal,
		Dark:    rec.Dark,
		Regions: make([]regionSample, 0, luma.SlotCount),
	}
	for slot := luma.Slot(0); slot < luma.SlotCount; slot++ {
		region := catalog.Region(slot)
		resp.Regions = append(resp.Regions, regionSample{
			Region:   slot.String(),
			Mean:     rec.Regions[slot].Value,
			Valid:    rec.Regions[slot].Valid,
			StartRow: region.StartRow,
			EndRow:   region.EndRow,
			StartCol: region.StartCol,
			EndCol:   region.EndCol,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type eventsResponse struct {
	Count  int                    `json:"count"`
	Events []pipeline.EventRecord `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.rec.Events()

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(eventsResponse{Count: len(events), Events: events})
}

type configResponse struct {
	Rows                int      `json:"rows"`
	Cols                int      `json:"cols"`
	DarknessThreshold   float64  `json:"darkness_threshold"`
	TapRegions          []string `json:"tap_regions"`
	DebounceFloor       string   `json:"debounce_floor"`
	DebounceWindow      string   `json:"debounce_window"`
	MinGapAfterFinalize string   `json:"min_gap_after_finalize"`
	SwipeStepTimeout    string   `json:"swipe_step_timeout"`
	JobTimeout          string   `json:"job_timeout"`
	MaxWorkers          int      `json:"max_workers"`
	RateInterval        string   `json:"rate_interval"`
	EventRingSize       int      `json:"event_ring_size"`
	TraceRingSize       int      `json:"trace_ring_size"`
	SinkQueueSize       int      `json:"sink_queue_size"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	tuning := s.rec.Tuning()
	catalog := s.rec.Catalog()
	resp := configResponse{
		Rows:                catalog.Rows(),
		Cols:                catalog.Cols(),
		DarknessThreshold:   tuning.GetDarknessThreshold(),
		TapRegions:          tuning.GetTapRegions(),
		DebounceFloor:       tuning.GetDebounceFloor().String(),
		DebounceWindow:      tuning.GetDebounceWindow().String(),
		MinGapAfterFinalize: tuning.GetMinGapAfterFinalize().String(),
		SwipeStepTimeout:    tuning.GetSwipeStepTimeout().String(),
		JobTimeout:          tuning.GetJobTimeout().String(),
		MaxWorkers:          tuning.GetMaxWorkers(),
		RateInterval:        tuning.GetRateInterval().String(),
		EventRingSize:       tuning.GetEventRingSize(),
		TraceRingSize:       tuning.GetTraceRingSize(),
		SinkQueueSize:       tuning.GetSinkQueueSize(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	suggestion, err := calibrate.Suggest(s.rec.Signals())
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(suggestion)
}

func (s *Server) handleTraceCSV(w http.ResponseWriter, r *http.Request) {
	records := s.rec.Trace()
	if len(records) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no trace data available")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="luma_trace.csv"`)
	if err := pipeline.WriteTraceCSV(w, records); err != nil {
		// Headers are already out; all we can do is log.
		monitoring.Logf("Error writing trace CSV: %v", err)
	}
}
