package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/backhand/internal/luma"
)

// handleLumaChart renders the recent luminance trace (HTML) using go-echarts.
// This is a debugging-only endpoint to eyeball region separation and threshold
// placement without exporting the CSV. Query params:
//   - limit (optional; default full ring) to trim to the most recent ticks
func (s *Server) handleLumaChart(w http.ResponseWriter, r *http.Request) {
	trace := s.rec.Trace()
	if len(trace) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no trace data available")
		return
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v < len(trace) {
			trace = trace[len(trace)-v:]
		}
	}

	x := make([]string, 0, len(trace))
	regionSeries := [luma.SlotCount][]opts.LineData{}
	for slot := range regionSeries {
		regionSeries[slot] = make([]opts.LineData, 0, len(trace))
	}
	signalSeries := make([]opts.LineData, 0, len(trace))
	thresholdSeries := make([]opts.LineData, 0, len(trace))

	threshold := s.rec.Tuning().GetDarknessThreshold()
	for _, rec := range trace {
		x = append(x, rec.T.Format("15:04:05.000"))
		for slot := range regionSeries {
			// A nil value leaves a gap where the region sample was shed.
			if rec.Regions[slot].Valid {
				regionSeries[slot] = append(regionSeries[slot], opts.LineData{Value: rec.Regions[slot].Value})
			} else {
				regionSeries[slot] = append(regionSeries[slot], opts.LineData{Value: nil})
			}
		}
		signalSeries = append(signalSeries, opts.LineData{Value: rec.Signal})
		thresholdSeries = append(thresholdSeries, opts.LineData{Value: threshold})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Region Luminance", Theme: "dark", Width: "1400px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Region Luminance Trace", Subtitle: fmt.Sprintf("ticks=%d threshold=%.1f", len(trace), threshold)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 255, Name: "luma", NameLocation: "middle", NameGap: 35}),
	)

	line.SetXAxis(x)
	for slot := range regionSeries {
		line.AddSeries(luma.Slot(slot).String(), regionSeries[slot])
	}
	line.AddSeries("signal", signalSeries, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ffffff"}))
	line.AddSeries("threshold", thresholdSeries, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
