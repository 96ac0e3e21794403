// Command luma-plot renders a recorded luminance trace CSV as a PNG
// time-series chart. The input is the format served by /api/trace: one
// row per tick with a timestamp, per-region means, the tap signal and
// the dark flag.
//
// Usage:
//
//	luma-plot -i trace.csv -o trace.png -threshold 50
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	input     = flag.String("i", "", "input trace CSV (required)")
	output    = flag.String("o", "", "output PNG (default: input with .png extension)")
	threshold = flag.Float64("threshold", 0, "draw a horizontal darkness-threshold line (0 = omit)")
)

func main() {
	flag.Parse()

	if *input == "" {
		log.Fatalf("-i is required")
	}
	out := *output
	if out == "" {
		ext := filepath.Ext(*input)
		out = strings.TrimSuffix(*input, ext) + ".png"
	}

	regions, rows, err := readTrace(*input)
	if err != nil {
		log.Fatalf("read %s: %v", *input, err)
	}
	if len(rows) == 0 {
		log.Fatalf("no trace rows in %s", *input)
	}

	if err := renderPlot(out, regions, rows, *threshold); err != nil {
		log.Fatalf("render plot: %v", err)
	}

	dark := 0
	for _, r := range rows {
		if r.dark {
			dark++
		}
	}
	log.Printf("✓ Created: %s (%d ticks, %d dark)", out, len(rows), dark)
}

// traceRow is one parsed CSV record. Region cells can be empty when the
// sampler shed that region, so values carry a per-cell valid flag.
type traceRow struct {
	elapsed float64
	values  []float64
	valid   []bool
	signal  float64
	dark    bool
}

// readTrace parses a trace CSV. The header names the region columns;
// everything between the timestamp and the trailing signal/dark pair is
// treated as a region so the tool works for any region layout.
func readTrace(path string) ([]string, []traceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 1 {
		return nil, nil, fmt.Errorf("missing header row")
	}

	header := records[0]
	if len(header) < 4 || header[0] != "timestamp" {
		return nil, nil, fmt.Errorf("unrecognized header %q", strings.Join(header, ","))
	}
	regions := header[1 : len(header)-2]

	var start time.Time
	rows := make([]traceRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, nil, fmt.Errorf("row %d: %d columns, want %d", i+1, len(rec), len(header))
		}
		t, err := time.Parse(time.RFC3339Nano, rec[0])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: timestamp: %w", i+1, err)
		}
		if start.IsZero() {
			start = t
		}

		row := traceRow{
			elapsed: t.Sub(start).Seconds(),
			values:  make([]float64, len(regions)),
			valid:   make([]bool, len(regions)),
		}
		for j := 0; j < len(regions); j++ {
			cell := rec[1+j]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: region %s: %w", i+1, regions[j], err)
			}
			row.values[j] = v
			row.valid[j] = true
		}

		sig, err := strconv.ParseFloat(rec[len(header)-2], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: signal: %w", i+1, err)
		}
		row.signal = sig

		dark, err := strconv.ParseBool(rec[len(header)-1])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: dark: %w", i+1, err)
		}
		row.dark = dark

		rows = append(rows, row)
	}
	return regions, rows, nil
}

// renderPlot draws one line per region, the tap signal and an optional
// threshold rule, then saves the chart as a PNG.
func renderPlot(out string, regions []string, rows []traceRow, threshold float64) error {
	p := plot.New()
	p.Title.Text = "Region Luminance Trace"
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = "Luma"
	p.Y.Min = 0
	p.Y.Max = 255

	colors := generateColors(len(regions))
	for j, name := range regions {
		pts := make(plotter.XYs, 0, len(rows))
		for _, r := range rows {
			// Skip shed samples so the line shows a gap instead of a
			// drop to zero.
			if !r.valid[j] {
				continue
			}
			pts = append(pts, plotter.XY{X: r.elapsed, Y: r.values[j]})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[j]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	sigPts := make(plotter.XYs, 0, len(rows))
	for _, r := range rows {
		sigPts = append(sigPts, plotter.XY{X: r.elapsed, Y: r.signal})
	}
	sigLine, err := plotter.NewLine(sigPts)
	if err != nil {
		return err
	}
	sigLine.Color = color.RGBA{A: 255}
	sigLine.Width = vg.Points(2)
	p.Add(sigLine)
	p.Legend.Add("signal", sigLine)

	if threshold > 0 {
		thrPts := plotter.XYs{
			{X: rows[0].elapsed, Y: threshold},
			{X: rows[len(rows)-1].elapsed, Y: threshold},
		}
		thrLine, err := plotter.NewLine(thrPts)
		if err != nil {
			return err
		}
		thrLine.Color = color.RGBA{R: 255, G: 82, B: 82, A: 255}
		thrLine.Width = vg.Points(1)
		p.Add(thrLine)
		p.Legend.Add("threshold", thrLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, out)
}

// generateColors creates a palette of distinct colors for the region lines.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
