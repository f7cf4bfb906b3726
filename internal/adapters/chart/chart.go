// Package chart renders score history as PNG line charts.
package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/intramurals/internal/domain/model"
)

// Palette holds the colors of a rendered chart.
type Palette struct {
	Background drawing.Color
	Line       drawing.Color
	Accent     drawing.Color
	Text       drawing.Color
}

// DefaultPalette is a light theme.
var DefaultPalette = Palette{
	Background: drawing.ColorWhite,
	Line:       drawing.ColorFromHex("1f6f4a"),
	Accent:     drawing.ColorFromHex("d4a017"),
	Text:       drawing.ColorFromHex("333333"),
}

const (
	width  = 800
	height = 400
)

// History renders a team's daily score progression.
func History(title string, daily []model.DailyPoint, palette Palette) ([]byte, error) {
	if len(daily) == 0 {
		return placeholder("No score history yet", palette)
	}

	xs := make([]time.Time, 0, len(daily)+1)
	ys := make([]float64, 0, len(daily)+1)
	for _, p := range daily {
		d, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			return nil, fmt.Errorf("history date %q: %w", p.Date, err)
		}
		xs = append(xs, d)
		ys = append(ys, float64(p.Score))
	}
	// A single day has no x extent.
	if len(xs) == 1 {
		xs = append([]time.Time{xs[0].AddDate(0, 0, -1)}, xs...)
		ys = append([]float64{ys[0]}, ys...)
	}

	lo, hi := 0.0, 0.0
	for _, y := range ys {
		lo, hi = min(lo, y), max(hi, y)
	}
	if hi-lo < 1 {
		hi = lo + 1
	}

	graph := chart.Chart{
		Title:      title,
		TitleStyle: chart.Style{FontColor: palette.Text},
		Width:      width,
		Height:     height,
		Background: chart.Style{FillColor: palette.Background},
		Canvas:     chart.Style{FillColor: palette.Background},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat(time.DateOnly),
			Style:          chart.Style{FontColor: palette.Text},
		},
		YAxis: chart.YAxis{
			Name:  "Score",
			Style: chart.Style{FontColor: palette.Text},
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: []chart.Series{chart.TimeSeries{
			Name:    "Score",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: palette.Line,
				StrokeWidth: 2,
				DotWidth:    4,
				DotColor:    palette.Accent,
			},
		}},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render history chart: %w", err)
	}
	return buf.Bytes(), nil
}

func placeholder(msg string, palette Palette) ([]byte, error) {
	graph := chart.Chart{
		Width:      width / 2,
		Height:     height / 2,
		Background: chart.Style{FillColor: palette.Background},
		Canvas:     chart.Style{FillColor: palette.Background},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, _ chart.Style) {
				r.SetFontColor(palette.Text)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				r.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render placeholder chart: %w", err)
	}
	return buf.Bytes(), nil
}
