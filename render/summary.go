package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

// SummaryTitle returns the suptitle of the summary chart, e.g. "Running summary".
func SummaryTitle(t zoomout.ActivityType) string {
	return t.DisplayName() + " summary"
}

// PanelTitle returns the title of one summary panel: the metric key and its mean.
func PanelTitle(series zoomout.Series, i int) string {
	return fmt.Sprintf("%s (mean=%.2f)", series.Spec.Metrics[i].Key, series.Mean(i))
}

// Summary draws one time panel per metric, stacked vertically with a shared time
// axis. Date markers are dashed vertical lines on every panel; value markers are
// dashed horizontal lines on the panel of their column.
func (r *Renderer) Summary(w io.Writer, series zoomout.Series, resolved zoomout.Resolved) error {
	img, err := r.summaryImage(series, resolved)
	if err != nil {
		return err
	}
	return r.encode(w, img)
}

func (r *Renderer) summaryImage(series zoomout.Series, resolved zoomout.Resolved) (image.Image, error) {
	metrics := series.Spec.Metrics
	width, panelH := r.opts.Width, r.opts.PanelHeight
	canvas := newCanvas(width, titleBand+len(metrics)*panelH)
	drawText(canvas, SummaryTitle(series.Spec.Type), -1, 18, color.Black)

	minT, maxT, ok := series.TimeRange()
	for i := range metrics {
		at := image.Pt(0, titleBand+i*panelH)
		if !ok {
			paste(canvas, placeholder(width, panelH, metrics[i].Key+": no data"), at)
			continue
		}
		panel, err := r.summaryPanel(series, resolved, i, minT, maxT)
		if err != nil {
			return nil, err
		}
		paste(canvas, panel, at)
	}
	return canvas, nil
}

func (r *Renderer) summaryPanel(series zoomout.Series, resolved zoomout.Resolved, i int, minT, maxT time.Time) (image.Image, error) {
	metric := series.Spec.Metrics[i]
	lo, hi, ok := series.Range(i)
	if !ok {
		return placeholder(r.opts.Width, r.opts.PanelHeight, metric.Key+": no data"), nil
	}

	var xs []time.Time
	var ys []float64
	for _, row := range series.Rows {
		if v := row.Values[i]; finite(v) {
			xs = append(xs, row.Time)
			ys = append(ys, v)
		}
	}
	if len(xs) == 1 {
		xs = append(xs, xs[0].Add(time.Second))
		ys = append(ys, ys[0])
	}

	style := pointStyle(colorData)
	style.StrokeWidth = 1
	style.StrokeColor = colorData
	seriesList := []chart.Series{
		chart.TimeSeries{Name: metric.Key, XValues: xs, YValues: ys, Style: style},
	}
	for _, d := range resolved.Dates {
		seriesList = append(seriesList, chart.TimeSeries{
			Name:    d.Format("02/01/2006"),
			XValues: []time.Time{d, d},
			YValues: []float64{lo, hi},
			Style:   dashed(colorDate),
		})
	}
	for _, v := range resolved.LinesFor(i) {
		seriesList = append(seriesList, chart.TimeSeries{
			Name:    fmt.Sprintf("%g", v),
			XValues: []time.Time{minT, maxT},
			YValues: []float64{v, v},
			Style:   dashed(colorValue),
		})
	}

	ch := chart.Chart{
		Title:      PanelTitle(series, i),
		Width:      r.opts.Width,
		Height:     r.opts.PanelHeight,
		Background: chart.Style{Padding: chart.Box{Top: 30, Left: 16, Right: 16, Bottom: 8}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
			Range:          timeRange(minT, maxT),
		},
		YAxis: chart.YAxis{
			Name:  metric.Unit,
			Range: paddedRange(lo, hi),
		},
		Series: seriesList,
	}
	return renderChart(ch)
}
