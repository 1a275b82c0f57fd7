package render

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

// DistributionTitle returns "Activities distribution (N=<total>)".
func DistributionTitle(d zoomout.Distribution) string {
	return fmt.Sprintf("Activities distribution (N=%d)", d.Total)
}

// Distribution draws one bar per activity type in distribution order.
func (r *Renderer) Distribution(w io.Writer, d zoomout.Distribution) error {
	img, err := r.distributionImage(d)
	if err != nil {
		return err
	}
	return r.encode(w, img)
}

func (r *Renderer) distributionImage(d zoomout.Distribution) (image.Image, error) {
	title := DistributionTitle(d)
	if len(d.Counts) == 0 {
		canvas := newCanvas(r.opts.Width, r.opts.Height)
		drawText(canvas, title, -1, 20, color.Black)
		drawText(canvas, "no activities", -1, r.opts.Height/2, color.Black)
		return canvas, nil
	}

	bars := make([]chart.Value, 0, len(d.Counts))
	palette := monthPalette(len(d.Counts))
	maxCount := 0
	for i, c := range d.Counts {
		bars = append(bars, chart.Value{
			Label: c.ActivityType,
			Value: float64(c.Count),
			Style: chart.Style{
				FillColor:   palette[i],
				StrokeColor: palette[i],
			},
		})
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}

	barWidth := (r.opts.Width - 120) / (2 * len(bars))
	if barWidth < 8 {
		barWidth = 8
	}
	if barWidth > 80 {
		barWidth = 80
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      r.opts.Width,
		Height:     r.opts.Height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  "count",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount) * 1.1},
		},
		Bars: bars,
	}
	return rasterize(bc.Title, func(w io.Writer) error { return bc.Render(chart.PNG, w) })
}
