package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

const monthLayout = "2006-01"

// CorrelationTitle returns "<Display> - variables correlation".
func CorrelationTitle(t zoomout.ActivityType) string {
	return t.DisplayName() + " - variables correlation"
}

// Correlation draws a corner pair grid: scatter plots below the diagonal with
// points coloured by calendar month, histograms on the diagonal.
func (r *Renderer) Correlation(w io.Writer, series zoomout.Series) error {
	img, err := r.correlationImage(series)
	if err != nil {
		return err
	}
	return r.encode(w, img)
}

// Months returns the distinct "YYYY-MM" keys of the series in chronological order.
func Months(series zoomout.Series) []string {
	var out []string
	seen := make(map[string]bool)
	for _, row := range series.Rows {
		key := row.Time.Format(monthLayout)
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

func (r *Renderer) correlationImage(series zoomout.Series) (image.Image, error) {
	n := len(series.Spec.Metrics)
	cell := r.opts.CellSize
	canvas := newCanvas(n*cell, titleBand+n*cell)
	drawText(canvas, CorrelationTitle(series.Spec.Type), -1, 18, color.Black)

	months := Months(series)
	palette := monthPalette(len(months))
	colorOf := make(map[string]drawing.Color, len(months))
	for i, m := range months {
		colorOf[m] = palette[i]
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			var (
				img image.Image
				err error
			)
			if i == j {
				img, err = r.histogramCell(series, i)
			} else {
				img, err = r.scatterCell(series, j, i, colorOf)
			}
			if err != nil {
				return nil, err
			}
			paste(canvas, img, image.Pt(j*cell, titleBand+i*cell))
		}
	}
	if n > 1 {
		drawLegend(canvas, image.Rect((n-1)*cell, titleBand, n*cell, titleBand+cell), months, colorOf)
	}
	return canvas, nil
}

func (r *Renderer) scatterCell(series zoomout.Series, xi, yi int, colorOf map[string]drawing.Color) (image.Image, error) {
	cell := r.opts.CellSize
	xm, ym := series.Spec.Metrics[xi], series.Spec.Metrics[yi]
	xlo, xhi, okX := series.Range(xi)
	ylo, yhi, okY := series.Range(yi)
	if !okX || !okY {
		return placeholder(cell, cell, ym.Key+" / "+xm.Key+": no data"), nil
	}

	byMonth := make(map[string]*chart.ContinuousSeries)
	var order []string
	for _, row := range series.Rows {
		x, y := row.Values[xi], row.Values[yi]
		if !finite(x) || !finite(y) {
			continue
		}
		key := row.Time.Format(monthLayout)
		s, ok := byMonth[key]
		if !ok {
			s = &chart.ContinuousSeries{Name: key, Style: pointStyle(colorOf[key])}
			byMonth[key] = s
			order = append(order, key)
		}
		s.XValues = append(s.XValues, x)
		s.YValues = append(s.YValues, y)
	}
	if len(order) == 0 {
		return placeholder(cell, cell, ym.Key+" / "+xm.Key+": no data"), nil
	}
	seriesList := make([]chart.Series, 0, len(order))
	for _, key := range order {
		seriesList = append(seriesList, *byMonth[key])
	}

	ch := chart.Chart{
		Width:      cell,
		Height:     cell,
		Background: chart.Style{Padding: chart.Box{Top: 12, Left: 8, Right: 12, Bottom: 8}},
		XAxis:      chart.XAxis{Name: xm.Key, Range: paddedRange(xlo, xhi)},
		YAxis:      chart.YAxis{Name: ym.Key, Range: paddedRange(ylo, yhi)},
		Series:     seriesList,
	}
	return renderChart(ch)
}

func (r *Renderer) histogramCell(series zoomout.Series, i int) (image.Image, error) {
	cell := r.opts.CellSize
	m := series.Spec.Metrics[i]
	edges, counts := Histogram(series.Column(i))
	if len(counts) == 0 {
		return placeholder(cell, cell, m.Key+": no data"), nil
	}

	xs := make([]float64, 0, 4*len(counts))
	ys := make([]float64, 0, 4*len(counts))
	maxCount := 0
	for k, c := range counts {
		xs = append(xs, edges[k], edges[k], edges[k+1], edges[k+1])
		ys = append(ys, 0, float64(c), float64(c), 0)
		if c > maxCount {
			maxCount = c
		}
	}

	ch := chart.Chart{
		Title:      m.Column(),
		Width:      cell,
		Height:     cell,
		Background: chart.Style{Padding: chart.Box{Top: 30, Left: 8, Right: 12, Bottom: 8}},
		XAxis:      chart.XAxis{Range: &chart.ContinuousRange{Min: edges[0], Max: edges[len(edges)-1]}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount) * 1.1}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    m.Key,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: colorData, StrokeWidth: 1, FillColor: colorHist},
			},
		},
	}
	return renderChart(ch)
}

// Histogram bins the finite values using Sturges' rule. It returns len(counts)+1
// edges; both are empty when no value is finite.
func Histogram(values []float64) (edges []float64, counts []int) {
	var finiteValues []float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !finite(v) {
			continue
		}
		finiteValues = append(finiteValues, v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(finiteValues) == 0 {
		return nil, nil
	}
	if hi <= lo {
		return []float64{lo - 0.5, hi + 0.5}, []int{len(finiteValues)}
	}

	bins := int(math.Ceil(math.Log2(float64(len(finiteValues))))) + 1
	width := (hi - lo) / float64(bins)
	edges = make([]float64, bins+1)
	for k := range edges {
		edges[k] = lo + float64(k)*width
	}
	edges[bins] = hi
	counts = make([]int, bins)
	for _, v := range finiteValues {
		k := int((v - lo) / width)
		if k >= bins {
			k = bins - 1
		}
		counts[k]++
	}
	return edges, counts
}

func drawLegend(canvas *image.RGBA, area image.Rectangle, months []string, colorOf map[string]drawing.Color) {
	const lineH = 15
	x, y := area.Min.X+16, area.Min.Y+24
	drawText(canvas, "month", x, y, color.Black)
	rows := (area.Dy() - 40) / lineH
	if rows < 1 {
		rows = 1
	}
	for k, m := range months {
		y += lineH
		if k == rows-1 && len(months) > rows {
			drawText(canvas, fmt.Sprintf("... +%d more", len(months)-k), x, y, color.Black)
			return
		}
		swatch := image.Rect(x, y-9, x+10, y+1)
		draw.Draw(canvas, swatch, image.NewUniform(colorOf[m]), image.Point{}, draw.Src)
		drawText(canvas, m, x+16, y, color.Black)
	}
}
