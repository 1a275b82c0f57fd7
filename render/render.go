// Package render draws the activity charts with go-chart and writes them as JPEG images.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

// DistributionFile is the file name of the activity distribution chart.
const DistributionFile = "Activities_distribution.jpg"

const titleBand = 28

// SummaryFile returns "<Display> summary.jpg".
func SummaryFile(t zoomout.ActivityType) string {
	return t.DisplayName() + " summary.jpg"
}

// CorrelationFile returns "<Display> variables correlation.jpg".
func CorrelationFile(t zoomout.ActivityType) string {
	return t.DisplayName() + " variables correlation.jpg"
}

// Options sizes the rendered images.
type Options struct {
	Width       int // distribution chart and summary panel width
	Height      int // distribution chart height
	PanelHeight int // height of one summary panel
	CellSize    int // side of one correlation grid cell
	Quality     int // JPEG quality
}

// DefaultOptions returns the sizes used by the CLI.
func DefaultOptions() Options {
	return Options{
		Width:       1000,
		Height:      600,
		PanelHeight: 280,
		CellSize:    280,
		Quality:     90,
	}
}

// Renderer draws the three chart kinds of a run.
type Renderer struct {
	opts Options
}

// New returns a renderer. Zero option fields take their default.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.PanelHeight <= 0 {
		opts.PanelHeight = def.PanelHeight
	}
	if opts.CellSize <= 0 {
		opts.CellSize = def.CellSize
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	return &Renderer{opts: opts}
}

var (
	colorData   = drawing.ColorFromHex("1f77b4")
	colorDate   = drawing.ColorFromHex("d62728")
	colorValue  = drawing.ColorFromHex("2ca02c")
	colorHist   = drawing.ColorFromHex("1f77b4").WithAlpha(160)
	magmaStops  = []drawing.Color{
		drawing.ColorFromHex("000004"),
		drawing.ColorFromHex("1c1044"),
		drawing.ColorFromHex("4f127b"),
		drawing.ColorFromHex("812581"),
		drawing.ColorFromHex("b5367a"),
		drawing.ColorFromHex("e55064"),
		drawing.ColorFromHex("fb8761"),
		drawing.ColorFromHex("fec287"),
		drawing.ColorFromHex("fcfdbf"),
	}
)

// monthPalette spreads n colours evenly over the magma gradient.
func monthPalette(n int) []drawing.Color {
	out := make([]drawing.Color, n)
	if n == 1 {
		out[0] = magmaStops[0]
		return out
	}
	segments := float64(len(magmaStops) - 1)
	for i := range out {
		pos := float64(i) / float64(n-1) * segments
		lo := int(pos)
		if lo >= len(magmaStops)-1 {
			out[i] = magmaStops[len(magmaStops)-1]
			continue
		}
		out[i] = lerpColor(magmaStops[lo], magmaStops[lo+1], pos-float64(lo))
	}
	return out
}

func lerpColor(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func dashed(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor:     col,
		StrokeWidth:     1.5,
		StrokeDashArray: []float64{6, 4},
	}
}

func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    3,
		DotColor:    col,
	}
}

// renderChart renders a go-chart chart into an image.
func renderChart(ch chart.Chart) (image.Image, error) {
	return rasterize(ch.Title, func(w io.Writer) error { return ch.Render(chart.PNG, w) })
}

func rasterize(title string, render func(io.Writer) error) (image.Image, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return nil, fmt.Errorf("render chart %q: %w", title, err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode chart %q: %w", title, err)
	}
	return img, nil
}

func newCanvas(w, h int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return canvas
}

func paste(dst *image.RGBA, src image.Image, at image.Point) {
	b := src.Bounds()
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, src, b.Min, draw.Over)
}

// drawText writes text with its baseline at y. A negative x centres it horizontally.
func drawText(dst *image.RGBA, text string, x, y int, col color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	if x < 0 {
		x = (dst.Bounds().Dx() - d.MeasureString(text).Ceil()) / 2
	}
	d.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	d.DrawString(text)
}

// placeholder is a blank panel with a centred caption.
func placeholder(w, h int, caption string) image.Image {
	canvas := newCanvas(w, h)
	drawText(canvas, caption, -1, h/2, color.Gray{Y: 90})
	return canvas
}

func (r *Renderer) encode(w io.Writer, img image.Image) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: r.opts.Quality}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

// paddedRange widens [lo, hi] so the chart never sees a zero-width range.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if hi <= lo {
		pad := math.Max(math.Abs(lo)*0.05, 1)
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func timeRange(minT, maxT time.Time) *chart.ContinuousRange {
	if !maxT.After(minT) {
		minT = minT.Add(-12 * time.Hour)
		maxT = maxT.Add(12 * time.Hour)
	}
	return &chart.ContinuousRange{Min: chart.TimeToFloat64(minT), Max: chart.TimeToFloat64(maxT)}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
