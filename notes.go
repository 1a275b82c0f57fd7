package zoomout

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// BuildSeriesNotes turns a derived series and its resolved markers into a plain-text summary.
func BuildSeriesNotes(series Series, resolved Resolved, excluded int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s summary\n", series.Spec.Type.DisplayName())
	minT, maxT, ok := series.TimeRange()
	if !ok {
		b.WriteString("No activities passed the distance cutoff.\n")
		return strings.TrimSpace(b.String())
	}
	fmt.Fprintf(
		&b,
		"Activities %d | %s to %s (%s) | cutoff > %g %s\n",
		series.Len(),
		minT.Format("2006-01-02"),
		maxT.Format("2006-01-02"),
		formatSpan(maxT.Sub(minT)),
		series.Spec.MinDistance,
		series.Spec.DistanceUnit,
	)
	if excluded > 0 {
		fmt.Fprintf(&b, "Excluded %d record(s) below the cutoff or with invalid metric input\n", excluded)
	}

	b.WriteString("\nMetrics\n")
	for i, m := range series.Spec.Metrics {
		lo, hi, ok := series.Range(i)
		if !ok {
			fmt.Fprintf(&b, "- %s: no data\n", m.Column())
			continue
		}
		fmt.Fprintf(
			&b,
			"- %s: mean=%.2f min=%.2f max=%.2f\n",
			m.Column(),
			series.Mean(i),
			lo,
			hi,
		)
	}

	if !resolved.Empty() {
		b.WriteString("\nReference markers\n")
		if len(resolved.Dates) > 0 {
			dates := make([]string, len(resolved.Dates))
			for i, d := range resolved.Dates {
				dates[i] = d.Format("02/01/2006")
			}
			fmt.Fprintf(&b, "- dates: %s\n", strings.Join(dates, ", "))
		}
		for _, l := range resolved.Lines {
			values := make([]string, len(l.Values))
			for i, v := range l.Values {
				values[i] = fmt.Sprintf("%g", v)
			}
			fmt.Fprintf(&b, "- %s: %s\n", l.Column, strings.Join(values, ", "))
		}
	}
	return strings.TrimSpace(b.String())
}

func formatSpan(d time.Duration) string {
	days := int(math.Round(d.Hours() / 24))
	switch {
	case days <= 0:
		return "same day"
	case days < 60:
		return fmt.Sprintf("%dd", days)
	case days < 730:
		return fmt.Sprintf("%.1f months", float64(days)/30.44)
	default:
		return fmt.Sprintf("%.1f years", float64(days)/365.25)
	}
}
