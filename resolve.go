package zoomout

import (
	"sort"
	"time"

	"go.uber.org/multierr"
)

// ValueLine is a horizontal marker list bound to its target column.
type ValueLine struct {
	Key    string    `json:"key"`
	Column string    `json:"column"`
	Index  int       `json:"-"`
	Values []float64 `json:"values"`
}

// Resolved holds the markers that fall inside a series' observed ranges.
type Resolved struct {
	Dates []time.Time `json:"dates,omitempty"`
	Lines []ValueLine `json:"lines,omitempty"`
}

// Empty reports whether nothing is left to draw.
func (r Resolved) Empty() bool {
	return len(r.Dates) == 0 && len(r.Lines) == 0
}

// LinesFor returns the horizontal marker values of metric index i.
func (r Resolved) LinesFor(i int) []float64 {
	var out []float64
	for _, l := range r.Lines {
		if l.Index == i {
			out = append(out, l.Values...)
		}
	}
	return out
}

// Resolve keeps the markers within the series' date and column ranges and
// binds every numeric key to its column. Unresolvable keys are reported as
// *UnresolvedMarkerKeyError values combined into the returned error; the
// other keys are still resolved.
func Resolve(series Series, markers Markers) (Resolved, error) {
	var (
		out  Resolved
		errs error
	)

	if minT, maxT, ok := series.TimeRange(); ok {
		for _, d := range markers.Dates {
			if !d.Before(minT) && !d.After(maxT) {
				out.Dates = append(out.Dates, d)
			}
		}
	}

	for _, key := range markers.Keys() {
		idx, ok := series.Spec.ColumnFor(key)
		if !ok {
			errs = multierr.Append(errs, &UnresolvedMarkerKeyError{ActivityType: series.Spec.Type, Key: key})
			continue
		}
		lo, hi, ok := series.Range(idx)
		if !ok {
			continue
		}
		var kept []float64
		for _, v := range markers.Values[key] {
			if v >= lo && v <= hi {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			continue
		}
		out.Lines = append(out.Lines, ValueLine{
			Key:    key,
			Column: series.Spec.Metrics[idx].Column(),
			Index:  idx,
			Values: kept,
		})
	}

	sort.SliceStable(out.Lines, func(i, j int) bool {
		return out.Lines[i].Index < out.Lines[j].Index
	})
	return out, errs
}

// ValidateMarkers checks every numeric marker key against its type's columns
// before any series is built, so all configuration errors surface together.
func ValidateMarkers(schema *Schema, set MarkerSet) error {
	var errs error
	for _, t := range schema.Types() {
		m, ok := set[t]
		if !ok {
			continue
		}
		spec, _ := schema.SpecFor(t)
		for _, key := range m.Keys() {
			if _, ok := spec.ColumnFor(key); !ok {
				errs = multierr.Append(errs, &UnresolvedMarkerKeyError{ActivityType: t, Key: key})
			}
		}
	}
	unknown := make([]string, 0)
	for t := range set {
		if _, err := schema.SpecFor(t); err != nil {
			unknown = append(unknown, string(t))
		}
	}
	sort.Strings(unknown)
	for _, t := range unknown {
		_, err := schema.SpecFor(ActivityType(t))
		errs = multierr.Append(errs, err)
	}
	return errs
}
