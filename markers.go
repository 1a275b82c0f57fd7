package zoomout

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MarkerDateLayout is the day-month-year layout accepted for date markers.
// Single digit days and months are accepted.
const MarkerDateLayout = "2-1-2006"

// WarningKind classifies a rejected marker input.
type WarningKind string

const (
	WarnInvalidOption WarningKind = "invalid option"
	WarnInvalidDate   WarningKind = "invalid date"
	WarnInvalidNumber WarningKind = "invalid number"
)

// ParseWarning is a non-fatal marker rejection. The offending item is dropped.
type ParseWarning struct {
	Kind  WarningKind
	Arg   string
	Value string
}

func (w ParseWarning) Error() string {
	switch w.Kind {
	case WarnInvalidDate:
		return fmt.Sprintf("incorrect date format %q in %s, should be DD/MM/YYYY", strings.ReplaceAll(w.Value, "-", "/"), w.Arg)
	case WarnInvalidNumber:
		return fmt.Sprintf("incorrect input %q in %s, should be a number", w.Value, w.Arg)
	default:
		return fmt.Sprintf("invalid option %s", w.Arg)
	}
}

// Markers are the parsed reference values of one activity type.
type Markers struct {
	Dates  []time.Time
	Values map[string][]float64
}

// Empty reports whether no marker of any key is present.
func (m Markers) Empty() bool {
	if len(m.Dates) > 0 {
		return false
	}
	for _, v := range m.Values {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

// Keys returns the numeric marker keys in lexical order.
func (m Markers) Keys() []string {
	keys := make([]string, 0, len(m.Values))
	for k := range m.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarkerSet maps activity types to their parsed markers.
type MarkerSet map[ActivityType]Markers

// For returns the markers of t (zero value when absent).
func (s MarkerSet) For(t ActivityType) Markers {
	return s[t]
}

// ParseMarkers turns "--<type>_<key>=v1,v2" arguments into typed markers.
// Arguments are processed in order; a later valid list for the same
// type and key replaces the earlier one.
func ParseMarkers(schema *Schema, args []string) (MarkerSet, []ParseWarning) {
	set := make(MarkerSet)
	var warnings []ParseWarning

	for _, arg := range args {
		field, val, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		t, key, ok := schema.ParseMarkerKey(field)
		if !ok || !hasValue {
			warnings = append(warnings, ParseWarning{Kind: WarnInvalidOption, Arg: "--" + field})
			continue
		}
		flagName := "--" + field

		if key == DateMarkerKey {
			dates, rejects := parseDates(val)
			for _, r := range rejects {
				warnings = append(warnings, ParseWarning{Kind: WarnInvalidDate, Arg: flagName, Value: r})
			}
			if len(dates) > 0 {
				m := set[t]
				m.Dates = dates
				set[t] = m
			}
			continue
		}

		nums, rejects := parseNumbers(val)
		for _, r := range rejects {
			warnings = append(warnings, ParseWarning{Kind: WarnInvalidNumber, Arg: flagName, Value: r})
		}
		if len(nums) > 0 {
			m := set[t]
			values := make(map[string][]float64, len(m.Values)+1)
			for k, v := range m.Values {
				values[k] = v
			}
			values[key] = nums
			m.Values = values
			set[t] = m
		}
	}
	return set, warnings
}

// ParseMarkerDate parses a DD-MM-YYYY or DD/MM/YYYY date as UTC midnight.
func ParseMarkerDate(s string) (time.Time, error) {
	return time.ParseInLocation(MarkerDateLayout, strings.ReplaceAll(strings.TrimSpace(s), "/", "-"), time.UTC)
}

func parseDates(val string) ([]time.Time, []string) {
	var (
		out     []time.Time
		rejects []string
	)
	for _, item := range strings.Split(strings.ReplaceAll(val, "/", "-"), ",") {
		d, err := ParseMarkerDate(item)
		if err != nil {
			rejects = append(rejects, strings.TrimSpace(item))
			continue
		}
		out = append(out, d)
	}
	return out, rejects
}

func parseNumbers(val string) ([]float64, []string) {
	var (
		out     []float64
		rejects []string
	)
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		v, err := strconv.ParseFloat(item, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			rejects = append(rejects, item)
			continue
		}
		out = append(out, v)
	}
	return out, rejects
}
