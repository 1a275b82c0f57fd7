// Package zoomout derives per-activity metric series from an activity history
// and binds user reference markers to them.
package zoomout

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownActivityType is returned when a schema lookup names a type outside the fixed set.
var ErrUnknownActivityType = errors.New("unknown activity type")

// DateMarkerKey is the marker key that requests vertical date lines. Every spec carries it.
const DateMarkerKey = "d"

// ActivityType is the activity-type key used by the export (e.g. "running").
type ActivityType string

const (
	LapSwimming ActivityType = "lap_swimming"
	Running     ActivityType = "running"
	Walking     ActivityType = "walking"
)

// DisplayName turns "lap_swimming" into "Lap swimming".
func (t ActivityType) DisplayName() string {
	s := strings.ReplaceAll(string(t), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// Metric is one derived metric of an activity type.
type Metric struct {
	Key  string
	Unit string
}

// Column is the full column name, e.g. "avgHr (bpm)".
func (m Metric) Column() string {
	return m.Key + " (" + m.Unit + ")"
}

// ActivitySpec is the static descriptor of one activity type.
type ActivitySpec struct {
	Type ActivityType
	// DistanceDivisor converts the native centimetre distance into the display unit.
	DistanceDivisor float64
	DistanceUnit    string
	// MinDistance is the cutoff in the display unit. Records must exceed it strictly.
	MinDistance float64
	Metrics     []Metric

	columnByMarker map[string]int
}

// Scale is the multiplicative native-to-display factor (1/DistanceDivisor).
func (s ActivitySpec) Scale() float64 {
	return 1 / s.DistanceDivisor
}

// DisplayDistance converts a native distance to the display unit.
func (s ActivitySpec) DisplayDistance(native float64) float64 {
	return native / s.DistanceDivisor
}

// MarkerKeys returns "d" followed by every metric key in declaration order.
func (s ActivitySpec) MarkerKeys() []string {
	keys := make([]string, 0, len(s.Metrics)+1)
	keys = append(keys, DateMarkerKey)
	for _, m := range s.Metrics {
		keys = append(keys, m.Key)
	}
	return keys
}

// Columns returns the metric column names in declaration order.
func (s ActivitySpec) Columns() []string {
	out := make([]string, len(s.Metrics))
	for i, m := range s.Metrics {
		out[i] = m.Column()
	}
	return out
}

// ColumnFor returns the metric index targeted by a numeric marker key.
// The first column (by declaration order) whose name contains the key wins.
func (s ActivitySpec) ColumnFor(markerKey string) (int, bool) {
	if idx, ok := s.columnByMarker[markerKey]; ok {
		return idx, true
	}
	return matchColumn(s.Metrics, markerKey)
}

func matchColumn(metrics []Metric, markerKey string) (int, bool) {
	if markerKey == "" || markerKey == DateMarkerKey {
		return -1, false
	}
	for i, m := range metrics {
		if strings.Contains(m.Column(), markerKey) {
			return i, true
		}
	}
	return -1, false
}

// Schema is the immutable registry of the supported activity types.
type Schema struct {
	specs map[ActivityType]ActivitySpec
	order []ActivityType
}

// NewSchema builds a schema from specs. The order of specs is the analysis order.
func NewSchema(specs ...ActivitySpec) *Schema {
	s := &Schema{
		specs: make(map[ActivityType]ActivitySpec, len(specs)),
		order: make([]ActivityType, 0, len(specs)),
	}
	for _, spec := range specs {
		metrics := append([]Metric(nil), spec.Metrics...)
		spec.Metrics = metrics
		spec.columnByMarker = make(map[string]int, len(metrics))
		for _, m := range metrics {
			if idx, ok := matchColumn(metrics, m.Key); ok {
				spec.columnByMarker[m.Key] = idx
			}
		}
		if _, dup := s.specs[spec.Type]; !dup {
			s.order = append(s.order, spec.Type)
		}
		s.specs[spec.Type] = spec
	}
	return s
}

// DefaultSchema returns the three built-in activity specs.
func DefaultSchema() *Schema {
	avgHr := Metric{Key: "avgHr", Unit: "bpm"}
	duration := Metric{Key: "Duration", Unit: "minutes"}
	pace := Metric{Key: "avgPace", Unit: "minutes/ km"}
	return NewSchema(
		ActivitySpec{
			Type:            LapSwimming,
			DistanceDivisor: 100,
			DistanceUnit:    "meter",
			MinDistance:     100,
			Metrics: []Metric{
				avgHr,
				{Key: "avgLapTime", Unit: "minutes/ 100 meter"},
				{Key: "avgStrokes", Unit: "strokes/ 25 meter"},
			},
		},
		ActivitySpec{
			Type:            Running,
			DistanceDivisor: 100000,
			DistanceUnit:    "km",
			MinDistance:     1,
			Metrics: []Metric{
				avgHr,
				duration,
				pace,
				{Key: "avgDoubleCadence", Unit: "steps/ minute"},
			},
		},
		ActivitySpec{
			Type:            Walking,
			DistanceDivisor: 100000,
			DistanceUnit:    "km",
			MinDistance:     1,
			Metrics: []Metric{
				avgHr,
				duration,
				{Key: "Distance", Unit: "km"},
				pace,
			},
		},
	)
}

// Types returns the activity types in analysis order.
func (s *Schema) Types() []ActivityType {
	return append([]ActivityType(nil), s.order...)
}

// SpecFor returns the descriptor for t.
func (s *Schema) SpecFor(t ActivityType) (ActivitySpec, error) {
	spec, ok := s.specs[t]
	if !ok {
		return ActivitySpec{}, fmt.Errorf("%w: %q", ErrUnknownActivityType, string(t))
	}
	return spec, nil
}

// AllMarkerKeys lists every accepted "<activityType>_<markerKey>" flag name.
func (s *Schema) AllMarkerKeys() []string {
	out := make([]string, 0, len(s.order)*5)
	for _, t := range s.order {
		for _, k := range s.specs[t].MarkerKeys() {
			out = append(out, string(t)+"_"+k)
		}
	}
	return out
}

// ParseMarkerKey splits a flag name on its last underscore and checks it against the schema.
func (s *Schema) ParseMarkerKey(name string) (ActivityType, string, bool) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	t, key := ActivityType(name[:i]), name[i+1:]
	spec, ok := s.specs[t]
	if !ok {
		return "", "", false
	}
	for _, k := range spec.MarkerKeys() {
		if k == key {
			return t, key, true
		}
	}
	return "", "", false
}
