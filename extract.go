package zoomout

import (
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const msPerMinute = 60000.0

// Row is one derived observation. Values follow Spec.Metrics order.
type Row struct {
	Time   time.Time
	Values []float64
}

// Series is the chronological metric table of one activity type.
type Series struct {
	Spec ActivitySpec
	Rows []Row
}

// Len returns the number of rows.
func (s Series) Len() int {
	return len(s.Rows)
}

// ColumnIndex returns the index of a full column name.
func (s Series) ColumnIndex(column string) int {
	for i, m := range s.Spec.Metrics {
		if m.Column() == column {
			return i
		}
	}
	return -1
}

// Column returns the values of metric i across all rows.
func (s Series) Column(i int) []float64 {
	out := make([]float64, len(s.Rows))
	for r, row := range s.Rows {
		out[r] = row.Values[i]
	}
	return out
}

// Times returns the row timestamps.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row.Time
	}
	return out
}

// TimeRange returns the first and last timestamps. ok is false for an empty series.
func (s Series) TimeRange() (minT, maxT time.Time, ok bool) {
	if len(s.Rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	minT, maxT = s.Rows[0].Time, s.Rows[0].Time
	for _, row := range s.Rows[1:] {
		if row.Time.Before(minT) {
			minT = row.Time
		}
		if row.Time.After(maxT) {
			maxT = row.Time
		}
	}
	return minT, maxT, true
}

// Range returns min and max of metric i over finite values.
func (s Series) Range(i int) (lo, hi float64, ok bool) {
	for _, row := range s.Rows {
		v := row.Values[i]
		if !isFinite(v) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

// Mean returns the average of metric i over finite values (0 when there are none).
func (s Series) Mean(i int) float64 {
	return average(s.Column(i))
}

type metricInput struct {
	record          Record
	durationMinutes float64
	distance        float64
}

type formula func(in metricInput) float64

var formulas = map[ActivityType]map[string]formula{
	LapSwimming: {
		"avgLapTime": func(in metricInput) float64 {
			return roundTo(in.durationMinutes/in.distance*100, 2)
		},
		"avgStrokes": func(in metricInput) float64 {
			if p, ok := in.record.Swim(); ok {
				return p.AvgStrokes
			}
			return math.NaN()
		},
	},
	Running: {
		"Duration": durationMinutes,
		"avgPace":  pace,
		"avgDoubleCadence": func(in metricInput) float64 {
			if p, ok := in.record.Run(); ok {
				return p.AvgDoubleCadence
			}
			return math.NaN()
		},
	},
	Walking: {
		"Duration": durationMinutes,
		"Distance": func(in metricInput) float64 { return in.distance },
		"avgPace":  pace,
	},
}

func durationMinutes(in metricInput) float64 { return in.durationMinutes }

func pace(in metricInput) float64 { return in.durationMinutes / in.distance }

// Extract derives one row per record and sorts the rows by timestamp.
// Records that cannot produce finite divisor-based metrics are excluded and
// reported as *InvalidMetricInputError.
func Extract(records []Record, spec ActivitySpec) (Series, []error) {
	var errs []error
	rows := make([]Row, 0, len(records))
	typeFormulas := formulas[spec.Type]

	for _, r := range records {
		in := metricInput{
			record:          r,
			durationMinutes: r.Duration / msPerMinute,
			distance:        spec.DisplayDistance(r.Distance),
		}
		if !isFinite(in.distance) || in.distance <= 0 {
			errs = append(errs, &InvalidMetricInputError{
				ActivityType: spec.Type,
				Start:        r.Start(),
				Distance:     in.distance,
				Reason:       "non-positive distance",
			})
			continue
		}

		values := make([]float64, len(spec.Metrics))
		for i, m := range spec.Metrics {
			if m.Key == "avgHr" {
				values[i] = r.AvgHr
				continue
			}
			if f, ok := typeFormulas[m.Key]; ok {
				values[i] = f(in)
			} else {
				values[i] = math.NaN()
			}
		}
		rows = append(rows, Row{Time: r.Start(), Values: values})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Time.Before(rows[j].Time)
	})
	return Series{Spec: spec, Rows: rows}, errs
}

// roundTo rounds half to even on the exact binary value of v, so 2.675
// (stored as 2.67499...) becomes 2.67.
func roundTo(v float64, places int32) float64 {
	if !isFinite(v) {
		return v
	}
	out, _ := exactDecimal(v).RoundBank(places).Float64()
	return out
}

// exactDecimal expands v = mant * 2^exp without loss: mant * 5^k * 10^-k for negative exp.
func exactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	k := int64(-exp)
	pow := new(big.Int).Exp(big.NewInt(5), big.NewInt(k), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, pow), int32(-k))
}

func average(values []float64) float64 {
	total := 0.0
	count := 0
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		total += v
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
