package pipeline

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

const seriesTimeLayout = time.RFC3339

func writeSeriesCSV(path string, series zoomout.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"timestamp"}, series.Spec.Columns()...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range series.Rows {
		out := make([]string, 0, len(row.Values)+1)
		out = append(out, row.Time.UTC().Format(seriesTimeLayout))
		for _, v := range row.Values {
			out = append(out, formatFloat(v))
		}
		if err := w.Write(out); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// seriesParquetRow carries every metric of every activity type; metrics a
// type does not derive are NaN.
type seriesParquetRow struct {
	Timestamp        string  `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TimestampMS      int64   `parquet:"name=timestamp_ms, type=INT64"`
	ActivityType     string  `parquet:"name=activity_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	AvgHrBPM         float64 `parquet:"name=avg_hr_bpm, type=DOUBLE"`
	DurationMin      float64 `parquet:"name=duration_min, type=DOUBLE"`
	DistanceKM       float64 `parquet:"name=distance_km, type=DOUBLE"`
	AvgPaceMinPerKM  float64 `parquet:"name=avg_pace_min_per_km, type=DOUBLE"`
	AvgLapTimeMin    float64 `parquet:"name=avg_lap_time_min_per_100m, type=DOUBLE"`
	AvgStrokes       float64 `parquet:"name=avg_strokes_per_25m, type=DOUBLE"`
	AvgDoubleCadence float64 `parquet:"name=avg_double_cadence_spm, type=DOUBLE"`
}

var parquetColumn = map[string]func(*seriesParquetRow) *float64{
	"avgHr":            func(r *seriesParquetRow) *float64 { return &r.AvgHrBPM },
	"Duration":         func(r *seriesParquetRow) *float64 { return &r.DurationMin },
	"Distance":         func(r *seriesParquetRow) *float64 { return &r.DistanceKM },
	"avgPace":          func(r *seriesParquetRow) *float64 { return &r.AvgPaceMinPerKM },
	"avgLapTime":       func(r *seriesParquetRow) *float64 { return &r.AvgLapTimeMin },
	"avgStrokes":       func(r *seriesParquetRow) *float64 { return &r.AvgStrokes },
	"avgDoubleCadence": func(r *seriesParquetRow) *float64 { return &r.AvgDoubleCadence },
}

func newSeriesParquetRow(series zoomout.Series, row zoomout.Row) seriesParquetRow {
	nan := math.NaN()
	out := seriesParquetRow{
		Timestamp:        row.Time.UTC().Format(seriesTimeLayout),
		TimestampMS:      row.Time.UnixMilli(),
		ActivityType:     string(series.Spec.Type),
		AvgHrBPM:         nan,
		DurationMin:      nan,
		DistanceKM:       nan,
		AvgPaceMinPerKM:  nan,
		AvgLapTimeMin:    nan,
		AvgStrokes:       nan,
		AvgDoubleCadence: nan,
	}
	for i, m := range series.Spec.Metrics {
		if field, ok := parquetColumn[m.Key]; ok {
			*field(&out) = row.Values[i]
		}
	}
	return out
}

func writeSeriesParquet(path string, series zoomout.Series) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(seriesParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range series.Rows {
		if err := pw.Write(newSeriesParquetRow(series, row)); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
