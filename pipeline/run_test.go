package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	zoomout "github.com/lucasjlepore/activity-zoomout"
	"github.com/lucasjlepore/activity-zoomout/source"
)

type fakeRenderer struct {
	distributions []zoomout.Distribution
	summaries     []zoomout.Series
	resolved      []zoomout.Resolved
	correlations  []zoomout.Series
}

func (f *fakeRenderer) Distribution(w io.Writer, d zoomout.Distribution) error {
	f.distributions = append(f.distributions, d)
	_, err := fmt.Fprintf(w, "distribution %d\n", d.Total)
	return err
}

func (f *fakeRenderer) Summary(w io.Writer, s zoomout.Series, r zoomout.Resolved) error {
	f.summaries = append(f.summaries, s)
	f.resolved = append(f.resolved, r)
	_, err := fmt.Fprintf(w, "summary %s %d\n", s.Spec.Type, s.Len())
	return err
}

func (f *fakeRenderer) Correlation(w io.Writer, s zoomout.Series) error {
	f.correlations = append(f.correlations, s)
	_, err := fmt.Fprintf(w, "correlation %s %d\n", s.Spec.Type, s.Len())
	return err
}

type exportEntry struct {
	ActivityType     string   `json:"activityType"`
	BeginTimestamp   int64    `json:"beginTimestamp"`
	Duration         float64  `json:"duration"`
	Distance         float64  `json:"distance"`
	AvgHr            *float64 `json:"avgHr,omitempty"`
	AvgStrokes       *float64 `json:"avgStrokes,omitempty"`
	AvgDoubleCadence *float64 `json:"avgDoubleCadence,omitempty"`
}

func ptr(v float64) *float64 { return &v }

// writeExport stores entries as a Garmin style export below root and returns root.
func writeExport(t *testing.T, entries []exportEntry) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "DI_CONNECT", "DI-Connect-Fitness")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal([]map[string]any{{"summarizedActivitiesExport": entries}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "someone_0_summarizedActivities.json"), data, 0o644))
	return root
}

// runningEntries spreads n runs of 1.5 km in 30 minutes over 2019-2021.
func runningEntries(n int) []exportEntry {
	start := time.Date(2019, 1, 10, 7, 0, 0, 0, time.UTC)
	out := make([]exportEntry, n)
	for i := range out {
		out[i] = exportEntry{
			ActivityType:     "running",
			BeginTimestamp:   start.AddDate(0, 0, 40*i).UnixMilli(),
			Duration:         1800000,
			Distance:         150000,
			AvgHr:            ptr(140 + float64(i%10)),
			AvgDoubleCadence: ptr(168),
		}
	}
	return out
}

func swimmingEntries(n int) []exportEntry {
	start := time.Date(2020, 2, 1, 18, 0, 0, 0, time.UTC)
	out := make([]exportEntry, n)
	for i := range out {
		out[i] = exportEntry{
			ActivityType:   "lap_swimming",
			BeginTimestamp: start.AddDate(0, 0, 7*i).UnixMilli(),
			Duration:       2100000,
			Distance:       150000,
			AvgHr:          ptr(125),
			AvgStrokes:     ptr(15),
		}
	}
	return out
}

func newRun(t *testing.T, input string, args ...string) (*Result, *fakeRenderer, *test.Hook, string) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	fake := &fakeRenderer{}
	out := filepath.Join(t.TempDir(), "out")
	res, err := Run(Options{
		InputPath: input,
		OutDir:    out,
		Format:    "csv",
		Args:      args,
		Renderer:  fake,
		Logger:    logger,
		Now:       func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return res, fake, hook, out
}

func warningsContaining(hook *test.Hook, substr string) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

func TestRunRunningDerivesDurationAndPace(t *testing.T) {
	input := writeExport(t, runningEntries(25))
	res, fake, _, out := newRun(t, input)

	require.Len(t, res.Types, 1)
	tr := res.Types[0]
	assert.Equal(t, "running", tr.ActivityType)
	assert.Equal(t, 25, tr.Rows)
	assert.Zero(t, tr.Excluded)

	require.Len(t, fake.summaries, 1)
	series := fake.summaries[0]
	duration := series.ColumnIndex("Duration (minutes)")
	pace := series.ColumnIndex("avgPace (minutes/ km)")
	for _, row := range series.Rows {
		assert.Equal(t, 30.0, row.Values[duration])
		assert.Equal(t, 20.0, row.Values[pace])
	}
	require.Len(t, fake.correlations, 1)

	for _, name := range []string{
		"Activities_distribution.jpg",
		"Running summary.jpg",
		"Running variables correlation.jpg",
		"running_series.csv",
		"Running notes.txt",
		"run_manifest.json",
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, "Walking summary.jpg"))

	f, err := os.Open(tr.SeriesPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 26)
	assert.Equal(t, []string{"timestamp", "avgHr (bpm)", "Duration (minutes)", "avgPace (minutes/ km)", "avgDoubleCadence (steps/ minute)"}, rows[0])
	assert.Equal(t, "2019-01-10T07:00:00Z", rows[1][0])
	assert.Equal(t, "30.000000", rows[1][2])
}

func TestRunKeepsOnlyDateMarkersInsideSpan(t *testing.T) {
	input := writeExport(t, runningEntries(25))
	res, fake, _, _ := newRun(t, input, "--running_d=01-01-2020,01-01-2050")

	require.Len(t, fake.resolved, 1)
	assert.Equal(t, []time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}, fake.resolved[0].Dates)
	assert.Equal(t, fake.resolved[0], res.Types[0].Markers)
}

func TestRunIgnoresUnknownFlag(t *testing.T) {
	input := writeExport(t, runningEntries(25))
	res, fake, hook, _ := newRun(t, input, "--cycling_d=01-01-2020", "--running_avgHr=145")

	assert.Equal(t, 1, warningsContaining(hook, "invalid option --cycling_d"))
	assert.Contains(t, res.Warnings, "invalid option --cycling_d")
	require.Len(t, fake.resolved, 1)
	require.Len(t, fake.resolved[0].Lines, 1)
	assert.Equal(t, []float64{145}, fake.resolved[0].Lines[0].Values)
}

func TestRunSkipsTypesWithoutEnoughActivities(t *testing.T) {
	entries := append(runningEntries(20), swimmingEntries(21)...)
	res, fake, _, out := newRun(t, input(t, entries))

	assert.Equal(t, 41, res.Distribution.Total)
	require.Len(t, fake.distributions, 1)
	require.Len(t, res.Types, 1)
	assert.Equal(t, "lap_swimming", res.Types[0].ActivityType)
	assert.FileExists(t, filepath.Join(out, "Lap swimming summary.jpg"))
	assert.NoFileExists(t, filepath.Join(out, "Running summary.jpg"))

	lapTime := fake.summaries[0].ColumnIndex("avgLapTime (minutes/ 100 meter)")
	assert.Equal(t, 2.33, fake.summaries[0].Rows[0].Values[lapTime])
}

func TestRunEligibleTypeEmptyAfterCutoff(t *testing.T) {
	entries := runningEntries(22)
	for i := range entries {
		entries[i].Distance = 50000
	}
	res, fake, hook, out := newRun(t, input(t, entries))

	require.Len(t, res.Types, 1)
	assert.NotEmpty(t, res.Types[0].Skipped)
	assert.Equal(t, 22, res.Types[0].Excluded)
	assert.Empty(t, fake.summaries)
	assert.Empty(t, fake.correlations)
	assert.Equal(t, 1, warningsContaining(hook, "no running activity longer than 1 km"))
	assert.NoFileExists(t, filepath.Join(out, "Running summary.jpg"))
}

func TestRunReportsUndecodableEntries(t *testing.T) {
	root := t.TempDir()
	payload := `[{"summarizedActivitiesExport": [{"activityType": "running", "distance": "far"}]}]`
	require.NoError(t, os.WriteFile(filepath.Join(root, "x_summarizedActivities.json"), []byte(payload), 0o644))

	res, _, hook, _ := newRun(t, root)
	assert.Zero(t, res.Distribution.Total)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, 1, warningsContaining(hook, "activity 0 skipped"))
}

func TestRunMissingInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	_, err := Run(Options{InputPath: t.TempDir(), OutDir: out, Renderer: &fakeRenderer{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrInputNotFound))
	assert.NoDirExists(t, out)
}

func TestRunRejectsBadOptions(t *testing.T) {
	_, err := Run(Options{InputPath: t.TempDir(), Renderer: &fakeRenderer{}})
	assert.Error(t, err)
	_, err = Run(Options{InputPath: t.TempDir(), OutDir: t.TempDir(), Format: "xlsx", Renderer: &fakeRenderer{}})
	assert.Error(t, err)
	_, err = Run(Options{InputPath: t.TempDir(), OutDir: t.TempDir()})
	assert.Error(t, err)
}

func TestRunIsIdempotent(t *testing.T) {
	in := input(t, append(runningEntries(25), swimmingEntries(24)...))
	args := []string{"--running_d=01/06/2020", "--lap_swimming_avgHr=125"}

	first, _, _, _ := newRun(t, in, args...)
	second, _, _, _ := newRun(t, in, args...)

	require.Len(t, second.Types, len(first.Types))
	for i := range first.Types {
		for _, pair := range [][2]string{
			{first.Types[i].SeriesPath, second.Types[i].SeriesPath},
			{first.Types[i].NotesPath, second.Types[i].NotesPath},
			{first.Types[i].SummaryPath, second.Types[i].SummaryPath},
		} {
			a, err := os.ReadFile(pair[0])
			require.NoError(t, err)
			b, err := os.ReadFile(pair[1])
			require.NoError(t, err)
			assert.Equal(t, a, b)
		}
		assert.Equal(t, first.Types[i].Markers, second.Types[i].Markers)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunWritesManifest(t *testing.T) {
	res, _, _, _ := newRun(t, input(t, runningEntries(25)), "--running_avgHr=141")

	data, err := os.ReadFile(res.ManifestPath)
	require.NoError(t, err)
	var manifest Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, ManifestFormatVersion, manifest.FormatVersion)
	assert.Equal(t, res.RunID, manifest.RunID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), manifest.GeneratedAt)
	assert.Len(t, manifest.SourceSHA256, 64)
	assert.Equal(t, "csv", manifest.SeriesFormat)
	assert.Equal(t, "Activities_distribution.jpg", manifest.DistributionPath)
	require.Len(t, manifest.Types, 1)
	assert.Equal(t, "running_series.csv", manifest.Types[0].SeriesPath)
	assert.Equal(t, "Running summary.jpg", manifest.Types[0].SummaryPath)
	require.Len(t, manifest.Types[0].Markers.Lines, 1)
	assert.Equal(t, "avgHr (bpm)", manifest.Types[0].Markers.Lines[0].Column)
}

func TestRunParquetSeries(t *testing.T) {
	logger, _ := test.NewNullLogger()
	out := t.TempDir()
	res, err := Run(Options{
		InputPath: input(t, swimmingEntries(21)),
		OutDir:    out,
		Format:    "parquet",
		Renderer:  &fakeRenderer{},
		Logger:    logger,
	})
	require.NoError(t, err)
	require.Len(t, res.Types, 1)
	assert.Equal(t, filepath.Join(out, "lap_swimming_series.parquet"), res.Types[0].SeriesPath)

	fr, err := local.NewLocalFileReader(res.Types[0].SeriesPath)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(seriesParquetRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.Equal(t, int64(21), pr.GetNumRows())
	rows := make([]seriesParquetRow, 21)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, "lap_swimming", rows[0].ActivityType)
	assert.Equal(t, 125.0, rows[0].AvgHrBPM)
	assert.Equal(t, 2.33, rows[0].AvgLapTimeMin)
	assert.Equal(t, 15.0, rows[0].AvgStrokes)
	assert.True(t, math.IsNaN(rows[0].AvgPaceMinPerKM))
}

func input(t *testing.T, entries []exportEntry) string {
	t.Helper()
	return writeExport(t, entries)
}
