package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

const sampleExport = `[{"summarizedActivitiesExport": [
  {"activityType": "running", "beginTimestamp": 1577865600000, "duration": 1800000, "distance": 500000, "avgHr": 150, "avgDoubleCadence": 170.5},
  {"activityType": "lap_swimming", "beginTimestamp": 1577952000000, "duration": 2100000, "distance": 150000, "avgStrokes": 14},
  {"activityType": "walking", "beginTimestamp": 1578038400000, "duration": 2700000, "distance": 300000, "avgHr": 95},
  {"activityType": "running", "beginTimestamp": "not-a-number"},
  {"beginTimestamp": 1578124800000},
  {"activityType": "cycling", "beginTimestamp": 1578211200000, "duration": 3600000, "distance": 3000000}
]}]`

func TestDecodeExport(t *testing.T) {
	records, warnings, err := DecodeExport([]byte(sampleExport))
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Len(t, warnings, 2)

	run, ok := records[0].Run()
	require.True(t, ok)
	assert.Equal(t, 170.5, run.AvgDoubleCadence)
	assert.Equal(t, 150.0, records[0].AvgHr)
	assert.Equal(t, time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC), records[0].Start())

	swim, ok := records[1].Swim()
	require.True(t, ok)
	assert.Equal(t, 14.0, swim.AvgStrokes)
	assert.True(t, math.IsNaN(records[1].AvgHr))

	_, ok = records[2].Run()
	assert.False(t, ok)
	assert.True(t, records[3].Is("cycling"))
}

func TestDecodeExportSkipsEntriesWithoutMeasurements(t *testing.T) {
	payload := `[{"summarizedActivitiesExport": [
  {"activityType": "running", "duration": 1800000, "distance": 500000, "avgHr": 143},
  {"activityType": "running", "beginTimestamp": 1577865600000, "distance": 500000},
  {"activityType": "walking", "beginTimestamp": 1577865600000, "duration": 1800000},
  {"activityType": "running", "beginTimestamp": 1577952000000, "duration": 1800000, "distance": 500000}
]}]`
	records, warnings, err := DecodeExport([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2020, 1, 2, 8, 0, 0, 0, time.UTC), records[0].Start())
	assert.Equal(t, []string{
		"activity 0 skipped: missing beginTimestamp",
		"activity 1 skipped: missing duration",
		"activity 2 skipped: missing distance",
	}, warnings)
}

func TestDecodeExportRejectsBadEnvelope(t *testing.T) {
	_, _, err := DecodeExport([]byte(`{"summarizedActivitiesExport": []}`))
	require.Error(t, err)

	_, _, err = DecodeExport([]byte(`[]`))
	require.Error(t, err)
}

func TestDiscoverFindsExportRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "DI_CONNECT", "DI-Connect-Fitness")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	want := filepath.Join(nested, "user_0_summarizedActivities.json")
	require.NoError(t, os.WriteFile(want, []byte(sampleExport), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.json"), []byte("{}"), 0o644))

	got, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	records, _, err := Load(got)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestDiscoverMissingExport(t *testing.T) {
	_, err := Discover(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInputNotFound))

	_, err = Discover(filepath.Join(t.TempDir(), "absent"))
	assert.True(t, errors.Is(err, ErrInputNotFound))
}

func TestDecodeFITSessions(t *testing.T) {
	records, err := DecodeFITBytes(buildTestFIT(t))
	require.NoError(t, err)
	require.Len(t, records, 2)

	run, ok := records[0].Run()
	require.True(t, ok)
	assert.Equal(t, 1800000.0, records[0].Duration)
	assert.Equal(t, 500000.0, records[0].Distance)
	assert.Equal(t, 152.0, records[0].AvgHr)
	assert.Equal(t, 170.0, run.AvgDoubleCadence)

	swim, ok := records[1].Swim()
	require.True(t, ok)
	assert.Equal(t, 12.5, swim.AvgStrokes)
	assert.True(t, math.IsNaN(records[1].AvgHr))
}

func TestLoadFITFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.fit")
	require.NoError(t, os.WriteFile(path, buildTestFIT(t), 0o644))

	records, warnings, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, records, 2)
}

func buildTestFIT(t *testing.T) []byte {
	t.Helper()

	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	require.NoError(t, err)

	activity, err := file.Activity()
	require.NoError(t, err)

	start := time.Date(2021, 5, 4, 6, 0, 0, 0, time.UTC)

	run := fit.NewSessionMsg()
	run.Timestamp = start.Add(30 * time.Minute)
	run.StartTime = start
	run.Sport = fit.SportRunning
	run.TotalTimerTime = 1800000
	run.TotalDistance = 500000
	run.AvgHeartRate = 152
	run.AvgCadence = 85
	activity.Sessions = append(activity.Sessions, run)

	swim := fit.NewSessionMsg()
	swim.Timestamp = start.Add(26 * time.Hour)
	swim.StartTime = start.Add(25 * time.Hour)
	swim.Sport = fit.SportSwimming
	swim.SubSport = fit.SubSportLapSwimming
	swim.TotalTimerTime = 2400000
	swim.TotalDistance = 150000
	swim.AvgStrokeCount = 125
	activity.Sessions = append(activity.Sessions, swim)

	record := fit.NewRecordMsg()
	record.Timestamp = start.Add(30 * time.Second)
	record.HeartRate = 150
	activity.Records = append(activity.Records, record)

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))
	return buf.Bytes()
}

func TestSessionTypeFallsBackToSportName(t *testing.T) {
	session := fit.NewSessionMsg()
	session.Sport = fit.SportSwimming
	session.SubSport = fit.SubSportOpenWater
	assert.Equal(t, zoomout.ActivityType("open_water_swimming"), sessionType(session))
}
