package source

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/tormoder/fit"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

// LoadFIT decodes an activity FIT file and returns one record per session.
// Sessions of a sport outside the supported types keep the sport name as activity type.
func LoadFIT(path string) ([]zoomout.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()
	return DecodeFIT(f)
}

// DecodeFITBytes is DecodeFIT over an in-memory payload.
func DecodeFITBytes(data []byte) ([]zoomout.Record, error) {
	return DecodeFIT(bytes.NewReader(data))
}

// DecodeFIT reads FIT data from r.
func DecodeFIT(r io.Reader) ([]zoomout.Record, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}
	if len(activity.Sessions) == 0 {
		return nil, fmt.Errorf("activity file has no session message")
	}

	records := make([]zoomout.Record, 0, len(activity.Sessions))
	for _, session := range activity.Sessions {
		records = append(records, sessionRecord(session))
	}
	return records, nil
}

func sessionRecord(session *fit.SessionMsg) zoomout.Record {
	activityType := sessionType(session)

	start := validTimeOrZero(session.StartTime)
	if start.IsZero() {
		start = validTimeOrZero(session.Timestamp)
	}
	var begin int64
	if !start.IsZero() {
		begin = start.UnixMilli()
	}

	// Raw FIT units already match the export: timer in ms, distance in cm.
	base := zoomout.RecordBase{
		ActivityType:   string(activityType),
		BeginTimestamp: begin,
		Duration:       float64(validUint32(session.TotalTimerTime)),
		Distance:       float64(validUint32(session.TotalDistance)),
		AvgHr:          nanIfZero(float64(validUint8(session.AvgHeartRate))),
	}

	switch activityType {
	case zoomout.LapSwimming:
		strokes := math.NaN()
		if session.AvgStrokeCount != math.MaxUint32 {
			strokes = nanIfZero(float64(session.AvgStrokeCount) / 10)
		}
		return zoomout.NewLapSwimmingRecord(base, zoomout.SwimPayload{AvgStrokes: strokes})
	case zoomout.Running:
		return zoomout.NewRunningRecord(base, zoomout.RunPayload{AvgDoubleCadence: doubleCadence(session)})
	default:
		return zoomout.NewRecord(base)
	}
}

func sessionType(session *fit.SessionMsg) zoomout.ActivityType {
	switch session.Sport {
	case fit.SportRunning:
		return zoomout.Running
	case fit.SportWalking:
		return zoomout.Walking
	case fit.SportSwimming:
		if session.SubSport == fit.SubSportLapSwimming {
			return zoomout.LapSwimming
		}
		return zoomout.ActivityType("open_water_swimming")
	default:
		return zoomout.ActivityType(fmt.Sprint(session.Sport))
	}
}

// doubleCadence converts single-leg running cadence to steps per minute.
func doubleCadence(session *fit.SessionMsg) float64 {
	whole := validUint8(session.AvgCadence)
	if whole == 0 {
		return math.NaN()
	}
	cadence := float64(whole)
	if frac := validUint8(session.AvgFractionalCadence); frac > 0 {
		cadence += float64(frac) / 128
	}
	return 2 * cadence
}

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

func validUint8(v uint8) uint8 {
	if v == math.MaxUint8 {
		return 0
	}
	return v
}

func validUint32(v uint32) uint32 {
	if v == math.MaxUint32 {
		return 0
	}
	return v
}

func nanIfZero(v float64) float64 {
	if v == 0 {
		return math.NaN()
	}
	return v
}
