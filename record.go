package zoomout

import (
	"math"
	"time"
)

// RecordBase holds the fields every exported activity carries.
type RecordBase struct {
	ActivityType   string  `json:"activity_type"`
	BeginTimestamp int64   `json:"begin_timestamp"` // epoch milliseconds, UTC
	Duration       float64 `json:"duration"`        // milliseconds
	Distance       float64 `json:"distance"`        // centimetres
	AvgHr          float64 `json:"avg_hr"`          // NaN when absent
}

// SwimPayload is the lap_swimming specific part of a record.
type SwimPayload struct {
	AvgStrokes float64
}

// RunPayload is the running specific part of a record.
type RunPayload struct {
	AvgDoubleCadence float64
}

// Record is one raw activity entry. Type specific fields are only reachable
// through accessors that check the activity type.
type Record struct {
	RecordBase

	swim *SwimPayload
	run  *RunPayload
}

// NewRecord builds a record without a type specific payload.
func NewRecord(base RecordBase) Record {
	return Record{RecordBase: base}
}

// NewLapSwimmingRecord builds a lap_swimming record.
func NewLapSwimmingRecord(base RecordBase, p SwimPayload) Record {
	base.ActivityType = string(LapSwimming)
	return Record{RecordBase: base, swim: &p}
}

// NewRunningRecord builds a running record.
func NewRunningRecord(base RecordBase, p RunPayload) Record {
	base.ActivityType = string(Running)
	return Record{RecordBase: base, run: &p}
}

// Swim returns the swim payload when the record is a lap_swimming record.
func (r Record) Swim() (SwimPayload, bool) {
	if r.ActivityType != string(LapSwimming) || r.swim == nil {
		return SwimPayload{}, false
	}
	return *r.swim, true
}

// Run returns the running payload when the record is a running record.
func (r Record) Run() (RunPayload, bool) {
	if r.ActivityType != string(Running) || r.run == nil {
		return RunPayload{}, false
	}
	return *r.run, true
}

// Start is BeginTimestamp as a UTC time.
func (r Record) Start() time.Time {
	return time.UnixMilli(r.BeginTimestamp).UTC()
}

// Is reports whether the record belongs to activity type t.
func (r Record) Is(t ActivityType) bool {
	return r.ActivityType == string(t)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
