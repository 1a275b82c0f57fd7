// Package source locates and decodes activity history exports into core records.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

// ExportSuffix identifies the summarized activities file inside a Garmin export.
const ExportSuffix = "summarizedActivities.json"

// ErrInputNotFound is returned when no export file can be located.
var ErrInputNotFound = errors.New("input not found")

// Load returns the records of the export at path: a FIT activity file when the
// extension is .fit, the summarized activities JSON otherwise.
func Load(path string) ([]zoomout.Record, []string, error) {
	if strings.EqualFold(filepath.Ext(path), ".fit") {
		records, err := LoadFIT(path)
		return records, nil, err
	}
	return LoadExport(path)
}

// Discover walks root and returns the first file whose name ends with ExportSuffix.
// root may also name a file directly.
func Discover(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInputNotFound, err)
	}
	if !info.IsDir() {
		return root, nil
	}

	found := ""
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ExportSuffix) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %s: %w", root, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: no file with suffix %q under %s", ErrInputNotFound, ExportSuffix, root)
	}
	return found, nil
}

type exportEnvelope struct {
	SummarizedActivitiesExport []json.RawMessage `json:"summarizedActivitiesExport"`
}

type exportActivity struct {
	ActivityType     string   `json:"activityType"`
	BeginTimestamp   *float64 `json:"beginTimestamp"`
	Duration         *float64 `json:"duration"`
	Distance         *float64 `json:"distance"`
	AvgHr            *float64 `json:"avgHr"`
	AvgStrokes       *float64 `json:"avgStrokes"`
	AvgDoubleCadence *float64 `json:"avgDoubleCadence"`
}

// LoadExport reads a summarizedActivities JSON file. Entries that fail to
// decode are skipped and reported in the returned warnings.
func LoadExport(path string) ([]zoomout.Record, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read export: %w", err)
	}
	return DecodeExport(data)
}

// DecodeExport decodes the export payload: a top-level array whose first
// element holds the activity list under "summarizedActivitiesExport".
func DecodeExport(data []byte) ([]zoomout.Record, []string, error) {
	var envelopes []exportEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, nil, fmt.Errorf("decode export envelope: %w", err)
	}
	if len(envelopes) == 0 {
		return nil, nil, fmt.Errorf("export envelope is empty")
	}

	raw := envelopes[0].SummarizedActivitiesExport
	records := make([]zoomout.Record, 0, len(raw))
	var warnings []string
	for i, msg := range raw {
		var act exportActivity
		if err := json.Unmarshal(msg, &act); err != nil {
			warnings = append(warnings, fmt.Sprintf("activity %d skipped: %v", i, err))
			continue
		}
		if act.ActivityType == "" {
			warnings = append(warnings, fmt.Sprintf("activity %d skipped: missing activityType", i))
			continue
		}
		if missing := act.missingField(); missing != "" {
			warnings = append(warnings, fmt.Sprintf("activity %d skipped: missing %s", i, missing))
			continue
		}
		records = append(records, act.record())
	}
	return records, warnings, nil
}

// missingField names the first required measurement absent from the entry.
func (a exportActivity) missingField() string {
	switch {
	case a.BeginTimestamp == nil:
		return "beginTimestamp"
	case a.Duration == nil:
		return "duration"
	case a.Distance == nil:
		return "distance"
	}
	return ""
}

func (a exportActivity) record() zoomout.Record {
	base := zoomout.RecordBase{
		ActivityType:   a.ActivityType,
		BeginTimestamp: int64(*a.BeginTimestamp),
		Duration:       *a.Duration,
		Distance:       *a.Distance,
		AvgHr:          valueOr(a.AvgHr, math.NaN()),
	}
	switch zoomout.ActivityType(a.ActivityType) {
	case zoomout.LapSwimming:
		return zoomout.NewLapSwimmingRecord(base, zoomout.SwimPayload{AvgStrokes: valueOr(a.AvgStrokes, math.NaN())})
	case zoomout.Running:
		return zoomout.NewRunningRecord(base, zoomout.RunPayload{AvgDoubleCadence: valueOr(a.AvgDoubleCadence, math.NaN())})
	default:
		return zoomout.NewRecord(base)
	}
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
