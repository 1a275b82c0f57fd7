package pipeline

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	zoomout "github.com/lucasjlepore/activity-zoomout"
)

// ManifestFormatVersion identifies the on-disk layout of run_manifest.json.
const ManifestFormatVersion = "activity_zoomout_v1"

// Renderer draws the charts of a run.
type Renderer interface {
	Distribution(w io.Writer, d zoomout.Distribution) error
	Summary(w io.Writer, series zoomout.Series, resolved zoomout.Resolved) error
	Correlation(w io.Writer, series zoomout.Series) error
}

// Options configures a zoom-out run.
type Options struct {
	// InputPath is an export file (JSON or .fit) or a directory searched for
	// the summarized activities export.
	InputPath string
	OutDir    string
	Format    string // csv|parquet
	// Args are the raw reference marker flags, e.g. "--running_avgHr=150".
	Args []string

	Schema   *zoomout.Schema
	Renderer Renderer
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// TypeResult describes the deep analysis of one activity type.
type TypeResult struct {
	ActivityType    string           `json:"activity_type"`
	Records         int              `json:"records"`
	Rows            int              `json:"rows"`
	Excluded        int              `json:"excluded"`
	Markers         zoomout.Resolved `json:"markers"`
	SummaryPath     string           `json:"summary_path,omitempty"`
	CorrelationPath string           `json:"correlation_path,omitempty"`
	SeriesPath      string           `json:"series_path,omitempty"`
	NotesPath       string           `json:"notes_path,omitempty"`
	Skipped         string           `json:"skipped,omitempty"`
}

// Result returns generated output paths.
type Result struct {
	RunID            string               `json:"run_id"`
	InputPath        string               `json:"input_path"`
	OutputDir        string               `json:"output_dir"`
	DistributionPath string               `json:"distribution_path"`
	ManifestPath     string               `json:"manifest_path"`
	Distribution     zoomout.Distribution `json:"distribution"`
	Types            []TypeResult         `json:"types"`
	Warnings         []string             `json:"warnings,omitempty"`
}

// Manifest is written to run_manifest.json at the end of a run.
type Manifest struct {
	FormatVersion    string               `json:"format_version"`
	RunID            string               `json:"run_id"`
	GeneratedAt      time.Time            `json:"generated_at"`
	SourceFile       string               `json:"source_file"`
	SourceSHA256     string               `json:"source_sha256"`
	SourceSizeBytes  int64                `json:"source_size_bytes"`
	SeriesFormat     string               `json:"series_format"`
	MarkerArgs       []string             `json:"marker_args,omitempty"`
	Distribution     zoomout.Distribution `json:"distribution"`
	DistributionPath string               `json:"distribution_path"`
	Types            []TypeResult         `json:"types"`
	Warnings         []string             `json:"warnings,omitempty"`
}
