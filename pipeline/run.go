package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	zoomout "github.com/lucasjlepore/activity-zoomout"
	"github.com/lucasjlepore/activity-zoomout/render"
	"github.com/lucasjlepore/activity-zoomout/source"
)

const manifestFile = "run_manifest.json"

type run struct {
	opts    Options
	format  string
	schema  *zoomout.Schema
	log     logrus.FieldLogger
	records []zoomout.Record
	markers zoomout.MarkerSet
	result  *Result
}

// Run classifies the activity history, renders the distribution chart and
// writes the summary, correlation, series and notes outputs of every
// supported activity type with enough activities.
func Run(opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "csv"
	}
	if format != "parquet" && format != "csv" {
		return nil, fmt.Errorf("unsupported format %q (expected csv|parquet)", format)
	}
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if opts.Schema == nil {
		opts.Schema = zoomout.DefaultSchema()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	inputPath, err := source.Discover(opts.InputPath)
	if err != nil {
		return nil, err
	}
	records, loadWarnings, err := source.Load(inputPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", inputPath, err)
	}
	sha, size, err := fileDigest(inputPath)
	if err != nil {
		return nil, err
	}

	r := &run{
		opts:    opts,
		format:  format,
		schema:  opts.Schema,
		log:     opts.Logger,
		records: records,
		result: &Result{
			RunID:     uuid.NewString(),
			InputPath: inputPath,
			OutputDir: opts.OutDir,
		},
	}
	r.log.WithFields(logrus.Fields{"input": inputPath, "records": len(records)}).Info("activity history loaded")
	for _, w := range loadWarnings {
		r.warn(r.log, w)
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	res := r.result
	res.Distribution = zoomout.Classify(records)
	res.DistributionPath = filepath.Join(opts.OutDir, render.DistributionFile)
	if err := writeWith(res.DistributionPath, func(w io.Writer) error {
		return opts.Renderer.Distribution(w, res.Distribution)
	}); err != nil {
		return nil, fmt.Errorf("write %s: %w", render.DistributionFile, err)
	}

	var parseWarnings []zoomout.ParseWarning
	r.markers, parseWarnings = zoomout.ParseMarkers(r.schema, opts.Args)
	for _, pw := range parseWarnings {
		r.warn(r.log.WithField("arg", pw.Arg), pw.Error())
	}
	if err := zoomout.ValidateMarkers(r.schema, r.markers); err != nil {
		for _, e := range multierr.Errors(err) {
			r.warn(r.log, e.Error())
		}
	}

	eligible := res.Distribution.Eligible()
	for _, t := range r.schema.Types() {
		if !eligible[string(t)] {
			r.log.WithFields(logrus.Fields{
				"activity_type": t,
				"records":       res.Distribution.Count(string(t)),
			}).Debug("not enough activities for a deep analysis")
			continue
		}
		tr, err := r.analyzeType(t)
		if err != nil {
			return nil, err
		}
		res.Types = append(res.Types, tr)
	}

	res.ManifestPath = filepath.Join(opts.OutDir, manifestFile)
	manifest := Manifest{
		FormatVersion:    ManifestFormatVersion,
		RunID:            res.RunID,
		GeneratedAt:      opts.Now().UTC(),
		SourceFile:       inputPath,
		SourceSHA256:     sha,
		SourceSizeBytes:  size,
		SeriesFormat:     format,
		MarkerArgs:       opts.Args,
		Distribution:     res.Distribution,
		DistributionPath: filepath.Base(res.DistributionPath),
		Types:            relativeTypes(res.Types),
		Warnings:         res.Warnings,
	}
	if err := writeJSON(res.ManifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write %s: %w", manifestFile, err)
	}
	r.log.WithFields(logrus.Fields{"run_id": res.RunID, "out": opts.OutDir, "warnings": len(res.Warnings)}).Info("zoom out complete")
	return res, nil
}

func (r *run) analyzeType(t zoomout.ActivityType) (TypeResult, error) {
	spec, err := r.schema.SpecFor(t)
	if err != nil {
		return TypeResult{}, err
	}
	entry := r.log.WithField("activity_type", t)
	count := r.result.Distribution.Count(string(t))

	series, errs := zoomout.Extract(zoomout.Filter(r.records, spec), spec)
	for _, e := range errs {
		r.warn(entry, e.Error())
	}
	tr := TypeResult{
		ActivityType: string(t),
		Records:      count,
		Rows:         series.Len(),
		Excluded:     count - series.Len(),
	}
	if series.Len() == 0 {
		tr.Skipped = fmt.Sprintf("no %s activity longer than %g %s", t, spec.MinDistance, spec.DistanceUnit)
		r.warn(entry, tr.Skipped)
		return tr, nil
	}

	resolved, err := zoomout.Resolve(series, r.markers.For(t))
	if err != nil {
		entry.WithError(err).Debug("marker keys left unresolved")
	}
	tr.Markers = resolved

	outDir := r.opts.OutDir
	tr.SummaryPath = filepath.Join(outDir, render.SummaryFile(t))
	if err := writeWith(tr.SummaryPath, func(w io.Writer) error {
		return r.opts.Renderer.Summary(w, series, resolved)
	}); err != nil {
		return tr, fmt.Errorf("write %s summary: %w", t, err)
	}

	tr.CorrelationPath = filepath.Join(outDir, render.CorrelationFile(t))
	if err := writeWith(tr.CorrelationPath, func(w io.Writer) error {
		return r.opts.Renderer.Correlation(w, series)
	}); err != nil {
		return tr, fmt.Errorf("write %s correlation: %w", t, err)
	}

	tr.SeriesPath = filepath.Join(outDir, SeriesFile(t, r.format))
	switch r.format {
	case "csv":
		err = writeSeriesCSV(tr.SeriesPath, series)
	case "parquet":
		err = writeSeriesParquet(tr.SeriesPath, series)
	}
	if err != nil {
		return tr, fmt.Errorf("write %s series: %w", t, err)
	}

	tr.NotesPath = filepath.Join(outDir, NotesFile(t))
	notes := zoomout.BuildSeriesNotes(series, resolved, tr.Excluded)
	if err := os.WriteFile(tr.NotesPath, []byte(notes+"\n"), 0o644); err != nil {
		return tr, fmt.Errorf("write %s notes: %w", t, err)
	}

	entry.WithFields(logrus.Fields{
		"rows":     tr.Rows,
		"excluded": tr.Excluded,
		"dates":    len(resolved.Dates),
		"lines":    len(resolved.Lines),
	}).Info("activity type analyzed")
	return tr, nil
}

func (r *run) warn(entry logrus.FieldLogger, msg string) {
	entry.Warn(msg)
	r.result.Warnings = append(r.result.Warnings, msg)
}

// SeriesFile returns "<type>_series.<format>".
func SeriesFile(t zoomout.ActivityType, format string) string {
	return string(t) + "_series." + format
}

// NotesFile returns "<Display> notes.txt".
func NotesFile(t zoomout.ActivityType) string {
	return t.DisplayName() + " notes.txt"
}

func relativeTypes(types []TypeResult) []TypeResult {
	out := make([]TypeResult, len(types))
	for i, tr := range types {
		tr.SummaryPath = baseOrEmpty(tr.SummaryPath)
		tr.CorrelationPath = baseOrEmpty(tr.CorrelationPath)
		tr.SeriesPath = baseOrEmpty(tr.SeriesPath)
		tr.NotesPath = baseOrEmpty(tr.NotesPath)
		out[i] = tr
	}
	return out
}

func baseOrEmpty(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

func fileDigest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash source: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// writeWith creates path and hands it to fn. A close failure is reported with fn's error.
func writeWith(path string, fn func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return fn(f)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
