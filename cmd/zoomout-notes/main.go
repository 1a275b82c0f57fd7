package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	zoomout "github.com/lucasjlepore/activity-zoomout"
	"github.com/lucasjlepore/activity-zoomout/source"
)

type notesReport struct {
	Source       string               `json:"source"`
	Distribution zoomout.Distribution `json:"distribution"`
	Notes        map[string]string    `json:"notes"`
	Warnings     []string             `json:"warnings,omitempty"`
}

func main() {
	var (
		jsonOut = flag.Bool("json", false, "Emit distribution and notes as JSON")
		all     = flag.Bool("all", false, "Include supported types below the activity threshold")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <export directory, summarizedActivities.json or .fit file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	report, err := buildReport(flag.Arg(0), zoomout.DefaultSchema(), *all)
	if err != nil {
		fmt.Fprintf(os.Stderr, "notes failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printReport(os.Stdout, report, zoomout.DefaultSchema())
}

func buildReport(path string, schema *zoomout.Schema, all bool) (*notesReport, error) {
	input, err := source.Discover(path)
	if err != nil {
		return nil, err
	}
	records, warnings, err := source.Load(input)
	if err != nil {
		return nil, err
	}

	report := &notesReport{
		Source:       input,
		Distribution: zoomout.Classify(records),
		Notes:        make(map[string]string),
		Warnings:     warnings,
	}
	eligible := report.Distribution.Eligible()
	for _, t := range schema.Types() {
		if !all && !eligible[string(t)] {
			continue
		}
		spec, err := schema.SpecFor(t)
		if err != nil {
			return nil, err
		}
		count := report.Distribution.Count(string(t))
		series, errs := zoomout.Extract(zoomout.Filter(records, spec), spec)
		for _, e := range errs {
			report.Warnings = append(report.Warnings, e.Error())
		}
		report.Notes[string(t)] = zoomout.BuildSeriesNotes(series, zoomout.Resolved{}, count-series.Len())
	}
	return report, nil
}

func printReport(w io.Writer, report *notesReport, schema *zoomout.Schema) {
	fmt.Fprintf(w, "Activities distribution (N=%d)\n", report.Distribution.Total)
	for _, c := range report.Distribution.Counts {
		fmt.Fprintf(w, "- %-24s %5d\n", c.ActivityType, c.Count)
	}
	for _, t := range schema.Types() {
		if notes, ok := report.Notes[string(t)]; ok {
			fmt.Fprintln(w)
			fmt.Fprintln(w, notes)
		}
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
