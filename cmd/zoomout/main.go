package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	zoomout "github.com/lucasjlepore/activity-zoomout"
	"github.com/lucasjlepore/activity-zoomout/internal/config"
	"github.com/lucasjlepore/activity-zoomout/internal/logging"
	"github.com/lucasjlepore/activity-zoomout/pipeline"
	"github.com/lucasjlepore/activity-zoomout/render"
	"github.com/lucasjlepore/activity-zoomout/source"
)

const helpHint = "Try 'zoomout --help' for more information."

// toolFlags are the flags handled by the flag set; every other flag is a reference marker.
var toolFlags = map[string]bool{
	"config": false, "input": false, "out": false, "format": false,
	"log-level": false, "log-file": false,
	"log-json": true, "h": true, "help": true,
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	schema := zoomout.DefaultSchema()
	toolArgs, markerArgs := splitArgs(args)

	fs := flag.NewFlagSet("zoomout", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "Path to a TOML config file")
		inputPath  = fs.String("input", "", "Export directory, summarizedActivities.json or .fit file (default: current directory)")
		outDir     = fs.String("out", "", "Output directory (default: current directory)")
		format     = fs.String("format", "", "Series export format: csv|parquet (default: csv)")
		logLevel   = fs.String("log-level", "", "Log level: trace|debug|info|warn|error")
		logFile    = fs.String("log-file", "", "Also write logs to this rotated file")
		logJSON    = fs.Bool("log-json", false, "Log in JSON format")
	)
	fs.Usage = func() { writeUsage(stdout, schema, fs) }
	if err := fs.Parse(toolArgs); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, helpHint)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "zoomout failed: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputDir = *inputPath
		case "out":
			cfg.OutputDir = *outDir
		case "format":
			cfg.Format = *format
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		case "log-json":
			cfg.LogJSON = *logJSON
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "zoomout failed: %v\n", err)
		return 2
	}

	closeLog := logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogFile,
		LogToStdout:   cfg.LogToStdout,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogJSON,
		Stdout:        stdout,
	})
	defer closeLog()

	result, err := pipeline.Run(pipeline.Options{
		InputPath: cfg.InputDir,
		OutDir:    cfg.OutputDir,
		Format:    cfg.Format,
		Args:      append(append([]string(nil), cfg.Markers...), markerArgs...),
		Schema:    schema,
		Renderer:  render.New(render.DefaultOptions()),
		Logger:    logrus.StandardLogger(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "zoomout failed: %v\n", err)
		if errors.Is(err, source.ErrInputNotFound) {
			fmt.Fprintf(stderr, "The Garmin export (folder or file) is recognised by the suffix %q.\n", source.ExportSuffix)
		}
		return 1
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(stderr, helpHint)
	}

	fmt.Fprintf(stdout, "zoomout complete\n")
	fmt.Fprintf(stdout, "Input:               %s\n", result.InputPath)
	fmt.Fprintf(stdout, "Distribution:        %s\n", result.DistributionPath)
	for _, tr := range result.Types {
		if tr.Skipped != "" {
			fmt.Fprintf(stdout, "%-20s skipped: %s\n", tr.ActivityType+":", tr.Skipped)
			continue
		}
		fmt.Fprintf(stdout, "%-20s %s, %s\n", tr.ActivityType+":", filepath.Base(tr.SummaryPath), filepath.Base(tr.CorrelationPath))
	}
	fmt.Fprintf(stdout, "Manifest:            %s\n", result.ManifestPath)
	return 0
}

// splitArgs separates the tool flags from the reference marker flags.
// Tool flags given as "--name value" keep their value argument.
func splitArgs(args []string) (tool, markers []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			markers = append(markers, arg)
			continue
		}
		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		isBool, known := toolFlags[name]
		if !known {
			markers = append(markers, arg)
			continue
		}
		tool = append(tool, arg)
		if !hasValue && !isBool && i+1 < len(args) {
			i++
			tool = append(tool, args[i])
		}
	}
	return tool, markers
}

func writeUsage(w io.Writer, schema *zoomout.Schema, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: zoomout [Options]... [Markers]...\n")
	fmt.Fprintf(w, "Analyze Garmin activity data\n")
	fmt.Fprintf(w, "The Garmin export (folder or file) is searched under --input and recognised by the suffix %q.\n", source.ExportSuffix)
	fmt.Fprintf(w, "The plots are saved in --out.\n")
	fmt.Fprintf(w, "Summary and correlation charts need more than %d activities of a type; a single .fit file\n", zoomout.MinEligibleRecords)
	fmt.Fprintf(w, "holds only a few sessions, so use 'zoomout-notes --all' for it.\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()

	var dates, values []string
	for _, name := range schema.AllMarkerKeys() {
		if _, key, ok := schema.ParseMarkerKey(name); ok && key == zoomout.DateMarkerKey {
			dates = append(dates, name)
		} else {
			values = append(values, name)
		}
	}
	fmt.Fprintf(w, "\nMarkers (for multiple values in the same field, use comma as a separator):\n")
	writeMarkerGroup(w, dates, "dates (DD/MM/YYYY) to draw vertical lines")
	writeMarkerGroup(w, values, "values (numerical) to draw horizontal lines")
}

func writeMarkerGroup(w io.Writer, names []string, description string) {
	for i, name := range names {
		if i == 0 {
			fmt.Fprintf(w, "\t--%-30s %s\n", name, description)
			continue
		}
		fmt.Fprintf(w, "\t--%s\n", name)
	}
}
