package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerSetupParams struct {
	// Logger defaults to the logrus standard logger.
	Logger        *logrus.Logger
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
	// Stdout defaults to os.Stdout.
	Stdout io.Writer
}

// Setup configures the logger and returns a function closing the log file, if any.
func Setup(params LoggerSetupParams) func() error {
	logger := params.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	stdout := params.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	if params.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetLevel(GetLevel(params.LogLevel))

	if params.LogFileName == "" {
		logger.SetOutput(stdout)
		return func() error { return nil }
	}

	if !strings.HasSuffix(params.LogFileName, ".log") {
		params.LogFileName += ".log"
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   params.LogFileName,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		LocalTime:  false, // false -> use UTC
		Compress:   true,
	}

	if params.LogToStdout {
		logger.SetOutput(NewCombinedWriter(stdout, lumberJackLogger))
	} else {
		logger.SetOutput(lumberJackLogger)
	}
	logger.WithField("file", params.LogFileName).Debug("writing logs to file")
	return lumberJackLogger.Close
}

// GetLevel maps a level name to a logrus level. Unknown names map to info.
func GetLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "trace":
		return logrus.TraceLevel
	case "warn", "warning":
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}
