package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stagewright/stagewright/internal/reporter"
)

// applyEnvOverrides applies environment variable inputs to fv, the way the
// teacher's applyEnvOverrides reads HARVX_* variables. STAGEWRIGHT_REPORTER
// is appended to any --reporter values; the CI-derived default reporter is
// used only when no reporter was chosen by flag or environment.
func applyEnvOverrides(fv *FlagValues, cmd *cobra.Command) {
	if v := os.Getenv("STAGEWRIGHT_REPORTER"); v != "" {
		fv.Reporter = append(fv.Reporter, v)
	}

	if len(fv.Reporter) == 0 {
		if _, ci := os.LookupEnv("CI"); ci {
			fv.Reporter = []string{reporter.DefaultCISet}
		} else {
			fv.Reporter = []string{reporter.DefaultCIUnset}
		}
	}
}

// DockerInfo returns the value of STAGEWRIGHT_DOCKER, reported as-is in the
// list-files output (the PLAYWRIGHT_DOCKER analog).
func DockerInfo() string {
	return os.Getenv("STAGEWRIGHT_DOCKER")
}

// ResolveLogLevel mirrors the teacher's config.ResolveLogLevel: STAGEWRIGHT_DEBUG=1
// always wins (Debug), then --quiet (Error), else Info.
func ResolveLogLevel(quiet bool) slog.Level {
	if os.Getenv("STAGEWRIGHT_DEBUG") == "1" {
		return slog.LevelDebug
	}
	if quiet {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ResolveLogFormat reads STAGEWRIGHT_LOG_FORMAT, the HARVX_LOG_FORMAT analog.
func ResolveLogFormat() string {
	if strings.EqualFold(os.Getenv("STAGEWRIGHT_LOG_FORMAT"), "json") {
		return "json"
	}
	return "text"
}

// SetupLogging configures the global slog default logger, writing to
// os.Stderr so stdout stays clean for reporter output.
func SetupLogging(level slog.Level, format string) {
	SetupLoggingWithWriter(level, format, os.Stderr)
}

// SetupLoggingWithWriter is the writer-injectable variant used by tests.
func SetupLoggingWithWriter(level slog.Level, format string, w io.Writer) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// NewLogger returns a child logger tagged with a "component" attribute, the
// way the teacher's config.NewLogger scopes log output per subsystem.
func NewLogger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
