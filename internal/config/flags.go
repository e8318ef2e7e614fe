package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagewright/stagewright/internal/model"
)

// FlagValues collects the raw, parsed flag values from the CLI, mirroring
// the teacher's FlagValues/BindFlags/ValidateFlags split: BindFlags wires
// cobra's persistent flags into this struct, ValidateFlags normalizes and
// cross-checks it, and ToRunOptions/ToOverrides translate it into the
// model types the orchestrator actually consumes.
type FlagValues struct {
	Config          string
	List            bool
	Grep            string
	GrepInvert      string
	Project         []string
	PassWithNoTests bool
	ForbidOnly      bool
	FullyParallel   bool
	GlobalTimeout   time.Duration
	MaxFailures     int
	OutputDir       string
	Quiet           bool
	RepeatEach      int
	Retries         int
	Reporter        []string
	Shard           string
	Timeout         time.Duration
	IgnoreSnapshots bool
	UpdateSnapshots string
	Workers         int
}

// BindFlags registers every persistent flag spec.md §6's RunOptions and
// ConfigCLIOverrides need on cmd, the way the teacher's config.BindFlags
// registers harvx's global flags.
func BindFlags(cmd *cobra.Command) *FlagValues {
	fv := &FlagValues{}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&fv.Config, "config", "c", ".", "path to the config file or testing root directory")
	pf.BoolVar(&fv.List, "list", false, "list tests without running them")
	pf.StringVarP(&fv.Grep, "grep", "g", "", "only run tests whose full title matches this pattern")
	pf.StringVar(&fv.GrepInvert, "grep-invert", "", "skip tests whose full title matches this pattern")
	pf.StringArrayVar(&fv.Project, "project", nil, "only run tests from this project (repeatable)")
	pf.BoolVar(&fv.PassWithNoTests, "pass-with-no-tests", false, "don't fail when no tests are found")
	pf.BoolVar(&fv.ForbidOnly, "forbid-only", false, "fail the run if any test.only remains")
	pf.BoolVar(&fv.FullyParallel, "fully-parallel", false, "run all tests in all files in parallel")
	pf.DurationVar(&fv.GlobalTimeout, "global-timeout", 0, "maximum time for the whole run")
	pf.IntVar(&fv.MaxFailures, "max-failures", 0, "stop after this many failures (0 = unlimited)")
	pf.StringVar(&fv.OutputDir, "output", "", "test artifact output directory")
	pf.BoolVarP(&fv.Quiet, "quiet", "q", false, "suppress non-essential output")
	pf.IntVar(&fv.RepeatEach, "repeat-each", 0, "run each test this many times")
	pf.IntVar(&fv.Retries, "retries", 0, "number of retries for failing tests")
	pf.StringArrayVar(&fv.Reporter, "reporter", nil, "reporter to use (repeatable)")
	pf.StringVar(&fv.Shard, "shard", "", "shard to run, as current/total, e.g. 2/4")
	pf.DurationVar(&fv.Timeout, "timeout", 0, "per-test timeout")
	pf.BoolVar(&fv.IgnoreSnapshots, "ignore-snapshots", false, "ignore snapshot assertions")
	pf.StringVar(&fv.UpdateSnapshots, "update-snapshots", "", "update snapshots: all, none, or missing")
	pf.IntVarP(&fv.Workers, "workers", "j", 0, "number of parallel worker processes (0 = config default)")

	return fv
}

// ValidateFlags applies environment variable fallbacks and cross-field
// checks, the way the teacher's ValidateFlags does from PersistentPreRunE.
func ValidateFlags(fv *FlagValues, cmd *cobra.Command) error {
	applyEnvOverrides(fv, cmd)

	if fv.Shard != "" {
		if _, _, err := parseShard(fv.Shard); err != nil {
			return fmt.Errorf("--shard: %w", err)
		}
	}

	switch fv.UpdateSnapshots {
	case "", "all", "none", "missing":
	default:
		return fmt.Errorf("--update-snapshots: invalid value %q (allowed: all, none, missing)", fv.UpdateSnapshots)
	}

	return nil
}

// ToRunOptions builds the listing/filtering options spec.md §6 attributes to
// RunOptions, given the positional file-pattern arguments (each optionally
// suffixed with ":line" or ":line:column").
func ToRunOptions(fv *FlagValues, fileArgs []string) (model.RunOptions, error) {
	opts := model.RunOptions{
		ListOnly:        fv.List,
		ProjectFilter:   fv.Project,
		PassWithNoTests: fv.PassWithNoTests,
	}

	for _, arg := range fileArgs {
		filter, err := parseFileFilter(arg)
		if err != nil {
			return opts, err
		}
		opts.TestFileFilters = append(opts.TestFileFilters, filter)
	}

	matcher, err := titleMatcher(fv.Grep, fv.GrepInvert)
	if err != nil {
		return opts, err
	}
	opts.TestTitleMatcher = matcher

	return opts, nil
}

// ToOverrides builds ConfigCLIOverrides, leaving every field nil/zero-value
// when its flag was never set so Merge's "override wins when present" rule
// leaves the loaded config's value untouched.
func ToOverrides(fv *FlagValues, cmd *cobra.Command) (model.ConfigCLIOverrides, error) {
	var out model.ConfigCLIOverrides
	flags := cmd.Flags()

	if flags.Changed("forbid-only") {
		out.ForbidOnly = &fv.ForbidOnly
	}
	if flags.Changed("fully-parallel") {
		out.FullyParallel = &fv.FullyParallel
	}
	if flags.Changed("global-timeout") {
		out.GlobalTimeout = &fv.GlobalTimeout
	}
	if flags.Changed("max-failures") {
		out.MaxFailures = &fv.MaxFailures
	}
	if flags.Changed("output") {
		out.OutputDir = &fv.OutputDir
	}
	if flags.Changed("quiet") {
		out.Quiet = &fv.Quiet
	}
	if flags.Changed("repeat-each") {
		out.RepeatEach = &fv.RepeatEach
	}
	if flags.Changed("retries") {
		out.Retries = &fv.Retries
	}
	if len(fv.Reporter) > 0 {
		out.Reporter = fv.Reporter
	}
	if fv.Shard != "" {
		current, total, err := parseShard(fv.Shard)
		if err != nil {
			return out, fmt.Errorf("--shard: %w", err)
		}
		out.Shard = &model.Shard{Current: current, Total: total}
	}
	if flags.Changed("timeout") {
		out.Timeout = &fv.Timeout
	}
	if flags.Changed("ignore-snapshots") {
		out.IgnoreSnapshots = &fv.IgnoreSnapshots
	}
	if fv.UpdateSnapshots != "" {
		mode := model.UpdateSnapshotsMode(fv.UpdateSnapshots)
		out.UpdateSnapshots = &mode
	}
	if flags.Changed("workers") {
		out.Workers = &fv.Workers
	}

	return out, nil
}

func parseShard(s string) (current, total int, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected current/total, got %q", s)
	}
	current, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid current shard %q: %w", parts[0], err)
	}
	total, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid shard total %q: %w", parts[1], err)
	}
	if current < 1 || total < 1 || current > total {
		return 0, 0, fmt.Errorf("shard current/total must satisfy 1 <= current <= total, got %d/%d", current, total)
	}
	return current, total, nil
}

// parseFileFilter splits a positional argument like "tests/login.spec.ts:42:3"
// into a TestFileFilter, per spec.md §6's {filePattern, line?, column?} shape.
func parseFileFilter(arg string) (model.TestFileFilter, error) {
	parts := strings.Split(arg, ":")
	filter := model.TestFileFilter{FilePattern: parts[0]}
	if len(parts) > 1 {
		line, err := strconv.Atoi(parts[1])
		if err != nil {
			return filter, fmt.Errorf("invalid line in file filter %q: %w", arg, err)
		}
		filter.Line = &line
	}
	if len(parts) > 2 {
		col, err := strconv.Atoi(parts[2])
		if err != nil {
			return filter, fmt.Errorf("invalid column in file filter %q: %w", arg, err)
		}
		filter.Column = &col
	}
	return filter, nil
}

func titleMatcher(grep, grepInvert string) (func(string) bool, error) {
	var grepRe, invertRe *regexp.Regexp
	var err error
	if grep != "" {
		grepRe, err = regexp.Compile(grep)
		if err != nil {
			return nil, fmt.Errorf("--grep: %w", err)
		}
	}
	if grepInvert != "" {
		invertRe, err = regexp.Compile(grepInvert)
		if err != nil {
			return nil, fmt.Errorf("--grep-invert: %w", err)
		}
	}
	if grepRe == nil && invertRe == nil {
		return nil, nil
	}
	return func(title string) bool {
		if grepRe != nil && !grepRe.MatchString(title) {
			return false
		}
		if invertRe != nil && invertRe.MatchString(title) {
			return false
		}
		return true
	}, nil
}
