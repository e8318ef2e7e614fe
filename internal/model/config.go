package model

import "time"

// Config is the external, validated configuration value produced by the
// (out-of-scope) configuration loader. The orchestrator only reads it; it
// never parses config source files itself (spec.md §1 Non-goals).
type Config struct {
	Projects     []*Project
	GlobalSetup  func() (teardown func() error, err error)
	GlobalTeardown func() error
	Workers      int
	GlobalTimeout time.Duration
	MaxFailures  int
	Reporters    []string
}

// TestFileFilter narrows collection to specific files, optionally pinned to
// a line and/or column (e.g. "tests/login.spec.ts:42").
type TestFileFilter struct {
	FilePattern string
	Line        *int
	Column      *int
}

// Shard selects one partition of the shardable test set.
type Shard struct {
	Current int // 1-based
	Total   int
}

// RunOptions carries the CLI-originated options that are never part of the
// loaded Config: listing mode, file filters, and project selection.
type RunOptions struct {
	ListOnly         bool
	TestFileFilters  []TestFileFilter
	TestTitleMatcher func(fullTitle string) bool
	ProjectFilter    []string // case-insensitive project names
	PassWithNoTests  bool
}

// ConfigCLIOverrides carries every optional CLI-originated override to the
// loaded Config, per spec.md §6.
type ConfigCLIOverrides struct {
	ForbidOnly       *bool
	FullyParallel    *bool
	GlobalTimeout    *time.Duration
	MaxFailures      *int
	OutputDir        *string
	Quiet            *bool
	RepeatEach       *int
	Retries          *int
	Reporter         []string
	Shard            *Shard
	Timeout          *time.Duration
	IgnoreSnapshots  *bool
	UpdateSnapshots  *UpdateSnapshotsMode
	Workers          *int
	ProjectOverrides []ProjectOverride
	Use              map[string]any
}

// ProjectOverride supplies a fixture-parameter override for a named project.
type ProjectOverride struct {
	Name string
	Use  map[string]any
}

// FullConfigInternal is the fully resolved configuration the orchestrator
// dispatches from: the loaded Config with every ConfigCLIOverrides field
// applied.
type FullConfigInternal struct {
	Projects        []*Project
	Workers         int
	GlobalTimeout   time.Duration
	MaxFailures     int
	ForbidOnly      bool
	Quiet           bool
	Shard           *Shard
	Timeout         time.Duration
	UpdateSnapshots UpdateSnapshotsMode
	Reporters       []string

	GlobalSetup    func() (func() error, error)
	GlobalTeardown func() error
}

// Merge applies CLI overrides on top of a loaded Config, returning a new
// FullConfigInternal. Neither input is mutated. Scalar overrides are applied
// only when the pointer is non-nil (false/0 are valid explicit overrides,
// matching the teacher's mergeProfile rule for bools), mirroring the
// teacher's config.mergeProfile "override wins when present" discipline.
func Merge(cfg *Config, overrides ConfigCLIOverrides) *FullConfigInternal {
	out := &FullConfigInternal{
		Projects:      applyProjectOverrides(cfg.Projects, overrides),
		Workers:       cfg.Workers,
		GlobalTimeout: cfg.GlobalTimeout,
		MaxFailures:   cfg.MaxFailures,
		Reporters:     cfg.Reporters,
		GlobalSetup:    cfg.GlobalSetup,
		GlobalTeardown: cfg.GlobalTeardown,
	}

	if overrides.Workers != nil {
		out.Workers = *overrides.Workers
	}
	if overrides.GlobalTimeout != nil {
		out.GlobalTimeout = *overrides.GlobalTimeout
	}
	if overrides.MaxFailures != nil {
		out.MaxFailures = *overrides.MaxFailures
	}
	if overrides.ForbidOnly != nil {
		out.ForbidOnly = *overrides.ForbidOnly
	}
	if overrides.Quiet != nil {
		out.Quiet = *overrides.Quiet
	}
	if overrides.Shard != nil {
		out.Shard = overrides.Shard
	}
	if overrides.Timeout != nil {
		out.Timeout = *overrides.Timeout
	}
	if overrides.UpdateSnapshots != nil {
		out.UpdateSnapshots = *overrides.UpdateSnapshots
	}
	if len(overrides.Reporter) > 0 {
		out.Reporters = overrides.Reporter
	}

	for _, p := range out.Projects {
		if overrides.FullyParallel != nil {
			p.FullyParallel = *overrides.FullyParallel
		}
		if overrides.RepeatEach != nil {
			p.RepeatEach = *overrides.RepeatEach
		}
		if overrides.Retries != nil {
			p.Retries = *overrides.Retries
		}
		if overrides.OutputDir != nil {
			p.OutputDir = *overrides.OutputDir
		}
	}

	return out
}

// applyProjectOverrides returns a shallow copy of projects with per-project
// fixture-parameter overrides merged in. The input slice and its elements
// are not mutated.
func applyProjectOverrides(projects []*Project, overrides ConfigCLIOverrides) []*Project {
	out := make([]*Project, len(projects))
	for i, p := range projects {
		clone := *p
		clone.FixtureParameters = cloneParams(p.FixtureParameters)
		out[i] = &clone
	}
	for _, po := range overrides.ProjectOverrides {
		for _, p := range out {
			if p.Name == po.Name {
				for k, v := range po.Use {
					if p.FixtureParameters == nil {
						p.FixtureParameters = map[string]any{}
					}
					p.FixtureParameters[k] = v
				}
			}
		}
	}
	return out
}

func cloneParams(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
