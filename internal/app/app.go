// Package app wires the orchestrator's independently-testable subsystems
// (file collector, suite builder, dispatcher, reporter registry) into one
// runnable pipeline, the way the teacher's internal/pipeline wires discovery,
// filtering, and rendering behind pipeline.Run.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/stagewright/stagewright/internal/collector"
	"github.com/stagewright/stagewright/internal/config"
	"github.com/stagewright/stagewright/internal/dispatcher"
	"github.com/stagewright/stagewright/internal/model"
	"github.com/stagewright/stagewright/internal/orchestrator"
	"github.com/stagewright/stagewright/internal/reporter"
	"github.com/stagewright/stagewright/internal/suitebuild"
)

// Request is everything a single CLI invocation needs to run.
type Request struct {
	ConfigPath string // result of config.ResolveConfigPath
	Options    model.RunOptions
	Overrides  model.ConfigCLIOverrides
}

// Run resolves a default configuration for ConfigPath (spec.md §1 places the
// real configuration loader out of scope; see loadDefaultConfig), applies
// CLI overrides, collects and compiles tests, and drives the orchestrator
// through to a FullResult.
func Run(ctx context.Context, req Request) (model.FullResult, error) {
	logger := config.NewLogger("app")

	cfg := loadDefaultConfig(req.ConfigPath)
	full := model.Merge(cfg, req.Overrides)

	projects, excluded, err := selectProjects(full.Projects, req.Options.ProjectFilter)
	if err != nil {
		return model.FullResult{}, model.NewError("project selection failed", err)
	}
	full.Projects = projects

	rep, err := buildReporter(full.Reporters, req.Options.ListOnly)
	if err != nil {
		return model.FullResult{}, model.NewError("building reporter", err)
	}

	filesByProject, err := collectFiles(ctx, projects, req.Options.TestFileFilters)
	if err != nil {
		return model.FullResult{}, model.NewError("collecting test files", err)
	}

	build, err := suitebuild.Build(ctx, suitebuild.BuildInput{
		Projects:       projects,
		FilesByProject: filesByProject,
		Loader:         defaultLoader{},
		Options:        req.Options,
		ForbidOnly:     full.ForbidOnly,
	})
	if err != nil {
		return model.FullResult{}, model.NewError("compiling test suites", err)
	}

	fatal := build.FatalErrors
	if !req.Options.PassWithNoTests && !req.Options.ListOnly && countTests(build.Root) == 0 {
		fatal = append(fatal, model.NewCollectionError("no tests found"))
	}

	logger.Debug("resolved run", "projects", len(projects), "fatal_errors", len(fatal))

	result := orchestrator.Run(ctx, orchestrator.RunInput{
		Config:      full,
		Options:     req.Options,
		Root:        build.Root,
		FatalErrors: fatal,
		Reporter:    rep,
		NewDispatcher: func(workers int, sink dispatcher.EventSink) dispatcher.Dispatcher {
			return dispatcher.NewLocal(workers, nil, sink)
		},
		ExcludedProjects: excluded,
	})
	return result, nil
}

// ProjectFiles is one project's entry in the list-files report (spec.md §6).
type ProjectFiles struct {
	Name    string
	TestDir string
	Files   []string
}

// ListFiles resolves projects and collects their matching files without
// compiling or running anything, for the `list-files` command's JSON
// report (spec.md §6's `{ projects: [{ docker, name, testDir, files }] }`
// shape; Docker itself is read directly from config.DockerInfo by the
// caller).
func ListFiles(ctx context.Context, req Request) ([]ProjectFiles, error) {
	cfg := loadDefaultConfig(req.ConfigPath)
	full := model.Merge(cfg, req.Overrides)

	projects, _, err := selectProjects(full.Projects, req.Options.ProjectFilter)
	if err != nil {
		return nil, fmt.Errorf("project selection failed: %w", err)
	}

	filesByProject, err := collectFiles(ctx, projects, req.Options.TestFileFilters)
	if err != nil {
		return nil, fmt.Errorf("collecting test files: %w", err)
	}

	out := make([]ProjectFiles, 0, len(projects))
	for _, p := range projects {
		abs, err := filepath.Abs(p.TestDir)
		if err != nil {
			abs = p.TestDir
		}
		out = append(out, ProjectFiles{Name: p.Name, TestDir: abs, Files: filesByProject[p.Name]})
	}
	return out, nil
}

// loadDefaultConfig stands in for the out-of-scope configuration loader
// (spec.md §1): a single project rooted at the resolved path (or its
// directory, when it names a file), matching every permitted-extension file
// under it. Real deployments would replace this with a loader that parses
// stagewright.config.ts/js/mjs; the orchestrator itself never needs to know
// the difference, since it only consumes the resulting model.Config.
func loadDefaultConfig(path string) *model.Config {
	root := path
	if root == "" {
		root = "."
	}
	if ext := filepath.Ext(root); ext != "" {
		root = filepath.Dir(root)
	}

	return &model.Config{
		Projects: []*model.Project{{
			Name:             "default",
			TestDir:          root,
			RespectGitIgnore: true,
			Run:              model.RunDefault,
			Stage:            0,
		}},
		Workers: runtime.NumCPU(),
	}
}

// selectProjects applies --project filtering (case-insensitive names, per
// spec.md §6), returning the kept projects and a lookup of the names
// filtered out (for CleanOutputDirs). An unknown project name is a
// configuration error that aborts before any reporting, per spec.md §7.
func selectProjects(projects []*model.Project, filter []string) ([]*model.Project, map[string]bool, error) {
	if len(filter) == 0 {
		return projects, map[string]bool{}, nil
	}

	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		wanted[strings.ToLower(name)] = false
	}

	var kept []*model.Project
	excluded := map[string]bool{}
	for _, p := range projects {
		if _, ok := wanted[strings.ToLower(p.Name)]; ok {
			wanted[strings.ToLower(p.Name)] = true
			kept = append(kept, p)
		} else {
			excluded[p.Name] = true
		}
	}

	var unknown []string
	for name, found := range wanted {
		if !found {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, fmt.Errorf("unknown project(s): %s", strings.Join(unknown, ", "))
	}

	return kept, excluded, nil
}

// collectFiles runs the gitignore-aware walker for every project and applies
// any CLI file-pattern filters (spec.md §6 TestFileFilter.FilePattern) on
// top of testMatch/testIgnore.
func collectFiles(ctx context.Context, projects []*model.Project, filters []model.TestFileFilter) (map[string][]string, error) {
	walker := collector.NewWalker()
	out := make(map[string][]string, len(projects))

	for _, p := range projects {
		matcher := collector.NewMatcher(p.TestMatch, p.TestIgnore)
		paths, err := walker.Walk(ctx, collector.WalkerConfig{
			Root:             p.TestDir,
			RespectGitIgnore: p.RespectGitIgnore,
			Matcher:          matcher,
		})
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.Name, err)
		}
		out[p.Name] = filterByFileArgs(p.TestDir, paths, filters)
	}
	return out, nil
}

func filterByFileArgs(root string, paths []string, filters []model.TestFileFilter) []string {
	if len(filters) == 0 {
		return paths
	}
	var kept []string
	for _, abs := range paths {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			rel = abs
		}
		for _, f := range filters {
			if collector.FileFilterMatches(f.FilePattern, rel) {
				kept = append(kept, abs)
				break
			}
		}
	}
	return kept
}

func buildReporter(names []string, listOnly bool) (reporter.Reporter, error) {
	if len(names) == 0 {
		names = []string{reporter.DefaultCIUnset}
	}

	var reps []reporter.Reporter
	for _, name := range names {
		if listOnly && (name == "list" || name == "line" || name == "dot") {
			reps = append(reps, reporter.NewListMode())
			continue
		}
		r, err := reporter.New(name, nil)
		if err != nil {
			return nil, err
		}
		reps = append(reps, r)
	}
	if len(reps) == 1 {
		return reps[0], nil
	}
	return reporter.NewMultiplexer(reps...), nil
}

func countTests(root *model.Suite) int {
	if root == nil {
		return 0
	}
	n := 0
	var walk func(s *model.Suite)
	walk = func(s *model.Suite) {
		for _, e := range s.Entries {
			switch v := e.(type) {
			case *model.TestCase:
				n++
			case *model.Suite:
				walk(v)
			}
		}
	}
	walk(root)
	return n
}

// defaultLoader stands in for the out-of-scope test file compiler (spec.md
// §1): it yields one synthetic test named after the file's base name. A
// real deployment replaces this with a loader that actually parses and
// evaluates test files; app.Run only depends on the suitebuild.Loader
// interface, not this implementation.
type defaultLoader struct{}

func (defaultLoader) Load(_ context.Context, path string) (*model.Suite, error) {
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	file := &model.Suite{Kind: model.KindFile, SourceFile: path}
	tc := &model.TestCase{
		Title:       title,
		RequireFile: path,
		WorkerHash:  path,
	}
	tc.Parent = file
	file.Entries = []model.Entry{tc}
	return file, nil
}
