// Package suitebuild compiles test files into a suite tree and applies the
// ordered filter pipeline described in spec.md §4.2: duplicate-title
// detection, focused-line filtering, forbid-only, only-semantics, and
// per-project repeatEach cloning with grep/grepInvert/title matching.
package suitebuild

import (
	"context"

	"github.com/stagewright/stagewright/internal/model"
)

// Loader is the interface boundary to the (external, out-of-scope) test
// file compiler: given a path, it loads the file and yields a suite
// subtree of kind model.KindFile.
type Loader interface {
	Load(ctx context.Context, path string) (*model.Suite, error)
}

// BuildInput describes one stage's worth of files to compile.
type BuildInput struct {
	// Projects are the projects active in this stage.
	Projects []*model.Project

	// FilesByProject maps each project's Name to the absolute file paths
	// the file collector matched for it. The same path may appear under
	// multiple projects; it is loaded at most once.
	FilesByProject map[string][]string

	Loader Loader

	Options model.RunOptions

	// ForbidOnly, when true, turns any remaining `only` marker into a
	// fatal error instead of a focus filter.
	ForbidOnly bool
}

// BuildResult is the outcome of compiling and filtering one stage.
type BuildResult struct {
	Root *model.Suite

	// FatalErrors are collection-phase failures (spec.md §7): file load
	// errors, duplicate titles, forbidden only, or (when accumulated by the
	// caller after Build returns) "no tests found". They abort dispatch but
	// are still reported through the normal reporter channel, not returned
	// as a Go error from Build.
	FatalErrors []*model.CollectionError
}

// Build compiles every unique file referenced in input.FilesByProject
// exactly once, applies the ordered suite-level filters, then clones each
// filtered file suite per project × repeatEach index with grep/title
// matching.
func Build(ctx context.Context, input BuildInput) (*BuildResult, error) {
	result := &BuildResult{Root: &model.Suite{Kind: model.KindRoot}}

	preprocess, loadErrs := loadUnique(ctx, input)
	result.FatalErrors = append(result.FatalErrors, loadErrs...)

	for _, fileSuite := range preprocess {
		if errs := checkDuplicateTitles(fileSuite); len(errs) > 0 {
			result.FatalErrors = append(result.FatalErrors, errs...)
		}
	}

	filterFocusedLine(preprocess, input.Options.TestFileFilters)

	if input.ForbidOnly {
		if errs := checkForbidOnly(preprocess); len(errs) > 0 {
			result.FatalErrors = append(result.FatalErrors, errs...)
		}
	}

	if !input.Options.ListOnly {
		anyOnly := false
		for _, fileSuite := range preprocess {
			if hasAnyOnly(fileSuite) {
				anyOnly = true
				break
			}
		}
		if anyOnly {
			for path, fileSuite := range preprocess {
				if hasAnyOnly(fileSuite) {
					preprocess[path] = filterOnly(fileSuite)
				} else {
					preprocess[path] = emptyFileSuite(fileSuite)
				}
			}
		}
	}

	for _, project := range input.Projects {
		projectSuite := &model.Suite{Kind: model.KindProject, Title: project.Name, Project: project, Parent: result.Root}
		result.Root.Entries = append(result.Root.Entries, projectSuite)

		repeatEach := project.RepeatEach
		if repeatEach <= 0 {
			repeatEach = 1
		}

		for _, path := range input.FilesByProject[project.Name] {
			base, ok := preprocess[path]
			if !ok || base == nil {
				continue
			}
			for idx := 0; idx < repeatEach; idx++ {
				clone := cloneFileSuite(base, projectSuite, project, idx)
				filterTestsByGrepAndTitle(clone, project, input.Options.TestTitleMatcher)
				if len(clone.Entries) > 0 || len(clone.AllTests()) > 0 {
					projectSuite.Entries = append(projectSuite.Entries, clone)
				}
			}
		}
	}

	return result, nil
}

func loadUnique(ctx context.Context, input BuildInput) (map[string]*model.Suite, []*model.CollectionError) {
	out := make(map[string]*model.Suite)
	var errs []*model.CollectionError

	seen := make(map[string]bool)
	var ordered []string
	for _, project := range input.Projects {
		for _, path := range input.FilesByProject[project.Name] {
			if !seen[path] {
				seen[path] = true
				ordered = append(ordered, path)
			}
		}
	}

	for _, path := range ordered {
		suite, err := input.Loader.Load(ctx, path)
		if err != nil {
			errs = append(errs, model.NewCollectionError("failed to load %s: %v", path, err))
			continue
		}
		suite.Kind = model.KindFile
		suite.SourceFile = path
		out[path] = suite
	}
	return out, errs
}

func checkDuplicateTitles(fileSuite *model.Suite) []*model.CollectionError {
	seen := make(map[string]bool)
	var errs []*model.CollectionError
	for _, s := range fileSuite.AllSuites() {
		if s.Kind == model.KindRoot || s.Kind == model.KindFile || s.Kind == model.KindProject {
			continue
		}
		path := s.TitlePath()
		if path == "" {
			continue
		}
		if seen[path] {
			errs = append(errs, model.NewCollectionError("duplicate title %q in %s", path, fileSuite.SourceFile))
		}
		seen[path] = true
	}
	for _, t := range fileSuite.AllTests() {
		path := t.Parent.TitlePath()
		full := path
		if full != "" {
			full += " › " + t.Title
		} else {
			full = t.Title
		}
		if seen[full] {
			errs = append(errs, model.NewCollectionError("duplicate title %q in %s", full, fileSuite.SourceFile))
		}
		seen[full] = true
	}
	return errs
}
