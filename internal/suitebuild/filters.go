package suitebuild

import (
	"strings"

	"github.com/stagewright/stagewright/internal/collector"
	"github.com/stagewright/stagewright/internal/model"
)

// filterFocusedLine retains, within each preprocess file suite, only
// suites/tests whose location matches at least one file filter that
// specifies a line and/or column and whose file pattern matches. When no filter
// specifies a line or column, every file suite is left untouched
// (spec.md §4.2 step 2: "if any CLI file filter specifies a line or
// column").
func filterFocusedLine(preprocess map[string]*model.Suite, filters []model.TestFileFilter) {
	var focused []model.TestFileFilter
	for _, f := range filters {
		if f.Line != nil || f.Column != nil {
			focused = append(focused, f)
		}
	}
	if len(focused) == 0 {
		return
	}

	for path, fileSuite := range preprocess {
		matches := false
		for _, f := range focused {
			if collector.FileFilterMatches(f.FilePattern, path) {
				matches = true
				break
			}
		}
		if !matches {
			preprocess[path] = emptyFileSuite(fileSuite)
			continue
		}
		preprocess[path] = pruneSuite(fileSuite, func(loc model.Location) bool {
			for _, f := range focused {
				if !collector.FileFilterMatches(f.FilePattern, path) {
					continue
				}
				if f.Line != nil && *f.Line != loc.Line {
					continue
				}
				if f.Column != nil && *f.Column != loc.Column {
					continue
				}
				return true
			}
			return false
		})
	}
}

func emptyFileSuite(base *model.Suite) *model.Suite {
	clone := *base
	clone.Entries = nil
	return &clone
}

// pruneSuite rebuilds the suite tree bottom-up, keeping only TestCase leaves
// for which keep returns true (and describe suites that retain at least one
// kept descendant), preserving source order throughout.
func pruneSuite(s *model.Suite, keep func(model.Location) bool) *model.Suite {
	clone := *s
	clone.Entries = nil
	for _, e := range s.Entries {
		switch v := e.(type) {
		case *model.TestCase:
			if v.Location != (model.Location{}) && !keep(v.Location) {
				continue
			}
			if v.Location == (model.Location{}) {
				continue
			}
			tc := *v
			tc.Parent = &clone
			clone.Entries = append(clone.Entries, &tc)
		case *model.Suite:
			child := pruneSuite(v, keep)
			child.Parent = &clone
			if len(child.Entries) > 0 {
				clone.Entries = append(clone.Entries, child)
			}
		}
	}
	return &clone
}

// checkForbidOnly reports a fatal error listing every suite/test that still
// carries an `only` marker.
func checkForbidOnly(preprocess map[string]*model.Suite) []*model.CollectionError {
	var offenders []string
	for path, fileSuite := range preprocess {
		for _, s := range fileSuite.AllSuites() {
			if s.Only {
				offenders = append(offenders, path+": "+s.TitlePath())
			}
		}
		for _, t := range fileSuite.AllTests() {
			if t.Only {
				offenders = append(offenders, path+": "+t.FullTitle())
			}
		}
	}
	if len(offenders) == 0 {
		return nil
	}
	return []*model.CollectionError{
		model.NewCollectionError("forbidOnly violated by: %s", strings.Join(offenders, ", ")),
	}
}

// filterOnly implements the bottom-up only-semantics filter from spec.md
// §4.2 step 4: a suite is retained if it directly has `only`, contains a
// descendant with `only`, or matches `only` criteria itself; within a
// retained suite, non-only siblings are pruned. If nothing in the file has
// `only` set, the file suite is returned unchanged; Build empties such a
// file instead when any other file in the stage carries an `only` marker.
func filterOnly(fileSuite *model.Suite) *model.Suite {
	if !hasAnyOnly(fileSuite) {
		return fileSuite
	}
	pruned, _ := filterOnlyRec(fileSuite)
	return pruned
}

func hasAnyOnly(s *model.Suite) bool {
	if s.Only {
		return true
	}
	for _, e := range s.Entries {
		switch v := e.(type) {
		case *model.TestCase:
			if v.Only {
				return true
			}
		case *model.Suite:
			if hasAnyOnly(v) {
				return true
			}
		}
	}
	return false
}

// filterOnlyRec returns the filtered suite and whether it (or a descendant)
// carries `only`.
func filterOnlyRec(s *model.Suite) (*model.Suite, bool) {
	clone := *s
	clone.Entries = nil
	selfOnly := s.Only
	anyDescendantOnly := false

	for _, e := range s.Entries {
		switch v := e.(type) {
		case *model.TestCase:
			if v.Only || selfOnly {
				tc := *v
				tc.Parent = &clone
				clone.Entries = append(clone.Entries, &tc)
				if v.Only {
					anyDescendantOnly = true
				}
			}
		case *model.Suite:
			child, childHasOnly := filterOnlyRec(v)
			if childHasOnly || selfOnly {
				child.Parent = &clone
				clone.Entries = append(clone.Entries, child)
			}
			if childHasOnly {
				anyDescendantOnly = true
			}
		}
	}

	if selfOnly && !anyDescendantOnly {
		// `only` on this suite alone: keep every direct child as-is
		// (already handled above via the selfOnly branch, which retains
		// every entry unconditionally), nothing further to do.
	}

	return &clone, selfOnly || anyDescendantOnly
}

// cloneFileSuite deep-clones a preprocess file suite under projectSuite,
// stamping each TestCase with its project/repeat identity and refreshing
// parent back-references, per the "cyclic references" design note.
func cloneFileSuite(base *model.Suite, projectSuite *model.Suite, project *model.Project, repeatEachIndex int) *model.Suite {
	clone := cloneSuiteRec(base, nil, project, repeatEachIndex)
	clone.Parent = projectSuite
	return clone
}

func cloneSuiteRec(s *model.Suite, parent *model.Suite, project *model.Project, repeatEachIndex int) *model.Suite {
	clone := *s
	clone.Parent = parent
	clone.Entries = nil
	for _, e := range s.Entries {
		switch v := e.(type) {
		case *model.TestCase:
			tc := *v
			tc.Parent = &clone
			tc.ProjectID = project.Name
			tc.RepeatEachIndex = repeatEachIndex
			tc.RequireFile = s.SourceFile
			if tc.RequireFile == "" {
				tc.RequireFile = base0(&clone)
			}
			tc.WorkerHash = project.Name
			tc.Attempts = nil
			clone.Entries = append(clone.Entries, &tc)
		case *model.Suite:
			child := cloneSuiteRec(v, &clone, project, repeatEachIndex)
			clone.Entries = append(clone.Entries, child)
		}
	}
	return &clone
}

// base0 walks up to find the owning file suite's SourceFile when a nested
// TestCase's RequireFile was not already set by its immediate parent.
func base0(s *model.Suite) string {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == model.KindFile && cur.SourceFile != "" {
			return cur.SourceFile
		}
	}
	return ""
}

// filterTestsByGrepAndTitle prunes clone in place (via pruneSuite-style
// reconstruction) to admit only tests whose full title matches project.Grep,
// does not match project.GrepInvert, and is accepted by titleMatcher.
func filterTestsByGrepAndTitle(clone *model.Suite, project *model.Project, titleMatcher func(string) bool) {
	filtered := filterTestsRec(clone, project, titleMatcher)
	clone.Entries = filtered.Entries
}

func filterTestsRec(s *model.Suite, project *model.Project, titleMatcher func(string) bool) *model.Suite {
	out := *s
	out.Entries = nil
	for _, e := range s.Entries {
		switch v := e.(type) {
		case *model.TestCase:
			if testAdmitted(v, project, titleMatcher) {
				out.Entries = append(out.Entries, v)
			}
		case *model.Suite:
			child := filterTestsRec(v, project, titleMatcher)
			if len(child.Entries) > 0 {
				out.Entries = append(out.Entries, child)
			}
		}
	}
	return &out
}

func testAdmitted(t *model.TestCase, project *model.Project, titleMatcher func(string) bool) bool {
	full := t.FullTitle()
	if project.Grep != "" && !strings.Contains(full, project.Grep) {
		return false
	}
	if project.GrepInvert != "" && strings.Contains(full, project.GrepInvert) {
		return false
	}
	if titleMatcher != nil && !titleMatcher(full) {
		return false
	}
	return true
}
