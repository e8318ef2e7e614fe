// Package collector implements the gitignore-aware file walker that forms
// stage (a) of the orchestrator pipeline: discovering candidate test files
// under a project's test directory.
package collector

import (
	"bufio"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// rule is one compiled line from a .gitignore file.
type rule struct {
	pattern  string // pattern text, leading "!" and trailing "/" stripped
	negate   bool
	dirOnly  bool
	anchored bool // pattern contained a "/" other than a trailing dirOnly marker
	baseDir  string
}

// literalPrefix returns the portion of the pattern before its first glob
// metacharacter, used by the ignored-but-recurse heuristic to test whether a
// negation rule's target falls under a given directory.
func (r rule) literalPrefix() string {
	idx := strings.IndexAny(r.pattern, "*?[")
	text := r.pattern
	if idx >= 0 {
		text = r.pattern[:idx]
	}
	text = strings.TrimSuffix(text, "/")
	if r.baseDir == "." || r.baseDir == "" {
		return text
	}
	return path.Join(r.baseDir, text)
}

// GitignoreMatcher loads .gitignore files hierarchically under a root
// directory and evaluates the tri-state status described in spec.md §4.1.
//
// Unlike a boolean ignore library, GitignoreMatcher keeps the parsed rule
// table (pattern, polarity, scope) so that the ignored-but-recurse special
// case -- a directory that would be ignored outright, except a deeper
// re-include rule targets one of its descendants -- can be detected. See
// DESIGN.md for why a prebuilt matcher library could not serve this need.
type GitignoreMatcher struct {
	root        string
	rulesByDir  map[string][]rule // rules defined AT this directory (not inherited)
	hasAnyRules bool
	logger      *slog.Logger

	effectiveCache map[string][]rule
}

// NewGitignoreMatcher walks rootDir, compiling every .gitignore file found.
// A missing or unreadable .gitignore at any level is logged and skipped
// without error; if no .gitignore exists anywhere, Status always reports
// StatusIncluded.
func NewGitignoreMatcher(rootDir string) (*GitignoreMatcher, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root path %s: %w", rootDir, err)
	}

	m := &GitignoreMatcher{
		root:           absRoot,
		rulesByDir:     make(map[string][]rule),
		logger:         slog.Default().With("component", "gitignore"),
		effectiveCache: make(map[string][]rule),
	}

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			m.logger.Debug("skipping unreadable path", "path", p, "error", walkErr)
			return filepath.SkipDir
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() && d.Name() == "node_modules" {
			return filepath.SkipDir
		}
		if d.IsDir() || d.Name() != ".gitignore" {
			return nil
		}

		dir := filepath.Dir(p)
		relDir, relErr := filepath.Rel(absRoot, dir)
		if relErr != nil {
			return nil
		}
		relDir = filepath.ToSlash(relDir)
		if relDir == "" {
			relDir = "."
		}

		rules, parseErr := parseGitignoreFile(p, relDir)
		if parseErr != nil {
			m.logger.Debug("skipping unreadable .gitignore", "path", p, "error", parseErr)
			return nil
		}
		if len(rules) > 0 {
			m.rulesByDir[relDir] = rules
			m.hasAnyRules = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory tree: %w", err)
	}

	return m, nil
}

func parseGitignoreFile(path, baseDir string) ([]rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rules []rule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		r := rule{baseDir: baseDir}
		text := trimmed
		if strings.HasPrefix(text, "!") {
			r.negate = true
			text = text[1:]
		}
		if strings.HasPrefix(text, "/") {
			r.anchored = true
			text = text[1:]
		}
		if strings.HasSuffix(text, "/") {
			r.dirOnly = true
			text = strings.TrimSuffix(text, "/")
		}
		if strings.Contains(text, "/") {
			r.anchored = true
		}
		r.pattern = text
		rules = append(rules, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// effectiveRules returns every rule that applies within dirRelPath, in
// root-to-leaf, top-to-bottom order: a deeper .gitignore's rules are
// appended after its ancestors', so they take precedence, matching real
// gitignore semantics and spec.md's "appended to the inherited rule list".
func (m *GitignoreMatcher) effectiveRules(dirRelPath string) []rule {
	if cached, ok := m.effectiveCache[dirRelPath]; ok {
		return cached
	}

	var chain []string
	if dirRelPath == "." || dirRelPath == "" {
		chain = []string{"."}
	} else {
		parts := strings.Split(dirRelPath, "/")
		cur := ""
		chain = append(chain, ".")
		for _, part := range parts {
			if cur == "" {
				cur = part
			} else {
				cur = cur + "/" + part
			}
			chain = append(chain, cur)
		}
	}

	var out []rule
	for _, dir := range chain {
		out = append(out, m.rulesByDir[dir]...)
	}
	m.effectiveCache[dirRelPath] = out
	return out
}

// Status implements Ignorer.
func (m *GitignoreMatcher) Status(relPath string, isDir bool) Status {
	if !m.hasAnyRules {
		return StatusIncluded
	}
	relPath = filepath.ToSlash(relPath)
	relPath = strings.TrimPrefix(relPath, "./")
	if relPath == "" || relPath == "." {
		return StatusIncluded
	}

	dir := path.Dir(relPath)
	if dir == "." && !strings.Contains(relPath, "/") {
		dir = "."
	}
	rules := m.effectiveRules(dir)

	status := StatusIncluded
	for _, r := range rules {
		if !ruleApplies(r, relPath, isDir) {
			continue
		}
		if !r.negate && status == StatusIncluded {
			status = StatusIgnored
		} else if r.negate && status == StatusIgnored {
			status = StatusIncluded
		}
	}

	if status == StatusIgnored && isDir {
		if hasDescendantReinclude(rules, relPath) {
			return StatusIgnoredButRecurse
		}
	}
	return status
}

// ruleApplies reports whether rule r matches the given entry. It tries the
// entry's path relative to the rule's defining directory, with and without
// a leading slash, and -- for directories -- with a trailing slash, per
// spec.md §4.1. A dirOnly rule additionally applies to every descendant of
// the directory it names (a file never directly matches a dirOnly pattern,
// but it inherits exclusion from an ignored ancestor directory), so that
// exclusion propagates down the tree until a deeper rule re-includes it.
func ruleApplies(r rule, entryRelPath string, isDir bool) bool {
	if r.baseDir != "." && r.baseDir != "" {
		prefix := r.baseDir + "/"
		if !strings.HasPrefix(entryRelPath, prefix) {
			return false
		}
		entryRelPath = strings.TrimPrefix(entryRelPath, prefix)
	}

	if r.dirOnly {
		return dirRuleMatchesEntry(r, entryRelPath, isDir)
	}

	candidates := []string{entryRelPath, "/" + entryRelPath}
	for _, cand := range candidates {
		cand = strings.TrimPrefix(cand, "/")
		if matchGlob(r.pattern, cand, r.anchored) {
			return true
		}
	}
	return false
}

// dirRuleMatchesEntry reports whether a dirOnly rule matches entryRelPath
// (already relative to the rule's baseDir): either entryRelPath itself names
// the matching directory, or entryRelPath is nested somewhere beneath a
// directory that matches the rule's pattern. Non-directory entries are
// tested only against their ancestor directories, never against their own
// name, since a dirOnly pattern can never match a file directly.
func dirRuleMatchesEntry(r rule, entryRelPath string, isDir bool) bool {
	parts := strings.Split(entryRelPath, "/")
	limit := len(parts)
	if !isDir {
		limit--
	}

	prefix := ""
	for i := 0; i < limit; i++ {
		if prefix == "" {
			prefix = parts[i]
		} else {
			prefix = prefix + "/" + parts[i]
		}

		candidates := []string{prefix, "/" + prefix, prefix + "/", "/" + prefix + "/"}
		for _, cand := range candidates {
			cand = strings.TrimPrefix(cand, "/")
			if matchGlob(r.pattern, cand, r.anchored) {
				return true
			}
		}
	}
	return false
}

func matchGlob(pattern, candidate string, anchored bool) bool {
	if anchored {
		ok, _ := doublestar.Match(pattern, candidate)
		return ok
	}
	if ok, _ := doublestar.Match(pattern, candidate); ok {
		return true
	}
	ok, _ := doublestar.Match("**/"+pattern, candidate)
	return ok
}

// hasDescendantReinclude reports whether any negation rule in rules targets
// a path under dirRelPath, implementing the "ignored-but-recurse" special
// case from spec.md §4.1.
func hasDescendantReinclude(rules []rule, dirRelPath string) bool {
	prefix := dirRelPath + "/"
	for _, r := range rules {
		if !r.negate {
			continue
		}
		target := r.literalPrefix()
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

var _ Ignorer = (*GitignoreMatcher)(nil)

// sortedKeys is a small test/debug helper exposing which directories carry
// their own .gitignore file.
func (m *GitignoreMatcher) sortedKeys() []string {
	keys := make([]string, 0, len(m.rulesByDir))
	for k := range m.rulesByDir {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
