package collector

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions lists the permitted test-file extensions applied after
// testMatch/testIgnore, per spec.md §4.1.
var DefaultExtensions = []string{".js", ".ts", ".mjs", ".tsx", ".jsx"}

// Matcher applies a project's testMatch/testIgnore glob patterns plus the
// permitted-extension allowlist to a candidate file path. Grounded on the
// teacher's discovery.PatternFilter, which uses the same
// bmatcuk/doublestar/v4 glob engine for include/exclude/extension matching.
type Matcher struct {
	testMatch  []string
	testIgnore []string
}

// NewMatcher builds a Matcher from a project's testMatch/testIgnore
// patterns. An empty testMatch list matches every file (subject to the
// extension allowlist and testIgnore).
func NewMatcher(testMatch, testIgnore []string) *Matcher {
	return &Matcher{testMatch: testMatch, testIgnore: testIgnore}
}

// Matches reports whether relPath should be collected for this project.
func (m *Matcher) Matches(relPath string) bool {
	normalized := filepath.ToSlash(relPath)
	normalized = strings.TrimPrefix(normalized, "./")
	if normalized == "" {
		return false
	}

	for _, pattern := range m.testIgnore {
		if globMatch(pattern, normalized) {
			return false
		}
	}

	if !hasPermittedExtension(normalized) {
		return false
	}

	if len(m.testMatch) == 0 {
		return true
	}
	for _, pattern := range m.testMatch {
		if globMatch(pattern, normalized) {
			return true
		}
	}
	return false
}

func hasPermittedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range DefaultExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// globMatch matches a doublestar pattern, trying both an exact match and a
// matchBase-style "**/pattern" match so that extensionless patterns like
// "*.spec.ts" match at any depth, mirroring real-world testMatch usage.
func globMatch(pattern, candidate string) bool {
	if ok, _ := doublestar.Match(pattern, candidate); ok {
		return true
	}
	if strings.Contains(pattern, "/") {
		return false
	}
	ok, _ := doublestar.Match("**/"+pattern, candidate)
	return ok
}

// FileFilterMatches applies CLI --grep-like file filters (spec.md §6
// TestFileFilter), matching a candidate path against a filePattern glob.
func FileFilterMatches(filePattern, relPath string) bool {
	normalized := filepath.ToSlash(relPath)
	return globMatch(filePattern, normalized)
}
