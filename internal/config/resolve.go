// Package config resolves the on-disk configuration path and binds the CLI
// flags that feed model.RunOptions / model.ConfigCLIOverrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// configFileNames are tried in order against a resolved directory.
var configFileNames = []string{
	"stagewright.config.ts",
	"stagewright.config.js",
	"stagewright.config.mjs",
}

// ResolveConfigPath implements spec.md §6's config file resolution: given a
// file, that file is the config; given a directory, the first of
// configFileNames that exists inside it is the config; if none exist, the
// directory is a bare testing root (empty string, no error). A non-existent
// path is an error.
//
// Unlike the teacher's DiscoverRepoConfig, this never walks toward a repo
// root — it only looks at the path it was given.
func ResolveConfigPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs path for %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("resolve config path %s: %w", path, err)
	}

	if !info.IsDir() {
		slog.Debug("config path is a file", "path", abs)
		return abs, nil
	}

	for _, name := range configFileNames {
		candidate := filepath.Join(abs, name)
		if _, statErr := os.Stat(candidate); statErr == nil {
			slog.Debug("resolved config in directory", "path", candidate)
			return candidate, nil
		}
	}

	slog.Debug("no config file in directory, treating as bare testing root", "dir", abs)
	return "", nil
}
