package orchestrator

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/stagewright/stagewright/internal/model"
)

// CleanOutputDirs best-effort-removes each non-filtered project's
// OutputDir (spec.md §4.8). excludedProjects names projects the user
// filtered out via --project, which are skipped entirely. A "directory
// busy" removal failure (typical of bind-mounted volumes) falls back to
// removing the directory's immediate children instead of the directory
// itself; any other error fails the run.
func CleanOutputDirs(projects []*model.Project, excludedProjects map[string]bool) error {
	for _, p := range projects {
		if excludedProjects[p.Name] || p.OutputDir == "" {
			continue
		}
		if err := removeDir(p.OutputDir); err != nil {
			return err
		}
	}
	return nil
}

func removeDir(dir string) error {
	err := os.RemoveAll(dir)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EBUSY) {
		return err
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		return readErr
	}
	for _, e := range entries {
		if rmErr := os.RemoveAll(filepath.Join(dir, e.Name())); rmErr != nil {
			return rmErr
		}
	}
	return nil
}
