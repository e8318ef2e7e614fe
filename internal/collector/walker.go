package collector

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WalkerConfig configures one collection pass for a single project.
type WalkerConfig struct {
	// Root is the project's test directory.
	Root string

	// RespectGitIgnore enables the hierarchical .gitignore walk described in
	// spec.md §4.1. When false, Gitignore is never consulted.
	RespectGitIgnore bool

	// Matcher applies testMatch/testIgnore/extension filtering. Required.
	Matcher *Matcher

	// Concurrency bounds the parallel stat phase; defaults to
	// runtime.NumCPU() when <= 0.
	Concurrency int
}

// Walker is the gitignore-aware directory walker described in spec.md §4.1.
// Grounded on the teacher's discovery.Walker.Walk two-phase structure: a
// depth-first filepath.WalkDir pass collects candidate paths, then a
// bounded-concurrency errgroup phase stats each candidate so large trees
// don't serialize on I/O.
type Walker struct {
	logger *slog.Logger
}

func NewWalker() *Walker {
	return &Walker{logger: slog.Default().With("component", "collector")}
}

// Walk returns the ordered list of absolute file paths under cfg.Root that
// pass gitignore and matcher filtering. Entries are visited in
// lexicographic order by name (filepath.WalkDir's native order) and the
// result is additionally sorted by relative path for determinism.
func (w *Walker) Walk(ctx context.Context, cfg WalkerConfig) ([]string, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", cfg.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	var gi Ignorer = noopIgnorer{}
	if cfg.RespectGitIgnore {
		gi, err = NewGitignoreMatcher(root)
		if err != nil {
			return nil, fmt.Errorf("loading gitignore rules under %s: %w", root, err)
		}
	}

	type candidate struct {
		relPath string
		absPath string
	}
	var candidates []candidate
	var mu sync.Mutex

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if walkErr != nil {
			w.logger.Debug("walk error", "path", p, "error", walkErr)
			return nil
		}

		relPath, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return nil
		}

		isDir := d.IsDir()

		if isDir && d.Name() == ".git" {
			return fs.SkipDir
		}
		if isDir && d.Name() == "node_modules" {
			return fs.SkipDir
		}

		if !isDir && d.Name() == ".gitignore" {
			return nil
		}

		switch gi.Status(relPath, isDir) {
		case StatusIgnored:
			if isDir {
				return fs.SkipDir
			}
			return nil
		case StatusIgnoredButRecurse:
			if isDir {
				return nil // descend, but the directory itself is never emitted anyway.
			}
			// A file cannot be "ignored but recurse"; treat as ignored.
			return nil
		}

		if isDir {
			return nil
		}

		mu.Lock()
		candidates = append(candidates, candidate{relPath: relPath, absPath: p})
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking directory %s: %w", root, walkErr)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].relPath < candidates[j].relPath })

	// Bounded-concurrency existence/regular-file check, mirroring the
	// teacher's errgroup content-loading phase. Collection itself needs no
	// file content, only confirmation the entry is a regular file (symlinks
	// to directories, FIFOs, etc. are excluded).
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	kept := make([]bool, len(candidates))
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			fi, statErr := os.Stat(c.absPath)
			if statErr != nil {
				w.logger.Debug("stat error", "path", c.relPath, "error", statErr)
				return nil
			}
			kept[i] = fi.Mode().IsRegular()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("verifying candidate files: %w", err)
	}

	var out []string
	for i, c := range candidates {
		if !kept[i] {
			continue
		}
		if cfg.Matcher != nil && !cfg.Matcher.Matches(c.relPath) {
			continue
		}
		out = append(out, c.absPath)
	}

	w.logger.Debug("collection complete", "root", root, "files", len(out))
	return out, nil
}

type noopIgnorer struct{}

func (noopIgnorer) Status(string, bool) Status { return StatusIncluded }

var _ Ignorer = noopIgnorer{}
