// Package fileutil enumerates candidate media files for the catalog.
package fileutil

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"reelcat/internal/config"
	"reelcat/internal/logging"
	"reelcat/internal/services"
)

// Walker enumerates files under a root that look like catalog candidates:
// the extension is in the allow list and no ignore glob matches the path
// relative to the root.
type Walker struct {
	extensions     map[string]struct{}
	ignoreGlobs    []string
	recursive      bool
	followSymlinks bool
	logger         *slog.Logger
}

// NewWalker builds a Walker from scan configuration. Extensions are matched
// case-insensitively. logger may be nil.
func NewWalker(cfg *config.Config, logger *slog.Logger) *Walker {
	extensions := make(map[string]struct{}, len(cfg.Scan.Extensions))
	for _, ext := range cfg.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}
	return &Walker{
		extensions:     extensions,
		ignoreGlobs:    append([]string(nil), cfg.Scan.IgnoreGlobs...),
		recursive:      cfg.Scan.Recursive,
		followSymlinks: cfg.Scan.FollowSymlinks,
		logger:         logging.NewComponentLogger(logger, "walker"),
	}
}

// WalkFunc receives each candidate path with its file info. Returning an
// error stops the walk.
type WalkFunc func(path string, info fs.FileInfo) error

// Walk calls fn for every candidate under root. Directory symlinks are never
// followed; file symlinks are resolved only when follow_symlinks is set.
func (w *Walker) Walk(ctx context.Context, root string, fn WalkFunc) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return services.Wrap(services.ErrIO, "walker", "walk", "resolve root", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return services.Wrap(services.ErrIO, "walker", "walk", "stat root", err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "walker", "walk", root+" is not a directory", nil)
	}

	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// One unreadable entry must not abort the walk; skip it, the
			// rest of the tree is still worth visiting.
			w.logger.Warn("skipping unreadable entry",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relative, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relative = path
		}

		if entry.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			if w.ignored(relative + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !w.Candidate(path) || w.ignored(relative) {
			return nil
		}

		fileInfo, statErr := w.statEntry(path, entry)
		if statErr != nil {
			return statErr
		}
		if fileInfo == nil {
			return nil
		}
		return fn(path, fileInfo)
	})
}

// Candidate reports whether the path has an allowed media extension.
func (w *Walker) Candidate(path string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (w *Walker) ignored(relative string) bool {
	relative = filepath.ToSlash(relative)
	for _, glob := range w.ignoreGlobs {
		if matched, err := doublestar.Match(glob, relative); err == nil && matched {
			return true
		}
	}
	return false
}

// statEntry resolves the entry's file info. A nil info with nil error means
// the entry should be skipped: an unfollowed symlink, or a file that vanished
// mid-walk.
func (w *Walker) statEntry(path string, entry fs.DirEntry) (fs.FileInfo, error) {
	if entry.Type()&fs.ModeSymlink != 0 {
		if !w.followSymlinks {
			return nil, nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, nil
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil, nil
		}
		return info, nil
	}

	info, err := entry.Info()
	if err != nil {
		return nil, nil
	}
	return info, nil
}
