package fileutil_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"reelcat/internal/fileutil"
	"reelcat/internal/testsupport"
)

func collect(t *testing.T, walker *fileutil.Walker, root string) []string {
	t.Helper()
	var paths []string
	err := walker.Walk(context.Background(), root, func(path string, _ fs.FileInfo) error {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	sort.Strings(paths)
	return paths
}

func TestWalkFiltersByExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "clip.mkv"), 64, 1)
	testsupport.WriteFile(t, filepath.Join(root, "clip.MP4"), 64, 2)
	testsupport.WriteFile(t, filepath.Join(root, "notes.txt"), 64, 3)
	testsupport.WriteFile(t, filepath.Join(root, "nested", "deep.mov"), 64, 4)

	walker := fileutil.NewWalker(cfg, nil)
	got := collect(t, walker, root)
	want := []string{"clip.MP4", "clip.mkv", "nested/deep.mov"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestWalkHonorsIgnoreGlobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scan.IgnoreGlobs = []string{"**/proxy/**", "*.tmp.mkv"}
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "keep.mkv"), 64, 1)
	testsupport.WriteFile(t, filepath.Join(root, "render.tmp.mkv"), 64, 2)
	testsupport.WriteFile(t, filepath.Join(root, "edit", "proxy", "low.mkv"), 64, 3)

	walker := fileutil.NewWalker(cfg, nil)
	got := collect(t, walker, root)
	if len(got) != 1 || got[0] != "keep.mkv" {
		t.Fatalf("expected only keep.mkv, got %v", got)
	}
}

func TestWalkNonRecursiveStaysAtTopLevel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scan.Recursive = false
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "top.mkv"), 64, 1)
	testsupport.WriteFile(t, filepath.Join(root, "nested", "deep.mkv"), 64, 2)

	walker := fileutil.NewWalker(cfg, nil)
	got := collect(t, walker, root)
	if len(got) != 1 || got[0] != "top.mkv" {
		t.Fatalf("expected only top.mkv, got %v", got)
	}
}

func TestWalkSymlinkHandling(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks not reliable on windows")
	}
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.mkv")
	testsupport.WriteFile(t, target, 64, 1)
	link := filepath.Join(root, "link.mkv")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	walker := fileutil.NewWalker(cfg, nil)
	if got := collect(t, walker, root); len(got) != 0 {
		t.Fatalf("symlinks should be skipped by default, got %v", got)
	}

	cfg.Scan.FollowSymlinks = true
	walker = fileutil.NewWalker(cfg, nil)
	got := collect(t, walker, root)
	if len(got) != 1 || got[0] != "link.mkv" {
		t.Fatalf("expected followed symlink, got %v", got)
	}
}

func TestWalkContinuesPastUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a-open.mkv"), 64, 1)
	testsupport.WriteFile(t, filepath.Join(root, "locked", "hidden.mkv"), 64, 2)
	testsupport.WriteFile(t, filepath.Join(root, "z-open.mkv"), 64, 3)

	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	walker := fileutil.NewWalker(cfg, nil)
	got := collect(t, walker, root)
	want := []string{"a-open.mkv", "z-open.mkv"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected readable files despite locked dir, got %v", got)
	}
}

func TestWalkRejectsFileRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	file := filepath.Join(t.TempDir(), "clip.mkv")
	testsupport.WriteFile(t, file, 64, 1)

	walker := fileutil.NewWalker(cfg, nil)
	err := walker.Walk(context.Background(), file, func(string, fs.FileInfo) error { return nil })
	if err == nil {
		t.Fatal("expected error for file root")
	}
}
