package indexer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reelcat/internal/catalog"
	"reelcat/internal/indexer"
	"reelcat/internal/testsupport"
)

// drainScan consumes the result stream and returns the summary.
func drainScan(t *testing.T, ix *indexer.Indexer, ctx context.Context, root string) (*indexer.Summary, []indexer.Result) {
	t.Helper()
	run, err := ix.Scan(ctx, root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	var results []indexer.Result
	for res := range run.Results() {
		results = append(results, res)
	}
	summary, err := run.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return summary, results
}

func TestScanIndexesCandidatesAndRecordsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(4))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ix := indexer.New(cfg, store, &countingAnalyzer{tags: []string{"scan"}}, nil)

	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.mkv"), 4096, 1)
	testsupport.WriteFile(t, filepath.Join(root, "b.mp4"), 4096, 2)
	testsupport.WriteFile(t, filepath.Join(root, "nested", "c.mov"), 4096, 3)
	testsupport.WriteFile(t, filepath.Join(root, "readme.txt"), 64, 4)

	summary, results := drainScan(t, ix, ctx, root)
	if summary.Processed != 3 || summary.Skipped != 0 || summary.Errors != 0 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 streamed results, got %d", len(results))
	}
	for _, res := range results {
		if res.Err != nil || res.Skipped || res.Outcome == nil {
			t.Fatalf("unexpected result for %s: %#v", res.Path, res)
		}
	}

	scans, err := store.Scans(ctx, 10)
	if err != nil {
		t.Fatalf("Scans: %v", err)
	}
	if len(scans) != 1 || scans[0].ID != summary.ID {
		t.Fatalf("expected recorded scan %s, got %#v", summary.ID, scans)
	}
	if scans[0].Processed != 3 || scans[0].FinishedAt == nil {
		t.Fatalf("unexpected scan record: %#v", scans[0])
	}
}

func TestScanSkipsUnchangedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ix := indexer.New(cfg, store, nil, nil)

	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.mkv"), 4096, 1)
	testsupport.WriteFile(t, filepath.Join(root, "b.mkv"), 4096, 2)

	first, _ := drainScan(t, ix, ctx, root)
	if first.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", first.Processed)
	}

	second, results := drainScan(t, ix, ctx, root)
	if second.Processed != 0 || second.Skipped != 2 {
		t.Fatalf("expected all files skipped on rescan, got %#v", second)
	}
	for _, res := range results {
		if !res.Skipped || res.Outcome != nil {
			t.Fatalf("expected skipped result for %s: %#v", res.Path, res)
		}
	}

	// Touching the bytes makes the file a candidate again.
	testsupport.WriteFile(t, filepath.Join(root, "a.mkv"), 8192, 9)
	third, _ := drainScan(t, ix, ctx, root)
	if third.Processed != 1 || third.Skipped != 1 {
		t.Fatalf("expected one reprocessed file, got %#v", third)
	}
}

func TestScanPrunesRenamedAwayPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ix := indexer.New(cfg, store, nil, nil)

	root := t.TempDir()
	p1 := filepath.Join(root, "p1.mkv")
	p2 := filepath.Join(root, "p2.mkv")
	testsupport.WriteFile(t, p1, 4096, 7)
	testsupport.WriteFile(t, p2, 4096, 7)

	first, _ := drainScan(t, ix, ctx, root)
	if first.Processed != 2 {
		t.Fatalf("expected 2 processed, got %#v", first)
	}

	// A rename with no content change must move the binding, not add one.
	p3 := filepath.Join(root, "p3.mkv")
	if err := os.Rename(p1, p3); err != nil {
		t.Fatalf("rename: %v", err)
	}

	second, _ := drainScan(t, ix, ctx, root)
	if second.Pruned != 1 {
		t.Fatalf("expected the renamed-away path pruned, got %#v", second)
	}

	if entry, err := store.GetByPath(ctx, p1); err != nil || entry != nil {
		t.Fatalf("old path must leave the catalog, got entry=%v err=%v", entry, err)
	}
	entry, err := store.GetByPath(ctx, p3)
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if entry == nil || entry.LocationCount() != 2 {
		t.Fatalf("expected the same content with 2 copies after rename, got %#v", entry)
	}

	events, err := store.Events(ctx, 10)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	found := false
	for _, event := range events {
		if event.Event == catalog.EventRemoved && event.Path == p1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a removal event for %s, got %#v", p1, events)
	}
}

func TestScanPurgesContentWhoseLastCopyVanished(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ix := indexer.New(cfg, store, nil, nil)

	root := t.TempDir()
	lone := filepath.Join(root, "lone.mkv")
	testsupport.WriteFile(t, lone, 4096, 11)

	if summary, _ := drainScan(t, ix, ctx, root); summary.Processed != 1 {
		t.Fatalf("expected 1 processed, got %#v", summary)
	}
	if err := os.Remove(lone); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if summary, _ := drainScan(t, ix, ctx, root); summary.Pruned != 1 {
		t.Fatalf("expected 1 pruned, got %#v", summary)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Contents != 0 || stats.Locations != 0 {
		t.Fatalf("expected an empty catalog after the last copy vanished, got %#v", stats)
	}
}
