package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"reelcat/internal/catalog"
	"reelcat/internal/services"
	"reelcat/internal/testsupport"
)

func newLocation(path string, size int64) catalog.NewLocation {
	return catalog.NewLocation{Path: path, Size: size, LastModified: time.Now().UTC()}
}

func completeAnnotation(fp string, tags ...string) *catalog.Annotation {
	now := time.Now().UTC()
	return &catalog.Annotation{
		Fingerprint: fp,
		Description: "test clip",
		Content:     tags,
		SearchTags:  tags,
		Status:      catalog.StatusComplete,
		AnalyzedAt:  &now,
	}
}

func TestRegisterContentCreatesEverythingAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	content := catalog.Content{Fingerprint: "aaaaaaaaaaaa:bbbbbbbbbbbb", ContentHash: "aaa", TechnicalHash: "bbb"}
	created, rebound, err := store.RegisterContent(ctx, content, completeAnnotation(content.Fingerprint, "aerial", "drone"), newLocation("/media/a.mkv", 2048))
	if err != nil {
		t.Fatalf("RegisterContent: %v", err)
	}
	if !created || rebound {
		t.Fatalf("expected created=true rebound=false, got %v %v", created, rebound)
	}

	entry, err := store.GetByFingerprint(ctx, content.Fingerprint)
	if err != nil {
		t.Fatalf("GetByFingerprint: %v", err)
	}
	if entry == nil || entry.LocationCount() != 1 {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.Annotation == nil || entry.Annotation.Status != catalog.StatusComplete {
		t.Fatalf("unexpected annotation: %#v", entry.Annotation)
	}

	results, err := store.SearchByTag(ctx, "aerial")
	if err != nil {
		t.Fatalf("SearchByTag: %v", err)
	}
	if len(results) != 1 || results[0].Fingerprint != content.Fingerprint {
		t.Fatalf("expected search hit for new content, got %#v", results)
	}
}

func TestRegisterContentIsIdempotentAndKeepsWinnerAnnotation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	content := catalog.Content{Fingerprint: "cccccccccccc:dddddddddddd", ContentHash: "ccc", TechnicalHash: "ddd"}
	if _, _, err := store.RegisterContent(ctx, content, completeAnnotation(content.Fingerprint, "sunset"), newLocation("/media/a.mkv", 100)); err != nil {
		t.Fatalf("first register: %v", err)
	}

	// A losing concurrent writer registers the same fingerprint from a
	// second copy; its annotation must be discarded, its location kept.
	created, _, err := store.RegisterContent(ctx, content, completeAnnotation(content.Fingerprint, "overwritten"), newLocation("/media/b.mkv", 100))
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if created {
		t.Fatal("expected created=false for existing fingerprint")
	}

	entry, err := store.GetByFingerprint(ctx, content.Fingerprint)
	if err != nil {
		t.Fatalf("GetByFingerprint: %v", err)
	}
	if entry.LocationCount() != 2 {
		t.Fatalf("expected 2 locations, got %d", entry.LocationCount())
	}
	if got := entry.Annotation.SearchTags; len(got) != 1 || got[0] != "sunset" {
		t.Fatalf("winner annotation should survive, got %v", got)
	}
}

func TestUpsertLocationSameFingerprintIsNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	content := catalog.Content{Fingerprint: "eeeeeeeeeeee:ffffffffffff"}
	if _, _, err := store.RegisterContent(ctx, content, nil, newLocation("/media/a.mkv", 100)); err != nil {
		t.Fatalf("register: %v", err)
	}

	rebound, err := store.UpsertLocation(ctx, content.Fingerprint, newLocation("/media/a.mkv", 100))
	if err != nil {
		t.Fatalf("UpsertLocation: %v", err)
	}
	if rebound {
		t.Fatal("expected no rebind for same fingerprint")
	}

	entry, err := store.GetByPath(ctx, "/media/a.mkv")
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if entry.LocationCount() != 1 {
		t.Fatalf("expected exactly one location row, got %d", entry.LocationCount())
	}
}

func TestUpsertLocationRebindsChangedContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	oldFP := "111111111111:222222222222"
	newFP := "333333333333:444444444444"
	if _, _, err := store.RegisterContent(ctx, catalog.Content{Fingerprint: oldFP}, nil, newLocation("/media/a.mkv", 100)); err != nil {
		t.Fatalf("register old: %v", err)
	}
	if _, _, err := store.RegisterContent(ctx, catalog.Content{Fingerprint: newFP}, nil, newLocation("/media/other.mkv", 100)); err != nil {
		t.Fatalf("register new: %v", err)
	}

	rebound, err := store.UpsertLocation(ctx, newFP, newLocation("/media/a.mkv", 120))
	if err != nil {
		t.Fatalf("UpsertLocation: %v", err)
	}
	if !rebound {
		t.Fatal("expected rebind")
	}

	oldEntry, err := store.GetByFingerprint(ctx, oldFP)
	if err != nil {
		t.Fatalf("GetByFingerprint old: %v", err)
	}
	if oldEntry.LocationCount() != 0 {
		t.Fatalf("old fingerprint should have lost the path, got %d locations", oldEntry.LocationCount())
	}
	newEntry, err := store.GetByPath(ctx, "/media/a.mkv")
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if newEntry.Content.Fingerprint != newFP {
		t.Fatalf("path should reference new fingerprint, got %s", newEntry.Content.Fingerprint)
	}

	events, err := store.Events(ctx, 10)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) == 0 || events[0].Event != catalog.EventRebind {
		t.Fatalf("expected rebind event recorded, got %#v", events)
	}
	if events[0].OldFingerprint != oldFP || events[0].NewFingerprint != newFP {
		t.Fatalf("unexpected event fingerprints: %#v", events[0])
	}
}

func TestRemoveLocationAndPurge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fp := "555555555555:666666666666"
	if _, _, err := store.RegisterContent(ctx, catalog.Content{Fingerprint: fp}, completeAnnotation(fp, "city"), newLocation("/media/a.mkv", 10)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := store.UpsertLocation(ctx, fp, newLocation("/media/b.mkv", 10)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	gotFP, remaining, err := store.RemoveLocation(ctx, "/media/a.mkv")
	if err != nil {
		t.Fatalf("RemoveLocation: %v", err)
	}
	if gotFP != fp || remaining != 1 {
		t.Fatalf("unexpected removal result: %s %d", gotFP, remaining)
	}

	// Still one location: purge must not touch the content.
	if purged, err := store.PurgeOrphans(ctx); err != nil || purged != 0 {
		t.Fatalf("expected no orphans purged, got %d err=%v", purged, err)
	}

	if _, _, err := store.RemoveLocation(ctx, "/media/b.mkv"); err != nil {
		t.Fatalf("RemoveLocation b: %v", err)
	}
	purged, err := store.PurgeOrphans(ctx)
	if err != nil {
		t.Fatalf("PurgeOrphans: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged content, got %d", purged)
	}

	if entry, err := store.GetByFingerprint(ctx, fp); err != nil || entry != nil {
		t.Fatalf("expected content gone, got %#v err=%v", entry, err)
	}
	if results, err := store.SearchByTag(ctx, "city"); err != nil || len(results) != 0 {
		t.Fatalf("expected search index rows purged, got %#v err=%v", results, err)
	}
	// The cascade only fires when foreign_keys is on for the connection
	// that ran the purge.
	if ann, err := store.Annotation(ctx, fp); err != nil || ann != nil {
		t.Fatalf("expected annotation cascaded away, got %#v err=%v", ann, err)
	}

	_, _, err = store.RemoveLocation(ctx, "/media/missing.mkv")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentWritersShareOneStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Every pooled connection needs busy_timeout for this to survive; a
	// single mis-configured connection surfaces as SQLITE_BUSY here.
	fp := "cccccccccccc:dddddddddddd"
	content := catalog.Content{Fingerprint: fp, ContentHash: "ccc", TechnicalHash: "ddd"}

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("/media/copy-%d.mkv", i)
			if _, _, err := store.RegisterContent(ctx, content, nil, newLocation(path, 100)); err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = store.UpsertLocation(ctx, fp, newLocation(path, 100))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
	}

	entry, err := store.GetByFingerprint(ctx, fp)
	if err != nil {
		t.Fatalf("GetByFingerprint: %v", err)
	}
	if entry == nil || entry.LocationCount() != writers {
		t.Fatalf("expected %d locations, got %#v", writers, entry)
	}
}

func TestMergeAnnotationNeverDiscardsTags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fp := "777777777777:888888888888"
	if _, _, err := store.RegisterContent(ctx, catalog.Content{Fingerprint: fp}, completeAnnotation(fp, "beach", "summer"), newLocation("/media/a.mkv", 10)); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Merging an empty failed retry must not erase tags or downgrade status.
	if err := store.MergeAnnotation(ctx, fp, &catalog.Annotation{Status: catalog.StatusFailed}); err != nil {
		t.Fatalf("MergeAnnotation empty: %v", err)
	}
	ann, err := store.Annotation(ctx, fp)
	if err != nil {
		t.Fatalf("Annotation: %v", err)
	}
	if len(ann.SearchTags) != 2 || ann.Status != catalog.StatusComplete {
		t.Fatalf("merge discarded data: %#v", ann)
	}

	// New tags accumulate without duplicating case-insensitive matches.
	if err := store.MergeAnnotation(ctx, fp, &catalog.Annotation{SearchTags: []string{"Beach", "waves"}, Status: catalog.StatusComplete}); err != nil {
		t.Fatalf("MergeAnnotation additive: %v", err)
	}
	ann, err = store.Annotation(ctx, fp)
	if err != nil {
		t.Fatalf("Annotation: %v", err)
	}
	if len(ann.SearchTags) != 3 {
		t.Fatalf("expected 3 merged tags, got %v", ann.SearchTags)
	}
}

func TestPendingAnnotationsAreRetryable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fp := "999999999999:aaaaaaaaaaaa"
	if _, _, err := store.RegisterContent(ctx, catalog.Content{Fingerprint: fp}, nil, newLocation("/media/a.mkv", 10)); err != nil {
		t.Fatalf("register: %v", err)
	}

	candidates, err := store.RetryableAnnotations(ctx)
	if err != nil {
		t.Fatalf("RetryableAnnotations: %v", err)
	}
	if path, ok := candidates[fp]; !ok || path != "/media/a.mkv" {
		t.Fatalf("expected pending annotation with path, got %#v", candidates)
	}

	now := time.Now().UTC()
	if err := store.MergeAnnotation(ctx, fp, &catalog.Annotation{SearchTags: []string{"done"}, Status: catalog.StatusComplete, AnalyzedAt: &now}); err != nil {
		t.Fatalf("MergeAnnotation: %v", err)
	}
	candidates, err = store.RetryableAnnotations(ctx)
	if err != nil {
		t.Fatalf("RetryableAnnotations: %v", err)
	}
	if _, ok := candidates[fp]; ok {
		t.Fatal("completed annotation should not be retryable")
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fp := "bbbbbbbbbbbb:cccccccccccc"
	if _, _, err := store.RegisterContent(ctx, catalog.Content{Fingerprint: fp}, completeAnnotation(fp, "test"), newLocation("/media/a.mkv", 10)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := store.UpsertLocation(ctx, fp, newLocation("/media/b.mkv", 10)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Contents != 1 || stats.Locations != 2 || stats.DuplicateContents != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.OrphanedContents != 0 {
		t.Fatalf("expected no orphans, got %d", health.OrphanedContents)
	}
}

func TestScanHistoryRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.StartScan(ctx, "scan-1", "/media"); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if err := store.FinishScan(ctx, "scan-1", 5, 2, 1); err != nil {
		t.Fatalf("FinishScan: %v", err)
	}

	scans, err := store.Scans(ctx, 10)
	if err != nil {
		t.Fatalf("Scans: %v", err)
	}
	if len(scans) != 1 {
		t.Fatalf("expected 1 scan, got %d", len(scans))
	}
	record := scans[0]
	if record.Processed != 5 || record.Skipped != 2 || record.Errors != 1 || record.FinishedAt == nil {
		t.Fatalf("unexpected scan record: %#v", record)
	}
}
