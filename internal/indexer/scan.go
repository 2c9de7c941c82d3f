package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reelcat/internal/catalog"
	"reelcat/internal/fileutil"
	"reelcat/internal/logging"
	"reelcat/internal/services"
)

// Summary reports the result of one scan.
type Summary struct {
	ID        string
	Root      string
	Processed int
	Skipped   int
	Pruned    int
	Errors    int
	Elapsed   time.Duration
}

// Result is one per-file scan outcome, delivered as workers finish.
// Outcome is nil when the file was skipped or failed.
type Result struct {
	Path    string
	Outcome *Outcome
	Skipped bool
	Err     error
}

// Run is one in-flight scan. Callers receive per-file results from
// Results until the channel closes, then call Wait for the summary.
// The results channel must be drained or the scan stalls.
type Run struct {
	results chan Result
	done    chan struct{}
	summary *Summary
	err     error
}

// Results yields one entry per visited candidate file. The channel is
// closed when the scan finishes.
func (r *Run) Results() <-chan Result {
	return r.results
}

// Wait blocks until the scan finishes and returns its summary. Per-file
// failures are counted in the summary, not returned as an error here.
func (r *Run) Wait() (*Summary, error) {
	<-r.done
	return r.summary, r.err
}

// Scan walks root and indexes every candidate file, recording the run in
// the scan history. Files whose size and mtime are unchanged since the
// last scan are skipped without rehashing. Per-file failures are counted,
// logged, and do not stop the scan.
func (ix *Indexer) Scan(ctx context.Context, root string) (*Run, error) {
	scanID := uuid.New().String()
	if err := ix.store.StartScan(ctx, scanID, root); err != nil {
		return nil, err
	}

	run := &Run{
		results: make(chan Result),
		done:    make(chan struct{}),
		summary: &Summary{ID: scanID, Root: root},
	}
	go ix.runScan(ctx, root, run)
	return run, nil
}

func (ix *Indexer) runScan(ctx context.Context, root string, run *Run) {
	defer close(run.done)
	start := time.Now()

	var mu sync.Mutex

	workers := ix.cfg.Scan.Workers
	if workers < 1 {
		workers = 1
	}

	paths := make(chan string)
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(paths)
		walker := fileutil.NewWalker(ix.cfg, ix.logger)
		return walker.Walk(groupCtx, root, func(path string, _ fs.FileInfo) error {
			select {
			case paths <- path:
				return nil
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		})
	})

	for i := 0; i < workers; i++ {
		group.Go(func() error {
			for path := range paths {
				skipped, outcome, err := ix.indexCandidate(groupCtx, path)
				mu.Lock()
				switch {
				case err != nil:
					run.summary.Errors++
				case skipped:
					run.summary.Skipped++
				default:
					run.summary.Processed++
				}
				mu.Unlock()
				if err != nil {
					if !services.Recoverable(err) {
						return err
					}
					ix.logger.Warn("failed to index file",
						logging.String(logging.FieldPath, path),
						logging.String(logging.FieldScanID, run.summary.ID),
						logging.Error(err))
				}
				select {
				case run.results <- Result{Path: path, Outcome: outcome, Skipped: skipped, Err: err}:
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			}
			return nil
		})
	}

	walkErr := group.Wait()
	close(run.results)

	// A completed walk reconciles the catalog against the filesystem:
	// cataloged paths under the root that no longer exist are removed, so a
	// renamed file does not leave its old binding behind. An aborted walk
	// skips this; it proves nothing about what is still on disk.
	var pruneErr error
	if walkErr == nil {
		run.summary.Pruned, pruneErr = ix.pruneMissing(ctx, root)
	}
	run.summary.Elapsed = time.Since(start)

	finishErr := ix.store.FinishScan(ctx, run.summary.ID,
		run.summary.Processed, run.summary.Skipped, run.summary.Errors)
	switch {
	case walkErr != nil:
		run.err = walkErr
	case pruneErr != nil:
		run.err = pruneErr
	case finishErr != nil:
		run.err = finishErr
	default:
		ix.logger.Info("scan complete",
			logging.String(logging.FieldScanID, run.summary.ID),
			logging.String("root", root),
			logging.Int("processed", run.summary.Processed),
			logging.Int("skipped", run.summary.Skipped),
			logging.Int("pruned", run.summary.Pruned),
			logging.Int("errors", run.summary.Errors),
			logging.Duration("elapsed", run.summary.Elapsed))
	}
}

// pruneMissing removes catalog bindings under root whose files are gone,
// purging content that lost its last copy. Runs after the walk so a rename
// inside the root gains its new binding before losing the old one.
func (ix *Indexer) pruneMissing(ctx context.Context, root string) (int, error) {
	cataloged, err := ix.store.LocationsUnder(ctx, root)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, path := range cataloged {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if _, _, err := ix.store.RemoveLocation(ctx, path); err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			return pruned, err
		}
		pruned++
		ix.logger.Info("pruned vanished location",
			logging.String(logging.FieldPath, path))
	}
	if pruned > 0 {
		if _, err := ix.store.PurgeOrphans(ctx); err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}

// indexCandidate indexes one path unless its catalog row is already fresh.
func (ix *Indexer) indexCandidate(ctx context.Context, path string) (skipped bool, outcome *Outcome, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, nil, services.Wrap(services.ErrIO, "indexer", "scan", path, err)
	}
	unchanged, err := ix.store.LocationUnchanged(ctx, path, info.Size(), info.ModTime().UTC())
	if err != nil {
		return false, nil, err
	}
	if unchanged {
		return true, nil, nil
	}

	outcome, err = ix.Index(ctx, path)
	return false, outcome, err
}

// Reanalyze runs the analyzer for every pending or failed annotation,
// merging the results into the catalog. Retried content is analyzed from
// one of its known locations.
func (ix *Indexer) Reanalyze(ctx context.Context) (retried int, failed int, err error) {
	if ix.analyzer == nil {
		return 0, 0, services.Wrap(services.ErrConfiguration, "indexer", "reanalyze", "analyzer is off", nil)
	}

	candidates, err := ix.store.RetryableAnnotations(ctx)
	if err != nil {
		return 0, 0, err
	}

	for fp, path := range candidates {
		if err := ctx.Err(); err != nil {
			return retried, failed, err
		}
		probe := ix.probe(ctx, path)
		ann := ix.analyze(ctx, fp, path, probe)
		if ann.Status != catalog.StatusComplete {
			failed++
			continue
		}
		if err := ix.store.MergeAnnotation(ctx, fp, ann); err != nil {
			return retried, failed, err
		}
		retried++
	}

	ix.logger.Info("reanalysis complete",
		logging.Int("retried", retried),
		logging.Int("failed", failed))
	return retried, failed, nil
}

func newLocation(path string) (catalog.NewLocation, error) {
	info, err := os.Stat(path)
	if err != nil {
		return catalog.NewLocation{}, services.Wrap(services.ErrIO, "indexer", "stat", path, err)
	}
	return catalog.NewLocation{
		Path:         path,
		Size:         info.Size(),
		LastModified: info.ModTime().UTC(),
	}, nil
}
