// Package indexer drives content discovery: fingerprinting files, registering
// them in the catalog, and running the semantic analyzer exactly once per
// content identity.
package indexer

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"reelcat/internal/analyzer"
	"reelcat/internal/catalog"
	"reelcat/internal/config"
	"reelcat/internal/fingerprint"
	"reelcat/internal/logging"
	"reelcat/internal/media/ffprobe"
	"reelcat/internal/services"
)

// Indexer coordinates fingerprint generation, catalog registration, and
// at-most-once analysis. Safe for concurrent use.
type Indexer struct {
	cfg       *config.Config
	store     *catalog.Store
	prober    ffprobe.Client
	generator *fingerprint.Generator
	analyzer  analyzer.Analyzer
	logger    *slog.Logger

	// inflight collapses concurrent first-sight registrations of the same
	// fingerprint so only one goroutine runs the analyzer. Cross-process
	// races are settled by the catalog's insert-if-absent registration.
	inflight singleflight.Group
}

// New builds an Indexer. analyzer may be nil; new content is then registered
// with a pending annotation and picked up by a later Reanalyze.
func New(cfg *config.Config, store *catalog.Store, contentAnalyzer analyzer.Analyzer, logger *slog.Logger) *Indexer {
	prober := ffprobe.Client{Binary: cfg.FFprobeBinary(), Timeout: cfg.Probe.Timeout()}
	return &Indexer{
		cfg:       cfg,
		store:     store,
		prober:    prober,
		generator: fingerprint.NewGenerator(prober, logger),
		analyzer:  contentAnalyzer,
		logger:    logging.NewComponentLogger(logger, "indexer"),
	}
}

// Outcome describes what indexing one file did.
type Outcome struct {
	Path        string
	Fingerprint string
	ContentNew  bool
	Rebound     bool
	Status      catalog.AnalysisStatus
}

// Index fingerprints the file at path and registers it. New content is
// analyzed at most once; a copy of known content only gains a location row.
// A changed file at a known path is atomically rebound to its new identity.
func (ix *Indexer) Index(ctx context.Context, path string) (*Outcome, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "indexer", "index", "resolve path", err)
	}

	probe := ix.probe(ctx, path)
	fp, err := ix.generator.GenerateWithProbe(ctx, path, probe)
	if err != nil {
		return nil, err
	}
	fpString := fp.String()

	loc, err := newLocation(path)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Path: path, Fingerprint: fpString}

	known, err := ix.store.HasContent(ctx, fpString)
	if err != nil {
		return nil, err
	}
	if !known {
		reg, err := ix.register(ctx, fp, path, probe, loc)
		if err != nil {
			return nil, err
		}
		outcome.ContentNew = reg.created
		// Singleflight shares one registration across collapsed callers;
		// its rebound flag belongs only to the path the leader inserted.
		if reg.path == path {
			outcome.Rebound = reg.rebound
		}
	}

	// The registration above already bound the leader's own path; for every
	// other caller this is the binding that counts.
	rebound, err := ix.store.UpsertLocation(ctx, fpString, loc)
	if err != nil {
		return nil, err
	}
	outcome.Rebound = outcome.Rebound || rebound

	if ann, err := ix.store.Annotation(ctx, fpString); err == nil && ann != nil {
		outcome.Status = ann.Status
	}

	ix.logger.Debug("indexed file",
		logging.String(logging.FieldPath, path),
		logging.String(logging.FieldFingerprint, fpString),
		logging.Bool("new_content", outcome.ContentNew),
		logging.Bool("rebound", outcome.Rebound))
	return outcome, nil
}

// Remove drops the catalog binding for path. Content that loses its last
// location is purged along with its annotation and index rows.
func (ix *Indexer) Remove(ctx context.Context, path string) (fp string, remaining int, err error) {
	path, err = filepath.Abs(path)
	if err != nil {
		return "", 0, services.Wrap(services.ErrValidation, "indexer", "remove", "resolve path", err)
	}
	fp, remaining, err = ix.store.RemoveLocation(ctx, path)
	if err != nil {
		return "", 0, err
	}
	if remaining == 0 {
		if _, err := ix.store.PurgeOrphans(ctx); err != nil {
			return fp, remaining, err
		}
	}
	ix.logger.Info("location removed",
		logging.String(logging.FieldPath, path),
		logging.String(logging.FieldFingerprint, fp),
		logging.Int("remaining_copies", remaining))
	return fp, remaining, nil
}

// registration reports what first-sight registration did for the leader's
// path. created is true only for the caller whose insert actually won.
type registration struct {
	created bool
	rebound bool
	path    string
}

// register runs first-sight registration under singleflight. The content row
// is inserted first, with a pending annotation; only the caller whose insert
// won runs the analyzer and merges the result in afterwards. A caller that
// loses the insert race, in this process or another, skips analysis entirely
// and just attaches its location.
func (ix *Indexer) register(ctx context.Context, fp fingerprint.Fingerprint, path string, probe *ffprobe.Result, loc catalog.NewLocation) (registration, error) {
	fpString := fp.String()

	result, err, _ := ix.inflight.Do(fpString, func() (any, error) {
		content := catalog.Content{
			Fingerprint:   fpString,
			ContentHash:   fp.ContentHash,
			TechnicalHash: fp.TechnicalHash,
		}
		created, rebound, err := ix.store.RegisterContent(ctx, content, nil, loc)
		if err != nil {
			return nil, err
		}
		reg := registration{created: created, rebound: rebound, path: path}
		if !created {
			return reg, nil
		}
		if ann := ix.analyze(ctx, fpString, path, probe); ann != nil {
			if err := ix.store.MergeAnnotation(ctx, fpString, ann); err != nil {
				return reg, err
			}
		}
		return reg, nil
	})
	if err != nil {
		return registration{}, err
	}
	return result.(registration), nil
}

// analyze produces the annotation for newly seen content. Analyzer failures
// degrade to a failed (retryable) annotation rather than failing the index;
// a nil analyzer leaves the annotation pending.
func (ix *Indexer) analyze(ctx context.Context, fpString, path string, probe *ffprobe.Result) *catalog.Annotation {
	if ix.analyzer == nil {
		return nil
	}

	result, err := ix.analyzer.Analyze(ctx, path, probe)
	if err != nil {
		ix.logger.Warn("analysis failed, annotation marked for retry",
			logging.String(logging.FieldPath, path),
			logging.String(logging.FieldFingerprint, fpString),
			logging.Error(err))
		return &catalog.Annotation{Fingerprint: fpString, Status: catalog.StatusFailed}
	}

	now := time.Now().UTC()
	return &catalog.Annotation{
		Fingerprint: fpString,
		Description: result.Description,
		Technical:   result.Technical,
		Content:     result.Content,
		Emotional:   result.Emotional,
		Business:    result.Business,
		SearchTags:  result.SearchTags,
		Status:      catalog.StatusComplete,
		AnalyzedAt:  &now,
	}
}

// probe runs ffprobe once per file; the result feeds both the technical hash
// and the analyzer. Failures degrade rather than abort.
func (ix *Indexer) probe(ctx context.Context, path string) *ffprobe.Result {
	result, err := ix.prober.Probe(ctx, path)
	if err != nil {
		ix.logger.Warn("probe failed",
			logging.String(logging.FieldPath, path),
			logging.Error(err))
		return nil
	}
	return &result
}
