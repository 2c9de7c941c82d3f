// Package lookup answers read-side questions about the catalog: duplicate
// reports with reclaimable-space estimates, and query resolution for the CLI.
package lookup

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"reelcat/internal/catalog"
	"reelcat/internal/fingerprint"
	"reelcat/internal/logging"
	"reelcat/internal/services"
)

// Service reads the catalog. Safe for concurrent use.
type Service struct {
	store  *catalog.Store
	logger *slog.Logger
}

// NewService builds a lookup Service over the given store.
func NewService(store *catalog.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logging.NewComponentLogger(logger, "lookup"),
	}
}

// DuplicateReport summarizes every content identity with more than one copy.
type DuplicateReport struct {
	Groups           []catalog.DuplicateGroup
	TotalReclaimable int64
	// VolumeFree is the free space on the volume holding the first duplicate,
	// for judging how much the reclaim matters. Zero when unavailable.
	VolumeFree uint64
}

// Duplicates lists duplicate groups ordered by reclaimable bytes, largest
// first. Deleting all but one copy in every group frees TotalReclaimable
// bytes; resolving which copy to keep is left to the operator.
func (s *Service) Duplicates(ctx context.Context) (*DuplicateReport, error) {
	groups, err := s.store.FindDuplicates(ctx)
	if err != nil {
		return nil, err
	}

	report := &DuplicateReport{Groups: groups}
	for _, group := range groups {
		report.TotalReclaimable += group.ReclaimableBytes()
	}
	if len(groups) > 0 && len(groups[0].Locations) > 0 {
		report.VolumeFree = FreeBytes(filepath.Dir(groups[0].Locations[0].Path))
	}
	return report, nil
}

// FreeBytes reports the free space on the filesystem containing path, or 0
// when it cannot be determined.
func FreeBytes(path string) uint64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0
	}
	return stat.Bavail * uint64(stat.Bsize)
}

// Resolution kinds.
const (
	KindFingerprint = "fingerprint"
	KindPath        = "path"
	KindTag         = "tag"
)

// Resolution is the answer to a free-form query. Exactly one of Entry or
// Results is populated depending on Kind.
type Resolution struct {
	Kind    string
	Entry   *catalog.Entry
	Results []catalog.SearchResult
}

// Resolve interprets query as a fingerprint, a filesystem path, or a tag, in
// that order, and looks it up. Fingerprint and path queries that match
// nothing fail with services.ErrNotFound; tag queries return empty results.
func (s *Service) Resolve(ctx context.Context, query string) (*Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "lookup", "resolve", "empty query", nil)
	}

	if _, err := fingerprint.Parse(query); err == nil {
		entry, err := s.store.GetByFingerprint(ctx, query)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, services.Wrap(services.ErrNotFound, "lookup", "resolve", "unknown fingerprint "+query, nil)
		}
		return &Resolution{Kind: KindFingerprint, Entry: entry}, nil
	}

	if strings.ContainsRune(query, filepath.Separator) || strings.HasPrefix(query, "~") || strings.HasPrefix(query, ".") {
		path, err := filepath.Abs(query)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "lookup", "resolve", "resolve path", err)
		}
		entry, err := s.store.GetByPath(ctx, path)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, services.Wrap(services.ErrNotFound, "lookup", "resolve", path+" is not cataloged", nil)
		}
		return &Resolution{Kind: KindPath, Entry: entry}, nil
	}

	results, err := s.store.SearchByTag(ctx, query)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("tag query resolved",
		logging.String("query", query),
		logging.Int("results", len(results)))
	return &Resolution{Kind: KindTag, Results: results}, nil
}
