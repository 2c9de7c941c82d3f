package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"reelcat/internal/services"
)

// GetByFingerprint returns the full entry for a fingerprint: content row,
// every location, and the annotation. Returns nil when unknown.
func (s *Store) GetByFingerprint(ctx context.Context, fp string) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, content_hash, technical_hash, first_seen_at FROM contents WHERE fingerprint = ?`, fp)
	content, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}

	locations, err := s.LocationsFor(ctx, fp)
	if err != nil {
		return nil, err
	}
	annotation, err := s.Annotation(ctx, fp)
	if err != nil {
		return nil, err
	}
	return &Entry{Content: content, Locations: locations, Annotation: annotation}, nil
}

// GetByPath resolves a path to its fingerprint entry. Returns nil when the
// path is not catalogued.
func (s *Store) GetByPath(ctx context.Context, path string) (*Entry, error) {
	ctx = ensureContext(ctx)
	var fp string
	err := s.db.QueryRowContext(ctx, `SELECT fingerprint FROM locations WHERE path = ?`, path).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get by path: %w", err)
	}
	return s.GetByFingerprint(ctx, fp)
}

// SearchByTag returns fingerprints whose indexed tags contain the query as a
// case-insensitive substring, ranked by accumulated weight descending.
func (s *Store) SearchByTag(ctx context.Context, query string) ([]SearchResult, error) {
	ctx = ensureContext(ctx)
	folded := NormalizeTag(query)
	if folded == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "search", "empty query", nil)
	}

	pattern := "%" + escapeLike(folded) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, SUM(weight) AS total, GROUP_CONCAT(tag, ',')
         FROM search_index
         WHERE tag LIKE ? ESCAPE '\'
         GROUP BY fingerprint
         ORDER BY total DESC, fingerprint`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search by tag: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			result SearchResult
			tags   sql.NullString
		)
		if err := rows.Scan(&result.Fingerprint, &result.Weight, &tags); err != nil {
			return nil, err
		}
		if tags.Valid && tags.String != "" {
			result.MatchedTags = strings.Split(tags.String, ",")
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// FindDuplicates returns every fingerprint with two or more locations,
// largest reclaimable group first.
func (s *Store) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, COUNT(1), SUM(size), MAX(size)
         FROM locations
         GROUP BY fingerprint
         HAVING COUNT(1) > 1
         ORDER BY SUM(size) - MAX(size) DESC, fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		var (
			group DuplicateGroup
			count int
		)
		if err := rows.Scan(&group.Fingerprint, &count, &group.TotalSize, &group.LargestSize); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		locations, err := s.LocationsFor(ctx, groups[i].Fingerprint)
		if err != nil {
			return nil, err
		}
		groups[i].Locations = locations
	}
	return groups, nil
}

// Stats returns aggregate counts for diagnostics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	queries := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&stats.Contents, `SELECT COUNT(1) FROM contents`, nil},
		{&stats.Locations, `SELECT COUNT(1) FROM locations`, nil},
		{&stats.DuplicateContents, `SELECT COUNT(1) FROM (SELECT fingerprint FROM locations GROUP BY fingerprint HAVING COUNT(1) > 1)`, nil},
		{&stats.PendingAnnotations, `SELECT COUNT(1) FROM annotations WHERE analysis_status = ?`, []any{StatusPending}},
		{&stats.FailedAnnotations, `SELECT COUNT(1) FROM annotations WHERE analysis_status = ?`, []any{StatusFailed}},
		{&stats.IndexedTags, `SELECT COUNT(DISTINCT tag) FROM search_index`, nil},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			return Stats{}, fmt.Errorf("catalog stats: %w", err)
		}
	}
	return stats, nil
}

func scanContent(scanner interface{ Scan(dest ...any) error }) (Content, error) {
	var (
		content Content
		seenRaw string
	)
	if err := scanner.Scan(&content.Fingerprint, &content.ContentHash, &content.TechnicalHash, &seenRaw); err != nil {
		return Content{}, err
	}
	if t, err := parseTimeString(seenRaw); err == nil {
		content.FirstSeenAt = t
	}
	return content, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
