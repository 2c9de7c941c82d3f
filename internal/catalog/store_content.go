package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reelcat/internal/services"
)

// NewLocation carries the filesystem facts for a location insert.
type NewLocation struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// RegisterContent performs the atomic check-or-create for a brand-new
// fingerprint: content row, annotation, derived search index rows, and the
// first location commit as a single unit. When the fingerprint already
// exists (another writer won the race), the annotation is left untouched and
// only the location is attached; created reports which case happened.
func (s *Store) RegisterContent(ctx context.Context, content Content, ann *Annotation, loc NewLocation) (created bool, rebound bool, err error) {
	if content.Fingerprint == "" {
		return false, false, services.Wrap(services.ErrValidation, "catalog", "register", "empty fingerprint", nil)
	}
	if loc.Path == "" {
		return false, false, services.Wrap(services.ErrValidation, "catalog", "register", "empty path", nil)
	}

	now := time.Now().UTC()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO contents (fingerprint, content_hash, technical_hash, first_seen_at)
             VALUES (?, ?, ?, ?)
             ON CONFLICT(fingerprint) DO NOTHING`,
			content.Fingerprint, content.ContentHash, content.TechnicalHash, formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("insert content: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		created = inserted > 0

		if created {
			annotation := ann
			if annotation == nil {
				annotation = &Annotation{Fingerprint: content.Fingerprint, Status: StatusPending}
			}
			annotation.Fingerprint = content.Fingerprint
			if err := writeAnnotationTx(ctx, tx, annotation, now); err != nil {
				return err
			}
		}

		rebound, err = upsertLocationTx(ctx, tx, content.Fingerprint, loc, now)
		return err
	})
	if err != nil {
		return false, false, err
	}
	return created, rebound, nil
}

// HasContent reports whether a fingerprint is already registered.
func (s *Store) HasContent(ctx context.Context, fp string) (bool, error) {
	ctx = ensureContext(ctx)
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM contents WHERE fingerprint = ?`, fp).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check content: %w", err)
	}
	return true, nil
}

// MergeAnnotation inserts the annotation when absent, or merges it into the
// existing row: tag groups are unioned, the description is kept unless it
// was empty, and existing tags are never discarded. The derived search index
// is rebuilt in the same transaction.
func (s *Store) MergeAnnotation(ctx context.Context, fp string, incoming *Annotation) error {
	if incoming == nil {
		return services.Wrap(services.ErrValidation, "catalog", "merge annotation", "nil annotation", nil)
	}
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := annotationTx(ctx, tx, fp)
		if err != nil {
			return err
		}
		if existing == nil {
			incoming.Fingerprint = fp
			return writeAnnotationTx(ctx, tx, incoming, now)
		}

		merged := &Annotation{
			Fingerprint: fp,
			Description: existing.Description,
			Technical:   mergeTags(existing.Technical, incoming.Technical),
			Content:     mergeTags(existing.Content, incoming.Content),
			Emotional:   mergeTags(existing.Emotional, incoming.Emotional),
			Business:    mergeTags(existing.Business, incoming.Business),
			SearchTags:  mergeTags(existing.SearchTags, incoming.SearchTags),
			Status:      existing.Status,
			AnalyzedAt:  existing.AnalyzedAt,
		}
		if merged.Description == "" {
			merged.Description = incoming.Description
		}
		// A completed analysis is never downgraded by a failed retry.
		if incoming.Status == StatusComplete {
			merged.Status = StatusComplete
			merged.AnalyzedAt = incoming.AnalyzedAt
		} else if existing.Status != StatusComplete && incoming.Status == StatusFailed {
			merged.Status = StatusFailed
		}
		return writeAnnotationTx(ctx, tx, merged, now)
	})
}

// Annotation returns the annotation for a fingerprint, or nil when absent.
func (s *Store) Annotation(ctx context.Context, fp string) (*Annotation, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, description, technical_tags, content_tags, emotional_tags,
                business_tags, search_tags, analysis_status, analyzed_at, updated_at
         FROM annotations WHERE fingerprint = ?`, fp)
	ann, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get annotation: %w", err)
	}
	return ann, nil
}

// RetryableAnnotations returns fingerprints whose annotation is pending or
// failed, each paired with one known location path for re-analysis.
func (s *Store) RetryableAnnotations(ctx context.Context) (map[string]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.fingerprint,
                (SELECT l.path FROM locations l WHERE l.fingerprint = a.fingerprint ORDER BY l.discovered_at LIMIT 1)
         FROM annotations a
         WHERE a.analysis_status IN (?, ?)`,
		StatusPending, StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("query retryable annotations: %w", err)
	}
	defer rows.Close()

	candidates := make(map[string]string)
	for rows.Next() {
		var fp string
		var path sql.NullString
		if err := rows.Scan(&fp, &path); err != nil {
			return nil, err
		}
		if path.Valid && path.String != "" {
			candidates[fp] = path.String
		}
	}
	return candidates, rows.Err()
}

func writeAnnotationTx(ctx context.Context, tx *sql.Tx, ann *Annotation, now time.Time) error {
	if ann.Status == "" {
		ann.Status = StatusPending
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO annotations (
            fingerprint, description, technical_tags, content_tags, emotional_tags,
            business_tags, search_tags, analysis_status, analyzed_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(fingerprint) DO UPDATE SET
            description = excluded.description,
            technical_tags = excluded.technical_tags,
            content_tags = excluded.content_tags,
            emotional_tags = excluded.emotional_tags,
            business_tags = excluded.business_tags,
            search_tags = excluded.search_tags,
            analysis_status = excluded.analysis_status,
            analyzed_at = excluded.analyzed_at,
            updated_at = excluded.updated_at`,
		ann.Fingerprint,
		ann.Description,
		encodeTags(ann.Technical),
		encodeTags(ann.Content),
		encodeTags(ann.Emotional),
		encodeTags(ann.Business),
		encodeTags(ann.SearchTags),
		ann.Status,
		nullableTime(ann.AnalyzedAt),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("write annotation: %w", err)
	}
	return rebuildSearchIndexTx(ctx, tx, ann)
}

// rebuildSearchIndexTx mechanically rebuilds the inverted index rows for one
// fingerprint from its annotation. The index has no independent lifecycle:
// it changes only here, inside the annotation's transaction.
func rebuildSearchIndexTx(ctx context.Context, tx *sql.Tx, ann *Annotation) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM search_index WHERE fingerprint = ?`, ann.Fingerprint); err != nil {
		return fmt.Errorf("clear search index: %w", err)
	}
	for tag, weight := range tagWeights(ann) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO search_index (tag, fingerprint, weight) VALUES (?, ?, ?)`,
			tag, ann.Fingerprint, weight,
		); err != nil {
			return fmt.Errorf("insert search index row: %w", err)
		}
	}
	return nil
}

func annotationTx(ctx context.Context, tx *sql.Tx, fp string) (*Annotation, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT fingerprint, description, technical_tags, content_tags, emotional_tags,
                business_tags, search_tags, analysis_status, analyzed_at, updated_at
         FROM annotations WHERE fingerprint = ?`, fp)
	ann, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get annotation: %w", err)
	}
	return ann, nil
}

func scanAnnotation(scanner interface{ Scan(dest ...any) error }) (*Annotation, error) {
	var (
		fp          string
		description string
		technical   string
		content     string
		emotional   string
		business    string
		search      string
		status      string
		analyzedRaw sql.NullString
		updatedRaw  string
	)
	if err := scanner.Scan(&fp, &description, &technical, &content, &emotional, &business, &search, &status, &analyzedRaw, &updatedRaw); err != nil {
		return nil, err
	}

	ann := &Annotation{
		Fingerprint: fp,
		Description: description,
		Technical:   decodeTags(technical),
		Content:     decodeTags(content),
		Emotional:   decodeTags(emotional),
		Business:    decodeTags(business),
		SearchTags:  decodeTags(search),
		Status:      AnalysisStatus(status),
	}
	if analyzedRaw.Valid {
		if t, err := parseTimeString(analyzedRaw.String); err == nil {
			ann.AnalyzedAt = &t
		}
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		ann.UpdatedAt = t
	}
	return ann, nil
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeTags(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}
