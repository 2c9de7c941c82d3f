package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"reelcat/internal/services"
)

// PurgeOrphans removes contents that no longer have any location, cascading
// to their annotation and search index rows. Fingerprints only leave the
// catalog through this explicit purge.
func (s *Store) PurgeOrphans(ctx context.Context) (int64, error) {
	var purged int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM contents WHERE fingerprint NOT IN (SELECT DISTINCT fingerprint FROM locations)`)
		if err != nil {
			return fmt.Errorf("purge orphans: %w", err)
		}
		purged, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// StartScan records the beginning of a scan run.
func (s *Store) StartScan(ctx context.Context, id, root string) error {
	ctx = ensureContext(ctx)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, root, started_at) VALUES (?, ?, ?)`,
		id, root, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("record scan start: %w", err)
	}
	return nil
}

// FinishScan records the outcome counters of a scan run.
func (s *Store) FinishScan(ctx context.Context, id string, processed, skipped, errCount int) error {
	ctx = ensureContext(ctx)
	_, err := s.db.ExecContext(ctx,
		`UPDATE scans SET finished_at = ?, processed = ?, skipped = ?, errors = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), processed, skipped, errCount, id,
	)
	if err != nil {
		return fmt.Errorf("record scan finish: %w", err)
	}
	return nil
}

// Scans returns recent scan runs, newest first.
func (s *Store) Scans(ctx context.Context, limit int) ([]ScanRecord, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, started_at, finished_at, processed, skipped, errors
         FROM scans ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var (
			record      ScanRecord
			startedRaw  string
			finishedRaw sql.NullString
		)
		if err := rows.Scan(&record.ID, &record.Root, &startedRaw, &finishedRaw, &record.Processed, &record.Skipped, &record.Errors); err != nil {
			return nil, err
		}
		if t, err := parseTimeString(startedRaw); err == nil {
			record.StartedAt = t
		}
		if finishedRaw.Valid {
			if t, err := parseTimeString(finishedRaw.String); err == nil {
				record.FinishedAt = &t
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	IntegrityCheck   bool
	OrphanedContents int
	TotalContents    int
	TotalLocations   int
	Error            string
}

// CheckHealth verifies the database file, connection, SQLite integrity, and
// the invariant that every content keeps at least one location.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("catalog database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat catalog database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("catalog database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping catalog database: %w", err)
	}
	health.DatabaseReadable = true

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, services.Wrap(services.ErrCorrupt, "catalog", "integrity check", "", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	if !health.IntegrityCheck {
		health.Error = integrityResult
		return health, services.Wrap(services.ErrCorrupt, "catalog", "integrity check", integrityResult, nil)
	}

	if err := s.db.QueryRowContext(connCtx, `SELECT COUNT(1) FROM contents`).Scan(&health.TotalContents); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count contents: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx, `SELECT COUNT(1) FROM locations`).Scan(&health.TotalLocations); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count locations: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx,
		`SELECT COUNT(1) FROM contents WHERE fingerprint NOT IN (SELECT DISTINCT fingerprint FROM locations)`,
	).Scan(&health.OrphanedContents); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count orphans: %w", err)
	}

	return health, nil
}
