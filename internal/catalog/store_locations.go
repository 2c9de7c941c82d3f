package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"reelcat/internal/services"
)

// UpsertLocation binds a path to a fingerprint. A path already bound to the
// same fingerprint is a no-op; a path bound to a different fingerprint is
// atomically rebound (old row removed, new row inserted, rebind event
// recorded). rebound reports whether a reassignment happened.
func (s *Store) UpsertLocation(ctx context.Context, fp string, loc NewLocation) (rebound bool, err error) {
	if fp == "" {
		return false, services.Wrap(services.ErrValidation, "catalog", "upsert location", "empty fingerprint", nil)
	}
	if loc.Path == "" {
		return false, services.Wrap(services.ErrValidation, "catalog", "upsert location", "empty path", nil)
	}
	now := time.Now().UTC()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var txErr error
		rebound, txErr = upsertLocationTx(ctx, tx, fp, loc, now)
		return txErr
	})
	return rebound, err
}

func upsertLocationTx(ctx context.Context, tx *sql.Tx, fp string, loc NewLocation, now time.Time) (bool, error) {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT fingerprint FROM locations WHERE path = ?`, loc.Path).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO locations (path, fingerprint, size, last_modified, discovered_at)
             VALUES (?, ?, ?, ?, ?)`,
			loc.Path, fp, loc.Size, formatTime(loc.LastModified), formatTime(now),
		); err != nil {
			return false, fmt.Errorf("insert location: %w", err)
		}
		return false, nil
	case err != nil:
		return false, fmt.Errorf("check location: %w", err)
	}

	if current == fp {
		return false, nil
	}

	// Content at a known path changed: reassign the path to the new
	// fingerprint in one unit and keep an audit row.
	if _, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE path = ?`, loc.Path); err != nil {
		return false, fmt.Errorf("remove stale location: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO locations (path, fingerprint, size, last_modified, discovered_at)
         VALUES (?, ?, ?, ?, ?)`,
		loc.Path, fp, loc.Size, formatTime(loc.LastModified), formatTime(now),
	); err != nil {
		return false, fmt.Errorf("insert rebound location: %w", err)
	}
	if err := recordEventTx(ctx, tx, loc.Path, current, fp, EventRebind, now); err != nil {
		return false, err
	}
	return true, nil
}

// LocationUnchanged reports whether path is already cataloged with the same
// size and modification time. Scans use it to skip rehashing untouched files;
// a false positive is impossible, a false negative only costs a rehash.
func (s *Store) LocationUnchanged(ctx context.Context, path string, size int64, lastModified time.Time) (bool, error) {
	ctx = ensureContext(ctx)
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM locations WHERE path = ? AND size = ? AND last_modified = ?`,
		path, size, formatTime(lastModified)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check location freshness: %w", err)
	}
	return true, nil
}

// RemoveLocation deletes the binding for a path, recording a removal event.
// It returns the fingerprint the path referenced and how many locations that
// fingerprint retains.
func (s *Store) RemoveLocation(ctx context.Context, path string) (fp string, remaining int, err error) {
	now := time.Now().UTC()
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT fingerprint FROM locations WHERE path = ?`, path).Scan(&fp); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return services.Wrap(services.ErrNotFound, "catalog", "remove location", path, nil)
			}
			return fmt.Errorf("find location: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM locations WHERE path = ?`, path); err != nil {
			return fmt.Errorf("delete location: %w", err)
		}
		if err := recordEventTx(ctx, tx, path, fp, "", EventRemoved, now); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM locations WHERE fingerprint = ?`, fp).Scan(&remaining)
	})
	if err != nil {
		return "", 0, err
	}
	return fp, remaining, nil
}

// LocationsUnder returns every cataloged path at or under root. Scans use it
// to reconcile the catalog against the filesystem after a walk.
func (s *Store) LocationsUnder(ctx context.Context, root string) ([]string, error) {
	ctx = ensureContext(ctx)
	prefix := escapeLike(root+string(filepath.Separator)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM locations WHERE path = ? OR path LIKE ? ESCAPE '\' ORDER BY path`,
		root, prefix)
	if err != nil {
		return nil, fmt.Errorf("query locations under root: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// LocationsFor returns every known copy of a fingerprint ordered by discovery.
func (s *Store) LocationsFor(ctx context.Context, fp string) ([]Location, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, fingerprint, size, last_modified, discovered_at
         FROM locations WHERE fingerprint = ? ORDER BY discovered_at, path`, fp)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()
	return collectLocations(rows)
}

// Events returns the most recent location events, newest first.
func (s *Store) Events(ctx context.Context, limit int) ([]LocationEvent, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, old_fingerprint, new_fingerprint, event, created_at
         FROM location_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []LocationEvent
	for rows.Next() {
		var (
			event      LocationEvent
			oldFP      sql.NullString
			newFP      sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&event.ID, &event.Path, &oldFP, &newFP, &event.Event, &createdRaw); err != nil {
			return nil, err
		}
		event.OldFingerprint = oldFP.String
		event.NewFingerprint = newFP.String
		if t, err := parseTimeString(createdRaw); err == nil {
			event.CreatedAt = t
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func recordEventTx(ctx context.Context, tx *sql.Tx, path, oldFP, newFP, event string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO location_events (path, old_fingerprint, new_fingerprint, event, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		path, nullableString(oldFP), nullableString(newFP), event, formatTime(now),
	); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func collectLocations(rows *sql.Rows) ([]Location, error) {
	var locations []Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func scanLocation(scanner interface{ Scan(dest ...any) error }) (Location, error) {
	var (
		loc         Location
		modifiedRaw string
		foundRaw    string
	)
	if err := scanner.Scan(&loc.Path, &loc.Fingerprint, &loc.Size, &modifiedRaw, &foundRaw); err != nil {
		return Location{}, err
	}
	if t, err := parseTimeString(modifiedRaw); err == nil {
		loc.LastModified = t
	}
	if t, err := parseTimeString(foundRaw); err == nil {
		loc.DiscoveredAt = t
	}
	return loc, nil
}
