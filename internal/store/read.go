package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/lifeline/internal/model"
)

const requestColumns = `
	id, origin_request_id, origin_device_id, blood_type, component_type, units,
	urgency, contact_name, contact_phone, notes, lat, lng, status,
	hop_count, max_hops, last_relayed_by, created_at, updated_at`

// Get returns the record with the given local id.
// Returns ErrNotFound (wrapped) if no such record exists.
func (s *Store) Get(ctx context.Context, id string) (model.RequestRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	rec, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RequestRecord{}, fmt.Errorf("get request %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.RequestRecord{}, fmt.Errorf("get request %s: %w", id, err)
	}
	return rec, nil
}

// ListAll returns every record, newest first. Ties break on id.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListAll(ctx context.Context) ([]model.RequestRecord, error) {
	return s.queryRequests(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		ORDER BY created_at DESC, id COLLATE BINARY ASC
	`)
}

// ListPendingSync returns records whose status is pending_sync, oldest
// first. Ties break on id.
func (s *Store) ListPendingSync(ctx context.Context) ([]model.RequestRecord, error) {
	return s.queryRequests(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE status = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, string(model.StatusPendingSync))
}

// HasCopy reports whether the store already holds a copy of a logical
// request: a record whose local id or origin id equals either argument.
// Empty arguments never match.
func (s *Store) HasCopy(ctx context.Context, id, originRequestID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM requests
			WHERE (? != '' AND (id = ? OR origin_request_id = ?))
			   OR (? != '' AND (id = ? OR origin_request_id = ?))
		)
	`, id, id, id, originRequestID, originRequestID, originRequestID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has copy: %w", err)
	}
	return exists, nil
}

// CountByStatus returns the number of records per status. Every known
// status is present in the result, zero if absent.
func (s *Store) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	counts := make(map[model.Status]int, len(model.Statuses))
	for _, st := range model.Statuses {
		counts[st] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[model.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// ReadLog returns the audit entries for one request in seq order.
func (s *Store) ReadLog(ctx context.Context, requestID string) ([]model.SyncLogEntry, error) {
	return s.queryLog(ctx, `
		SELECT seq, request_id, device_id, action, timestamp
		FROM sync_log
		WHERE request_id = ?
		ORDER BY seq ASC
	`, requestID)
}

// ReadLogSince returns up to limit entries with seq greater than afterSeq,
// in seq order. A limit of zero or less means no limit.
func (s *Store) ReadLogSince(ctx context.Context, afterSeq int64, limit int) ([]model.SyncLogEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unbounded
	}
	return s.queryLog(ctx, `
		SELECT seq, request_id, device_id, action, timestamp
		FROM sync_log
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, limit)
}

// CacheReadAll returns the cached facilities ordered by id.
func (s *Store) CacheReadAll(ctx context.Context) ([]model.Facility, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, lat, lng, address, contact_phone, open_24x7, last_updated_at
		FROM facilities
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query facilities: %w", err)
	}
	defer rows.Close()

	facilities := []model.Facility{}
	for rows.Next() {
		var f model.Facility
		var updated int64
		if err := rows.Scan(
			&f.ID,
			&f.Name,
			&f.Location.Lat,
			&f.Location.Lng,
			&f.Address,
			&f.ContactPhone,
			&f.Open24x7,
			&updated,
		); err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		f.LastUpdatedAt = fromMillis(updated)
		facilities = append(facilities, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facilities: %w", err)
	}
	return facilities, nil
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]model.RequestRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	records := []model.RequestRecord{}
	for rows.Next() {
		rec, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return records, nil
}

func (s *Store) queryLog(ctx context.Context, query string, args ...any) ([]model.SyncLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync log: %w", err)
	}
	defer rows.Close()

	entries := []model.SyncLogEntry{}
	for rows.Next() {
		var e model.SyncLogEntry
		var action string
		var ts int64
		if err := rows.Scan(&e.Seq, &e.RequestID, &e.DeviceID, &action, &ts); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		e.Action = model.LogAction(action)
		e.Timestamp = fromMillis(ts)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync log: %w", err)
	}
	return entries, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (model.RequestRecord, error) {
	var rec model.RequestRecord
	var bloodType, component, urgency, status string
	var created, updated int64

	err := row.Scan(
		&rec.ID,
		&rec.OriginRequestID,
		&rec.OriginDeviceID,
		&bloodType,
		&component,
		&rec.Units,
		&urgency,
		&rec.ContactName,
		&rec.ContactPhone,
		&rec.Notes,
		&rec.Location.Lat,
		&rec.Location.Lng,
		&status,
		&rec.HopCount,
		&rec.MaxHops,
		&rec.LastRelayedBy,
		&created,
		&updated,
	)
	if err != nil {
		return model.RequestRecord{}, err
	}

	rec.BloodType = model.BloodType(bloodType)
	rec.ComponentType = model.ComponentType(component)
	rec.Urgency = model.Urgency(urgency)
	rec.Status = model.Status(status)
	rec.CreatedAt = fromMillis(created)
	rec.UpdatedAt = fromMillis(updated)
	return rec, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
