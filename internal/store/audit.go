package store

import (
	"context"
	"fmt"
)

// AuditReport summarizes consistency between records and the sync log.
// A healthy store has no missing entries; non-empty slices indicate a
// write that bypassed Enqueue or MarkSyncedAndLog.
type AuditReport struct {
	Records int
	Entries int
	LastSeq int64

	// MissingEnqueue lists record ids with no "enqueued" entry.
	MissingEnqueue []string

	// MissingSynced lists synced record ids with no "synced" entry.
	MissingSynced []string
}

// Healthy reports whether the audit found no gaps.
func (r AuditReport) Healthy() bool {
	return len(r.MissingEnqueue) == 0 && len(r.MissingSynced) == 0
}

// Audit cross-checks the requests table against the sync log.
func (s *Store) Audit(ctx context.Context) (AuditReport, error) {
	report := AuditReport{
		MissingEnqueue: []string{},
		MissingSynced:  []string{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM requests),
			(SELECT COUNT(*) FROM sync_log),
			(SELECT COALESCE(MAX(seq), 0) FROM sync_log)
	`).Scan(&report.Records, &report.Entries, &report.LastSeq)
	if err != nil {
		return report, fmt.Errorf("audit: count: %w", err)
	}

	report.MissingEnqueue, err = s.queryIDs(ctx, `
		SELECT r.id FROM requests r
		WHERE NOT EXISTS (
			SELECT 1 FROM sync_log l
			WHERE l.request_id = r.id AND l.action = 'enqueued'
		)
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return report, fmt.Errorf("audit: missing enqueue: %w", err)
	}

	report.MissingSynced, err = s.queryIDs(ctx, `
		SELECT r.id FROM requests r
		WHERE r.status = 'synced' AND NOT EXISTS (
			SELECT 1 FROM sync_log l
			WHERE l.request_id = r.id AND l.action = 'synced'
		)
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return report, fmt.Errorf("audit: missing synced: %w", err)
	}

	return report, nil
}

func (s *Store) queryIDs(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
