package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/lifeline/internal/model"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Put inserts a record, or replaces every field of an existing record with
// the same id except createdAt.
//
// The record is validated first; invalid records never reach the database.
func (s *Store) Put(ctx context.Context, rec model.RequestRecord) error {
	if err := putRecord(ctx, s.db, rec); err != nil {
		return fmt.Errorf("put request %s: %w", rec.ID, err)
	}
	return nil
}

// MarkSynced sets a record's status to synced and refreshes updatedAt.
// Returns ErrNotFound (wrapped) if the id is unknown. Marking an already
// synced record is a no-op apart from updatedAt.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	if err := markSynced(ctx, s.db, id, s.now()); err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}
	return nil
}

// AppendLog appends one audit entry and returns its assigned seq.
// A zero Timestamp is filled with the store clock.
func (s *Store) AppendLog(ctx context.Context, entry model.SyncLogEntry) (int64, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	seq, err := appendLog(ctx, s.db, entry)
	if err != nil {
		return 0, fmt.Errorf("append log: %w", err)
	}
	return seq, nil
}

// Enqueue stores a record and its "enqueued" log entry atomically.
// Returns the seq of the log entry.
func (s *Store) Enqueue(ctx context.Context, rec model.RequestRecord, deviceID string) (int64, error) {
	var seq int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := putRecord(ctx, tx, rec); err != nil {
			return err
		}
		var err error
		seq, err = appendLog(ctx, tx, model.SyncLogEntry{
			RequestID: rec.ID,
			DeviceID:  deviceID,
			Action:    model.ActionEnqueued,
			Timestamp: s.now(),
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", rec.ID, err)
	}
	return seq, nil
}

// MarkSyncedAndLog marks a record synced and appends its "synced" log
// entry in one transaction.
func (s *Store) MarkSyncedAndLog(ctx context.Context, id, deviceID string) error {
	now := s.now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := markSynced(ctx, tx, id, now); err != nil {
			return err
		}
		_, err := appendLog(ctx, tx, model.SyncLogEntry{
			RequestID: id,
			DeviceID:  deviceID,
			Action:    model.ActionSynced,
			Timestamp: now,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}
	return nil
}

// CacheReplace atomically replaces the whole facility cache.
// Facilities without LastUpdatedAt are stamped with the store clock.
func (s *Store) CacheReplace(ctx context.Context, facilities []model.Facility) error {
	now := s.now()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM facilities`); err != nil {
			return err
		}
		for _, f := range facilities {
			updated := f.LastUpdatedAt
			if updated.IsZero() {
				updated = now
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO facilities
				(id, name, lat, lng, address, contact_phone, open_24x7, last_updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`,
				f.ID,
				f.Name,
				f.Location.Lat,
				f.Location.Lng,
				f.Address,
				f.ContactPhone,
				f.Open24x7,
				updated.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("facility %s: %w", f.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace facility cache: %w", err)
	}
	return nil
}

func (s *Store) now() time.Time {
	return model.Millis(s.clock.Now())
}

// withTx runs fn in a transaction, committing on nil and rolling back
// otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func putRecord(ctx context.Context, ex execer, rec model.RequestRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = rec.CreatedAt
	}

	// created_at is deliberately absent from the update list.
	_, err := ex.ExecContext(ctx, `
		INSERT INTO requests
		(id, origin_request_id, origin_device_id, blood_type, component_type, units,
		 urgency, contact_name, contact_phone, notes, lat, lng, status,
		 hop_count, max_hops, last_relayed_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			origin_request_id = excluded.origin_request_id,
			origin_device_id  = excluded.origin_device_id,
			blood_type        = excluded.blood_type,
			component_type    = excluded.component_type,
			units             = excluded.units,
			urgency           = excluded.urgency,
			contact_name      = excluded.contact_name,
			contact_phone     = excluded.contact_phone,
			notes             = excluded.notes,
			lat               = excluded.lat,
			lng               = excluded.lng,
			status            = excluded.status,
			hop_count         = excluded.hop_count,
			max_hops          = excluded.max_hops,
			last_relayed_by   = excluded.last_relayed_by,
			updated_at        = excluded.updated_at
	`,
		rec.ID,
		rec.OriginRequestID,
		rec.OriginDeviceID,
		string(rec.BloodType),
		string(rec.ComponentType),
		rec.Units,
		string(rec.Urgency),
		rec.ContactName,
		rec.ContactPhone,
		rec.Notes,
		rec.Location.Lat,
		rec.Location.Lng,
		string(rec.Status),
		rec.HopCount,
		rec.MaxHops,
		rec.LastRelayedBy,
		rec.CreatedAt.UnixMilli(),
		updated.UnixMilli(),
	)
	return err
}

func markSynced(ctx context.Context, ex execer, id string, now time.Time) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE requests SET status = ?, updated_at = ? WHERE id = ?
	`, string(model.StatusSynced), now.UnixMilli(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func appendLog(ctx context.Context, ex execer, entry model.SyncLogEntry) (int64, error) {
	if !entry.Action.Valid() {
		return 0, fmt.Errorf("unknown log action %q", entry.Action)
	}
	if entry.RequestID == "" {
		return 0, fmt.Errorf("log entry requires a request id")
	}
	res, err := ex.ExecContext(ctx, `
		INSERT INTO sync_log (request_id, device_id, action, timestamp)
		VALUES (?, ?, ?, ?)
	`,
		entry.RequestID,
		entry.DeviceID,
		string(entry.Action),
		entry.Timestamp.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
