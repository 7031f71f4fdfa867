// Package store provides SQLite-backed durable storage for one Lifeline
// device.
//
// The store holds three tables:
//   - requests: every RequestRecord the device created or received
//   - sync_log: append-only audit entries (enqueued, rebroadcast, synced)
//   - facilities: the read-only facility cache, replaced wholesale
//
// # Guarantees
//
// Records are never deleted and createdAt never changes once written;
// both are enforced by triggers so a bug above the store cannot break them.
// The sync log rejects UPDATE and DELETE the same way.
//
// Enqueue and MarkSyncedAndLog write the record change and its log entry in
// one transaction, so a crash never leaves a record without its audit entry.
//
// # Ordering
//
// ListAll returns newest first; ListPendingSync returns oldest first so the
// earliest emergencies reach the backend first. Ties break on id so results
// are deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
