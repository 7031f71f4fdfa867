// Package syncer uploads pending records to the backend when the device is
// online.
//
// A pass is anti-entropy, not a queue drain: every pending record is tried
// independently, failures leave the record pending for the next pass, and
// the backend de-duplicates on originRequestId. Delivery is at-least-once.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gammazero/workerpool"

	"github.com/roach88/lifeline/internal/clock"
	"github.com/roach88/lifeline/internal/metrics"
	"github.com/roach88/lifeline/internal/model"
)

// MethodBatchUpload is the syncMethod reported for uploads made by Sync.
const MethodBatchUpload = "BATCH_UPLOAD"

// Upload is one record on its way to the backend.
type Upload struct {
	Record             model.RequestRecord
	SyncedFromDeviceID string
	SyncMethod         string
}

// Backend accepts uploads. Implementations must treat a record the backend
// already holds as success.
type Backend interface {
	Upload(ctx context.Context, u Upload) error
}

// Connectivity reports whether the backend is worth trying.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(ctx context.Context) bool

// Online calls f.
func (f ConnectivityFunc) Online(ctx context.Context) bool {
	return f(ctx)
}

// AlwaysOnline is a Connectivity that never reports offline.
var AlwaysOnline = ConnectivityFunc(func(context.Context) bool { return true })

// Store is the subset of the local store Sync needs.
type Store interface {
	ListPendingSync(ctx context.Context) ([]model.RequestRecord, error)
	MarkSyncedAndLog(ctx context.Context, id, deviceID string) error
}

// Result summarizes one pass.
type Result struct {
	// Offline is set when the pass was skipped by the connectivity check.
	Offline bool

	// Pending is the number of records found awaiting upload.
	Pending int

	// Synced is the number of records uploaded and marked synced.
	Synced int

	// Skipped counts records not attempted because the context ended.
	Skipped int

	// Failures lists records that were attempted and failed, by request id.
	Failures []UploadError
}

// Orchestrator runs sync passes for one device.
//
// Thread-safety: Sync is safe for concurrent use; passes are serialized.
type Orchestrator struct {
	deviceID    string
	store       Store
	backend     Backend
	conn        Connectivity
	concurrency int
	clock       clock.Clock
	metrics     *metrics.Metrics
	logger      *slog.Logger

	mu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets how many uploads may be in flight. Default: 1.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// WithClock sets the clock used to time passes.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithMetrics records pass outcomes and upload results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// New creates an Orchestrator. A nil Connectivity means AlwaysOnline.
func New(deviceID string, st Store, backend Backend, conn Connectivity, opts ...Option) (*Orchestrator, error) {
	if deviceID == "" {
		return nil, errors.New("syncer: device id is required")
	}
	if st == nil || backend == nil {
		return nil, errors.New("syncer: store and backend are required")
	}
	if conn == nil {
		conn = AlwaysOnline
	}

	o := &Orchestrator{
		deviceID:    deviceID,
		store:       st,
		backend:     backend,
		conn:        conn,
		concurrency: 1,
		clock:       clock.System{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency < 1 {
		return nil, fmt.Errorf("syncer: concurrency must be at least 1, got %d", o.concurrency)
	}
	return o, nil
}

// Sync runs one pass: if online, every pending record is uploaded and, on
// success, marked synced with a "synced" log entry.
//
// Per-record failures do not fail the pass; they are reported in
// Result.Failures. The returned error is non-nil only when the pending list
// cannot be read or ctx ends mid-pass; in the latter case the partial
// Result is still returned.
func (o *Orchestrator) Sync(ctx context.Context) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := o.clock.Now()

	if !o.conn.Online(ctx) {
		o.logger.Info("sync skipped: offline")
		o.metrics.ObserveSync("offline", o.clock.Now().Sub(start))
		return Result{Offline: true}, nil
	}

	pending, err := o.store.ListPendingSync(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("sync: %w", err)
	}
	o.metrics.SetPending(len(pending))

	res := Result{Pending: len(pending), Failures: []UploadError{}}
	if len(pending) == 0 {
		o.metrics.ObserveSync("ok", o.clock.Now().Sub(start))
		return res, nil
	}

	var mu sync.Mutex
	wp := workerpool.New(o.concurrency)
	for i, rec := range pending {
		rec := rec
		if ctx.Err() != nil {
			mu.Lock()
			res.Skipped += len(pending) - i
			mu.Unlock()
			break
		}
		wp.Submit(func() {
			outcome := o.syncOne(ctx, rec)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.skipped:
				res.Skipped++
			case outcome.err != nil:
				res.Failures = append(res.Failures, UploadError{RequestID: rec.ID, Err: outcome.err})
			default:
				res.Synced++
			}
		})
	}
	wp.StopWait()

	sort.Slice(res.Failures, func(i, j int) bool {
		return res.Failures[i].RequestID < res.Failures[j].RequestID
	})

	label := "ok"
	switch {
	case ctx.Err() != nil && res.Skipped > 0:
		label = "canceled"
	case len(res.Failures) > 0:
		label = "partial"
	}
	o.metrics.ObserveSync(label, o.clock.Now().Sub(start))
	o.logger.Info("sync finished",
		"pending", res.Pending,
		"synced", res.Synced,
		"failed", len(res.Failures),
		"skipped", res.Skipped,
	)

	if res.Skipped > 0 {
		return res, fmt.Errorf("sync interrupted: %w", ctx.Err())
	}
	return res, nil
}

type outcome struct {
	skipped bool
	err     error
}

func (o *Orchestrator) syncOne(ctx context.Context, rec model.RequestRecord) outcome {
	if ctx.Err() != nil {
		return outcome{skipped: true}
	}

	err := o.backend.Upload(ctx, Upload{
		Record:             rec,
		SyncedFromDeviceID: o.deviceID,
		SyncMethod:         MethodBatchUpload,
	})
	o.metrics.ObserveUpload(err == nil)
	if err != nil {
		o.logger.Warn("upload failed", "request_id", rec.ID, "error", err)
		return outcome{err: err}
	}

	// The backend has the record; record that even if ctx ended meanwhile.
	if err := o.store.MarkSyncedAndLog(context.WithoutCancel(ctx), rec.ID, o.deviceID); err != nil {
		o.logger.Error("mark synced failed", "request_id", rec.ID, "error", err)
		return outcome{err: fmt.Errorf("mark synced: %w", err)}
	}
	o.logger.Debug("record synced", "request_id", rec.ID)
	return outcome{}
}
