// Package relay admits payloads received from peers and produces payloads
// for peers.
//
// A receive runs four checks in order and stops at the first failure:
// decode, TTL, duplicate, hop budget. An accepted payload becomes a new
// local copy with a fresh id and hopCount+1; createdAt is carried over so
// the TTL is measured from the original submission.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/roach88/lifeline/internal/clock"
	"github.com/roach88/lifeline/internal/codec"
	"github.com/roach88/lifeline/internal/ids"
	"github.com/roach88/lifeline/internal/metrics"
	"github.com/roach88/lifeline/internal/model"
)

// TTL is how long a request stays admissible after it was created.
const TTL = 48 * time.Hour

// Store is the subset of the local store the engine needs.
type Store interface {
	HasCopy(ctx context.Context, id, originRequestID string) (bool, error)
	Enqueue(ctx context.Context, rec model.RequestRecord, deviceID string) (int64, error)
	AppendLog(ctx context.Context, entry model.SyncLogEntry) (int64, error)
}

// Acceptance describes a payload admitted into the local store.
type Acceptance struct {
	Record   model.RequestRecord
	HopCount int

	// Seq is the sync log position of the "enqueued" entry.
	Seq int64
}

// Engine applies the relay rules for one device.
//
// Thread-safety: Receive and Generate are safe for concurrent use. Two
// concurrent receives of the same request may both pass the seen-set;
// the store is authoritative and callers must not rely on ordering between
// concurrent calls.
type Engine struct {
	deviceID string
	store    Store
	ids      ids.Generator
	clock    clock.Clock
	seen     *cache.Cache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for TTL checks and updatedAt.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the generator for local copy ids.
func WithIDGenerator(g ids.Generator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithMetrics records receive outcomes and generated payloads.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine acting as deviceID.
func New(deviceID string, s Store, opts ...Option) (*Engine, error) {
	if deviceID == "" {
		return nil, errors.New("relay: device id is required")
	}
	if s == nil {
		return nil, errors.New("relay: store is required")
	}

	e := &Engine{
		deviceID: deviceID,
		store:    s,
		ids:      ids.UUIDv7{},
		clock:    clock.System{},
		seen:     cache.New(TTL, time.Hour),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// DeviceID returns the id this engine stamps on copies and log entries.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Receive admits a transport string from a peer.
//
// Rejections are returned as *RejectError; any other error is a store
// failure and the payload may be retried.
func (e *Engine) Receive(ctx context.Context, payload string) (Acceptance, error) {
	acc, err := e.receive(ctx, payload)

	var re *RejectError
	switch {
	case err == nil:
		e.metrics.ObserveReceive(metrics.OutcomeAccepted)
		e.logger.Info("relay accepted",
			"request_id", acc.Record.OriginRequestID,
			"copy_id", acc.Record.ID,
			"hop_count", acc.HopCount,
		)
	case errors.As(err, &re):
		e.metrics.ObserveReceive(string(re.Reason))
		e.logger.Info("relay rejected",
			"reason", re.Reason,
			"request_id", re.RequestID,
			"detail", re.Detail,
		)
	default:
		e.logger.Error("relay receive failed", "error", err)
	}
	return acc, err
}

func (e *Engine) receive(ctx context.Context, payload string) (Acceptance, error) {
	in, err := codec.Decode(payload)
	if err != nil {
		return Acceptance{}, &RejectError{
			Reason: ReasonInvalidPayload,
			Detail: err.Error(),
			Err:    err,
		}
	}

	now := model.Millis(e.clock.Now())
	if age := now.Sub(in.CreatedAt); age > TTL {
		return Acceptance{}, &RejectError{
			Reason:    ReasonExpired,
			RequestID: in.OriginRequestID,
			Detail:    fmt.Sprintf("created %s ago, ttl %s", age.Truncate(time.Second), TTL),
		}
	}

	dup, err := e.isDuplicate(ctx, in)
	if err != nil {
		return Acceptance{}, fmt.Errorf("receive %s: %w", in.OriginRequestID, err)
	}
	if dup {
		return Acceptance{}, &RejectError{
			Reason:    ReasonDuplicate,
			RequestID: in.OriginRequestID,
			Detail:    "copy already held",
		}
	}

	if in.HopCount >= in.MaxHops {
		return Acceptance{}, &RejectError{
			Reason:    ReasonHopLimitExceeded,
			RequestID: in.OriginRequestID,
			Detail:    fmt.Sprintf("hop %d of %d", in.HopCount, in.MaxHops),
		}
	}

	local := in
	local.ID = e.ids.Generate()
	local.HopCount = in.HopCount + 1
	local.Status = model.StatusPendingSync
	local.LastRelayedBy = e.deviceID
	local.UpdatedAt = now

	seq, err := e.store.Enqueue(ctx, local, e.deviceID)
	if err != nil {
		return Acceptance{}, fmt.Errorf("receive %s: %w", in.OriginRequestID, err)
	}
	e.remember(local)

	return Acceptance{Record: local, HopCount: local.HopCount, Seq: seq}, nil
}

// isDuplicate checks the seen-set first and falls back to the store.
func (e *Engine) isDuplicate(ctx context.Context, in model.RequestRecord) (bool, error) {
	if _, ok := e.seen.Get(in.ID); ok {
		return true, nil
	}
	if _, ok := e.seen.Get(in.OriginRequestID); ok {
		return true, nil
	}

	held, err := e.store.HasCopy(ctx, in.ID, in.OriginRequestID)
	if err != nil {
		return false, err
	}
	return held, nil
}

// remember adds the ids a stored copy answers to.
func (e *Engine) remember(rec model.RequestRecord) {
	e.seen.SetDefault(rec.ID, struct{}{})
	e.seen.SetDefault(rec.OriginRequestID, struct{}{})
}

// Generate renders rec as a transport string for peers and logs a
// rebroadcast entry. The record itself is not modified; the receiver
// increments the hop count.
func (e *Engine) Generate(ctx context.Context, rec model.RequestRecord) (string, error) {
	payload, err := codec.Encode(rec)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", rec.ID, err)
	}

	_, err = e.store.AppendLog(ctx, model.SyncLogEntry{
		RequestID: rec.ID,
		DeviceID:  e.deviceID,
		Action:    model.ActionRebroadcast,
		Timestamp: model.Millis(e.clock.Now()),
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", rec.ID, err)
	}

	e.remember(rec)
	e.metrics.ObservePayload()
	e.logger.Debug("payload generated", "request_id", rec.OriginRequestID, "hop_count", rec.HopCount)
	return payload, nil
}
