// Package intake creates origin requests from user submissions.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/lifeline/internal/clock"
	"github.com/roach88/lifeline/internal/ids"
	"github.com/roach88/lifeline/internal/metrics"
	"github.com/roach88/lifeline/internal/model"
)

// Form is what a requester fills in. Location is required; the caller is
// responsible for obtaining it.
type Form struct {
	BloodType     model.BloodType
	ComponentType model.ComponentType
	Units         int
	Urgency       model.Urgency
	ContactName   string
	ContactPhone  string
	Notes         string
	Location      *model.Location
}

// Store is the subset of the local store Submit needs.
type Store interface {
	Enqueue(ctx context.Context, rec model.RequestRecord, deviceID string) (int64, error)
}

// Service turns forms into origin records.
type Service struct {
	deviceID string
	store    Store
	ids      ids.Generator
	clock    clock.Clock
	maxHops  int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for createdAt.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithIDGenerator sets the generator for request ids.
func WithIDGenerator(g ids.Generator) Option {
	return func(s *Service) {
		s.ids = g
	}
}

// WithMaxHops sets the hop budget stamped on new requests.
// Default: model.DefaultMaxHops.
func WithMaxHops(n int) Option {
	return func(s *Service) {
		s.maxHops = n
	}
}

// WithMetrics counts submissions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a Service submitting as deviceID.
func New(deviceID string, st Store, opts ...Option) (*Service, error) {
	if deviceID == "" {
		return nil, errors.New("intake: device id is required")
	}
	if st == nil {
		return nil, errors.New("intake: store is required")
	}

	s := &Service{
		deviceID: deviceID,
		store:    st,
		ids:      ids.UUIDv7{},
		clock:    clock.System{},
		maxHops:  model.DefaultMaxHops,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxHops < 1 {
		return nil, fmt.Errorf("intake: max hops must be at least 1, got %d", s.maxHops)
	}
	return s, nil
}

// Submit validates the form and stores a new origin record: hop 0, origin
// id equal to its own id, status pending_sync. The "enqueued" log entry is
// written in the same transaction.
//
// Invalid forms return *model.ValidationError and store nothing.
func (s *Service) Submit(ctx context.Context, f Form) (model.RequestRecord, error) {
	if f.Location == nil {
		return model.RequestRecord{}, &model.ValidationError{Field: "location", Reason: "is required"}
	}

	now := model.Millis(s.clock.Now())
	id := s.ids.Generate()
	rec := model.RequestRecord{
		ID:              id,
		OriginRequestID: id,
		OriginDeviceID:  s.deviceID,
		BloodType:       f.BloodType,
		ComponentType:   f.ComponentType,
		Units:           f.Units,
		Urgency:         f.Urgency,
		ContactName:     strings.TrimSpace(f.ContactName),
		ContactPhone:    strings.TrimSpace(f.ContactPhone),
		Notes:           strings.TrimSpace(f.Notes),
		Location:        *f.Location,
		Status:          model.StatusPendingSync,
		HopCount:        0,
		MaxHops:         s.maxHops,
		LastRelayedBy:   s.deviceID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := rec.Validate(); err != nil {
		return model.RequestRecord{}, err
	}

	if _, err := s.store.Enqueue(ctx, rec, s.deviceID); err != nil {
		return model.RequestRecord{}, fmt.Errorf("submit: %w", err)
	}

	s.metrics.ObserveSubmit()
	s.logger.Info("request submitted",
		"request_id", rec.ID,
		"blood_type", rec.BloodType,
		"urgency", rec.Urgency,
	)
	return rec, nil
}
