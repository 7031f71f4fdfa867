// Package facility maintains the cached blood bank directory and answers
// proximity queries against it.
package facility

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/roach88/lifeline/internal/clock"
	"github.com/roach88/lifeline/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for distances.
const EarthRadiusKm = 6371.0

// Store is the facility cache.
type Store interface {
	CacheReplace(ctx context.Context, facilities []model.Facility) error
	CacheReadAll(ctx context.Context) ([]model.Facility, error)
}

// Match is a facility with its distance from the query point.
type Match struct {
	model.Facility
	DistanceKm float64 `json:"distanceKm"`
}

// Service reads and refreshes the cache.
type Service struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a Service over st. A nil logger means slog.Default().
func New(st Store, c clock.Clock, logger *slog.Logger) *Service {
	if c == nil {
		c = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, clock: c, logger: logger}
}

// Refresh replaces the whole cache with facilities, stamping each with the
// current time.
func (s *Service) Refresh(ctx context.Context, facilities []model.Facility) error {
	now := model.Millis(s.clock.Now())
	stamped := make([]model.Facility, len(facilities))
	for i, f := range facilities {
		f.LastUpdatedAt = now
		stamped[i] = f
	}
	if err := validate(stamped); err != nil {
		return fmt.Errorf("refresh facilities: %w", err)
	}
	if err := s.store.CacheReplace(ctx, stamped); err != nil {
		return fmt.Errorf("refresh facilities: %w", err)
	}
	s.logger.Info("facility cache refreshed", "count", len(stamped))
	return nil
}

// All returns the cached facilities ordered by id.
func (s *Service) All(ctx context.Context) ([]model.Facility, error) {
	return s.store.CacheReadAll(ctx)
}

// Nearby returns cached facilities within radiusKm of from, nearest first.
// radiusKm <= 0 means no radius limit; limit <= 0 means no count limit.
// Ties break on id.
func (s *Service) Nearby(ctx context.Context, from model.Location, radiusKm float64, limit int) ([]Match, error) {
	if !from.Valid() {
		return nil, &model.ValidationError{Field: "location", Reason: "out of range"}
	}

	all, err := s.store.CacheReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("nearby facilities: %w", err)
	}

	matches := make([]Match, 0, len(all))
	for _, f := range all {
		d := Haversine(from, f.Location)
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		matches = append(matches, Match{Facility: f, DistanceKm: d})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].ID < matches[j].ID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Haversine returns the great-circle distance between a and b in km.
func Haversine(a, b model.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
