package model

import (
	"time"
)

// DefaultMaxHops bounds relay distance when a request does not specify one.
const DefaultMaxHops = 5

// RelayedPlaceholder marks fields a receiver could not recover from a payload.
const RelayedPlaceholder = "Unknown/Relayed"

// Location is a WGS84 coordinate pair in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within WGS84 bounds.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// RequestRecord is one physical copy of a logical emergency request held by
// one device.
type RequestRecord struct {
	ID              string        `json:"id"`
	OriginRequestID string        `json:"originRequestId"`
	OriginDeviceID  string        `json:"originDeviceId"`
	BloodType       BloodType     `json:"bloodType"`
	ComponentType   ComponentType `json:"componentType"`
	Units           int           `json:"units"`
	Urgency         Urgency       `json:"urgency"`
	ContactName     string        `json:"contactName"`
	ContactPhone    string        `json:"contactPhone"`
	Notes           string        `json:"notes,omitempty"`
	Location        Location      `json:"location"`
	Status          Status        `json:"status"`
	HopCount        int           `json:"hopCount"`
	MaxHops         int           `json:"maxHops"`
	LastRelayedBy   string        `json:"lastRelayedBy"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// IsOrigin reports whether this copy is the one created by the user's
// submission rather than by a relay.
func (r RequestRecord) IsOrigin() bool {
	return r.HopCount == 0 && r.ID == r.OriginRequestID
}

// CanRelay reports whether a receiver of this copy would still be within the
// hop budget.
func (r RequestRecord) CanRelay() bool {
	return r.HopCount < r.MaxHops
}

// Validate checks the record's invariants.
func (r RequestRecord) Validate() error {
	switch {
	case r.ID == "":
		return &ValidationError{Field: "id", Reason: "is required"}
	case r.OriginRequestID == "":
		return &ValidationError{Field: "originRequestId", Reason: "is required"}
	case r.OriginDeviceID == "":
		return &ValidationError{Field: "originDeviceId", Reason: "is required"}
	case !r.BloodType.Valid():
		return &ValidationError{Field: "bloodType", Reason: "unknown value " + quote(string(r.BloodType))}
	case !r.ComponentType.Valid():
		return &ValidationError{Field: "componentType", Reason: "unknown value " + quote(string(r.ComponentType))}
	case !r.Urgency.Valid():
		return &ValidationError{Field: "urgency", Reason: "unknown value " + quote(string(r.Urgency))}
	case r.Units <= 0:
		return &ValidationError{Field: "units", Reason: "must be positive"}
	case !r.Location.Valid():
		return &ValidationError{Field: "location", Reason: "out of range"}
	case !r.Status.Valid():
		return &ValidationError{Field: "status", Reason: "unknown value " + quote(string(r.Status))}
	case r.MaxHops < 1:
		return &ValidationError{Field: "maxHops", Reason: "must be at least 1"}
	case r.HopCount < 0:
		return &ValidationError{Field: "hopCount", Reason: "must not be negative"}
	case r.HopCount > r.MaxHops:
		return &ValidationError{Field: "hopCount", Reason: "exceeds maxHops"}
	case r.CreatedAt.IsZero():
		return &ValidationError{Field: "createdAt", Reason: "is required"}
	}
	return nil
}

// SyncLogEntry is an append-only audit fact. Seq is assigned by the store.
type SyncLogEntry struct {
	Seq       int64     `json:"seq"`
	RequestID string    `json:"requestId"`
	DeviceID  string    `json:"deviceId"`
	Action    LogAction `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Facility is a cached blood bank directory entry.
type Facility struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Location      Location  `json:"location" yaml:"location"`
	Address       string    `json:"address" yaml:"address"`
	ContactPhone  string    `json:"contactPhone" yaml:"contact_phone"`
	Open24x7      bool      `json:"open24x7" yaml:"open_24x7"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt" yaml:"-"`
}

// Millis drops sub-millisecond precision and the monotonic reading, and
// normalizes to UTC. Persisted and transported times round-trip exactly
// through this form.
func Millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
