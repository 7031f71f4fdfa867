package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() RequestRecord {
	created := time.UnixMilli(1_700_000_000_000).UTC()
	return RequestRecord{
		ID:              "req-1",
		OriginRequestID: "req-1",
		OriginDeviceID:  "device-a",
		BloodType:       BloodTypeONeg,
		ComponentType:   ComponentWholeBlood,
		Units:           2,
		Urgency:         UrgencyCritical,
		Location:        Location{Lat: 17.4, Lng: 78.4},
		Status:          StatusPendingSync,
		HopCount:        0,
		MaxHops:         DefaultMaxHops,
		LastRelayedBy:   "device-a",
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func TestUrgency_Ordering(t *testing.T) {
	assert.True(t, UrgencyCritical.MoreUrgentThan(UrgencyHigh))
	assert.True(t, UrgencyHigh.MoreUrgentThan(UrgencyMedium))
	assert.True(t, UrgencyMedium.MoreUrgentThan(UrgencyLow))
	assert.False(t, UrgencyLow.MoreUrgentThan(UrgencyLow))
	assert.Equal(t, 0, Urgency("PANIC").Rank())
	assert.False(t, Urgency("PANIC").Valid())
}

func TestEnums_Valid(t *testing.T) {
	assert.Len(t, BloodTypes, 8)
	for _, bt := range BloodTypes {
		assert.True(t, bt.Valid(), bt)
	}
	assert.False(t, BloodType("C+").Valid())

	assert.Len(t, ComponentTypes, 3)
	assert.False(t, ComponentType("SERUM").Valid())

	for _, s := range Statuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("lost").Valid())

	assert.True(t, ActionRebroadcast.Valid())
	assert.False(t, LogAction("deleted").Valid())
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validRecord().Validate())
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RequestRecord)
		field  string
	}{
		{"missing id", func(r *RequestRecord) { r.ID = "" }, "id"},
		{"missing origin", func(r *RequestRecord) { r.OriginRequestID = "" }, "originRequestId"},
		{"bad blood type", func(r *RequestRecord) { r.BloodType = "Z" }, "bloodType"},
		{"bad component", func(r *RequestRecord) { r.ComponentType = "SERUM" }, "componentType"},
		{"bad urgency", func(r *RequestRecord) { r.Urgency = "SOON" }, "urgency"},
		{"zero units", func(r *RequestRecord) { r.Units = 0 }, "units"},
		{"bad latitude", func(r *RequestRecord) { r.Location.Lat = 91 }, "location"},
		{"hop above max", func(r *RequestRecord) { r.HopCount = 6 }, "hopCount"},
		{"negative hop", func(r *RequestRecord) { r.HopCount = -1 }, "hopCount"},
		{"zero max hops", func(r *RequestRecord) { r.MaxHops = 0 }, "maxHops"},
		{"missing createdAt", func(r *RequestRecord) { r.CreatedAt = time.Time{} }, "createdAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			err := rec.Validate()
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRequestRecord_OriginAndRelay(t *testing.T) {
	rec := validRecord()
	assert.True(t, rec.IsOrigin())
	assert.True(t, rec.CanRelay())

	rec.ID = "copy-2"
	rec.HopCount = rec.MaxHops
	assert.False(t, rec.IsOrigin())
	assert.False(t, rec.CanRelay())
}

func TestMillis(t *testing.T) {
	in := time.Date(2025, 3, 1, 10, 0, 0, 123_456_789, time.FixedZone("IST", 19800))
	out := Millis(in)

	assert.Equal(t, time.UTC, out.Location())
	assert.Equal(t, in.UnixMilli(), out.UnixMilli())
	assert.Equal(t, 123_000_000, out.Nanosecond())
	assert.True(t, out.Equal(Millis(out)))
}
