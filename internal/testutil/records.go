package testutil

import (
	"time"

	"github.com/roach88/lifeline/internal/model"
)

// NewOrigin builds a valid origin record created at the given time.
// Tests override fields on the returned value as needed.
func NewOrigin(id, deviceID string, createdAt time.Time) model.RequestRecord {
	createdAt = model.Millis(createdAt)
	return model.RequestRecord{
		ID:              id,
		OriginRequestID: id,
		OriginDeviceID:  deviceID,
		BloodType:       model.BloodTypeONeg,
		ComponentType:   model.ComponentWholeBlood,
		Units:           2,
		Urgency:         model.UrgencyCritical,
		ContactName:     "Dr. Rao",
		ContactPhone:    "+91-9000000000",
		Location:        model.Location{Lat: 17.42541, Lng: 78.45151},
		Status:          model.StatusPendingSync,
		HopCount:        0,
		MaxHops:         model.DefaultMaxHops,
		LastRelayedBy:   deviceID,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}
