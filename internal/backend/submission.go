package backend

import (
	"time"

	"github.com/roach88/lifeline/internal/model"
	"github.com/roach88/lifeline/internal/syncer"
)

// Submission is the ingestion request body.
type Submission struct {
	model.RequestRecord
	SyncedFromDeviceID string `json:"syncedFromDeviceId"`
	SyncMethod         string `json:"syncMethod"`
}

// NewSubmission converts a sync upload to its wire form.
func NewSubmission(u syncer.Upload) Submission {
	return Submission{
		RequestRecord:      u.Record,
		SyncedFromDeviceID: u.SyncedFromDeviceID,
		SyncMethod:         u.SyncMethod,
	}
}

// Entry is one logical request held by the ledger.
type Entry struct {
	Submission

	// ReceivedAt is when the first copy arrived.
	ReceivedAt time.Time `json:"receivedAt"`

	// Copies counts every upload for this originRequestId, including
	// rejected duplicates.
	Copies int `json:"copies"`
}
