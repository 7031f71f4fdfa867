package relay

import (
	"errors"
	"fmt"
)

// Reason classifies why a payload was not admitted.
type Reason string

const (
	// ReasonInvalidPayload: the payload is malformed or violates a field rule.
	ReasonInvalidPayload Reason = "INVALID_PAYLOAD"

	// ReasonExpired: the request is older than TTL.
	ReasonExpired Reason = "EXPIRED"

	// ReasonDuplicate: this device already holds a copy of the request.
	ReasonDuplicate Reason = "DUPLICATE"

	// ReasonHopLimitExceeded: accepting would exceed the request's hop budget.
	ReasonHopLimitExceeded Reason = "HOP_LIMIT_EXCEEDED"
)

// RejectError reports a payload that was refused. Rejections are terminal
// for that receive; the store is untouched.
type RejectError struct {
	Reason Reason

	// RequestID is the payload's origin request id, when it could be decoded.
	RequestID string

	// Detail is a human-readable description.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RejectError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%s: %s (request=%s)", e.Reason, e.Detail, e.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Unwrap returns the underlying cause.
func (e *RejectError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the rejection reason from err.
// Uses errors.As to handle wrapped errors.
func ReasonOf(err error) (Reason, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// IsRejection reports whether err is a payload rejection rather than an
// I/O failure.
func IsRejection(err error) bool {
	_, ok := ReasonOf(err)
	return ok
}
