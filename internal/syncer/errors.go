package syncer

import "fmt"

// UploadError reports one record that could not be delivered. The record
// stays pending_sync and is retried on the next pass.
type UploadError struct {
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.RequestID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UploadError) Unwrap() error {
	return e.Err
}
