package codec

import "errors"

// ErrInvalidPayload is matched by every decode failure.
var ErrInvalidPayload = errors.New("invalid payload")

// DecodeError describes why a transport string could not be decoded.
type DecodeError struct {
	// Field is the short payload key at fault, empty for structural errors.
	Field string

	// Reason is a human-readable description.
	Reason string

	// Err is the underlying parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := "invalid payload"
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidPayload) hold for every DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidPayload
}
