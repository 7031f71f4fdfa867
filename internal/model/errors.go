package model

import "strconv"

// ValidationError reports a record field that violates an invariant.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func quote(s string) string {
	return strconv.Quote(s)
}
