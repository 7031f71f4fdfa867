// Package ids generates record identifiers.
package ids

import (
	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	Generate() string
}

// UUIDv7 generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a millisecond timestamp in the most significant bits, so
// copies created later sort after earlier ones even across devices with no
// coordination.
//
// Thread-safety: UUIDv7 is stateless and safe for concurrent use.
type UUIDv7 struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if the system random source fails.
func (UUIDv7) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
