// Package model defines the records exchanged by the relay core.
//
// A RequestRecord is one physical copy of a logical emergency request. Every
// copy descending from the same origin submission shares OriginRequestID, which
// is the deduplication key used both on-device and by the backend.
//
// Enumerations are string types so they persist and serialize verbatim. Each
// enumeration exposes an array of all valid values; codec tables are checked
// against these arrays at compile time.
package model
