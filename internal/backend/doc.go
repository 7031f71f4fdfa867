// Package backend talks to the central ingestion service and provides an
// in-process reference implementation of it.
//
// # Ingestion contract
//
//	POST {base}/requests   full record (long JSON names) plus
//	                       syncedFromDeviceId and syncMethod
//	                       201 ingested, 409 already held, 400 invalid
//	GET  {base}/requests   every ingested record
//	GET  {base}/healthz    2xx when reachable
//
// The service de-duplicates on originRequestId, so devices may upload the
// same logical request any number of times from any number of copies.
// Client treats 409 as success for that reason.
package backend
