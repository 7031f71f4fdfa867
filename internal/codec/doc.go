// Package codec converts request records to and from the compact transport
// string exchanged between peers over QR codes or short-range radio.
//
// The payload is a flat canonical JSON object with short keys:
//
//	i   id                  oi  originRequestId     od  originDeviceId
//	bt  bloodType           ct  componentType token u   units
//	urg urgency token       l   [lat, lng] x 1e5    ts  createdAt (unix ms)
//	hc  hopCount            mh  maxHops (optional, default 5)
//
// Free-text and contact fields are never transported. Decoding tolerates
// unknown keys but rejects unknown enum tokens.
package codec
