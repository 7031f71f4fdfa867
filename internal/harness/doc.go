// Package harness runs multi-device relay simulations.
//
// A scenario names a set of devices and a list of steps. Every device gets
// its own in-memory store, relay engine, intake service and sync
// orchestrator; all devices share one manual clock, one id sequence and one
// backend ledger, so a run is fully deterministic.
//
// # Scenario Format
//
//	name: relay_chain
//	description: "Request crosses three phones and reaches the backend"
//	devices: [alpha, bravo, charlie]
//	max_hops: 5
//	steps:
//	  - action: submit
//	    device: alpha
//	    request: r1
//	    form: { blood_type: O-, component: WHOLE_BLOOD, units: 2, urgency: CRITICAL,
//	            contact_name: "Dr. Rao", contact_phone: "+91-9000000000",
//	            lat: 17.42541, lng: 78.45151 }
//	  - action: relay
//	    from: alpha
//	    to: bravo
//	    request: r1
//	    expect: accepted
//	  - action: sync
//	    device: bravo
//	    expect: synced=1 failed=0
//	  - action: advance
//	    duration: 49h
//	assertions:
//	  - type: copies
//	    device: bravo
//	    request: r1
//	    count: 1
//
// # Step Actions
//
//   - submit: origin submission on device; request labels the new request
//   - relay: generate a payload from the sender's copy and receive it on to
//   - receive: admit a raw payload string on device
//   - sync: one sync pass on device against the shared ledger
//   - offline, online: toggle the device's connectivity
//   - advance: move the shared clock forward by duration
//
// Relay and receive steps produce "accepted" or a rejection reason such as
// DUPLICATE. Sync steps produce "offline" or "synced=N failed=M".
//
// # Assertion Types
//
//   - copies: number of copies of request held by device
//   - status: status of device's copy of request
//   - hop_count: hop count of device's copy of request
//   - backend: copies of request the ledger has seen (0 means absent)
//   - outcome_count: number of steps whose outcome equals outcome
//   - audit: device's records and sync log agree
package harness
