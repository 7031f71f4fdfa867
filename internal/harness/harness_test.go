package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lifeline/internal/testutil"
)

const submitStep = `
  - action: submit
    device: a
    request: r1
    form:
      blood_type: B+
      component: PLATELETS
      units: 1
      urgency: HIGH
      contact_name: "Ward 4"
      contact_phone: "+91-9000000001"
      lat: 17.4
      lng: 78.5
`

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return scenario
}

func TestRun_HopLimit(t *testing.T) {
	scenario := mustParse(t, `
name: hop_limit
devices: [a, b, c, d]
max_hops: 2
steps:`+submitStep+`
  - action: relay
    from: a
    to: b
    request: r1
    expect: accepted
  - action: relay
    from: b
    to: c
    request: r1
    expect: accepted
  - action: relay
    from: c
    to: d
    request: r1
    expect: HOP_LIMIT_EXCEEDED
assertions:
  - type: hop_count
    device: c
    request: r1
    count: 2
  - type: copies
    device: d
    request: r1
    count: 0
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, 2, result.Trace[3].HopCount)
	assert.Empty(t, result.Trace[3].CopyID)
}

func TestRun_ReceiveAndNoCopy(t *testing.T) {
	scenario := mustParse(t, `
name: odd_inputs
devices: [a, b]
steps:
  - action: receive
    device: a
    payload: "not a payload"
`+submitStep+`
  - action: relay
    from: b
    to: a
    request: r1
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, "INVALID_PAYLOAD", result.Trace[0].Outcome)
	assert.Equal(t, OutcomeSubmitted, result.Trace[1].Outcome)
	assert.Equal(t, testutil.SequenceID(1), result.Trace[1].CopyID)
	assert.Equal(t, OutcomeNoCopy, result.Trace[2].Outcome)
}

func TestRun_InvalidForm(t *testing.T) {
	scenario := mustParse(t, `
name: bad_form
devices: [a, b]
steps:
  - action: submit
    device: a
    request: r1
    form:
      blood_type: C+
      component: WHOLE_BLOOD
      units: 1
      urgency: LOW
      contact_name: x
      contact_phone: y
      lat: 1
      lng: 1
    expect: INVALID_FORM
  - action: relay
    from: a
    to: b
    request: r1
    expect: NO_COPY
assertions:
  - type: backend
    request: r1
    count: 0
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectMismatch(t *testing.T) {
	scenario := mustParse(t, `
name: mismatch
devices: [a, b]
steps:`+submitStep+`
  - action: relay
    from: a
    to: b
    request: r1
    expect: DUPLICATE
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected "DUPLICATE", got "accepted"`)
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_world
devices: [a, b]
steps:`+submitStep+`
assertions:
  - type: backend
    request: r1
    count: 1
  - type: status
    device: b
    request: r1
    status: synced
  - type: status
    device: a
    request: r1
    status: synced
  - type: outcome_count
    outcome: submitted
    count: 1
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertions[0]: backend")
	assert.Contains(t, result.Errors[1], "actual none")
	assert.Contains(t, result.Errors[2], "expected synced, actual pending_sync")
}

func TestRun_OfflineKeepsPending(t *testing.T) {
	scenario := mustParse(t, `
name: offline
devices: [a]
steps:`+submitStep+`
  - action: offline
    device: a
  - action: sync
    device: a
    expect: offline
  - action: online
    device: a
  - action: sync
    device: a
    expect: synced=1 failed=0
  - action: sync
    device: a
    expect: synced=0 failed=0
assertions:
  - type: status
    device: a
    request: r1
    status: synced
  - type: backend
    request: r1
    count: 1
  - type: audit
    device: a
`)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StartOption(t *testing.T) {
	scenario := mustParse(t, `
name: start
devices: [a]
steps:
  - action: advance
    duration: 90s
`)

	result, err := Run(context.Background(), scenario, WithStart(testutil.Epoch.Add(-90*time.Second)))
	require.NoError(t, err)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, testutil.Epoch.UnixMilli(), result.Trace[0].At)
	assert.Equal(t, "1m30s", result.Trace[0].Outcome)
}
