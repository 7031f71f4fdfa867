package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/lifeline/internal/backend"
	"github.com/roach88/lifeline/internal/intake"
	"github.com/roach88/lifeline/internal/model"
	"github.com/roach88/lifeline/internal/relay"
	"github.com/roach88/lifeline/internal/store"
	"github.com/roach88/lifeline/internal/syncer"
	"github.com/roach88/lifeline/internal/testutil"
)

// Outcomes reported by steps that do not reject.
const (
	OutcomeAccepted  = "accepted"
	OutcomeSubmitted = "submitted"
	OutcomeOffline   = "offline"
	OutcomeOnline    = "online"

	// OutcomeNoCopy is reported when a relay sender holds no copy.
	OutcomeNoCopy = "NO_COPY"

	// OutcomeInvalidForm is reported when a submission fails validation.
	OutcomeInvalidForm = "INVALID_FORM"
)

// device is one simulated phone.
type device struct {
	id     string
	store  *store.Store
	relay  *relay.Engine
	intake *intake.Service
	sync   *syncer.Orchestrator
	online bool
}

// Harness executes scenarios against real stores and engines.
type Harness struct {
	clock   *testutil.ManualClock
	ids     *testutil.SequenceGenerator
	ledger  *backend.Ledger
	devices map[string]*device
	order   []string
	labels  map[string]string
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*options)

type options struct {
	start  time.Time
	logger *slog.Logger
}

// WithStart sets the shared clock's starting time. Defaults to testutil.Epoch.
func WithStart(t time.Time) Option {
	return func(o *options) {
		o.start = t
	}
}

// WithLogger routes component logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario and returns its trace.
//
// Each device runs on a fresh in-memory database. Expect mismatches and
// failed assertions are reported in Result.Errors; the returned error is
// reserved for failures of the simulation itself.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{
		start:  testutil.Epoch,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	h, err := newHarness(scenario, o)
	if err != nil {
		return nil, err
	}
	defer h.close()

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
		ev.Step = i
		ev.Action = step.Action
		ev.At = h.clock.Now().UnixMilli()
		result.Trace = append(result.Trace, ev)

		if step.Expect != "" && step.Expect != ev.Outcome {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected %q, got %q",
				i, step.Action, step.Expect, ev.Outcome))
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(ctx, a, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}

func newHarness(scenario *Scenario, o options) (*Harness, error) {
	h := &Harness{
		clock:   testutil.NewManualClock(o.start),
		ids:     testutil.NewSequenceGenerator(),
		devices: make(map[string]*device, len(scenario.Devices)),
		labels:  make(map[string]string),
		logger:  o.logger,
	}
	h.ledger = backend.NewLedger(
		backend.WithLedgerClock(h.clock),
		backend.WithLedgerLogger(o.logger.With("component", "ledger")),
	)

	maxHops := scenario.MaxHops
	if maxHops == 0 {
		maxHops = model.DefaultMaxHops
	}

	for _, id := range scenario.Devices {
		d, err := h.newDevice(id, maxHops)
		if err != nil {
			h.close()
			return nil, err
		}
		h.devices[id] = d
		h.order = append(h.order, id)
	}
	return h, nil
}

func (h *Harness) newDevice(id string, maxHops int) (*device, error) {
	st, err := store.Open(":memory:", store.WithClock(h.clock))
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", id, err)
	}

	d := &device{id: id, store: st, online: true}
	logger := h.logger.With("device", id)

	d.relay, err = relay.New(id, st,
		relay.WithClock(h.clock),
		relay.WithIDGenerator(h.ids),
		relay.WithLogger(logger),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	d.intake, err = intake.New(id, st,
		intake.WithClock(h.clock),
		intake.WithIDGenerator(h.ids),
		intake.WithMaxHops(maxHops),
		intake.WithLogger(logger),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	conn := syncer.ConnectivityFunc(func(context.Context) bool { return d.online })
	d.sync, err = syncer.New(id, st, h.ledger, conn,
		syncer.WithClock(h.clock),
		syncer.WithLogger(logger),
	)
	if err != nil {
		st.Close()
		return nil, err
	}
	return d, nil
}

func (h *Harness) close() {
	for _, id := range h.order {
		h.devices[id].store.Close()
	}
}

func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	switch step.Action {
	case StepSubmit:
		return h.submit(ctx, step)
	case StepRelay:
		return h.relay(ctx, step)
	case StepReceive:
		return h.receive(ctx, step)
	case StepSync:
		return h.sync(ctx, step)
	case StepOffline, StepOnline:
		d := h.devices[step.Device]
		d.online = step.Action == StepOnline
		return TraceEvent{Device: d.id, Outcome: step.Action}, nil
	case StepAdvance:
		dur, err := time.ParseDuration(step.Duration)
		if err != nil {
			return TraceEvent{}, err
		}
		h.clock.Advance(dur)
		return TraceEvent{Outcome: dur.String()}, nil
	default:
		return TraceEvent{}, fmt.Errorf("unknown action %q", step.Action)
	}
}

func (h *Harness) submit(ctx context.Context, step Step) (TraceEvent, error) {
	d := h.devices[step.Device]
	f := step.Form
	ev := TraceEvent{Device: d.id, Request: step.Request}

	rec, err := d.intake.Submit(ctx, intake.Form{
		BloodType:     model.BloodType(f.BloodType),
		ComponentType: model.ComponentType(f.Component),
		Units:         f.Units,
		Urgency:       model.Urgency(f.Urgency),
		ContactName:   f.ContactName,
		ContactPhone:  f.ContactPhone,
		Notes:         f.Notes,
		Location:      &model.Location{Lat: f.Lat, Lng: f.Lng},
	})
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		ev.Outcome = OutcomeInvalidForm
		return ev, nil
	case err != nil:
		return TraceEvent{}, err
	}

	h.labels[step.Request] = rec.OriginRequestID
	ev.CopyID = rec.ID
	ev.Outcome = OutcomeSubmitted
	return ev, nil
}

func (h *Harness) relay(ctx context.Context, step Step) (TraceEvent, error) {
	from, to := h.devices[step.From], h.devices[step.To]
	ev := TraceEvent{From: from.id, To: to.id, Request: step.Request}

	copies, err := h.copies(ctx, from, step.Request)
	if err != nil {
		return TraceEvent{}, err
	}
	if len(copies) == 0 {
		ev.Outcome = OutcomeNoCopy
		return ev, nil
	}

	sent := copies[0]
	payload, err := from.relay.Generate(ctx, sent)
	if err != nil {
		return TraceEvent{}, err
	}

	ev.HopCount = sent.HopCount
	acc, err := to.relay.Receive(ctx, payload)
	outcome, err := receiveOutcome(err)
	if err != nil {
		return TraceEvent{}, err
	}
	ev.Outcome = outcome
	if outcome == OutcomeAccepted {
		ev.CopyID = acc.Record.ID
		ev.HopCount = acc.HopCount
	}
	return ev, nil
}

func (h *Harness) receive(ctx context.Context, step Step) (TraceEvent, error) {
	d := h.devices[step.Device]
	ev := TraceEvent{Device: d.id}

	acc, err := d.relay.Receive(ctx, step.Payload)
	outcome, err := receiveOutcome(err)
	if err != nil {
		return TraceEvent{}, err
	}
	ev.Outcome = outcome
	if outcome == OutcomeAccepted {
		ev.CopyID = acc.Record.ID
		ev.HopCount = acc.HopCount
	}
	return ev, nil
}

// receiveOutcome maps a Receive error to a step outcome. Only store
// failures are returned as errors.
func receiveOutcome(err error) (string, error) {
	if err == nil {
		return OutcomeAccepted, nil
	}
	if reason, ok := relay.ReasonOf(err); ok {
		return string(reason), nil
	}
	return "", err
}

func (h *Harness) sync(ctx context.Context, step Step) (TraceEvent, error) {
	d := h.devices[step.Device]
	res, err := d.sync.Sync(ctx)
	if err != nil {
		return TraceEvent{}, err
	}

	ev := TraceEvent{Device: d.id}
	if res.Offline {
		ev.Outcome = OutcomeOffline
	} else {
		ev.Outcome = fmt.Sprintf("synced=%d failed=%d", res.Synced, len(res.Failures))
	}
	return ev, nil
}

// copies returns d's copies of the labelled request, oldest first.
func (h *Harness) copies(ctx context.Context, d *device, label string) ([]model.RequestRecord, error) {
	origin, ok := h.labels[label]
	if !ok {
		return []model.RequestRecord{}, nil
	}

	all, err := d.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.RequestRecord{}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].OriginRequestID == origin {
			out = append(out, all[i])
		}
	}
	return out, nil
}
