package harness

import (
	"context"
	"fmt"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, actual %s", e.Type, e.Expected, e.Actual)
}

func (h *Harness) evaluate(ctx context.Context, a Assertion, result *Result) error {
	switch a.Type {
	case AssertCopies:
		copies, err := h.copies(ctx, h.devices[a.Device], a.Request)
		if err != nil {
			return err
		}
		if len(copies) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d copies of %s on %s", a.Count, a.Request, a.Device),
				Actual:   fmt.Sprintf("%d", len(copies)),
			}
		}

	case AssertStatus, AssertHopCount:
		copies, err := h.copies(ctx, h.devices[a.Device], a.Request)
		if err != nil {
			return err
		}
		if len(copies) == 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("a copy of %s on %s", a.Request, a.Device),
				Actual:   "none",
			}
		}
		rec := copies[0]
		if a.Type == AssertStatus && string(rec.Status) != a.Status {
			return &AssertionError{Type: a.Type, Expected: a.Status, Actual: string(rec.Status)}
		}
		if a.Type == AssertHopCount && rec.HopCount != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("hop %d", a.Count),
				Actual:   fmt.Sprintf("hop %d", rec.HopCount),
			}
		}

	case AssertBackend:
		seen := 0
		if e, ok := h.ledger.Get(h.labels[a.Request]); ok {
			seen = e.Copies
		}
		if seen != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d uploads of %s", a.Count, a.Request),
				Actual:   fmt.Sprintf("%d", seen),
			}
		}

	case AssertOutcomeCount:
		if n := result.Count(a.Outcome); n != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d steps with outcome %q", a.Count, a.Outcome),
				Actual:   fmt.Sprintf("%d", n),
			}
		}

	case AssertAudit:
		report, err := h.devices[a.Device].store.Audit(ctx)
		if err != nil {
			return err
		}
		if !report.Healthy() {
			return &AssertionError{
				Type:     a.Type,
				Expected: "healthy sync log",
				Actual: fmt.Sprintf("missing enqueue %v, missing synced %v",
					report.MissingEnqueue, report.MissingSynced),
			}
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
