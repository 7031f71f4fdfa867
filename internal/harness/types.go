package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step     int    `json:"step"`
	Action   string `json:"action"`
	Device   string `json:"device,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Request  string `json:"request,omitempty"`
	CopyID   string `json:"copy_id,omitempty"`
	HopCount int    `json:"hop_count"`
	Outcome  string `json:"outcome"`

	// At is the shared clock after the step, in unix milliseconds.
	At int64 `json:"at"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events with the given outcome.
func (r *Result) Count(outcome string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Outcome == outcome {
			n++
		}
	}
	return n
}
