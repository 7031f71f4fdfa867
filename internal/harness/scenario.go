package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a multi-device simulation.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Devices lists device ids. Steps may only refer to these.
	Devices []string `yaml:"devices"`

	// MaxHops is the hop budget for submitted requests; zero uses the default.
	MaxHops int `yaml:"max_hops,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one action in a scenario.
type Step struct {
	Action   string    `yaml:"action"`
	Device   string    `yaml:"device,omitempty"`
	From     string    `yaml:"from,omitempty"`
	To       string    `yaml:"to,omitempty"`
	Request  string    `yaml:"request,omitempty"`
	Form     *FormSpec `yaml:"form,omitempty"`
	Payload  string    `yaml:"payload,omitempty"`
	Duration string    `yaml:"duration,omitempty"`

	// Expect, when set, must equal the step's outcome.
	Expect string `yaml:"expect,omitempty"`
}

// FormSpec is the YAML form of an origin submission.
type FormSpec struct {
	BloodType    string  `yaml:"blood_type"`
	Component    string  `yaml:"component"`
	Units        int     `yaml:"units"`
	Urgency      string  `yaml:"urgency"`
	ContactName  string  `yaml:"contact_name"`
	ContactPhone string  `yaml:"contact_phone"`
	Notes        string  `yaml:"notes,omitempty"`
	Lat          float64 `yaml:"lat"`
	Lng          float64 `yaml:"lng"`
}

// Assertion checks final state after all steps ran.
type Assertion struct {
	Type    string `yaml:"type"`
	Device  string `yaml:"device,omitempty"`
	Request string `yaml:"request,omitempty"`
	Status  string `yaml:"status,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`
}

// Step actions.
const (
	StepSubmit  = "submit"
	StepRelay   = "relay"
	StepReceive = "receive"
	StepSync    = "sync"
	StepOffline = "offline"
	StepOnline  = "online"
	StepAdvance = "advance"
)

// Assertion types.
const (
	AssertCopies       = "copies"
	AssertStatus       = "status"
	AssertHopCount     = "hop_count"
	AssertBackend      = "backend"
	AssertOutcomeCount = "outcome_count"
	AssertAudit        = "audit"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Devices) == 0 {
		return fmt.Errorf("devices list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.MaxHops < 0 {
		return fmt.Errorf("max_hops must be non-negative")
	}

	devices := make(map[string]bool, len(s.Devices))
	for i, d := range s.Devices {
		if d == "" {
			return fmt.Errorf("devices[%d]: empty device id", i)
		}
		if devices[d] {
			return fmt.Errorf("devices[%d]: duplicate device %q", i, d)
		}
		devices[d] = true
	}

	known := func(field, name string) error {
		if name == "" {
			return fmt.Errorf("%s is required", field)
		}
		if !devices[name] {
			return fmt.Errorf("%s: unknown device %q", field, name)
		}
		return nil
	}

	labels := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(step, known, labels); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, known, labels); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step, known func(string, string) error, labels map[string]bool) error {
	switch step.Action {
	case StepSubmit:
		if err := known("device", step.Device); err != nil {
			return err
		}
		if step.Request == "" {
			return fmt.Errorf("request label is required for submit")
		}
		if labels[step.Request] {
			return fmt.Errorf("request label %q already used", step.Request)
		}
		if step.Form == nil {
			return fmt.Errorf("form is required for submit")
		}
		labels[step.Request] = true
	case StepRelay:
		if err := known("from", step.From); err != nil {
			return err
		}
		if err := known("to", step.To); err != nil {
			return err
		}
		if !labels[step.Request] {
			return fmt.Errorf("relay of unknown request %q", step.Request)
		}
	case StepReceive:
		if err := known("device", step.Device); err != nil {
			return err
		}
	case StepSync, StepOffline, StepOnline:
		if err := known("device", step.Device); err != nil {
			return err
		}
	case StepAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("duration must not be negative")
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

func validateAssertion(a Assertion, known func(string, string) error, labels map[string]bool) error {
	needRequest := func() error {
		if !labels[a.Request] {
			return fmt.Errorf("unknown request %q", a.Request)
		}
		return nil
	}

	switch a.Type {
	case AssertCopies, AssertHopCount:
		if err := known("device", a.Device); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
		return needRequest()
	case AssertStatus:
		if err := known("device", a.Device); err != nil {
			return err
		}
		if a.Status == "" {
			return fmt.Errorf("status is required")
		}
		return needRequest()
	case AssertBackend:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
		return needRequest()
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("outcome is required")
		}
	case AssertAudit:
		return known("device", a.Device)
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
