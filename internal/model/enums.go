package model

// BloodType is one of the eight ABO/Rh groups.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
)

// BloodTypes lists every valid BloodType.
var BloodTypes = [...]BloodType{
	BloodTypeAPos, BloodTypeANeg,
	BloodTypeBPos, BloodTypeBNeg,
	BloodTypeOPos, BloodTypeONeg,
	BloodTypeABPos, BloodTypeABNeg,
}

// Valid reports whether t is one of BloodTypes.
func (t BloodType) Valid() bool {
	for _, v := range BloodTypes {
		if v == t {
			return true
		}
	}
	return false
}

// String returns the string representation of the BloodType.
func (t BloodType) String() string {
	return string(t)
}

// ComponentType is the blood product being requested.
type ComponentType string

const (
	ComponentWholeBlood ComponentType = "WHOLE_BLOOD"
	ComponentPlatelets  ComponentType = "PLATELETS"
	ComponentPlasma     ComponentType = "PLASMA"
)

// ComponentTypes lists every valid ComponentType.
var ComponentTypes = [...]ComponentType{
	ComponentWholeBlood,
	ComponentPlatelets,
	ComponentPlasma,
}

// Valid reports whether c is one of ComponentTypes.
func (c ComponentType) Valid() bool {
	for _, v := range ComponentTypes {
		if v == c {
			return true
		}
	}
	return false
}

// String returns the string representation of the ComponentType.
func (c ComponentType) String() string {
	return string(c)
}

// Urgency is ordered: CRITICAL > HIGH > MEDIUM > LOW.
type Urgency string

const (
	UrgencyCritical Urgency = "CRITICAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyMedium   Urgency = "MEDIUM"
	UrgencyLow      Urgency = "LOW"
)

// Urgencies lists every valid Urgency, most urgent first.
var Urgencies = [...]Urgency{
	UrgencyCritical,
	UrgencyHigh,
	UrgencyMedium,
	UrgencyLow,
}

// Rank returns 4 for CRITICAL down to 1 for LOW, and 0 for unknown values.
func (u Urgency) Rank() int {
	for i, v := range Urgencies {
		if v == u {
			return len(Urgencies) - i
		}
	}
	return 0
}

// Valid reports whether u is one of Urgencies.
func (u Urgency) Valid() bool {
	return u.Rank() > 0
}

// MoreUrgentThan reports whether u outranks other.
func (u Urgency) MoreUrgentThan(other Urgency) bool {
	return u.Rank() > other.Rank()
}

// String returns the string representation of the Urgency.
func (u Urgency) String() string {
	return string(u)
}

// Status tracks a copy's progress towards the backend.
type Status string

const (
	StatusPendingSync Status = "pending_sync"
	StatusSynced      Status = "synced"
	StatusFailed      Status = "failed"
)

// Statuses lists every valid Status.
var Statuses = [...]Status{
	StatusPendingSync,
	StatusSynced,
	StatusFailed,
}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// LogAction is the kind of fact recorded in the sync log.
type LogAction string

const (
	// ActionEnqueued records a copy entering the local queue, either from an
	// origin submission or from an accepted relay.
	ActionEnqueued LogAction = "enqueued"

	// ActionRebroadcast records a transport string being generated for peers.
	ActionRebroadcast LogAction = "rebroadcast"

	// ActionSynced records a successful upload to the backend.
	ActionSynced LogAction = "synced"
)

// Valid reports whether a is a known LogAction.
func (a LogAction) Valid() bool {
	switch a {
	case ActionEnqueued, ActionRebroadcast, ActionSynced:
		return true
	}
	return false
}

// String returns the string representation of the LogAction.
func (a LogAction) String() string {
	return string(a)
}
