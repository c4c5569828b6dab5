package domain

// ActionKind identifies an action variant declared by a plan rule.
type ActionKind string

// Known action kinds. ActionUnspecified covers missing or unrecognised types.
const (
	ActionRelocate    ActionKind = "relocate"
	ActionLink        ActionKind = "link"
	ActionRehomeApp   ActionKind = "rehome_app"
	ActionUnspecified ActionKind = ""
)

// VerifyMode selects how an action's result is verified.
type VerifyMode string

// Accepted verification modes.
const (
	VerifyHash   VerifyMode = "hash"
	VerifySample VerifyMode = "sample"
	VerifyNone   VerifyMode = "none"
)

// Valid reports whether the mode is one of hash, sample or none.
func (m VerifyMode) Valid() bool {
	switch m {
	case VerifyHash, VerifySample, VerifyNone:
		return true
	default:
		return false
	}
}

// Safeguards are the safety declarations shared by every action variant.
type Safeguards struct {
	DryRun bool
	// Verify holds the declared mode verbatim; it may be empty or invalid.
	Verify VerifyMode
	Notes  string
}

// Guards returns the safeguards; promoted into every action variant.
func (s Safeguards) Guards() Safeguards { return s }

// Action is a tagged variant over the supported plan actions.
type Action interface {
	Kind() ActionKind
	Guards() Safeguards
}

// RelocateAction moves matched items to Destination.
type RelocateAction struct {
	Safeguards
	Destination string
}

// Kind implements Action.
func (RelocateAction) Kind() ActionKind { return ActionRelocate }

// LinkAction relocates and leaves a junction at the original path.
type LinkAction struct {
	Safeguards
	Destination string
}

// Kind implements Action.
func (LinkAction) Kind() ActionKind { return ActionLink }

// RehomeAppAction moves an application directory and optionally rewires it.
type RehomeAppAction struct {
	Safeguards
	Destination     string
	UpdateShortcuts bool
	UpdateServices  bool
}

// Kind implements Action.
func (RehomeAppAction) Kind() ActionKind { return ActionRehomeApp }

// UnspecifiedAction is a rule whose action is missing or of an unknown type.
type UnspecifiedAction struct {
	Safeguards
	DeclaredType string
}

// Kind implements Action.
func (UnspecifiedAction) Kind() ActionKind { return ActionUnspecified }

// Compliance carries reserved compliance markers. They are recognised but not yet acted on.
type Compliance struct {
	GDPR  bool
	HIPAA bool
}

// Marked reports whether any compliance marker is set.
func (c Compliance) Marked() bool { return c.GDPR || c.HIPAA }

// PlanDocument is a parsed rite plan.
type PlanDocument struct {
	// Source is the path or identifier the document was read from.
	Source     string
	Actions    []Action
	Compliance Compliance
}
