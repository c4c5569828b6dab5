// Package domain defines the persisted records, plan document model, and
// rule evaluation primitives used by dreammover.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Level identifies a tier entitlement level.
type Level string

// Supported tier levels.
const (
	// LevelSeeker is the free tier with a daily ritual cap.
	LevelSeeker Level = "Seeker"
	// LevelPractitioner lifts the ritual cap and allows AI risk features.
	LevelPractitioner Level = "Practitioner"
)

// IsValid reports whether the level is one of the known tiers.
func (l Level) IsValid() bool {
	return l == LevelSeeker || l == LevelPractitioner
}

// Rank orders levels for entitlement comparisons. Unknown levels rank lowest.
func (l Level) Rank() int {
	switch l {
	case LevelSeeker:
		return 1
	case LevelPractitioner:
		return 2
	default:
		return 0
	}
}

// RitualCap is a per-day ritual limit. Unlimited removes the cap.
type RitualCap int

// Unlimited marks a cap that never denies a ritual.
const Unlimited RitualCap = -1

// SeekerRitualsPerDay is the daily cap applied to Seeker profiles.
const SeekerRitualsPerDay RitualCap = 5

// IsUnlimited reports whether the cap is unbounded.
func (c RitualCap) IsUnlimited() bool { return c == Unlimited }

// Allows reports whether one more ritual fits after used rituals today.
func (c RitualCap) Allows(used int) bool {
	if c.IsUnlimited() {
		return true
	}
	return used < int(c)
}

func (c RitualCap) String() string {
	if c.IsUnlimited() {
		return "unlimited"
	}
	return fmt.Sprintf("%d", int(c))
}

// MarshalJSON encodes Unlimited as the string "unlimited".
func (c RitualCap) MarshalJSON() ([]byte, error) {
	if c.IsUnlimited() {
		return []byte(`"unlimited"`), nil
	}
	return json.Marshal(int(c))
}

// UnmarshalJSON accepts an integer, "unlimited", or the legacy "infinite".
func (c *RitualCap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(s) {
		case "unlimited", "infinite":
			*c = Unlimited
			return nil
		}
		return fmt.Errorf("invalid ritual cap %q", s)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n < 0 {
		*c = Unlimited
		return nil
	}
	*c = RitualCap(n)
	return nil
}

// TierLimits captures the entitlements granted by a level.
type TierLimits struct {
	RitualsPerDay  RitualCap `json:"ritualsPerDay"`
	AIRisksAllowed bool      `json:"aiRisksAllowed"`
	Certified      bool      `json:"certified"`
}

// TierCounters tracks usage for the current UTC calendar date.
type TierCounters struct {
	Date         string `json:"date"`
	RitualsToday int    `json:"ritualsToday"`
}

// TierProfile is the persisted entitlement and quota state of a caller.
type TierProfile struct {
	Level    Level        `json:"level"`
	Limits   TierLimits   `json:"limits"`
	Counters TierCounters `json:"counters"`
}

// Valid rejects profiles that cannot have been written by the gatekeeper.
func (p TierProfile) Valid() bool {
	return p.Level.IsValid() && p.Counters.RitualsToday >= 0
}

// VetIssue is a single rule finding against a plan document.
type VetIssue struct {
	SourceFile string `json:"file"`
	RuleName   string `json:"rule"`
	Message    string `json:"message"`
}

// DefaultNotesMinLen is the minimum service-lock note length when unset.
const DefaultNotesMinLen = 30

// RuleConfig tunes the vetting rules.
type RuleConfig struct {
	NotesMinLen int `json:"notesMinLen" yaml:"notesMinLen"`
}

// DefaultRuleConfig returns the configuration used when none is supplied.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{NotesMinLen: DefaultNotesMinLen}
}

// MinNotes returns the effective minimum note length; non-positive values fall back to the default.
func (c RuleConfig) MinNotes() int {
	if c.NotesMinLen <= 0 {
		return DefaultNotesMinLen
	}
	return c.NotesMinLen
}

// MarketplaceListing is a certified plan offered for sale.
type MarketplaceListing struct {
	ID            string    `json:"id"`
	PlanPath      string    `json:"planPath"`
	UserID        string    `json:"userId"`
	PriceUSD      float64   `json:"priceUSD"`
	CommissionUSD float64   `json:"commissionUSD"`
	Certified     bool      `json:"certified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ApprovalRequest tracks quorum votes for sharing a plan with a team.
// Approved latches once Approvals reaches Required and never resets.
type ApprovalRequest struct {
	PlanID    string    `json:"planId"`
	TeamID    string    `json:"teamId"`
	Required  int       `json:"required"`
	Approvals int       `json:"approvals"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditRecord is an append-only consent and controls entry for a rite.
type AuditRecord struct {
	RiteID    string    `json:"riteId"`
	Timestamp time.Time `json:"timestamp"`
	Consent   bool      `json:"consent"`
	Controls  []string  `json:"controls"`
}

// FeedbackEntry is one post-rite satisfaction score.
type FeedbackEntry struct {
	RiteID string    `json:"riteId"`
	Score  int       `json:"score"`
	At     time.Time `json:"at"`
}

// FeedbackSummary holds the full score history and metrics derived from it.
type FeedbackSummary struct {
	Entries []FeedbackEntry `json:"entries"`
	Average float64         `json:"avg"`
	NPS     int             `json:"nps"`
}

// ViralShare is a generated social share for a rite.
type ViralShare struct {
	RiteID     string    `json:"riteId"`
	Platform   string    `json:"platform"`
	Text       string    `json:"text"`
	Link       string    `json:"link"`
	ViralScore int       `json:"viralScore"`
	At         time.Time `json:"at"`
}

// LoreEntry is one rite in a user's personal history.
type LoreEntry struct {
	RiteID string    `json:"riteId"`
	User   string    `json:"user"`
	At     time.Time `json:"at"`
}

// RollbackStep is one ordered step of a rollback chain.
type RollbackStep struct {
	Step   int    `json:"step" yaml:"step"`
	Action string `json:"action" yaml:"action"`
	Note   string `json:"note" yaml:"note"`
}

// RollbackChain lists the steps that undo a rite.
type RollbackChain struct {
	Rite  string         `json:"rite" yaml:"rite"`
	Steps []RollbackStep `json:"steps" yaml:"steps"`
}

// PlanValidation is the schema check outcome for one plan file.
type PlanValidation struct {
	SourceFile string   `json:"file"`
	OK         bool     `json:"ok"`
	Errors     []string `json:"errors"`
}
