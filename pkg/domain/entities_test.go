package domain

import (
	"encoding/json"
	"testing"
)

func TestRitualCapJSON(t *testing.T) {
	cases := []struct {
		in   string
		want RitualCap
	}{
		{`5`, 5},
		{`0`, 0},
		{`"unlimited"`, Unlimited},
		{`"infinite"`, Unlimited},
		{`"Unlimited"`, Unlimited},
		{`-1`, Unlimited},
	}
	for _, c := range cases {
		var got RitualCap
		if err := json.Unmarshal([]byte(c.in), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("unmarshal %s = %v, want %v", c.in, got, c.want)
		}
	}
	var bad RitualCap
	if err := json.Unmarshal([]byte(`"lots"`), &bad); err == nil {
		t.Fatalf("expected error for unknown cap")
	}

	out, err := json.Marshal(TierLimits{RitualsPerDay: Unlimited, AIRisksAllowed: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"ritualsPerDay":"unlimited","aiRisksAllowed":true,"certified":false}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestRitualCapAllows(t *testing.T) {
	if !SeekerRitualsPerDay.Allows(4) || SeekerRitualsPerDay.Allows(5) {
		t.Fatalf("seeker cap must allow 5 rituals")
	}
	if !Unlimited.Allows(1 << 30) {
		t.Fatalf("unlimited cap must always allow")
	}
}

func TestTierProfileValid(t *testing.T) {
	if (TierProfile{}).Valid() {
		t.Fatalf("zero profile must be invalid")
	}
	p := TierProfile{Level: LevelSeeker}
	if !p.Valid() {
		t.Fatalf("seeker profile must be valid")
	}
	p.Counters.RitualsToday = -1
	if p.Valid() {
		t.Fatalf("negative counter must be invalid")
	}
	if LevelPractitioner.Rank() <= LevelSeeker.Rank() || Level("Guest").Rank() != 0 {
		t.Fatalf("unexpected level ranks")
	}
}

func TestRuleConfigMinNotes(t *testing.T) {
	if (RuleConfig{}).MinNotes() != DefaultNotesMinLen || (RuleConfig{NotesMinLen: -4}).MinNotes() != DefaultNotesMinLen {
		t.Fatalf("non-positive min must fall back to default")
	}
	if (RuleConfig{NotesMinLen: 12}).MinNotes() != 12 {
		t.Fatalf("explicit min must be kept")
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		x      float64
		places int
		want   float64
	}{
		{3.998, 2, 4},
		{2.0060000000000002, 2, 2.01},
		{7.2, 2, 7.2},
		{39.5, 0, 40},
		{-12.5, 0, -12},
		{-12.51, 0, -13},
	}
	for _, c := range cases {
		if got := RoundHalfUp(c.x, c.places); got != c.want {
			t.Fatalf("RoundHalfUp(%v, %d) = %v, want %v", c.x, c.places, got, c.want)
		}
	}
}

func TestActionVariantsExposeGuards(t *testing.T) {
	actions := []Action{
		RelocateAction{Safeguards: Safeguards{DryRun: true, Verify: VerifyHash}},
		LinkAction{Safeguards: Safeguards{Verify: VerifySample}},
		RehomeAppAction{Safeguards: Safeguards{Verify: VerifyNone}},
		UnspecifiedAction{Safeguards: Safeguards{Verify: "checksum"}},
	}
	wantKinds := []ActionKind{ActionRelocate, ActionLink, ActionRehomeApp, ActionUnspecified}
	wantValid := []bool{true, true, true, false}
	for i, a := range actions {
		if a.Kind() != wantKinds[i] {
			t.Fatalf("action %d kind %q, want %q", i, a.Kind(), wantKinds[i])
		}
		if a.Guards().Verify.Valid() != wantValid[i] {
			t.Fatalf("action %d verify validity mismatch", i)
		}
	}
	if !(Compliance{HIPAA: true}).Marked() || (Compliance{}).Marked() {
		t.Fatalf("unexpected compliance marking")
	}
}
