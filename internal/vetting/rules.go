package vetting

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"dreammover/pkg/domain"
)

// Rule names as they appear in issues and vet failures.
const (
	RuleParse           = "parse"
	RuleRequireDryRun   = "require-dry-run"
	RuleVerifyPresent   = "verify-present"
	RuleServiceLockNote = "service-lock-note"
	RuleCompliance      = "compliance-marker"
)

// statefulMarkers flag plans that touch a service holding live state.
var statefulMarkers = []string{"db", "docker", "postgres"}

// DefaultRules returns the rule set in evaluation order.
func DefaultRules() []domain.Rule {
	return []domain.Rule{
		RequireDryRunRule(),
		VerifyPresentRule(),
		ServiceLockNoteRule(),
		ComplianceMarkerRule(),
	}
}

// RequireDryRunRule demands at least one action rehearsed with dryRun.
func RequireDryRunRule() domain.Rule { return requireDryRunRule{} }

type requireDryRunRule struct{}

func (requireDryRunRule) Name() string { return RuleRequireDryRun }

func (requireDryRunRule) Evaluate(ctx context.Context, plan domain.PlanDocument, _ domain.RuleConfig) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}
	for _, action := range plan.Actions {
		if action.Guards().DryRun {
			return domain.Result{}, nil
		}
	}
	res := domain.Result{}
	res.Add(issue(plan, RuleRequireDryRun, "No action has dryRun:true"))
	return res, nil
}

// VerifyPresentRule reports every action without a valid verify mode.
func VerifyPresentRule() domain.Rule { return verifyPresentRule{} }

type verifyPresentRule struct{}

func (verifyPresentRule) Name() string { return RuleVerifyPresent }

func (verifyPresentRule) Evaluate(ctx context.Context, plan domain.PlanDocument, _ domain.RuleConfig) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}
	res := domain.Result{}
	for i, action := range plan.Actions {
		if action.Guards().Verify.Valid() {
			continue
		}
		res.Add(issue(plan, RuleVerifyPresent,
			fmt.Sprintf("Missing or invalid verify mode on action %d (%s)", i+1, describeAction(action))))
	}
	return res, nil
}

// ServiceLockNoteRule requires a service lock note on plans that touch
// databases or containers, judged from the plan's path.
func ServiceLockNoteRule() domain.Rule { return serviceLockNoteRule{} }

type serviceLockNoteRule struct{}

func (serviceLockNoteRule) Name() string { return RuleServiceLockNote }

func (serviceLockNoteRule) Evaluate(ctx context.Context, plan domain.PlanDocument, cfg domain.RuleConfig) (domain.Result, error) {
	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}
	if !touchesStatefulService(plan.Source) {
		return domain.Result{}, nil
	}
	minLen := cfg.MinNotes()
	for _, action := range plan.Actions {
		if utf8.RuneCountInString(action.Guards().Notes) >= minLen {
			return domain.Result{}, nil
		}
	}
	res := domain.Result{}
	res.Add(issue(plan, RuleServiceLockNote,
		fmt.Sprintf("Missing adequate service lock note (notes >= %d chars)", minLen)))
	return res, nil
}

// ComplianceMarkerRule recognises gdpr/hipaa markers. Markers are reserved and
// currently yield no issue.
func ComplianceMarkerRule() domain.Rule { return complianceMarkerRule{} }

type complianceMarkerRule struct{}

func (complianceMarkerRule) Name() string { return RuleCompliance }

func (complianceMarkerRule) Evaluate(ctx context.Context, _ domain.PlanDocument, _ domain.RuleConfig) (domain.Result, error) {
	return domain.Result{}, ctx.Err()
}

func touchesStatefulService(source string) bool {
	s := strings.ToLower(source)
	for _, marker := range statefulMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func describeAction(action domain.Action) string {
	switch a := action.(type) {
	case domain.RelocateAction:
		return "relocate to " + orUnset(a.Destination)
	case domain.LinkAction:
		return "link to " + orUnset(a.Destination)
	case domain.RehomeAppAction:
		return "rehome_app to " + orUnset(a.Destination)
	case domain.UnspecifiedAction:
		if a.DeclaredType != "" {
			return "unknown type " + a.DeclaredType
		}
		return "no action type"
	default:
		return string(action.Kind())
	}
}

func orUnset(s string) string {
	if s == "" {
		return "unset destination"
	}
	return s
}

func issue(plan domain.PlanDocument, rule, message string) domain.VetIssue {
	return domain.VetIssue{SourceFile: plan.Source, RuleName: rule, Message: message}
}

func parseIssue(source string) domain.VetIssue {
	return domain.VetIssue{SourceFile: source, RuleName: RuleParse, Message: "YAML parse failed"}
}
