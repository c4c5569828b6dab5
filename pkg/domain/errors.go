package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across components. Typed errors below unwrap to them
// so callers can branch with errors.Is.
var (
	ErrParse         = errors.New("plan parse failed")
	ErrValidation    = errors.New("plan validation failed")
	ErrPrecondition  = errors.New("precondition failed")
	ErrVetFailed     = errors.New("vet failed")
	ErrQuotaExceeded = errors.New("tier quota exceeded")
	ErrTierRequired  = errors.New("tier level required")
	ErrNotFound      = errors.New("not found")
)

// PreconditionError rejects an operation before anything is persisted.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s %s", e.Field, e.Reason)
}

// Is matches ErrPrecondition.
func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

// VetFailure carries the issues that blocked certification.
type VetFailure struct {
	Issues []VetIssue
}

// RuleNames returns the rule name of each issue in order, duplicates included.
func (e *VetFailure) RuleNames() []string {
	names := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		names = append(names, issue.RuleName)
	}
	return names
}

func (e *VetFailure) Error() string {
	return "vet failed: " + strings.Join(e.RuleNames(), ",")
}

// Is matches ErrVetFailed and ErrValidation.
func (e *VetFailure) Is(target error) bool {
	return target == ErrVetFailed || target == ErrValidation
}
