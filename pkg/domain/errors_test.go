package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestPreconditionErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("upload: %w", &PreconditionError{Field: "priceUSD", Reason: "must be at least 5"})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if errors.Is(err, ErrVetFailed) {
		t.Fatalf("precondition must not match ErrVetFailed")
	}
	if err.Error() != "upload: precondition failed: priceUSD must be at least 5" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestVetFailureJoinsRuleNames(t *testing.T) {
	failure := &VetFailure{Issues: []VetIssue{
		{RuleName: "require-dry-run"},
		{RuleName: "verify-present"},
		{RuleName: "verify-present"},
	}}
	if failure.Error() != "vet failed: require-dry-run,verify-present,verify-present" {
		t.Fatalf("unexpected message %q", failure.Error())
	}
	if !errors.Is(failure, ErrVetFailed) || !errors.Is(failure, ErrValidation) {
		t.Fatalf("VetFailure must match ErrVetFailed and ErrValidation")
	}
	if errors.Is(failure, ErrPrecondition) {
		t.Fatalf("VetFailure must not match ErrPrecondition")
	}
}
