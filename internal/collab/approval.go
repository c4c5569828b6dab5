// Package collab runs quorum approval for plans shared with a team.
package collab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

// Key is the state key holding approval requests.
const Key = "collab/shared-libs"

// DefaultRequiredApprovals applies when ShareLib is given a non-positive quorum.
const DefaultRequiredApprovals = 2

// Service manages the approval request index.
type Service struct {
	store  *state.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the request timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a collaborative approval Service.
func New(store *state.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShareLib opens a new approval request. Existing requests for the same pair
// are left alone; each request is voted on independently.
func (s *Service) ShareLib(ctx context.Context, planID, teamID string, required int) (domain.ApprovalRequest, error) {
	if required <= 0 {
		required = DefaultRequiredApprovals
	}
	req := domain.ApprovalRequest{
		PlanID:    planID,
		TeamID:    teamID,
		Required:  required,
		CreatedAt: s.now().UTC(),
	}
	_, _, err := state.Update(ctx, s.store, Key, emptyIndex, func(idx *[]domain.ApprovalRequest) (bool, error) {
		*idx = append(*idx, req)
		return true, nil
	})
	if err != nil {
		return domain.ApprovalRequest{}, fmt.Errorf("share %s with %s: %w", planID, teamID, err)
	}
	s.logger.Info("approval requested", "plan_id", planID, "team_id", teamID, "required", required)
	return req, nil
}

// VoteShare adds one approval to the first request for (planID, teamID) in
// storage order. found is false, and nothing is written, when no request matches.
// Approved latches once approvals reach the quorum.
func (s *Service) VoteShare(ctx context.Context, planID, teamID string) (req domain.ApprovalRequest, found bool, err error) {
	_, _, err = state.Update(ctx, s.store, Key, emptyIndex, func(idx *[]domain.ApprovalRequest) (bool, error) {
		for i := range *idx {
			r := &(*idx)[i]
			if r.PlanID != planID || r.TeamID != teamID {
				continue
			}
			r.Approvals++
			if r.Approvals >= r.Required {
				r.Approved = true
			}
			req, found = *r, true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return domain.ApprovalRequest{}, false, fmt.Errorf("vote %s for %s: %w", planID, teamID, err)
	}
	if !found {
		s.logger.Debug("vote for unknown request", "plan_id", planID, "team_id", teamID)
	}
	return req, found, nil
}

// Requests returns every approval request in storage order.
func (s *Service) Requests(ctx context.Context) ([]domain.ApprovalRequest, bool) {
	return state.Load(ctx, s.store, Key, emptyIndex)
}

func emptyIndex() []domain.ApprovalRequest {
	return []domain.ApprovalRequest{}
}
