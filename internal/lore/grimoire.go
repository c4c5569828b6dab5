// Package lore keeps each user's personal rite history and derives the
// rollback chain for a rite.
package lore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

// Key is the state key holding the history.
const Key = "legacy/personal-lore"

// DefaultUser is recorded when no user is given.
const DefaultUser = "stub"

// Grimoire is the result of recording a rite: the full history after the
// append and the rollback chain for the rite.
type Grimoire struct {
	History []domain.LoreEntry   `json:"history"`
	Chain   domain.RollbackChain `json:"chain"`
}

// Service appends to the personal history.
type Service struct {
	store  *state.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the entry timestamp source.
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

// New returns a Service persisting through store.
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

// Chain returns the fixed snapshot, verify, restore chain for riteID.
func Chain(riteID string) domain.RollbackChain {
	return domain.RollbackChain{
		Rite: riteID,
		Steps: []domain.RollbackStep{
			{Step: 1, Action: "snapshot", Note: "Create time capsule"},
			{Step: 2, Action: "verify", Note: "Check hashes or samples"},
			{Step: 3, Action: "restore", Note: "Deterministic rollback if needed"},
		},
	}
}

// ChainYAML renders chain under a top-level `rollback` key.
func ChainYAML(chain domain.RollbackChain) ([]byte, error) {
	out, err := yaml.Marshal(map[string]domain.RollbackChain{"rollback": chain})
	if err != nil {
		return nil, fmt.Errorf("encode rollback chain: %w", err)
	}
	return out, nil
}

// Record appends riteID for user (DefaultUser when blank) and returns the
// history including the new entry.
func (s *Service) Record(ctx context.Context, riteID, user string) (Grimoire, error) {
	if strings.TrimSpace(riteID) == "" {
		return Grimoire{}, &domain.PreconditionError{Field: "rite", Reason: "is required"}
	}
	if strings.TrimSpace(user) == "" {
		user = DefaultUser
	}
	entry := domain.LoreEntry{RiteID: riteID, User: user, At: s.now().UTC()}
	history, _, err := state.Update(ctx, s.store, Key, emptyHistory, func(h *[]domain.LoreEntry) (bool, error) {
		*h = append(*h, entry)
		return true, nil
	})
	if err != nil {
		return Grimoire{}, fmt.Errorf("record lore for %s: %w", riteID, err)
	}
	s.logger.Info("lore recorded", "rite_id", riteID, "user", user, "entries", len(history))
	return Grimoire{History: history, Chain: Chain(riteID)}, nil
}

// History returns every entry, or only user's entries when user is set.
func (s *Service) History(ctx context.Context, user string) ([]domain.LoreEntry, bool) {
	history, usedDefault := state.Load(ctx, s.store, Key, emptyHistory)
	if user == "" {
		return history, usedDefault
	}
	filtered := make([]domain.LoreEntry, 0, len(history))
	for _, e := range history {
		if e.User == user {
			filtered = append(filtered, e)
		}
	}
	return filtered, usedDefault
}

func emptyHistory() []domain.LoreEntry { return []domain.LoreEntry{} }
