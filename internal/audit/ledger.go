// Package audit keeps the append-only consent and controls ledger.
//
// The ledger trusts its backing storage: entries are never rewritten by this
// package, but nothing detects edits made to the stored document directly.
package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

// Key is the state key holding the ledger.
const Key = "audit/eternal-audit"

// DefaultControls are recorded when the caller names none.
func DefaultControls() []string {
	return []string{"encryption", "retention"}
}

// Ledger appends audit records.
type Ledger struct {
	store  *state.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the ledger logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a Ledger persisting through store.
func New(store *state.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an entry for riteID. A nil controls slice records
// DefaultControls; an empty non-nil slice records no controls. Duplicate
// controls keep their first occurrence.
func (l *Ledger) Record(ctx context.Context, riteID string, controls []string, consent bool) (domain.AuditRecord, error) {
	if controls == nil {
		controls = DefaultControls()
	}
	rec := domain.AuditRecord{
		RiteID:    riteID,
		Timestamp: l.now().UTC(),
		Consent:   consent,
		Controls:  dedupe(controls),
	}
	_, _, err := state.Update(ctx, l.store, Key, emptyLedger, func(entries *[]domain.AuditRecord) (bool, error) {
		*entries = append(*entries, rec)
		return true, nil
	})
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("record audit for %s: %w", riteID, err)
	}
	l.logger.Info("audit recorded", "rite_id", riteID, "consent", consent, "controls", rec.Controls)
	return rec, nil
}

// Entries returns the ledger in append order.
func (l *Ledger) Entries(ctx context.Context) ([]domain.AuditRecord, bool) {
	return state.Load(ctx, l.store, Key, emptyLedger)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func emptyLedger() []domain.AuditRecord {
	return []domain.AuditRecord{}
}
