// Package tier enforces entitlement levels and the daily ritual quota.
package tier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

// Key is the state key holding the tier profile.
const Key = "tier/profile"

const dateLayout = "2006-01-02"

// Gatekeeper owns the tier profile document.
type Gatekeeper struct {
	store  *state.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Gatekeeper.
type Option func(*Gatekeeper)

// WithClock overrides the time source used for daily counter rollover.
func WithClock(now func() time.Time) Option {
	return func(g *Gatekeeper) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the gatekeeper logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gatekeeper) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New returns a Gatekeeper persisting through store.
func New(store *state.Store, opts ...Option) *Gatekeeper {
	g := &Gatekeeper{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SeekerLimits are the entitlements of the free tier.
func SeekerLimits() domain.TierLimits {
	return domain.TierLimits{RitualsPerDay: domain.SeekerRitualsPerDay}
}

// DefaultProfile is the profile used when none is stored or it is unusable.
func DefaultProfile(today string) domain.TierProfile {
	return domain.TierProfile{
		Level:    domain.LevelSeeker,
		Limits:   SeekerLimits(),
		Counters: domain.TierCounters{Date: today},
	}
}

// RitualDecision is the outcome of RecordRitual.
type RitualDecision struct {
	Allowed bool
	Profile domain.TierProfile
	// UsedDefault is set when the stored profile was missing or unusable.
	UsedDefault bool
}

// Err returns domain.ErrQuotaExceeded for a denied ritual.
func (d RitualDecision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %d of %s rituals used on %s",
		domain.ErrQuotaExceeded, d.Profile.Counters.RitualsToday, d.Profile.Limits.RitualsPerDay, d.Profile.Counters.Date)
}

func (g *Gatekeeper) today() string {
	return g.now().UTC().Format(dateLayout)
}

func (g *Gatekeeper) defaults() func() domain.TierProfile {
	today := g.today()
	return func() domain.TierProfile { return DefaultProfile(today) }
}

// rollover resets the counters on the first access of a new UTC date.
func rollover(p *domain.TierProfile, today string) bool {
	if p.Counters.Date == today {
		return false
	}
	p.Counters.Date = today
	p.Counters.RitualsToday = 0
	return true
}

// RecordRitual counts one ritual against today's cap. A denied ritual leaves
// the stored profile untouched.
func (g *Gatekeeper) RecordRitual(ctx context.Context) (RitualDecision, error) {
	today := g.today()
	var allowed bool
	profile, usedDefault, err := state.Update(ctx, g.store, Key, g.defaults(), func(p *domain.TierProfile) (bool, error) {
		rollover(p, today)
		if !p.Limits.RitualsPerDay.Allows(p.Counters.RitualsToday) {
			return false, nil
		}
		p.Counters.RitualsToday++
		allowed = true
		return true, nil
	})
	if err != nil {
		return RitualDecision{}, fmt.Errorf("record ritual: %w", err)
	}
	decision := RitualDecision{Allowed: allowed, Profile: profile, UsedDefault: usedDefault}
	if !allowed {
		g.logger.Info("ritual denied", "level", profile.Level, "rituals_today", profile.Counters.RitualsToday)
	}
	return decision, nil
}

// Upgrade moves the profile to Practitioner. It is idempotent and preserves
// the certified flag.
func (g *Gatekeeper) Upgrade(ctx context.Context) (domain.TierProfile, error) {
	profile, _, err := state.Update(ctx, g.store, Key, g.defaults(), func(p *domain.TierProfile) (bool, error) {
		p.Level = domain.LevelPractitioner
		p.Limits = domain.TierLimits{
			RitualsPerDay:  domain.Unlimited,
			AIRisksAllowed: true,
			Certified:      p.Limits.Certified,
		}
		return true, nil
	})
	if err != nil {
		return domain.TierProfile{}, fmt.Errorf("upgrade tier: %w", err)
	}
	g.logger.Info("tier upgraded", "level", profile.Level)
	return profile, nil
}

// Check returns the current profile without writing. Counters from an earlier
// date are shown as already reset for today.
func (g *Gatekeeper) Check(ctx context.Context) (domain.TierProfile, bool) {
	profile, usedDefault := state.Load(ctx, g.store, Key, g.defaults())
	rollover(&profile, g.today())
	return profile, usedDefault
}

// Require returns domain.ErrTierRequired when the profile ranks below level.
func (g *Gatekeeper) Require(ctx context.Context, level domain.Level) error {
	profile, _ := g.Check(ctx)
	if profile.Level.Rank() < level.Rank() {
		return fmt.Errorf("%w: %s required, profile is %s", domain.ErrTierRequired, level, profile.Level)
	}
	return nil
}
