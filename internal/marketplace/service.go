// Package marketplace certifies vetted plans and keeps the listing index.
package marketplace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dreammover/internal/state"
	"dreammover/internal/vetting"
	"dreammover/pkg/domain"
)

// Key is the state key holding the listing index.
const Key = "marketplace/full-index"

// Pricing constants.
const (
	MinPriceUSD    = 5.0
	CommissionRate = 0.20
)

// Vetter runs the certification rules over a plan file.
type Vetter interface {
	Vet(ctx context.Context, path string, cfg domain.RuleConfig) ([]domain.VetIssue, error)
}

// Service lists certified plans.
type Service struct {
	store  *state.Store
	vetter Vetter
	rules  vetting.RuleConfigSource
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the listing timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides listing ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithRuleConfig sets where the vet rule configuration comes from.
func WithRuleConfig(src vetting.RuleConfigSource) Option {
	return func(s *Service) {
		if src != nil {
			s.rules = src
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

// New returns a marketplace Service. Without WithRuleConfig the default rule
// configuration applies.
func New(store *state.Store, vetter Vetter, opts ...Option) *Service {
	s := &Service{
		store:  store,
		vetter: vetter,
		rules:  vetting.StaticRuleConfig(domain.DefaultRuleConfig()),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commission returns the marketplace cut of price, rounded half-up to cents.
func Commission(priceUSD float64) float64 {
	return domain.RoundHalfUp(priceUSD*CommissionRate, 2)
}

// UploadPlan vets the plan at planPath and lists it for userID.
//
// Prices below MinPriceUSD fail with a *domain.PreconditionError and a plan
// with issues fails with a *domain.VetFailure; neither writes anything.
// Re-uploading the same plan for the same user creates another listing.
func (s *Service) UploadPlan(ctx context.Context, planPath, userID string, priceUSD float64) (domain.MarketplaceListing, error) {
	if !(priceUSD >= MinPriceUSD) {
		return domain.MarketplaceListing{}, &domain.PreconditionError{
			Field:  "priceUSD",
			Reason: fmt.Sprintf("must be at least %.2f, got %.2f", MinPriceUSD, priceUSD),
		}
	}

	cfg, usedDefault := s.rules.RuleConfig()
	if usedDefault {
		s.logger.Debug("vet rule config unavailable, using defaults", "plan_path", planPath)
	}
	issues, err := s.vetter.Vet(ctx, planPath, cfg)
	if err != nil {
		return domain.MarketplaceListing{}, fmt.Errorf("vet %s: %w", planPath, err)
	}
	if len(issues) > 0 {
		failure := &domain.VetFailure{Issues: issues}
		s.logger.Info("plan failed certification", "plan_path", planPath, "rules", failure.RuleNames())
		return domain.MarketplaceListing{}, failure
	}

	listing := domain.MarketplaceListing{
		ID:            s.newID(),
		PlanPath:      planPath,
		UserID:        userID,
		PriceUSD:      priceUSD,
		CommissionUSD: Commission(priceUSD),
		Certified:     true,
		CreatedAt:     s.now().UTC(),
	}
	_, _, err = state.Update(ctx, s.store, Key, emptyIndex, func(idx *[]domain.MarketplaceListing) (bool, error) {
		*idx = append(*idx, listing)
		return true, nil
	})
	if err != nil {
		return domain.MarketplaceListing{}, fmt.Errorf("list plan %s: %w", planPath, err)
	}
	s.logger.Info("plan listed", "plan_path", planPath, "listing_id", listing.ID, "commission_usd", listing.CommissionUSD)
	return listing, nil
}

// Listings returns every listing in insertion order.
func (s *Service) Listings(ctx context.Context) ([]domain.MarketplaceListing, bool) {
	return state.Load(ctx, s.store, Key, emptyIndex)
}

// ListingsByUser returns the listings created for userID in insertion order.
func (s *Service) ListingsByUser(ctx context.Context, userID string) ([]domain.MarketplaceListing, bool) {
	all, usedDefault := s.Listings(ctx)
	out := make([]domain.MarketplaceListing, 0, len(all))
	for _, listing := range all {
		if listing.UserID == userID {
			out = append(out, listing)
		}
	}
	return out, usedDefault
}

// emptyIndex is the default listing index; the document is a bare JSON array.
func emptyIndex() []domain.MarketplaceListing {
	return []domain.MarketplaceListing{}
}
