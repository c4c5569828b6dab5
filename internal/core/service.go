// Package core composes the dreammover components over one state store and
// wraps every operation with tracing and metrics.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dreammover/internal/audit"
	"dreammover/internal/collab"
	"dreammover/internal/config"
	"dreammover/internal/feedback"
	"dreammover/internal/lore"
	"dreammover/internal/marketplace"
	"dreammover/internal/platform/logger"
	"dreammover/internal/state"
	"dreammover/internal/tier"
	"dreammover/internal/vetting"
	"dreammover/internal/viral"
	"dreammover/pkg/domain"
)

// Service is the entry point used by the CLI.
type Service struct {
	store   *state.Store
	rules   vetting.RuleConfigSource
	metrics MetricsRecorder
	tracer  Tracer
	logger  *slog.Logger
	now     func() time.Time
	seed    *uint64

	vetter      *vetting.Engine
	gate        *tier.Gatekeeper
	marketplace *marketplace.Service
	collab      *collab.Service
	audit       *audit.Ledger
	feedback    *feedback.Aggregator
	viral       *viral.Service
	lore        *lore.Service
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink. A recorder that also
// implements state.DefaultObserver receives fallbacks when the Service opens
// its own store.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the span source.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the time source of every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRuleConfigSource sets where vet rule configuration is read from.
func WithRuleConfigSource(src vetting.RuleConfigSource) Option {
	return func(s *Service) {
		if src != nil {
			s.rules = src
		}
	}
}

// WithViralSeed makes viral scores reproducible.
func WithViralSeed(seed uint64) Option {
	return func(s *Service) {
		s.seed = &seed
	}
}

func newShell(opts []Option) *Service {
	s := &Service{
		rules:   vetting.StaticRuleConfig(domain.DefaultRuleConfig()),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		logger:  logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewService wires the components over an existing store.
func NewService(store *state.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	s := newShell(opts)
	s.wire(store)
	return s, nil
}

// NewFromConfig opens the configured backend and wires the components over it.
// The returned close function releases the backend and is never nil.
func NewFromConfig(ctx context.Context, cfg config.Config, opts ...Option) (*Service, func() error, error) {
	s := newShell(opts)
	backend, closeFn, err := state.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, closeFn, fmt.Errorf("open %s state: %w", cfg.Storage.Driver, err)
	}
	storeOpts := []state.Option{state.WithLogger(s.logger)}
	if observer, ok := s.metrics.(state.DefaultObserver); ok {
		storeOpts = append(storeOpts, state.WithDefaultObserver(observer))
	}
	store, err := state.New(backend, storeOpts...)
	if err != nil {
		_ = closeFn()
		return nil, func() error { return nil }, err
	}
	if cfg.RulesPath != "" {
		s.rules = vetting.FileRuleConfig(cfg.RulesPath)
	}
	s.wire(store)
	s.logger.Debug("service ready", "driver", store.Driver())
	return s, closeFn, nil
}

func (s *Service) wire(store *state.Store) {
	s.store = store
	s.vetter = vetting.NewEngine(vetting.WithLogger(s.logger))
	s.gate = tier.New(store, tier.WithClock(s.now), tier.WithLogger(s.logger))
	s.marketplace = marketplace.New(store, s.vetter,
		marketplace.WithRuleConfig(s.rules),
		marketplace.WithClock(s.now),
		marketplace.WithLogger(s.logger))
	s.collab = collab.New(store, collab.WithClock(s.now), collab.WithLogger(s.logger))
	s.audit = audit.New(store, audit.WithClock(s.now), audit.WithLogger(s.logger))
	s.feedback = feedback.New(store, feedback.WithClock(s.now), feedback.WithLogger(s.logger))
	viralOpts := []viral.Option{viral.WithClock(s.now), viral.WithLogger(s.logger)}
	if s.seed != nil {
		viralOpts = append(viralOpts, viral.WithSeed(*s.seed))
	}
	s.viral = viral.New(store, viralOpts...)
	s.lore = lore.New(store, lore.WithClock(s.now), lore.WithLogger(s.logger))
}

// Store returns the underlying state store.
func (s *Service) Store() *state.Store { return s.store }

func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	if err != nil {
		s.logger.Debug("operation failed", "operation", operation, "err", err)
	}
	return err
}

// Vet vets a single plan file with the configured rule configuration.
func (s *Service) Vet(ctx context.Context, path string) (issues []domain.VetIssue, err error) {
	err = s.observe(ctx, "vet", func(ctx context.Context) error {
		cfg, _ := s.rules.RuleConfig()
		issues, err = s.vetter.Vet(ctx, path, cfg)
		return err
	})
	return issues, err
}

// VetDirectory vets every plan in dir, optionally writing a report.
func (s *Service) VetDirectory(ctx context.Context, dir, reportPath string) (issues []domain.VetIssue, err error) {
	err = s.observe(ctx, "vet_directory", func(ctx context.Context) error {
		cfg, _ := s.rules.RuleConfig()
		issues, err = s.vetter.VetDirectory(ctx, dir, cfg, reportPath)
		return err
	})
	return issues, err
}

// ValidatePlans schema-checks every plan in dir.
func (s *Service) ValidatePlans(ctx context.Context, dir string) (results []domain.PlanValidation, err error) {
	err = s.observe(ctx, "validate_plans", func(ctx context.Context) error {
		results, err = s.vetter.ValidateDirectory(ctx, dir)
		return err
	})
	return results, err
}

// UploadPlan certifies and lists a plan.
func (s *Service) UploadPlan(ctx context.Context, planPath, userID string, priceUSD float64) (listing domain.MarketplaceListing, err error) {
	err = s.observe(ctx, "marketplace_upload", func(ctx context.Context) error {
		listing, err = s.marketplace.UploadPlan(ctx, planPath, userID, priceUSD)
		return err
	})
	return listing, err
}

// Listings returns marketplace listings, filtered to userID when it is set.
func (s *Service) Listings(ctx context.Context, userID string) (listings []domain.MarketplaceListing, usedDefault bool) {
	_ = s.observe(ctx, "marketplace_list", func(ctx context.Context) error {
		if userID == "" {
			listings, usedDefault = s.marketplace.Listings(ctx)
		} else {
			listings, usedDefault = s.marketplace.ListingsByUser(ctx, userID)
		}
		return nil
	})
	return listings, usedDefault
}

// RecordRitual counts a ritual against the daily quota.
func (s *Service) RecordRitual(ctx context.Context) (decision tier.RitualDecision, err error) {
	err = s.observe(ctx, "tier_record_ritual", func(ctx context.Context) error {
		decision, err = s.gate.RecordRitual(ctx)
		return err
	})
	return decision, err
}

// UpgradeTier moves the profile to Practitioner.
func (s *Service) UpgradeTier(ctx context.Context) (profile domain.TierProfile, err error) {
	err = s.observe(ctx, "tier_upgrade", func(ctx context.Context) error {
		profile, err = s.gate.Upgrade(ctx)
		return err
	})
	return profile, err
}

// CheckTier returns the current tier profile.
func (s *Service) CheckTier(ctx context.Context) (profile domain.TierProfile, usedDefault bool) {
	_ = s.observe(ctx, "tier_check", func(ctx context.Context) error {
		profile, usedDefault = s.gate.Check(ctx)
		return nil
	})
	return profile, usedDefault
}

// RequireTier fails with domain.ErrTierRequired below level.
func (s *Service) RequireTier(ctx context.Context, level domain.Level) error {
	return s.observe(ctx, "tier_require", func(ctx context.Context) error {
		return s.gate.Require(ctx, level)
	})
}

// ShareLib opens a quorum approval request.
func (s *Service) ShareLib(ctx context.Context, planID, teamID string, required int) (req domain.ApprovalRequest, err error) {
	err = s.observe(ctx, "collab_share", func(ctx context.Context) error {
		req, err = s.collab.ShareLib(ctx, planID, teamID, required)
		return err
	})
	return req, err
}

// VoteShare adds an approval; found is false when no request matches.
func (s *Service) VoteShare(ctx context.Context, planID, teamID string) (req domain.ApprovalRequest, found bool, err error) {
	err = s.observe(ctx, "collab_vote", func(ctx context.Context) error {
		req, found, err = s.collab.VoteShare(ctx, planID, teamID)
		return err
	})
	return req, found, err
}

// ApprovalRequests lists approval requests in storage order.
func (s *Service) ApprovalRequests(ctx context.Context) (reqs []domain.ApprovalRequest, usedDefault bool) {
	_ = s.observe(ctx, "collab_list", func(ctx context.Context) error {
		reqs, usedDefault = s.collab.Requests(ctx)
		return nil
	})
	return reqs, usedDefault
}

// RecordAudit appends to the audit ledger.
func (s *Service) RecordAudit(ctx context.Context, riteID string, controls []string, consent bool) (rec domain.AuditRecord, err error) {
	err = s.observe(ctx, "audit_record", func(ctx context.Context) error {
		rec, err = s.audit.Record(ctx, riteID, controls, consent)
		return err
	})
	return rec, err
}

// AuditEntries lists the audit ledger.
func (s *Service) AuditEntries(ctx context.Context) (entries []domain.AuditRecord, usedDefault bool) {
	_ = s.observe(ctx, "audit_list", func(ctx context.Context) error {
		entries, usedDefault = s.audit.Entries(ctx)
		return nil
	})
	return entries, usedDefault
}

// PostSurvey records a satisfaction score.
func (s *Service) PostSurvey(ctx context.Context, riteID string, score int) (sum domain.FeedbackSummary, err error) {
	err = s.observe(ctx, "feedback_survey", func(ctx context.Context) error {
		sum, err = s.feedback.PostSurvey(ctx, riteID, score)
		return err
	})
	return sum, err
}

// FeedbackSummary returns the stored feedback summary.
func (s *Service) FeedbackSummary(ctx context.Context) (sum domain.FeedbackSummary, usedDefault bool) {
	_ = s.observe(ctx, "feedback_summary", func(ctx context.Context) error {
		sum, usedDefault = s.feedback.Summary(ctx)
		return nil
	})
	return sum, usedDefault
}

// ShareRite records a social share for a rite.
func (s *Service) ShareRite(ctx context.Context, riteID, platform string) (share domain.ViralShare, err error) {
	err = s.observe(ctx, "viral_share", func(ctx context.Context) error {
		share, err = s.viral.ShareRite(ctx, riteID, platform)
		return err
	})
	return share, err
}

// RecordLore appends a rite to the personal history.
func (s *Service) RecordLore(ctx context.Context, riteID, user string) (g lore.Grimoire, err error) {
	err = s.observe(ctx, "lore_record", func(ctx context.Context) error {
		g, err = s.lore.Record(ctx, riteID, user)
		return err
	})
	return g, err
}

// LoreHistory lists the personal history, filtered to user when it is set.
func (s *Service) LoreHistory(ctx context.Context, user string) (entries []domain.LoreEntry, usedDefault bool) {
	_ = s.observe(ctx, "lore_list", func(ctx context.Context) error {
		entries, usedDefault = s.lore.History(ctx, user)
		return nil
	})
	return entries, usedDefault
}
