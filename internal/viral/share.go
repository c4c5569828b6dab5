// Package viral generates social share vectors for completed rites.
package viral

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

// Key is the state key holding generated shares.
const Key = "viral/vectors"

// Share defaults.
const (
	DefaultPlatform = "x"
	DefaultLink     = "https://example.com/dream-mover"
	minScore        = 50
	scoreSpread     = 50
)

// Service records share vectors.
type Service struct {
	store  *state.Store
	now    func() time.Time
	logger *slog.Logger
	link   string

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithRand sets the score source. Use a seeded source for reproducible scores.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSeed seeds the score source with a PCG generator.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

// WithClock overrides the share timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLink overrides the link attached to shares.
func WithLink(link string) Option {
	return func(s *Service) {
		if link != "" {
			s.link = link
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

// New returns a share Service. Without WithRand or WithSeed scores come from
// an unseeded generator.
func New(store *state.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		link:   DefaultLink,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShareRite builds and records a share for riteID on platform ("x" when empty).
// The viral score is a stub in 50..99.
func (s *Service) ShareRite(ctx context.Context, riteID, platform string) (domain.ViralShare, error) {
	if platform == "" {
		platform = DefaultPlatform
	}
	share := domain.ViralShare{
		RiteID:     riteID,
		Platform:   platform,
		Text:       fmt.Sprintf("Dream Mover rite %s: safe, reversible, auditable. #DreamMover #Vauntico", riteID),
		Link:       s.link,
		ViralScore: s.score(),
		At:         s.now().UTC(),
	}
	_, _, err := state.Update(ctx, s.store, Key, emptyVectors, func(shares *[]domain.ViralShare) (bool, error) {
		*shares = append(*shares, share)
		return true, nil
	})
	if err != nil {
		return domain.ViralShare{}, fmt.Errorf("share rite %s: %w", riteID, err)
	}
	s.logger.Info("rite shared", "rite_id", riteID, "platform", platform, "viral_score", share.ViralScore)
	return share, nil
}

// Shares returns recorded shares in append order.
func (s *Service) Shares(ctx context.Context) ([]domain.ViralShare, bool) {
	return state.Load(ctx, s.store, Key, emptyVectors)
}

func (s *Service) score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return minScore + s.rng.IntN(scoreSpread)
}

func emptyVectors() []domain.ViralShare {
	return []domain.ViralShare{}
}
