// Package feedback records post-rite satisfaction scores and derives NPS.
package feedback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

// Key is the state key holding the feedback summary.
const Key = "feedback/loops"

// Score bounds and NPS bands.
const (
	MinScore     = 0
	MaxScore     = 10
	maxDetractor = 6
	maxPassive   = 8
)

// Aggregator owns the feedback history.
type Aggregator struct {
	store  *state.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the aggregator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New returns an Aggregator persisting through store.
func New(store *state.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PostSurvey appends a score and recomputes the average and NPS over the whole
// history. Scores outside 0..10 are rejected before anything is written.
func (a *Aggregator) PostSurvey(ctx context.Context, riteID string, score int) (domain.FeedbackSummary, error) {
	if score < MinScore || score > MaxScore {
		return domain.FeedbackSummary{}, &domain.PreconditionError{
			Field:  "score",
			Reason: fmt.Sprintf("must be within %d..%d, got %d", MinScore, MaxScore, score),
		}
	}
	entry := domain.FeedbackEntry{RiteID: riteID, Score: score, At: a.now().UTC()}
	summary, _, err := state.Update(ctx, a.store, Key, emptySummary, func(sum *domain.FeedbackSummary) (bool, error) {
		sum.Entries = append(sum.Entries, entry)
		recompute(sum)
		return true, nil
	})
	if err != nil {
		return domain.FeedbackSummary{}, fmt.Errorf("post survey for %s: %w", riteID, err)
	}
	a.logger.Info("survey recorded", "rite_id", riteID, "score", score, "nps", summary.NPS)
	return summary, nil
}

// Summary returns the stored summary.
func (a *Aggregator) Summary(ctx context.Context) (domain.FeedbackSummary, bool) {
	sum, usedDefault := state.Load(ctx, a.store, Key, emptySummary)
	if sum.Entries == nil {
		sum.Entries = []domain.FeedbackEntry{}
	}
	return sum, usedDefault
}

func recompute(sum *domain.FeedbackSummary) {
	scores := make([]int, 0, len(sum.Entries))
	total := 0
	for _, e := range sum.Entries {
		scores = append(scores, e.Score)
		total += e.Score
	}
	sum.Average = 0
	if len(scores) > 0 {
		sum.Average = domain.RoundHalfUp(float64(total)/float64(len(scores)), 2)
	}
	sum.NPS = CalcNPS(scores)
}

// CalcNPS returns round(%promoters - %detractors). Detractors score 6 or
// lower, promoters 9 or higher. An empty slice scores 0.
func CalcNPS(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	var detractors, promoters int
	for _, s := range scores {
		switch {
		case s <= maxDetractor:
			detractors++
		case s <= maxPassive:
		default:
			promoters++
		}
	}
	n := float64(len(scores))
	pct := float64(promoters)/n*100 - float64(detractors)/n*100
	return int(domain.RoundHalfUp(pct, 0))
}

func emptySummary() domain.FeedbackSummary {
	return domain.FeedbackSummary{Entries: []domain.FeedbackEntry{}}
}
