package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

type AggregatorSuite struct {
	suite.Suite
	ctx     context.Context
	backend *state.MemoryBackend
	agg     *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = state.NewMemoryForTests()
	store, err := state.New(s.backend)
	s.Require().NoError(err)
	s.agg = New(store)
}

func (s *AggregatorSuite) TestSequenceYieldsAverageAndNPS() {
	var sum domain.FeedbackSummary
	for i, score := range []int{9, 9, 2, 9, 7} {
		var err error
		sum, err = s.agg.PostSurvey(s.ctx, "rite-1", score)
		s.Require().NoError(err)
		s.Len(sum.Entries, i+1)
	}
	s.InDelta(7.2, sum.Average, 1e-9)
	s.Equal(40, sum.NPS)

	stored, used := s.agg.Summary(s.ctx)
	s.False(used)
	s.Equal(sum.NPS, stored.NPS)
	s.InDelta(sum.Average, stored.Average, 1e-9)
}

func (s *AggregatorSuite) TestAverageRoundsToTwoPlaces() {
	for _, score := range []int{10, 9, 9} {
		_, err := s.agg.PostSurvey(s.ctx, "rite-2", score)
		s.Require().NoError(err)
	}
	sum, _ := s.agg.Summary(s.ctx)
	s.InDelta(9.33, sum.Average, 1e-9)
}

func (s *AggregatorSuite) TestOutOfRangeScoreWritesNothing() {
	for _, score := range []int{-1, 11, 100} {
		_, err := s.agg.PostSurvey(s.ctx, "rite-1", score)
		s.Require().Error(err)
		s.ErrorIs(err, domain.ErrPrecondition)
	}
	s.Equal(0, s.backend.Writes())
}

func (s *AggregatorSuite) TestCorruptHistoryRestarts() {
	s.Require().NoError(s.backend.Put(s.ctx, Key, []byte(`{"entries": 5}`)))
	sum, used := s.agg.Summary(s.ctx)
	s.True(used)
	s.Empty(sum.Entries)

	sum, err := s.agg.PostSurvey(s.ctx, "rite-1", 10)
	s.Require().NoError(err)
	s.Len(sum.Entries, 1)
	s.Equal(100, sum.NPS)
}

func TestCalcNPS(t *testing.T) {
	cases := []struct {
		name   string
		scores []int
		want   int
	}{
		{"empty", nil, 0},
		{"all promoters", []int{9, 10}, 100},
		{"all detractors", []int{0, 6}, -100},
		{"passives only", []int{7, 8}, 0},
		{"mixed", []int{9, 9, 2, 9, 7}, 40},
		{"mostly promoters", []int{9, 9, 9, 9, 9, 9, 9, 0}, 75},
		{"half rounds up", []int{9, 9, 9, 7, 7, 7, 7, 7}, 38},
		{"negative half rounds toward zero", []int{10, 0, 0, 7, 7, 7, 7, 7}, -12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalcNPS(tc.scores))
		})
	}
}

func TestSummaryOnEmptyStore(t *testing.T) {
	store, err := state.New(state.NewMemoryForTests())
	require.NoError(t, err)
	sum, used := New(store).Summary(context.Background())
	assert.True(t, used)
	assert.NotNil(t, sum.Entries)
	assert.Zero(t, sum.NPS)
}
