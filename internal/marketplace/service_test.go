package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dreammover/internal/state"
	"dreammover/internal/vetting"
	"dreammover/pkg/domain"
)

const certifiablePlan = `
rules:
  - action:
      type: relocate
      destination: "D:/Archive"
      dryRun: true
      verify: hash
      notes: "stop the postgres service before moving the data dir"
`

type MarketplaceSuite struct {
	suite.Suite
	ctx     context.Context
	dir     string
	backend *state.MemoryBackend
	svc     *Service
	ids     int
}

func TestMarketplaceSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceSuite))
}

func (s *MarketplaceSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	s.backend = state.NewMemoryForTests()
	store, err := state.New(s.backend)
	s.Require().NoError(err)
	s.ids = 0
	s.svc = New(store, vetting.NewEngine(),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string {
			s.ids++
			return "listing-" + string(rune('0'+s.ids))
		}),
	)
}

func (s *MarketplaceSuite) writePlan(name, body string) string {
	p := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(p, []byte(body), 0o644))
	return p
}

func (s *MarketplaceSuite) TestUploadListsCertifiedPlan() {
	plan := s.writePlan("media.yml", certifiablePlan)
	listing, err := s.svc.UploadPlan(s.ctx, plan, "user-1", 19.99)
	s.Require().NoError(err)
	s.Equal("listing-1", listing.ID)
	s.Equal(plan, listing.PlanPath)
	s.Equal("user-1", listing.UserID)
	s.InDelta(4.00, listing.CommissionUSD, 1e-9)
	s.True(listing.Certified)
	s.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), listing.CreatedAt)

	all, used := s.svc.Listings(s.ctx)
	s.False(used)
	s.Equal([]domain.MarketplaceListing{listing}, all)
}

func (s *MarketplaceSuite) TestPriceBelowMinimumWritesNothing() {
	plan := s.writePlan("media.yml", certifiablePlan)
	_, err := s.svc.UploadPlan(s.ctx, plan, "user-1", 5)
	s.Require().NoError(err)
	before, err := s.backend.Get(s.ctx, Key)
	s.Require().NoError(err)
	writes := s.backend.Writes()

	for _, price := range []float64{4.99, 0, -10, math.NaN()} {
		_, err := s.svc.UploadPlan(s.ctx, plan, "user-1", price)
		s.Require().Error(err)
		s.ErrorIs(err, domain.ErrPrecondition)
		var pre *domain.PreconditionError
		s.Require().True(errors.As(err, &pre))
		s.Equal("priceUSD", pre.Field)
	}

	after, err := s.backend.Get(s.ctx, Key)
	s.Require().NoError(err)
	s.Equal(before, after)
	s.Equal(writes, s.backend.Writes())
}

func (s *MarketplaceSuite) TestVetFailureCarriesRuleNames() {
	plan := s.writePlan("docker-stack.yml", "rules:\n  - action: {type: link}\n  - action: {type: relocate}\n")
	_, err := s.svc.UploadPlan(s.ctx, plan, "user-1", 10)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrVetFailed)
	s.ErrorIs(err, domain.ErrValidation)
	s.EqualError(err, "vet failed: require-dry-run,verify-present,verify-present,service-lock-note")
	s.Equal(0, s.backend.Writes())
}

func (s *MarketplaceSuite) TestRuleConfigSourceIsConsulted() {
	plan := s.writePlan("db-move.yml", `
rules:
  - action: {type: relocate, dryRun: true, verify: none, notes: "short note"}
`)
	_, err := s.svc.UploadPlan(s.ctx, plan, "user-1", 10)
	s.ErrorIs(err, domain.ErrVetFailed)

	rules := filepath.Join(s.dir, "vet-rules.json")
	s.Require().NoError(os.WriteFile(rules, []byte(`{"notesMinLen": 5}`), 0o644))
	WithRuleConfig(vetting.FileRuleConfig(rules))(s.svc)
	_, err = s.svc.UploadPlan(s.ctx, plan, "user-1", 10)
	s.NoError(err)
}

func (s *MarketplaceSuite) TestDuplicateUploadsCreateDistinctListings() {
	plan := s.writePlan("media.yml", certifiablePlan)
	first, err := s.svc.UploadPlan(s.ctx, plan, "user-1", 10)
	s.Require().NoError(err)
	second, err := s.svc.UploadPlan(s.ctx, plan, "user-1", 10)
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)

	mine, _ := s.svc.ListingsByUser(s.ctx, "user-1")
	s.Len(mine, 2)
	theirs, _ := s.svc.ListingsByUser(s.ctx, "user-2")
	s.Empty(theirs)
}

func (s *MarketplaceSuite) TestIndexIsBareArray() {
	plan := s.writePlan("media.yml", certifiablePlan)
	_, err := s.svc.UploadPlan(s.ctx, plan, "user-1", 10)
	s.Require().NoError(err)
	raw, err := s.backend.Get(s.ctx, Key)
	s.Require().NoError(err)
	var decoded []map[string]any
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	s.Len(decoded, 1)
	s.Equal("user-1", decoded[0]["userId"])
}

func (s *MarketplaceSuite) TestCorruptIndexIsReplacedByDefault() {
	s.Require().NoError(s.backend.Put(s.ctx, Key, []byte(`{"oops":`)))
	listings, used := s.svc.Listings(s.ctx)
	s.True(used)
	s.Empty(listings)

	plan := s.writePlan("media.yml", certifiablePlan)
	_, err := s.svc.UploadPlan(s.ctx, plan, "user-1", 10)
	s.Require().NoError(err)
	listings, used = s.svc.Listings(s.ctx)
	s.False(used)
	s.Len(listings, 1)
}

func TestCommissionRoundsHalfUpToCents(t *testing.T) {
	cases := map[float64]float64{
		5:     1,
		19.99: 4,
		10.03: 2.01,
		7.25:  1.45,
		12.5:  2.5,
	}
	for price, want := range cases {
		if got := Commission(price); math.Abs(got-want) > 1e-9 {
			t.Fatalf("Commission(%v) = %v, want %v", price, got, want)
		}
	}
}
