package lore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

type GrimoireSuite struct {
	suite.Suite
	ctx     context.Context
	backend *state.MemoryBackend
	lore    *Service
	tick    time.Time
}

func TestGrimoireSuite(t *testing.T) {
	suite.Run(t, new(GrimoireSuite))
}

func (s *GrimoireSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = state.NewMemoryForTests()
	store, err := state.New(s.backend)
	s.Require().NoError(err)
	s.tick = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.lore = New(store, WithClock(func() time.Time {
		s.tick = s.tick.Add(time.Minute)
		return s.tick
	}))
}

func (s *GrimoireSuite) TestRecordAppendsAndReturnsHistory() {
	first, err := s.lore.Record(s.ctx, "sim", "")
	s.Require().NoError(err)
	s.Require().Len(first.History, 1)
	s.Equal(DefaultUser, first.History[0].User)

	second, err := s.lore.Record(s.ctx, "migrate", "ana@example.com")
	s.Require().NoError(err)
	s.Require().Len(second.History, 2)
	s.Equal(first.History[0], second.History[0], "earlier entries must be unchanged")
	s.Equal("migrate", second.History[1].RiteID)
	s.True(second.History[1].At.After(second.History[0].At))

	s.Equal("migrate", second.Chain.Rite)
	s.Len(second.Chain.Steps, 3)
}

func (s *GrimoireSuite) TestHistoryFiltersByUser() {
	_, err := s.lore.Record(s.ctx, "sim", "a")
	s.Require().NoError(err)
	_, err = s.lore.Record(s.ctx, "sim", "b")
	s.Require().NoError(err)

	all, used := s.lore.History(s.ctx, "")
	s.False(used)
	s.Len(all, 2)

	mine, _ := s.lore.History(s.ctx, "b")
	s.Require().Len(mine, 1)
	s.Equal("b", mine[0].User)
}

func (s *GrimoireSuite) TestRiteIsRequired() {
	_, err := s.lore.Record(s.ctx, "  ", "a")
	s.ErrorIs(err, domain.ErrPrecondition)
	s.Equal(0, s.backend.Writes())
}

func (s *GrimoireSuite) TestCorruptHistoryStartsFresh() {
	s.Require().NoError(s.backend.Put(s.ctx, Key, []byte(`{"not":"a list"}`)))
	history, used := s.lore.History(s.ctx, "")
	s.True(used)
	s.Empty(history)

	g, err := s.lore.Record(s.ctx, "sim", "")
	s.Require().NoError(err)
	s.Len(g.History, 1)
}

func (s *GrimoireSuite) TestChainYAMLShape() {
	out, err := ChainYAML(Chain("sim"))
	s.Require().NoError(err)

	var decoded struct {
		Rollback domain.RollbackChain `yaml:"rollback"`
	}
	s.Require().NoError(yaml.Unmarshal(out, &decoded))
	s.Equal("sim", decoded.Rollback.Rite)
	s.Equal([]string{"snapshot", "verify", "restore"}, []string{
		decoded.Rollback.Steps[0].Action,
		decoded.Rollback.Steps[1].Action,
		decoded.Rollback.Steps[2].Action,
	})
	s.Equal(3, decoded.Rollback.Steps[2].Step)
}
