package core

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"dreammover/internal/config"
	"dreammover/internal/state"
	"dreammover/internal/vetting"
	"dreammover/pkg/domain"
)

const goodPlan = `
rules:
  - action: {type: relocate, destination: "D:/Archive", dryRun: true, verify: hash}
`

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	backend *state.MemoryBackend
	prom    *PrometheusMetricsRecorder
	tracer  *JSONTraceTracer
	traces  *bytes.Buffer
	svc     *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = state.NewMemoryForTests()
	s.prom = NewPrometheusMetricsRecorder(prometheus.NewRegistry())
	s.traces = &bytes.Buffer{}
	s.tracer = NewJSONTracer(s.traces)

	store, err := state.New(s.backend, state.WithDefaultObserver(s.prom))
	s.Require().NoError(err)
	s.svc, err = NewService(store,
		WithMetricsRecorder(s.prom),
		WithTracer(s.tracer),
		WithClock(func() time.Time { return time.Date(2024, 7, 4, 10, 0, 0, 0, time.UTC) }),
		WithViralSeed(7),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) writePlan(body string) string {
	p := filepath.Join(s.T().TempDir(), "plan.yml")
	s.Require().NoError(os.WriteFile(p, []byte(body), 0o644))
	return p
}

func (s *ServiceSuite) opCount(operation, status string) float64 {
	return testutil.ToFloat64(s.prom.operations.WithLabelValues(operation, status))
}

func (s *ServiceSuite) TestOperationsAreCountedByOutcome() {
	plan := s.writePlan(goodPlan)
	_, err := s.svc.UploadPlan(s.ctx, plan, "u1", 10)
	s.Require().NoError(err)
	_, err = s.svc.UploadPlan(s.ctx, plan, "u1", 1)
	s.ErrorIs(err, domain.ErrPrecondition)

	s.Equal(1.0, s.opCount("marketplace_upload", "success"))
	s.Equal(1.0, s.opCount("marketplace_upload", "error"))
	s.Equal(2, testutil.CollectAndCount(s.prom.operations))
}

func (s *ServiceSuite) TestSpansAreWrittenAsJSONLines() {
	_, err := s.svc.ShareLib(s.ctx, "p", "t", 0)
	s.Require().NoError(err)
	_, found, err := s.svc.VoteShare(s.ctx, "p", "missing")
	s.Require().NoError(err)
	s.False(found)

	entries := s.tracer.Entries()
	s.Require().Len(entries, 2)
	s.Equal("collab_share", entries[0].Operation)
	s.Equal("collab_vote", entries[1].Operation)
	s.Equal("success", entries[1].Status)

	lines := bytes.Split(bytes.TrimSpace(s.traces.Bytes()), []byte("\n"))
	s.Require().Len(lines, 2)
	var decoded JSONTraceEntry
	s.Require().NoError(json.Unmarshal(lines[0], &decoded))
	s.Equal("collab_share", decoded.Operation)
}

func (s *ServiceSuite) TestFailedSpanCarriesError() {
	_, err := s.svc.PostSurvey(s.ctx, "r", 42)
	s.Require().Error(err)
	entries := s.tracer.Entries()
	s.Require().Len(entries, 1)
	s.Equal("error", entries[0].Status)
	s.Contains(entries[0].Error, "score")
}

func (s *ServiceSuite) TestCorruptStateIsCountedAsFallback() {
	s.Require().NoError(s.backend.Put(s.ctx, "audit/eternal-audit", []byte("{bad")))
	entries, used := s.svc.AuditEntries(s.ctx)
	s.True(used)
	s.Empty(entries)
	s.Equal(1.0, testutil.ToFloat64(s.prom.fallbacks.WithLabelValues("audit/eternal-audit")))
}

func (s *ServiceSuite) TestComponentsShareOneStore() {
	_, err := s.svc.RecordRitual(s.ctx)
	s.Require().NoError(err)
	_, err = s.svc.RecordAudit(s.ctx, "rite-1", nil, true)
	s.Require().NoError(err)
	_, err = s.svc.PostSurvey(s.ctx, "rite-1", 9)
	s.Require().NoError(err)
	_, err = s.svc.ShareRite(s.ctx, "rite-1", "")
	s.Require().NoError(err)
	_, err = s.svc.ShareLib(s.ctx, "plan", "team", 2)
	s.Require().NoError(err)
	_, err = s.svc.RecordLore(s.ctx, "rite-1", "")
	s.Require().NoError(err)

	s.Equal([]string{
		"audit/eternal-audit",
		"collab/shared-libs",
		"feedback/loops",
		"legacy/personal-lore",
		"tier/profile",
		"viral/vectors",
	}, s.backend.Keys())
}

func (s *ServiceSuite) TestTierFlow() {
	s.ErrorIs(s.svc.RequireTier(s.ctx, domain.LevelPractitioner), domain.ErrTierRequired)
	profile, err := s.svc.UpgradeTier(s.ctx)
	s.Require().NoError(err)
	s.Equal(domain.LevelPractitioner, profile.Level)
	s.NoError(s.svc.RequireTier(s.ctx, domain.LevelPractitioner))

	checked, used := s.svc.CheckTier(s.ctx)
	s.False(used)
	s.Equal("2024-07-04", checked.Counters.Date)
}

func (s *ServiceSuite) TestListingsFilterByUser() {
	plan := s.writePlan(goodPlan)
	_, err := s.svc.UploadPlan(s.ctx, plan, "u1", 10)
	s.Require().NoError(err)
	_, err = s.svc.UploadPlan(s.ctx, plan, "u2", 10)
	s.Require().NoError(err)

	all, _ := s.svc.Listings(s.ctx, "")
	s.Len(all, 2)
	mine, _ := s.svc.Listings(s.ctx, "u2")
	s.Require().Len(mine, 1)
	s.Equal("u2", mine[0].UserID)
}

func (s *ServiceSuite) TestVetDirectoryUsesConfiguredRules() {
	dir := s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "postgres-move.yml"), []byte(`
rules:
  - action: {type: relocate, dryRun: true, verify: hash, notes: "stop postgres"}
`), 0o644))

	issues, err := s.svc.VetDirectory(s.ctx, dir, "")
	s.Require().NoError(err)
	s.Len(issues, 1)

	rules := filepath.Join(dir, "vet-rules.json")
	s.Require().NoError(os.WriteFile(rules, []byte(`{"notesMinLen": 5}`), 0o644))
	store, err := state.New(state.NewMemoryForTests())
	s.Require().NoError(err)
	svc, err := NewService(store, WithRuleConfigSource(vetting.FileRuleConfig(rules)))
	s.Require().NoError(err)
	issues, err = svc.VetDirectory(s.ctx, dir, "")
	s.Require().NoError(err)
	s.Empty(issues)
}

func (s *ServiceSuite) TestLoreAndPlanValidation() {
	g, err := s.svc.RecordLore(s.ctx, "sim", "ana")
	s.Require().NoError(err)
	s.Len(g.History, 1)
	history, used := s.svc.LoreHistory(s.ctx, "ana")
	s.False(used)
	s.Len(history, 1)
	s.Equal(1.0, s.opCount("lore_record", "success"))

	dir := s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "plan.yml"), []byte(goodPlan), 0o644))
	results, err := s.svc.ValidatePlans(s.ctx, dir)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.True(results[0].OK, "%v", results[0].Errors)

	_, err = s.svc.ValidatePlans(s.ctx, filepath.Join(dir, "missing"))
	s.Error(err)
	s.Equal(1.0, s.opCount("validate_plans", "error"))
}

func TestExpvarRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "vet", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "vet", false, 3*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)
	rec.ObserveDefault("tier/profile", state.FallbackMalformed)

	snap := rec.Snapshot()
	stats := snap.Operations["vet"]
	if stats.Success != 1 || stats.Error != 1 || stats.DurationMS != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(snap.Operations) != 1 {
		t.Fatalf("empty operation should be ignored: %+v", snap.Operations)
	}
	if snap.Fallbacks["tier/profile"] != 1 {
		t.Fatalf("unexpected fallbacks %+v", snap.Fallbacks)
	}
}

func TestNewFromConfigWiresObserver(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.LoadFrom(map[string]string{
		"DREAMMOVER_STORAGE_DRIVER": "sqlite",
		"DREAMMOVER_SQLITE_PATH":    filepath.Join(t.TempDir(), "state.db"),
		"DREAMMOVER_RULES_PATH":     filepath.Join(t.TempDir(), "missing.json"),
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	prom := NewPrometheusMetricsRecorder(prometheus.NewRegistry())
	svc, closeFn, err := NewFromConfig(ctx, cfg, WithMetricsRecorder(prom))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = closeFn() }()

	if svc.Store().Driver() != state.DriverSQLite {
		t.Fatalf("unexpected driver %s", svc.Store().Driver())
	}
	if _, used := svc.CheckTier(ctx); !used {
		t.Fatalf("expected default profile on empty database")
	}
	if got := testutil.ToFloat64(prom.fallbacks.WithLabelValues("tier/profile")); got != 1 {
		t.Fatalf("expected one fallback, got %v", got)
	}
}
