// Package vetting evaluates rite plans against the certification rules.
package vetting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"dreammover/internal/state"
	"dreammover/pkg/domain"
)

// Engine vets plan documents with a fixed, ordered rule set.
type Engine struct {
	rules  *domain.RulesEngine
	logger *slog.Logger
	// workers bounds concurrent file vetting in VetDirectory.
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRules replaces the default rule set.
func WithRules(rules ...domain.Rule) Option {
	return func(e *Engine) {
		e.rules = domain.NewRulesEngine()
		for _, rule := range rules {
			e.rules.Register(rule)
		}
	}
}

// WithWorkers bounds how many files VetDirectory reads and vets at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine returns an engine with the default rules registered.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules:   domain.NewRulesEngine(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers: 8,
	}
	for _, rule := range DefaultRules() {
		e.rules.Register(rule)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RuleNames lists the registered rules in evaluation order.
func (e *Engine) RuleNames() []string { return e.rules.RuleNames() }

// Vet reads and vets the plan at path. An unreadable file is a parse issue,
// not an error; errors only come from cancellation.
func (e *Engine) Vet(ctx context.Context, path string, cfg domain.RuleConfig) ([]domain.VetIssue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Debug("plan unreadable", "plan_path", path, "err", err)
		return []domain.VetIssue{parseIssue(path)}, nil
	}
	return e.VetDocument(ctx, path, data, cfg)
}

// VetDocument vets raw plan bytes attributed to source. A document that fails
// to parse yields exactly one parse issue and no rule runs.
func (e *Engine) VetDocument(ctx context.Context, source string, data []byte, cfg domain.RuleConfig) ([]domain.VetIssue, error) {
	plan, err := ParsePlan(source, data)
	if err != nil {
		e.logger.Debug("plan parse failed", "plan_path", source, "err", err)
		return []domain.VetIssue{parseIssue(source)}, nil
	}
	return e.VetPlan(ctx, plan, cfg)
}

// VetPlan runs the rules over an already parsed plan.
func (e *Engine) VetPlan(ctx context.Context, plan domain.PlanDocument, cfg domain.RuleConfig) ([]domain.VetIssue, error) {
	res, err := e.rules.Evaluate(ctx, plan, cfg)
	if err != nil {
		return nil, err
	}
	return res.Issues, nil
}

// Report is the JSON document written by VetDirectory.
type Report struct {
	Issues []domain.VetIssue `json:"issues"`
}

// VetDirectory vets every *.yml and *.yaml file directly inside dir. Files are
// vetted concurrently but the aggregate keeps sorted file order. When
// reportPath is set the aggregate is written there as a Report.
// A non-empty result means the directory did not pass.
func (e *Engine) VetDirectory(ctx context.Context, dir string, cfg domain.RuleConfig, reportPath string) ([]domain.VetIssue, error) {
	files, err := planFiles(dir)
	if err != nil {
		return nil, err
	}

	perFile := make([][]domain.VetIssue, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, file := range files {
		g.Go(func() error {
			issues, err := e.Vet(gctx, file, cfg)
			if err != nil {
				return fmt.Errorf("vet %s: %w", file, err)
			}
			perFile[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]domain.VetIssue, 0)
	for _, issues := range perFile {
		all = append(all, issues...)
	}
	e.logger.Info("directory vetted", "dir", dir, "files", len(files), "issues", len(all))

	if reportPath != "" {
		if err := WriteReport(reportPath, all); err != nil {
			return all, err
		}
	}
	return all, nil
}

// WriteReport atomically writes issues to path as an indented Report.
func WriteReport(path string, issues []domain.VetIssue) error {
	if issues == nil {
		issues = []domain.VetIssue{}
	}
	payload, err := json.MarshalIndent(Report{Issues: issues}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := state.WriteFileAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func planFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read plan dir %s: %w", dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}
