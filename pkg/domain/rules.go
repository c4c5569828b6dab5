package domain

import "context"

// Rule defines an evaluation executed against a parsed plan document.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, plan PlanDocument, cfg RuleConfig) (Result, error)
}

// Result aggregates issues from the rules engine.
type Result struct {
	Issues []VetIssue
}

// Merge appends issues from another result.
func (r *Result) Merge(other Result) {
	if len(other.Issues) == 0 {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// Add records a single issue.
func (r *Result) Add(issue VetIssue) {
	r.Issues = append(r.Issues, issue)
}

// HasIssues reports whether any rule produced an issue.
func (r Result) HasIssues() bool {
	return len(r.Issues) > 0
}

// Err returns a *VetFailure when the result carries issues, nil otherwise.
func (r Result) Err() error {
	if !r.HasIssues() {
		return nil
	}
	return &VetFailure{Issues: r.Issues}
}

// RulesEngine orchestrates rule evaluation in registration order.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// RuleNames lists registered rules in evaluation order.
func (e *RulesEngine) RuleNames() []string {
	names := make([]string, 0, len(e.rules))
	for _, rule := range e.rules {
		names = append(names, rule.Name())
	}
	return names
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, plan PlanDocument, cfg RuleConfig) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, plan, cfg)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
