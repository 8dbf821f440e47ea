package rule

import (
	"testing"

	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/store"
)

type fakeRule struct {
	id      string
	issues  []model.Issue
	panics  bool
	fixable bool
}

func (f *fakeRule) RuleID() string            { return f.id }
func (f *fakeRule) Slug() string              { return "fake-" + f.id }
func (f *fakeRule) Severity() model.Severity  { return model.SeverityWarning }
func (f *fakeRule) AutoFixable() bool         { return f.fixable }
func (f *fakeRule) Check(file *File, symbols *store.Store) []model.Issue {
	if f.panics {
		panic("boom")
	}
	return f.issues
}

func TestRegisterAndRules(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	a := &fakeRule{id: "A001"}
	b := &fakeRule{id: "A002"}
	reg.Register(a)
	reg.Register(b)

	rules := reg.Rules()
	if len(rules) != 2 {
		t.Fatalf("Rules() returned %d rules, want 2", len(rules))
	}
	if rules[0].RuleID() != "A001" || rules[1].RuleID() != "A002" {
		t.Errorf("Rules() did not preserve registration order: %v", rules)
	}

	// Rules() must return a copy: mutating it shouldn't affect the registry.
	rules[0] = &fakeRule{id: "mutated"}
	if reg.Rules()[0].RuleID() != "A001" {
		t.Error("Rules() leaked internal slice, registry order was mutated")
	}
}

func TestEnabledRespectsDisabledRules(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Register(&fakeRule{id: "A001"})
	reg.Register(&fakeRule{id: "A002"})

	cfg := config.Default()
	cfg.DisabledRules = []string{"A001"}

	enabled := reg.Enabled(cfg)
	if len(enabled) != 1 || enabled[0].RuleID() != "A002" {
		t.Errorf("Enabled() = %v, want only A002", enabled)
	}
}

func TestCheckAllAggregatesIssues(t *testing.T) {
	t.Parallel()
	a := &fakeRule{id: "A001", issues: []model.Issue{{RuleID: "A001", Message: "one"}}}
	b := &fakeRule{id: "A002", issues: []model.Issue{{RuleID: "A002", Message: "two"}, {RuleID: "A002", Message: "three"}}}

	issues := CheckAll([]LintRule{a, b}, &File{Path: "x.can"}, nil)
	if len(issues) != 3 {
		t.Fatalf("CheckAll returned %d issues, want 3", len(issues))
	}
}

func TestCheckAllIsolatesPanic(t *testing.T) {
	t.Parallel()
	good := &fakeRule{id: "A001", issues: []model.Issue{{RuleID: "A001", Message: "fine"}}}
	bad := &fakeRule{id: "A002", panics: true}

	issues := CheckAll([]LintRule{good, bad}, &File{Path: "x.can"}, nil)
	if len(issues) != 2 {
		t.Fatalf("CheckAll returned %d issues, want 2 (1 real + 1 synthetic)", len(issues))
	}

	var sawSynthetic bool
	for _, issue := range issues {
		if issue.RuleID == "rule_internal_error" {
			sawSynthetic = true
			if issue.Severity != model.SeverityError {
				t.Errorf("synthetic issue severity = %s, want error", issue.Severity)
			}
			if issue.File != "x.can" {
				t.Errorf("synthetic issue file = %q, want x.can", issue.File)
			}
		}
	}
	if !sawSynthetic {
		t.Error("expected a rule_internal_error issue for the panicking rule")
	}
}
