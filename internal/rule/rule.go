// Package rule defines the check/fix contract every lint and format rule
// implements, and the fixed-order registry that drives a pass over a file.
package rule

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/extract"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/store"
)

// File bundles everything a rule needs to see about the file it is
// checking: the parsed tree, the extracted facts for this file, and the
// config in effect.
type File struct {
	Path   string
	Result *captree.ParseResult
	Facts  *extract.Facts
	Config config.Config
}

// Root is a convenience accessor for the parse tree's root node.
func (f *File) Root() *sitter.Node { return f.Result.RootNode() }

// LintRule is a check with an optional fix. Check must be a pure function
// of file content and the store; Fix must be a pure function of the issues
// it's handed and must not consult global state.
type LintRule interface {
	RuleID() string
	Slug() string
	Severity() model.Severity
	AutoFixable() bool
	Check(file *File, symbols *store.Store) []model.Issue
}

// Fixer is implemented by rules whose issues can be auto-corrected.
type Fixer interface {
	Fix(file *File, issues []model.Issue) []model.Transformation
}

// Registry holds rules in a fixed, explicitly-constructed order: no
// reflection, no plugin discovery, matching every ordering guarantee the
// fix and format drivers rely on.
type Registry struct {
	rules []LintRule
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends rule to the end of the fixed order.
func (r *Registry) Register(rule LintRule) {
	r.rules = append(r.rules, rule)
}

// Rules returns every registered rule in registration order.
func (r *Registry) Rules() []LintRule {
	return append([]LintRule{}, r.rules...)
}

// Enabled returns the subset of rules not turned off by cfg.disabled_rules.
func (r *Registry) Enabled(cfg config.Config) []LintRule {
	var out []LintRule
	for _, rl := range r.rules {
		if !cfg.IsDisabled(rl.RuleID()) {
			out = append(out, rl)
		}
	}
	return out
}

// CheckAll runs every enabled rule's Check against file, catching a rule
// panic and converting it into a synthetic rule_internal_error issue rather
// than aborting the pass (spec's failure-isolation contract).
func CheckAll(rules []LintRule, file *File, symbols *store.Store) []model.Issue {
	var issues []model.Issue
	for _, rl := range rules {
		issues = append(issues, safeCheck(rl, file, symbols)...)
	}
	return issues
}

func safeCheck(rl LintRule, file *File, symbols *store.Store) (issues []model.Issue) {
	defer func() {
		if r := recover(); r != nil {
			issues = []model.Issue{{
				RuleID:   "rule_internal_error",
				Severity: model.SeverityError,
				File:     file.Path,
				Message:  ruleFailureMessage(rl.RuleID(), r),
			}}
		}
	}()
	return rl.Check(file, symbols)
}

func ruleFailureMessage(ruleID string, recovered any) string {
	return "rule " + ruleID + " failed: " + toMessage(recovered)
}

func toMessage(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "internal error"
}
