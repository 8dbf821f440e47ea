package lint

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
	"github.com/capl-tools/capllint/internal/rule"
	"github.com/capl-tools/capllint/internal/store"
)

// VariableOutsideBlockRule is E006: a variable declared at the top level,
// outside the variables block, is moved into it.
type VariableOutsideBlockRule struct{}

func (VariableOutsideBlockRule) RuleID() string           { return "E006" }
func (VariableOutsideBlockRule) Slug() string             { return "variable-outside-block" }
func (VariableOutsideBlockRule) Severity() model.Severity { return model.SeverityError }
func (VariableOutsideBlockRule) AutoFixable() bool        { return true }

func (r VariableOutsideBlockRule) Check(file *rule.File, _ *store.Store) []model.Issue {
	var issues []model.Issue
	for _, sym := range file.Facts.Symbols {
		if sym.Kind != model.KindVariable && sym.Kind != model.KindMessage && sym.Kind != model.KindTimer {
			continue
		}
		if sym.DeclaredInScope == model.ScopeTopLevel {
			issues = append(issues, model.Issue{
				RuleID:       r.RuleID(),
				Severity:     r.Severity(),
				File:         file.Path,
				PrimaryRange: sym.Range,
				Message:      "variable '" + sym.Name + "' must be declared inside the variables block",
				AutoFixable:  true,
			})
		}
	}
	return issues
}

func (r VariableOutsideBlockRule) Fix(file *rule.File, issues []model.Issue) []model.Transformation {
	target, ok := variablesBlockInsertionPoint(file)
	if !ok {
		return nil
	}
	b := rewrite.NewBuilder()
	var ranges []model.Range
	for _, issue := range issues {
		if issue.RuleID != r.RuleID() {
			continue
		}
		start, end := lineSpan(file.Result.Source, issue.PrimaryRange)
		ranges = append(ranges, model.Range{StartByte: start, EndByte: end})
	}
	rewrite.CollectRemoveInsert(b, ranges, file.Result.Source, target, r.RuleID())
	return b.Transformations()
}

// VariableMidBlockRule is E007: a local variable declared after executable
// statements in its enclosing block is moved to the start of that block.
type VariableMidBlockRule struct{}

func (VariableMidBlockRule) RuleID() string           { return "E007" }
func (VariableMidBlockRule) Slug() string             { return "variable-mid-block" }
func (VariableMidBlockRule) Severity() model.Severity { return model.SeverityError }
func (VariableMidBlockRule) AutoFixable() bool        { return true }

func (r VariableMidBlockRule) Check(file *rule.File, _ *store.Store) []model.Issue {
	var issues []model.Issue
	for _, sym := range file.Facts.Symbols {
		if sym.DeclaredInScope != model.ScopeLocalBlock {
			continue
		}
		if sym.StatementsBeforeInBlock > 0 {
			issues = append(issues, model.Issue{
				RuleID:       r.RuleID(),
				Severity:     r.Severity(),
				File:         file.Path,
				PrimaryRange: sym.Range,
				Message:      "variable '" + sym.Name + "' must be declared at the start of its block",
				AutoFixable:  true,
			})
		}
	}
	return issues
}

func (r VariableMidBlockRule) Fix(file *rule.File, issues []model.Issue) []model.Transformation {
	// Each offending declaration moves to the start of its own enclosing
	// block; group by that block so declarations from different blocks
	// don't collide in one CollectRemoveInsert batch.
	byBlock := map[int][]model.Range{}

	for _, issue := range issues {
		if issue.RuleID != r.RuleID() {
			continue
		}
		start, end := lineSpan(file.Result.Source, issue.PrimaryRange)
		blockOffset := enclosingBlockBodyStart(file, issue.PrimaryRange.StartByte)
		byBlock[blockOffset] = append(byBlock[blockOffset], model.Range{StartByte: start, EndByte: end})
	}

	b := rewrite.NewBuilder()
	for offset, ranges := range byBlock {
		rewrite.CollectRemoveInsert(b, ranges, file.Result.Source, offset, r.RuleID())
	}
	return b.Transformations()
}

// enclosingBlockBodyStart returns the byte offset just after the opening
// brace of the compound_statement enclosing offset, the target for
// relocated mid-block declarations.
func enclosingBlockBodyStart(file *rule.File, offset int) int {
	node := deepestNodeContaining(file.Root(), offset)
	for n := node; n != nil; n = n.Parent() {
		if n.Type() == "compound_statement" {
			return int(n.StartByte()) + 1
		}
	}
	return offset
}

// deepestNodeContaining returns the smallest node in root's subtree whose
// byte range contains offset.
func deepestNodeContaining(root *sitter.Node, offset int) *sitter.Node {
	best := root
	for n, _ := range captree.Walk(root) {
		if int(n.StartByte()) <= offset && offset < int(n.EndByte()) {
			if int(n.EndByte()-n.StartByte()) < int(best.EndByte()-best.StartByte()) {
				best = n
			}
		}
	}
	return best
}
