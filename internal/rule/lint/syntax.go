// Package lint implements the E001-E012/W001-W005 rule set against the
// facts internal/extract produces, per each rule's own check/fix contract.
package lint

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
	"github.com/capl-tools/capllint/internal/rule"
	"github.com/capl-tools/capllint/internal/store"
)

// ExternKeywordRule is E001: CAPL has no linkage-specifier concept; any
// `extern` token is a carry-over from hand-edited C and is always removed.
type ExternKeywordRule struct{}

func (ExternKeywordRule) RuleID() string          { return "E001" }
func (ExternKeywordRule) Slug() string            { return "extern-keyword" }
func (ExternKeywordRule) Severity() model.Severity { return model.SeverityError }
func (ExternKeywordRule) AutoFixable() bool        { return true }

func (r ExternKeywordRule) Check(file *rule.File, _ *store.Store) []model.Issue {
	var issues []model.Issue
	for n, _ := range captree.Walk(file.Root()) {
		if isExternToken(file.Result, n) {
			issues = append(issues, model.Issue{
				RuleID:       r.RuleID(),
				Severity:     r.Severity(),
				File:         file.Path,
				PrimaryRange: file.Result.RangeFor(n),
				Message:      "'extern' has no meaning in CAPL and must be removed",
				AutoFixable:  true,
			})
		}
	}
	return issues
}

func (r ExternKeywordRule) Fix(file *rule.File, issues []model.Issue) []model.Transformation {
	b := rewrite.NewBuilder()
	for _, issue := range issues {
		if issue.RuleID != r.RuleID() {
			continue
		}
		end := issue.PrimaryRange.EndByte
		for end < len(file.Result.Source) && isHorizontalSpace(file.Result.Source[end]) {
			end++
		}
		b.Delete(issue.PrimaryRange.StartByte, end, r.RuleID())
	}
	return b.Transformations()
}

func isExternToken(result *captree.ParseResult, n *sitter.Node) bool {
	return n.ChildCount() == 0 && result.Text(n) == "extern"
}

func isHorizontalSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

// FunctionDeclarationRule is E002: a forward declaration (has_body=false)
// at the top level has no purpose in a single-translation-unit CAPL file
// and is removed outright.
type FunctionDeclarationRule struct{}

func (FunctionDeclarationRule) RuleID() string          { return "E002" }
func (FunctionDeclarationRule) Slug() string            { return "function-declaration" }
func (FunctionDeclarationRule) Severity() model.Severity { return model.SeverityError }
func (FunctionDeclarationRule) AutoFixable() bool        { return true }

func (r FunctionDeclarationRule) Check(file *rule.File, _ *store.Store) []model.Issue {
	var issues []model.Issue
	for _, sym := range file.Facts.Symbols {
		if sym.Kind != model.KindFunction || sym.DeclaredInScope != model.ScopeTopLevel {
			continue
		}
		if sym.IsForwardDeclaration {
			issues = append(issues, model.Issue{
				RuleID:       r.RuleID(),
				Severity:     r.Severity(),
				File:         file.Path,
				PrimaryRange: sym.Range,
				Message:      "forward declaration of '" + sym.Name + "' is never needed in CAPL",
				AutoFixable:  true,
			})
		}
	}
	return issues
}

func (r FunctionDeclarationRule) Fix(file *rule.File, issues []model.Issue) []model.Transformation {
	b := rewrite.NewBuilder()
	for _, issue := range issues {
		if issue.RuleID != r.RuleID() {
			continue
		}
		start, end := lineSpan(file.Result.Source, issue.PrimaryRange)
		b.Delete(start, end, r.RuleID())
	}
	return b.Transformations()
}

// GlobalTypeDefinitionRule is E003: enum/struct definitions belong inside
// the variables block; one declared at top level is moved there.
type GlobalTypeDefinitionRule struct{}

func (GlobalTypeDefinitionRule) RuleID() string          { return "E003" }
func (GlobalTypeDefinitionRule) Slug() string            { return "global-type-definition" }
func (GlobalTypeDefinitionRule) Severity() model.Severity { return model.SeverityError }
func (GlobalTypeDefinitionRule) AutoFixable() bool        { return true }

func (r GlobalTypeDefinitionRule) Check(file *rule.File, _ *store.Store) []model.Issue {
	var issues []model.Issue
	for _, sym := range file.Facts.Symbols {
		if (sym.Kind != model.KindEnum && sym.Kind != model.KindStruct) || sym.ParentSymbol != "" {
			continue
		}
		if sym.DeclaredInScope == model.ScopeTopLevel {
			issues = append(issues, model.Issue{
				RuleID:       r.RuleID(),
				Severity:     r.Severity(),
				File:         file.Path,
				PrimaryRange: sym.Range,
				Message:      string(sym.Kind) + " '" + sym.Name + "' must be defined inside the variables block",
				AutoFixable:  true,
			})
		}
	}
	return issues
}

func (r GlobalTypeDefinitionRule) Fix(file *rule.File, issues []model.Issue) []model.Transformation {
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

// variablesBlockInsertionPoint locates the byte offset just before the
// closing brace of the nearest (first) variables block in the file, so
// moved declarations land inside it, preserving relative order.
func variablesBlockInsertionPoint(file *rule.File) (int, bool) {
	for _, top := range captree.Children(file.Root()) {
		firstLine := file.Result.FirstLine(top)
		if !isVariablesBlockHeader(firstLine, file.Result.Text(top)) {
			continue
		}
		body := findBraceBody(top)
		if body == nil {
			continue
		}
		return int(body.EndByte()) - 1, true
	}
	return 0, false
}

func isVariablesBlockHeader(firstLine, fullText string) bool {
	return hasPrefix(firstLine, "variables") && containsByte(fullText, '{')
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

func findBraceBody(node *sitter.Node) *sitter.Node {
	if body := captree.FindChildOfType(node, "compound_statement"); body != nil {
		return body
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == "ERROR" {
			if body := captree.FindChildOfType(c, "compound_statement"); body != nil {
				return body
			}
		}
	}
	return nil
}

// lineSpan extends a symbol's range to cover its full source line,
// including the trailing terminator and newline, so a deletion removes a
// clean line rather than leaving an empty husk.
func lineSpan(source []byte, r model.Range) (int, int) {
	start := r.StartByte
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	end := r.EndByte
	for end < len(source) && source[end] != '\n' {
		end++
	}
	if end < len(source) {
		end++ // consume the newline itself
	}
	return start, end
}
