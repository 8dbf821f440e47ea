package lint

import (
	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
	"github.com/capl-tools/capllint/internal/rule"
	"github.com/capl-tools/capllint/internal/store"
)

// MissingEnumKeywordRule is E004: a declaration whose type name is a known
// enum but written without the `enum` keyword.
type MissingEnumKeywordRule struct{}

func (MissingEnumKeywordRule) RuleID() string           { return "E004" }
func (MissingEnumKeywordRule) Slug() string             { return "missing-enum-keyword" }
func (MissingEnumKeywordRule) Severity() model.Severity { return model.SeverityError }
func (MissingEnumKeywordRule) AutoFixable() bool        { return true }

func (r MissingEnumKeywordRule) Check(file *rule.File, symbols *store.Store) []model.Issue {
	return checkMissingKeyword(file, symbols, r.RuleID(), model.KindEnum, "enum")
}

func (r MissingEnumKeywordRule) Fix(file *rule.File, issues []model.Issue) []model.Transformation {
	return fixMissingKeyword(file, issues, r.RuleID(), "enum ")
}

// MissingStructKeywordRule is E005: same defect, for `struct`.
type MissingStructKeywordRule struct{}

func (MissingStructKeywordRule) RuleID() string           { return "E005" }
func (MissingStructKeywordRule) Slug() string             { return "missing-struct-keyword" }
func (MissingStructKeywordRule) Severity() model.Severity { return model.SeverityError }
func (MissingStructKeywordRule) AutoFixable() bool        { return true }

func (r MissingStructKeywordRule) Check(file *rule.File, symbols *store.Store) []model.Issue {
	return checkMissingKeyword(file, symbols, r.RuleID(), model.KindStruct, "struct")
}

func (r MissingStructKeywordRule) Fix(file *rule.File, issues []model.Issue) []model.Transformation {
	return fixMissingKeyword(file, issues, r.RuleID(), "struct ")
}

func checkMissingKeyword(file *rule.File, symbols *store.Store, ruleID string, kind model.SymbolKind, keyword string) []model.Issue {
	visible, err := symbols.VisibleSymbols(file.Path)
	if err != nil {
		return nil
	}
	known := make(map[string]bool)
	for _, sym := range visible {
		if sym.Kind == kind {
			known[sym.Name] = true
		}
	}
	if len(known) == 0 {
		return nil
	}

	var issues []model.Issue
	for n, _ := range captree.Walk(file.Root()) {
		if n.Type() != "declaration" && n.Type() != "parameter_declaration" && n.Type() != "field_declaration" {
			continue
		}
		typeNode := captree.FindChildOfType(n, "type_identifier")
		if typeNode == nil {
			continue
		}
		name := file.Result.Text(typeNode)
		if !known[name] {
			continue
		}
		issues = append(issues, model.Issue{
			RuleID:       ruleID,
			Severity:     model.SeverityError,
			File:         file.Path,
			PrimaryRange: file.Result.RangeFor(typeNode),
			Message:      "'" + name + "' is a " + keyword + " but the '" + keyword + "' keyword is missing",
			AutoFixable:  true,
		})
	}
	return issues
}

func fixMissingKeyword(file *rule.File, issues []model.Issue, ruleID, prefix string) []model.Transformation {
	b := rewrite.NewBuilder()
	for _, issue := range issues {
		if issue.RuleID != ruleID {
			continue
		}
		b.Insert(issue.PrimaryRange.StartByte, []byte(prefix), ruleID)
	}
	return b.Transformations()
}
