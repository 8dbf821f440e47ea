package lint

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
	"github.com/capl-tools/capllint/internal/rule"
	"github.com/capl-tools/capllint/internal/store"
)

// builtinNames are CAPL/CANoe globals no user file ever defines; references
// to them are never "undefined" no matter what the symbol store contains.
var builtinNames = map[string]bool{
	"write": true, "output": true, "setTimer": true, "setTimerCyclic": true,
	"cancelTimer": true, "getValue": true, "setValue": true, "this": true,
	"variables": true, "TestReportMsg": true, "runErrorMsg": true,
}

// ArrowOperatorRule is E008: CAPL has no pointer-arrow member access; every
// `->` is rewritten to `.`.
type ArrowOperatorRule struct{}

func (ArrowOperatorRule) RuleID() string           { return "E008" }
func (ArrowOperatorRule) Slug() string             { return "arrow-operator" }
func (ArrowOperatorRule) Severity() model.Severity { return model.SeverityError }
func (ArrowOperatorRule) AutoFixable() bool        { return true }

func (r ArrowOperatorRule) Check(file *rule.File, _ *store.Store) []model.Issue {
	var issues []model.Issue
	source := file.Result.Source
	for i := 0; i+1 < len(source); i++ {
		if source[i] == '-' && source[i+1] == '>' {
			rng := model.Range{
				StartByte: i,
				EndByte:   i + 2,
				Start:     file.Result.PositionForByte(i),
				End:       file.Result.PositionForByte(i + 2),
			}
			issues = append(issues, model.Issue{
				RuleID:       r.RuleID(),
				Severity:     r.Severity(),
				File:         file.Path,
				PrimaryRange: rng,
				Message:      "use '.' for member access, CAPL has no '->' operator",
				AutoFixable:  true,
			})
		}
	}
	return issues
}

func (r ArrowOperatorRule) Fix(file *rule.File, issues []model.Issue) []model.Transformation {
	b := rewrite.NewBuilder()
	for _, issue := range issues {
		if issue.RuleID != r.RuleID() {
			continue
		}
		b.Replace(issue.PrimaryRange.StartByte, issue.PrimaryRange.EndByte, []byte("."), r.RuleID())
	}
	return b.Transformations()
}

// PointerParameterRule is E009: pointer parameters aren't meaningful in
// CAPL except for the ethernetpacket type; reported only, never fixed.
type PointerParameterRule struct{}

func (PointerParameterRule) RuleID() string           { return "E009" }
func (PointerParameterRule) Slug() string             { return "pointer-parameter" }
func (PointerParameterRule) Severity() model.Severity { return model.SeverityError }
func (PointerParameterRule) AutoFixable() bool        { return false }

func (r PointerParameterRule) Check(file *rule.File, _ *store.Store) []model.Issue {
	var issues []model.Issue
	for n, _ := range captree.Walk(file.Root()) {
		if n.Type() != "parameter_declaration" {
			continue
		}
		if !hasPointerDeclarator(n) {
			continue
		}
		typeText := paramTypeText(file, n)
		if typeText == "ethernetpacket" {
			continue
		}
		issues = append(issues, model.Issue{
			RuleID:       r.RuleID(),
			Severity:     r.Severity(),
			File:         file.Path,
			PrimaryRange: file.Result.RangeFor(n),
			Message:      "pointer parameters are not supported in CAPL except for ethernetpacket",
			AutoFixable:  false,
		})
	}
	return issues
}

func hasPointerDeclarator(n *sitter.Node) bool {
	for _, c := range captree.FindAllByType(n, "pointer_declarator") {
		_ = c
		return true
	}
	return false
}

func paramTypeText(file *rule.File, n *sitter.Node) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "primitive_type", "type_identifier", "sized_type_specifier":
			return file.Result.Text(c)
		}
	}
	return ""
}

// UndefinedSymbolRule is E011: a reference to a name absent from the
// project's visible symbols, built-ins, and enum members. Report only:
// renaming or removing a reference is a cross-file judgment call the tool
// does not make automatically.
type UndefinedSymbolRule struct{}

func (UndefinedSymbolRule) RuleID() string           { return "E011" }
func (UndefinedSymbolRule) Slug() string             { return "undefined-symbol" }
func (UndefinedSymbolRule) Severity() model.Severity { return model.SeverityError }
func (UndefinedSymbolRule) AutoFixable() bool        { return false }

func (r UndefinedSymbolRule) Check(file *rule.File, symbols *store.Store) []model.Issue {
	visible, err := symbols.VisibleSymbols(file.Path)
	if err != nil {
		return nil
	}
	defined := make(map[string]bool)
	for _, sym := range visible {
		defined[sym.Name] = true
	}

	var issues []model.Issue
	for _, ref := range file.Facts.References {
		if len(ref.ReferencedName) <= 1 || builtinNames[ref.ReferencedName] || defined[ref.ReferencedName] {
			continue
		}
		issues = append(issues, model.Issue{
			RuleID:       r.RuleID(),
			Severity:     r.Severity(),
			File:         file.Path,
			PrimaryRange: ref.Range,
			Message:      "reference to undefined symbol '" + ref.ReferencedName + "'",
			AutoFixable:  false,
		})
	}
	return issues
}

// DuplicateFunctionRule is E012: more than one function body defining the
// same name across the project.
type DuplicateFunctionRule struct{}

func (DuplicateFunctionRule) RuleID() string           { return "E012" }
func (DuplicateFunctionRule) Slug() string             { return "duplicate-function" }
func (DuplicateFunctionRule) Severity() model.Severity { return model.SeverityError }
func (DuplicateFunctionRule) AutoFixable() bool        { return false }

func (r DuplicateFunctionRule) Check(file *rule.File, symbols *store.Store) []model.Issue {
	dupes, err := symbols.DuplicateFunctions()
	if err != nil {
		return nil
	}
	dupeSet := make(map[string]bool, len(dupes))
	for _, name := range dupes {
		dupeSet[name] = true
	}

	var issues []model.Issue
	for _, sym := range file.Facts.Symbols {
		if sym.Kind == model.KindFunction && sym.HasBody && dupeSet[sym.Name] {
			issues = append(issues, model.Issue{
				RuleID:       r.RuleID(),
				Severity:     r.Severity(),
				File:         file.Path,
				PrimaryRange: sym.Range,
				Message:      "function '" + sym.Name + "' is defined more than once across the project",
				AutoFixable:  false,
			})
		}
	}
	return issues
}

// UnusedVariableRule is W002: a variables-block symbol with no references
// anywhere in the project. Not auto-fixable: removing a declaration can
// change the memory layout tooling built on CANoe expects.
type UnusedVariableRule struct{}

func (UnusedVariableRule) RuleID() string           { return "W002" }
func (UnusedVariableRule) Slug() string             { return "unused-variable" }
func (UnusedVariableRule) Severity() model.Severity { return model.SeverityWarning }
func (UnusedVariableRule) AutoFixable() bool        { return false }

func (r UnusedVariableRule) Check(file *rule.File, symbols *store.Store) []model.Issue {
	var issues []model.Issue
	for _, sym := range file.Facts.Symbols {
		if sym.DeclaredInScope != model.ScopeGlobalVariablesBlock || sym.Kind != model.KindVariable {
			continue
		}
		refs, err := symbols.ReferencesTo(sym.Name)
		if err != nil || len(refs) > 0 {
			continue
		}
		issues = append(issues, model.Issue{
			RuleID:       r.RuleID(),
			Severity:     r.Severity(),
			File:         file.Path,
			PrimaryRange: sym.Range,
			Message:      "variable '" + sym.Name + "' is never referenced",
			AutoFixable:  false,
		})
	}
	return issues
}

// TimerNoHandlerRule is W003: a setTimer/setTimerCyclic reference naming a
// timer with no `on timer <name>` handler anywhere visible.
type TimerNoHandlerRule struct{}

func (TimerNoHandlerRule) RuleID() string           { return "W003" }
func (TimerNoHandlerRule) Slug() string             { return "timer-no-handler" }
func (TimerNoHandlerRule) Severity() model.Severity { return model.SeverityWarning }
func (TimerNoHandlerRule) AutoFixable() bool        { return false }

func (r TimerNoHandlerRule) Check(file *rule.File, symbols *store.Store) []model.Issue {
	visible, err := symbols.VisibleSymbols(file.Path)
	if err != nil {
		return nil
	}
	handlerFor := make(map[string]bool)
	for _, sym := range visible {
		if sym.Kind == model.KindEventHandler {
			if name, ok := timerHandlerSubject(sym.Name); ok {
				handlerFor[name] = true
			}
		}
	}

	var issues []model.Issue
	for _, ref := range file.Facts.References {
		if ref.Context != model.ContextTimerSet {
			continue
		}
		if handlerFor[ref.ReferencedName] {
			continue
		}
		issues = append(issues, model.Issue{
			RuleID:       r.RuleID(),
			Severity:     r.Severity(),
			File:         file.Path,
			PrimaryRange: ref.Range,
			Message:      "timer '" + ref.ReferencedName + "' is set but has no 'on timer' handler",
			AutoFixable:  false,
		})
	}
	return issues
}

func timerHandlerSubject(handlerName string) (string, bool) {
	const prefix = "on timer "
	if len(handlerName) > len(prefix) && handlerName[:len(prefix)] == prefix {
		return handlerName[len(prefix):], true
	}
	return "", false
}

// MessageNoHandlerRule is W004: a message-typed variable whose message type
// has no `on message <type>` handler anywhere visible.
type MessageNoHandlerRule struct{}

func (MessageNoHandlerRule) RuleID() string           { return "W004" }
func (MessageNoHandlerRule) Slug() string             { return "message-no-handler" }
func (MessageNoHandlerRule) Severity() model.Severity { return model.SeverityWarning }
func (MessageNoHandlerRule) AutoFixable() bool        { return false }

func (r MessageNoHandlerRule) Check(file *rule.File, symbols *store.Store) []model.Issue {
	visible, err := symbols.VisibleSymbols(file.Path)
	if err != nil {
		return nil
	}
	handled := make(map[string]bool)
	for _, sym := range visible {
		if sym.Kind == model.KindEventHandler {
			if name, ok := messageHandlerSubject(sym.Name); ok {
				handled[name] = true
			}
		}
	}

	var issues []model.Issue
	for _, sym := range file.Facts.Symbols {
		if sym.Kind != model.KindMessage || sym.TypeText == "" {
			continue
		}
		if handled[sym.TypeText] {
			continue
		}
		issues = append(issues, model.Issue{
			RuleID:       r.RuleID(),
			Severity:     r.Severity(),
			File:         file.Path,
			PrimaryRange: sym.Range,
			Message:      "message type '" + sym.TypeText + "' has no 'on message' handler",
			AutoFixable:  false,
		})
	}
	return issues
}

func messageHandlerSubject(handlerName string) (string, bool) {
	const prefix = "on message "
	if len(handlerName) > len(prefix) && handlerName[:len(prefix)] == prefix {
		return handlerName[len(prefix):], true
	}
	return "", false
}

// DuplicateHandlerRule is W005: more than one event handler in a file
// shares the same (kind, subject) identity. `on start` is exempt since the
// spec treats it as a system event allowed to repeat.
type DuplicateHandlerRule struct{}

func (DuplicateHandlerRule) RuleID() string           { return "W005" }
func (DuplicateHandlerRule) Slug() string             { return "duplicate-handler" }
func (DuplicateHandlerRule) Severity() model.Severity { return model.SeverityWarning }
func (DuplicateHandlerRule) AutoFixable() bool        { return false }

func (r DuplicateHandlerRule) Check(file *rule.File, _ *store.Store) []model.Issue {
	seen := make(map[string]model.Symbol)
	var issues []model.Issue
	for _, sym := range file.Facts.Symbols {
		if sym.Kind != model.KindEventHandler || sym.Name == "on start" {
			continue
		}
		if prior, ok := seen[sym.Name]; ok {
			issues = append(issues, model.Issue{
				RuleID:       r.RuleID(),
				Severity:     r.Severity(),
				File:         file.Path,
				PrimaryRange: sym.Range,
				Message:      "duplicate handler '" + sym.Name + "', first defined at line " + itoa(prior.Range.Start.Row+1),
				AutoFixable:  false,
			})
			continue
		}
		seen[sym.Name] = sym
	}
	return issues
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
