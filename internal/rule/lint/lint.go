package lint

import "github.com/capl-tools/capllint/internal/rule"

// NewRegistry builds the fixed, explicitly-ordered rule set: E-series in
// their spec-table order, then W001 (special-cased first among W-rules
// since other W-rules and E011 depend on the visibility closure it
// reports on), then the remaining supplemented W-rules.
func NewRegistry() *rule.Registry {
	reg := rule.NewRegistry()
	reg.Register(ExternKeywordRule{})
	reg.Register(FunctionDeclarationRule{})
	reg.Register(GlobalTypeDefinitionRule{})
	reg.Register(MissingEnumKeywordRule{})
	reg.Register(MissingStructKeywordRule{})
	reg.Register(VariableOutsideBlockRule{})
	reg.Register(VariableMidBlockRule{})
	reg.Register(ArrowOperatorRule{})
	reg.Register(PointerParameterRule{})
	reg.Register(UndefinedSymbolRule{})
	reg.Register(DuplicateFunctionRule{})
	reg.Register(CircularIncludeRule{})
	reg.Register(UnusedVariableRule{})
	reg.Register(TimerNoHandlerRule{})
	reg.Register(MessageNoHandlerRule{})
	reg.Register(DuplicateHandlerRule{})
	return reg
}
