package lint

import (
	"strings"
	"testing"
)

func TestExternKeywordRuleFlagsAndRemoves(t *testing.T) {
	t.Parallel()
	file := newTestFile(t, "a.can", "extern long helper(long x);\n")

	rule := ExternKeywordRule{}
	issues := rule.Check(file, nil)
	if len(issues) != 1 {
		t.Fatalf("Check returned %d issues, want 1", len(issues))
	}

	got := applyFix(t, file, rule, issues)
	if strings.Contains(got, "extern") {
		t.Errorf("fixed source still contains 'extern': %q", got)
	}
	if got != "long helper(long x);\n" {
		t.Errorf("got %q, want %q", got, "long helper(long x);\n")
	}
}

func TestExternKeywordRuleNoMatch(t *testing.T) {
	t.Parallel()
	file := newTestFile(t, "a.can", "long helper(long x);\n")
	issues := ExternKeywordRule{}.Check(file, nil)
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestFunctionDeclarationRuleRemovesForwardDeclaration(t *testing.T) {
	t.Parallel()
	source := "long helper(long x);\n\nlong helper(long x)\n{\n  return x;\n}\n"
	file := newTestFile(t, "a.can", source)

	rule := FunctionDeclarationRule{}
	issues := rule.Check(file, nil)
	if len(issues) != 1 {
		t.Fatalf("Check returned %d issues, want 1", len(issues))
	}

	got := applyFix(t, file, rule, issues)
	if strings.Contains(got, "helper(long x);") {
		t.Errorf("forward declaration survived fix: %q", got)
	}
	if !strings.Contains(got, "return x;") {
		t.Errorf("function definition should have survived the fix: %q", got)
	}
}

func TestFunctionDeclarationRuleIgnoresDefinedFunctions(t *testing.T) {
	t.Parallel()
	file := newTestFile(t, "a.can", "long helper(long x)\n{\n  return x;\n}\n")
	issues := FunctionDeclarationRule{}.Check(file, nil)
	if len(issues) != 0 {
		t.Errorf("expected no issues for a defined function, got %v", issues)
	}
}

func TestGlobalTypeDefinitionRuleMovesEnumIntoVariablesBlock(t *testing.T) {
	t.Parallel()
	source := "variables\n{\n  int gCounter;\n}\n\nenum Color { RED, GREEN };\n"
	file := newTestFile(t, "a.can", source)

	rule := GlobalTypeDefinitionRule{}
	issues := rule.Check(file, nil)
	if len(issues) != 1 {
		t.Fatalf("Check returned %d issues, want 1", len(issues))
	}
	if issues[0].RuleID != "E003" {
		t.Errorf("RuleID = %s, want E003", issues[0].RuleID)
	}

	got := applyFix(t, file, rule, issues)
	variablesEnd := strings.Index(got, "}")
	if variablesEnd < 0 || !strings.Contains(got[:variablesEnd], "enum Color") {
		t.Errorf("expected enum moved inside the variables block, got:\n%s", got)
	}
}

func TestGlobalTypeDefinitionRuleIgnoresAlreadyNestedEnum(t *testing.T) {
	t.Parallel()
	source := "variables\n{\n  enum Color { RED, GREEN } gColor;\n}\n"
	file := newTestFile(t, "a.can", source)
	issues := GlobalTypeDefinitionRule{}.Check(file, nil)
	if len(issues) != 0 {
		t.Errorf("expected no issues for an enum already inside variables, got %v", issues)
	}
}
