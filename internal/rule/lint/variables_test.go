package lint

import (
	"strings"
	"testing"
)

func TestVariableOutsideBlockRuleMovesGlobalIntoBlock(t *testing.T) {
	t.Parallel()
	source := "variables\n{\n  int gCounter;\n}\n\nint gExtra;\n"
	file := newTestFile(t, "a.can", source)

	rule := VariableOutsideBlockRule{}
	issues := rule.Check(file, nil)
	if len(issues) != 1 {
		t.Fatalf("Check returned %d issues, want 1: %v", len(issues), issues)
	}

	got := applyFix(t, file, rule, issues)
	variablesEnd := strings.Index(got, "}")
	if variablesEnd < 0 || !strings.Contains(got[:variablesEnd], "gExtra") {
		t.Errorf("expected gExtra moved inside the variables block, got:\n%s", got)
	}
	if strings.Count(got, "gExtra") != 1 {
		t.Errorf("expected gExtra to appear exactly once after the fix, got:\n%s", got)
	}
}

func TestVariableOutsideBlockRuleIgnoresLocalsAndBlockMembers(t *testing.T) {
	t.Parallel()
	source := "variables\n{\n  int gCounter;\n}\n\nvoid doWork()\n{\n  int local;\n}\n"
	file := newTestFile(t, "a.can", source)
	issues := VariableOutsideBlockRule{}.Check(file, nil)
	if len(issues) != 0 {
		t.Errorf("expected no issues for a properly-scoped variable, got %v", issues)
	}
}

func TestVariableMidBlockRuleMovesLocalToBlockStart(t *testing.T) {
	t.Parallel()
	source := "on start\n{\n  write(\"one\");\n  long local;\n  local = 1;\n}\n"
	file := newTestFile(t, "a.can", source)

	rule := VariableMidBlockRule{}
	issues := rule.Check(file, nil)
	if len(issues) != 1 {
		t.Fatalf("Check returned %d issues, want 1: %v", len(issues), issues)
	}

	got := applyFix(t, file, rule, issues)
	openBrace := strings.Index(got, "{")
	firstWrite := strings.Index(got, "write(")
	declPos := strings.Index(got, "long local;")
	if declPos < 0 {
		t.Fatalf("declaration missing after fix: %q", got)
	}
	if declPos < openBrace || declPos > firstWrite {
		t.Errorf("expected 'long local;' to move ahead of 'write(\"one\")', got:\n%s", got)
	}
}

func TestVariableMidBlockRuleIgnoresLeadingDeclaration(t *testing.T) {
	t.Parallel()
	source := "on start\n{\n  long local;\n  write(\"one\");\n}\n"
	file := newTestFile(t, "a.can", source)
	issues := VariableMidBlockRule{}.Check(file, nil)
	if len(issues) != 0 {
		t.Errorf("expected no issues when the declaration already leads the block, got %v", issues)
	}
}
