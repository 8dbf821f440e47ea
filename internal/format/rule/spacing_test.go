package rule

import "testing"

func TestSpacingRuleAddsSpaceAroundAssignment(t *testing.T) {
	t.Parallel()
	file := newTestFormatFile(t, "long f()\n{\n  a=b;\n}\n")
	got := applyRule(t, file, SpacingRule{})
	if got != "long f()\n{\n  a = b;\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestSpacingRuleRemovesSpaceBeforeCallParens(t *testing.T) {
	t.Parallel()
	file := newTestFormatFile(t, "long f()\n{\n  write (\"hi\");\n}\n")
	got := applyRule(t, file, SpacingRule{})
	if got != "long f()\n{\n  write(\"hi\");\n}\n" {
		t.Errorf("got %q", got)
	}
}

func TestSpacingRuleLeavesCorrectlySpacedCodeAlone(t *testing.T) {
	t.Parallel()
	file := newTestFormatFile(t, "long f()\n{\n  a = b;\n}\n")
	got := applyRule(t, file, SpacingRule{})
	if got != "long f()\n{\n  a = b;\n}\n" {
		t.Errorf("got %q, want no change", got)
	}
}
