package rule

import "testing"

func TestSwitchNormalizationRuleSplitsCaseLabelSharingPreviousLine(t *testing.T) {
	t.Parallel()
	source := "long f(long x)\n{\n  switch (x)\n  {\n    case 1: write(\"one\");\n      break;\n  }\n  return 0;\n}\n"
	file := newTestFormatFile(t, source)
	got := applyRule(t, file, SwitchNormalizationRule{})
	if got == source {
		t.Fatalf("expected the rule to split the case label onto its own line")
	}
	wantPrefix := "long f(long x)\n{\n  switch (x)\n  {\n    case 1:\n"
	if len(got) < len(wantPrefix) || got[:len(wantPrefix)] != wantPrefix {
		t.Errorf("got %q, want case label split from its statement", got)
	}
}

func TestSwitchNormalizationRuleLeavesAlreadyNormalizedSwitchAlone(t *testing.T) {
	t.Parallel()
	source := "long f(long x)\n{\n  switch (x)\n  {\n    case 1:\n      write(\"one\");\n      break;\n  }\n  return 0;\n}\n"
	file := newTestFormatFile(t, source)
	got := applyRule(t, file, SwitchNormalizationRule{})
	if got != source {
		t.Errorf("got %q, want no change", got)
	}
}
