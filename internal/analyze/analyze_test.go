package analyze

import (
	"path/filepath"
	"testing"

	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/rule/lint"
	"github.com/capl-tools/capllint/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "symbols.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAnalyzeCleanFileHasNoIssues(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	reg := lint.NewRegistry()
	source := []byte("variables\n{\n  int gCounter;\n}\n\non start\n{\n  gCounter = 1;\n}\n")

	result, err := Analyze("a.can", source, config.Default(), reg, s)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Issues) != 0 {
		t.Errorf("expected no issues, got %v", result.Issues)
	}
	if result.SymbolsAdded == 0 {
		t.Error("expected SymbolsAdded > 0 for a fresh file")
	}
}

func TestAnalyzeFindsExternIssue(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	reg := lint.NewRegistry()
	source := []byte("extern long helper(long x);\n")

	result, err := Analyze("a.can", source, config.Default(), reg, s)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	found := false
	for _, issue := range result.Issues {
		if issue.RuleID == "E001" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an E001 issue, got %v", result.Issues)
	}
}

func TestAnalyzeIsIdempotentForUnchangedContent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	reg := lint.NewRegistry()
	source := []byte("variables\n{\n  int gCounter;\n}\n")

	first, err := Analyze("a.can", source, config.Default(), reg, s)
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if first.SymbolsAdded == 0 {
		t.Fatal("expected the first pass to add symbols")
	}

	second, err := Analyze("a.can", source, config.Default(), reg, s)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if second.SymbolsAdded != 0 {
		t.Errorf("expected a content-hash match to skip re-insertion, got SymbolsAdded=%d", second.SymbolsAdded)
	}
}

func TestAnalyzeToleratesEmptySource(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	reg := lint.NewRegistry()
	if _, err := Analyze("a.can", nil, config.Default(), reg, s); err != nil {
		t.Errorf("empty source should still parse to an empty tree, got error: %v", err)
	}
}
