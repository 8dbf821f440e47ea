package lint

import (
	"path/filepath"
	"testing"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/extract"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
	"github.com/capl-tools/capllint/internal/rule"
	"github.com/capl-tools/capllint/internal/store"
)

// newTestFile parses source and builds a rule.File the way analyze/fix do,
// without touching the symbol store.
func newTestFile(t *testing.T, path, source string) *rule.File {
	t.Helper()
	result, err := captree.Parse([]byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	t.Cleanup(result.Close)
	facts := extract.Extract(path, result)
	return &rule.File{Path: path, Result: result, Facts: facts, Config: config.Default()}
}

// newTestStore opens a throwaway symbol store, used by rules that need
// project-wide visibility (E011, E012, W001-W005).
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "symbols.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedFile populates the store with one file's facts the way analyze does.
func seedFile(t *testing.T, s *store.Store, file *rule.File) {
	t.Helper()
	hash := store.ContentHash(file.Result.Source)
	id, err := s.UpsertFile(file.Path, hash, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceSymbols(id, file.Facts.Symbols); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceReferences(id, file.Facts.References); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceIncludes(id, file.Facts.Includes); err != nil {
		t.Fatal(err)
	}
}

func issuesFor(issues []model.Issue, ruleID string) []model.Issue {
	var out []model.Issue
	for _, i := range issues {
		if i.RuleID == ruleID {
			out = append(out, i)
		}
	}
	return out
}

func applyFix(t *testing.T, file *rule.File, fixer rule.Fixer, issues []model.Issue) string {
	t.Helper()
	transformations := fixer.Fix(file, issues)
	out, err := rewrite.Apply(file.Result.Source, transformations)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return string(out)
}

func TestRegistryOrderIsFixed(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	rules := reg.Rules()
	if len(rules) != 16 {
		t.Fatalf("expected 16 rules, got %d", len(rules))
	}
	if rules[0].RuleID() != "E001" {
		t.Errorf("first rule = %s, want E001", rules[0].RuleID())
	}
	if rules[len(rules)-1].RuleID() != "W005" {
		t.Errorf("last rule = %s, want W005", rules[len(rules)-1].RuleID())
	}
}
