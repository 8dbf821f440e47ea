// Package report defines the three outcome values the core hands back to
// an external caller, plus text/JSON/TOON rendering for a CLI.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/capl-tools/capllint/internal/model"
)

// AnalysisReport is the result of analyze(): every issue found, plus how
// many facts the pass contributed to the symbol store.
type AnalysisReport struct {
	File            string        `json:"file"`
	Issues          []model.Issue `json:"issues"`
	SymbolsAdded    int           `json:"symbols_added"`
	ReferencesAdded int           `json:"references_added"`
}

// FixReport is the result of lint_fix().
type FixReport struct {
	File            string        `json:"file"`
	NewBytes        []byte        `json:"-"`
	RemainingIssues []model.Issue `json:"remaining_issues"`
	AppliedRuleIDs  []string      `json:"applied_rule_ids"`
	PassesUsed      int           `json:"passes_used"`
	Converged       bool          `json:"converged"`
}

// FormatReport is the result of format(). In check-only mode NewBytes is
// nil and Changed reports whether the formatted output would differ.
type FormatReport struct {
	File       string   `json:"file"`
	NewBytes   []byte   `json:"-"`
	Changed    bool     `json:"changed"`
	Violations []string `json:"violations"`
}

// ExitCode follows spec's 0/1/2 contract: 0 clean, 1 issues/violations
// found, 2 internal or IO failure (callers set 2 themselves on error).
func (r AnalysisReport) ExitCode() int {
	if len(r.Issues) == 0 {
		return 0
	}
	return 1
}

func (r FixReport) ExitCode() int {
	if len(r.RemainingIssues) == 0 {
		return 0
	}
	return 1
}

func (r FormatReport) ExitCode() int {
	if !r.Changed {
		return 0
	}
	return 1
}

// RenderIssuesText writes a human-readable issue listing, one line per issue,
// sorted by (row, column, rule id) for deterministic output.
func RenderIssuesText(w *strings.Builder, file string, issues []model.Issue) {
	sorted := append([]model.Issue{}, issues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.PrimaryRange.Start.Row != b.PrimaryRange.Start.Row {
			return a.PrimaryRange.Start.Row < b.PrimaryRange.Start.Row
		}
		if a.PrimaryRange.Start.Column != b.PrimaryRange.Start.Column {
			return a.PrimaryRange.Start.Column < b.PrimaryRange.Start.Column
		}
		return a.RuleID < b.RuleID
	})
	for _, issue := range sorted {
		fmt.Fprintf(w, "%s:%d:%d: %s: [%s] %s\n",
			file, issue.PrimaryRange.Start.Row+1, issue.PrimaryRange.Start.Column+1,
			issue.Severity, issue.RuleID, issue.Message)
	}
}

// RenderJSON marshals v (an AnalysisReport, FixReport, or FormatReport) as
// indented JSON.
func RenderJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

