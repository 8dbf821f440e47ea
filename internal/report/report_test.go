package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/capl-tools/capllint/internal/model"
)

func TestExitCodeAnalysisReport(t *testing.T) {
	t.Parallel()
	if (AnalysisReport{}).ExitCode() != 0 {
		t.Error("empty AnalysisReport should exit 0")
	}
	if (AnalysisReport{Issues: []model.Issue{{}}}).ExitCode() != 1 {
		t.Error("AnalysisReport with issues should exit 1")
	}
}

func TestExitCodeFixReport(t *testing.T) {
	t.Parallel()
	if (FixReport{}).ExitCode() != 0 {
		t.Error("empty FixReport should exit 0")
	}
	if (FixReport{RemainingIssues: []model.Issue{{}}}).ExitCode() != 1 {
		t.Error("FixReport with remaining issues should exit 1")
	}
}

func TestExitCodeFormatReport(t *testing.T) {
	t.Parallel()
	if (FormatReport{Changed: false}).ExitCode() != 0 {
		t.Error("unchanged FormatReport should exit 0")
	}
	if (FormatReport{Changed: true}).ExitCode() != 1 {
		t.Error("changed FormatReport should exit 1")
	}
}

func TestRenderIssuesTextSortsByPositionThenRule(t *testing.T) {
	t.Parallel()
	issues := []model.Issue{
		{RuleID: "E002", Severity: model.SeverityError, PrimaryRange: model.Range{Start: model.Position{Row: 1, Column: 0}}, Message: "second line"},
		{RuleID: "E003", Severity: model.SeverityError, PrimaryRange: model.Range{Start: model.Position{Row: 0, Column: 5}}, Message: "same line, later column"},
		{RuleID: "E001", Severity: model.SeverityError, PrimaryRange: model.Range{Start: model.Position{Row: 0, Column: 0}}, Message: "first"},
	}

	var b strings.Builder
	RenderIssuesText(&b, "a.can", issues)
	out := b.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if !strings.Contains(lines[0], "E001") {
		t.Errorf("line 0 = %q, want E001 first", lines[0])
	}
	if !strings.Contains(lines[1], "E003") {
		t.Errorf("line 1 = %q, want E003 (row 0, col 5)", lines[1])
	}
	if !strings.Contains(lines[2], "E002") {
		t.Errorf("line 2 = %q, want E002 (row 1) last", lines[2])
	}
}

func TestRenderIssuesTextFormat(t *testing.T) {
	t.Parallel()
	issues := []model.Issue{
		{RuleID: "E001", Severity: model.SeverityError, PrimaryRange: model.Range{Start: model.Position{Row: 2, Column: 3}}, Message: "bad extern"},
	}
	var b strings.Builder
	RenderIssuesText(&b, "foo.can", issues)
	want := "foo.can:3:4: error: [E001] bad extern\n"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}

func TestRenderJSONRoundTrips(t *testing.T) {
	t.Parallel()
	report := AnalysisReport{File: "a.can", Issues: []model.Issue{{RuleID: "E001"}}, SymbolsAdded: 3}
	out, err := RenderJSON(report)
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	var decoded AnalysisReport
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.File != "a.can" || decoded.SymbolsAdded != 3 || len(decoded.Issues) != 1 {
		t.Errorf("decoded report = %+v, want match to original", decoded)
	}
}

func TestEncodeTOONTabularShape(t *testing.T) {
	t.Parallel()
	issues := []model.Issue{
		{RuleID: "E001", Severity: model.SeverityError, PrimaryRange: model.Range{Start: model.Position{Row: 0, Column: 0}}, Message: "bad extern"},
	}
	out := EncodeTOON("a.can", issues)
	if !strings.Contains(out, "file: a.can") {
		t.Errorf("expected a file: header, got:\n%s", out)
	}
	if !strings.Contains(out, "issues[1]{rule,severity,line,col,message}:") {
		t.Errorf("expected a tabular issues header, got:\n%s", out)
	}
	if !strings.Contains(out, "E001,error,1,1,bad extern") {
		t.Errorf("expected a data row for the issue, got:\n%s", out)
	}
}

func TestEncodeTOONQuotesValuesNeedingIt(t *testing.T) {
	t.Parallel()
	issues := []model.Issue{
		{RuleID: "E001", Severity: model.SeverityError, Message: "contains, a comma"},
	}
	out := EncodeTOON("a.can", issues)
	if !strings.Contains(out, `"contains, a comma"`) {
		t.Errorf("expected the comma-containing message to be quoted, got:\n%s", out)
	}
}

func TestEncodeTOONEmptyIssueList(t *testing.T) {
	t.Parallel()
	out := EncodeTOON("clean.can", nil)
	if !strings.Contains(out, "issues[0]{rule,severity,line,col,message}:") {
		t.Errorf("expected a zero-row tabular header, got:\n%s", out)
	}
}
