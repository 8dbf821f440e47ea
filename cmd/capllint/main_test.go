package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// chdir switches the process working directory for the duration of the
// test and restores it afterward. capllint resolves the symbol store and
// default config relative to the working directory.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code, err := run([]string{"-V"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code: got %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "capllint") {
		t.Errorf("version output: %q", stdout.String())
	}
}

func TestRunNoCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code, err := run(nil, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error with no command")
	}
	if code != 2 {
		t.Errorf("exit code: got %d, want 2", code)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code, err := run([]string{"bogus"}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if code != 2 {
		t.Errorf("exit code: got %d, want 2", code)
	}
}

func TestRunAnalyzeClean(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeTestFile(t, dir, "node.can", `variables
{
  int gCounter;
}

on start
{
  write("hello");
}
`)

	var stdout, stderr bytes.Buffer
	code, err := run([]string{"analyze", "node.can"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if code != 0 {
		t.Errorf("exit code: got %d, want 0\nstdout: %s", code, stdout.String())
	}
}

func TestRunAnalyzeFindsIssue(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeTestFile(t, dir, "node.can", `variables
{
  int gCounter;
}

on start
{
  extern long helper(long x);
}
`)

	var stdout, stderr bytes.Buffer
	code, err := run([]string{"analyze", "node.can"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if code != 1 {
		t.Errorf("exit code: got %d, want 1\nstdout: %s", code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "node.can") {
		t.Errorf("output missing file name:\n%s", stdout.String())
	}
}

func TestRunLintIsAliasForAnalyze(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeTestFile(t, dir, "node.can", `variables
{
  int gCounter;
}
`)

	var stdout1, stderr1, stdout2, stderr2 bytes.Buffer
	_, err1 := run([]string{"analyze", "node.can"}, &stdout1, &stderr1)
	_, err2 := run([]string{"lint", "node.can"}, &stdout2, &stderr2)
	if err1 != nil || err2 != nil {
		t.Fatalf("run errors: %v, %v", err1, err2)
	}
	if stdout1.String() != stdout2.String() {
		t.Errorf("lint and analyze diverged:\nanalyze: %s\nlint: %s", stdout1.String(), stdout2.String())
	}
}

func TestRunFixRewritesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeTestFile(t, dir, "node.can", `variables
{
  int gCounter;
}

on start
{
  gCounter->x;
}
`)

	var stdout, stderr bytes.Buffer
	if _, err := run([]string{"fix", "node.can"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "->") {
		t.Errorf("fix should have rewritten -> to ., got:\n%s", data)
	}
	if !strings.Contains(stdout.String(), "pass(es)") {
		t.Errorf("fix output should summarize passes:\n%s", stdout.String())
	}
}

func TestRunFormatCheckDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	original := "variables\n{\nint   gCounter;\n}\n"
	path := writeTestFile(t, dir, "node.can", original)

	var stdout, stderr bytes.Buffer
	code, err := run([]string{"format", "--check", "node.can"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != original {
		t.Errorf("format --check must not modify the file")
	}
	if code != 0 && code != 1 {
		t.Errorf("exit code: got %d, want 0 or 1", code)
	}
}

func TestRunFormatRewritesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeTestFile(t, dir, "node.can", "variables\n{\nint   gCounter;\n}\n")

	var stdout, stderr bytes.Buffer
	if _, err := run([]string{"format", "node.can"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	if _, err := os.ReadFile(path); err != nil {
		t.Fatal(err)
	}
}

func TestRunAnalyzeJSON(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeTestFile(t, dir, "node.can", `variables
{
  int gCounter;
}
`)

	var stdout, stderr bytes.Buffer
	if _, err := run([]string{"analyze", "--json", "node.can"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "[") {
		t.Errorf("--json output should be a JSON array:\n%s", out)
	}
	if !strings.Contains(out, `"file"`) {
		t.Errorf("--json output missing file field:\n%s", out)
	}
}

func TestRunAnalyzeMissingFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	var stdout, stderr bytes.Buffer
	code, err := run([]string{"analyze", "nope.can"}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if code != 2 {
		t.Errorf("exit code: got %d, want 2", code)
	}
}

func TestRunAnalyzeDirectory(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeTestFile(t, dir, "a.can", "variables\n{\nint gA;\n}\n")
	writeTestFile(t, dir, "b.cin", "int gB;\n")

	var stdout, stderr bytes.Buffer
	code, err := run([]string{"analyze", "."}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	_ = code
}

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"flags first", []string{"--json", "node.can"}, []string{"--json", "node.can"}},
		{"positional first", []string{"node.can", "--json"}, []string{"--json", "node.can"}},
		{"mixed with value flag", []string{"node.can", "--config", "x.json"}, []string{"--config", "x.json", "node.can"}},
		{"no flags", []string{"node.can"}, []string{"node.can"}},
		{"no args", nil, nil},
		{"double dash", []string{"--", "--weird.can"}, []string{"--weird.can"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: got %q, want %q (full: %v)", i, got[i], tt.want[i], got)
				}
			}
		})
	}
}

func TestRunInitThroughDispatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CLAUDE.md")

	var stdout, stderr bytes.Buffer
	code, err := run([]string{"init", path}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if code != 0 {
		t.Errorf("exit code: got %d, want 0", code)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("init should have created %s: %v", path, err)
	}
}
