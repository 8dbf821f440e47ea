package rule

import (
	"testing"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/rewrite"
)

func newTestFormatFile(t *testing.T, source string) *FormatFile {
	t.Helper()
	result, err := captree.Parse([]byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	t.Cleanup(result.Close)
	return &FormatFile{Path: "test.can", Result: result, Config: config.Default()}
}

func applyRule(t *testing.T, file *FormatFile, rl FormatRule) string {
	t.Helper()
	transformations := rl.Apply(file)
	out, err := rewrite.Apply(file.Result.Source, transformations)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return string(out)
}
