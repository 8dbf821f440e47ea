package rule

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// BraceStyleRule normalizes brace spacing: a `{` on the same line as its
// header is separated from it by exactly one space, and a `}` that shares a
// line with the block's last statement is moved onto its own line. A `{`
// already on a later line than its header is left where it is; the rule
// does not join it to the header line.
type BraceStyleRule struct{}

func (BraceStyleRule) RuleID() string { return "FMT_BRACE_STYLE" }

func (rl BraceStyleRule) Apply(file *FormatFile) []model.Transformation {
	b := rewrite.NewBuilder()
	source := file.Result.Source
	ruleID := BraceStyleRule{}.RuleID()

	for n, _ := range captree.Walk(file.Root()) {
		if n.Type() != "compound_statement" {
			continue
		}
		open, close, stmts := braceParts(n)
		if open == nil {
			continue
		}

		header := headerEnd(n)
		if header >= 0 && header < int(open.StartByte()) {
			ensureOneSpace(b, source, header, int(open.StartByte()), ruleID)
		}

		if close != nil {
			var lastEnd int
			if len(stmts) > 0 {
				lastEnd = int(stmts[len(stmts)-1].EndByte())
			} else {
				lastEnd = int(open.EndByte())
			}
			if int(close.StartPoint().Row) == file.Result.PositionForByte(lastEnd).Row && lastEnd != int(close.StartByte()) {
				b.Insert(lastEnd, []byte("\n"), ruleID)
			}
		}
	}
	return b.Transformations()
}

// headerEnd returns the byte offset immediately after the token preceding
// block's opening brace (its "header"), or -1 if block has no previous
// sibling to treat as a header.
func headerEnd(block *sitter.Node) int {
	parent := block.Parent()
	if parent == nil {
		return -1
	}
	for i := 0; i < int(parent.ChildCount()); i++ {
		if parent.Child(i) == block {
			if i == 0 {
				return -1
			}
			return int(parent.Child(i - 1).EndByte())
		}
	}
	return -1
}
