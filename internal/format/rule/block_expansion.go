package rule

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// BlockExpansionRule splits a brace-enclosed block that has content on the
// same line as `{`: newline after `{`, each statement on its own line, `}`
// on its own line. An empty block stays `{ }` on one line.
type BlockExpansionRule struct{}

func (BlockExpansionRule) RuleID() string { return "FMT_BLOCK_EXPANSION" }

func (rl BlockExpansionRule) Apply(file *FormatFile) []model.Transformation {
	b := rewrite.NewBuilder()
	for n, _ := range captree.Walk(file.Root()) {
		if n.Type() != "compound_statement" {
			continue
		}
		expandBlock(b, file.Result, n)
	}
	return b.Transformations()
}

func expandBlock(b *rewrite.Builder, result *captree.ParseResult, block *sitter.Node) {
	open, close, stmts := braceParts(block)
	if open == nil || close == nil {
		return
	}
	if len(stmts) == 0 {
		return
	}

	openRow := int(open.EndPoint().Row)
	closeRow := int(close.StartPoint().Row)
	firstRow := int(stmts[0].StartPoint().Row)
	lastRow := int(stmts[len(stmts)-1].EndPoint().Row)

	ruleID := BlockExpansionRule{}.RuleID()

	if firstRow == openRow {
		b.Insert(int(open.EndByte()), []byte("\n"), ruleID)
	}
	for i := 1; i < len(stmts); i++ {
		prevEndRow := int(stmts[i-1].EndPoint().Row)
		curStartRow := int(stmts[i].StartPoint().Row)
		if prevEndRow == curStartRow {
			b.Insert(int(stmts[i-1].EndByte()), []byte("\n"), ruleID)
		}
	}
	if lastRow == closeRow {
		b.Insert(int(close.StartByte()), []byte("\n"), ruleID)
	}
}

// braceParts returns a block's opening brace, closing brace, and its
// direct statement children (everything other than the braces).
func braceParts(block *sitter.Node) (open, close *sitter.Node, stmts []*sitter.Node) {
	count := int(block.ChildCount())
	for i := 0; i < count; i++ {
		c := block.Child(i)
		switch {
		case c.Type() == "{" && open == nil:
			open = c
		case c.Type() == "}":
			close = c
		default:
			if open != nil {
				stmts = append(stmts, c)
			}
		}
	}
	return open, close, stmts
}
