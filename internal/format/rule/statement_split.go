package rule

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// StatementSplitRule splits multiple statements that share one line
// because they're separated only by `;`. It does not fire inside
// struct/enum bodies, where compact member declarations are expected.
type StatementSplitRule struct{}

func (StatementSplitRule) RuleID() string { return "FMT_STATEMENT_SPLIT" }

func (rl StatementSplitRule) Apply(file *FormatFile) []model.Transformation {
	b := rewrite.NewBuilder()
	for n, _ := range captree.Walk(file.Root()) {
		if n.Type() != "compound_statement" {
			continue
		}
		_, _, stmts := braceParts(n)
		for i := 0; i+1 < len(stmts); i++ {
			cur, next := stmts[i], stmts[i+1]
			if insideDeclarationBody(cur) {
				continue
			}
			if int(cur.EndPoint().Row) == int(next.StartPoint().Row) {
				b.Insert(int(cur.EndByte()), []byte("\n"), StatementSplitRule{}.RuleID())
			}
		}
	}
	return b.Transformations()
}

func insideDeclarationBody(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "struct_specifier", "enum_specifier":
			return true
		case "function_definition", "compound_statement":
			return false
		}
	}
	return false
}
