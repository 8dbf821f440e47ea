package rule

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// SwitchNormalizationRule puts each `case`/`default` label on its own
// line, and splits the statement immediately following a label onto its
// own line when it shares the label's line.
type SwitchNormalizationRule struct{}

func (SwitchNormalizationRule) RuleID() string { return "FMT_SWITCH" }

func (rl SwitchNormalizationRule) Apply(file *FormatFile) []model.Transformation {
	b := rewrite.NewBuilder()
	ruleID := SwitchNormalizationRule{}.RuleID()

	cases := captree.FindAllByType(file.Root(), "case_statement")
	for _, c := range cases {
		prev := prevSiblingLeaf(c)
		if prev != nil && int(prev.EndPoint().Row) == int(c.StartPoint().Row) {
			b.Insert(int(c.StartByte()), []byte("\n"), ruleID)
		}

		colon := captree.FindChildOfType(c, ":")
		if colon == nil {
			continue
		}
		after := nextLeaf(colon)
		if after != nil && int(after.StartPoint().Row) == int(colon.EndPoint().Row) {
			b.Insert(int(colon.EndByte()), []byte("\n"), ruleID)
		}
	}
	return b.Transformations()
}

func prevSiblingLeaf(n *sitter.Node) *sitter.Node {
	parent := n.Parent()
	if parent == nil {
		return nil
	}
	for i := 0; i < int(parent.ChildCount()); i++ {
		if parent.Child(i) == n {
			if i == 0 {
				return nil
			}
			return rightmostLeaf(parent.Child(i - 1))
		}
	}
	return nil
}

func rightmostLeaf(n *sitter.Node) *sitter.Node {
	for n.ChildCount() > 0 {
		n = n.Child(int(n.ChildCount()) - 1)
	}
	return n
}
