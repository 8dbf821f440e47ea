package rule

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// SpacingRule enforces exactly one space around binary operators, one
// space after `,`/`;` when not line-terminal, one space after control
// keywords before `(`, and no space between a function name and its `(`.
type SpacingRule struct{}

func (SpacingRule) RuleID() string { return "FMT_SPACING" }

var binaryNodeTypes = map[string]bool{
	"binary_expression":     true,
	"assignment_expression": true,
}

var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true,
}

func (r SpacingRule) Apply(file *FormatFile) []model.Transformation {
	b := rewrite.NewBuilder()
	source := file.Result.Source

	for n, _ := range captree.Walk(file.Root()) {
		switch {
		case binaryNodeTypes[n.Type()] && n.ChildCount() == 3:
			emitOperatorSpacing(b, file.Result, n)
		case n.Type() == "call_expression":
			emitCallSpacing(b, file.Result, n)
		case n.ChildCount() == 0 && controlKeywords[n.Type()]:
			emitControlKeywordSpacing(b, file.Result, n)
		case n.Type() == ",":
			emitPunctuationSpacing(b, source, n)
		case n.Type() == ";":
			emitPunctuationSpacing(b, source, n)
		}
	}
	return b.Transformations()
}

func emitOperatorSpacing(b *rewrite.Builder, result *captree.ParseResult, n *sitter.Node) {
	left := n.Child(0)
	op := n.Child(1)
	right := n.Child(2)
	if left == nil || op == nil || right == nil {
		return
	}
	ensureOneSpace(b, result.Source, int(left.EndByte()), int(op.StartByte()), SpacingRule{}.RuleID())
	ensureOneSpace(b, result.Source, int(op.EndByte()), int(right.StartByte()), SpacingRule{}.RuleID())
}

func emitCallSpacing(b *rewrite.Builder, result *captree.ParseResult, n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil {
		fn = n.Child(0)
	}
	if args == nil || fn == nil {
		return
	}
	if int(fn.EndByte()) != int(args.StartByte()) {
		ensureNoSpace(b, result.Source, int(fn.EndByte()), int(args.StartByte()), SpacingRule{}.RuleID())
	}
}

func emitControlKeywordSpacing(b *rewrite.Builder, result *captree.ParseResult, n *sitter.Node) {
	next := nextLeaf(n)
	if next == nil || result.Text(next) != "(" {
		return
	}
	ensureOneSpace(b, result.Source, int(n.EndByte()), int(next.StartByte()), SpacingRule{}.RuleID())
}

func emitPunctuationSpacing(b *rewrite.Builder, source []byte, n *sitter.Node) {
	end := int(n.EndByte())
	if end >= len(source) {
		return
	}
	if source[end] == '\n' || source[end] == '\r' {
		return
	}
	i := end
	for i < len(source) && isHSpace(source[i]) {
		i++
	}
	if i < len(source) && (source[i] == '\n' || source[i] == ')' || source[i] == ';') {
		return
	}
	if i == end+1 && isHSpace(source[end]) {
		return
	}
	b.Replace(end, i, []byte(" "), SpacingRule{}.RuleID())
}

func ensureOneSpace(b *rewrite.Builder, source []byte, from, to int, ruleID string) {
	if from > to {
		return
	}
	if hasNewline(source, from, to) {
		return
	}
	if to-from == 1 && isHSpace(source[from]) {
		return
	}
	b.Replace(from, to, []byte(" "), ruleID)
}

func ensureNoSpace(b *rewrite.Builder, source []byte, from, to int, ruleID string) {
	if from >= to || hasNewline(source, from, to) {
		return
	}
	b.Delete(from, to, ruleID)
}

func hasNewline(source []byte, from, to int) bool {
	for i := from; i < to && i < len(source); i++ {
		if source[i] == '\n' {
			return true
		}
	}
	return false
}

func isHSpace(c byte) bool { return c == ' ' || c == '\t' }

func nextLeaf(n *sitter.Node) *sitter.Node {
	cur := n
	for cur.Parent() != nil {
		parent := cur.Parent()
		idx := -1
		for i := 0; i < int(parent.ChildCount()); i++ {
			if parent.Child(i) == cur {
				idx = i
				break
			}
		}
		if idx >= 0 && idx+1 < int(parent.ChildCount()) {
			return leftmostLeaf(parent.Child(idx + 1))
		}
		cur = parent
	}
	return nil
}

func leftmostLeaf(n *sitter.Node) *sitter.Node {
	for n.ChildCount() > 0 {
		n = n.Child(0)
	}
	return n
}
