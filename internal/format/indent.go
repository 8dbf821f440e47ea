package format

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/config"
)

// reindent re-emits each non-blank line's leading whitespace as exactly
// indent_size*level spaces, where level is the minimum AST depth over
// every token starting on that line. Depth increases by one per
// enclosing brace scope or multi-line parenthesized expression; a
// case/default label is dedented by one relative to its switch body.
func reindent(source []byte, cfg config.Config) ([]byte, error) {
	result, err := captree.Parse(source)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	root := result.RootNode()
	maxRow := int(root.EndPoint().Row)
	levels := make([]int, maxRow+1)
	seen := make([]bool, maxRow+1)

	for n, _ := range captree.Walk(root) {
		if n.ChildCount() > 0 {
			continue
		}
		row := int(n.StartPoint().Row)
		if row < 0 || row > maxRow {
			continue
		}
		depth := indentDepth(n)
		if !seen[row] || depth < levels[row] {
			levels[row] = depth
			seen[row] = true
		}
	}

	lines := strings.Split(string(source), "\n")
	for row := range lines {
		if row >= len(levels) || !seen[row] {
			continue
		}
		trimmed := strings.TrimLeft(lines[row], " \t")
		if trimmed == "" {
			continue
		}
		level := levels[row]
		if level < 0 {
			level = 0
		}
		lines[row] = strings.Repeat(" ", cfg.IndentSize*level) + trimmed
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func indentDepth(leaf *sitter.Node) int {
	depth := 0
	row := int(leaf.StartPoint().Row)
	for p := leaf.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "compound_statement":
			depth++
		case "parenthesized_expression", "argument_list":
			if int(p.StartPoint().Row) != row {
				depth++
			}
		}
	}
	if isCaseLabelToken(leaf) {
		depth--
	}
	if depth < 0 {
		depth = 0
	}
	return depth
}

// isCaseLabelToken reports whether leaf lies within the `case X:` or
// `default:` label portion of its nearest case_statement ancestor, rather
// than in the statements that follow the colon.
func isCaseLabelToken(leaf *sitter.Node) bool {
	for p := leaf.Parent(); p != nil; p = p.Parent() {
		if p.Type() != "case_statement" {
			continue
		}
		colon := captree.FindChildOfType(p, ":")
		if colon == nil {
			return false
		}
		return int(leaf.EndByte()) <= int(colon.StartByte())
	}
	return false
}
