package format

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// applyCommentFeatures runs CommentAlignmentRule then CommentReflowRule.
// Both are best-effort: a parse failure after either leaves the buffer
// from before that rule untouched.
func applyCommentFeatures(source []byte, cfg config.Config) []byte {
	aligned := alignTrailingComments(source)
	if _, err := captree.Parse(aligned); err == nil {
		source = aligned
	}
	return reflowComments(source, cfg.LineLength)
}

// alignTrailingComments aligns the `//` start column of runs of two or
// more consecutive code lines that each carry a trailing comment, to the
// rightmost such column (subject to line length being handled by the
// caller's reflow pass afterward).
func alignTrailingComments(source []byte) []byte {
	lines := strings.Split(string(source), "\n")
	runStart := -1

	flush := func(end int) {
		if runStart < 0 || end-runStart < 2 {
			runStart = -1
			return
		}
		maxCol := 0
		for i := runStart; i < end; i++ {
			if col := trailingCommentColumn(lines[i]); col > maxCol {
				maxCol = col
			}
		}
		for i := runStart; i < end; i++ {
			lines[i] = padTrailingComment(lines[i], maxCol)
		}
		runStart = -1
	}

	for i, line := range lines {
		if trailingCommentColumn(line) >= 0 {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(lines))

	return []byte(strings.Join(lines, "\n"))
}

// trailingCommentColumn returns the column at which a trailing `//`
// comment starts on line, or -1 if line has no code-then-comment shape (a
// comment-only line doesn't count: there's no code to align against).
func trailingCommentColumn(line string) int {
	idx := strings.Index(line, "//")
	if idx < 0 {
		return -1
	}
	before := strings.TrimSpace(line[:idx])
	if before == "" {
		return -1
	}
	return idx
}

func padTrailingComment(line string, col int) string {
	idx := strings.Index(line, "//")
	if idx < 0 || idx >= col {
		return line
	}
	return line[:idx] + strings.Repeat(" ", col-idx) + line[idx:]
}

// reflowComments wraps line and block comments exceeding lineLength at
// word boundaries, matching the continuation line's start column to the
// first content word's column. Doxygen/JSDoc tag blocks, ASCII-art
// headers, and #pragma lines are left untouched.
func reflowComments(source []byte, lineLength int) []byte {
	result, err := captree.Parse(source)
	if err != nil {
		return source
	}
	defer result.Close()

	b := rewrite.NewBuilder()
	for _, n := range captree.FindAllByType(result.RootNode(), "comment") {
		reflowOne(b, result, n, lineLength)
	}
	out, err := rewrite.Apply(source, b.Transformations())
	if err != nil {
		return source
	}
	return out
}

func reflowOne(b *rewrite.Builder, result *captree.ParseResult, n *sitter.Node, lineLength int) {
	text := result.Text(n)
	if isExcludedFromReflow(text) {
		return
	}

	isBlock := strings.HasPrefix(text, "/*")
	prefix, body := commentPrefixAndBody(text, isBlock)
	col := int(n.StartPoint().Column)
	if col+len(text) <= lineLength {
		return
	}

	wrapped := wrapWords(body, lineLength-col-len(prefix))
	if len(wrapped) < 2 {
		return
	}

	indent := strings.Repeat(" ", col)
	var out strings.Builder
	for i, w := range wrapped {
		if i > 0 {
			out.WriteString("\n")
			out.WriteString(indent)
		}
		out.WriteString(prefix)
		out.WriteString(w)
	}
	if isBlock {
		out.WriteString(" */")
	}
	b.Replace(int(n.StartByte()), int(n.EndByte()), []byte(out.String()), "FMT_COMMENT_REFLOW")
}

func isExcludedFromReflow(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, "@") {
		return true
	}
	if strings.HasPrefix(trimmed, "#pragma") {
		return true
	}
	nonWord, total := 0, 0
	for _, r := range trimmed {
		if r == ' ' || r == '\n' || r == '\t' {
			continue
		}
		total++
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			nonWord++
		}
	}
	return total > 0 && float64(nonWord)/float64(total) > 0.6
}

func commentPrefixAndBody(text string, isBlock bool) (prefix, body string) {
	if isBlock {
		inner := strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
		return "/* ", strings.TrimSpace(inner)
	}
	return "// ", strings.TrimSpace(strings.TrimPrefix(text, "//"))
}

func wrapWords(body string, width int) []string {
	if width < 10 {
		width = 10
	}
	words := strings.Fields(body)
	var lines []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
