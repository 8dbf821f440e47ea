package rule

import (
	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// QuoteNormalizationRule enforces double-quoted string literals. A
// single-quoted literal enclosing more than one character is a misused
// string, not a character constant, and is rewritten to double quotes;
// genuine single-character literals are left alone.
type QuoteNormalizationRule struct{}

func (QuoteNormalizationRule) RuleID() string { return "FMT_QUOTES" }

func (rl QuoteNormalizationRule) Apply(file *FormatFile) []model.Transformation {
	b := rewrite.NewBuilder()
	ruleID := QuoteNormalizationRule{}.RuleID()

	for _, n := range captree.FindAllByType(file.Root(), "char_literal") {
		text := file.Result.Text(n)
		if len(text) < 2 || text[0] != '\'' || text[len(text)-1] != '\'' {
			continue
		}
		inner := text[1 : len(text)-1]
		if isSingleCharLiteral(inner) {
			continue
		}
		b.Replace(int(n.StartByte()), int(n.EndByte()), []byte("\""+inner+"\""), ruleID)
	}
	return b.Transformations()
}

// isSingleCharLiteral reports whether inner (the text between the quotes)
// denotes exactly one character: either a single byte, or a two-byte
// backslash escape (`\n`, `\t`, `\'`, ...).
func isSingleCharLiteral(inner string) bool {
	if len(inner) == 1 {
		return true
	}
	if len(inner) == 2 && inner[0] == '\\' {
		return true
	}
	return false
}
