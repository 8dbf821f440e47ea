// Package rule implements the structural-convergence formatter rules
// (C8): SpacingRule, BlockExpansionRule, StatementSplitRule,
// BraceStyleRule, SwitchNormalizationRule, QuoteNormalizationRule, and the
// optional TopLevelOrderingRule. Each walks the AST and emits byte-range
// Transformations rather than transforming raw text, so it can distinguish
// AST context a regex cannot (a dereferencing `*` from a multiplication
// operator, a string literal from a comment that merely contains quotes).
package rule

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/model"
)

// FormatFile bundles the parsed tree and config a formatter rule needs.
type FormatFile struct {
	Path   string
	Result *captree.ParseResult
	Config config.Config
}

// Root is a convenience accessor for the parse tree's root node.
func (f *FormatFile) Root() *sitter.Node { return f.Result.RootNode() }

// FormatRule is a single structural-convergence rule. Apply must be a pure
// function of the current tree; it returns the transformations needed to
// bring the buffer into that rule's normal form, or nil if already
// conformant.
type FormatRule interface {
	RuleID() string
	Apply(file *FormatFile) []model.Transformation
}
