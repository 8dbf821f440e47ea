// Package format implements the format() entry point: the five-phase
// pipeline over a shared buffer, re-parsing between phases and between
// each structural rule so later phases see a tree consistent with earlier
// edits.
package format

import (
	"bytes"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/config"
	fmtrule "github.com/capl-tools/capllint/internal/format/rule"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/report"
	"github.com/capl-tools/capllint/internal/rewrite"
)

// structuralRules run in phase 2, in this fixed order, re-parsing after
// any rule that produced a transformation.
func structuralRules() []fmtrule.FormatRule {
	return []fmtrule.FormatRule{
		fmtrule.SpacingRule{},
		fmtrule.BlockExpansionRule{},
		fmtrule.StatementSplitRule{},
		fmtrule.BraceStyleRule{},
		fmtrule.SwitchNormalizationRule{},
		fmtrule.QuoteNormalizationRule{},
	}
}

// Format runs the five-phase pipeline against source and reports whether
// the result differs from the input. In checkOnly mode, NewBytes is left
// nil and the caller receives only the changed/violations verdict.
func Format(path string, source []byte, cfg config.Config, checkOnly bool) (*report.FormatReport, error) {
	current := append([]byte{}, source...)

	current, err := preNormalize(current)
	if err != nil {
		return nil, fmt.Errorf("pre-normalizing %s: %w", path, err)
	}

	current, violations, err := structuralConvergence(path, current, cfg)
	if err != nil {
		return nil, err
	}

	current = normalizeVerticalWhitespace(current)

	if cfg.EnableCommentFeatures {
		current = applyCommentFeatures(current, cfg)
	}

	current, err = reindent(current, cfg)
	if err != nil {
		return nil, fmt.Errorf("indenting %s: %w", path, err)
	}

	if cfg.ReorderTopLevel {
		current, err = applyOptionalRule(current, fmtrule.TopLevelOrderingRule{}, cfg)
		if err != nil {
			return nil, err
		}
	}

	changed := !bytes.Equal(current, source)
	rep := &report.FormatReport{File: path, Changed: changed, Violations: violations}
	if !checkOnly {
		rep.NewBytes = current
	}
	return rep, nil
}

// preNormalize forces every top-level declaration's first line to start at
// column zero, erasing stray leading indentation the original file had.
func preNormalize(source []byte) ([]byte, error) {
	result, err := captree.Parse(source)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	b := rewrite.NewBuilder()
	root := result.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		row := int(child.StartPoint().Row)
		lineStart := result.OffsetForRow(row)
		start := int(child.StartByte())
		if start > lineStart {
			onlySpaces := true
			for j := lineStart; j < start; j++ {
				if source[j] != ' ' && source[j] != '\t' {
					onlySpaces = false
					break
				}
			}
			if onlySpaces {
				b.Delete(lineStart, start, "FMT_PRE_NORMALIZE")
			}
		}
	}
	return rewrite.Apply(source, b.Transformations())
}

// structuralConvergence applies phase 2's rules in order, re-parsing after
// each rule that changed the buffer, and rejects (skips) any rule whose
// result would introduce a new ERROR node, recording it as a violation.
func structuralConvergence(path string, source []byte, cfg config.Config) ([]byte, []string, error) {
	current := source
	var violations []string

	for _, rl := range structuralRules() {
		result, err := captree.Parse(current)
		if err != nil {
			return nil, violations, fmt.Errorf("parsing %s: %w", path, err)
		}
		preErrors := countErrorNodes(result.RootNode())
		file := &fmtrule.FormatFile{Path: path, Result: result, Config: cfg}
		transformations := safeApply(rl, file)
		result.Close()

		if len(transformations) == 0 {
			continue
		}

		next, err := rewrite.Apply(current, transformations)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s: %v", rl.RuleID(), err))
			continue
		}

		postResult, err := captree.Parse(next)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s: introduced unparseable output", rl.RuleID()))
			continue
		}
		postErrors := countErrorNodes(postResult.RootNode())
		postResult.Close()

		if postErrors > preErrors {
			violations = append(violations, fmt.Sprintf("%s: would introduce new parse errors, skipped", rl.RuleID()))
			continue
		}

		current = next
	}
	return current, violations, nil
}

func applyOptionalRule(source []byte, rl fmtrule.FormatRule, cfg config.Config) ([]byte, error) {
	result, err := captree.Parse(source)
	if err != nil {
		return nil, err
	}
	file := &fmtrule.FormatFile{Result: result, Config: cfg}
	transformations := safeApply(rl, file)
	result.Close()
	if len(transformations) == 0 {
		return source, nil
	}
	return rewrite.Apply(source, transformations)
}

// safeApply mirrors the lint registry's panic isolation: a rule that
// panics contributes no transformations for this pass rather than
// aborting the whole format operation.
func safeApply(rl fmtrule.FormatRule, file *fmtrule.FormatFile) (transformations []model.Transformation) {
	defer func() {
		if recover() != nil {
			transformations = nil
		}
	}()
	return rl.Apply(file)
}

func countErrorNodes(root *sitter.Node) int {
	count := 0
	for n, _ := range captree.Walk(root) {
		if n.Type() == "ERROR" || n.IsMissing() {
			count++
		}
	}
	return count
}

// normalizeVerticalWhitespace collapses runs of three or more newlines to
// exactly two everywhere, then tightens blank lines inside each block's
// setup zone (leading declarations/comments) down to none, while leaving
// at most one blank line between statements in the logic zone.
func normalizeVerticalWhitespace(source []byte) []byte {
	collapsed := collapseBlankRuns(source, 2)

	result, err := captree.Parse(collapsed)
	if err != nil {
		return collapsed
	}
	defer result.Close()

	b := rewrite.NewBuilder()
	for n, _ := range captree.Walk(result.RootNode()) {
		if n.Type() == "compound_statement" {
			tightenSetupZone(b, result, n)
		}
	}
	out, err := rewrite.Apply(collapsed, b.Transformations())
	if err != nil {
		return collapsed
	}
	return out
}

func collapseBlankRuns(source []byte, maxNewlines int) []byte {
	lines := strings.Split(string(source), "\n")
	var out []string
	blankRun := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blankRun++
			if blankRun <= maxNewlines-1 {
				out = append(out, line)
			}
			continue
		}
		blankRun = 0
		out = append(out, line)
	}
	return []byte(strings.Join(out, "\n"))
}

func tightenSetupZone(b *rewrite.Builder, result *captree.ParseResult, block *sitter.Node) {
	_, _, stmts := braceParts(block)
	setupEnd := 0
	for setupEnd < len(stmts) && isDeclarationOrComment(stmts[setupEnd]) {
		setupEnd++
	}
	source := result.Source
	for i := 0; i+1 < setupEnd; i++ {
		gapStart := int(stmts[i].EndByte())
		gapEnd := int(stmts[i+1].StartByte())
		if gapStart >= gapEnd {
			continue
		}
		gap := source[gapStart:gapEnd]
		if strings.Count(string(gap), "\n") > 1 {
			b.Replace(gapStart, gapEnd, []byte("\n"), "FMT_VERTICAL_WHITESPACE")
		}
	}
}

func isDeclarationOrComment(n *sitter.Node) bool {
	switch n.Type() {
	case "declaration", "comment":
		return true
	default:
		return false
	}
}

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
