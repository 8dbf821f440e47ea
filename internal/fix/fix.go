// Package fix implements the lint_fix() entry point: the iterative
// extract/check/fix/apply/re-parse loop spec's auto-fix driver describes.
package fix

import (
	"bytes"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/capl-tools/capllint/internal/captree"
	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/extract"
	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/report"
	"github.com/capl-tools/capllint/internal/rewrite"
	"github.com/capl-tools/capllint/internal/rule"
	"github.com/capl-tools/capllint/internal/store"
)

// Fix repeatedly checks and fixes source until no rule produces a
// transformation, the buffer stops changing, or cfg.MaxPasses is reached.
// A pass whose output would introduce a new ERROR node is rejected: the
// offending rule(s) are disabled for the remainder of this call and the
// pass is retried against the same pre-pass buffer.
func Fix(path string, source []byte, cfg config.Config, reg *rule.Registry, symbols *store.Store) (*report.FixReport, error) {
	current := append([]byte{}, source...)
	applied := map[string]bool{}
	passes := 0
	converged := false

	for passes < cfg.MaxPasses {
		passes++

		result, err := captree.Parse(current)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		preErrors := countErrorNodes(result.RootNode())
		facts := extract.Extract(path, result)
		file := &rule.File{Path: path, Result: result, Facts: facts, Config: cfg}

		enabled := reg.Enabled(cfg)
		issues := rule.CheckAll(enabled, file, symbols)

		b := rewrite.NewBuilder()
		firedRules := map[string]bool{}
		for _, rl := range enabled {
			if !rl.AutoFixable() || !cfg.RunsFixFor(rl.RuleID()) {
				continue
			}
			fixer, ok := rl.(rule.Fixer)
			if !ok {
				continue
			}
			ruleIssues := filterByRule(issues, rl.RuleID())
			if len(ruleIssues) == 0 {
				continue
			}
			for _, t := range safeFix(fixer, file, ruleIssues) {
				b.Add(t)
				firedRules[t.OriginatingRule] = true
			}
		}
		result.Close()

		if b.Len() == 0 {
			converged = true
			break
		}

		newBytes, err := rewrite.Apply(current, b.Transformations())
		if err != nil {
			// Overlapping fixes from the same pass is an authoring bug in a
			// rule, not something to retry; surface what's converged so far.
			converged = false
			break
		}

		if bytes.Equal(newBytes, current) {
			converged = true
			break
		}

		postResult, err := captree.Parse(newBytes)
		if err != nil {
			converged = false
			break
		}
		postErrors := countErrorNodes(postResult.RootNode())
		postResult.Close()

		if postErrors > preErrors {
			for ruleID := range firedRules {
				cfg = cfg.WithDisabled(ruleID)
			}
			continue
		}

		for ruleID := range firedRules {
			applied[ruleID] = true
		}
		current = newBytes
	}

	remaining, err := remainingIssues(path, current, cfg, reg, symbols)
	if err != nil {
		return nil, err
	}

	var appliedIDs []string
	for id := range applied {
		appliedIDs = append(appliedIDs, id)
	}
	sort.Strings(appliedIDs)

	return &report.FixReport{
		File:            path,
		NewBytes:        current,
		RemainingIssues: remaining,
		AppliedRuleIDs:  appliedIDs,
		PassesUsed:      passes,
		Converged:       converged,
	}, nil
}

func remainingIssues(path string, source []byte, cfg config.Config, reg *rule.Registry, symbols *store.Store) ([]model.Issue, error) {
	result, err := captree.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer result.Close()
	facts := extract.Extract(path, result)
	file := &rule.File{Path: path, Result: result, Facts: facts, Config: cfg}
	return rule.CheckAll(reg.Enabled(cfg), file, symbols), nil
}

func filterByRule(issues []model.Issue, ruleID string) []model.Issue {
	var out []model.Issue
	for _, issue := range issues {
		if issue.RuleID == ruleID {
			out = append(out, issue)
		}
	}
	return out
}

// safeFix mirrors rule.safeCheck's panic isolation: a fix failure discards
// that rule's transformations for the pass rather than aborting it.
func safeFix(fixer rule.Fixer, file *rule.File, issues []model.Issue) (transformations []model.Transformation) {
	defer func() {
		if recover() != nil {
			transformations = nil
		}
	}()
	return fixer.Fix(file, issues)
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
