package lint

import (
	"sort"

	"github.com/capl-tools/capllint/internal/model"
	"github.com/capl-tools/capllint/internal/rule"
	"github.com/capl-tools/capllint/internal/store"
)

// CircularIncludeRule is W001: a cycle in the project's #include graph.
// Reported once per cycle, from the file that is the cycle's
// lexicographically smallest member, so two files in the same cycle don't
// each produce their own copy of the finding.
type CircularIncludeRule struct{}

func (CircularIncludeRule) RuleID() string           { return "W001" }
func (CircularIncludeRule) Slug() string             { return "circular-include" }
func (CircularIncludeRule) Severity() model.Severity { return model.SeverityWarning }
func (CircularIncludeRule) AutoFixable() bool        { return false }

func (r CircularIncludeRule) Check(file *rule.File, symbols *store.Store) []model.Issue {
	cycles, err := symbols.IncludeCycles()
	if err != nil {
		return nil
	}

	var issues []model.Issue
	for _, cycle := range cycles {
		if len(cycle) == 0 {
			continue
		}
		members := append([]string{}, cycle...)
		sort.Strings(members)
		if members[0] != file.Path {
			continue
		}
		issues = append(issues, model.Issue{
			RuleID:       r.RuleID(),
			Severity:     r.Severity(),
			File:         file.Path,
			PrimaryRange: model.Range{},
			Message:      "circular include: " + joinCycle(members),
			AutoFixable:  false,
		})
	}
	return issues
}

func joinCycle(members []string) string {
	out := ""
	for i, m := range members {
		if i > 0 {
			out += " -> "
		}
		out += m
	}
	if len(members) > 0 {
		out += " -> " + members[0]
	}
	return out
}
