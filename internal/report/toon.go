package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/capl-tools/capllint/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	toonKeywords = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeTOON renders an issue list in TOON (Token-Oriented Object
// Notation): a tabular header naming the fields once, then one row per
// issue, avoiding the per-object key repetition plain JSON pays for a list
// of uniformly-shaped records.
func EncodeTOON(file string, issues []model.Issue) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("file: %s", encodeTOONValue(file)))

	var rows [][]string
	for _, issue := range issues {
		rows = append(rows, []string{
			issue.RuleID,
			string(issue.Severity),
			fmt.Sprintf("%d", issue.PrimaryRange.Start.Row+1),
			fmt.Sprintf("%d", issue.PrimaryRange.Start.Column+1),
			issue.Message,
		})
	}
	parts = append(parts, formatTOONTabular("issues", []string{"rule", "severity", "line", "col", "message"}, rows))
	return strings.Join(parts, "\n")
}

func formatTOONTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeTOONValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeTOONValue(value string) string {
	if value == "" {
		return `""`
	}
	if value != strings.TrimSpace(value) {
		return quoteTOON(value)
	}
	if strings.ContainsAny(value, "\n\r\t") {
		return quoteTOON(value)
	}
	if _, ok := toonKeywords[strings.ToLower(value)]; ok {
		return quoteTOON(value)
	}
	if looksNumeric.MatchString(value) {
		return value
	}
	if needsQuoting.MatchString(value) {
		return quoteTOON(value)
	}
	if strings.HasPrefix(value, "-") {
		return quoteTOON(value)
	}
	return value
}

func quoteTOON(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
