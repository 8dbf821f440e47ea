package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	sentinelStart = "<!-- capllint:start -->"
	sentinelEnd   = "<!-- capllint:end -->"
)

// runInit implements the `capllint init` subcommand, which writes (or
// updates) a capllint usage section in a CLAUDE.md file.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("capllint init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: capllint init [flags] [path-to-CLAUDE.md]

Write a capllint usage section to a CLAUDE.md file. The section is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote capllint section to %s\n", path)
	return nil
}

// generateSection returns the full sentinel-wrapped capllint documentation block.
func generateSection() string {
	body := `## capllint: CAPL Analysis, Lint, and Formatting

Run ` + "`capllint lint <dir>`" + ` via the Bash tool before editing any ` + "`.can`" + `/` + "`.cin`" + `
file. It surfaces CAPL-specific defects (stray ` + "`extern`" + `, globals declared
outside ` + "`variables {}`" + `, missing ` + "`enum`" + `/` + "`struct`" + ` keywords, undefined symbols,
circular includes) that a generic C linter has no model for.

**Availability:** Check with ` + "`capllint --version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
capllint analyze .                # report every issue, no changes
capllint lint .                   # same report, explicit verb
capllint fix .                    # apply every auto-fixable rule in place
capllint format .                 # reformat in place
capllint format --check .         # report formatting violations, exit 1 if any
` + "```" + `

**Exit codes:** 0 clean, 1 issues or formatting violations found, 2 internal/IO
failure. Treat 1 as "there is work to do", not as a tool failure.

**Config:** a ` + "`capllint.json`" + ` at the project root overrides defaults
(` + "`indent_size`" + `, ` + "`line_length`" + `, ` + "`disabled_rules`" + `, ` + "`reorder_top_level`" + `, ...).

**How to use the output, in order:**

1. **Run ` + "`capllint fix`" + ` before manually touching syntax-level issues**
   (E001–E007). These are mechanical and the tool's rewrite is equivalent to
   what a careful human edit would produce.

2. **Treat E011/E012/W002–W005 as leads, not verdicts.** They are
   project-wide and report-only; confirm cross-file before deleting anything
   they flag as unused or duplicate.

3. **Run ` + "`capllint format --check`" + ` in CI, not ` + "`capllint format`" + ` unattended.**
   The formatter rewrites whitespace and comment placement broadly; review a
   diff before committing its output on a file you didn't already intend to
   touch.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
