// capllint analyzes, lints, auto-fixes, and formats CAPL source files.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/capl-tools/capllint/internal/analyze"
	"github.com/capl-tools/capllint/internal/batch"
	"github.com/capl-tools/capllint/internal/config"
	"github.com/capl-tools/capllint/internal/discover"
	"github.com/capl-tools/capllint/internal/fix"
	"github.com/capl-tools/capllint/internal/format"
	"github.com/capl-tools/capllint/internal/report"
	"github.com/capl-tools/capllint/internal/rule/lint"
	"github.com/capl-tools/capllint/internal/store"
)

var version = "dev"

const defaultConfigPath = "capllint.json"
const defaultStorePath = ".capllint.db"

func main() {
	code, err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if code == 0 {
			code = 2
		}
	}
	os.Exit(code)
}

// run dispatches to one of capllint's verbs. It returns the process exit
// code (0/1/2) alongside an error so main can report failures without
// duplicating the 2-for-internal-error fallback in every verb.
func run(args []string, stdout, stderr io.Writer) (int, error) {
	if len(args) == 0 {
		printTopUsage(stderr)
		return 2, fmt.Errorf("no command given")
	}

	switch args[0] {
	case "-V", "--version":
		fmt.Fprintf(stdout, "capllint %s\n", version)
		return 0, nil
	case "-h", "--help":
		printTopUsage(stdout)
		return 0, nil
	case "analyze", "lint":
		return runAnalyze(args[1:], stdout, stderr)
	case "fix":
		return runFix(args[1:], stdout, stderr)
	case "format":
		return runFormat(args[1:], stdout, stderr)
	case "init":
		if err := runInit(args[1:], stdout, stderr); err != nil {
			return 2, err
		}
		return 0, nil
	default:
		printTopUsage(stderr)
		return 2, fmt.Errorf("unknown command %q", args[0])
	}
}

func printTopUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: capllint <command> [flags] [path...]

Commands:
  analyze   report every issue found in the given files or directories
  lint      alias for analyze
  fix       apply every auto-fixable rule in place
  format    reformat source in place (use --check to report violations only)
  init      write a capllint usage section to a CLAUDE.md file

Global flags:
  --json           emit JSON instead of human-readable text
  --toon           emit TOON-encoded tabular output
  --config PATH    path to capllint.json (default "capllint.json")
  -V, --version    show version and exit
`)
}

// commonFlags parses the flag set shared by analyze/fix/format: output
// format selection and config path, leaving positional args (files or
// directories to process) in fs.Args().
type commonFlags struct {
	jsonOut    bool
	toonOut    bool
	configPath string
}

func parseCommon(fs *flag.FlagSet, args []string) (commonFlags, error) {
	var cf commonFlags
	fs.BoolVar(&cf.jsonOut, "json", false, "emit JSON output")
	fs.BoolVar(&cf.toonOut, "toon", false, "emit TOON-encoded output")
	fs.StringVar(&cf.configPath, "config", defaultConfigPath, "path to capllint.json")
	err := fs.Parse(reorderArgs(args))
	return cf, err
}

// reorderArgs moves recognized flags (with their values, if any) before
// positional arguments so flag.FlagSet can parse a command line where
// flags and paths are interleaved, e.g. `capllint fix src/ --json`.
func reorderArgs(args []string) []string {
	flagsWithValue := map[string]bool{"--config": true}

	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if strings.HasPrefix(a, "-") {
			flags = append(flags, a)
			if flagsWithValue[a] && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		positional = append(positional, a)
	}
	return append(flags, positional...)
}

// targets expands the positional paths into a flat list of discovered
// CAPL file paths. A path that is a directory is walked via discover.Files;
// a path that is a file is used directly. No arguments defaults to ".".
func targets(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := discover.Files(p)
		if err != nil {
			return nil, fmt.Errorf("discovering files under %s: %w", p, err)
		}
		for _, e := range entries {
			out = append(out, filepath.Join(p, e.Path))
		}
	}
	return out, nil
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openStore() (*store.Store, error) {
	return store.Open(defaultStorePath)
}

func runAnalyze(args []string, stdout, stderr io.Writer) (int, error) {
	fs := flag.NewFlagSet("capllint analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf, err := parseCommon(fs, args)
	if err != nil {
		return 2, err
	}

	files, err := targets(fs.Args())
	if err != nil {
		return 2, err
	}

	cfg, err := loadConfig(cf.configPath)
	if err != nil {
		return 2, err
	}

	symbols, err := openStore()
	if err != nil {
		return 2, fmt.Errorf("opening symbol store: %w", err)
	}
	defer symbols.Close()

	reg := lint.NewRegistry()

	results := batch.Run(files, func(path string) (*report.AnalysisReport, error) {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return analyze.Analyze(path, source, cfg, reg, symbols)
	})

	var reports []*report.AnalysisReport
	worstCode := 0
	for _, r := range results {
		if r.Err != nil {
			return 2, r.Err
		}
		if code := r.Value.ExitCode(); code > worstCode {
			worstCode = code
		}
		reports = append(reports, r.Value)
	}

	if err := emitReports(stdout, cf, reports, func(w io.Writer, rpt *report.AnalysisReport) {
		var b strings.Builder
		report.RenderIssuesText(&b, rpt.File, rpt.Issues)
		fmt.Fprint(w, b.String())
	}); err != nil {
		return 2, err
	}

	return worstCode, nil
}

func runFix(args []string, stdout, stderr io.Writer) (int, error) {
	fs := flag.NewFlagSet("capllint fix", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf, err := parseCommon(fs, args)
	if err != nil {
		return 2, err
	}

	files, err := targets(fs.Args())
	if err != nil {
		return 2, err
	}

	cfg, err := loadConfig(cf.configPath)
	if err != nil {
		return 2, err
	}

	symbols, err := openStore()
	if err != nil {
		return 2, fmt.Errorf("opening symbol store: %w", err)
	}
	defer symbols.Close()

	reg := lint.NewRegistry()

	results := batch.Run(files, func(path string) (*report.FixReport, error) {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return fix.Fix(path, source, cfg, reg, symbols)
	})

	var reports []*report.FixReport
	worstCode := 0
	for _, r := range results {
		if r.Err != nil {
			return 2, r.Err
		}
		rpt := r.Value
		info, statErr := os.Stat(rpt.File)
		mode := os.FileMode(0o644)
		if statErr == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(rpt.File, rpt.NewBytes, mode); err != nil {
			return 2, fmt.Errorf("writing %s: %w", rpt.File, err)
		}
		if code := rpt.ExitCode(); code > worstCode {
			worstCode = code
		}
		reports = append(reports, rpt)
	}

	if err := emitReports(stdout, cf, reports, func(w io.Writer, rpt *report.FixReport) {
		var b strings.Builder
		report.RenderIssuesText(&b, rpt.File, rpt.RemainingIssues)
		fmt.Fprintf(w, "%s: %d pass(es), %d rule(s) applied, converged=%v\n",
			rpt.File, rpt.PassesUsed, len(rpt.AppliedRuleIDs), rpt.Converged)
		fmt.Fprint(w, b.String())
	}); err != nil {
		return 2, err
	}

	return worstCode, nil
}

func runFormat(args []string, stdout, stderr io.Writer) (int, error) {
	fs := flag.NewFlagSet("capllint format", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var checkOnly bool
	fs.BoolVar(&checkOnly, "check", false, "report formatting violations without rewriting files")

	cf, err := parseCommon(fs, args)
	if err != nil {
		return 2, err
	}

	files, err := targets(fs.Args())
	if err != nil {
		return 2, err
	}

	cfg, err := loadConfig(cf.configPath)
	if err != nil {
		return 2, err
	}

	results := batch.Run(files, func(path string) (*report.FormatReport, error) {
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return format.Format(path, source, cfg, checkOnly)
	})

	var reports []*report.FormatReport
	worstCode := 0
	for _, r := range results {
		if r.Err != nil {
			return 2, r.Err
		}
		rpt := r.Value
		if !checkOnly && rpt.Changed {
			info, statErr := os.Stat(rpt.File)
			mode := os.FileMode(0o644)
			if statErr == nil {
				mode = info.Mode()
			}
			if err := os.WriteFile(rpt.File, rpt.NewBytes, mode); err != nil {
				return 2, fmt.Errorf("writing %s: %w", rpt.File, err)
			}
		}
		if code := rpt.ExitCode(); code > worstCode {
			worstCode = code
		}
		reports = append(reports, rpt)
	}

	if err := emitReports(stdout, cf, reports, func(w io.Writer, rpt *report.FormatReport) {
		if rpt.Changed {
			fmt.Fprintf(w, "%s: changed\n", rpt.File)
			for _, v := range rpt.Violations {
				fmt.Fprintf(w, "%s: %s\n", rpt.File, v)
			}
		} else {
			fmt.Fprintf(w, "%s: clean\n", rpt.File)
		}
	}); err != nil {
		return 2, err
	}

	return worstCode, nil
}

// emitReports renders a slice of per-file reports according to the
// selected output format: JSON array, TOON, or plain text via textFn.
func emitReports[T any](w io.Writer, cf commonFlags, reports []T, textFn func(io.Writer, T)) error {
	switch {
	case cf.jsonOut:
		out, err := report.RenderJSON(reports)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case cf.toonOut:
		for _, rpt := range reports {
			if ar, ok := any(rpt).(*report.AnalysisReport); ok {
				fmt.Fprintln(w, report.EncodeTOON(ar.File, ar.Issues))
				continue
			}
			if fr, ok := any(rpt).(*report.FixReport); ok {
				fmt.Fprintln(w, report.EncodeTOON(fr.File, fr.RemainingIssues))
				continue
			}
			textFn(w, rpt)
		}
	default:
		for _, rpt := range reports {
			textFn(w, rpt)
		}
	}
	return nil
}
