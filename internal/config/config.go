// Package config loads and validates the toolchain's configuration surface:
// formatter knobs, rule enablement, and pass limits shared by the lint,
// fix, and format entry points.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// BraceStyle enumerates the supported brace placement conventions. Only
// KAndR is currently honored; the type exists so a future style can be
// added without changing the config surface.
type BraceStyle string

const KAndR BraceStyle = "k&r"

// QuoteStyle enumerates the supported string-literal quoting conventions.
type QuoteStyle string

const DoubleQuote QuoteStyle = "double"

// Config is the full set of knobs recognized by analyze/lint_fix/format.
// Zero-value Config is invalid; use Default() or Load().
type Config struct {
	IndentSize            int        `json:"indent_size"`
	LineLength            int        `json:"line_length"`
	BraceStyle            BraceStyle `json:"brace_style"`
	QuoteStyle            QuoteStyle `json:"quote_style"`
	ReorderTopLevel       bool       `json:"reorder_top_level"`
	EnableCommentFeatures bool       `json:"enable_comment_features"`
	MaxPasses             int        `json:"max_passes"`
	DisabledRules         []string   `json:"disabled_rules"`
	FixOnly               []string   `json:"fix_only"`
}

// Default returns the configuration capllint falls back to when no
// project file overrides it.
func Default() Config {
	return Config{
		IndentSize:            2,
		LineLength:            100,
		BraceStyle:            KAndR,
		QuoteStyle:            DoubleQuote,
		ReorderTopLevel:       false,
		EnableCommentFeatures: true,
		MaxPasses:             10,
	}
}

// Load reads a JSON config file at path, overlaying it onto Default().
// A missing file is not an error: Default() is returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Decode into a partial struct so unset JSON keys don't clobber defaults.
	var partial struct {
		IndentSize            *int        `json:"indent_size"`
		LineLength            *int        `json:"line_length"`
		BraceStyle            *BraceStyle `json:"brace_style"`
		QuoteStyle            *QuoteStyle `json:"quote_style"`
		ReorderTopLevel       *bool       `json:"reorder_top_level"`
		EnableCommentFeatures *bool       `json:"enable_comment_features"`
		MaxPasses             *int        `json:"max_passes"`
		DisabledRules         []string    `json:"disabled_rules"`
		FixOnly               []string    `json:"fix_only"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if partial.IndentSize != nil {
		cfg.IndentSize = *partial.IndentSize
	}
	if partial.LineLength != nil {
		cfg.LineLength = *partial.LineLength
	}
	if partial.BraceStyle != nil {
		cfg.BraceStyle = *partial.BraceStyle
	}
	if partial.QuoteStyle != nil {
		cfg.QuoteStyle = *partial.QuoteStyle
	}
	if partial.ReorderTopLevel != nil {
		cfg.ReorderTopLevel = *partial.ReorderTopLevel
	}
	if partial.EnableCommentFeatures != nil {
		cfg.EnableCommentFeatures = *partial.EnableCommentFeatures
	}
	if partial.MaxPasses != nil {
		cfg.MaxPasses = *partial.MaxPasses
	}
	if partial.DisabledRules != nil {
		cfg.DisabledRules = partial.DisabledRules
	}
	if partial.FixOnly != nil {
		cfg.FixOnly = partial.FixOnly
	}

	return cfg, cfg.Validate()
}

// Validate rejects a config that can't be safely applied.
func (c Config) Validate() error {
	if c.IndentSize <= 0 {
		return fmt.Errorf("indent_size must be positive, got %d", c.IndentSize)
	}
	if c.LineLength <= 0 {
		return fmt.Errorf("line_length must be positive, got %d", c.LineLength)
	}
	if c.MaxPasses <= 0 {
		return fmt.Errorf("max_passes must be positive, got %d", c.MaxPasses)
	}
	if c.BraceStyle != "" && c.BraceStyle != KAndR {
		return fmt.Errorf("brace_style %q is not supported, only %q is honored", c.BraceStyle, KAndR)
	}
	if c.QuoteStyle != "" && c.QuoteStyle != DoubleQuote {
		return fmt.Errorf("quote_style %q is not supported, only %q is honored", c.QuoteStyle, DoubleQuote)
	}
	return nil
}

// IsDisabled reports whether ruleID has been switched off by disabled_rules.
func (c Config) IsDisabled(ruleID string) bool {
	for _, id := range c.DisabledRules {
		if id == ruleID {
			return true
		}
	}
	return false
}

// WithDisabled returns a copy of c with ruleID added to disabled_rules,
// used by the auto-fix driver to disable a rule mid-session after a
// rejected pass without mutating the caller's config.
func (c Config) WithDisabled(ruleID string) Config {
	if c.IsDisabled(ruleID) {
		return c
	}
	next := c
	next.DisabledRules = append(append([]string{}, c.DisabledRules...), ruleID)
	return next
}

// RunsFixFor reports whether ruleID's fix should run given fix_only. An
// empty fix_only means every auto-fixable rule runs.
func (c Config) RunsFixFor(ruleID string) bool {
	if len(c.FixOnly) == 0 {
		return true
	}
	for _, id := range c.FixOnly {
		if id == ruleID {
			return true
		}
	}
	return false
}
