// Package diag implements the states-DSL compiler's diagnostic model: one
// CompilerError per lex/parse/semantic problem, collected and rendered the
// way the compiler's build-time integration requires (spec §6, §7) — all
// diagnostics printed, then the build aborts non-zero.
package diag

import (
	"fmt"
	"strings"

	"github.com/xyproto/wolfstate/internal/engine"
)

// Severity indicates how serious a diagnostic is.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Category classifies a diagnostic per spec §7's error taxonomy.
type Category int

const (
	CategoryLex Category = iota
	CategoryParse
	CategorySemantic
	CategoryLayout
)

func (c Category) String() string {
	switch c {
	case CategoryLex:
		return "lex"
	case CategoryParse:
		return "parse"
	case CategorySemantic:
		return "semantic"
	case CategoryLayout:
		return "layout"
	default:
		return "unknown"
	}
}

// Location is a position (and optional span) in a source file.
type Location struct {
	File   string
	Line   int
	Column int
	Length int // length of the offending token/span, 0 if unknown
}

func (loc Location) String() string {
	if loc.File == "" {
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

// Context carries the rendered snippet and suggestion text for an error.
type Context struct {
	SourceLine string
	Suggestion string // "did you mean '...'"
	HelpText   string
}

// Error is a single compiler diagnostic.
type Error struct {
	Severity Severity
	Category Category
	Message  string
	Location Location
	Context  Context
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// Format renders a multi-line, optionally colorized diagnostic with a
// source snippet, underline, suggestion and help text.
func (e Error) Format(useColor bool) string {
	var sb strings.Builder

	if useColor {
		sb.WriteString("\033[1;31m")
	}
	sb.WriteString(e.Severity.String())
	sb.WriteString(": ")
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString(e.Message)
	sb.WriteString("\n")

	if useColor {
		sb.WriteString("\033[1;34m")
	}
	sb.WriteString("  --> ")
	sb.WriteString(e.Location.String())
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString("\n")

	if e.Context.SourceLine != "" {
		lineNum := fmt.Sprintf("%d", e.Location.Line)
		padding := strings.Repeat(" ", len(lineNum)+1)

		sb.WriteString(padding)
		sb.WriteString("|\n")
		sb.WriteString(lineNum)
		sb.WriteString(" | ")
		sb.WriteString(e.Context.SourceLine)
		sb.WriteString("\n")
		sb.WriteString(padding)
		sb.WriteString("| ")

		if e.Location.Column > 0 {
			sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
			if useColor {
				sb.WriteString("\033[1;31m")
			}
			if e.Location.Length > 0 {
				sb.WriteString(strings.Repeat("^", e.Location.Length))
			} else {
				sb.WriteString("^")
			}
			if useColor {
				sb.WriteString("\033[0m")
			}
			sb.WriteString("\n")
		}
	}

	if e.Context.Suggestion != "" {
		if useColor {
			sb.WriteString("\033[1;32m")
		}
		sb.WriteString("   help: ")
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString(e.Context.Suggestion)
		sb.WriteString("\n")
	}

	if e.Context.HelpText != "" {
		if useColor {
			sb.WriteString("\033[1;36m")
		}
		sb.WriteString("   note: ")
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString(e.Context.HelpText)
		sb.WriteString("\n")
	}

	return sb.String()
}

// Collector accumulates errors and warnings across an entire compilation
// unit before anything is printed, matching spec §7's propagation policy
// ("the compiler accumulates diagnostics, prints all, then aborts").
type Collector struct {
	errors     []Error
	warnings   []Error
	maxErrors  int
	sourceCode string
}

// NewCollector creates a Collector that stops accepting once maxErrors
// errors have been recorded (0 or negative means the default of 10).
func NewCollector(maxErrors int) *Collector {
	if maxErrors <= 0 {
		maxErrors = 10
	}
	return &Collector{maxErrors: maxErrors}
}

// SetSource stores the source text so error snippets can be auto-populated.
func (c *Collector) SetSource(source string) {
	c.sourceCode = source
}

// Add records a diagnostic, auto-filling its source line if missing.
func (c *Collector) Add(err Error) {
	if c.ShouldStop() {
		return
	}
	if err.Context.SourceLine == "" && c.sourceCode != "" {
		err.Context.SourceLine = c.sourceLine(err.Location.Line)
	}
	if err.Severity == SeverityFatal || err.Severity == SeverityError {
		c.errors = append(c.errors, err)
	} else {
		c.warnings = append(c.warnings, err)
	}
}

func (c *Collector) sourceLine(n int) string {
	if c.sourceCode == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(c.sourceCode, "\n")
	if n > len(lines) {
		return ""
	}
	return lines[n-1]
}

// HasErrors reports whether any error-or-worse diagnostic was recorded.
func (c *Collector) HasErrors() bool { return len(c.errors) > 0 }

// ErrorCount returns the number of recorded errors.
func (c *Collector) ErrorCount() int { return len(c.errors) }

// WarningCount returns the number of recorded warnings.
func (c *Collector) WarningCount() int { return len(c.warnings) }

// ShouldStop reports whether the error cap has been reached.
func (c *Collector) ShouldStop() bool { return len(c.errors) >= c.maxErrors }

// Report renders every error then every warning, followed by a summary line.
func (c *Collector) Report(useColor bool) string {
	var sb strings.Builder
	for i, err := range c.errors {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(err.Format(useColor))
	}
	for i, warn := range c.warnings {
		if i > 0 || len(c.errors) > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(warn.Format(useColor))
	}
	if len(c.errors) > 0 || len(c.warnings) > 0 {
		sb.WriteString("\n")
		if len(c.errors) > 0 {
			fmt.Fprintf(&sb, "%d error(s)", len(c.errors))
		}
		if len(c.warnings) > 0 {
			if len(c.errors) > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%d warning(s)", len(c.warnings))
		}
		sb.WriteString(" found\n")
	}
	return sb.String()
}

// UndefinedReference builds the diagnostic for spec §4.D phase 2 / §6 S6:
// an identifier use with no matching enum, function, or label declaration,
// annotated with a Levenshtein-nearest suggestion from the known set.
func UndefinedReference(identifier string, loc Location, known map[string]struct{}) Error {
	var help string
	if m := engine.FindSimilarIdentifiers(identifier, known, 1); len(m) > 0 {
		help = fmt.Sprintf("did you mean '%s'", m[0])
	} else {
		help = "no similar known identifier"
	}
	return Error{
		Severity: SeverityError,
		Category: CategorySemantic,
		Message:  fmt.Sprintf("undefined reference: %s", identifier),
		Location: loc,
		Context:  Context{Suggestion: help},
	}
}

// LayoutError builds the §7 "layout error" diagnostic: computed state-region
// size disagrees with what was written. This indicates an internal bug and
// is meant to be used with a panic, never swallowed.
func LayoutError(message string) Error {
	return Error{
		Severity: SeverityFatal,
		Category: CategoryLayout,
		Message:  message,
		Context: Context{
			HelpText: "this is an internal compiler error; state-record layout and the image writer have diverged",
		},
	}
}

// SyntaxError builds a §7 parse-error diagnostic.
func SyntaxError(message string, loc Location) Error {
	return Error{Severity: SeverityError, Category: CategoryParse, Message: message, Location: loc}
}

// LexError builds a §7 lex-error diagnostic.
func LexError(message string, loc Location) Error {
	return Error{Severity: SeverityError, Category: CategoryLex, Message: message, Location: loc}
}
