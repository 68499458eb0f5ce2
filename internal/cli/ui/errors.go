package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/fatih/color"
)

// Program is the command name used in help hints
var Program = "tunables"

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Code         string
	Context      string
	Problem      string
	Details      []string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ [TX003] UNKNOWN ENTRYPOINT: example.com/app.Tran
//	   No source for example.com/app.Tran below ./
//
//	   Did you mean: example.com/app.Train?
//
//	   → Get help: tunables analyze --help
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor, bodyColor, symbol := levelStyle(opts.Level)
	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	header := opts.Problem
	if opts.Context != "" {
		header = strings.ToUpper(opts.Context)
	}
	if opts.Code != "" {
		header = "[" + opts.Code + "] " + header
	}
	headerColor.Fprintf(&b, "%s %s\n", symbol, header)

	if opts.Context != "" && opts.Problem != "" {
		bodyColor.Fprintf(&b, "   %s\n", opts.Problem)
	}
	for _, d := range opts.Details {
		bodyColor.Fprintf(&b, "     - %s\n", d)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

func levelStyle(level ErrorLevel) (*color.Color, *color.Color, string) {
	switch level {
	case ErrorLevelWarning:
		return color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠️"
	case ErrorLevelInfo:
		return color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ️"
	default:
		return color.New(color.FgRed, color.Bold), color.New(color.FgRed), "❌"
	}
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// UnknownAppError reports an app tag no declaration carries
func UnknownAppError(tag string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelError,
		Context:     "UNKNOWN APP",
		Problem:     fmt.Sprintf("No tunable function is tagged '%s'.", tag),
		Suggestions: FindSimilar(tag, known, nil),
		HelpCommands: []string{
			"List parameters: " + Program + " params --apps <tag>",
			"Get help: " + Program + " schema --help",
		},
		NoColor: noColor,
	})
}

// Describe renders any error, with structured output for the tunables
// error types. candidates feed suggestions for unresolved entrypoints.
func Describe(err error, candidates []string, noColor bool) string {
	opts := ErrorOptions{Level: ErrorLevelError, Problem: err.Error(), NoColor: noColor}

	var (
		unresolved *terrors.UnresolvedEntrypointError
		validation *terrors.ValidationError
		collision  *terrors.NamespaceCollisionError
		mismatch   *terrors.ConfigMismatchError
		duplicate  *terrors.DuplicateDeclarationError
		invalid    *terrors.InvalidDeclarationError
	)

	switch {
	case errors.As(err, &unresolved):
		opts.Code = unresolved.Code()
		opts.Context = "unresolved entrypoint"
		opts.Problem = fmt.Sprintf("Cannot resolve %s: %s", unresolved.Entry, unresolved.Reason)
		opts.Suggestions = FindSimilar(unresolved.Entry, candidates, nil)
		opts.HelpCommands = []string{"Get help: " + Program + " analyze --help"}
	case errors.As(err, &validation):
		opts.Code = validation.Code()
		opts.Context = "invalid configuration"
		opts.Problem = fmt.Sprintf("%d value(s) failed validation:", len(validation.Issues))
		for _, issue := range validation.Issues {
			opts.Details = append(opts.Details, issue.Path+": "+issue.Message)
		}
	case errors.As(err, &collision):
		opts.Code = collision.Code()
		opts.Context = "namespace collision"
		opts.Problem = fmt.Sprintf("Namespace %q is claimed twice.", collision.Path)
		opts.Details = []string{collision.First.String(), collision.Second.String()}
	case errors.As(err, &mismatch):
		opts.Code = mismatch.Code()
		opts.Context = "config mismatch"
		opts.Problem = mismatch.Error()
	case errors.As(err, &duplicate):
		opts.Code = duplicate.Code()
		opts.Context = "duplicate declaration"
		opts.Details = []string{duplicate.Existing.String(), duplicate.Duplicate.String()}
	case errors.As(err, &invalid):
		opts.Code = invalid.Code()
		opts.Context = "invalid declaration"
	}

	return FormatError(opts)
}
