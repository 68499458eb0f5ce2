// Package errors defines the error taxonomy shared by the registry, the
// call-graph resolver, the composer and the injection context.
//
// Every error carries a stable code (see codes.go) and, where it makes
// sense, the source location of the declarations involved. Errors are
// matched with the standard library's errors.As:
//
//	var collision *errors.NamespaceCollisionError
//	if stderrors.As(err, &collision) {
//		fmt.Println(collision.First, collision.Second)
//	}
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Coded is implemented by every error in this package.
type Coded interface {
	error
	Code() string
}

// SourceLocation identifies a declared function in source code.
type SourceLocation struct {
	QualifiedName string `json:"qualified_name"`
	File          string `json:"file,omitempty"`
	Line          int    `json:"line,omitempty"`
}

// String renders the location as "name (file:line)".
func (l SourceLocation) String() string {
	if l.File == "" {
		return l.QualifiedName
	}
	return fmt.Sprintf("%s (%s:%d)", l.QualifiedName, l.File, l.Line)
}

// DuplicateDeclarationError is returned when a function identity is
// declared twice.
type DuplicateDeclarationError struct {
	ID        string         `json:"id"`
	Existing  SourceLocation `json:"existing"`
	Duplicate SourceLocation `json:"duplicate"`
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("%s: function %s already declared at %s", e.Code(), e.ID, e.Existing)
}

// Code returns TX001.
func (e *DuplicateDeclarationError) Code() string { return ErrDuplicateDeclaration }

// NamespaceCollisionError is returned when two declarations claim the same
// namespace path within one composition.
type NamespaceCollisionError struct {
	Path   string         `json:"path"`
	First  SourceLocation `json:"first"`
	Second SourceLocation `json:"second"`
	Detail string         `json:"detail,omitempty"`
}

func (e *NamespaceCollisionError) Error() string {
	msg := fmt.Sprintf("%s: namespace %q claimed by both %s and %s", e.Code(), e.Path, e.First, e.Second)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Code returns TX002.
func (e *NamespaceCollisionError) Code() string { return ErrNamespaceCollision }

// UnresolvedEntrypointError is returned when the resolver has no source
// text for the entrypoint.
type UnresolvedEntrypointError struct {
	Entry  string `json:"entry"`
	Reason string `json:"reason"`
}

func (e *UnresolvedEntrypointError) Error() string {
	return fmt.Sprintf("%s: cannot resolve entrypoint %s: %s", e.Code(), e.Entry, e.Reason)
}

// Code returns TX003.
func (e *UnresolvedEntrypointError) Code() string { return ErrUnresolvedEntrypoint }

// ConfigMismatchError is returned when a configuration instance does not
// cover the declarations it is activated for.
type ConfigMismatchError struct {
	Namespace string         `json:"namespace"`
	Missing   []string       `json:"missing,omitempty"`
	Owner     SourceLocation `json:"owner"`
	Reason    string         `json:"reason"`
}

func (e *ConfigMismatchError) Error() string {
	msg := fmt.Sprintf("%s: config does not match %s for namespace %q: %s", e.Code(), e.Owner.QualifiedName, e.Namespace, e.Reason)
	if len(e.Missing) > 0 {
		msg += " (missing: " + strings.Join(e.Missing, ", ") + ")"
	}
	return msg
}

// Code returns TX004.
func (e *ConfigMismatchError) Code() string { return ErrConfigMismatch }

// Issue is a single failed constraint on a configuration leaf.
type Issue struct {
	Path    string `json:"path"`
	Value   any    `json:"value,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports configuration values that fail their parameter
// constraints.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		i := e.Issues[0]
		return fmt.Sprintf("%s: invalid value for %s: %s", e.Code(), i.Path, i.Message)
	}
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, fmt.Sprintf("  %s: %s", i.Path, i.Message))
	}
	return fmt.Sprintf("%s: %d invalid values:\n%s", e.Code(), len(e.Issues), strings.Join(parts, "\n"))
}

// Code returns TX005.
func (e *ValidationError) Code() string { return ErrValidation }

// Add appends an issue.
func (e *ValidationError) Add(path, rule, message string, value any) {
	e.Issues = append(e.Issues, Issue{Path: path, Value: value, Rule: rule, Message: message})
}

// Sort orders issues by path so error text is reproducible.
func (e *ValidationError) Sort() {
	sort.SliceStable(e.Issues, func(i, j int) bool { return e.Issues[i].Path < e.Issues[j].Path })
}

// Err returns e when it holds issues and nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	e.Sort()
	return e
}

// InvalidDeclarationError is returned for malformed declarations (params
// type not a struct, unknown include names, bad tags).
type InvalidDeclarationError struct {
	Function string `json:"function"`
	Reason   string `json:"reason"`
}

func (e *InvalidDeclarationError) Error() string {
	return fmt.Sprintf("%s: invalid tunable declaration for %s: %s", e.Code(), e.Function, e.Reason)
}

// Code returns TX006.
func (e *InvalidDeclarationError) Code() string { return ErrInvalidDeclaration }
