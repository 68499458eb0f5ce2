package registry

import (
	"fmt"
	"net/url"
	"reflect"
	"runtime"
	"strings"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
)

// FuncID is the stable identity of a declared function: its Go runtime
// symbol name.
type FuncID string

// SymbolOf returns the identity and source location of a function value.
func SymbolOf(fn any) (FuncID, terrors.SourceLocation, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "", terrors.SourceLocation{}, fmt.Errorf("expected a function, got %T", fn)
	}

	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "", terrors.SourceLocation{}, fmt.Errorf("no symbol information for %T", fn)
	}

	symbol := strings.TrimSuffix(f.Name(), "-fm")
	file, line := f.FileLine(f.Entry())
	return FuncID(symbol), terrors.SourceLocation{
		QualifiedName: QualifiedNameOf(symbol),
		File:          file,
		Line:          line,
	}, nil
}

// QualifiedNameOf normalizes a runtime symbol into the source-level
// qualified name used by the resolver:
//
//	example.com/app.(*T).Run  -> example.com/app.T.Run
//	example.com/app.Map[...]  -> example.com/app.Map
//	example.com/app.T.Run-fm  -> example.com/app.T.Run
//	gopkg.in/yaml%2ev3.Load   -> gopkg.in/yaml.v3.Load
//
// The linker escapes dots in the last import path element; the package
// part is unescaped so it matches the import path.
func QualifiedNameOf(symbol string) string {
	symbol = strings.TrimSuffix(symbol, "-fm")

	pkgStart := strings.LastIndex(symbol, "/") + 1
	dot := strings.Index(symbol[pkgStart:], ".")
	if dot < 0 {
		return symbol
	}
	pkg := symbol[:pkgStart+dot]
	name := symbol[pkgStart+dot+1:]
	if unescaped, err := url.PathUnescape(pkg); err == nil {
		pkg = unescaped
	}

	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")
	name = stripTypeArgs(name)
	return pkg + "." + name
}

func stripTypeArgs(name string) string {
	var b strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitQualifiedName returns the package path and the in-package name
// (function name or "Type.Method") of a runtime symbol or qualified name.
// A dot in the last import path element is only told apart from the name
// separator in its escaped runtime form.
func SplitQualifiedName(qualified string) (pkg, name string) {
	pkgStart := strings.LastIndex(qualified, "/") + 1
	dot := strings.Index(qualified[pkgStart:], ".")
	if dot < 0 {
		return "", qualified
	}
	pkg = qualified[:pkgStart+dot]
	if unescaped, err := url.PathUnescape(pkg); err == nil {
		pkg = unescaped
	}
	return pkg, qualified[pkgStart+dot+1:]
}
