package callgraph

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/tunables/runtime/logging"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/ast/inspector"
)

// Call is a call expression resolved to a qualified name. Target is set
// when the callee's source is part of the index.
type Call struct {
	QualifiedName string
	Target        *FuncSource
}

// FuncSource is an indexed function or method declaration.
type FuncSource struct {
	QualifiedName string // "pkgpath.Name" or "pkgpath.Type.Method"; "main.Name" in main packages
	Name          string // in-package name: "Name" or "Type.Method"
	PkgPath       string // import path of the directory, also for main packages
	Dir           string
	File          string
	Line          int
	Calls         []Call

	decl *ast.FuncDecl
	// variants are same-named declarations from other files of the
	// directory, usually behind build constraints. Their calls are
	// merged into Calls.
	variants []*ast.FuncDecl
}

func (f *FuncSource) declares(decl *ast.FuncDecl) bool {
	if f.decl == decl {
		return true
	}
	for _, v := range f.variants {
		if v == decl {
			return true
		}
	}
	return false
}

// Index is a project-wide function index.
type Index struct {
	Root       string
	ModulePath string
	ModuleDir  string

	fset   *token.FileSet
	byName map[string][]*FuncSource
	byDir  map[string]map[string]*FuncSource
	dirOf  map[string]string // import path -> dir
	pkgOf  map[string]string // dir -> package name
}

type parsedFile struct {
	path string
	dir  string
	file *ast.File
}

// LoadIndex parses the Go sources below root. Test files and vendor,
// testdata, hidden and underscore-prefixed directories are skipped, as are
// nested modules. Files that fail to parse are logged and skipped.
func LoadIndex(root string) (*Index, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source root: %w", err)
	}

	modDir, modPath, err := findModule(absRoot)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		Root:       absRoot,
		ModulePath: modPath,
		ModuleDir:  modDir,
		fset:       token.NewFileSet(),
		byName:     make(map[string][]*FuncSource),
		byDir:      make(map[string]map[string]*FuncSource),
		dirOf:      make(map[string]string),
		pkgOf:      make(map[string]string),
	}

	files, err := ix.parseTree()
	if err != nil {
		return nil, err
	}

	// Declarations first, so calls can be resolved across files.
	for _, pf := range files {
		ix.indexDecls(pf)
	}
	for _, pf := range files {
		ix.indexCalls(pf)
	}

	logging.Named("callgraph").Debug("indexed sources",
		zap.String("root", absRoot),
		zap.String("module", modPath),
		zap.Int("files", len(files)),
		zap.Int("functions", ix.Len()),
	)
	return ix, nil
}

func findModule(dir string) (string, string, error) {
	for d := dir; ; {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		if err == nil {
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return "", "", fmt.Errorf("go.mod in %s has no module directive", d)
			}
			return d, modPath, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", "", fmt.Errorf("no go.mod found at or above %s", dir)
		}
		d = parent
	}
}

func (ix *Index) parseTree() ([]parsedFile, error) {
	var files []parsedFile

	err := filepath.WalkDir(ix.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != ix.Root && SkipDir(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSource(p) {
			return nil
		}

		f, parseErr := parser.ParseFile(ix.fset, p, nil, parser.SkipObjectResolution)
		if parseErr != nil {
			logging.Named("callgraph").Warn("skipping unparsable file", zap.String("file", p), zap.Error(parseErr))
			return nil
		}
		dir := filepath.Dir(p)
		files = append(files, parsedFile{path: p, dir: dir, file: f})
		if _, seen := ix.pkgOf[dir]; !seen {
			ix.pkgOf[dir] = f.Name.Name
			ix.dirOf[ix.importPath(dir)] = dir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sources: %w", err)
	}
	return files, nil
}

// SkipDir reports whether the directory tree at p is left out of an index:
// vendor and testdata, names starting with "." or "_", and nested modules.
func SkipDir(p string) bool {
	name := filepath.Base(p)
	if name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	_, err := os.Stat(filepath.Join(p, "go.mod"))
	return err == nil
}

// IsSource reports whether p is an indexed Go file. Tests are excluded.
func IsSource(p string) bool {
	return strings.HasSuffix(p, ".go") && !strings.HasSuffix(p, "_test.go")
}

func (ix *Index) importPath(dir string) string {
	rel, err := filepath.Rel(ix.ModuleDir, dir)
	if err != nil || rel == "." {
		return ix.ModulePath
	}
	return path.Join(ix.ModulePath, filepath.ToSlash(rel))
}

func (ix *Index) indexDecls(pf parsedFile) {
	pkgPath := ix.importPath(pf.dir)
	qualifier := pkgPath
	if pf.file.Name.Name == "main" {
		qualifier = "main"
	}

	ins := inspector.New([]*ast.File{pf.file})
	ins.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		decl := n.(*ast.FuncDecl)
		name := decl.Name.Name
		if recv := receiverType(decl); recv != "" {
			name = recv + "." + name
		}
		if name == "init" || name == "_" {
			return
		}

		src := &FuncSource{
			QualifiedName: qualifier + "." + name,
			Name:          name,
			PkgPath:       pkgPath,
			Dir:           pf.dir,
			File:          pf.path,
			Line:          ix.fset.Position(decl.Pos()).Line,
			decl:          decl,
		}

		funcs := ix.byDir[pf.dir]
		if funcs == nil {
			funcs = make(map[string]*FuncSource)
			ix.byDir[pf.dir] = funcs
		}
		if first, dup := funcs[name]; dup {
			first.variants = append(first.variants, decl)
			logging.Named("callgraph").Debug("merging duplicate declaration",
				zap.String("function", src.QualifiedName),
				zap.String("first", fmt.Sprintf("%s:%d", first.File, first.Line)),
				zap.String("duplicate", fmt.Sprintf("%s:%d", src.File, src.Line)),
			)
			return
		}
		funcs[name] = src
		ix.byName[src.QualifiedName] = append(ix.byName[src.QualifiedName], src)
	})
}

func (ix *Index) indexCalls(pf parsedFile) {
	imports := ix.importNames(pf.file)
	local := ix.byDir[pf.dir]

	seen := make(map[*FuncSource]map[string]bool)
	ins := inspector.New([]*ast.File{pf.file})
	ins.WithStack([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		decl := enclosingFunc(stack)
		if decl == nil {
			return true
		}
		caller := local[declName(decl)]
		if caller == nil || !caller.declares(decl) {
			return true
		}

		qualified, target := ix.resolveCall(n.(*ast.CallExpr).Fun, decl, caller, imports, local)
		if qualified == "" {
			return true
		}
		if seen[caller] == nil {
			seen[caller] = make(map[string]bool)
		}
		if seen[caller][qualified] {
			return true
		}
		seen[caller][qualified] = true
		caller.Calls = append(caller.Calls, Call{QualifiedName: qualified, Target: target})
		return true
	})
}

// importNames maps the names a file uses for its imports to import paths.
func (ix *Index) importNames(f *ast.File) map[string]string {
	names := make(map[string]string, len(f.Imports))
	for _, spec := range f.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		var name string
		switch {
		case spec.Name != nil:
			name = spec.Name.Name
		case ix.dirOf[importPath] != "":
			name = ix.pkgOf[ix.dirOf[importPath]]
		default:
			name = defaultImportName(importPath)
		}
		if name == "_" || name == "." {
			continue
		}
		names[name] = importPath
	}
	return names
}

func defaultImportName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' && strings.Trim(base[1:], "0123456789") == "" {
		base = path.Base(path.Dir(importPath))
	}
	base = strings.TrimPrefix(base, "go-")
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return strings.ReplaceAll(base, "-", "")
}

// resolveCall maps a callee expression to a qualified name. It returns ""
// for shapes the resolver does not follow.
func (ix *Index) resolveCall(fun ast.Expr, decl *ast.FuncDecl, caller *FuncSource, imports map[string]string, local map[string]*FuncSource) (string, *FuncSource) {
	fun = unwrapCallee(fun)
	qualifier := qualifierOf(caller)

	switch e := fun.(type) {
	case *ast.Ident:
		target := local[e.Name]
		if target == nil && types.Universe.Lookup(e.Name) != nil {
			// builtin function or conversion
			return "", nil
		}
		return qualifier + "." + e.Name, target

	case *ast.SelectorExpr:
		method := e.Sel.Name
		switch x := astutil.Unparen(e.X).(type) {
		case *ast.Ident:
			if importPath, ok := imports[x.Name]; ok {
				var target *FuncSource
				if dir, indexed := ix.dirOf[importPath]; indexed {
					target = ix.byDir[dir][method]
				}
				return importPath + "." + method, target
			}
			if recvName, recvType := receiver(decl); recvName != "" && x.Name == recvName {
				name := recvType + "." + method
				return qualifier + "." + name, local[name]
			}
			// Method expression T.Method
			name := x.Name + "." + method
			if target, ok := local[name]; ok {
				return qualifier + "." + name, target
			}
		case *ast.StarExpr:
			// Method expression (*T).Method
			if id, ok := typeIdent(x.X); ok {
				name := id + "." + method
				return qualifier + "." + name, local[name]
			}
		}
	}
	return "", nil
}

func qualifierOf(src *FuncSource) string {
	return strings.TrimSuffix(src.QualifiedName, "."+src.Name)
}

func unwrapCallee(e ast.Expr) ast.Expr {
	for {
		switch t := e.(type) {
		case *ast.ParenExpr:
			e = t.X
		case *ast.IndexExpr:
			e = t.X
		case *ast.IndexListExpr:
			e = t.X
		default:
			return e
		}
	}
}

func enclosingFunc(stack []ast.Node) *ast.FuncDecl {
	for i := len(stack) - 1; i >= 0; i-- {
		if decl, ok := stack[i].(*ast.FuncDecl); ok {
			return decl
		}
	}
	return nil
}

func declName(decl *ast.FuncDecl) string {
	if recv := receiverType(decl); recv != "" {
		return recv + "." + decl.Name.Name
	}
	return decl.Name.Name
}

func receiverType(decl *ast.FuncDecl) string {
	_, typ := receiver(decl)
	return typ
}

// receiver returns the receiver variable name and base type name.
func receiver(decl *ast.FuncDecl) (string, string) {
	if decl.Recv == nil || len(decl.Recv.List) == 0 {
		return "", ""
	}
	field := decl.Recv.List[0]
	typ, _ := typeIdent(field.Type)
	var name string
	if len(field.Names) > 0 && field.Names[0].Name != "_" {
		name = field.Names[0].Name
	}
	return name, typ
}

func typeIdent(e ast.Expr) (string, bool) {
	for {
		switch t := e.(type) {
		case *ast.StarExpr:
			e = t.X
		case *ast.ParenExpr:
			e = t.X
		case *ast.IndexExpr:
			e = t.X
		case *ast.IndexListExpr:
			e = t.X
		case *ast.Ident:
			return t.Name, true
		default:
			return "", false
		}
	}
}

// Lookup returns every indexed function with the qualified name. Several
// main packages may define the same "main.Name".
func (ix *Index) Lookup(qualified string) []*FuncSource {
	return append([]*FuncSource(nil), ix.byName[qualified]...)
}

// Len returns the number of indexed functions.
func (ix *Index) Len() int {
	n := 0
	for _, funcs := range ix.byDir {
		n += len(funcs)
	}
	return n
}

// Packages returns the indexed import paths, sorted.
func (ix *Index) Packages() []string {
	out := make([]string, 0, len(ix.dirOf))
	for p := range ix.dirOf {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Names returns every indexed qualified name, sorted.
func (ix *Index) Names() []string {
	out := make([]string, 0, len(ix.byName))
	for name := range ix.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
