package callgraph

import (
	"path/filepath"
	"sort"
	"strings"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/conduit-lang/tunables/runtime/logging"
	"github.com/conduit-lang/tunables/runtime/registry"
	"go.uber.org/zap"
)

// ReachableSet is the set of declared functions reachable from an
// entrypoint.
type ReachableSet map[registry.FuncID]struct{}

// Contains reports whether id is in the set.
func (s ReachableSet) Contains(id registry.FuncID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the identities in lexical order.
func (s ReachableSet) Sorted() []registry.FuncID {
	ids := make([]registry.FuncID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Result is a reachability answer with the functions the walk visited.
type Result struct {
	Entry     registry.FuncID
	Reachable ReachableSet
	// Touched lists every qualified name the walk reached, declared or
	// not, sorted.
	Touched []string
}

// Resolver answers reachability queries against a registry and an index.
type Resolver struct {
	registry *registry.Registry
	index    *Index
}

// NewResolver creates a resolver.
func NewResolver(reg *registry.Registry, index *Index) *Resolver {
	return &Resolver{registry: reg, index: index}
}

// Index returns the resolver's source index.
func (r *Resolver) Index() *Index {
	return r.index
}

// Resolve returns the declared functions reachable from entry, entry
// included when it is declared itself.
func (r *Resolver) Resolve(entry registry.FuncID) (ReachableSet, error) {
	res, err := r.ResolveDetailed(entry)
	if err != nil {
		return nil, err
	}
	return res.Reachable, nil
}

// ResolveFunc resolves from a function value. Its source file is used to
// pick between main packages that define the same name.
func (r *Resolver) ResolveFunc(fn any) (*Result, error) {
	id, loc, err := registry.SymbolOf(fn)
	if err != nil {
		return nil, &terrors.UnresolvedEntrypointError{Entry: "<invalid>", Reason: err.Error()}
	}
	return r.resolve(id, loc.File)
}

// ResolveDetailed is Resolve with the visited names.
func (r *Resolver) ResolveDetailed(entry registry.FuncID) (*Result, error) {
	return r.resolve(entry, "")
}

func (r *Resolver) resolve(entry registry.FuncID, fileHint string) (*Result, error) {
	start, err := r.entrySource(entry, fileHint)
	if err != nil {
		return nil, err
	}

	result := &Result{Entry: entry, Reachable: make(ReachableSet)}
	touched := map[string]bool{start.QualifiedName: true}
	visited := map[*FuncSource]bool{start: true}
	queue := []*FuncSource{start}

	// A declared entry is reachable even if the index names it differently.
	if _, ok := r.registry.Lookup(entry); ok {
		result.Reachable[entry] = struct{}{}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if id, ok := r.registry.ResolveIdentity(current.QualifiedName); ok {
			result.Reachable[id] = struct{}{}
		}

		for _, call := range current.Calls {
			touched[call.QualifiedName] = true
			if call.Target == nil {
				// Declared functions outside the source root still count.
				if id, ok := r.registry.ResolveIdentity(call.QualifiedName); ok {
					result.Reachable[id] = struct{}{}
				}
				continue
			}
			if !visited[call.Target] {
				visited[call.Target] = true
				queue = append(queue, call.Target)
			}
		}
	}

	result.Touched = make([]string, 0, len(touched))
	for name := range touched {
		result.Touched = append(result.Touched, name)
	}
	sort.Strings(result.Touched)

	logging.Named("callgraph").Debug("resolved entrypoint",
		zap.String("entry", string(entry)),
		zap.Int("visited", len(visited)),
		zap.Int("reachable", len(result.Reachable)),
	)
	return result, nil
}

func (r *Resolver) entrySource(entry registry.FuncID, fileHint string) (*FuncSource, error) {
	qualified, ok := r.registry.QualifiedName(entry)
	if !ok {
		qualified = registry.QualifiedNameOf(string(entry))
	}

	candidates := r.index.Lookup(qualified)
	if len(candidates) == 0 {
		return nil, &terrors.UnresolvedEntrypointError{
			Entry:  string(entry),
			Reason: "no source for " + qualified + " below " + r.index.Root,
		}
	}

	if fileHint != "" {
		for _, c := range candidates {
			if sameFile(c, fileHint) {
				return c, nil
			}
		}
	}

	dirs := make(map[string]bool)
	for _, c := range candidates {
		dirs[c.Dir] = true
	}
	if len(dirs) > 1 {
		files := make([]string, len(candidates))
		for i, c := range candidates {
			files[i] = c.File
		}
		return nil, &terrors.UnresolvedEntrypointError{
			Entry:  string(entry),
			Reason: "ambiguous, defined in " + strings.Join(files, ", "),
		}
	}
	return candidates[0], nil
}

// sameFile compares an indexed file with a path recorded in the binary,
// which is module-relative when built with -trimpath.
func sameFile(src *FuncSource, file string) bool {
	file = filepath.ToSlash(file)
	if filepath.ToSlash(src.File) == file {
		return true
	}
	return src.PkgPath+"/"+filepath.Base(src.File) == file
}
