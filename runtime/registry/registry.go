package registry

import (
	"fmt"
	"sort"
	"sync"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/conduit-lang/tunables/runtime/logging"
	"go.uber.org/zap"
)

// Declaration is the tunable metadata attached to one function.
type Declaration struct {
	ID            FuncID                 `json:"id"`
	QualifiedName string                 `json:"qualified_name"`
	Namespace     Path                   `json:"namespace"`
	Params        []ParameterSpec        `json:"params"`
	Apps          []string               `json:"apps,omitempty"`
	Source        terrors.SourceLocation `json:"source"`

	// Seq is the registration order, assigned by Register.
	Seq int `json:"-"`
}

// ParamNames returns the declared parameter names in declaration order.
func (d *Declaration) ParamNames() []string {
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return names
}

// Param finds a parameter by name.
func (d *Declaration) Param(name string) (ParameterSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// RequiredParams returns the names of parameters without a usable default.
func (d *Declaration) RequiredParams() []string {
	var out []string
	for _, p := range d.Params {
		if !p.HasDefault() {
			out = append(out, p.Name)
		}
	}
	return out
}

// HasApp reports whether the declaration carries any of the given tags.
func (d *Declaration) HasApp(tags ...string) bool {
	for _, have := range d.Apps {
		for _, want := range tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Location returns the declaration's source location.
func (d *Declaration) Location() terrors.SourceLocation {
	loc := d.Source
	if loc.QualifiedName == "" {
		loc.QualifiedName = d.QualifiedName
	}
	return loc
}

// Registry holds the tunable declarations of a process.
type Registry struct {
	mu sync.RWMutex

	decls map[FuncID]*Declaration
	order []FuncID
	seq   int

	// Pre-computed indexes used by the call-graph resolver
	qualifiedByID map[FuncID]string
	idByQualified map[string]FuncID
}

// New creates an empty registry. Most programs use Default; tests and
// embedders that need isolation create their own.
func New() *Registry {
	return &Registry{
		decls:         make(map[FuncID]*Declaration),
		qualifiedByID: make(map[FuncID]string),
		idByQualified: make(map[string]FuncID),
	}
}

// Global registry instance
var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register stores a declaration. The qualified name defaults to the
// normalized form of the identity. It fails with a
// DuplicateDeclarationError when the identity, or another identity with
// the same qualified name, is already registered.
func (r *Registry) Register(d Declaration) (*Declaration, error) {
	if d.ID == "" {
		return nil, &terrors.InvalidDeclarationError{Function: "<unknown>", Reason: "empty function identity"}
	}
	if d.QualifiedName == "" {
		d.QualifiedName = QualifiedNameOf(string(d.ID))
	}
	if len(d.Namespace) == 0 {
		d.Namespace = Path{DefaultNamespace}
	}
	if err := validateParams(&d); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.decls[d.ID]; ok {
		return nil, &terrors.DuplicateDeclarationError{
			ID:        string(d.ID),
			Existing:  existing.Location(),
			Duplicate: d.Location(),
		}
	}
	if otherID, ok := r.idByQualified[d.QualifiedName]; ok {
		existing := r.decls[otherID]
		return nil, &terrors.DuplicateDeclarationError{
			ID:        d.QualifiedName,
			Existing:  existing.Location(),
			Duplicate: d.Location(),
		}
	}

	stored := d
	stored.Namespace = append(Path(nil), d.Namespace...)
	stored.Params = append([]ParameterSpec(nil), d.Params...)
	stored.Apps = normalizeApps(d.Apps)
	stored.Seq = r.seq
	r.seq++

	r.decls[stored.ID] = &stored
	r.order = append(r.order, stored.ID)
	r.qualifiedByID[stored.ID] = stored.QualifiedName
	r.idByQualified[stored.QualifiedName] = stored.ID

	logging.Named("registry").Debug("registered tunable",
		zap.String("id", string(stored.ID)),
		zap.String("namespace", stored.Namespace.String()),
		zap.Strings("params", stored.ParamNames()),
		zap.Strings("apps", stored.Apps),
	)

	return &stored, nil
}

func validateParams(d *Declaration) error {
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if !ValidParamName(p.Name) {
			return &terrors.InvalidDeclarationError{Function: d.QualifiedName, Reason: fmt.Sprintf("invalid parameter name %q", p.Name)}
		}
		if seen[p.Name] {
			return &terrors.InvalidDeclarationError{Function: d.QualifiedName, Reason: fmt.Sprintf("parameter %q declared twice", p.Name)}
		}
		seen[p.Name] = true
	}
	return nil
}

func normalizeApps(apps []string) []string {
	if len(apps) == 0 {
		return nil
	}
	set := make(map[string]bool, len(apps))
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		if a == "" || set[a] {
			continue
		}
		set[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Lookup finds a declaration by identity.
func (r *Registry) Lookup(id FuncID) (*Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decls[id]
	return d, ok
}

// LookupByTags returns, in registration order, every declaration whose app
// tags intersect tags. It never fails; no match yields an empty slice.
func (r *Registry) LookupByTags(tags ...string) []*Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*Declaration{}
	for _, id := range r.order {
		if d := r.decls[id]; d.HasApp(tags...) {
			result = append(result, d)
		}
	}
	return result
}

// LookupByIdentities returns the registered declarations among ids, in
// registration order. Unknown identities are ignored.
func (r *Registry) LookupByIdentities(ids ...FuncID) []*Declaration {
	want := make(map[FuncID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*Declaration{}
	for _, id := range r.order {
		if want[id] {
			result = append(result, r.decls[id])
		}
	}
	return result
}

// ResolveIdentity maps a source-level qualified name to the declared
// function's identity. Names of ordinary functions resolve to false.
func (r *Registry) ResolveIdentity(qualifiedName string) (FuncID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByQualified[qualifiedName]
	return id, ok
}

// QualifiedName returns the source-level name recorded for an identity.
func (r *Registry) QualifiedName(id FuncID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.qualifiedByID[id]
	return name, ok
}

// All returns every declaration in registration order.
func (r *Registry) All() []*Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Declaration, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.decls[id])
	}
	return result
}

// Apps returns every known app tag, sorted.
func (r *Registry) Apps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]bool)
	for _, d := range r.decls {
		for _, a := range d.Apps {
			set[a] = true
		}
	}
	apps := make([]string, 0, len(set))
	for a := range set {
		apps = append(apps, a)
	}
	sort.Strings(apps)
	return apps
}

// Len returns the number of declarations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decls)
}

// Reset clears the registry (used for testing).
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decls = make(map[FuncID]*Declaration)
	r.order = nil
	r.seq = 0
	r.qualifiedByID = make(map[FuncID]string)
	r.idByQualified = make(map[string]FuncID)
}
