// Package compose turns a set of tunable declarations into a validated
// configuration model: a JSON Schema document, a default-value tree and a
// validator, all keyed by namespace path.
//
// Declarations are selected either by app tag or by static reachability
// from an entrypoint. Both paths share the same downstream steps, so a
// model is fully determined by the declaration set it was built from.
package compose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/tunables/compiler/callgraph"
	"github.com/conduit-lang/tunables/runtime/logging"
	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/conduit-lang/tunables/runtime/schema"
	"go.uber.org/zap"
)

// ErrNoResolver is returned by entry composition on a Composer without a
// Resolver.
var ErrNoResolver = errors.New("entry composition requires a call-graph resolver")

// Composer builds models from a registry.
type Composer struct {
	Registry *registry.Registry
	Resolver *callgraph.Resolver
	Deriver  schema.Deriver
}

// New returns a Composer over reg. resolver may be nil when only tag
// composition is needed.
func New(reg *registry.Registry, resolver *callgraph.Resolver) *Composer {
	return &Composer{Registry: reg, Resolver: resolver, Deriver: schema.NewDeriver()}
}

// ComposeByTags builds a model from every declaration carrying any of the
// tags. No match yields an empty model, not an error.
func (c *Composer) ComposeByTags(tags ...string) (*Model, error) {
	decls := c.registry().LookupByTags(tags...)
	return c.compose(decls, "apps: "+strings.Join(tags, ", "), nil)
}

// ComposeByEntry builds a model from the declarations statically reachable
// from entry.
func (c *Composer) ComposeByEntry(entry registry.FuncID) (*Model, error) {
	if c.Resolver == nil {
		return nil, ErrNoResolver
	}
	res, err := c.Resolver.ResolveDetailed(entry)
	if err != nil {
		return nil, err
	}
	return c.composeResult(res)
}

// ComposeByEntryFunc is ComposeByEntry for a function value.
func (c *Composer) ComposeByEntryFunc(fn any) (*Model, error) {
	if c.Resolver == nil {
		return nil, ErrNoResolver
	}
	res, err := c.Resolver.ResolveFunc(fn)
	if err != nil {
		return nil, err
	}
	return c.composeResult(res)
}

func (c *Composer) composeResult(res *callgraph.Result) (*Model, error) {
	decls := c.registry().LookupByIdentities(res.Reachable.Sorted()...)
	title := registry.QualifiedNameOf(string(res.Entry))
	return c.compose(decls, "entry: "+title, res.Touched)
}

func (c *Composer) registry() *registry.Registry {
	if c.Registry == nil {
		return registry.Default()
	}
	return c.Registry
}

func (c *Composer) compose(decls []*registry.Declaration, title string, touched []string) (*Model, error) {
	tree, err := namespace.Build(decls)
	if err != nil {
		return nil, err
	}

	deriver := c.Deriver
	if deriver == nil {
		deriver = schema.NewDeriver()
	}
	derived, err := deriver.Derive(tree, title)
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema for %s: %w", title, err)
	}

	logging.Named("compose").Debug("composed model",
		zap.String("title", title),
		zap.Int("declarations", len(decls)),
		zap.Int("leaves", tree.LeafCount()),
	)

	return &Model{
		title:     title,
		registry:  c.registry(),
		tree:      tree,
		document:  derived.Document,
		defaults:  derived.Defaults,
		validator: derived.Validator,
		touched:   touched,
	}, nil
}
