package schema

import (
	"fmt"
	"sort"

	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/go-playground/validator/v10"
)

// Result is the output of a derivation.
type Result struct {
	Document  *Document
	Defaults  map[string]any
	Validator Validator
}

// Deriver turns a namespace tree into a schema, defaults and validator.
type Deriver interface {
	Derive(tree *namespace.Tree, title string) (*Result, error)
}

// NewDeriver returns the default Deriver, which validates values with
// go-playground/validator rules.
func NewDeriver() Deriver {
	return &deriver{validate: validator.New()}
}

type deriver struct {
	validate *validator.Validate
}

// Derive builds the document and default tree. Namespaces owned by a
// declaration with required parameters are optional and left out of the
// defaults together with their subtree. The defaults are validated before
// being returned, so an out-of-range default fails composition.
func (d *deriver) Derive(tree *namespace.Tree, title string) (*Result, error) {
	doc := objectNode(tree.Root)
	doc.Schema = Draft
	doc.Title = title

	defaults := defaultsFor(tree.Root)
	v := &treeValidator{tree: tree, validate: d.validate}

	normalized, err := v.Validate(defaults)
	if err != nil {
		return nil, fmt.Errorf("defaults do not satisfy their own constraints: %w", err)
	}

	return &Result{Document: doc, Defaults: normalized, Validator: v}, nil
}

func objectNode(n *namespace.Node) *Document {
	doc := &Document{Type: "object", Properties: make(map[string]*Document)}
	if n.Owner != nil {
		doc.Description = "Tunables of " + n.Owner.QualifiedName
	}

	for _, p := range n.Params {
		doc.Properties[p.Name] = leafNode(p)
		if p.Required {
			doc.Required = append(doc.Required, p.Name)
		}
	}
	for _, name := range n.ChildNames() {
		doc.Properties[name] = objectNode(n.Children[name])
	}
	return doc
}

func leafNode(p registry.ParameterSpec) *Document {
	doc := &Document{Description: p.Description}

	switch p.Kind {
	case registry.KindDuration:
		doc.Type = "string"
		doc.Format = "duration"
	case registry.KindStringList, registry.KindIntList, registry.KindFloatList:
		doc.Type = "array"
		doc.Items = &Document{Type: string(p.Kind.Elem())}
	default:
		doc.Type = string(p.Kind)
	}

	if !p.Required {
		if def, err := coerce(p, p.Default); err == nil {
			doc.Default = def
		}
	}
	elem := p
	elem.Kind = p.Kind.Elem()
	for _, e := range p.Enum {
		v, err := coerce(elem, e)
		if err != nil {
			v = e
		}
		doc.Enum = append(doc.Enum, v)
	}

	switch p.Kind {
	case registry.KindInt, registry.KindFloat:
		if p.Min != nil {
			if p.ExclusiveMin {
				doc.ExclusiveMinimum = p.Min
			} else {
				doc.Minimum = p.Min
			}
		}
		if p.Max != nil {
			if p.ExclusiveMax {
				doc.ExclusiveMaximum = p.Max
			} else {
				doc.Maximum = p.Max
			}
		}
	case registry.KindString:
		doc.MinLength, doc.MaxLength = lengthBounds(p)
	case registry.KindStringList, registry.KindIntList, registry.KindFloatList:
		doc.MinItems, doc.MaxItems = lengthBounds(p)
	}
	return doc
}

func lengthBounds(p registry.ParameterSpec) (minLen, maxLen *int) {
	if p.Min != nil {
		v := int(*p.Min)
		if p.ExclusiveMin {
			v++
		}
		minLen = &v
	}
	if p.Max != nil {
		v := int(*p.Max)
		if p.ExclusiveMax {
			v--
		}
		maxLen = &v
	}
	return minLen, maxLen
}

func defaultsFor(n *namespace.Node) map[string]any {
	out := make(map[string]any)
	for _, p := range n.Params {
		out[p.Name] = p.Default
	}
	for _, name := range n.ChildNames() {
		child := n.Children[name]
		if child.Owner != nil && len(child.Owner.RequiredParams()) > 0 {
			continue
		}
		out[name] = defaultsFor(child)
	}
	return out
}

func sortStrings(s []string) { sort.Strings(s) }
