// Package namespace merges tunable declarations into a single hierarchical
// tree keyed by namespace path.
package namespace

import (
	"fmt"
	"sort"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/conduit-lang/tunables/runtime/registry"
)

// Node is one namespace segment. Params and Owner are set only when a
// declaration targets the node's exact path.
type Node struct {
	Segment  string
	Path     registry.Path
	Params   []registry.ParameterSpec
	Owner    *registry.Declaration
	Children map[string]*Node

	childOrder []string
}

func newNode(segment string, path registry.Path) *Node {
	return &Node{
		Segment:  segment,
		Path:     path,
		Children: make(map[string]*Node),
	}
}

// ChildNames returns the child segments sorted by name.
func (n *Node) ChildNames() []string {
	names := append([]string(nil), n.childOrder...)
	sort.Strings(names)
	return names
}

// Child returns the child for segment.
func (n *Node) Child(segment string) (*Node, bool) {
	c, ok := n.Children[segment]
	return c, ok
}

// Tree is the merged namespace hierarchy of one composition.
type Tree struct {
	Root         *Node
	Declarations []*registry.Declaration
}

// Leaf is a parameter together with its full path.
type Leaf struct {
	Path  registry.Path
	Spec  registry.ParameterSpec
	Owner *registry.Declaration
}

// Key returns the dot-joined path of the leaf, including the parameter name.
func (l Leaf) Key() string {
	return l.Path.String()
}

// Build inserts each declaration's parameters at its namespace path. The
// input is sorted by dotted path and then registration order, so the result
// and any collision error are independent of input order. The registry is
// not touched.
func Build(decls []*registry.Declaration) (*Tree, error) {
	sorted := append([]*registry.Declaration(nil), decls...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := sorted[i].Namespace.String(), sorted[j].Namespace.String()
		if pi != pj {
			return pi < pj
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	tree := &Tree{Root: newNode("", nil), Declarations: sorted}

	for i, d := range sorted {
		if i > 0 && sorted[i-1].ID == d.ID {
			continue
		}
		node := tree.Root
		for _, seg := range d.Namespace {
			child, ok := node.Children[seg]
			if !ok {
				if owner, clash := paramOwner(node, seg); clash {
					return nil, &terrors.NamespaceCollisionError{
						Path:   node.Path.Child(seg).String(),
						First:  owner.Location(),
						Second: d.Location(),
						Detail: fmt.Sprintf("parameter %q of %s shadows the namespace", seg, node.Path),
					}
				}
				child = newNode(seg, node.Path.Child(seg))
				node.Children[seg] = child
				node.childOrder = append(node.childOrder, seg)
			}
			node = child
		}

		if node.Owner != nil {
			return nil, &terrors.NamespaceCollisionError{
				Path:   d.Namespace.String(),
				First:  node.Owner.Location(),
				Second: d.Location(),
			}
		}
		for _, p := range d.Params {
			if child, clash := node.Children[p.Name]; clash {
				err := &terrors.NamespaceCollisionError{
					Path:   child.Path.String(),
					First:  d.Location(),
					Second: d.Location(),
					Detail: fmt.Sprintf("parameter %q shadows a nested namespace", p.Name),
				}
				if other := firstOwnerBelow(child); other != nil {
					err.Second = other.Location()
				}
				return nil, err
			}
		}
		node.Owner = d
		node.Params = append([]registry.ParameterSpec(nil), d.Params...)
	}

	return tree, nil
}

func paramOwner(n *Node, name string) (*registry.Declaration, bool) {
	if n.Owner == nil {
		return nil, false
	}
	for _, p := range n.Params {
		if p.Name == name {
			return n.Owner, true
		}
	}
	return nil, false
}

func firstOwnerBelow(n *Node) *registry.Declaration {
	if n.Owner != nil {
		return n.Owner
	}
	for _, name := range n.ChildNames() {
		if d := firstOwnerBelow(n.Children[name]); d != nil {
			return d
		}
	}
	return nil
}

// Lookup returns the node at path.
func (t *Tree) Lookup(path registry.Path) (*Node, bool) {
	node := t.Root
	for _, seg := range path {
		child, ok := node.Children[seg]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Walk visits nodes depth-first, parents before children, children in
// sorted order. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	var walk func(n *Node)
	walk = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, name := range n.ChildNames() {
			walk(n.Children[name])
		}
	}
	walk(t.Root)
}

// Leaves returns every parameter in the tree, sorted by full path.
func (t *Tree) Leaves() []Leaf {
	var leaves []Leaf
	t.Walk(func(n *Node) bool {
		for _, p := range n.Params {
			leaves = append(leaves, Leaf{Path: n.Path.Child(p.Name), Spec: p, Owner: n.Owner})
		}
		return true
	})
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].Key() < leaves[j].Key() })
	return leaves
}

// LeafCount returns the total number of parameters in the tree.
func (t *Tree) LeafCount() int {
	count := 0
	t.Walk(func(n *Node) bool {
		count += len(n.Params)
		return true
	})
	return count
}

// Namespaces returns the dotted paths of every declaration in the tree.
func (t *Tree) Namespaces() []string {
	out := make([]string, 0, len(t.Declarations))
	seen := make(map[string]bool)
	for _, d := range t.Declarations {
		ns := d.Namespace.String()
		if !seen[ns] {
			seen[ns] = true
			out = append(out, ns)
		}
	}
	return out
}
