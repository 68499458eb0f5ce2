package registry

import (
	"fmt"
	"strings"
)

// DefaultNamespace is used when a declaration names no namespace.
const DefaultNamespace = "main"

// Path is a namespace path, e.g. ["model", "preprocess"].
type Path []string

// ParsePath splits a dotted namespace. An empty string yields the default
// namespace.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{DefaultNamespace}, nil
	}
	segments := strings.Split(s, ".")
	for _, seg := range segments {
		if !ValidParamName(seg) {
			return nil, fmt.Errorf("invalid namespace %q: bad segment %q", s, seg)
		}
	}
	return Path(segments), nil
}

// MustParsePath is like ParsePath but panics on error.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the dot-joined path.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Child returns a copy of p extended with seg.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}
