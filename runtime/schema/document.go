// Package schema derives a JSON Schema document, a default-value tree and a
// validator from a namespace tree.
//
// Namespaces become "object" nodes keyed by segment; parameters become leaf
// nodes carrying type, default, description and constraints. The document is
// a plain Go value and encodes deterministically with encoding/json.
package schema

// Draft is the JSON Schema dialect of generated documents.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Document is a JSON Schema node.
type Document struct {
	Schema      string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Format      string `json:"format,omitempty"`

	Properties map[string]*Document `json:"properties,omitempty"`
	Required   []string             `json:"required,omitempty"`
	Items      *Document            `json:"items,omitempty"`

	Default any   `json:"default,omitempty"`
	Enum    []any `json:"enum,omitempty"`

	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	MinLength        *int     `json:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty"`
	MinItems         *int     `json:"minItems,omitempty"`
	MaxItems         *int     `json:"maxItems,omitempty"`
}

// PropertyNames returns the keys of Properties in sorted order.
func (d *Document) PropertyNames() []string {
	names := make([]string, 0, len(d.Properties))
	for name := range d.Properties {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

// Property follows a dotted path of property names.
func (d *Document) Property(path ...string) (*Document, bool) {
	node := d
	for _, seg := range path {
		next, ok := node.Properties[seg]
		if !ok {
			return nil, false
		}
		node = next
	}
	return node, true
}
