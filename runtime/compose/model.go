package compose

import (
	"encoding/json"

	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/conduit-lang/tunables/runtime/schema"
)

// Model is a composed configuration model. Its description is immutable;
// configurations built from it are independent values.
type Model struct {
	title     string
	registry  *registry.Registry
	tree      *namespace.Tree
	document  *schema.Document
	defaults  map[string]any
	validator schema.Validator
	touched   []string
}

// Title describes how the model was selected.
func (m *Model) Title() string { return m.title }

// Registry returns the registry the model was composed from.
func (m *Model) Registry() *registry.Registry { return m.registry }

// Tree returns the namespace tree the model was derived from.
func (m *Model) Tree() *namespace.Tree { return m.tree }

// Schema returns the JSON Schema document.
func (m *Model) Schema() *schema.Document { return m.document }

// SchemaJSON renders the schema. Output is byte-identical for identical
// declaration sets.
func (m *Model) SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(m.document, "", "  ")
}

// Defaults returns a copy of the default-value tree.
func (m *Model) Defaults() map[string]any {
	return schema.Copy(m.defaults)
}

// DefaultsJSON renders the default-value tree with sorted keys.
func (m *Model) DefaultsJSON() ([]byte, error) {
	return json.MarshalIndent(m.defaults, "", "  ")
}

// Validate checks values against the model and returns the coerced tree.
func (m *Model) Validate(values map[string]any) (map[string]any, error) {
	return m.validator.Validate(values)
}

// Declarations returns the participating declarations in namespace order.
func (m *Model) Declarations() []*registry.Declaration {
	return append([]*registry.Declaration(nil), m.tree.Declarations...)
}

// Namespaces returns the dotted namespace paths, sorted.
func (m *Model) Namespaces() []string { return m.tree.Namespaces() }

// Leaves returns every parameter of the model, sorted by key.
func (m *Model) Leaves() []namespace.Leaf { return m.tree.Leaves() }

// Touched lists the functions visited by entry composition. It is empty
// for tag composition.
func (m *Model) Touched() []string {
	return append([]string(nil), m.touched...)
}

// NewConfig validates values and returns a configuration bound to m.
func (m *Model) NewConfig(values map[string]any) (*Config, error) {
	normalized, err := m.validator.Validate(values)
	if err != nil {
		return nil, err
	}
	return &Config{model: m, values: normalized}, nil
}

// DefaultConfig returns a configuration holding the defaults.
func (m *Model) DefaultConfig() *Config {
	return &Config{model: m, values: m.Defaults()}
}
