package compose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/conduit-lang/tunables/runtime/schema"
)

// Config is a validated configuration instance.
type Config struct {
	model  *Model
	values map[string]any
}

// Model returns the model the config was validated against.
func (c *Config) Model() *Model { return c.model }

// Values returns a copy of the value tree.
func (c *Config) Values() map[string]any { return schema.Copy(c.values) }

// Section returns the values of one namespace. The returned map must not
// be modified.
func (c *Config) Section(path registry.Path) (map[string]any, bool) {
	current := c.values
	for _, seg := range path {
		next, ok := current[seg].(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Get returns the value at a dotted key such as "model.hidden_units".
func (c *Config) Get(key string) (any, bool) {
	path, name := splitKey(key)
	section, ok := c.Section(path)
	if !ok {
		return nil, false
	}
	v, ok := section[name]
	return v, ok
}

// Set replaces one leaf. The whole tree is revalidated and c is left
// unchanged when the new value is rejected.
func (c *Config) Set(key string, value any) error {
	path, name := splitKey(key)
	if len(path) == 0 {
		return fmt.Errorf("invalid key %q", key)
	}

	values := schema.Copy(c.values)
	section := values
	for _, seg := range path {
		next, ok := section[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			section[seg] = next
		}
		section = next
	}
	section[name] = value

	normalized, err := c.model.Validate(values)
	if err != nil {
		return err
	}
	c.values = normalized
	return nil
}

// JSON renders the value tree.
func (c *Config) JSON() ([]byte, error) {
	return json.MarshalIndent(c.values, "", "  ")
}

func splitKey(key string) (registry.Path, string) {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return nil, key
	}
	return registry.Path(strings.Split(key[:i], ".")), key[i+1:]
}
