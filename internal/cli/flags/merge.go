package flags

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conduit-lang/tunables/runtime/compose"
	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrConflictingFlags is returned when a boolean flag and its negation are
// both given.
var ErrConflictingFlags = errors.New("flag and its negation are both set")

// Merge resolves every leaf of m in order of precedence: a flag explicitly
// set on fs, then the config file (when configFile is not empty), then the
// model default. The result is validated against m.
func Merge(m *compose.Model, fs *pflag.FlagSet, configFile string) (*compose.Config, error) {
	v := viper.New()

	setDefaults(v, "", m.Defaults())

	if configFile != "" {
		if err := ReadConfigFile(v, configFile); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		if err := bindChanged(v, fs, m); err != nil {
			return nil, err
		}
	}

	values := Canonicalize(m.Tree().Root, v.AllSettings())
	return m.NewConfig(values)
}

// ReadConfigFile loads a JSON, YAML or TOML file into v. Files with other
// extensions are read as YAML, which also accepts JSON.
func ReadConfigFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".") {
	case "json", "toml", "yaml", "yml":
	default:
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper, prefix string, values map[string]any) {
	for k, val := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if section, ok := val.(map[string]any); ok {
			setDefaults(v, key, section)
			continue
		}
		v.SetDefault(key, val)
	}
}

func bindChanged(v *viper.Viper, fs *pflag.FlagSet, m *compose.Model) error {
	for _, leaf := range m.Leaves() {
		name := Name(leaf)
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		neg := fs.Lookup(NegationPrefix + name)

		if neg != nil && neg.Changed {
			if flag.Changed {
				return fmt.Errorf("--%s and --%s%s: %w", name, NegationPrefix, name, ErrConflictingFlags)
			}
			negated, err := fs.GetBool(NegationPrefix + name)
			if err != nil {
				return err
			}
			v.Set(name, !negated)
			continue
		}

		if flag.Changed {
			if err := v.BindPFlag(name, flag); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}
	return nil
}

// Canonicalize restores the declared spelling of keys, which viper
// lowercases. Keys that match no parameter or namespace are kept as they
// are.
func Canonicalize(n *namespace.Node, values map[string]any) map[string]any {
	names := make(map[string]string)
	for _, p := range n.Params {
		names[strings.ToLower(p.Name)] = p.Name
	}
	for _, c := range n.ChildNames() {
		names[strings.ToLower(c)] = c
	}

	out := make(map[string]any, len(values))
	for k, val := range values {
		name, ok := names[strings.ToLower(k)]
		if !ok {
			name = k
		}
		if section, isMap := val.(map[string]any); isMap {
			if child, hasChild := n.Child(name); hasChild {
				val = Canonicalize(child, section)
			}
		}
		out[name] = val
	}
	return out
}
