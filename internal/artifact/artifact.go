// Package artifact persists the schema and defaults of a model so they
// can be read without running application code.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conduit-lang/tunables/internal/cli/flags"
	"github.com/conduit-lang/tunables/runtime/compose"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding of the defaults file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (expected json or yaml)", s)
}

// Paths are the files written for a prefix.
type Paths struct {
	Schema   string
	Defaults string
}

// PathsFor returns the artifact paths for prefix: <prefix>.schema.json and
// <prefix>.json or <prefix>.yaml.
func PathsFor(prefix string, format Format) Paths {
	ext := ".json"
	if format == FormatYAML {
		ext = ".yaml"
	}
	return Paths{Schema: prefix + ".schema.json", Defaults: prefix + ext}
}

// Write stores the schema and defaults of m under prefix.
func Write(prefix string, m *compose.Model, format Format) (Paths, error) {
	paths := PathsFor(prefix, format)

	if dir := filepath.Dir(prefix); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	schemaJSON, err := m.SchemaJSON()
	if err != nil {
		return paths, fmt.Errorf("failed to encode schema: %w", err)
	}
	if err := os.WriteFile(paths.Schema, append(schemaJSON, '\n'), 0o644); err != nil {
		return paths, fmt.Errorf("failed to write schema: %w", err)
	}

	defaults, err := EncodeDefaults(m, format)
	if err != nil {
		return paths, err
	}
	if err := os.WriteFile(paths.Defaults, defaults, 0o644); err != nil {
		return paths, fmt.Errorf("failed to write defaults: %w", err)
	}
	return paths, nil
}

// EncodeDefaults renders the defaults of m. Map keys are sorted in both
// formats.
func EncodeDefaults(m *compose.Model, format Format) ([]byte, error) {
	if format == FormatYAML {
		out, err := yaml.Marshal(m.Defaults())
		if err != nil {
			return nil, fmt.Errorf("failed to encode defaults: %w", err)
		}
		return out, nil
	}
	out, err := m.DefaultsJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	return append(out, '\n'), nil
}

// Load reads a JSON, YAML or TOML file into a value tree, chosen by
// extension. Other extensions are read as YAML, which also accepts JSON.
// Key spelling is kept as written.
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	values := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &values)
	case ".toml":
		err = toml.Unmarshal(data, &values)
	default:
		err = yaml.Unmarshal(data, &values)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if values == nil {
		values = make(map[string]any)
	}
	return values, nil
}

// LoadConfig reads a config file and validates it against m. Values from
// the file replace the model defaults; keys matching a parameter or
// namespace case-insensitively take its declared spelling.
func LoadConfig(m *compose.Model, path string) (*compose.Config, error) {
	values, err := Load(path)
	if err != nil {
		return nil, err
	}
	values = flags.Canonicalize(m.Tree().Root, values)
	return m.NewConfig(overlay(m.Defaults(), values))
}

// overlay copies src into dst, descending into sections present in both.
func overlay(dst, src map[string]any) map[string]any {
	for k, v := range src {
		section, isMap := v.(map[string]any)
		existing, hasMap := dst[k].(map[string]any)
		if isMap && hasMap {
			dst[k] = overlay(existing, section)
			continue
		}
		dst[k] = v
	}
	return dst
}
