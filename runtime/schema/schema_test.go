package schema

import (
	"encoding/json"
	"errors"
	"testing"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spec(t *testing.T, name string, kind registry.Kind, def any, rules string) registry.ParameterSpec {
	t.Helper()
	p := registry.ParameterSpec{Name: name, Kind: kind, Default: def}
	require.NoError(t, p.ApplyRules(rules))
	return p
}

func buildTree(t *testing.T) *namespace.Tree {
	t.Helper()
	reg := registry.New()
	decls := []registry.Declaration{
		{
			ID:        "app.BuildModel",
			Namespace: registry.MustParsePath("model"),
			Params: []registry.ParameterSpec{
				spec(t, "hidden_units", registry.KindInt, 128, "min=1"),
				spec(t, "dropout", registry.KindFloat, 0.2, "gte=0,lte=1"),
			},
		},
		{
			ID:        "app.Preprocess",
			Namespace: registry.MustParsePath("model.preprocess"),
			Params: []registry.ParameterSpec{
				spec(t, "dropna", registry.KindBool, true, ""),
				spec(t, "normalize", registry.KindString, "zscore", "oneof=zscore minmax none"),
				spec(t, "columns", registry.KindStringList, []string{"a", "b"}, "min=1"),
			},
		},
		{
			ID:        "app.Train",
			Namespace: registry.MustParsePath("train"),
			Params: []registry.ParameterSpec{
				spec(t, "epochs", registry.KindInt, 10, "min=1"),
				spec(t, "timeout", registry.KindDuration, "30s", "min=1s"),
			},
		},
	}
	for _, d := range decls {
		_, err := reg.Register(d)
		require.NoError(t, err)
	}
	tree, err := namespace.Build(reg.All())
	require.NoError(t, err)
	return tree
}

func TestDerive_Document(t *testing.T) {
	res, err := NewDeriver().Derive(buildTree(t), "AppConfig")
	require.NoError(t, err)

	doc := res.Document
	assert.Equal(t, Draft, doc.Schema)
	assert.Equal(t, "AppConfig", doc.Title)
	assert.Equal(t, "object", doc.Type)
	assert.Equal(t, []string{"model", "train"}, doc.PropertyNames())

	hidden, ok := doc.Property("model", "hidden_units")
	require.True(t, ok)
	assert.Equal(t, "integer", hidden.Type)
	assert.Equal(t, 128, hidden.Default)
	require.NotNil(t, hidden.Minimum)
	assert.Equal(t, 1.0, *hidden.Minimum)

	normalize, ok := doc.Property("model", "preprocess", "normalize")
	require.True(t, ok)
	assert.Equal(t, []any{"zscore", "minmax", "none"}, normalize.Enum)

	columns, ok := doc.Property("model", "preprocess", "columns")
	require.True(t, ok)
	assert.Equal(t, "array", columns.Type)
	require.NotNil(t, columns.MinItems)
	assert.Equal(t, 1, *columns.MinItems)

	timeout, ok := doc.Property("train", "timeout")
	require.True(t, ok)
	assert.Equal(t, "string", timeout.Type)
	assert.Equal(t, "duration", timeout.Format)
	assert.Equal(t, "30s", timeout.Default)
}

func TestDerive_Defaults(t *testing.T) {
	res, err := NewDeriver().Derive(buildTree(t), "AppConfig")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"model": map[string]any{
			"hidden_units": 128,
			"dropout":      0.2,
			"preprocess": map[string]any{
				"dropna":    true,
				"normalize": "zscore",
				"columns":   []string{"a", "b"},
			},
		},
		"train": map[string]any{
			"epochs":  10,
			"timeout": "30s",
		},
	}, res.Defaults)

	// Defaults validate against their own schema.
	_, err = res.Validator.Validate(res.Defaults)
	assert.NoError(t, err)
}

func TestDerive_Deterministic(t *testing.T) {
	first, err := NewDeriver().Derive(buildTree(t), "AppConfig")
	require.NoError(t, err)
	second, err := NewDeriver().Derive(buildTree(t), "AppConfig")
	require.NoError(t, err)

	a, _ := json.Marshal(first.Document)
	b, _ := json.Marshal(second.Document)
	assert.Equal(t, string(a), string(b))

	a, _ = json.Marshal(first.Defaults)
	b, _ = json.Marshal(second.Defaults)
	assert.Equal(t, string(a), string(b))
}

func TestDerive_InvalidDefault(t *testing.T) {
	reg := registry.New()
	_, err := reg.Register(registry.Declaration{
		ID:        "app.F",
		Namespace: registry.MustParsePath("f"),
		Params:    []registry.ParameterSpec{spec(t, "ratio", registry.KindFloat, 2.0, "lte=1")},
	})
	require.NoError(t, err)
	tree, err := namespace.Build(reg.All())
	require.NoError(t, err)

	_, err = NewDeriver().Derive(tree, "AppConfig")
	var verr *terrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "f.ratio", verr.Issues[0].Path)
}

func TestDerive_RequiredSectionIsOptional(t *testing.T) {
	reg := registry.New()
	_, err := reg.Register(registry.Declaration{
		ID:        "app.Load",
		Namespace: registry.MustParsePath("data"),
		Params: []registry.ParameterSpec{
			spec(t, "path", registry.KindString, "", "required"),
			spec(t, "limit", registry.KindInt, 5, ""),
		},
	})
	require.NoError(t, err)
	tree, err := namespace.Build(reg.All())
	require.NoError(t, err)

	res, err := NewDeriver().Derive(tree, "AppConfig")
	require.NoError(t, err)

	assert.Empty(t, res.Defaults)
	data, ok := res.Document.Property("data")
	require.True(t, ok)
	assert.Equal(t, []string{"path"}, data.Required)
	assert.Nil(t, data.Properties["path"].Default)
	assert.Empty(t, res.Document.Required)

	_, err = res.Validator.Validate(map[string]any{"data": map[string]any{"limit": 3}})
	var verr *terrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "data.path", verr.Issues[0].Path)
	assert.Equal(t, "required", verr.Issues[0].Rule)
}

func TestValidator_Coercion(t *testing.T) {
	res, err := NewDeriver().Derive(buildTree(t), "AppConfig")
	require.NoError(t, err)

	got, err := res.Validator.Validate(map[string]any{
		"model": map[string]any{
			"hidden_units": 256.0,
			"dropout":      "0.5",
			"preprocess": map[string]any{
				"dropna":  "false",
				"columns": "x, y",
			},
		},
		"train": map[string]any{
			"timeout": "1m",
		},
		"unknown": map[string]any{"kept": true},
	})
	require.NoError(t, err)

	model := got["model"].(map[string]any)
	assert.Equal(t, 256, model["hidden_units"])
	assert.Equal(t, 0.5, model["dropout"])

	pre := model["preprocess"].(map[string]any)
	assert.Equal(t, false, pre["dropna"])
	assert.Equal(t, []string{"x", "y"}, pre["columns"])
	_, hasNormalize := pre["normalize"]
	assert.False(t, hasNormalize)

	assert.Equal(t, "1m0s", got["train"].(map[string]any)["timeout"])
	assert.Equal(t, map[string]any{"kept": true}, got["unknown"])
}

func TestValidator_Failures(t *testing.T) {
	res, err := NewDeriver().Derive(buildTree(t), "AppConfig")
	require.NoError(t, err)

	tests := []struct {
		name   string
		values map[string]any
		path   string
		rule   string
	}{
		{"below minimum", map[string]any{"model": map[string]any{"hidden_units": 0}}, "model.hidden_units", "min"},
		{"above maximum", map[string]any{"model": map[string]any{"dropout": 1.5}}, "model.dropout", "lte"},
		{"not integral", map[string]any{"model": map[string]any{"hidden_units": 1.5}}, "model.hidden_units", "type"},
		{"enum", map[string]any{"model": map[string]any{"preprocess": map[string]any{"normalize": "log"}}}, "model.preprocess.normalize", "oneof"},
		{"not a number", map[string]any{"train": map[string]any{"epochs": "many"}}, "train.epochs", "type"},
		{"section not object", map[string]any{"train": 3}, "train", "type"},
		{"duration too short", map[string]any{"train": map[string]any{"timeout": "10ms"}}, "train.timeout", "min"},
		{"bool as int", map[string]any{"train": map[string]any{"epochs": true}}, "train.epochs", "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := res.Validator.Validate(tt.values)
			var verr *terrors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Len(t, verr.Issues, 1)
			assert.Equal(t, tt.path, verr.Issues[0].Path)
			assert.Equal(t, tt.rule, verr.Issues[0].Rule)
		})
	}
}

func TestValidator_DoesNotMutateInput(t *testing.T) {
	res, err := NewDeriver().Derive(buildTree(t), "AppConfig")
	require.NoError(t, err)

	input := map[string]any{"model": map[string]any{"hidden_units": "64"}}
	_, err = res.Validator.Validate(input)
	require.NoError(t, err)
	assert.Equal(t, "64", input["model"].(map[string]any)["hidden_units"])
}

func TestCopy(t *testing.T) {
	orig := map[string]any{"a": map[string]any{"b": []string{"x"}}}
	c := Copy(orig)
	c["a"].(map[string]any)["b"].([]string)[0] = "y"
	assert.Equal(t, "x", orig["a"].(map[string]any)["b"].([]string)[0])

	assert.Equal(t, map[string]any{}, Copy(nil))
}

func TestDerive_EnumMatchesKind(t *testing.T) {
	reg := registry.New()
	_, err := reg.Register(registry.Declaration{
		ID:        "app.Shard",
		Namespace: registry.MustParsePath("shard"),
		Params: []registry.ParameterSpec{
			spec(t, "replicas", registry.KindInt, 2, "oneof=1 2 4"),
			spec(t, "ratio", registry.KindFloat, 0.5, "oneof=0.25 0.5 1"),
			spec(t, "mode", registry.KindString, "fast", "oneof=fast safe"),
		},
	})
	require.NoError(t, err)
	tree, err := namespace.Build(reg.All())
	require.NoError(t, err)

	res, err := NewDeriver().Derive(tree, "AppConfig")
	require.NoError(t, err)

	tests := []struct {
		name string
		enum []any
	}{
		{"replicas", []any{1, 2, 4}},
		{"ratio", []any{0.25, 0.5, 1.0}},
		{"mode", []any{"fast", "safe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf, ok := res.Document.Property("shard", tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.enum, leaf.Enum)
			assert.Contains(t, leaf.Enum, leaf.Default)
		})
	}

	_, err = res.Validator.Validate(map[string]any{"shard": map[string]any{"ratio": "0.25", "replicas": "4"}})
	assert.NoError(t, err)

	_, err = res.Validator.Validate(map[string]any{"shard": map[string]any{"ratio": 0.3}})
	var verr *terrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "shard.ratio", verr.Issues[0].Path)
	assert.Equal(t, "oneof", verr.Issues[0].Rule)
}

func TestDerive_NumericLists(t *testing.T) {
	reg := registry.New()
	_, err := reg.Register(registry.Declaration{
		ID:        "app.Net",
		Namespace: registry.MustParsePath("net"),
		Params: []registry.ParameterSpec{
			spec(t, "hidden_sizes", registry.KindIntList, []int{64, 32}, "min=1"),
			spec(t, "weights", registry.KindFloatList, []float64{0.5, 0.5}, ""),
			spec(t, "strides", registry.KindIntList, []int{1}, "oneof=1 2"),
		},
	})
	require.NoError(t, err)
	tree, err := namespace.Build(reg.All())
	require.NoError(t, err)

	res, err := NewDeriver().Derive(tree, "AppConfig")
	require.NoError(t, err)

	sizes, ok := res.Document.Property("net", "hidden_sizes")
	require.True(t, ok)
	assert.Equal(t, "array", sizes.Type)
	require.NotNil(t, sizes.Items)
	assert.Equal(t, "integer", sizes.Items.Type)
	assert.Equal(t, []int{64, 32}, sizes.Default)
	require.NotNil(t, sizes.MinItems)
	assert.Equal(t, 1, *sizes.MinItems)

	weights, ok := res.Document.Property("net", "weights")
	require.True(t, ok)
	assert.Equal(t, "number", weights.Items.Type)

	strides, ok := res.Document.Property("net", "strides")
	require.True(t, ok)
	assert.Equal(t, []any{1, 2}, strides.Enum)

	got, err := res.Validator.Validate(map[string]any{"net": map[string]any{
		"hidden_sizes": []any{128.0, "64"},
		"weights":      "0.2, 0.8",
		"strides":      []any{2, 1},
	}})
	require.NoError(t, err)
	net := got["net"].(map[string]any)
	assert.Equal(t, []int{128, 64}, net["hidden_sizes"])
	assert.Equal(t, []float64{0.2, 0.8}, net["weights"])
	assert.Equal(t, []int{2, 1}, net["strides"])

	failures := []struct {
		name  string
		value map[string]any
		rule  string
	}{
		{"fractional element", map[string]any{"hidden_sizes": []any{1.5}}, "type"},
		{"not a list", map[string]any{"weights": true}, "type"},
		{"empty", map[string]any{"hidden_sizes": []int{}}, "min"},
		{"element not a choice", map[string]any{"strides": []int{3}}, "oneof"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := res.Validator.Validate(map[string]any{"net": tt.value})
			var verr *terrors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.rule, verr.Issues[0].Rule)
		})
	}
}
