package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type printed struct {
	Schema struct {
		Schema     string                     `json:"$schema"`
		Properties map[string]json.RawMessage `json:"properties"`
	} `json:"schema"`
	Defaults map[string]map[string]any `json:"defaults"`
	Touched  []string                  `json:"touched"`
}

func decode(t *testing.T, out string) printed {
	t.Helper()
	var p printed
	require.NoError(t, json.Unmarshal([]byte(out), &p), out)
	return p
}

func TestSchemaCommand_Print(t *testing.T) {
	f := newFixture(t)

	out, err := f.run("schema", "--apps", "train")
	require.NoError(t, err)

	p := decode(t, out)
	assert.NotEmpty(t, p.Schema.Schema)
	assert.Contains(t, p.Schema.Properties, "train")
	assert.Contains(t, p.Schema.Properties, "model")
	assert.NotContains(t, p.Schema.Properties, "serve")

	assert.Equal(t, float64(10), p.Defaults["train"]["epochs"])
	assert.Equal(t, "relu", p.Defaults["model"]["activation"])
	assert.Empty(t, p.Touched)
}

func TestSchemaCommand_RequiredNamespaceOmittedFromDefaults(t *testing.T) {
	f := newFixture(t)

	out, err := f.run("schema", "--apps", "serve")
	require.NoError(t, err)

	p := decode(t, out)
	assert.Contains(t, p.Schema.Properties, "serve")
	assert.NotContains(t, p.Defaults, "serve")
	assert.Contains(t, p.Defaults, "model")
}

func TestSchemaCommand_UnknownApp(t *testing.T) {
	f := newFixture(t)

	_, err := f.run("schema", "--apps", "trian")
	var unknown *UnknownAppError
	require.True(t, errors.As(err, &unknown), "got %v", err)
	assert.Equal(t, "trian", unknown.Tag)
	assert.Equal(t, []string{"serve", "train"}, unknown.Known)
	assert.Contains(t, Render(err, true), "train")
}

func TestSchemaCommand_RequiresApps(t *testing.T) {
	f := newFixture(t)
	_, err := f.run("schema")
	require.Error(t, err)
}

func TestSchemaCommand_WriteArtifacts(t *testing.T) {
	f := newFixture(t)

	_, err := f.run("schema", "--apps", "train", "--out", "train", "--format", "yaml")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.settings.Output.Dir, "train.schema.json"))
	assert.FileExists(t, filepath.Join(f.settings.Output.Dir, "train.yaml"))
}

func TestSchemaCommand_WriteArtifactsToPath(t *testing.T) {
	f := newFixture(t)
	prefix := filepath.Join(t.TempDir(), "out", "train")

	_, err := f.run("schema", "--apps", "train", "--out", prefix)
	require.NoError(t, err)

	assert.FileExists(t, prefix+".schema.json")
	data, err := os.ReadFile(prefix + ".json")
	require.NoError(t, err)

	var defaults map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &defaults))
	assert.Equal(t, true, defaults["train"]["shuffle"])
}

func TestAnalyzeCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run("analyze", "--entry", "example.com/app/pipeline.TrainMain", "--source", f.root)
	require.NoError(t, err)

	p := decode(t, out)
	assert.Contains(t, p.Defaults, "train")
	assert.Contains(t, p.Defaults, "model")
	assert.NotContains(t, p.Schema.Properties, "serve")
	assert.Contains(t, p.Touched, "example.com/app/model.Build")
	assert.Contains(t, p.Touched, "example.com/app/pipeline.Train")
}

func TestAnalyzeCommand_SourceFromSettings(t *testing.T) {
	f := newFixture(t)
	f.settings.SourceRoot = f.root

	out, err := f.run("analyze", "--entry", "example.com/app/pipeline.Serve")
	require.NoError(t, err)

	p := decode(t, out)
	assert.Contains(t, p.Schema.Properties, "serve")
	assert.Contains(t, p.Schema.Properties, "model")
	assert.NotContains(t, p.Schema.Properties, "train")
}

func TestAnalyzeCommand_UnknownEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.run("analyze", "--entry", "example.com/app/pipeline.TranMain", "--source", f.root)
	var unresolved *terrors.UnresolvedEntrypointError
	require.True(t, errors.As(err, &unresolved), "got %v", err)
	assert.Contains(t, Render(err, true), "example.com/app/pipeline.TrainMain")
}

func TestParamsCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run("params", "--apps", "train,serve")
	require.NoError(t, err)

	assert.Contains(t, out, "FLAG")
	assert.Contains(t, out, "--train.epochs")
	assert.Contains(t, out, "--serve.port")
	assert.Contains(t, out, "(required)")
	assert.Contains(t, out, "one of relu|tanh")
	assert.Contains(t, out, ">=1")
	assert.Contains(t, out, ">0")
	assert.Contains(t, out, "[base]")
}

func TestParamsCommand_Entry(t *testing.T) {
	f := newFixture(t)

	out, err := f.run("params", "--entry", "example.com/app/pipeline.Serve", "--source", f.root)
	require.NoError(t, err)
	assert.Contains(t, out, "--serve.port")
	assert.NotContains(t, out, "--train.epochs")
}

func TestParamsCommand_Selection(t *testing.T) {
	f := newFixture(t)

	_, err := f.run("params")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")

	_, err = f.run("params", "--apps", "train", "--entry", "example.com/app/pipeline.Train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestAnalyzeCommand_WatchRequiresOut(t *testing.T) {
	f := newFixture(t)
	_, err := f.run("analyze", "--entry", "example.com/app/pipeline.TrainMain", "--source", f.root, "--watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out")
}

func TestAnalyzeCommand_Watch(t *testing.T) {
	f := newFixture(t)
	prefix := filepath.Join(t.TempDir(), "main")
	schemaPath := prefix + ".schema.json"

	cmd := NewRootCommand(Options{Registry: f.reg, Settings: f.settings})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"analyze", "--entry", "example.com/app/pipeline.TrainMain", "--source", f.root, "--out", prefix, "--watch", "--no-color"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	schemaHas := func(ns string) bool {
		data, err := os.ReadFile(schemaPath)
		return err == nil && strings.Contains(string(data), `"`+ns+`"`)
	}
	require.Eventually(t, func() bool { return schemaHas("train") }, 5*time.Second, 20*time.Millisecond)
	assert.False(t, schemaHas("serve"))

	// Let the watcher register the directories before editing.
	time.Sleep(200 * time.Millisecond)
	source := strings.Replace(sources["pipeline/pipeline.go"], "func TrainMain() { Train() }", "func TrainMain() { Train(); Serve() }", 1)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "pipeline", "pipeline.go"), []byte(source), 0o644))

	assert.Eventually(t, func() bool { return schemaHas("serve") }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("analyze --watch did not stop")
	}
}
