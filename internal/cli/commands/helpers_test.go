package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/conduit-lang/tunables/internal/cli/config"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/stretchr/testify/require"
)

var sources = map[string]string{
	"go.mod": "module example.com/app\n\ngo 1.23\n",
	"pipeline/pipeline.go": `package pipeline

import "example.com/app/model"

func Train() { model.Build() }

func Serve() { model.Build() }

func TrainMain() { Train() }
`,
	"model/model.go": "package model\n\nfunc Build() {}\n",
}

func spec(t *testing.T, name string, kind registry.Kind, def any, rules string) registry.ParameterSpec {
	t.Helper()
	p := registry.ParameterSpec{Name: name, Kind: kind, Default: def, Description: name + " setting"}
	require.NoError(t, p.ApplyRules(rules))
	if p.Required {
		p.Default = nil
	}
	return p
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	decls := []registry.Declaration{
		{
			ID:        "example.com/app/model.Build",
			Namespace: registry.MustParsePath("model"),
			Apps:      []string{"train", "serve"},
			Params: []registry.ParameterSpec{
				spec(t, "layers", registry.KindInt, 2, "min=1"),
				spec(t, "activation", registry.KindString, "relu", "oneof=relu tanh"),
			},
		},
		{
			ID:        "example.com/app/pipeline.Train",
			Namespace: registry.MustParsePath("train"),
			Apps:      []string{"train"},
			Params: []registry.ParameterSpec{
				spec(t, "epochs", registry.KindInt, 10, "min=1"),
				spec(t, "lr", registry.KindFloat, 0.01, "gt=0"),
				spec(t, "shuffle", registry.KindBool, true, ""),
				spec(t, "tags", registry.KindStringList, []string{"base"}, ""),
			},
		},
		{
			ID:        "example.com/app/pipeline.Serve",
			Namespace: registry.MustParsePath("serve"),
			Apps:      []string{"serve"},
			Params: []registry.ParameterSpec{
				spec(t, "port", registry.KindInt, nil, "required"),
			},
		},
	}
	for _, d := range decls {
		_, err := reg.Register(d)
		require.NoError(t, err)
	}
	return reg
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

type fixture struct {
	reg      *registry.Registry
	root     string
	settings *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		reg:  testRegistry(t),
		root: writeTree(t, sources),
		settings: &config.Config{
			SourceRoot: ".",
			Output:     config.OutConfig{Dir: t.TempDir(), Format: "json"},
			LogLevel:   "error",
		},
	}
}

func (f *fixture) run(args ...string) (string, error) {
	cmd := NewRootCommand(Options{Registry: f.reg, Settings: f.settings})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

// answer replaces the survey prompts. Unanswered prompts take their
// default.
func answer(t *testing.T, answers map[string]any) {
	t.Helper()
	old := surveyAsk
	t.Cleanup(func() { surveyAsk = old })

	surveyAsk = func(p survey.Prompt, response any, opts ...survey.AskOpt) error {
		switch prompt := p.(type) {
		case *survey.Confirm:
			v, ok := answers[prompt.Message].(bool)
			if !ok {
				v = prompt.Default
			}
			*response.(*bool) = v
		case *survey.Select:
			v, ok := answers[prompt.Message].(string)
			if !ok {
				v, _ = prompt.Default.(string)
			}
			*response.(*string) = v
		case *survey.Input:
			v, ok := answers[prompt.Message].(string)
			if !ok {
				v = prompt.Default
			}
			*response.(*string) = v
		default:
			t.Fatalf("unexpected prompt %T", p)
		}
		return nil
	}
}
