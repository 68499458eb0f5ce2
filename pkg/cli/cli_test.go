package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/conduit-lang/tunables/internal/cli/config"
	"github.com/conduit-lang/tunables/pkg/tunable"
	"github.com/conduit-lang/tunables/runtime/compose"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fitParams struct {
	Steps int `validate:"min=1"`
}

func fit(ctx context.Context) {}

func TestNewRootCommand(t *testing.T) {
	reg := registry.New()
	fitTunable, err := tunable.Declare(fit, "fit", fitParams{Steps: 5}, tunable.Apps("fit"), tunable.InRegistry(reg))
	require.NoError(t, err)

	var steps int
	opts := Options{
		Name:     "demo",
		Registry: reg,
		Settings: &config.Config{SourceRoot: ".", Output: config.OutConfig{Format: "json"}, LogLevel: "error"},
	}
	root, err := NewRootCommand(opts, RunSpec{
		Use:  "fit",
		Apps: []string{"fit"},
		Run: func(ctx context.Context, cfg *compose.Config) error {
			steps = fitTunable.Params(ctx).Steps
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "demo", root.Use)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"fit", "--fit.steps", "9"})
	require.NoError(t, root.Execute())
	assert.Equal(t, 9, steps)
}

func TestNewRootCommand_InvalidRun(t *testing.T) {
	_, err := NewRootCommand(Options{Registry: registry.New()}, RunSpec{Use: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `command "broken"`)
}
