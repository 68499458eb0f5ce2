package commands

import (
	"errors"
	"testing"

	terrors "github.com/conduit-lang/tunables/runtime/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand(Options{})

	assert.Equal(t, "tunables", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "schema", "analyze", "params", "init"} {
		assert.Contains(t, names, expected)
	}
}

func TestNewRootCommand_Name(t *testing.T) {
	cmd := NewRootCommand(Options{Name: "pipeline"})
	assert.Equal(t, "pipeline", cmd.Use)
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	t.Cleanup(func() { Version, GitCommit = "dev", "unknown" })

	f := newFixture(t)
	out, err := f.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0.0-test")
	assert.Contains(t, out, "abc123")
}

func TestSetup_InvalidLogLevel(t *testing.T) {
	f := newFixture(t)
	_, err := f.run("version", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRender(t *testing.T) {
	t.Run("unknown app", func(t *testing.T) {
		err := &UnknownAppError{Tag: "trian", Known: []string{"serve", "train"}}
		out := Render(err, true)
		assert.Contains(t, out, "trian")
		assert.Contains(t, out, "train")
	})

	t.Run("entry error", func(t *testing.T) {
		err := &entryError{
			err:        &terrors.UnresolvedEntrypointError{Entry: "app.Tran", Reason: "no source"},
			candidates: []string{"app.Train", "app.Serve"},
		}
		out := Render(err, true)
		assert.Contains(t, out, "app.Train")
		assert.NotContains(t, out, "app.Serve")

		var unresolved *terrors.UnresolvedEntrypointError
		assert.True(t, errors.As(err, &unresolved))
	})

	t.Run("plain", func(t *testing.T) {
		out := Render(errors.New("boom"), true)
		assert.Contains(t, out, "boom")
	})
}
