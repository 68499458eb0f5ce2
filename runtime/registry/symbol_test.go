package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sampleReceiver struct{}

func (sampleReceiver) Value()    {}
func (*sampleReceiver) Pointer() {}

func sampleFunc() {}

func TestQualifiedNameOf(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"example.com/app/pipeline.Train", "example.com/app/pipeline.Train"},
		{"example.com/app/pipeline.(*Trainer).Run", "example.com/app/pipeline.Trainer.Run"},
		{"example.com/app/pipeline.Trainer.Run-fm", "example.com/app/pipeline.Trainer.Run"},
		{"example.com/app/pipeline.Map[...]", "example.com/app/pipeline.Map"},
		{"example.com/app/pipeline.(*Box[...]).Get", "example.com/app/pipeline.Box.Get"},
		{"main.TrainMain", "main.TrainMain"},
		{"example.com/app/v2.Serve", "example.com/app/v2.Serve"},
		{"gopkg.in/yaml%2ev3.Marshal", "gopkg.in/yaml.v3.Marshal"},
		{"example.com/svc%2ev2.(*Client).Do", "example.com/svc.v2.Client.Do"},
		{"example.com/config%2ego.Load-fm", "example.com/config.go.Load"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, QualifiedNameOf(tt.symbol), tt.symbol)
	}
}

func TestSplitQualifiedName(t *testing.T) {
	pkg, name := SplitQualifiedName("example.com/app/pipeline.Trainer.Run")
	assert.Equal(t, "example.com/app/pipeline", pkg)
	assert.Equal(t, "Trainer.Run", name)

	pkg, name = SplitQualifiedName("main.Run")
	assert.Equal(t, "main", pkg)
	assert.Equal(t, "Run", name)
}

func TestSymbolOf(t *testing.T) {
	id, loc, err := SymbolOf(sampleFunc)
	require.NoError(t, err)
	assert.Equal(t, FuncID("github.com/conduit-lang/tunables/runtime/registry.sampleFunc"), id)
	assert.Equal(t, string(id), loc.QualifiedName)
	assert.True(t, strings.HasSuffix(loc.File, "symbol_test.go"), loc.File)
	assert.Greater(t, loc.Line, 0)

	_, loc, err = SymbolOf((*sampleReceiver).Pointer)
	require.NoError(t, err)
	assert.Equal(t, "github.com/conduit-lang/tunables/runtime/registry.sampleReceiver.Pointer", loc.QualifiedName)

	var recv sampleReceiver
	_, loc, err = SymbolOf(recv.Value)
	require.NoError(t, err)
	assert.Equal(t, "github.com/conduit-lang/tunables/runtime/registry.sampleReceiver.Value", loc.QualifiedName)

	id, loc, err = SymbolOf(yaml.Marshal)
	require.NoError(t, err)
	assert.Equal(t, FuncID("gopkg.in/yaml%2ev3.Marshal"), id)
	assert.Equal(t, "gopkg.in/yaml.v3.Marshal", loc.QualifiedName)
	pkg, name := SplitQualifiedName(string(id))
	assert.Equal(t, "gopkg.in/yaml.v3", pkg)
	assert.Equal(t, "Marshal", name)

	_, _, err = SymbolOf(42)
	assert.Error(t, err)

	var nilFn func()
	_, _, err = SymbolOf(nilFn)
	assert.Error(t, err)
}
