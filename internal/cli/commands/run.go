package commands

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/conduit-lang/tunables/compiler/callgraph"
	"github.com/conduit-lang/tunables/internal/cli/flags"
	"github.com/conduit-lang/tunables/runtime/compose"
	"github.com/conduit-lang/tunables/runtime/inject"
	"github.com/conduit-lang/tunables/runtime/logging"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunSpec describes a command that runs a function with a composed
// configuration active.
type RunSpec struct {
	Use   string
	Short string

	// Apps selects declarations by tag. Exactly one of Apps and Entry is set.
	Apps []string
	// Entry is the entrypoint, either a function value or its qualified
	// name. Its source is analyzed under SourceRoot.
	Entry      any
	SourceRoot string

	// Registry defaults to the process registry.
	Registry *registry.Registry

	// Run is called inside the injection scope.
	Run func(ctx context.Context, cfg *compose.Config) error
}

// NewRunCommand composes the model for spec, registers one flag per
// parameter and returns a command that merges flags, --config and the
// defaults before calling spec.Run.
func NewRunCommand(spec RunSpec) (*cobra.Command, error) {
	if spec.Run == nil {
		return nil, errors.New("run command needs a Run function")
	}

	m, err := spec.model()
	if err != nil {
		return nil, err
	}

	var (
		configFile  string
		printConfig bool
	)

	cmd := &cobra.Command{
		Use:          spec.Use,
		Short:        spec.Short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Merge(m, cmd.Flags(), configFile)
			if err != nil {
				return err
			}

			if printConfig {
				data, err := cfg.JSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			logging.Named("run").Info("running",
				zap.String("command", cmd.Name()),
				zap.String("model", m.Title()),
			)
			return inject.With(cmd.Context(), cfg, func(ctx context.Context) error {
				return spec.Run(ctx, cfg)
			})
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (json, yaml or toml)")
	cmd.Flags().BoolVar(&printConfig, "print-config", false, "Print the merged configuration and exit")
	if err := flags.AddFlags(cmd.Flags(), m); err != nil {
		return nil, err
	}

	return cmd, nil
}

func (spec RunSpec) model() (*compose.Model, error) {
	reg := spec.Registry
	if reg == nil {
		reg = registry.Default()
	}

	switch {
	case spec.Entry != nil && len(spec.Apps) > 0:
		return nil, errors.New("run command takes Apps or Entry, not both")
	case len(spec.Apps) > 0:
		return compose.New(reg, nil).ComposeByTags(spec.Apps...)
	case spec.Entry == nil:
		return nil, errors.New("run command needs Apps or Entry")
	}

	root := spec.SourceRoot
	if root == "" {
		root = "."
	}
	ix, err := callgraph.LoadIndex(root)
	if err != nil {
		return nil, err
	}
	c := compose.New(reg, callgraph.NewResolver(reg, ix))

	if name, ok := spec.Entry.(string); ok {
		id := registry.FuncID(name)
		if declared, ok := reg.ResolveIdentity(name); ok {
			id = declared
		}
		return c.ComposeByEntry(id)
	}
	if reflect.TypeOf(spec.Entry).Kind() != reflect.Func {
		return nil, fmt.Errorf("run command entry must be a function or a qualified name, got %T", spec.Entry)
	}
	return c.ComposeByEntryFunc(spec.Entry)
}
