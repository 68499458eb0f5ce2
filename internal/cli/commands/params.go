package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/tunables/internal/cli/flags"
	"github.com/conduit-lang/tunables/internal/cli/ui"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/fatih/color"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

func newParamsCommand(a *app) *cobra.Command {
	var sel selection

	cmd := &cobra.Command{
		Use:   "params",
		Short: "List the parameters of an app or entrypoint",
		Example: `  tunables params --apps train
  tunables params --entry example.com/app/pipeline.TrainMain`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.compose(&sel)
			if err != nil {
				return err
			}

			leaves := m.Leaves()
			if len(leaves) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("No tunable parameters."))
				return nil
			}

			table := ui.NewTable(cmd.OutOrStdout(), color.NoColor, "FLAG", "TYPE", "DEFAULT", "CONSTRAINTS", "DESCRIPTION")
			for _, leaf := range leaves {
				table.AddRow(
					"--"+flags.Name(leaf),
					string(leaf.Spec.Kind),
					defaultText(leaf.Spec),
					constraintText(leaf.Spec),
					leaf.Spec.Description,
				)
			}
			table.Render()
			return nil
		},
	}

	sel.addFlags(cmd, true)
	return cmd
}

func defaultText(p registry.ParameterSpec) string {
	if p.Required {
		return "(required)"
	}
	if list, ok := joinList(p.Default); ok {
		return "[" + list + "]"
	}
	return cast.ToString(p.Default)
}

// joinList renders a list default as comma separated values.
func joinList(v any) (string, bool) {
	var items []string
	switch t := v.(type) {
	case []string:
		items = t
	case []int:
		for _, x := range t {
			items = append(items, cast.ToString(x))
		}
	case []float64:
		for _, x := range t {
			items = append(items, cast.ToString(x))
		}
	default:
		return "", false
	}
	return strings.Join(items, ","), true
}

func constraintText(p registry.ParameterSpec) string {
	var parts []string
	if len(p.Enum) > 0 {
		parts = append(parts, "one of "+strings.Join(p.Enum, "|"))
	}
	if p.Min != nil {
		op := ">="
		if p.ExclusiveMin {
			op = ">"
		}
		parts = append(parts, op+bound(p, *p.Min))
	}
	if p.Max != nil {
		op := "<="
		if p.ExclusiveMax {
			op = "<"
		}
		parts = append(parts, op+bound(p, *p.Max))
	}
	return strings.Join(parts, " ")
}

func bound(p registry.ParameterSpec, v float64) string {
	if p.Kind == registry.KindDuration {
		return time.Duration(v * float64(time.Second)).String()
	}
	return cast.ToString(v)
}
