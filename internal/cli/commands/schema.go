package commands

import (
	"github.com/spf13/cobra"
)

func newSchemaCommand(a *app) *cobra.Command {
	var (
		sel    selection
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export the schema and defaults of one or more apps",
		Long: `Export the JSON Schema and the default values of every tunable function
tagged with one of the given apps.

Without --out, both documents are printed as one JSON object with "schema"
and "defaults" keys. With --out, <prefix>.schema.json and <prefix>.json
(or <prefix>.yaml) are written.`,
		Example: `  # Print the schema for the train app
  tunables schema --apps train

  # Write build/train.schema.json and build/train.yaml
  tunables schema --apps train --out build/train --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.compose(&sel)
			if err != nil {
				return err
			}
			if out == "" {
				return printModel(cmd.OutOrStdout(), m, false)
			}
			return a.writeModel(cmd, m, out, format)
		},
	}

	sel.addFlags(cmd, false)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output prefix for the schema and defaults files")
	cmd.Flags().StringVar(&format, "format", "json", "Defaults file format: json or yaml")
	_ = cmd.MarkFlagRequired("apps")

	return cmd
}
