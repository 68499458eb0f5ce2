package commands

import (
	"fmt"

	"github.com/conduit-lang/tunables/internal/artifact"
	"github.com/spf13/cobra"
)

func newValidateCommand(a *app) *cobra.Command {
	var (
		sel        selection
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file against a composed model",
		Long: `Load a JSON, YAML or TOML config file, fill in the defaults of the model
composed from --apps or --entry, and validate the result.

The normalized configuration is printed as JSON. Invalid values are reported
with their dotted key and the rule they broke.`,
		Example: `  # Validate a config for the train app
  tunables validate --apps train --config config.yaml

  # Validate against what an entrypoint reaches
  tunables validate --entry example.com/app/pipeline.TrainMain --config config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.compose(&sel)
			if err != nil {
				return err
			}
			cfg, err := artifact.LoadConfig(m, configFile)
			if err != nil {
				return err
			}
			data, err := cfg.JSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	sel.addFlags(cmd, true)
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file to validate")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
