package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/conduit-lang/tunables/internal/cli/ui"
	"github.com/conduit-lang/tunables/runtime/compose"
	"github.com/conduit-lang/tunables/runtime/namespace"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/fatih/color"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// askFunc matches survey.AskOne so tests can answer prompts
type askFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

var surveyAsk askFunc = survey.AskOne

func newInitCommand(a *app) *cobra.Command {
	var (
		sel         selection
		out         string
		useDefaults bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file interactively",
		Long: `Prompt for every parameter of the selected app and write the answers to a
config file. The file format follows the extension: .json writes JSON,
anything else writes YAML.`,
		Example: `  # Answer one prompt per parameter
  tunables init --apps train --out train.yaml

  # Write the defaults without prompting
  tunables init --apps train --defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			}

			m, err := a.compose(&sel)
			if err != nil {
				return err
			}

			values := m.Defaults()
			if !useDefaults {
				fmt.Fprintln(cmd.OutOrStdout(), color.CyanString("Configuring %s", m.Title()))
				for _, leaf := range m.Leaves() {
					v, err := a.prompt(leaf)
					if err != nil {
						return err
					}
					setValue(values, leaf.Path, v)
				}
			}

			cfg, err := m.NewConfig(values)
			if err != nil {
				return err
			}
			if err := writeConfig(out, cfg); err != nil {
				return err
			}

			ui.WriteSuccess(cmd.OutOrStdout(), "wrote "+out, color.NoColor)
			return nil
		},
	}

	sel.addFlags(cmd, true)
	cmd.Flags().StringVarP(&out, "out", "o", "config.yaml", "Config file to write")
	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Accept every default without prompting")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

// prompt asks for one leaf. Answers come back as the prompt's native type
// and are coerced when the config is validated.
func (a *app) prompt(leaf namespace.Leaf) (any, error) {
	p := leaf.Spec
	message := leaf.Key()
	help := p.Description

	switch {
	case p.Kind == registry.KindBool:
		answer := cast.ToBool(p.Default)
		prompt := &survey.Confirm{Message: message, Default: answer, Help: help}
		if err := a.ask(prompt, &answer); err != nil {
			return nil, err
		}
		return answer, nil

	case len(p.Enum) > 0:
		prompt := &survey.Select{Message: message, Options: p.Enum, Help: help}
		if def := cast.ToString(p.Default); def != "" {
			prompt.Default = def
		}
		var answer string
		if err := a.ask(prompt, &answer); err != nil {
			return nil, err
		}
		return answer, nil
	}

	def := cast.ToString(p.Default)
	if list, ok := joinList(p.Default); ok {
		def = list
	}
	if p.Kind.IsList() {
		help = strings.TrimSpace(help + " (comma separated)")
	}

	prompt := &survey.Input{Message: message, Default: def, Help: help}
	var opts []survey.AskOpt
	if p.Required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}
	var answer string
	if err := a.ask(prompt, &answer, opts...); err != nil {
		return nil, err
	}
	return answer, nil
}

func setValue(values map[string]any, path registry.Path, v any) {
	section := values
	for _, seg := range path[:len(path)-1] {
		child, ok := section[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			section[seg] = child
		}
		section = child
	}
	section[path[len(path)-1]] = v
}

func writeConfig(path string, cfg *compose.Config) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = cfg.JSON()
	} else {
		data, err = yaml.Marshal(cfg.Values())
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
