// Package cli mounts the tunables commands in an application binary.
//
// The binary links the packages that declare its tunable functions, so
// the process registry is complete by the time main runs:
//
//	func main() {
//		cli.Main(cli.Options{Name: "pipeline"},
//			cli.RunSpec{Use: "train", Apps: []string{"train"}, Run: runTrain},
//		)
//	}
package cli

import (
	"fmt"
	"os"

	"github.com/conduit-lang/tunables/internal/cli/commands"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Options configure the root command.
type Options = commands.Options

// RunSpec describes a command that runs a function under a composed
// configuration.
type RunSpec = commands.RunSpec

// NewRootCommand returns the root command with the schema, analyze,
// params, init and version subcommands, plus one subcommand per run spec.
// Run specs without a registry use opts.Registry.
func NewRootCommand(opts Options, runs ...RunSpec) (*cobra.Command, error) {
	root := commands.NewRootCommand(opts)
	for _, spec := range runs {
		if spec.Registry == nil {
			spec.Registry = opts.Registry
		}
		cmd, err := commands.NewRunCommand(spec)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", spec.Use, err)
		}
		root.AddCommand(cmd)
	}
	return root, nil
}

// RunCommand builds a single run command.
func RunCommand(spec RunSpec) (*cobra.Command, error) {
	return commands.NewRunCommand(spec)
}

// Execute builds the root command and runs it with args. Errors are
// rendered to stderr before being returned.
func Execute(opts Options, args []string, runs ...RunSpec) error {
	root, err := NewRootCommand(opts, runs...)
	if err != nil {
		fmt.Fprint(os.Stderr, commands.Render(err, color.NoColor))
		return err
	}
	return commands.Execute(root, args)
}

// Main runs the command line and exits with status 1 on error.
func Main(opts Options, runs ...RunSpec) {
	if err := Execute(opts, os.Args[1:], runs...); err != nil {
		os.Exit(1)
	}
}
