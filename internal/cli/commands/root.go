package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/conduit-lang/tunables/internal/cli/config"
	"github.com/conduit-lang/tunables/internal/cli/ui"
	"github.com/conduit-lang/tunables/runtime/logging"
	"github.com/conduit-lang/tunables/runtime/registry"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Options wire the commands to the host program
type Options struct {
	// Name is the program name shown in usage, "tunables" when empty
	Name string
	// Registry holds the declarations, the process registry when nil
	Registry *registry.Registry
	// Settings overrides tunables.yml, mostly for tests
	Settings *config.Config
}

// app carries the persistent flag values shared by subcommands
type app struct {
	opts     Options
	settings *config.Config
	verbose  bool
	logLevel string
	noColor  bool
	ask      askFunc
}

func (a *app) registry() *registry.Registry {
	if a.opts.Registry != nil {
		return a.opts.Registry
	}
	return registry.Default()
}

// NewRootCommand creates the root command
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Name == "" {
		opts.Name = "tunables"
	}
	a := &app{opts: opts, ask: surveyAsk}

	rootCmd := &cobra.Command{
		Use:   opts.Name,
		Short: "Inspect and export the tunable parameters of " + opts.Name,
		Long: color.CyanString(`Tunable parameters for %s

Functions declare their parameters once, with defaults and constraints.
These commands compose them into a JSON Schema and a defaults file,
either by app tag or by following the calls made from an entrypoint.`, opts.Name),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newSchemaCommand(a))
	rootCmd.AddCommand(newAnalyzeCommand(a))
	rootCmd.AddCommand(newParamsCommand(a))
	rootCmd.AddCommand(newInitCommand(a))
	rootCmd.AddCommand(newValidateCommand(a))

	return rootCmd
}

func (a *app) setup() error {
	if a.noColor {
		color.NoColor = true
	}
	ui.Program = a.opts.Name

	a.settings = a.opts.Settings
	if a.settings == nil {
		settings, err := config.Load()
		if err != nil {
			return err
		}
		a.settings = settings
	}

	level := a.logLevel
	if level == "" && !a.verbose {
		level = a.settings.LogLevel
	}
	logger, err := logging.NewCLILogger(a.verbose, level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logging.SetLogger(logger)
	return nil
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			table := ui.NewKeyValueTable(cmd.OutOrStdout(), color.NoColor)
			table.AddRow("Version", Version)
			table.AddRow("Git commit", GitCommit)
			table.AddRow("Build date", BuildDate)
			table.AddRow("Go version", goVer)
			table.Render()
		},
	}
}

// Execute runs root with args and renders any error to its error stream.
// A nil args uses os.Args.
func Execute(root *cobra.Command, args []string) error {
	if args != nil {
		root.SetArgs(args)
	}
	if err := root.Execute(); err != nil {
		fmt.Fprint(root.ErrOrStderr(), Render(err, color.NoColor))
		return err
	}
	return nil
}

// Render formats a command error for the terminal
func Render(err error, noColor bool) string {
	var unknown *UnknownAppError
	if errors.As(err, &unknown) {
		return ui.UnknownAppError(unknown.Tag, unknown.Known, noColor)
	}
	var entry *entryError
	if errors.As(err, &entry) {
		return ui.Describe(entry.err, entry.candidates, noColor)
	}
	return ui.Describe(err, nil, noColor)
}
