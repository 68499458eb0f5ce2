package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/conduit-lang/tunables/internal/watch"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var (
		sel       selection
		out       string
		format    string
		watchMode bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compose the parameters reachable from an entrypoint",
		Long: `Statically follow the calls made from an entrypoint and export the schema
and defaults of every tunable function it reaches.

The source tree is parsed, never executed. Calls through interfaces,
function values and reflection are not followed, so a function reached only
that way is missing from the result.`,
		Example: `  # Print schema, defaults and the functions visited
  tunables analyze --entry example.com/app/pipeline.TrainMain --source .

  # Write artifacts
  tunables analyze --entry example.com/app/pipeline.TrainMain --out build/train

  # Rewrite the artifacts whenever a source file changes
  tunables analyze --entry example.com/app/pipeline.TrainMain --out build/train --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watchMode && out == "" {
				return errors.New("--watch requires --out")
			}

			m, err := a.compose(&sel)
			if err != nil {
				return err
			}
			if out == "" {
				return printModel(cmd.OutOrStdout(), m, true)
			}
			if err := a.writeModel(cmd, m, out, format); err != nil {
				return err
			}
			if !watchMode {
				return nil
			}
			return a.watchEntry(cmd, &sel, out, format)
		},
	}

	cmd.Flags().StringVar(&sel.entry, "entry", "", "Qualified name of the entrypoint, e.g. example.com/app/pipeline.Train")
	cmd.Flags().StringVar(&sel.source, "source", "", "Source root to analyze (default: source_root from tunables.yml)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output prefix for the schema and defaults files")
	cmd.Flags().StringVar(&format, "format", "json", "Defaults file format: json or yaml")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Keep running and rewrite the artifacts when sources change")
	_ = cmd.MarkFlagRequired("entry")

	return cmd
}

// watchEntry recomposes and rewrites the artifacts after every batch of
// source changes until the command's context is cancelled or the process
// is interrupted. Composition errors are reported and watching goes on.
func (a *app) watchEntry(cmd *cobra.Command, sel *selection, out, format string) error {
	source := sel.source
	if source == "" {
		source = a.settings.SourceRoot
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sw, err := watch.NewSourceWatcher(source, watch.DefaultDelay, func(files []string) error {
		m, err := a.compose(sel)
		if err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), Render(err, color.NoColor))
			return nil
		}
		return a.writeModel(cmd, m, out, format)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), color.CyanString("Watching %s for changes (Ctrl+C to stop)", source))
	return sw.Run(ctx)
}
