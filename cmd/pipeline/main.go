package main

import (
	"context"
	"fmt"

	"github.com/conduit-lang/tunables/examples/pipeline"
	"github.com/conduit-lang/tunables/internal/cli/commands"
	"github.com/conduit-lang/tunables/pkg/cli"
	"github.com/conduit-lang/tunables/runtime/compose"
	"github.com/conduit-lang/tunables/runtime/logging"
	"go.uber.org/zap"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	commands.Version = Version
	commands.GitCommit = GitCommit
	commands.BuildDate = BuildDate

	cli.Main(cli.Options{Name: "pipeline"},
		cli.RunSpec{
			Use:   "train",
			Short: "Preprocess the data, build the model and train it",
			Apps:  []string{"train"},
			Run: func(ctx context.Context, cfg *compose.Config) error {
				run := pipeline.TrainMain(ctx)
				fmt.Print(pipeline.Summary(run))
				return nil
			},
		},
		cli.RunSpec{
			Use:   "serve",
			Short: "Build the model and configure the prediction API",
			Apps:  []string{"serve"},
			Run: func(ctx context.Context, cfg *compose.Config) error {
				srv, err := pipeline.ServeMain(ctx)
				if err != nil {
					return err
				}
				logging.Logger().Info("api configured",
					zap.String("addr", srv.Addr),
					zap.Duration("timeout", srv.Timeout),
					zap.Stringer("model", srv.Model),
				)
				fmt.Printf("listening on %s (model %s)\n", srv.Addr, srv.Model)
				return nil
			},
		},
	)
}
