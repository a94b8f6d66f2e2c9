package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/otelwasm/mobilert/loader"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "mobilert",
		Short:         "Run methods of WebAssembly models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "model configuration file (YAML)")

	cmd.AddCommand(
		newMethodsCommand(opts),
		newRunCommand(opts),
		newSymbolicateCommand(),
	)
	return cmd
}

// loadModel reads the configuration, applies mutate and loads the model.
// The returned function shuts the model down and syncs the logger.
func loadModel(ctx context.Context, opts *rootOptions, mutate func(*loader.Config)) (*loader.Model, func(), error) {
	cfg, err := loader.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Default()

	logger, err := loader.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	model, err := loader.Load(ctx, cfg, loader.WithLogger(logger))
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.CloseTimeout)
		defer cancel()
		if err := model.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down model", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return model, cleanup, nil
}
