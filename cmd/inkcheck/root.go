package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/okian/inkcheck/internal/config"
	"github.com/okian/inkcheck/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "inkcheck",
		Short:         "Behavioral authorship-risk scoring tools",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Logs go to stderr so stdout stays machine readable.
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(opts.logLevel)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (defaults to $"+config.EnvConfig+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newScoreCmd(opts),
		newReplayCmd(),
		newConfigCmd(opts),
	)
	return root
}

// load resolves the effective configuration the same way the server does.
func (o *rootOptions) load(ctx context.Context) (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFrom(ctx, o.configPath)
	}
	return config.Load(ctx)
}
