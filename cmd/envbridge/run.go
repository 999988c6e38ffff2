package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/envbridge/internal/app"
)

func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the telemetry bridge until interrupted",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return app.RunBridge(ctx, cfg, log)
		},
	}
}

func NewConsoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Subscribe to the telemetry topics and print received values",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return app.RunConsoleMQTT(ctx, cfg, log, os.Stdout)
		},
	}
}
