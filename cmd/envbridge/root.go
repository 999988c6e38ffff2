package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relabs-tech/envbridge/internal/config"
	"github.com/relabs-tech/envbridge/internal/logging"
)

var (
	configPath = "envbridge_config.txt"
	logLevel   = ""
	logFormat  = ""
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "envbridge",
		Short: "envbridge publishes BME280 readings to an MQTT broker",
		Long: `envbridge samples a BME280 over I2C, compensates the raw readings and
publishes temperature, pressure and humidity as retained MQTT messages.
Link and broker failures are retried forever and reported on a status LED.`,
		SilenceUsage: true,
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&configPath, "config", "c", configPath, "config file path (KEY=VALUE); empty to use only ENVBRIDGE_* variables")
	globalFlags.StringVarP(&logLevel, "log-level", "l", "", "override LOG_LEVEL (debug, info, warn, error)")
	globalFlags.StringVar(&logFormat, "log-format", "", "override LOG_FORMAT (text, json)")

	cmd.AddCommand(
		NewRunCommand(),
		NewConsoleCommand(),
		NewCalibrationCommand(),
		NewRegistersCommand(),
		NewResetCommand(),
		NewCompensateCommand(),
	)
	return cmd
}

// setup loads the configuration, applies the flag overrides and builds the
// logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		if cfg.LogLevel, err = config.ParseLogLevel(logLevel); err != nil {
			return nil, nil, err
		}
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat, "envbridge")
	slog.SetDefault(log)
	return cfg, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
