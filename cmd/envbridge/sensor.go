package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/envbridge/internal/app"
	"github.com/relabs-tech/envbridge/internal/bme280"
	"github.com/relabs-tech/envbridge/internal/config"
	"github.com/relabs-tech/envbridge/internal/sensors"
)

// withDevice opens the configured bus and hands the raw BME280 device to fn.
func withDevice(fn func(cfg *config.Config, log *slog.Logger, dev *bme280.Device) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	bus, err := sensors.OpenBus(cfg.BME280I2CBus)
	if err != nil {
		return err
	}
	defer bus.Close()
	return fn(cfg, log, bme280.New(&i2c.Dev{Bus: bus, Addr: cfg.BME280I2CAddr}))
}

func NewCalibrationCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "calibration",
		Aliases: []string{"cal"},
		Short:   "Read and print the sensor's calibration coefficients",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withDevice(func(_ *config.Config, _ *slog.Logger, dev *bme280.Device) error {
				cal, err := dev.Calibration()
				if err != nil {
					return fmt.Errorf("failed to read calibration: %w", err)
				}
				app.PrintCalibration(os.Stdout, cal)
				return nil
			})
		},
	}
}

func NewRegistersCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "registers",
		Aliases: []string{"regs"},
		Short:   "Dump the BME280 register map",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withDevice(func(_ *config.Config, _ *slog.Logger, dev *bme280.Device) error {
				return app.PrintRegisters(os.Stdout, dev)
			})
		},
	}
}

func NewResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Soft-reset the sensor and re-apply the measurement configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withDevice(func(cfg *config.Config, log *slog.Logger, dev *bme280.Device) error {
				if err := dev.Reset(); err != nil {
					return fmt.Errorf("failed to reset: %w", err)
				}
				if err := dev.Configure(); err != nil {
					return fmt.Errorf("failed to configure: %w", err)
				}
				log.Info("sensor reset", "addr", fmt.Sprintf("0x%02X", cfg.BME280I2CAddr))
				return nil
			})
		},
	}
}

func NewCompensateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compensate CALIBRATION_HEX BURST_HEX",
		Short: "Compensate a captured burst offline",
		Long: `Compensate a captured burst without hardware.

CALIBRATION_HEX is the 32-byte calibration block as hex: 24 bytes from 0x88,
1 byte from 0xA1 and 7 bytes from 0xE1. BURST_HEX is the 8-byte burst read
from 0xF7.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			_, fixed, err := app.CompensateHex(args[0], args[1])
			if err != nil {
				return err
			}
			app.PrintFixed(os.Stdout, fixed)
			return nil
		},
	}
}
