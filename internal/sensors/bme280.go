// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/envbridge/internal/bme280"
)

var (
	hostOnce    sync.Once
	hostInitErr error
)

// InitHost loads the periph host drivers once per process.
func InitHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostInitErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostInitErr
}

// OpenBus initializes the host and opens the named I2C bus ("" is the
// first bus found).
func OpenBus(name string) (i2c.BusCloser, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("I2C open %q: %w", name, err)
	}
	return bus, nil
}

// OpenBME280 verifies the chip id, writes the measurement configuration and
// reads the calibration so the first cycle does not pay for it.
func OpenBME280(bus i2c.Bus, addr uint16, log *slog.Logger) (*bme280.Device, error) {
	if log == nil {
		log = slog.Default()
	}
	dev := bme280.New(&i2c.Dev{Bus: bus, Addr: addr})

	id, err := dev.ChipID()
	if err != nil {
		return nil, fmt.Errorf("BME280 at 0x%02X: %w", addr, err)
	}
	if id != bme280.ChipID {
		return nil, fmt.Errorf("BME280 at 0x%02X: unexpected chip id 0x%02X (want 0x%02X)", addr, id, bme280.ChipID)
	}

	if err := dev.Configure(); err != nil {
		return nil, fmt.Errorf("BME280 configure: %w", err)
	}

	cal, err := dev.Calibration()
	if err != nil {
		return nil, fmt.Errorf("BME280 calibration: %w", err)
	}
	log.Info("BME280 initialized", "component", "sensors", "addr", fmt.Sprintf("0x%02X", addr), "t1", cal.T1, "p1", cal.P1, "h1", cal.H1)
	return dev, nil
}
