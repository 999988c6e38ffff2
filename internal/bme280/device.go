// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme280

import (
	"fmt"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
)

// Device performs the register transactions against a BME280. It is not safe
// for concurrent use; the owner serializes all access.
type Device struct {
	c   conn.Conn
	cal *Calibration
}

// New returns a Device talking over c, usually an *i2c.Dev.
func New(c conn.Conn) *Device {
	return &Device{c: c}
}

func (d *Device) String() string {
	return fmt.Sprintf("bme280(%s)", d.c)
}

// ReadRegisters reads n contiguous registers starting at reg in one
// transaction.
func (d *Device) ReadRegisters(reg byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := d.c.Tx([]byte{reg}, buf); err != nil {
		return nil, errors.Wrapf(err, "read 0x%02X (%d bytes)", reg, n)
	}
	return buf, nil
}

// WriteRegister writes one register.
func (d *Device) WriteRegister(reg, value byte) error {
	if err := d.c.Tx([]byte{reg, value}, nil); err != nil {
		return errors.Wrapf(err, "write 0x%02X", reg)
	}
	return nil
}

// ChipID reads the identification register.
func (d *Device) ChipID() (byte, error) {
	b, err := d.ReadRegisters(RegChipID, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Configure selects x1 oversampling for all three channels, normal mode and a
// 1000 ms standby. ctrl_hum only takes effect after a write to ctrl_meas, so
// the order matters.
func (d *Device) Configure() error {
	for _, w := range [][2]byte{
		{RegCtrlHum, CtrlHumOSx1},
		{RegCtrlMeas, CtrlMeasNormalx1},
		{RegConfig, ConfigStandby1000},
	} {
		if err := d.WriteRegister(w[0], w[1]); err != nil {
			return err
		}
	}
	return nil
}

// Reset issues a soft reset. The cached calibration is dropped and read
// again on the next call to Calibration.
func (d *Device) Reset() error {
	d.cal = nil
	return d.WriteRegister(RegReset, ResetWord)
}

// Calibration returns the device coefficients, reading them on first use.
func (d *Device) Calibration() (*Calibration, error) {
	if d.cal != nil {
		return d.cal, nil
	}

	tp, err := d.ReadRegisters(RegCalibTP, CalibTPLen)
	if err != nil {
		return nil, err
	}
	h1, err := d.ReadRegisters(RegCalibH1, CalibH1Len)
	if err != nil {
		return nil, err
	}
	h, err := d.ReadRegisters(RegCalibH, CalibHLen)
	if err != nil {
		return nil, err
	}

	cal, err := ParseCalibration(tp, h1, h)
	if err != nil {
		return nil, err
	}
	d.cal = cal
	return cal, nil
}

// Sample burst-reads the raw pressure/temperature/humidity registers.
func (d *Device) Sample() (RawSample, error) {
	b, err := d.ReadRegisters(RegBurstStart, BurstLen)
	if err != nil {
		return RawSample{}, err
	}
	return ParseRawSample(b)
}
