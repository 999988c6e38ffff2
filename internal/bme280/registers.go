// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bme280 decodes and compensates Bosch BME280 readings.
//
// Everything in this package except Device is pure: calibration parsing,
// burst decoding and the fixed-point compensation formulas operate on byte
// slices and integers only, so they can be tested with literal datasheet
// values.
package bme280

// I2C addresses. SDO tied to GND selects the default one.
const (
	DefaultAddress   uint16 = 0x76
	AlternateAddress uint16 = 0x77
)

// Register map.
const (
	RegCalibTP    byte = 0x88 // dig_T1 .. dig_P9, 24 bytes
	RegCalibH1    byte = 0xA1 // dig_H1, 1 byte
	RegChipID     byte = 0xD0
	RegReset      byte = 0xE0
	RegCalibH     byte = 0xE1 // dig_H2 .. dig_H6, 7 bytes
	RegCtrlHum    byte = 0xF2
	RegStatus     byte = 0xF3
	RegCtrlMeas   byte = 0xF4
	RegConfig     byte = 0xF5
	RegBurstStart byte = 0xF7 // press_msb .. hum_lsb, 8 bytes
)

// Block lengths.
const (
	CalibTPLen = 24
	CalibH1Len = 1
	CalibHLen  = 7
	BurstLen   = 8
)

const (
	// ChipID is the value of RegChipID on a BME280 (a BMP280 reports 0x56-0x58).
	ChipID byte = 0x60

	// ResetWord triggers a power-on reset when written to RegReset.
	ResetWord byte = 0xB6
)

// Control values written before sampling: humidity x1, temperature x1,
// pressure x1, normal mode, 1000 ms standby, filter off.
const (
	CtrlHumOSx1       byte = 0x01
	CtrlMeasNormalx1  byte = 0x27
	ConfigStandby1000 byte = 0xA0
)

// Status register bits.
const (
	StatusMeasuring byte = 1 << 3
	StatusImUpdate  byte = 1 << 0
)

// RegisterInfo describes one register for diagnostic dumps.
type RegisterInfo struct {
	Address     byte
	Name        string
	Description string
	Access      string // "R", "W", "RW"
	Length      int
}

// RegisterMap returns metadata for the registers this package touches, in
// address order.
func RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		{Address: RegCalibTP, Name: "calib00-23", Description: "dig_T1..dig_P9", Access: "R", Length: CalibTPLen},
		{Address: RegCalibH1, Name: "calib25", Description: "dig_H1", Access: "R", Length: CalibH1Len},
		{Address: RegChipID, Name: "id", Description: "Chip ID (0x60)", Access: "R", Length: 1},
		{Address: RegReset, Name: "reset", Description: "Soft reset (write 0xB6)", Access: "W", Length: 1},
		{Address: RegCalibH, Name: "calib26-32", Description: "dig_H2..dig_H6", Access: "R", Length: CalibHLen},
		{Address: RegCtrlHum, Name: "ctrl_hum", Description: "Humidity oversampling", Access: "RW", Length: 1},
		{Address: RegStatus, Name: "status", Description: "measuring[3] im_update[0]", Access: "R", Length: 1},
		{Address: RegCtrlMeas, Name: "ctrl_meas", Description: "osrs_t[7:5] osrs_p[4:2] mode[1:0]", Access: "RW", Length: 1},
		{Address: RegConfig, Name: "config", Description: "t_sb[7:5] filter[4:2] spi3w_en[0]", Access: "RW", Length: 1},
		{Address: RegBurstStart, Name: "press/temp/hum", Description: "Raw ADC burst", Access: "R", Length: BurstLen},
	}
}
