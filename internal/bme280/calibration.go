// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme280

import (
	"encoding/binary"
	"fmt"
)

// Calibration holds the per-device trimming coefficients burned into the
// sensor at manufacture. Field names follow the datasheet dig_* names.
//
// A Calibration is read once per device session and never modified; it must
// be read again after a soft reset.
type Calibration struct {
	T1 uint16
	T2 int16
	T3 int16

	P1 uint16
	P2 int16
	P3 int16
	P4 int16
	P5 int16
	P6 int16
	P7 int16
	P8 int16
	P9 int16

	H1 uint8
	H2 int16
	H3 uint8
	H4 int16 // 12 bits
	H5 int16 // 12 bits
	H6 int8
}

// ParseCalibration decodes the three calibration blocks read from RegCalibTP
// (24 bytes), RegCalibH1 (1 byte) and RegCalibH (7 bytes).
func ParseCalibration(tp, h1, h []byte) (*Calibration, error) {
	if len(tp) != CalibTPLen {
		return nil, fmt.Errorf("temperature/pressure calibration: want %d bytes, got %d", CalibTPLen, len(tp))
	}
	if len(h1) != CalibH1Len {
		return nil, fmt.Errorf("humidity calibration H1: want %d byte, got %d", CalibH1Len, len(h1))
	}
	if len(h) != CalibHLen {
		return nil, fmt.Errorf("humidity calibration: want %d bytes, got %d", CalibHLen, len(h))
	}

	le := binary.LittleEndian
	s16 := func(off int) int16 { return int16(le.Uint16(tp[off:])) }

	return &Calibration{
		T1: le.Uint16(tp[0:]),
		T2: s16(2),
		T3: s16(4),

		P1: le.Uint16(tp[6:]),
		P2: s16(8),
		P3: s16(10),
		P4: s16(12),
		P5: s16(14),
		P6: s16(16),
		P7: s16(18),
		P8: s16(20),
		P9: s16(22),

		H1: h1[0],
		H2: int16(le.Uint16(h[0:])),
		H3: h[2],
		H4: int16(h[3])<<4 | int16(h[4]&0x0F),
		H5: int16(h[5])<<4 | int16(h[4]>>4),
		H6: int8(h[6]),
	}, nil
}

// ParseCalibrationBlock decodes the 32 calibration bytes concatenated in
// register-read order: the 24-byte block, the H1 byte, then the 7-byte block.
func ParseCalibrationBlock(b []byte) (*Calibration, error) {
	const total = CalibTPLen + CalibH1Len + CalibHLen
	if len(b) != total {
		return nil, fmt.Errorf("calibration block: want %d bytes, got %d", total, len(b))
	}
	return ParseCalibration(b[:CalibTPLen], b[CalibTPLen:CalibTPLen+CalibH1Len], b[CalibTPLen+CalibH1Len:])
}
