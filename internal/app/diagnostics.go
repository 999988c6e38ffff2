package app

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/relabs-tech/envbridge/internal/bme280"
)

var (
	bold  = color.New(color.Bold).SprintfFunc()
	faint = color.New(color.Faint).SprintfFunc()
)

// PrintCalibration writes the coefficient table.
func PrintCalibration(w io.Writer, cal *bme280.Calibration) {
	fmt.Fprintln(w, bold("BME280 calibration"))
	rows := []struct {
		name  string
		value int
	}{
		{"dig_T1", int(cal.T1)}, {"dig_T2", int(cal.T2)}, {"dig_T3", int(cal.T3)},
		{"dig_P1", int(cal.P1)}, {"dig_P2", int(cal.P2)}, {"dig_P3", int(cal.P3)},
		{"dig_P4", int(cal.P4)}, {"dig_P5", int(cal.P5)}, {"dig_P6", int(cal.P6)},
		{"dig_P7", int(cal.P7)}, {"dig_P8", int(cal.P8)}, {"dig_P9", int(cal.P9)},
		{"dig_H1", int(cal.H1)}, {"dig_H2", int(cal.H2)}, {"dig_H3", int(cal.H3)},
		{"dig_H4", int(cal.H4)}, {"dig_H5", int(cal.H5)}, {"dig_H6", int(cal.H6)},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-7s %7d\n", color.CyanString(r.name), r.value)
	}
}

// RegisterReader reads a block of registers.
type RegisterReader interface {
	ReadRegisters(reg byte, n int) ([]byte, error)
}

// PrintRegisters reads every readable register block and prints it in hex.
// Write-only registers are listed without a value.
func PrintRegisters(w io.Writer, dev RegisterReader) error {
	fmt.Fprintln(w, bold("BME280 registers"))
	for _, r := range bme280.RegisterMap() {
		value := faint("(write only)")
		if strings.Contains(r.Access, "R") {
			b, err := dev.ReadRegisters(r.Address, r.Length)
			if err != nil {
				return err
			}
			value = hex.EncodeToString(b)
		}
		fmt.Fprintf(w, "  0x%02X %-10s %-3s %s  %s\n",
			r.Address, color.CyanString(r.Name), r.Access, value, faint(r.Description))
	}
	return nil
}

// CompensateHex runs the compensation on a hex-encoded 32-byte calibration
// block (0x88..0x9F, 0xA1, 0xE1..0xE7) and an 8-byte burst.
func CompensateHex(calHex, burstHex string) (*bme280.Calibration, bme280.Fixed, error) {
	calBytes, err := hex.DecodeString(strings.TrimSpace(calHex))
	if err != nil {
		return nil, bme280.Fixed{}, errors.Wrap(err, "calibration hex")
	}
	cal, err := bme280.ParseCalibrationBlock(calBytes)
	if err != nil {
		return nil, bme280.Fixed{}, err
	}
	burst, err := hex.DecodeString(strings.TrimSpace(burstHex))
	if err != nil {
		return nil, bme280.Fixed{}, errors.Wrap(err, "burst hex")
	}
	raw, err := bme280.ParseRawSample(burst)
	if err != nil {
		return nil, bme280.Fixed{}, err
	}
	return cal, bme280.CompensateFixed(raw, cal), nil
}

// PrintFixed writes the fixed-point stages next to the physical values.
func PrintFixed(w io.Writer, f bme280.Fixed) {
	r := f.Reading()
	fmt.Fprintf(w, "%s %d\n", color.CyanString("t_fine     "), f.TFine)
	fmt.Fprintf(w, "%s %-10d %s\n", color.CyanString("temperature"), f.Temperature, bold("%.2f °C", r.Temperature))
	fmt.Fprintf(w, "%s %-10d %s\n", color.CyanString("pressure   "), f.Pressure, bold("%.2f hPa", r.Pressure/100))
	fmt.Fprintf(w, "%s %-10d %s\n", color.CyanString("humidity   "), f.Humidity, bold("%.2f %%RH", r.Humidity))
}
