package bme280

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Datasheet worked example (temperature/pressure block) with typical humidity
// trimming values.
const (
	refCalibTP = "706b436718fc7d8e43d6d00b270b8c00f9ff8c3cf8c67017"
	refCalibH1 = "4b"
	refCalibH  = "6a01001329031e"
	refBurst   = "655ac07eed007639"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func refCalibration(t *testing.T) *Calibration {
	t.Helper()
	cal, err := ParseCalibration(mustHex(t, refCalibTP), mustHex(t, refCalibH1), mustHex(t, refCalibH))
	require.NoError(t, err)
	return cal
}

func TestParseCalibration_Reference(t *testing.T) {
	cal := refCalibration(t)

	want := &Calibration{
		T1: 27504, T2: 26435, T3: -1000,
		P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140, P6: -7, P7: 15500, P8: -14600, P9: 6000,
		H1: 75, H2: 362, H3: 0, H4: 313, H5: 50, H6: 30,
	}
	assert.Equal(t, want, cal)
}

func TestParseCalibration_PackedNibbles(t *testing.T) {
	tp := make([]byte, CalibTPLen)
	h := []byte{0xFF, 0xFF, 0x80, 0xAB, 0xCD, 0xEF, 0x81}

	cal, err := ParseCalibration(tp, []byte{0xFE}, h)
	require.NoError(t, err)

	assert.Equal(t, uint8(0xFE), cal.H1)
	assert.Equal(t, int16(-1), cal.H2)
	assert.Equal(t, uint8(0x80), cal.H3)
	assert.Equal(t, int16(0xABD), cal.H4, "H4 = e3<<4 | low nibble of e4")
	assert.Equal(t, int16(0xEFC), cal.H5, "H5 = e5<<4 | high nibble of e4")
	assert.Equal(t, int8(-127), cal.H6)
}

func TestParseCalibration_BadLengths(t *testing.T) {
	tp := make([]byte, CalibTPLen)
	h := make([]byte, CalibHLen)

	_, err := ParseCalibration(tp[:23], []byte{0}, h)
	assert.Error(t, err)
	_, err = ParseCalibration(tp, nil, h)
	assert.Error(t, err)
	_, err = ParseCalibration(tp, []byte{0}, h[:6])
	assert.Error(t, err)
}

func TestParseCalibrationBlock(t *testing.T) {
	block := mustHex(t, refCalibTP+refCalibH1+refCalibH)
	cal, err := ParseCalibrationBlock(block)
	require.NoError(t, err)
	assert.Equal(t, refCalibration(t), cal)

	_, err = ParseCalibrationBlock(block[:31])
	assert.Error(t, err)
}

func TestParseRawSample(t *testing.T) {
	raw, err := ParseRawSample(mustHex(t, refBurst))
	require.NoError(t, err)
	assert.Equal(t, RawSample{Pressure: 415148, Temperature: 519888, Humidity: 30265}, raw)

	raw, err = ParseRawSample([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, RawSample{Pressure: 0xFFFFF, Temperature: 0xFFFFF, Humidity: 0xFFFF}, raw)

	_, err = ParseRawSample(make([]byte, 7))
	assert.Error(t, err)
}

func TestCompensate_ReferenceExample(t *testing.T) {
	cal := refCalibration(t)
	raw, err := ParseRawSample(mustHex(t, refBurst))
	require.NoError(t, err)

	fixed := CompensateFixed(raw, cal)
	assert.Equal(t, int64(128422), fixed.TFine)
	assert.Equal(t, int64(2508), fixed.Temperature)
	assert.Equal(t, "25767233", fixed.Pressure.String())
	assert.Equal(t, int64(57832), fixed.Humidity)

	r := Compensate(raw, cal)
	assert.InDelta(t, 25.08, r.Temperature, 1e-9)
	// Datasheet example: 100653.27 Pa.
	assert.InDelta(t, 100653.27, r.Pressure, 0.05)
	assert.InDelta(t, 56.4765625, r.Humidity, 1e-9)
}

func TestCompensate_Deterministic(t *testing.T) {
	cal := refCalibration(t)
	raw := RawSample{Pressure: 415148, Temperature: 519888, Humidity: 30265}

	first := Compensate(raw, cal)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compensate(raw, cal))
	}
}

func TestCompensate_ColdSample(t *testing.T) {
	cal := refCalibration(t)
	raw := RawSample{Pressure: 415148, Temperature: 400000, Humidity: 30265}

	fixed := CompensateFixed(raw, cal)
	assert.Equal(t, int64(-64736), fixed.TFine)
	assert.Equal(t, int64(-1264), fixed.Temperature)
	assert.Equal(t, "24298573", fixed.Pressure.String())
	assert.Equal(t, int64(56055), fixed.Humidity)
}

func TestCompensatePressure_ZeroDenominator(t *testing.T) {
	cal := *refCalibration(t)
	cal.P1 = 0

	assert.Zero(t, CompensatePressure(415148, 128422, &cal).Sign())
	assert.Equal(t, 0.0, Compensate(RawSample{Pressure: 415148, Temperature: 519888, Humidity: 30265}, &cal).Pressure)
}

func TestCompensatePressure_NonZeroForRealisticCalibration(t *testing.T) {
	cal := refCalibration(t)
	for _, adcT := range []int32{300000, 400000, 519888, 600000} {
		tFine, _ := CompensateTemperature(adcT, cal)
		for _, adcP := range []int32{200000, 300000, 415148, 500000} {
			assert.NotZero(t, CompensatePressure(adcP, tFine, cal).Sign(), "adcT=%d adcP=%d", adcT, adcP)
		}
	}
}

func TestCompensatePressure_NegativeNumerator(t *testing.T) {
	cal := *refCalibration(t)
	cal.P4 = 32767

	assert.Equal(t, "-21750115", CompensatePressure(1048575, 128422, &cal).String())
}

func TestCompensatePressure_WideIntermediates(t *testing.T) {
	cal := *refCalibration(t)
	cal.P3 = 32767

	tFine, _ := CompensateTemperature(0, &cal)
	require.Equal(t, int64(-721301), tFine)

	// var1*var1*P3 times P1 needs more than 64 bits here.
	assert.Equal(t, "13641033", CompensatePressure(415148, tFine, &cal).String())
	assert.InDelta(t, 53285.29, Compensate(RawSample{Pressure: 415148, Temperature: 0}, &cal).Pressure, 0.01)
}

func TestCompensatePressure_ResultBeyondInt64(t *testing.T) {
	cal := Calibration{P1: 20, P2: 5995, P3: -16687, P4: 4565, P5: -4895, P6: 11211, P7: 17186, P8: -3337, P9: 30635}

	// Small negative denominator: the quotient no longer fits in 64 bits.
	p := CompensatePressure(680555, -1165970, &cal)
	assert.False(t, p.IsInt64())
	assert.Equal(t, "1094687417992828534733", p.String())
	assert.InDelta(t, 4.276122726534486e18, Fixed{Pressure: p}.Reading().Pressure, 1e6)
}

func TestCompensateHumidity_WideSquaredTerm(t *testing.T) {
	cal := Calibration{
		T1: 0, T2: -32768, T3: -32768,
		H1: 255, H2: -32768, H3: 255, H4: 0, H5: 4095, H6: -128,
	}
	tFine, _ := CompensateTemperature(1048575, &cal)
	require.Equal(t, int64(-4194224), tFine)

	// The squared correction exceeds 64 bits and drives the value negative.
	assert.Equal(t, int64(0), CompensateHumidity(0, tFine, &cal))
}

func TestCompensate_HumidityAlwaysInRange(t *testing.T) {
	cal := refCalibration(t)
	for adcT := int32(0); adcT < 1<<20; adcT += 1 << 14 {
		for adcH := int32(0); adcH < 1<<16; adcH += 1 << 10 {
			r := Compensate(RawSample{Pressure: 415148, Temperature: adcT, Humidity: adcH}, cal)
			if r.Humidity < 0 || r.Humidity > 100 {
				t.Fatalf("humidity %v out of range for adcT=%d adcH=%d", r.Humidity, adcT, adcH)
			}
		}
	}
}

func TestFloorDiv(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"7", "2", "3"},
		{"-7", "2", "-4"},
		{"7", "-2", "-4"},
		{"-7", "-2", "3"},
		{"-8", "2", "-4"},
		{"0", "5", "0"},
		{"-3518347319086812500", "597560748", "-5887848777"},
		{"-10995116277760000000000", "3", "-3665038759253333333334"},
	}
	for _, tt := range tests {
		a, _ := new(big.Int).SetString(tt.a, 10)
		b, _ := new(big.Int).SetString(tt.b, 10)
		assert.Equal(t, tt.want, floorDiv(a, b).String(), "%s / %s", tt.a, tt.b)
	}
}

func TestRsh_FloorsNegative(t *testing.T) {
	assert.Equal(t, "-1", rsh(big.NewInt(-1), 4).String())
	assert.Equal(t, "-2", rsh(big.NewInt(-17), 4).String())
	assert.Equal(t, "1", rsh(big.NewInt(17), 4).String())
}

func TestReading_Env(t *testing.T) {
	env := Reading{Temperature: 25.08, Pressure: 100653.25, Humidity: 56.5}.Env()

	assert.InDelta(t, 25.08, env.Temperature.Celsius(), 1e-6)
	assert.InDelta(t, 100653.25, float64(env.Pressure)/1e9, 1e-6)
	assert.InDelta(t, 56.5, float64(env.Humidity)/1e5, 1e-6)
}
