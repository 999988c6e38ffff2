// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bme280

import (
	"fmt"
	"math/big"

	"periph.io/x/conn/v3/physic"
)

// Humidity in Q22.10 is clamped to this range (0..100 %RH).
const humidityMaxQ22_10 = 100 << 22

// Fixed is the fixed-point result of one compensation, in datasheet units.
type Fixed struct {
	TFine       int64    // fine temperature shared by the pressure and humidity stages
	Temperature int64    // 0.01 °C
	Pressure    *big.Int // Pa, Q24.8, may exceed 64 bits
	Humidity    int64    // %RH, Q22.10
}

// Reading is a compensated measurement in physical units.
type Reading struct {
	Temperature float64 `json:"temp_c"`       // °C
	Pressure    float64 `json:"pressure_pa"`  // Pa
	Humidity    float64 `json:"humidity_pct"` // %RH, always within [0, 100]
}

func (r Reading) String() string {
	return fmt.Sprintf("T=%.2f°C P=%.2fPa H=%.2f%%", r.Temperature, r.Pressure, r.Humidity)
}

// Env converts the reading to periph.io physical units.
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(r.Temperature*float64(physic.Kelvin)),
		Pressure:    physic.Pressure(r.Pressure * float64(physic.Pascal)),
		Humidity:    physic.RelativeHumidity(r.Humidity * float64(physic.PercentRH)),
	}
}

// Compensate converts a raw sample into physical units.
func Compensate(raw RawSample, c *Calibration) Reading {
	return CompensateFixed(raw, c).Reading()
}

// CompensateFixed runs the three datasheet stages. The temperature stage runs
// once and its t_fine feeds both other stages.
func CompensateFixed(raw RawSample, c *Calibration) Fixed {
	tFine, temp := CompensateTemperature(raw.Temperature, c)
	return Fixed{
		TFine:       tFine,
		Temperature: temp,
		Pressure:    CompensatePressure(raw.Pressure, tFine, c),
		Humidity:    CompensateHumidity(raw.Humidity, tFine, c),
	}
}

// Reading scales the fixed-point values to physical units.
func (f Fixed) Reading() Reading {
	h := float64(f.Humidity) / 1024
	switch {
	case h < 0:
		h = 0
	case h > 100:
		h = 100
	}
	return Reading{
		Temperature: float64(f.Temperature) / 100,
		Pressure:    pascals(f.Pressure),
		Humidity:    h,
	}
}

func pascals(q *big.Int) float64 {
	if q == nil {
		return 0
	}
	pa, _ := new(big.Float).Quo(new(big.Float).SetInt(q), big.NewFloat(256)).Float64()
	return pa
}

// CompensateTemperature returns t_fine and the temperature in 0.01 °C.
func CompensateTemperature(adcT int32, c *Calibration) (tFine, centiC int64) {
	adc := int64(adcT)
	t1 := int64(c.T1)

	var1 := (((adc >> 3) - (t1 << 1)) * int64(c.T2)) >> 11
	d := (adc >> 4) - t1
	var2 := (((d * d) >> 12) * int64(c.T3)) >> 14

	tFine = var1 + var2
	return tFine, (tFine*5 + 128) >> 8
}

// CompensatePressure returns the pressure in Pa as Q24.8. A zero denominator
// (P1 == 0) yields exactly 0. Extreme calibrations push the intermediates and
// the result past 64 bits, so the stage runs on big integers.
func CompensatePressure(adcP int32, tFine int64, c *Calibration) *big.Int {
	d := big.NewInt(tFine - 128000)
	dd := new(big.Int).Mul(d, d)

	var2 := mul(dd, int64(c.P6))
	var2.Add(var2, lsh(mul(d, int64(c.P5)), 17))
	var2.Add(var2, lsh(big.NewInt(int64(c.P4)), 35))

	var1 := rsh(mul(dd, int64(c.P3)), 8)
	var1.Add(var1, lsh(mul(d, int64(c.P2)), 12))
	var1.Add(var1, lsh(big.NewInt(1), 47))
	var1 = rsh(mul(var1, int64(c.P1)), 33)
	if var1.Sign() == 0 {
		return new(big.Int)
	}

	p := lsh(big.NewInt(1048576-int64(adcP)), 31)
	p = floorDiv(mul(p.Sub(p, var2), 3125), var1)
	p13 := rsh(p, 13)
	var1 = rsh(mul(new(big.Int).Mul(p13, p13), int64(c.P9)), 25)
	var2 = rsh(mul(p, int64(c.P8)), 19)

	p.Add(p, var1)
	p.Add(p, var2)
	p = rsh(p, 8)
	return p.Add(p, lsh(big.NewInt(int64(c.P7)), 4))
}

// CompensateHumidity returns the relative humidity in %RH as Q22.10,
// clamped to [0, 100]. The squared term overflows 64 bits for extreme
// coefficients, so the stage runs on big integers before the clamp.
func CompensateHumidity(adcH int32, tFine int64, c *Calibration) int64 {
	v := big.NewInt(tFine - 76800)

	a := lsh(big.NewInt(int64(adcH)), 14)
	a.Sub(a, lsh(big.NewInt(int64(c.H4)), 20))
	a.Sub(a, mul(v, int64(c.H5)))
	a = rsh(a.Add(a, big.NewInt(16384)), 15)

	b := rsh(mul(v, int64(c.H3)), 11)
	b.Add(b, big.NewInt(32768))
	b = rsh(b.Mul(b, rsh(mul(v, int64(c.H6)), 10)), 10)
	b.Add(b, big.NewInt(2097152))
	b = mul(b, int64(c.H2))
	b = rsh(b.Add(b, big.NewInt(8192)), 14)

	v = a.Mul(a, b)
	v15 := rsh(v, 15)
	sq := rsh(new(big.Int).Mul(v15, v15), 7)
	v.Sub(v, rsh(mul(sq, int64(c.H1)), 4))

	switch {
	case v.Sign() < 0:
		return 0
	case v.Cmp(humidityMax) > 0:
		return humidityMaxQ22_10 >> 12
	}
	return v.Int64() >> 12
}

var humidityMax = big.NewInt(humidityMaxQ22_10)

func mul(x *big.Int, k int64) *big.Int { return new(big.Int).Mul(x, big.NewInt(k)) }

func lsh(x *big.Int, n uint) *big.Int { return new(big.Int).Lsh(x, n) }

// rsh is an arithmetic shift: negative values round toward negative infinity.
func rsh(x *big.Int, n uint) *big.Int { return new(big.Int).Rsh(x, n) }

// floorDiv divides rounding toward negative infinity. Quo truncates toward
// zero, which differs for negative quotients with a remainder.
func floorDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 && (r.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}
