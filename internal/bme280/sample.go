package bme280

import "fmt"

// RawSample is one uncompensated ADC triplet captured by a single burst read.
type RawSample struct {
	Pressure    int32 // 20 bits
	Temperature int32 // 20 bits
	Humidity    int32 // 16 bits
}

// ParseRawSample decodes the 8-byte burst starting at RegBurstStart.
// Pressure and temperature are 20-bit big-endian values whose last nibble
// sits in the high half of the xlsb byte; humidity is 16-bit big-endian.
func ParseRawSample(b []byte) (RawSample, error) {
	if len(b) != BurstLen {
		return RawSample{}, fmt.Errorf("burst read: want %d bytes, got %d", BurstLen, len(b))
	}
	return RawSample{
		Pressure:    int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4,
		Temperature: int32(b[3])<<12 | int32(b[4])<<4 | int32(b[5])>>4,
		Humidity:    int32(b[6])<<8 | int32(b[7]),
	}, nil
}
