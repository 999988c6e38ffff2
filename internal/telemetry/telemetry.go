// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry runs the poll cycle: read the sensor, compensate, publish
// three retained values, then idle with a heartbeat.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/relabs-tech/envbridge/internal/bme280"
	"github.com/relabs-tech/envbridge/internal/fault"
	"github.com/relabs-tech/envbridge/internal/status"
)

// DefaultWindow is the idle time between two cycles.
const DefaultWindow = 600 * time.Second

// Sensor provides calibration and raw samples.
type Sensor interface {
	Calibration() (*bme280.Calibration, error)
	Sample() (bme280.RawSample, error)
}

// Publisher is the connectivity side of the loop, implemented by
// *supervisor.Supervisor.
type Publisher interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Topics names the three destinations.
type Topics struct {
	Temperature string
	Pressure    string
	Humidity    string
}

// Message is one topic/payload pair produced by a cycle.
type Message struct {
	Topic   string
	Payload []byte
}

type Loop struct {
	sensor Sensor
	pub    Publisher
	ind    status.Indicator
	topics Topics
	window time.Duration
	log    *slog.Logger

	onReading func(bme280.Reading)
}

func New(s Sensor, p Publisher, ind status.Indicator, topics Topics, window time.Duration, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		sensor: s,
		pub:    p,
		ind:    ind,
		topics: topics,
		window: window,
		log:    log.With("component", "telemetry"),
	}
}

// OnReading registers fn to receive every compensated reading.
func (l *Loop) OnReading(fn func(bme280.Reading)) {
	l.onReading = fn
}

// Messages formats a reading the way it is published: temperature in °C,
// pressure in hPa and humidity in %RH, each with two decimals.
func (l *Loop) Messages(r bme280.Reading) []Message {
	return []Message{
		{l.topics.Temperature, formatDecimal(r.Temperature)},
		{l.topics.Pressure, formatDecimal(r.Pressure / 100)},
		{l.topics.Humidity, formatDecimal(r.Humidity)},
	}
}

func formatDecimal(v float64) []byte {
	return strconv.AppendFloat(nil, v, 'f', 2, 64)
}

// Cycle performs one read-compensate-publish pass. A sensor failure plays
// the sensor-error pattern and skips publishing without touching the
// connection. The three publishes are independent: one failing does not
// prevent the others.
func (l *Loop) Cycle(ctx context.Context) error {
	reading, err := l.read()
	if err != nil {
		l.log.Error("sensor read failed", "err", err)
		if perr := l.ind.Play(ctx, status.SensorError); perr != nil {
			return perr
		}
		return err
	}
	l.log.Info("reading", "temp_c", reading.Temperature, "pressure_pa", reading.Pressure, "humidity_pct", reading.Humidity)
	if l.onReading != nil {
		l.onReading(reading)
	}

	var errs []error
	for _, m := range l.Messages(reading) {
		if err := l.pub.Publish(ctx, m.Topic, m.Payload); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		l.log.Info("published", "topic", m.Topic, "payload", string(m.Payload))
	}
	return errors.Join(errs...)
}

func (l *Loop) read() (bme280.Reading, error) {
	cal, err := l.sensor.Calibration()
	if err != nil {
		return bme280.Reading{}, fault.New(fault.SensorRead, "calibration", err)
	}
	raw, err := l.sensor.Sample()
	if err != nil {
		return bme280.Reading{}, fault.New(fault.SensorRead, "sample", err)
	}
	return bme280.Compensate(raw, cal), nil
}

// Idle runs the heartbeat for the configured window.
func (l *Loop) Idle(ctx context.Context) error {
	return l.ind.Heartbeat(ctx, l.window)
}

// Run connects and then cycles until ctx is cancelled. Cycle errors are
// logged and never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.pub.Connect(ctx); err != nil {
		return err
	}
	for {
		if err := l.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Warn("cycle finished with errors", "kind", fault.KindOf(err).String(), "err", err)
		}
		if err := l.Idle(ctx); err != nil {
			return err
		}
	}
}
