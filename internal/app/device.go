// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/relabs-tech/envbridge/internal/broker"
	"github.com/relabs-tech/envbridge/internal/clock"
	"github.com/relabs-tech/envbridge/internal/config"
	"github.com/relabs-tech/envbridge/internal/display"
	"github.com/relabs-tech/envbridge/internal/link"
	"github.com/relabs-tech/envbridge/internal/sensors"
	"github.com/relabs-tech/envbridge/internal/status"
	"github.com/relabs-tech/envbridge/internal/supervisor"
	"github.com/relabs-tech/envbridge/internal/telemetry"
)

// Device is the context object built once at startup. The collaborator
// fields are filled by Open on real hardware or directly by tests; Wire
// then assembles the core from them.
type Device struct {
	Config *config.Config
	Log    *slog.Logger
	Clock  clock.Clock
	Signal status.Signal
	Link   link.Link
	Broker supervisor.Broker
	Sensor telemetry.Sensor
	Panel  *display.Panel

	Status     *status.Blinker
	Supervisor *supervisor.Supervisor
	Loop       *telemetry.Loop

	closers []func() error
}

// Open initializes the host, the I2C bus, the BME280, the status LED and
// the optional display, then wires the core.
func Open(cfg *config.Config, log *slog.Logger) (*Device, error) {
	d := &Device{Config: cfg, Log: log, Clock: clock.Real{}}

	bus, err := sensors.OpenBus(cfg.BME280I2CBus)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, bus.Close)

	dev, err := sensors.OpenBME280(bus, cfg.BME280I2CAddr, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Sensor = dev

	if cfg.StatusLEDPin != "" {
		sig, err := status.OpenGPIO(cfg.StatusLEDPin)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Signal = sig
		d.closers = append(d.closers, sig.Off)
	} else {
		d.Signal = status.LogSignal{Log: log}
	}

	if cfg.DisplayEnabled {
		panel, err := display.Open(bus, log)
		if err != nil {
			log.Warn("display unavailable, continuing without it", "err", err)
		} else {
			if err := panel.Splash(); err != nil {
				log.Warn("display splash failed", "err", err)
			}
			d.Panel = panel
		}
	}

	d.Link = link.NewInterface(cfg.WiFiInterface)
	mq := broker.New(broker.Options{
		Host:      cfg.MQTTBroker,
		Port:      cfg.MQTTPort,
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
		KeepAlive: cfg.MQTTKeepAlive,
		Timeout:   cfg.MQTTTimeout,
	}, log)
	d.Broker = mq
	d.closers = append(d.closers, func() error { mq.Disconnect(); return nil })

	d.Wire()
	return d, nil
}

// Wire builds the blinker, the supervisor and the telemetry loop from the
// collaborator fields.
func (d *Device) Wire() {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	cfg := d.Config
	d.Status = status.NewBlinker(d.Signal, d.Clock, d.Log)
	d.Supervisor = supervisor.New(d.Link, d.Broker, d.Status, d.Clock, cfg.ReconnectBackoff, d.Log)
	d.Loop = telemetry.New(d.Sensor, d.Supervisor, d.Status, telemetry.Topics{
		Temperature: cfg.TopicTemperature,
		Pressure:    cfg.TopicPressure,
		Humidity:    cfg.TopicHumidity,
	}, cfg.HeartbeatWindow, d.Log)

	d.Supervisor.OnTransition(func(from, to supervisor.State) {
		d.Log.Info("connection state", "component", "app", "from", from, "to", to)
		if d.Panel != nil {
			d.Panel.ShowState(to.String())
		}
	})
	if d.Panel != nil {
		d.Loop.OnReading(d.Panel.ShowReading)
	}
}

// Run blocks in the telemetry loop until ctx is cancelled.
func (d *Device) Run(ctx context.Context) error {
	return d.Loop.Run(ctx)
}

// Close releases hardware in reverse order of acquisition.
func (d *Device) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// RunBridge opens the device and runs it until ctx is cancelled.
func RunBridge(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	d, err := Open(cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	log.Info("envbridge: starting telemetry loop",
		"interface", cfg.WiFiInterface,
		"broker", cfg.MQTTBroker,
		"window", cfg.HeartbeatWindow,
	)
	err = d.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("envbridge: shutting down")
		return nil
	}
	return err
}
