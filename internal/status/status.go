// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package status drives the single status indicator: fixed blink patterns for
// each failure class and a slow heartbeat while the device idles.
package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/relabs-tech/envbridge/internal/clock"
)

// Signal is an on/off indicator, usually an LED.
type Signal interface {
	On() error
	Off() error
}

// Pattern is a named blink sequence: Count cycles of Interval on, Interval off.
type Pattern struct {
	Name     string
	Count    int
	Interval time.Duration
}

// Duration is the total time the pattern takes to play.
func (p Pattern) Duration() time.Duration {
	return time.Duration(p.Count) * 2 * p.Interval
}

var (
	LinkError   = Pattern{Name: "link-error", Count: 10, Interval: 100 * time.Millisecond}
	BrokerError = Pattern{Name: "broker-error", Count: 5, Interval: 500 * time.Millisecond}
	SensorError = Pattern{Name: "sensor-error", Count: 20, Interval: 200 * time.Millisecond}
)

// HeartbeatPeriod is the on time and the off time of one heartbeat pulse.
const HeartbeatPeriod = time.Second

// Indicator is what the core uses to report health.
type Indicator interface {
	Play(ctx context.Context, p Pattern) error
	Heartbeat(ctx context.Context, window time.Duration) error
}

// Blinker plays patterns on a Signal, waiting through a Clock.
type Blinker struct {
	sig Signal
	clk clock.Clock
	log *slog.Logger
}

func NewBlinker(sig Signal, clk clock.Clock, log *slog.Logger) *Blinker {
	if log == nil {
		log = slog.Default()
	}
	return &Blinker{sig: sig, clk: clk, log: log.With("component", "status")}
}

// Play runs the pattern to completion unless ctx is cancelled. A failing
// signal is logged once and the timing is still honored.
func (b *Blinker) Play(ctx context.Context, p Pattern) error {
	b.log.Debug("pattern", "name", p.Name, "count", p.Count, "interval", p.Interval)
	return b.pulse(ctx, p.Count, p.Interval)
}

// Heartbeat toggles the signal once per HeartbeatPeriod for window, i.e.
// window/(2*HeartbeatPeriod) on/off pairs.
func (b *Blinker) Heartbeat(ctx context.Context, window time.Duration) error {
	return b.pulse(ctx, int(window/(2*HeartbeatPeriod)), HeartbeatPeriod)
}

func (b *Blinker) pulse(ctx context.Context, count int, interval time.Duration) error {
	warned := false
	set := func(f func() error) {
		if err := f(); err != nil && !warned {
			warned = true
			b.log.Warn("signal write failed", "err", err)
		}
	}
	for i := 0; i < count; i++ {
		set(b.sig.On)
		if err := b.clk.Sleep(ctx, interval); err != nil {
			set(b.sig.Off)
			return err
		}
		set(b.sig.Off)
		if err := b.clk.Sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}
