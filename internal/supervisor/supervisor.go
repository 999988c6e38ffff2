// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package supervisor keeps the link and the broker session up. Every failure
// plays its status pattern, waits a fixed backoff and retries from the link
// step, forever; only context cancellation stops it.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/relabs-tech/envbridge/internal/clock"
	"github.com/relabs-tech/envbridge/internal/fault"
	"github.com/relabs-tech/envbridge/internal/link"
	"github.com/relabs-tech/envbridge/internal/status"
)

// DefaultBackoff is the fixed wait after a failed connect attempt.
const DefaultBackoff = 30 * time.Second

// Broker is the message broker session the supervisor drives.
type Broker interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload []byte, retained bool) error
	Disconnect()
}

// Supervisor owns the connection state. It is not safe for concurrent use;
// the telemetry loop is its only caller.
type Supervisor struct {
	link    link.Link
	broker  Broker
	ind     status.Indicator
	clk     clock.Clock
	backoff time.Duration
	log     *slog.Logger

	state        State
	onTransition func(from, to State)
}

func New(l link.Link, b Broker, ind status.Indicator, clk clock.Clock, backoff time.Duration, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		link:    l,
		broker:  b,
		ind:     ind,
		clk:     clk,
		backoff: backoff,
		log:     log.With("component", "supervisor"),
	}
}

// OnTransition registers fn to be called after every state change.
func (s *Supervisor) OnTransition(fn func(from, to State)) {
	s.onTransition = fn
}

func (s *Supervisor) State() State { return s.state }

// Connect drives the state machine until Ready. It returns nil once Ready,
// or the context error if ctx is cancelled first.
func (s *Supervisor) Connect(ctx context.Context) error {
	for s.state != Ready {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.set(LinkConnecting)
		if err := s.link.Connect(ctx); err != nil {
			if err := s.fail(ctx, fault.New(fault.LinkConnect, "link connect", err), status.LinkError); err != nil {
				return err
			}
			continue
		}
		s.set(LinkUp)

		s.set(BrokerConnecting)
		if err := s.broker.Connect(ctx); err != nil {
			if err := s.fail(ctx, fault.New(fault.BrokerConnect, "broker connect", err), status.BrokerError); err != nil {
				return err
			}
			continue
		}
		s.set(Ready)
	}
	return nil
}

// Publish sends one retained message, connecting first when not Ready. On
// failure the session is torn down, the broker-error pattern plays and the
// full reconnect runs before Publish returns the publish error.
func (s *Supervisor) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	err := s.broker.Publish(ctx, topic, payload, true)
	if err == nil {
		return nil
	}

	perr := fault.New(fault.Publish, "publish "+topic, err)
	s.log.Error("publish failed", "topic", topic, "err", err)
	s.broker.Disconnect()
	s.set(Disconnected)
	if err := s.ind.Play(ctx, status.BrokerError); err != nil {
		return perr
	}
	if err := s.Connect(ctx); err != nil {
		s.log.Warn("reconnect interrupted", "err", err)
	}
	return perr
}

// fail records a connect failure: Faulted, status pattern, backoff, then
// Disconnected. A non-nil return means ctx was cancelled.
func (s *Supervisor) fail(ctx context.Context, err *fault.Error, p status.Pattern) error {
	s.log.Error("connect failed", "kind", err.Kind, "err", err.Err, "backoff", s.backoff)
	s.set(Faulted)
	if perr := s.ind.Play(ctx, p); perr != nil {
		s.set(Disconnected)
		return perr
	}
	serr := s.clk.Sleep(ctx, s.backoff)
	s.set(Disconnected)
	return serr
}

func (s *Supervisor) set(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	s.log.Debug("state", "from", from, "to", to)
	if s.onTransition != nil {
		s.onTransition(from, to)
	}
}
