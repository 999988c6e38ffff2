// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package broker wraps the paho MQTT client with context-aware, blocking
// operations. Reconnecting is left to the caller: paho's own auto-reconnect
// and connect-retry are switched off.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned by Publish when no session is open.
var ErrNotConnected = errors.New("mqtt client not connected")

// Options configures the broker session.
type Options struct {
	Host      string
	Port      int
	ClientID  string
	Username  string
	Password  string
	KeepAlive time.Duration
	// Timeout bounds every connect/publish/subscribe wait.
	Timeout time.Duration
}

// URL is the tcp:// address handed to paho.
func (o Options) URL() string {
	return fmt.Sprintf("tcp://%s:%d", o.Host, o.Port)
}

type Client struct {
	client  mqtt.Client
	timeout time.Duration
	log     *slog.Logger

	mu        sync.RWMutex
	connected bool
}

// New builds a client; nothing is dialed until Connect.
func New(o Options, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{timeout: o.Timeout, log: log.With("component", "mqtt", "broker", o.URL())}

	opts := mqtt.NewClientOptions().
		AddBroker(o.URL()).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetCleanSession(true).
		SetKeepAlive(o.KeepAlive).
		SetConnectTimeout(o.Timeout).
		SetWriteTimeout(o.Timeout).
		SetAutoReconnect(false).
		SetConnectRetry(false)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		c.log.Info("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		c.log.Warn("mqtt connection lost", "err", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Wrap uses an existing paho client. The connection flag follows
// client.IsConnected.
func Wrap(client mqtt.Client, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{client: client, timeout: timeout, log: log.With("component", "mqtt")}
}

// Connect opens a session and waits for the broker's CONNACK.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}
	if err := c.wait(ctx, c.client.Connect()); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.setConnected(true)
	return nil
}

// Publish sends one QoS 0 message and waits until paho has written it.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.wait(ctx, c.client.Publish(topic, 0, retained, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	c.log.Debug("published", "topic", topic, "payload", string(payload), "retained", retained)
	return nil
}

// Subscribe registers handler for topic at QoS 0.
func (c *Client) Subscribe(ctx context.Context, topic string, handler func(topic string, payload []byte)) error {
	t := c.client.Subscribe(topic, 0, func(_ mqtt.Client, m mqtt.Message) {
		handler(m.Topic(), m.Payload())
	})
	if err := c.wait(ctx, t); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	c.log.Info("subscribed", "topic", topic)
	return nil
}

// Disconnect closes the session. It is safe to call when not connected and
// Connect may be called again afterwards.
func (c *Client) Disconnect() {
	if c.client.IsConnectionOpen() {
		c.client.Disconnect(250)
	}
	c.setConnected(false)
	c.log.Info("mqtt disconnected")
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) wait(ctx context.Context, t mqtt.Token) error {
	var timeout <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return fmt.Errorf("timed out after %s", c.timeout)
	}
}
