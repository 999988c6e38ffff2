package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/envbridge/internal/bme280"
	"github.com/relabs-tech/envbridge/internal/clock"
	"github.com/relabs-tech/envbridge/internal/config"
	"github.com/relabs-tech/envbridge/internal/fault"
	"github.com/relabs-tech/envbridge/internal/status"
	"github.com/relabs-tech/envbridge/internal/supervisor"
)

const (
	refCalibBlock = "706b436718fc7d8e43d6d00b270b8c00f9ff8c3cf8c67017" + "4b" + "6a01001329031e"
	refBurst      = "655ac07eed007639"
)

func init() {
	color.NoColor = true
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.MQTTBroker = "localhost"
	cfg.TopicTemperature = "env/t"
	cfg.TopicPressure = "env/p"
	cfg.TopicHumidity = "env/h"
	cfg.HeartbeatWindow = 4 * time.Second
	return cfg
}

type okLink struct{ err error }

func (l *okLink) Connect(context.Context) error { return l.err }

type memBroker struct {
	connects int
	sent     map[string]string
}

func (b *memBroker) Connect(context.Context) error { b.connects++; return nil }
func (b *memBroker) Disconnect()                   {}

func (b *memBroker) Publish(_ context.Context, topic string, payload []byte, retained bool) error {
	if !retained {
		return errors.New("expected retained publish")
	}
	b.sent[topic] = string(payload)
	return nil
}

type refSensor struct{}

func (refSensor) Calibration() (*bme280.Calibration, error) {
	cal, _, err := CompensateHex(refCalibBlock, refBurst)
	return cal, err
}

func (refSensor) Sample() (bme280.RawSample, error) {
	return bme280.RawSample{Pressure: 415148, Temperature: 519888, Humidity: 30265}, nil
}

// stopClock cancels the run after a number of sleeps.
type stopClock struct {
	n, after int
	cancel   context.CancelFunc
}

func (c *stopClock) Sleep(ctx context.Context, _ time.Duration) error {
	c.n++
	if c.n == c.after {
		c.cancel()
	}
	return ctx.Err()
}

func TestDevice_RunOneCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mq := &memBroker{sent: map[string]string{}}
	sig := &status.Recorder{}
	var states []supervisor.State
	d := &Device{
		Config: testConfig(),
		Clock:  &stopClock{after: 4, cancel: cancel},
		Signal: sig,
		Link:   &okLink{},
		Broker: mq,
		Sensor: refSensor{},
	}
	d.Wire()
	d.Supervisor.OnTransition(func(_, to supervisor.State) { states = append(states, to) })

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, map[string]string{"env/t": "25.08", "env/p": "1006.53", "env/h": "56.48"}, mq.sent)
	assert.Equal(t, 1, mq.connects)
	assert.Equal(t, supervisor.Ready, d.Supervisor.State())
	assert.Equal(t, supervisor.Ready, states[len(states)-1])
	assert.Equal(t, 2, sig.Pulses(), "4 s heartbeat window is two pulses")
}

// flakySensor fails the first n samples.
type flakySensor struct {
	refSensor
	n int
}

func (s *flakySensor) Sample() (bme280.RawSample, error) {
	if s.n > 0 {
		s.n--
		return bme280.RawSample{}, errors.New("i2c nack")
	}
	return s.refSensor.Sample()
}

func TestDevice_SensorErrorKeepsConnection(t *testing.T) {
	ctx := context.Background()
	mq := &memBroker{sent: map[string]string{}}
	sig := &status.Recorder{}
	d := &Device{
		Config: testConfig(),
		Clock:  &clock.Recorder{},
		Signal: sig,
		Link:   &okLink{},
		Broker: mq,
		Sensor: &flakySensor{n: 1},
	}
	d.Wire()
	require.NoError(t, d.Supervisor.Connect(ctx))
	require.Equal(t, supervisor.Ready, d.Supervisor.State())

	var transitions []supervisor.State
	d.Supervisor.OnTransition(func(_, to supervisor.State) { transitions = append(transitions, to) })

	err := d.Loop.Cycle(ctx)
	assert.ErrorIs(t, err, fault.SensorRead)
	assert.Equal(t, supervisor.Ready, d.Supervisor.State())
	assert.Equal(t, status.SensorError.Count, sig.Pulses())
	assert.Empty(t, mq.sent)

	require.NoError(t, d.Loop.Cycle(ctx))
	assert.Equal(t, supervisor.Ready, d.Supervisor.State())
	assert.Len(t, mq.sent, 3)

	assert.Empty(t, transitions)
	assert.Equal(t, 1, mq.connects)
}

func TestDevice_LinkDownUsesBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	sig := &status.Recorder{}
	clk := &stopClock{after: 2*status.LinkError.Count + 1, cancel: cancel}
	d := &Device{
		Config: cfg,
		Clock:  clk,
		Signal: sig,
		Link:   &okLink{err: errors.New("wlan0 is down")},
		Broker: &memBroker{sent: map[string]string{}},
		Sensor: refSensor{},
	}
	d.Wire()

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, status.LinkError.Count, sig.Pulses())
	assert.Equal(t, supervisor.Disconnected, d.Supervisor.State())
}

func TestDevice_Close(t *testing.T) {
	var order []int
	d := &Device{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errors.New("busy") },
	}}

	err := d.Close()
	assert.EqualError(t, err, "busy")
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, d.Close())
}

func TestCompensateHex(t *testing.T) {
	cal, fixed, err := CompensateHex(refCalibBlock, refBurst)
	require.NoError(t, err)
	assert.Equal(t, uint16(36477), cal.P1)
	assert.Equal(t, int64(128422), fixed.TFine)
	assert.Equal(t, int64(2508), fixed.Temperature)
	assert.Equal(t, "25767233", fixed.Pressure.String())
	assert.Equal(t, int64(57832), fixed.Humidity)

	_, _, err = CompensateHex("zz", refBurst)
	assert.Error(t, err)
	_, _, err = CompensateHex(refCalibBlock, "0011")
	assert.Error(t, err)
}

func TestPrintFixed(t *testing.T) {
	_, fixed, err := CompensateHex(refCalibBlock, refBurst)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintFixed(&buf, fixed)
	assert.Contains(t, buf.String(), "25.08 °C")
	assert.Contains(t, buf.String(), "25767233")
	assert.Contains(t, buf.String(), "1006.53 hPa")
	assert.Contains(t, buf.String(), "56.48 %RH")
}

func TestPrintCalibration(t *testing.T) {
	cal, _, err := CompensateHex(refCalibBlock, refBurst)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintCalibration(&buf, cal)
	assert.Contains(t, buf.String(), "dig_P1")
	assert.Contains(t, buf.String(), "36477")
	assert.Contains(t, buf.String(), "-14600")
}

type fakeRegisters struct{ reads []byte }

func (f *fakeRegisters) ReadRegisters(reg byte, n int) ([]byte, error) {
	f.reads = append(f.reads, reg)
	return make([]byte, n), nil
}

func TestPrintRegisters_SkipsWriteOnly(t *testing.T) {
	f := &fakeRegisters{}
	var buf bytes.Buffer
	require.NoError(t, PrintRegisters(&buf, f))

	assert.NotContains(t, f.reads, bme280.RegReset)
	assert.Contains(t, f.reads, bme280.RegBurstStart)
	assert.Contains(t, buf.String(), "(write only)")
}

func TestConsoleLine(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, "[TEMP] env/t                               25.08 °C", ConsoleLine(cfg, "env/t", []byte("25.08")))
	assert.Contains(t, ConsoleLine(cfg, "env/p", []byte("1006.53")), "hPa")
	assert.Contains(t, ConsoleLine(cfg, "other", []byte("x")), "[????]")
}
