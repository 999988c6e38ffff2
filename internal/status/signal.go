package status

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// GPIOSignal drives an LED on a GPIO output pin.
type GPIOSignal struct {
	pin gpio.PinOut
}

// OpenGPIO looks up the pin by its periph name (e.g. "GPIO17"). The host
// drivers must already be initialized.
func OpenGPIO(name string) (*GPIOSignal, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %s out: %w", name, err)
	}
	return &GPIOSignal{pin: p}, nil
}

// NewGPIOSignal wraps an already configured output pin.
func NewGPIOSignal(pin gpio.PinOut) *GPIOSignal {
	return &GPIOSignal{pin: pin}
}

func (s *GPIOSignal) On() error  { return s.pin.Out(gpio.High) }
func (s *GPIOSignal) Off() error { return s.pin.Out(gpio.Low) }

// LogSignal stands in when no LED is configured. It only logs level changes
// at debug level.
type LogSignal struct {
	Log *slog.Logger
}

func (s LogSignal) On() error  { s.log().Debug("status led", "on", true); return nil }
func (s LogSignal) Off() error { s.log().Debug("status led", "on", false); return nil }

func (s LogSignal) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// Recorder is an in-memory Signal that keeps the sequence of levels written.
type Recorder struct {
	mu     sync.Mutex
	levels []bool
	Err    error
}

func (r *Recorder) On() error  { return r.set(true) }
func (r *Recorder) Off() error { return r.set(false) }

func (r *Recorder) set(v bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = append(r.levels, v)
	return r.Err
}

// Levels returns the written levels in order.
func (r *Recorder) Levels() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.levels...)
}

// Pulses counts on-to-off transitions.
func (r *Recorder) Pulses() int {
	n := 0
	lv := r.Levels()
	for i := 1; i < len(lv); i++ {
		if lv[i-1] && !lv[i] {
			n++
		}
	}
	return n
}
