// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display renders the last reading and the connection state on an
// optional 128x64 SSD1306 OLED sharing the sensor's I2C bus.
package display

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/envbridge/internal/bme280"
)

const (
	width      = 128
	height     = 64
	lineHeight = 13
)

// Device is the part of *ssd1306.Dev the panel draws through.
type Device interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Bounds() image.Rectangle
}

// Panel keeps the latest content and redraws the whole screen on change.
type Panel struct {
	dev Device
	log *slog.Logger

	mu      sync.Mutex
	reading *bme280.Reading
	state   string
}

// Open initializes the SSD1306 at its default address on bus.
func Open(bus i2c.Bus, log *slog.Logger) (*Panel, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	return New(dev, log), nil
}

func New(dev Device, log *slog.Logger) *Panel {
	if log == nil {
		log = slog.Default()
	}
	return &Panel{dev: dev, log: log.With("component", "display")}
}

// Splash shows the startup screen.
func (p *Panel) Splash() error {
	return p.draw([]string{"", " envbridge", " starting..."})
}

// ShowReading replaces the displayed reading.
func (p *Panel) ShowReading(r bme280.Reading) {
	p.mu.Lock()
	p.reading = &r
	lines := Lines(p.reading, p.state)
	p.mu.Unlock()
	p.redraw(lines)
}

// ShowState replaces the displayed connection state.
func (p *Panel) ShowState(state string) {
	p.mu.Lock()
	p.state = state
	lines := Lines(p.reading, p.state)
	p.mu.Unlock()
	p.redraw(lines)
}

func (p *Panel) redraw(lines []string) {
	if err := p.draw(lines); err != nil {
		p.log.Warn("display update failed", "err", err)
	}
}

func (p *Panel) draw(lines []string) error {
	return p.dev.Draw(p.dev.Bounds(), Render(lines), image.Point{})
}

// Lines lays out the screen text. A nil reading shows a waiting message.
func Lines(r *bme280.Reading, state string) []string {
	if state == "" {
		state = "-"
	}
	if r == nil {
		return []string{"Waiting...", "", "", "MQTT " + state}
	}
	env := r.Env()
	return []string{
		"T " + env.Temperature.String(),
		"P " + env.Pressure.String(),
		"H " + env.Humidity.String(),
		"MQTT " + state,
	}
}

// Render draws up to four lines of 7x13 text on a blank frame.
func Render(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, s := range lines {
		y := (i + 1) * lineHeight
		if y > height {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(s)
	}
	return img
}
