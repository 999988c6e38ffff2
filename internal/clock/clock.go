// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock abstracts waiting so the connectivity and telemetry loops can
// be driven without real delays in tests.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock suspends the caller for a duration.
type Clock interface {
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real sleeps on wall-clock timers.
type Real struct{}

func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Recorder returns immediately and records every requested sleep.
type Recorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return nil
}

// Sleeps returns a copy of the recorded durations in call order.
func (r *Recorder) Sleeps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.sleeps))
	copy(out, r.sleeps)
	return out
}

// Total is the sum of all recorded sleeps.
func (r *Recorder) Total() time.Duration {
	var sum time.Duration
	for _, d := range r.Sleeps() {
		sum += d
	}
	return sum
}
