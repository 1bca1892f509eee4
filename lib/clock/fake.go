// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance is called.
// Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	pending []*fakeTimer
	changed *sync.Cond
}

// fakeTimer is a pending After channel or a ticker.
type fakeTimer struct {
	deadline time.Time
	channel  chan time.Time

	// period is zero for one-shot timers.
	period  time.Duration
	stopped bool
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{current: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After registers a one-shot timer. A non-positive d delivers
// immediately without registering anything.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.pending = append(c.pending, &fakeTimer{deadline: c.current.Add(d), channel: channel})
	c.changed.Broadcast()
	return channel
}

// NewTicker registers a periodic timer whose first tick is due d from
// now.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{
		deadline: c.current.Add(d),
		channel:  make(chan time.Time, 1),
		period:   d,
	}
	c.pending = append(c.pending, timer)
	c.changed.Broadcast()

	return &Ticker{
		C: timer.channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			timer.stopped = true
			c.changed.Broadcast()
		},
	}
}

// Advance moves time forward by d and fires every timer whose deadline
// is at or before the new time, in deadline order. A deadline equal to
// the new time fires. A ticker spanning several periods fires once per
// period; ticks that find C full are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		due := c.collectDue(target)
		if len(due) == 0 {
			return
		}
		sort.SliceStable(due, func(i, j int) bool {
			return due[i].deadline.Before(due[j].deadline)
		})
		for _, fired := range due {
			select {
			case fired.timer.channel <- fired.deadline:
			default:
			}
		}
	}
}

type dueTimer struct {
	timer    *fakeTimer
	deadline time.Time
}

// collectDue removes expired one-shot timers, moves tickers to their
// next period, and returns what fired.
func (c *FakeClock) collectDue(target time.Time) []dueTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []dueTimer
	remaining := c.pending[:0]
	for _, timer := range c.pending {
		if timer.stopped {
			continue
		}
		if timer.deadline.After(target) {
			remaining = append(remaining, timer)
			continue
		}
		due = append(due, dueTimer{timer: timer, deadline: timer.deadline})
		if timer.period > 0 {
			timer.deadline = timer.deadline.Add(timer.period)
			remaining = append(remaining, timer)
		}
	}
	c.pending = remaining
	return due
}

// WaitForTimers blocks until at least n timers or tickers are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of live timers and tickers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, timer := range c.pending {
		if !timer.stopped {
			count++
		}
	}
	return count
}
