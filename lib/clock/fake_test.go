// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(250 * time.Millisecond)
	want := epoch.Add(250 * time.Millisecond)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterFiresAtExactDeadline(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	channel := clock.After(100 * time.Millisecond)

	clock.Advance(99 * time.Millisecond)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(1 * time.Millisecond)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at its exact deadline")
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount after firing = %d, want 0", count)
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	for _, duration := range []time.Duration{0, -time.Second} {
		select {
		case <-clock.After(duration):
		default:
			t.Fatalf("After(%v) should deliver immediately", duration)
		}
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount = %d, want 0", count)
	}
}

func TestFakeClockTickerPeriods(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	ticker := clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	ticks := 0
	for step := 0; step < 35; step++ {
		clock.Advance(10 * time.Millisecond)
		select {
		case <-ticker.C:
			ticks++
		default:
		}
	}
	if ticks != 3 {
		t.Errorf("ticks over 350ms = %d, want 3", ticks)
	}
}

func TestFakeClockTickerDropsWhenFull(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	ticker := clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	clock.Advance(500 * time.Millisecond)

	received := 0
	for {
		select {
		case <-ticker.C:
			received++
			continue
		default:
		}
		break
	}
	if received != 1 {
		t.Errorf("buffered ticks = %d, want 1", received)
	}
}

func TestFakeClockTickerStop(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Second)
	if count := clock.PendingCount(); count != 1 {
		t.Fatalf("PendingCount = %d, want 1", count)
	}

	ticker.Stop()
	if count := clock.PendingCount(); count != 0 {
		t.Fatalf("PendingCount after Stop = %d, want 0", count)
	}

	clock.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	t.Parallel()
	clock := Fake(epoch)

	registered := make(chan struct{})
	go func() {
		clock.NewTicker(time.Second)
		clock.NewTicker(100 * time.Millisecond)
		close(registered)
	}()

	clock.WaitForTimers(2)
	<-registered
	if count := clock.PendingCount(); count != 2 {
		t.Errorf("PendingCount = %d, want 2", count)
	}
}
