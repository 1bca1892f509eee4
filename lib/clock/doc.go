// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by the presence engine
// and the relay.
//
// Anything that schedules periodic work (the 100 ms reaction sampler,
// the 1000 ms reaction sweep, the relay rate limiter) takes a Clock instead
// of calling the time package. Production code passes Real(). Tests
// pass Fake(), which stands still until the test calls Advance:
//
//	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	session, _ := presence.Start(ctx, presence.Config{Clock: fakeClock, ...})
//	fakeClock.WaitForTimers(2)              // both session tickers registered
//	fakeClock.Advance(100 * time.Millisecond) // exactly one sample tick
//
// WaitForTimers closes the race between a goroutine creating its
// tickers and the test advancing time past their first deadline.
package clock
