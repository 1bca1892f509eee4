// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import "time"

const (
	// VisibilityWindow is how long a reaction stays on the canvas.
	// An event whose age reaches the window is swept.
	VisibilityWindow = 4000 * time.Millisecond

	// SampleInterval is the cadence at which a held reaction is
	// emitted and broadcast.
	SampleInterval = 100 * time.Millisecond

	// SweepInterval is the cadence at which expired reactions are
	// removed.
	SweepInterval = 1000 * time.Millisecond
)

// ReactionEvent is one reaction anchored to a canvas point. Timestamp
// is when this participant created or received it, never the sender's
// clock.
type ReactionEvent struct {
	Point     Point     `json:"point"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Age returns how old the event is at now.
func (event ReactionEvent) Age(now time.Time) time.Duration {
	return now.Sub(event.Timestamp)
}

// Store is the set of reactions currently visible to this participant.
// It is an append-only multiset that only shrinks by Sweep: identical
// events coexist, and nothing is removed individually.
//
// Store is not safe for concurrent use; the session goroutine owns it.
type Store struct {
	events []ReactionEvent
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends event.
func (store *Store) Add(event ReactionEvent) {
	store.events = append(store.events, event)
}

// Sweep removes every event at least VisibilityWindow old at now and
// returns how many were removed.
func (store *Store) Sweep(now time.Time) int {
	kept := store.events[:0]
	for _, event := range store.events {
		if event.Age(now) < VisibilityWindow {
			kept = append(kept, event)
		}
	}
	removed := len(store.events) - len(kept)
	// Zero the tail so swept events do not pin their strings.
	clear(store.events[len(kept):])
	store.events = kept
	return removed
}

// Len returns the number of events held.
func (store *Store) Len() int {
	return len(store.events)
}

// Events returns a copy of the held events in insertion order.
func (store *Store) Events() []ReactionEvent {
	if len(store.events) == 0 {
		return nil
	}
	events := make([]ReactionEvent, len(store.events))
	copy(events, store.events)
	return events
}
