// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package presence keeps one participant's ephemeral canvas state in
// sync with everyone else in the session: where the pointer is, what it
// is doing, the emoji reactions floating on the canvas, and the inline
// chat message.
//
// The package is organized around the data flow:
//
//   - point.go: canvas-local coordinates and device-space translation
//   - mode.go: the interaction mode sum type and its transition table
//   - reaction.go: reaction events and the time-decayed store
//   - schema.go: the canonical presence record and broadcast payload
//   - room.go: the boundary to the presence/broadcast transport
//   - session.go: the event loop, publisher cadences, and remote merge
//   - input.go: pointer and keyboard entry points
//
// There is no central source of truth and no acknowledgement. Presence
// is a single snapshot per participant that each update overwrites.
// Reactions are sampled every 100 ms while the primary button is held,
// broadcast once, and forgotten by every participant four seconds after
// they saw them. A lost broadcast shortens one participant's trail of
// reactions and is otherwise invisible.
//
// A Session owns all mutable state on one goroutine. Every pointer,
// key, timer, and inbound broadcast handler runs there as one task, so
// the store and mode need no locks. Start acquires the tickers and the
// broadcast subscription; Close releases them.
package presence
