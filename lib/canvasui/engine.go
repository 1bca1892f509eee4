// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvasui

import (
	"sync/atomic"

	"github.com/bureau-foundation/livecanvas/presence"
)

// Engine is the input side of a presence session. *presence.Session
// implements it.
type Engine interface {
	PointerMove(event presence.PointerEvent) error
	PointerDown(event presence.PointerEvent) error
	PointerUp() error
	PointerLeave() error
	KeyPress(key string) (preventDefault bool, err error)
	SelectReaction(reaction string) error
	ChatInput(text string) error
	ChatSubmit() error
	Others() []presence.Participant
}

var _ Engine = (*presence.Session)(nil)

// Latest holds the most recent session snapshot. Its Store method is
// meant to be the session's OnChange callback.
type Latest struct {
	current atomic.Pointer[presence.Snapshot]
}

// Store replaces the held snapshot. Safe from any goroutine.
func (latest *Latest) Store(snapshot presence.Snapshot) {
	latest.current.Store(&snapshot)
}

// Load returns the held snapshot, or the initial Hidden state if none
// has been stored.
func (latest *Latest) Load() presence.Snapshot {
	if snapshot := latest.current.Load(); snapshot != nil {
		return *snapshot
	}
	return presence.Snapshot{Mode: presence.Hidden{}}
}
