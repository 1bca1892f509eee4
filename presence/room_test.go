// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"errors"
	"sync"
)

// recordingRoom is a Room that records what a session publishes and
// lets a test inject inbound broadcasts.
type recordingRoom struct {
	mu           sync.Mutex
	presence     Presence
	updates      []PresenceUpdate
	handler      func(InboundBroadcast)
	unsubscribed bool
	failures     error

	// broadcasts receives every payload passed to Broadcast.
	broadcasts chan []byte
}

func newRecordingRoom() *recordingRoom {
	return &recordingRoom{broadcasts: make(chan []byte, 64)}
}

var errRoomDown = errors.New("room unavailable")

func (room *recordingRoom) PublishPresence(update PresenceUpdate) error {
	room.mu.Lock()
	defer room.mu.Unlock()
	room.updates = append(room.updates, update)
	if room.failures != nil {
		return room.failures
	}
	room.presence = room.presence.Apply(update)
	return nil
}

func (room *recordingRoom) Broadcast(payload []byte) error {
	room.broadcasts <- payload
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.failures
}

func (room *recordingRoom) OnBroadcast(handler func(InboundBroadcast)) func() {
	room.mu.Lock()
	defer room.mu.Unlock()
	room.handler = handler
	return func() {
		room.mu.Lock()
		defer room.mu.Unlock()
		room.handler = nil
		room.unsubscribed = true
	}
}

func (room *recordingRoom) Others() []Participant { return nil }

// deliver calls the registered handler as a transport goroutine would.
func (room *recordingRoom) deliver(inbound InboundBroadcast) {
	room.mu.Lock()
	handler := room.handler
	room.mu.Unlock()
	if handler != nil {
		handler(inbound)
	}
}

func (room *recordingRoom) published() Presence {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.presence
}

func (room *recordingRoom) isUnsubscribed() bool {
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.unsubscribed
}

func (room *recordingRoom) setFailures(err error) {
	room.mu.Lock()
	defer room.mu.Unlock()
	room.failures = err
}
