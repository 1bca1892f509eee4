// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/bureau-foundation/livecanvas/presence"
)

var _ presence.Room = (*MemoryRoom)(nil)

// MemoryHub is an in-process room. Participants that join the same
// hub see each other's presence and broadcasts with no network in
// between. Broadcast handlers run synchronously on the sender's
// goroutine.
type MemoryHub struct {
	mu      sync.Mutex
	members map[string]*MemoryRoom
	nextID  int
}

// NewMemoryHub creates an empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{members: make(map[string]*MemoryRoom)}
}

// Join adds a participant named name and returns its view of the room.
func (h *MemoryHub) Join(name string) *MemoryRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	room := &MemoryRoom{
		hub:      h,
		id:       fmt.Sprintf("m-%d", h.nextID),
		name:     name,
		handlers: make(map[int]func(presence.InboundBroadcast)),
	}
	h.members[room.id] = room
	return room
}

// MemoryRoom is one participant's handle on a MemoryHub. All state is
// guarded by the hub's mutex.
type MemoryRoom struct {
	hub         *MemoryHub
	id          string
	name        string
	presence    presence.Presence
	handlers    map[int]func(presence.InboundBroadcast)
	nextHandler int
	left        bool
}

// ID is the participant ID within the hub.
func (r *MemoryRoom) ID() string {
	return r.id
}

// PublishPresence merges update into this participant's presence.
func (r *MemoryRoom) PublishPresence(update presence.PresenceUpdate) error {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	if r.left {
		return ErrDisconnected
	}
	r.presence = r.presence.Apply(update)
	return nil
}

// Broadcast calls every other participant's handlers with a private
// copy of payload before returning.
func (r *MemoryRoom) Broadcast(payload []byte) error {
	r.hub.mu.Lock()
	if r.left {
		r.hub.mu.Unlock()
		return ErrDisconnected
	}
	var handlers []func(presence.InboundBroadcast)
	for id, member := range r.hub.members {
		if id == r.id {
			continue
		}
		for _, handler := range member.handlers {
			handlers = append(handlers, handler)
		}
	}
	r.hub.mu.Unlock()

	for _, handler := range handlers {
		handler(presence.InboundBroadcast{From: r.id, Payload: slices.Clone(payload)})
	}
	return nil
}

// OnBroadcast registers handler for broadcasts from other participants.
func (r *MemoryRoom) OnBroadcast(handler func(presence.InboundBroadcast)) func() {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	key := r.nextHandler
	r.nextHandler++
	r.handlers[key] = handler
	return func() {
		r.hub.mu.Lock()
		defer r.hub.mu.Unlock()
		delete(r.handlers, key)
	}
}

// Others returns the other participants sorted by ID.
func (r *MemoryRoom) Others() []presence.Participant {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()

	var participants []presence.Participant
	for id, member := range r.hub.members {
		if id == r.id {
			continue
		}
		participant := presence.Participant{ID: id, Name: member.name, Presence: member.presence}
		if member.presence.Cursor != nil {
			cursor := *member.presence.Cursor
			participant.Presence.Cursor = &cursor
		}
		participants = append(participants, participant)
	}
	slices.SortFunc(participants, func(a, b presence.Participant) int { return cmp.Compare(a.ID, b.ID) })
	return participants
}

// Leave removes the participant from the hub. Later calls return
// ErrDisconnected; registered handlers are dropped.
func (r *MemoryRoom) Leave() {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	r.left = true
	clear(r.handlers)
	delete(r.hub.members, r.id)
}
