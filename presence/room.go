// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

// Room is the presence and broadcast transport a Session publishes
// through. Implementations live in package transport.
//
// None of the methods may block on the network. PublishPresence and
// Broadcast are fire-and-forget: an error means this update was lost,
// and the session does not retry it.
type Room interface {
	// PublishPresence merges update over this participant's presence
	// as seen by everyone else.
	PublishPresence(update PresenceUpdate) error

	// Broadcast fans payload out to every other participant, best
	// effort, unordered, unacknowledged.
	Broadcast(payload []byte) error

	// OnBroadcast registers handler for every inbound broadcast and
	// returns a function that removes it. Handlers are called from
	// the transport's goroutine and must not block.
	OnBroadcast(handler func(InboundBroadcast)) (unsubscribe func())

	// Others returns a snapshot of the other participants.
	Others() []Participant
}

// InboundBroadcast is a broadcast received from another participant.
// Payload has not been validated.
type InboundBroadcast struct {
	From    string
	Payload []byte
}
