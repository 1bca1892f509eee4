// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/livecanvas/lib/codec"
)

// Presence is the canonical per-participant snapshot. The publisher
// writes it and every renderer reads it; no other shape exists.
type Presence struct {
	// Cursor is nil when the participant has no pointer on the canvas.
	Cursor *Point `json:"cursor,omitempty"`

	// Message is the inline chat text being composed, "" for none.
	Message string `json:"message,omitempty"`
}

// PresenceField selects which fields of a PresenceUpdate apply.
type PresenceField uint8

const (
	FieldCursor PresenceField = 1 << iota
	FieldMessage
)

// PresenceUpdate overwrites the fields named in Fields and leaves the
// rest of the record alone. A FieldCursor update with a nil Cursor
// clears the cursor.
type PresenceUpdate struct {
	Fields  PresenceField `json:"fields"`
	Cursor  *Point        `json:"cursor,omitempty"`
	Message string        `json:"message,omitempty"`
}

// CursorUpdate sets or, with nil, clears the cursor.
func CursorUpdate(cursor *Point) PresenceUpdate {
	return PresenceUpdate{Fields: FieldCursor, Cursor: cursor}
}

// MessageUpdate sets the chat message.
func MessageUpdate(message string) PresenceUpdate {
	return PresenceUpdate{Fields: FieldMessage, Message: message}
}

// ClearUpdate clears both the cursor and the message.
func ClearUpdate() PresenceUpdate {
	return PresenceUpdate{Fields: FieldCursor | FieldMessage}
}

// Apply returns presence with update merged over it.
func (presence Presence) Apply(update PresenceUpdate) Presence {
	if update.Fields&FieldCursor != 0 {
		if update.Cursor == nil {
			presence.Cursor = nil
		} else {
			cursor := *update.Cursor
			presence.Cursor = &cursor
		}
	}
	if update.Fields&FieldMessage != 0 {
		presence.Message = update.Message
	}
	return presence
}

// Participant is another member of the session as last seen.
type Participant struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Presence Presence `json:"presence"`
}

// ErrMalformedBroadcast is returned by DecodeReactionBroadcast when a
// payload lacks a coordinate or a value.
var ErrMalformedBroadcast = errors.New("malformed reaction broadcast")

// ReactionBroadcast is the payload fanned out for each sampled
// reaction. The coordinates are pointers so a missing field can be
// told apart from zero.
type ReactionBroadcast struct {
	X     *float64 `cbor:"x"`
	Y     *float64 `cbor:"y"`
	Value string   `cbor:"value"`
}

// EncodeReactionBroadcast encodes a reaction at point.
func EncodeReactionBroadcast(point Point, value string) ([]byte, error) {
	x, y := point.X, point.Y
	data, err := codec.Marshal(ReactionBroadcast{X: &x, Y: &y, Value: value})
	if err != nil {
		return nil, fmt.Errorf("encoding reaction broadcast: %w", err)
	}
	return data, nil
}

// DecodeReactionBroadcast decodes and validates an inbound payload.
func DecodeReactionBroadcast(payload []byte) (Point, string, error) {
	var broadcast ReactionBroadcast
	if err := codec.Unmarshal(payload, &broadcast); err != nil {
		return Point{}, "", fmt.Errorf("%w: %v", ErrMalformedBroadcast, err)
	}
	switch {
	case broadcast.X == nil:
		return Point{}, "", fmt.Errorf("%w: missing x", ErrMalformedBroadcast)
	case broadcast.Y == nil:
		return Point{}, "", fmt.Errorf("%w: missing y", ErrMalformedBroadcast)
	case broadcast.Value == "":
		return Point{}, "", fmt.Errorf("%w: missing value", ErrMalformedBroadcast)
	}
	return Point{X: *broadcast.X, Y: *broadcast.Y}, broadcast.Value, nil
}

// describePayload renders a payload for logs: CBOR diagnostic notation,
// or hex when it is not CBOR at all.
func describePayload(payload []byte) string {
	notation, err := codec.Diagnose(payload)
	if err != nil {
		return fmt.Sprintf("%x", payload)
	}
	return notation
}
