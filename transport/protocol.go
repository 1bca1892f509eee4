// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/livecanvas/lib/codec"
	"github.com/bureau-foundation/livecanvas/presence"
)

// Frame types.
const (
	// FrameHello opens a connection. Client to server, payload Hello.
	FrameHello byte = 0x01

	// FrameWelcome answers Hello. Server to client, payload Welcome.
	FrameWelcome byte = 0x02

	// FramePresence is a presence.PresenceUpdate from a client, or a
	// ParticipantState from the server carrying the merged record.
	FramePresence byte = 0x03

	// FrameBroadcast carries an opaque payload. From the server, From
	// names the sender.
	FrameBroadcast byte = 0x04

	// FrameLeave announces that a participant disconnected. Server to
	// client only.
	FrameLeave byte = 0x05
)

// frameHeaderLength is 1 byte type + 4 bytes payload length.
const frameHeaderLength = 5

// DefaultMaxFrameBytes bounds a frame payload when no limit is
// configured. Reaction broadcasts are tens of bytes; a Welcome for a
// large room is the biggest frame in practice.
const DefaultMaxFrameBytes = 64 * 1024

// ErrFrameTooLarge is returned by ReadFrame for a payload over the
// limit. The stream cannot be resynchronised after it.
var ErrFrameTooLarge = errors.New("frame payload too large")

// Frame is one protocol frame.
type Frame struct {
	Type    byte
	Payload []byte
}

// Hello is the first frame a client sends.
type Hello struct {
	Room string `cbor:"room"`
	Name string `cbor:"name"`
}

// Welcome assigns the connecting participant its ID and lists who is
// already in the room.
type Welcome struct {
	ParticipantID string             `cbor:"participant_id"`
	Others        []ParticipantState `cbor:"others"`
}

// ParticipantState is one participant's merged presence as the relay
// holds it.
type ParticipantState struct {
	Participant string            `cbor:"participant"`
	Name        string            `cbor:"name"`
	Presence    presence.Presence `cbor:"presence"`
}

// BroadcastMessage is the Broadcast payload. From is empty on frames a
// client sends and set by the relay on frames it forwards.
type BroadcastMessage struct {
	From    string `cbor:"from,omitempty"`
	Payload []byte `cbor:"payload"`
}

// Leave names a participant that has gone.
type Leave struct {
	Participant string `cbor:"participant"`
}

// NewFrame encodes value as the payload of a frame of the given type.
func NewFrame(frameType byte, value any) (Frame, error) {
	payload, err := codec.Marshal(value)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding frame 0x%02x: %w", frameType, err)
	}
	return Frame{Type: frameType, Payload: payload}, nil
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	if err := codec.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("decoding frame 0x%02x: %w", f.Type, err)
	}
	return nil
}

// WriteFrame writes one frame to w with a single Write call, so
// concurrent writers on a stream socket never interleave headers.
func WriteFrame(w io.Writer, frame Frame) error {
	buffer := make([]byte, frameHeaderLength+len(frame.Payload))
	buffer[0] = frame.Type
	binary.BigEndian.PutUint32(buffer[1:frameHeaderLength], uint32(len(frame.Payload)))
	copy(buffer[frameHeaderLength:], frame.Payload)
	if _, err := w.Write(buffer); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r. A maxPayload of zero or less means
// DefaultMaxFrameBytes.
func ReadFrame(r io.Reader, maxPayload int) (Frame, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxFrameBytes
	}

	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}
	payloadLength := binary.BigEndian.Uint32(header[1:frameHeaderLength])
	if uint64(payloadLength) > uint64(maxPayload) {
		return Frame{}, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, payloadLength, maxPayload)
	}
	payload := make([]byte, payloadLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("read frame payload: %w", err)
	}
	return Frame{Type: header[0], Payload: payload}, nil
}

// frameName is used in logs and metric labels.
func frameName(frameType byte) string {
	switch frameType {
	case FrameHello:
		return "hello"
	case FrameWelcome:
		return "welcome"
	case FramePresence:
		return "presence"
	case FrameBroadcast:
		return "broadcast"
	case FrameLeave:
		return "leave"
	default:
		return "unknown"
	}
}
