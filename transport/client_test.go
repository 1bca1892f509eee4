// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bureau-foundation/livecanvas/lib/testutil"
	"github.com/bureau-foundation/livecanvas/presence"
)

// fakeRelay is the relay end of a net.Pipe, driven by the test.
type fakeRelay struct {
	rawParticipant
	hello Hello
}

// connectClient runs the handshake with welcome as the relay's answer.
func connectClient(t *testing.T, welcome Welcome, config DialConfig) (*Client, *fakeRelay) {
	t.Helper()
	local, remote := net.Pipe()
	relay := &fakeRelay{rawParticipant: rawParticipant{t: t, conn: remote}}
	t.Cleanup(func() { remote.Close() })

	handshakeDone := make(chan error, 1)
	go func() {
		frame, err := ReadFrame(remote, 0)
		if err == nil {
			err = frame.Decode(&relay.hello)
		}
		if err == nil {
			var answer Frame
			answer, err = NewFrame(FrameWelcome, welcome)
			if err == nil {
				err = WriteFrame(remote, answer)
			}
		}
		handshakeDone <- err
	}()

	if config.Room == "" {
		config.Room = "canvas"
	}
	client, err := NewClient(context.Background(), local, config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	if err := testutil.RequireReceive(t, handshakeDone, testTimeout, "relay side of handshake"); err != nil {
		t.Fatalf("relay handshake: %v", err)
	}
	return client, relay
}

func TestClientHandshake(t *testing.T) {
	t.Parallel()
	welcome := Welcome{
		ParticipantID: "p-7",
		Others: []ParticipantState{
			{Participant: "p-9", Name: "zed"},
			{Participant: "p-3", Name: "ann"},
		},
	}
	client, relay := connectClient(t, welcome, DialConfig{Room: "design", Name: "me"})

	if relay.hello != (Hello{Room: "design", Name: "me"}) {
		t.Errorf("hello = %+v", relay.hello)
	}
	if client.ID() != "p-7" {
		t.Errorf("ID = %q, want p-7", client.ID())
	}
	others := client.Others()
	if len(others) != 2 || others[0].ID != "p-3" || others[1].ID != "p-9" {
		t.Errorf("Others = %+v, want p-3 then p-9", others)
	}
}

func TestClientTracksOthers(t *testing.T) {
	t.Parallel()
	client, relay := connectClient(t, Welcome{ParticipantID: "p-1"}, DialConfig{})

	inbound := make(chan presence.InboundBroadcast, 1)
	client.OnBroadcast(func(message presence.InboundBroadcast) { inbound <- message })

	cursor := presence.Point{X: 2, Y: 3}
	relay.send(FramePresence, ParticipantState{Participant: "p-2", Name: "bob", Presence: presence.Presence{Cursor: &cursor, Message: "yo"}})
	relay.send(FramePresence, ParticipantState{Participant: "p-3", Name: "cat"})
	relay.send(FrameLeave, Leave{Participant: "p-3"})
	// Frames are handled in order, so once this arrives the rest have.
	relay.send(FrameBroadcast, BroadcastMessage{From: "p-2", Payload: []byte("sync")})

	message := testutil.RequireReceive(t, inbound, testTimeout, "broadcast")
	if message.From != "p-2" || string(message.Payload) != "sync" {
		t.Errorf("broadcast = %+v", message)
	}
	others := client.Others()
	if len(others) != 1 {
		t.Fatalf("Others = %+v, want only p-2", others)
	}
	if others[0].Name != "bob" || others[0].Presence.Message != "yo" || others[0].Presence.Cursor == nil || *others[0].Presence.Cursor != cursor {
		t.Errorf("p-2 = %+v", others[0])
	}
}

func TestClientSendsFrames(t *testing.T) {
	t.Parallel()
	client, relay := connectClient(t, Welcome{ParticipantID: "p-1"}, DialConfig{})

	if err := client.PublishPresence(presence.MessageUpdate("hello")); err != nil {
		t.Fatalf("PublishPresence: %v", err)
	}
	if err := client.Broadcast([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	var update presence.PresenceUpdate
	frame := relay.read()
	if frame.Type != FramePresence {
		t.Fatalf("got %s, want presence", frameName(frame.Type))
	}
	if err := frame.Decode(&update); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if update.Fields != presence.FieldMessage || update.Message != "hello" {
		t.Errorf("update = %+v", update)
	}

	var message BroadcastMessage
	frame = relay.read()
	if frame.Type != FrameBroadcast {
		t.Fatalf("got %s, want broadcast", frameName(frame.Type))
	}
	if err := frame.Decode(&message); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if message.From != "" || string(message.Payload) != "\x01\x02\x03" {
		t.Errorf("message = %+v", message)
	}
}

func TestClientBackpressure(t *testing.T) {
	t.Parallel()
	// The relay never reads, so the writer blocks on its first frame.
	client, _ := connectClient(t, Welcome{ParticipantID: "p-1"}, DialConfig{OutboxSize: 1})

	var backpressure int
	for range 3 {
		if err := client.Broadcast([]byte("x")); errors.Is(err, ErrBackpressure) {
			backpressure++
		} else if err != nil {
			t.Fatalf("Broadcast: %v", err)
		}
	}
	if backpressure == 0 {
		t.Error("three sends into a one-frame outbox never reported backpressure")
	}
}

func TestClientRelayDisconnect(t *testing.T) {
	t.Parallel()
	client, relay := connectClient(t, Welcome{ParticipantID: "p-1"}, DialConfig{})

	relay.conn.Close()
	testutil.RequireClosed(t, client.Done(), testTimeout, "client noticing the relay is gone")
	if err := client.Err(); err != nil {
		t.Errorf("Err after clean close = %v, want nil", err)
	}
	if err := client.PublishPresence(presence.ClearUpdate()); !errors.Is(err, ErrDisconnected) {
		t.Errorf("PublishPresence = %v, want ErrDisconnected", err)
	}
	// Close after the relay hung up still returns.
	client.Close()
}

func TestClientRejectsWrongAnswer(t *testing.T) {
	t.Parallel()
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()
	go func() {
		if _, err := ReadFrame(remote, 0); err != nil {
			return
		}
		_ = WriteFrame(remote, Frame{Type: FrameLeave})
	}()

	if _, err := NewClient(context.Background(), local, DialConfig{Room: "canvas"}); err == nil {
		t.Error("handshake accepted a leave frame as welcome")
	}
}

func TestClientHandshakeHonoursContext(t *testing.T) {
	t.Parallel()
	local, remote := net.Pipe()
	defer remote.Close()
	defer local.Close()
	// Read the hello but never answer.
	go ReadFrame(remote, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(ctx, local, DialConfig{Room: "canvas"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("NewClient = %v, want context.DeadlineExceeded", err)
	}
}

func TestClientRequiresRoom(t *testing.T) {
	t.Parallel()
	local, remote := net.Pipe()
	defer local.Close()
	defer remote.Close()
	if _, err := NewClient(context.Background(), local, DialConfig{}); err == nil {
		t.Error("NewClient without a room succeeded")
	}
}

func TestDialUnreachable(t *testing.T) {
	t.Parallel()
	_, err := Dial(context.Background(), DialConfig{Network: "unix", Address: "/nonexistent/livecanvas.sock", Room: "canvas"})
	if err == nil {
		t.Error("Dial to a missing socket succeeded")
	}
}
