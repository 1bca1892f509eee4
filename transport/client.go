// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/livecanvas/lib/logging"
	"github.com/bureau-foundation/livecanvas/lib/netutil"
	"github.com/bureau-foundation/livecanvas/presence"
)

var (
	// ErrDisconnected is returned by Client methods once the relay
	// connection is gone.
	ErrDisconnected = errors.New("relay disconnected")

	// ErrBackpressure is returned when the outbound queue is full. The
	// update is dropped; the next one supersedes it.
	ErrBackpressure = errors.New("relay outbox full")
)

var _ presence.Room = (*Client)(nil)

// DialConfig configures a relay Client.
type DialConfig struct {
	// Network and Address locate the relay, as for net.Dial.
	Network string
	Address string

	// Room and Name are sent in Hello.
	Room string
	Name string

	// Logger defaults to discarding.
	Logger *slog.Logger

	// OutboxSize bounds queued outbound frames. Default 64.
	OutboxSize int

	// MaxFrameBytes defaults to DefaultMaxFrameBytes.
	MaxFrameBytes int
}

// Client is a participant's connection to a relay. It implements
// presence.Room.
type Client struct {
	conn          net.Conn
	logger        *slog.Logger
	id            string
	maxFrameBytes int
	outbox        chan Frame

	mu          sync.Mutex
	others      map[string]presence.Participant
	handlers    map[int]func(presence.InboundBroadcast)
	nextHandler int
	err         error

	closeOnce  sync.Once
	closed     chan struct{}
	goroutines sync.WaitGroup
}

// Dial connects to the relay and completes the handshake. ctx bounds
// the dial and the handshake only.
func Dial(ctx context.Context, config DialConfig) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, config.Network, config.Address)
	if err != nil {
		return nil, fmt.Errorf("dialing relay %s %s: %w", config.Network, config.Address, err)
	}
	client, err := NewClient(ctx, conn, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

// NewClient performs the handshake over an established connection and
// starts the reader and writer goroutines. Network and Address in
// config are ignored.
func NewClient(ctx context.Context, conn net.Conn, config DialConfig) (*Client, error) {
	if config.Room == "" {
		return nil, errors.New("transport: DialConfig.Room is required")
	}
	if config.OutboxSize <= 0 {
		config.OutboxSize = 64
	}
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = DefaultMaxFrameBytes
	}

	welcome, err := handshake(ctx, conn, config)
	if err != nil {
		return nil, err
	}

	client := &Client{
		conn:          conn,
		logger:        logging.OrDiscard(config.Logger).With("participant", welcome.ParticipantID),
		id:            welcome.ParticipantID,
		maxFrameBytes: config.MaxFrameBytes,
		outbox:        make(chan Frame, config.OutboxSize),
		others:        make(map[string]presence.Participant),
		handlers:      make(map[int]func(presence.InboundBroadcast)),
		closed:        make(chan struct{}),
	}
	for _, state := range welcome.Others {
		client.others[state.Participant] = state.participant()
	}

	client.goroutines.Add(2)
	go client.readLoop()
	go client.writeLoop()
	return client, nil
}

// handshake sends Hello and waits for Welcome. Cancelling ctx
// poisons the connection deadline, which unblocks both steps.
func handshake(ctx context.Context, conn net.Conn, config DialConfig) (Welcome, error) {
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	welcome, err := exchangeHello(conn, config)
	if !stop() {
		return Welcome{}, fmt.Errorf("relay handshake: %w", ctx.Err())
	}
	return welcome, err
}

func exchangeHello(conn net.Conn, config DialConfig) (Welcome, error) {
	hello, err := NewFrame(FrameHello, Hello{Room: config.Room, Name: config.Name})
	if err != nil {
		return Welcome{}, err
	}
	if err := WriteFrame(conn, hello); err != nil {
		return Welcome{}, fmt.Errorf("sending hello: %w", err)
	}

	frame, err := ReadFrame(conn, config.MaxFrameBytes)
	if err != nil {
		return Welcome{}, fmt.Errorf("waiting for welcome: %w", err)
	}
	if frame.Type != FrameWelcome {
		return Welcome{}, fmt.Errorf("relay answered hello with %s", frameName(frame.Type))
	}
	var welcome Welcome
	if err := frame.Decode(&welcome); err != nil {
		return Welcome{}, err
	}
	return welcome, nil
}

// ID is the participant ID the relay assigned.
func (c *Client) ID() string {
	return c.id
}

// PublishPresence queues a presence update.
func (c *Client) PublishPresence(update presence.PresenceUpdate) error {
	frame, err := NewFrame(FramePresence, update)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// Broadcast queues payload for every other participant in the room.
func (c *Client) Broadcast(payload []byte) error {
	frame, err := NewFrame(FrameBroadcast, BroadcastMessage{Payload: payload})
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// OnBroadcast registers handler for broadcasts from other
// participants. Handlers run on the reader goroutine.
func (c *Client) OnBroadcast(handler func(presence.InboundBroadcast)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.nextHandler
	c.nextHandler++
	c.handlers[key] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, key)
	}
}

// Others returns the other participants sorted by ID.
func (c *Client) Others() []presence.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	participants := make([]presence.Participant, 0, len(c.others))
	for _, participant := range c.others {
		participants = append(participants, participant)
	}
	slices.SortFunc(participants, func(a, b presence.Participant) int { return cmp.Compare(a.ID, b.ID) })
	return participants
}

// Done is closed when the connection ends, by Close or by the relay.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// Err reports why the connection ended, or nil if it was closed
// locally or is still open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the connection and waits for the reader and writer to
// exit. Safe to call more than once.
func (c *Client) Close() error {
	c.shutdown(nil)
	c.goroutines.Wait()
	return nil
}

func (c *Client) enqueue(frame Frame) error {
	select {
	case <-c.closed:
		return ErrDisconnected
	default:
	}
	select {
	case c.outbox <- frame:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		if cause != nil && !netutil.IsExpectedCloseError(cause) {
			c.mu.Lock()
			c.err = cause
			c.mu.Unlock()
			c.logger.Warn("relay connection lost", "error", cause)
		}
		close(c.closed)
		c.conn.Close()
	})
}

func (c *Client) readLoop() {
	defer c.goroutines.Done()
	for {
		frame, err := ReadFrame(c.conn, c.maxFrameBytes)
		if err != nil {
			c.shutdown(err)
			return
		}
		if err := c.dispatch(frame); err != nil {
			c.logger.Warn("dropping frame from relay", "type", frameName(frame.Type), "error", err)
		}
	}
}

func (c *Client) dispatch(frame Frame) error {
	switch frame.Type {
	case FramePresence:
		var state ParticipantState
		if err := frame.Decode(&state); err != nil {
			return err
		}
		c.mu.Lock()
		c.others[state.Participant] = state.participant()
		c.mu.Unlock()

	case FrameBroadcast:
		var message BroadcastMessage
		if err := frame.Decode(&message); err != nil {
			return err
		}
		c.mu.Lock()
		handlers := make([]func(presence.InboundBroadcast), 0, len(c.handlers))
		for _, handler := range c.handlers {
			handlers = append(handlers, handler)
		}
		c.mu.Unlock()
		for _, handler := range handlers {
			handler(presence.InboundBroadcast{From: message.From, Payload: message.Payload})
		}

	case FrameLeave:
		var leave Leave
		if err := frame.Decode(&leave); err != nil {
			return err
		}
		c.mu.Lock()
		delete(c.others, leave.Participant)
		c.mu.Unlock()

	default:
		return fmt.Errorf("unexpected %s frame", frameName(frame.Type))
	}
	return nil
}

func (c *Client) writeLoop() {
	defer c.goroutines.Done()
	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:realclock // kernel I/O deadline
			if err := WriteFrame(c.conn, frame); err != nil {
				c.shutdown(err)
				return
			}
		}
	}
}

func (state ParticipantState) participant() presence.Participant {
	return presence.Participant{ID: state.Participant, Name: state.Name, Presence: state.Presence}
}
