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
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/livecanvas/lib/clock"
	"github.com/bureau-foundation/livecanvas/lib/logging"
	"github.com/bureau-foundation/livecanvas/lib/netutil"
	"github.com/bureau-foundation/livecanvas/presence"
)

// ServerConfig configures a relay Server. Zero values take the
// defaults noted on each field.
type ServerConfig struct {
	// Logger defaults to discarding.
	Logger *slog.Logger

	// Clock drives the broadcast rate limiter. Defaults to clock.Real().
	Clock clock.Clock

	// Metrics defaults to collectors on a private registry.
	Metrics *Metrics

	// OutboxSize is the per-participant queue length. Default 256.
	OutboxSize int

	// BroadcastRate and BroadcastBurst limit inbound broadcasts per
	// participant. Default 20/s with a burst of 40.
	BroadcastRate  rate.Limit
	BroadcastBurst int

	// MaxFrameBytes defaults to DefaultMaxFrameBytes.
	MaxFrameBytes int

	// HandshakeTimeout bounds the wait for Hello. Default 5s.
	HandshakeTimeout time.Duration
}

// writeTimeout bounds one frame write to a participant. A participant
// that cannot take a frame in this long is disconnected.
const writeTimeout = 10 * time.Second

// Server is the relay. It keeps each room's merged presence and fans
// broadcasts out to every member except the sender.
type Server struct {
	config  ServerConfig
	logger  *slog.Logger
	clock   clock.Clock
	metrics *Metrics

	nextID atomic.Uint64

	mu    sync.Mutex
	rooms map[string]*relayRoom

	activeConnections sync.WaitGroup
}

type relayRoom struct {
	name    string
	members map[string]*member
}

// member is one connected participant. Everything except outbox and
// limiter is guarded by Server.mu.
type member struct {
	id       string
	name     string
	room     *relayRoom
	presence presence.Presence
	outbox   chan Frame
	limiter  *rate.Limiter
}

// NewServer creates a relay Server.
func NewServer(config ServerConfig) *Server {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Metrics == nil {
		config.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	if config.OutboxSize <= 0 {
		config.OutboxSize = 256
	}
	if config.BroadcastRate <= 0 {
		config.BroadcastRate = 20
	}
	if config.BroadcastBurst <= 0 {
		config.BroadcastBurst = 40
	}
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 5 * time.Second
	}
	return &Server{
		config:  config,
		logger:  logging.OrDiscard(config.Logger),
		clock:   config.Clock,
		metrics: config.Metrics,
		rooms:   make(map[string]*relayRoom),
	}
}

// Listen opens a listener for Serve. For unix sockets the parent
// directory is created and a stale socket file is removed first.
func Listen(network, address string) (net.Listener, error) {
	if network == "unix" {
		if err := os.MkdirAll(filepath.Dir(address), 0o755); err != nil {
			return nil, fmt.Errorf("creating socket directory: %w", err)
		}
		if err := os.Remove(address); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale socket %s: %w", address, err)
		}
	}
	listener, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("listening on %s %s: %w", network, address, err)
	}
	return listener, nil
}

// Serve accepts connections until ctx is cancelled, then closes the
// listener and waits for every connection to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()

	// Unblock Accept when the context is cancelled.
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	s.logger.Info("relay listening", "network", listener.Addr().Network(), "address", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.ServeConn(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// ServeConn runs one participant connection to completion. It closes
// conn before returning.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	hello, err := s.readHello(conn)
	if err != nil {
		if !netutil.IsExpectedCloseError(err) {
			s.logger.Warn("handshake failed", "remote", conn.RemoteAddr().String(), "error", err)
		}
		return
	}

	participant := &member{
		id:      fmt.Sprintf("p-%d", s.nextID.Add(1)),
		name:    hello.Name,
		outbox:  make(chan Frame, s.config.OutboxSize),
		limiter: rate.NewLimiter(s.config.BroadcastRate, s.config.BroadcastBurst),
	}
	if err := s.join(hello.Room, participant); err != nil {
		s.logger.Error("joining room", "room", hello.Room, "error", err)
		return
	}
	logger := s.logger.With("room", hello.Room, "participant", participant.id)
	logger.Info("participant joined", "name", participant.name)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(conn, participant, logger)
	}()

	err = s.readLoop(conn, participant, logger)
	s.leave(participant)
	<-writerDone

	if err != nil && !netutil.IsExpectedCloseError(err) {
		logger.Warn("participant connection failed", "error", err)
	}
	logger.Info("participant left")
}

func (s *Server) readHello(conn net.Conn) (Hello, error) {
	conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout)) //nolint:realclock // kernel I/O deadline
	defer conn.SetReadDeadline(time.Time{})

	frame, err := ReadFrame(conn, s.config.MaxFrameBytes)
	if err != nil {
		return Hello{}, err
	}
	s.metrics.FramesReceived.WithLabelValues(frameName(frame.Type)).Inc()
	if frame.Type != FrameHello {
		return Hello{}, fmt.Errorf("first frame is %s, want hello", frameName(frame.Type))
	}
	var hello Hello
	if err := frame.Decode(&hello); err != nil {
		return Hello{}, err
	}
	if hello.Room == "" {
		return Hello{}, errors.New("hello without a room")
	}
	return hello, nil
}

// join adds participant to its room and queues the Welcome ahead of
// any frame another member can send it.
func (s *Server) join(roomName string, participant *member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, exists := s.rooms[roomName]
	if !exists {
		room = &relayRoom{name: roomName, members: make(map[string]*member)}
		s.rooms[roomName] = room
		s.metrics.Rooms.Inc()
	}

	welcome := Welcome{ParticipantID: participant.id}
	for _, other := range room.members {
		welcome.Others = append(welcome.Others, other.state())
	}
	slices.SortFunc(welcome.Others, func(a, b ParticipantState) int {
		return cmp.Compare(a.Participant, b.Participant)
	})
	frame, err := NewFrame(FrameWelcome, welcome)
	if err != nil {
		if len(room.members) == 0 {
			delete(s.rooms, roomName)
			s.metrics.Rooms.Dec()
		}
		return err
	}
	participant.outbox <- frame

	participant.room = room
	room.members[participant.id] = participant
	s.metrics.Participants.Inc()
	return nil
}

// leave removes participant, tells the rest of the room, and closes
// the participant's outbox so its writer drains and exits.
func (s *Server) leave(participant *member) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := participant.room
	delete(room.members, participant.id)
	s.metrics.Participants.Dec()
	close(participant.outbox)

	if len(room.members) == 0 {
		delete(s.rooms, room.name)
		s.metrics.Rooms.Dec()
		return
	}
	s.fanOutLocked(participant, FrameLeave, Leave{Participant: participant.id})
}

func (s *Server) readLoop(conn net.Conn, participant *member, logger *slog.Logger) error {
	for {
		frame, err := ReadFrame(conn, s.config.MaxFrameBytes)
		if err != nil {
			return err
		}
		s.metrics.FramesReceived.WithLabelValues(frameName(frame.Type)).Inc()

		switch frame.Type {
		case FramePresence:
			var update presence.PresenceUpdate
			if err := frame.Decode(&update); err != nil {
				s.dropMalformed(logger, frame, err)
				continue
			}
			s.updatePresence(participant, update)

		case FrameBroadcast:
			if !participant.limiter.AllowN(s.clock.Now(), 1) {
				s.metrics.FramesDropped.WithLabelValues(dropRateLimited).Inc()
				continue
			}
			var message BroadcastMessage
			if err := frame.Decode(&message); err != nil {
				s.dropMalformed(logger, frame, err)
				continue
			}
			s.mu.Lock()
			s.fanOutLocked(participant, FrameBroadcast, BroadcastMessage{From: participant.id, Payload: message.Payload})
			s.mu.Unlock()

		default:
			s.dropMalformed(logger, frame, fmt.Errorf("unexpected %s frame", frameName(frame.Type)))
		}
	}
}

func (s *Server) dropMalformed(logger *slog.Logger, frame Frame, err error) {
	s.metrics.FramesDropped.WithLabelValues(dropMalformed).Inc()
	logger.Warn("dropping frame", "type", frameName(frame.Type), "error", err)
}

func (s *Server) updatePresence(participant *member, update presence.PresenceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	participant.presence = participant.presence.Apply(update)
	s.fanOutLocked(participant, FramePresence, participant.state())
}

// fanOutLocked queues one frame to every member of sender's room
// except sender. Members whose outbox is full miss this frame.
func (s *Server) fanOutLocked(sender *member, frameType byte, value any) {
	frame, err := NewFrame(frameType, value)
	if err != nil {
		s.logger.Error("encoding fan-out frame", "error", err)
		return
	}
	for id, other := range sender.room.members {
		if id == sender.id {
			continue
		}
		select {
		case other.outbox <- frame:
		default:
			s.metrics.FramesDropped.WithLabelValues(dropOutboxFull).Inc()
		}
	}
}

func (s *Server) writeLoop(conn net.Conn, participant *member, logger *slog.Logger) {
	for frame := range participant.outbox {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:realclock // kernel I/O deadline
		if err := WriteFrame(conn, frame); err != nil {
			if !netutil.IsExpectedCloseError(err) {
				logger.Debug("write failed", "type", frameName(frame.Type), "error", err)
			}
			// Unblock the reader; leave will close the outbox.
			conn.Close()
			for range participant.outbox {
			}
			return
		}
	}
}

// RoomSize reports how many participants are connected to room.
func (s *Server) RoomSize(room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if relay, exists := s.rooms[room]; exists {
		return len(relay.members)
	}
	return 0
}

func (m *member) state() ParticipantState {
	return ParticipantState{Participant: m.id, Name: m.name, Presence: m.presence}
}
