// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/livecanvas/lib/clock"
	"github.com/bureau-foundation/livecanvas/lib/logging"
)

// ErrSessionClosed is returned by input methods after Close, or after
// the context passed to Start is cancelled.
var ErrSessionClosed = errors.New("presence session closed")

// defaultInboxSize bounds inbound broadcasts waiting for the session
// goroutine. At ten reactions per second per participant this holds
// several seconds of traffic from a busy room.
const defaultInboxSize = 256

// Config configures a Session.
type Config struct {
	// Room is the transport. Required.
	Room Room

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// OnChange, if set, is called on the session goroutine with the
	// new visible state after every mode change, presence change,
	// reaction add, and sweep. It must not block and must not call
	// back into the Session.
	OnChange func(Snapshot)

	// InboxSize bounds buffered inbound broadcasts. Broadcasts
	// arriving while the inbox is full are dropped.
	InboxSize int
}

// Snapshot is the locally visible state at one instant.
type Snapshot struct {
	Mode      Mode
	Presence  Presence
	Reactions []ReactionEvent
}

// Session is one participant's view of a shared canvas. All fields
// below the channels are owned by the run goroutine.
type Session struct {
	room     Room
	clock    clock.Clock
	logger   *slog.Logger
	onChange func(Snapshot)

	tasks chan func()
	inbox chan InboundBroadcast

	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}

	mode     Mode
	presence Presence
	store    *Store
}

// Start subscribes to the room's broadcasts, starts the sample and
// sweep tickers, and runs the session goroutine until Close is called
// or ctx is cancelled. Both tickers and the subscription are released
// when the goroutine exits, whatever the reason.
func Start(ctx context.Context, config Config) (*Session, error) {
	if config.Room == nil {
		return nil, errors.New("presence: Config.Room is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.InboxSize <= 0 {
		config.InboxSize = defaultInboxSize
	}

	loopContext, cancel := context.WithCancel(ctx)
	session := &Session{
		room:     config.Room,
		clock:    config.Clock,
		logger:   logging.OrDiscard(config.Logger),
		onChange: config.OnChange,
		tasks:    make(chan func()),
		inbox:    make(chan InboundBroadcast, config.InboxSize),
		cancel:   cancel,
		done:     make(chan struct{}),
		mode:     Hidden{},
		store:    NewStore(),
	}

	unsubscribe := config.Room.OnBroadcast(session.receive)
	// The two cadences are independent: how fast reactions decay
	// locally is unrelated to how fast they are put on the network.
	sampleTicker := session.clock.NewTicker(SampleInterval)
	sweepTicker := session.clock.NewTicker(SweepInterval)

	go session.run(loopContext, sampleTicker, sweepTicker, unsubscribe)
	return session, nil
}

// Close stops the session and waits for its goroutine to release the
// tickers and the broadcast subscription. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(s.cancel)
	<-s.done
	return nil
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Others returns the other participants as the room last reported
// them.
func (s *Session) Others() []Participant {
	return s.room.Others()
}

// Snapshot returns the current visible state.
func (s *Session) Snapshot() (Snapshot, error) {
	var snapshot Snapshot
	err := s.do(func() { snapshot = s.snapshot() })
	return snapshot, err
}

func (s *Session) run(ctx context.Context, sampleTicker, sweepTicker *clock.Ticker, unsubscribe func()) {
	defer close(s.done)
	defer unsubscribe()
	defer sweepTicker.Stop()
	defer sampleTicker.Stop()

	for ctx.Err() == nil {
		s.drainPending(sampleTicker, sweepTicker)

		select {
		case <-ctx.Done():
		case task := <-s.tasks:
			task()
		case inbound := <-s.inbox:
			s.merge(inbound)
		case <-sampleTicker.C:
			s.sample()
		case <-sweepTicker.C:
			s.sweep()
		}
	}
	s.logger.Debug("presence session stopped", "reactions", s.store.Len())
}

// drainPending runs the ticks and broadcasts already queued, so the
// next input task sees the state that elapsed time has produced.
// Broadcasts that arrive meanwhile wait for the following round, which
// keeps a busy room from holding input off indefinitely.
func (s *Session) drainPending(sampleTicker, sweepTicker *clock.Ticker) {
	select {
	case <-sampleTicker.C:
		s.sample()
	default:
	}
	select {
	case <-sweepTicker.C:
		s.sweep()
	default:
	}
	for range len(s.inbox) {
		s.merge(<-s.inbox)
	}
}

// do runs task on the session goroutine and waits for it to finish.
func (s *Session) do(task func()) error {
	finished := make(chan struct{})
	select {
	case s.tasks <- func() {
		defer close(finished)
		task()
	}:
	case <-s.done:
		return ErrSessionClosed
	}
	<-finished
	return nil
}

// apply runs the mode state machine and carries out its effects.
func (s *Session) apply(input Input) Effect {
	next, effect := Transition(s.mode, input)

	switch {
	case effect.Has(EffectClearPresence):
		s.publish(ClearUpdate())
	case effect.Has(EffectClearMessage):
		s.publish(MessageUpdate(""))
	}

	if next != s.mode {
		s.logger.Debug("mode changed", "from", ModeName(s.mode), "to", ModeName(next))
		s.mode = next
	}
	s.changed()
	return effect
}

// publish mirrors update locally and sends it. A transport error loses
// this update only.
func (s *Session) publish(update PresenceUpdate) {
	s.presence = s.presence.Apply(update)
	if err := s.room.PublishPresence(update); err != nil {
		s.logger.Debug("presence update lost", "error", err)
	}
}

// sample emits one reaction while a reaction is armed and pressed.
func (s *Session) sample() {
	armed, ok := s.mode.(Reaction)
	if !ok || !armed.IsPressed || s.presence.Cursor == nil {
		return
	}

	point := *s.presence.Cursor
	s.store.Add(ReactionEvent{
		Point:     point,
		Value:     armed.Reaction,
		Timestamp: s.clock.Now(),
	})

	payload, err := EncodeReactionBroadcast(point, armed.Reaction)
	if err != nil {
		s.logger.Error("encoding reaction", "error", err)
	} else if err := s.room.Broadcast(payload); err != nil {
		s.logger.Debug("reaction broadcast lost", "error", err)
	}
	s.changed()
}

func (s *Session) sweep() {
	if removed := s.store.Sweep(s.clock.Now()); removed > 0 {
		s.logger.Debug("swept reactions", "removed", removed, "remaining", s.store.Len())
	}
	s.changed()
}

// receive is the room's broadcast handler. It runs on the transport's
// goroutine, so it only queues.
func (s *Session) receive(inbound InboundBroadcast) {
	inbound.Payload = append([]byte(nil), inbound.Payload...)
	select {
	case s.inbox <- inbound:
	default:
		s.logger.Debug("inbox full, dropping broadcast", "from", inbound.From)
	}
}

// merge folds an inbound reaction into the store, stamped with this
// participant's clock.
func (s *Session) merge(inbound InboundBroadcast) {
	point, value, err := DecodeReactionBroadcast(inbound.Payload)
	if err != nil {
		s.logger.Warn("dropping broadcast", "from", inbound.From, "error", err,
			"payload", describePayload(inbound.Payload))
		return
	}
	s.store.Add(ReactionEvent{Point: point, Value: value, Timestamp: s.clock.Now()})
	s.changed()
}

func (s *Session) snapshot() Snapshot {
	presence := s.presence
	if presence.Cursor != nil {
		cursor := *presence.Cursor
		presence.Cursor = &cursor
	}
	return Snapshot{
		Mode:      s.mode,
		Presence:  presence,
		Reactions: s.store.Events(),
	}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}
