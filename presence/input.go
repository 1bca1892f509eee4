// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

// The methods in this file are the canvas input adapter. Each runs as
// one task on the session goroutine and returns once it has been
// applied, or ErrSessionClosed.

// PointerMove publishes the pointer position. While the reaction
// selector is open and a cursor is already shown, the move is ignored
// so that reaching for the selector does not drag the visible cursor
// along.
func (s *Session) PointerMove(event PointerEvent) error {
	return s.do(func() {
		if _, selecting := s.mode.(ReactionSelector); selecting && s.presence.Cursor != nil {
			return
		}
		local := event.Local()
		s.publish(CursorUpdate(&local))
		s.changed()
	})
}

// PointerDown publishes the pointer position and presses an armed
// reaction.
func (s *Session) PointerDown(event PointerEvent) error {
	return s.do(func() {
		local := event.Local()
		s.publish(CursorUpdate(&local))
		s.apply(PrimaryDown{})
	})
}

// PointerUp releases an armed reaction.
func (s *Session) PointerUp() error {
	return s.do(func() { s.apply(PrimaryUp{}) })
}

// PointerLeave hides the pointer and clears this participant's cursor
// and message for everyone.
func (s *Session) PointerLeave() error {
	return s.do(func() { s.apply(PointerLeave{}) })
}

// KeyPress applies a key and reports whether the key's default
// behavior (inserting "/" into a text field) must be suppressed.
func (s *Session) KeyPress(key string) (preventDefault bool, err error) {
	err = s.do(func() {
		preventDefault = s.apply(KeyPress{Key: key}).Has(EffectPreventDefault)
	})
	return preventDefault, err
}

// SelectReaction arms reaction if the selector is open.
func (s *Session) SelectReaction(reaction string) error {
	return s.do(func() { s.apply(SelectReaction{Reaction: reaction}) })
}

// ChatInput replaces the message being composed and publishes it.
func (s *Session) ChatInput(text string) error {
	return s.do(func() {
		if _, composing := s.mode.(Chat); composing {
			s.publish(MessageUpdate(text))
		}
		s.apply(ChatInput{Text: text})
	})
}

// ChatSubmit moves the composed message to PreviousMessage. The
// published message stays up until the next input or Escape.
func (s *Session) ChatSubmit() error {
	return s.do(func() { s.apply(ChatSubmit{}) })
}
