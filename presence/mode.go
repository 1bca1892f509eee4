// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import "fmt"

// Mode is what the local pointer is currently doing. The concrete types
// are Hidden, Chat, ReactionSelector, and Reaction; the unexported
// method keeps the set closed, so a type switch over those four is
// exhaustive.
type Mode interface {
	isMode()
}

// Hidden shows no pointer overlay. It is the initial mode.
type Hidden struct{}

// Chat is composing an inline message. PreviousMessage is the last
// submitted message, nil until something has been submitted.
type Chat struct {
	PreviousMessage *string
	Message         string
}

// ReactionSelector is choosing which reaction to arm.
type ReactionSelector struct{}

// Reaction is armed with one reaction symbol. While IsPressed, the
// session emits that reaction at the pointer every SampleInterval.
type Reaction struct {
	Reaction  string
	IsPressed bool
}

func (Hidden) isMode()           {}
func (Chat) isMode()             {}
func (ReactionSelector) isMode() {}
func (Reaction) isMode()         {}

// ModeName returns a short lowercase name for logs.
func ModeName(mode Mode) string {
	switch mode.(type) {
	case Hidden:
		return "hidden"
	case Chat:
		return "chat"
	case ReactionSelector:
		return "reaction-selector"
	case Reaction:
		return "reaction"
	default:
		panic(fmt.Sprintf("presence: unknown mode %T", mode))
	}
}

// Input is one event fed to the mode state machine.
type Input interface {
	isInput()
}

// Keys with a transition. Any other key leaves the mode unchanged.
const (
	KeyChat     = "/"
	KeyEscape   = "Escape"
	KeyReaction = "e"
)

// KeyPress is a key released anywhere in the session view.
type KeyPress struct{ Key string }

// SelectReaction picks a symbol in the reaction selector.
type SelectReaction struct{ Reaction string }

// PrimaryDown is the primary pointer button going down on the canvas.
type PrimaryDown struct{}

// PrimaryUp is the primary pointer button going up.
type PrimaryUp struct{}

// PointerLeave is the pointer leaving the canvas area.
type PointerLeave struct{}

// ChatInput replaces the message being composed.
type ChatInput struct{ Text string }

// ChatSubmit sends the message being composed and starts a new one.
type ChatSubmit struct{}

func (KeyPress) isInput()       {}
func (SelectReaction) isInput() {}
func (PrimaryDown) isInput()    {}
func (PrimaryUp) isInput()      {}
func (PointerLeave) isInput()   {}
func (ChatInput) isInput()      {}
func (ChatSubmit) isInput()     {}

// Effect is a side effect the caller of Transition must carry out.
type Effect uint8

const (
	// EffectPreventDefault: the key must not reach any text field.
	EffectPreventDefault Effect = 1 << iota

	// EffectClearMessage: publish an empty presence message.
	EffectClearMessage

	// EffectClearPresence: publish an absent cursor and an empty
	// message.
	EffectClearPresence
)

// Has reports whether every bit of flag is set in effect.
func (effect Effect) Has(flag Effect) bool { return effect&flag == flag }

// Transition returns the mode that follows mode on input, and the
// effects the caller must apply. It depends on nothing but its
// arguments.
//
// Keys apply from every mode. The button inputs only act on Reaction,
// SelectReaction only on ReactionSelector, and the chat inputs only on
// Chat; otherwise the mode is returned unchanged. The only way into
// Reaction is SelectReaction from ReactionSelector.
func Transition(mode Mode, input Input) (Mode, Effect) {
	switch input := input.(type) {
	case KeyPress:
		switch input.Key {
		case KeyChat:
			return Chat{}, EffectPreventDefault
		case KeyEscape:
			return Hidden{}, EffectClearMessage
		case KeyReaction:
			return ReactionSelector{}, 0
		}
		return mode, 0

	case SelectReaction:
		if _, selecting := mode.(ReactionSelector); selecting {
			return Reaction{Reaction: input.Reaction}, 0
		}
		return mode, 0

	case PrimaryDown:
		if armed, ok := mode.(Reaction); ok {
			armed.IsPressed = true
			return armed, 0
		}
		return mode, 0

	case PrimaryUp:
		if armed, ok := mode.(Reaction); ok {
			armed.IsPressed = false
			return armed, 0
		}
		return mode, 0

	case PointerLeave:
		return Hidden{}, EffectClearPresence

	case ChatInput:
		if _, composing := mode.(Chat); composing {
			return Chat{Message: input.Text}, 0
		}
		return mode, 0

	case ChatSubmit:
		if composing, ok := mode.(Chat); ok {
			submitted := composing.Message
			return Chat{PreviousMessage: &submitted}, 0
		}
		return mode, 0

	default:
		panic(fmt.Sprintf("presence: unknown input %T", input))
	}
}
