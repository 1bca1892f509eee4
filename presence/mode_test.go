// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"reflect"
	"testing"
)

func stringPointer(s string) *string { return &s }

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	chatting := Chat{PreviousMessage: stringPointer("earlier"), Message: "typing"}
	armed := Reaction{Reaction: "🔥"}
	pressed := Reaction{Reaction: "🔥", IsPressed: true}

	allModes := []Mode{Hidden{}, chatting, ReactionSelector{}, armed, pressed}

	tests := []struct {
		name       string
		from       Mode
		input      Input
		want       Mode
		wantEffect Effect
	}{
		{name: "escape while hidden stays hidden", from: Hidden{}, input: KeyPress{Key: KeyEscape}, want: Hidden{}, wantEffect: EffectClearMessage},
		{name: "escape from chat", from: chatting, input: KeyPress{Key: KeyEscape}, want: Hidden{}, wantEffect: EffectClearMessage},
		{name: "escape from pressed reaction", from: pressed, input: KeyPress{Key: KeyEscape}, want: Hidden{}, wantEffect: EffectClearMessage},
		{name: "slash from hidden", from: Hidden{}, input: KeyPress{Key: KeyChat}, want: Chat{}, wantEffect: EffectPreventDefault},
		{name: "slash restarts chat", from: chatting, input: KeyPress{Key: KeyChat}, want: Chat{}, wantEffect: EffectPreventDefault},
		{name: "slash from reaction", from: armed, input: KeyPress{Key: KeyChat}, want: Chat{}, wantEffect: EffectPreventDefault},
		{name: "e from hidden", from: Hidden{}, input: KeyPress{Key: KeyReaction}, want: ReactionSelector{}},
		{name: "e from chat", from: chatting, input: KeyPress{Key: KeyReaction}, want: ReactionSelector{}},
		{name: "e from reaction", from: pressed, input: KeyPress{Key: KeyReaction}, want: ReactionSelector{}},
		{name: "other key ignored", from: armed, input: KeyPress{Key: "q"}, want: armed},
		{name: "select from selector", from: ReactionSelector{}, input: SelectReaction{Reaction: "👍"}, want: Reaction{Reaction: "👍"}},
		{name: "select from hidden ignored", from: Hidden{}, input: SelectReaction{Reaction: "👍"}, want: Hidden{}},
		{name: "select from chat ignored", from: chatting, input: SelectReaction{Reaction: "👍"}, want: chatting},
		{name: "select from reaction ignored", from: armed, input: SelectReaction{Reaction: "👍"}, want: armed},
		{name: "down presses reaction", from: armed, input: PrimaryDown{}, want: pressed},
		{name: "up releases reaction", from: pressed, input: PrimaryUp{}, want: armed},
		{name: "down ignored in hidden", from: Hidden{}, input: PrimaryDown{}, want: Hidden{}},
		{name: "down ignored in selector", from: ReactionSelector{}, input: PrimaryDown{}, want: ReactionSelector{}},
		{name: "up ignored in chat", from: chatting, input: PrimaryUp{}, want: chatting},
		{name: "leave from chat", from: chatting, input: PointerLeave{}, want: Hidden{}, wantEffect: EffectClearPresence},
		{name: "leave from pressed reaction", from: pressed, input: PointerLeave{}, want: Hidden{}, wantEffect: EffectClearPresence},
		{name: "leave while hidden", from: Hidden{}, input: PointerLeave{}, want: Hidden{}, wantEffect: EffectClearPresence},
		{name: "chat input replaces message", from: chatting, input: ChatInput{Text: "hello"}, want: Chat{Message: "hello"}},
		{name: "chat input ignored outside chat", from: armed, input: ChatInput{Text: "hello"}, want: armed},
		{name: "chat submit keeps previous", from: chatting, input: ChatSubmit{}, want: Chat{PreviousMessage: stringPointer("typing")}},
		{name: "chat submit ignored outside chat", from: Hidden{}, input: ChatSubmit{}, want: Hidden{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, effect := Transition(test.from, test.input)
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("Transition(%#v, %#v) = %#v, want %#v", test.from, test.input, got, test.want)
			}
			if effect != test.wantEffect {
				t.Errorf("effect = %b, want %b", effect, test.wantEffect)
			}
		})
	}

	// No input reaches Reaction from anywhere but the selector.
	inputs := []Input{
		KeyPress{Key: KeyChat}, KeyPress{Key: KeyEscape}, KeyPress{Key: KeyReaction}, KeyPress{Key: "x"},
		PrimaryDown{}, PrimaryUp{}, PointerLeave{}, ChatInput{Text: "t"}, ChatSubmit{},
		SelectReaction{Reaction: "😍"},
	}
	for _, from := range allModes {
		if _, isReaction := from.(Reaction); isReaction {
			continue
		}
		if _, isSelector := from.(ReactionSelector); isSelector {
			continue
		}
		for _, input := range inputs {
			if got, _ := Transition(from, input); reflect.TypeOf(got) == reflect.TypeOf(Reaction{}) {
				t.Errorf("Transition(%#v, %#v) reached Reaction", from, input)
			}
		}
	}
}

func TestTransitionIndependentOfHistory(t *testing.T) {
	t.Parallel()

	histories := [][]Input{
		nil,
		{KeyPress{Key: KeyChat}, ChatInput{Text: "hi"}, ChatSubmit{}},
		{KeyPress{Key: KeyReaction}, SelectReaction{Reaction: "👀"}, PrimaryDown{}, PrimaryUp{}},
		{PointerLeave{}, KeyPress{Key: KeyEscape}},
	}

	for _, history := range histories {
		var mode Mode = Hidden{}
		for _, input := range history {
			mode, _ = Transition(mode, input)
		}
		// Reach the selector, then pick: the outcome must not depend
		// on what happened before.
		mode, _ = Transition(mode, KeyPress{Key: KeyReaction})
		mode, _ = Transition(mode, SelectReaction{Reaction: "👍"})
		if want := (Reaction{Reaction: "👍"}); mode != want {
			t.Errorf("after history %v: mode = %#v, want %#v", history, mode, want)
		}
	}
}

func TestModeName(t *testing.T) {
	t.Parallel()
	names := map[string]Mode{
		"hidden":            Hidden{},
		"chat":              Chat{},
		"reaction-selector": ReactionSelector{},
		"reaction":          Reaction{Reaction: "👍"},
	}
	for want, mode := range names {
		if got := ModeName(mode); got != want {
			t.Errorf("ModeName(%#v) = %q, want %q", mode, got, want)
		}
	}
}

func TestEffectHas(t *testing.T) {
	t.Parallel()
	effect := EffectPreventDefault | EffectClearMessage
	if !effect.Has(EffectPreventDefault) || !effect.Has(EffectClearMessage) {
		t.Errorf("%b should have both flags", effect)
	}
	if effect.Has(EffectClearPresence) {
		t.Errorf("%b should not have EffectClearPresence", effect)
	}
}
