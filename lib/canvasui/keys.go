// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvasui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the canvas key bindings. Palette digits are not
// bindings: they follow the configured palette length.
type KeyMap struct {
	Chat     key.Binding
	Escape   key.Binding
	Reaction key.Binding
	Submit   key.Binding
	Quit     key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Chat: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "chat"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "hide"),
	),
	Reaction: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "react"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}
