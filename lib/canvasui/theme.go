// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvasui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/zeebo/blake3"
)

// Theme is the canvas color palette, in ANSI 256-color codes.
type Theme struct {
	HeaderForeground lipgloss.Color
	HeaderBackground lipgloss.Color
	FaintText        lipgloss.Color
	ErrorText        lipgloss.Color

	// Chat bubble for the local participant.
	BubbleForeground lipgloss.Color
	BubbleBackground lipgloss.Color

	// PaletteSelected highlights the digit labels while choosing.
	PaletteSelected lipgloss.Color

	// Comment thread pins.
	PinForeground lipgloss.Color
	PinBackground lipgloss.Color

	// CursorColors are assigned to remote participants by name.
	CursorColors []lipgloss.Color
}

// DefaultTheme targets dark 256-color terminals.
var DefaultTheme = Theme{
	HeaderForeground: lipgloss.Color("255"),
	HeaderBackground: lipgloss.Color("236"),
	FaintText:        lipgloss.Color("243"),
	ErrorText:        lipgloss.Color("196"),

	BubbleForeground: lipgloss.Color("231"),
	BubbleBackground: lipgloss.Color("25"),

	PaletteSelected: lipgloss.Color("220"),

	PinForeground: lipgloss.Color("16"),
	PinBackground: lipgloss.Color("229"),

	CursorColors: []lipgloss.Color{
		lipgloss.Color("203"), // salmon
		lipgloss.Color("214"), // orange
		lipgloss.Color("226"), // yellow
		lipgloss.Color("118"), // lime
		lipgloss.Color("48"),  // spring green
		lipgloss.Color("51"),  // cyan
		lipgloss.Color("39"),  // azure
		lipgloss.Color("105"), // periwinkle
		lipgloss.Color("171"), // orchid
		lipgloss.Color("205"), // pink
	},
}

// ParticipantColor picks a cursor color from a participant's name.
// The same name gets the same color on every participant's screen.
func (theme Theme) ParticipantColor(name string) lipgloss.Color {
	if len(theme.CursorColors) == 0 {
		return theme.HeaderForeground
	}
	digest := blake3.Sum256([]byte(name))
	return theme.CursorColors[int(digest[0])%len(theme.CursorColors)]
}

// NewRenderer returns a lipgloss renderer for output that honours
// NO_COLOR.
func NewRenderer(output io.Writer) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(output)
	if termenv.EnvNoColor() {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return renderer
}
