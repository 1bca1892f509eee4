// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvasui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestGridPut(t *testing.T) {
	t.Parallel()
	plain := lipgloss.NewStyle()

	tests := []struct {
		name string
		puts []struct {
			x    int
			text string
		}
		want string
	}{
		{
			name: "ascii",
			puts: []struct {
				x    int
				text string
			}{{1, "ab"}},
			want: " ab   ",
		},
		{
			name: "clipped at the right edge",
			puts: []struct {
				x    int
				text string
			}{{4, "abcdef"}},
			want: "    ab",
		},
		{
			name: "wide rune occupies two cells",
			puts: []struct {
				x    int
				text string
			}{{0, "🔥"}, {2, "x"}},
			want: "🔥x   ",
		},
		{
			name: "overlap blanks the covered wide rune",
			puts: []struct {
				x    int
				text string
			}{{0, "🔥"}, {1, "x"}},
			want: " x    ",
		},
		{
			name: "later text replaces the whole item it overlaps",
			puts: []struct {
				x    int
				text string
			}{{0, "aaaa"}, {2, "b"}},
			want: "  b   ",
		},
		{
			name: "off grid ignored",
			puts: []struct {
				x    int
				text string
			}{{-1, "a"}, {6, "b"}},
			want: "      ",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			g := newGrid(6, 1)
			for _, p := range test.puts {
				g.put(p.x, 0, p.text, plain)
			}
			line := g.lines()[0]
			if line != test.want {
				t.Errorf("line = %q, want %q", line, test.want)
			}
			if width := ansi.StringWidth(line); width != 6 {
				t.Errorf("line width = %d, want 6", width)
			}
		})
	}
}
