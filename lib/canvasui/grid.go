// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvasui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// grid is a fixed-size block of terminal cells. Wide text (emoji, CJK)
// occupies several cells; span records how many on the first cell and
// 0 on the cells it covers.
type grid struct {
	width, height int
	text          [][]string
	span          [][]int
}

func newGrid(width, height int) *grid {
	width, height = max(width, 0), max(height, 0)
	g := &grid{width: width, height: height}
	g.text = make([][]string, height)
	g.span = make([][]int, height)
	for y := range height {
		g.text[y] = make([]string, width)
		g.span[y] = make([]int, width)
		for x := range width {
			g.text[y][x] = " "
			g.span[y][x] = 1
		}
	}
	return g
}

// put draws text starting at cell (x, y), clipped at the right edge.
// Anything it overlaps, including the parts of a wide item it cuts,
// is blanked first.
func (g *grid) put(x, y int, text string, style lipgloss.Style) {
	if y < 0 || y >= g.height || x < 0 || x >= g.width {
		return
	}
	text = ansi.Truncate(text, g.width-x, "")
	width := ansi.StringWidth(text)
	if width == 0 {
		return
	}
	for column := x; column < x+width; column++ {
		g.blank(y, column)
	}
	g.text[y][x] = style.Render(text)
	g.span[y][x] = width
	for column := x + 1; column < x+width; column++ {
		g.text[y][column] = ""
		g.span[y][column] = 0
	}
}

// blank clears the whole item covering cell (y, x).
func (g *grid) blank(y, x int) {
	owner := x
	for owner > 0 && g.span[y][owner] == 0 {
		owner--
	}
	end := min(owner+g.span[y][owner], g.width)
	for column := owner; column < end; column++ {
		g.text[y][column] = " "
		g.span[y][column] = 1
	}
}

func (g *grid) lines() []string {
	lines := make([]string, g.height)
	for y := range g.height {
		lines[y] = strings.Join(g.text[y], "")
	}
	return lines
}
