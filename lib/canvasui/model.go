// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvasui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/livecanvas/comments"
	"github.com/bureau-foundation/livecanvas/lib/clock"
	"github.com/bureau-foundation/livecanvas/lib/logging"
	"github.com/bureau-foundation/livecanvas/presence"
)

// frameInterval is the redraw rate. Reactions drift and expire between
// input events, so the canvas redraws on a timer rather than only on
// change.
const frameInterval = 50 * time.Millisecond

// canvasTop is the screen row of the canvas origin.
const canvasTop = 1

// reactionRise is how many rows a reaction drifts upward over its
// visible lifetime.
const reactionRise = 4

// chatCharLimit bounds a chat message.
const chatCharLimit = 120

// pinLabelWidth bounds the comment excerpt shown on a thread pin.
const pinLabelWidth = 24

// Config configures a Model.
type Config struct {
	// Engine and Latest are required. Latest must be fed by the
	// engine's change callback.
	Engine Engine
	Latest *Latest

	// Clock ages reactions for drawing. Defaults to clock.Real().
	Clock clock.Clock

	// Renderer defaults to lipgloss.DefaultRenderer().
	Renderer *lipgloss.Renderer

	// Theme and Keys default to DefaultTheme and DefaultKeyMap.
	Theme *Theme
	Keys  *KeyMap

	// Palette is the reaction selector, at most nine symbols.
	Palette []string

	// Threads, if set, are pinned over the canvas, and clicking a
	// pin raises it. The store is read on every frame, so it must
	// answer from memory.
	Threads comments.ThreadStore

	// Users holds back threads whose first author is still loading.
	// May be nil.
	Users comments.UserResolver

	// Room and Name label the header.
	Room string
	Name string

	Logger *slog.Logger
}

type frameMsg time.Time

// Model is the bubbletea model for the canvas.
type Model struct {
	engine   Engine
	latest   *Latest
	clock    clock.Clock
	renderer *lipgloss.Renderer
	theme    Theme
	keys     KeyMap
	palette  []string
	room     string
	name     string
	logger   *slog.Logger

	chat textinput.Model

	threads comments.ThreadStore
	users   comments.UserResolver
	overlay *comments.Overlay

	width, height int
	ready         bool

	// Refreshed from the engine after every input and frame.
	snapshot presence.Snapshot
	others   []presence.Participant
	now      time.Time
	pins     comments.VisibleSet
	pinsErr  error

	// lastError is shown in the footer until the next successful input.
	lastError string
}

// NewModel creates a canvas model.
func NewModel(config Config) Model {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Renderer == nil {
		config.Renderer = lipgloss.DefaultRenderer()
	}
	theme := DefaultTheme
	if config.Theme != nil {
		theme = *config.Theme
	}
	keys := DefaultKeyMap
	if config.Keys != nil {
		keys = *config.Keys
	}
	if len(config.Palette) > 9 {
		config.Palette = config.Palette[:9]
	}

	chat := textinput.New()
	chat.Prompt = ""
	chat.Placeholder = "say something"
	chat.CharLimit = chatCharLimit

	model := Model{
		engine:   config.Engine,
		latest:   config.Latest,
		clock:    config.Clock,
		renderer: config.Renderer,
		theme:    theme,
		keys:     keys,
		palette:  config.Palette,
		room:     config.Room,
		name:     config.Name,
		logger:   logging.OrDiscard(config.Logger),
		chat:     chat,
		threads:  config.Threads,
		users:    config.Users,
	}
	if model.threads != nil {
		model.overlay = comments.NewOverlay(model.threads, model.logger)
	}
	model.refresh()
	return model
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return nextFrame()
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	var command tea.Cmd
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true

	case frameMsg:
		command = nextFrame()

	case tea.KeyMsg:
		if key.Matches(message, model.keys.Quit) {
			return model, tea.Quit
		}
		command = model.handleKey(message)

	case tea.MouseMsg:
		command = model.handleMouse(message)

	case tea.BlurMsg:
		if model.hasPresence() {
			command = model.check(model.engine.PointerLeave())
		}
	}
	model.refresh()
	return model, command
}

func (model *Model) refresh() {
	model.snapshot = model.latest.Load()
	model.others = model.engine.Others()
	model.now = model.clock.Now()
	if model.threads != nil {
		model.pins, model.pinsErr = model.loadPins()
	}
}

func (model *Model) loadPins() (comments.VisibleSet, error) {
	list, err := model.threads.Threads(context.Background())
	if err != nil {
		return comments.VisibleSet{}, err
	}
	return comments.Visible(list, model.users)
}

// check records an engine error. A closed session ends the program.
func (model *Model) check(err error) tea.Cmd {
	if err == nil {
		model.lastError = ""
		return nil
	}
	if errors.Is(err, presence.ErrSessionClosed) {
		return tea.Quit
	}
	model.logger.Debug("canvas input failed", "error", err)
	model.lastError = err.Error()
	return nil
}

func (model *Model) mode() presence.Mode {
	return model.latest.Load().Mode
}

// hasPresence reports whether leaving would change anything.
func (model *Model) hasPresence() bool {
	snapshot := model.latest.Load()
	_, hidden := snapshot.Mode.(presence.Hidden)
	return !hidden || snapshot.Presence.Cursor != nil
}

func (model *Model) handleKey(message tea.KeyMsg) tea.Cmd {
	if _, composing := model.mode().(presence.Chat); composing {
		return model.handleChatKey(message)
	}

	switch {
	case key.Matches(message, model.keys.Chat):
		return model.press(presence.KeyChat, message)
	case key.Matches(message, model.keys.Escape):
		return model.press(presence.KeyEscape, message)
	case key.Matches(message, model.keys.Reaction):
		return model.press(presence.KeyReaction, message)
	}

	if _, selecting := model.mode().(presence.ReactionSelector); selecting {
		if symbol, ok := model.paletteDigit(message); ok {
			return model.check(model.engine.SelectReaction(symbol))
		}
	}
	return nil
}

// press sends a mode key. If it opens the chat box, the key itself is
// typed into the box unless the engine suppresses it.
func (model *Model) press(name string, message tea.KeyMsg) tea.Cmd {
	preventDefault, err := model.engine.KeyPress(name)
	if command := model.check(err); command != nil {
		return command
	}
	if _, composing := model.mode().(presence.Chat); !composing {
		model.chat.Reset()
		model.chat.Blur()
		return nil
	}
	model.chat.Reset()
	commands := []tea.Cmd{model.chat.Focus()}
	if !preventDefault {
		commands = append(commands, model.typeInChat(message))
	}
	return tea.Batch(commands...)
}

// handleChatKey routes a key while composing. The mode keys still
// apply; "/" starts a fresh message and is never typed.
func (model *Model) handleChatKey(message tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(message, model.keys.Chat):
		return model.press(presence.KeyChat, message)
	case key.Matches(message, model.keys.Reaction):
		return model.press(presence.KeyReaction, message)
	case key.Matches(message, model.keys.Escape):
		return model.press(presence.KeyEscape, message)
	case key.Matches(message, model.keys.Submit):
		model.chat.Reset()
		return model.check(model.engine.ChatSubmit())
	}
	return model.typeInChat(message)
}

func (model *Model) typeInChat(message tea.KeyMsg) tea.Cmd {
	before := model.chat.Value()
	var command tea.Cmd
	model.chat, command = model.chat.Update(message)
	if after := model.chat.Value(); after != before {
		if quit := model.check(model.engine.ChatInput(after)); quit != nil {
			return quit
		}
	}
	return command
}

func (model *Model) paletteDigit(message tea.KeyMsg) (string, bool) {
	if message.Type != tea.KeyRunes || len(message.Runes) != 1 {
		return "", false
	}
	digit := int(message.Runes[0] - '1')
	if digit < 0 || digit >= len(model.palette) {
		return "", false
	}
	return model.palette[digit], true
}

func (model *Model) handleMouse(message tea.MouseMsg) tea.Cmd {
	footer := model.height - 1
	switch {
	case message.Y < canvasTop:
		if model.hasPresence() {
			return model.check(model.engine.PointerLeave())
		}
		return nil
	case model.ready && message.Y >= footer:
		if message.Action == tea.MouseActionPress && message.Button == tea.MouseButtonLeft {
			if _, selecting := model.mode().(presence.ReactionSelector); selecting {
				if symbol, ok := model.paletteHit(message.X); ok {
					return model.check(model.engine.SelectReaction(symbol))
				}
			}
		}
		return nil
	}

	event := presence.PointerEvent{
		Client: presence.Point{X: float64(message.X), Y: float64(message.Y)},
		Origin: presence.Point{Y: canvasTop},
	}
	switch {
	case message.Action == tea.MouseActionMotion:
		return model.check(model.engine.PointerMove(event))
	case message.Action == tea.MouseActionPress && message.Button == tea.MouseButtonLeft:
		// A press on a pin raises it instead of pressing the pointer.
		if threadID, ok := model.pinAt(cell(event.Local())); ok {
			command := model.check(model.engine.PointerMove(event))
			model.raise(threadID)
			return command
		}
		return model.check(model.engine.PointerDown(event))
	case message.Action == tea.MouseActionRelease:
		return model.check(model.engine.PointerUp())
	}
	return nil
}

// pinLabel is the text drawn for a thread: a marker and an excerpt of
// its first comment.
func pinLabel(thread comments.Thread) string {
	if len(thread.Comments) == 0 || thread.Comments[0].Body == "" {
		return "◆"
	}
	return "◆ " + ansi.Truncate(thread.Comments[0].Body, pinLabelWidth, "…")
}

// pinAt returns the topmost pin covering canvas cell (x, y).
func (model *Model) pinAt(x, y int) (string, bool) {
	for index := len(model.pins.Threads) - 1; index >= 0; index-- {
		thread := model.pins.Threads[index]
		pinX, pinY := cell(presence.Point{X: thread.Metadata.X, Y: thread.Metadata.Y})
		if y == pinY && x >= pinX && x < pinX+ansi.StringWidth(pinLabel(thread)) {
			return thread.ID, true
		}
	}
	return "", false
}

func (model *Model) raise(threadID string) {
	if _, err := model.overlay.Raise(context.Background(), threadID); err != nil {
		model.logger.Debug("raising thread failed", "thread", threadID, "error", err)
		model.lastError = err.Error()
		return
	}
	model.lastError = ""
}

// paletteSpan is one palette entry's footer columns, [start, end).
type paletteSpan struct {
	start, end int
	label      string
	symbol     string
}

const paletteGap = 2

func (model *Model) paletteLayout() []paletteSpan {
	spans := make([]paletteSpan, 0, len(model.palette))
	column := 1
	for index, symbol := range model.palette {
		label := fmt.Sprintf("%d %s", index+1, symbol)
		width := ansi.StringWidth(label)
		spans = append(spans, paletteSpan{start: column, end: column + width, label: label, symbol: symbol})
		column += width + paletteGap
	}
	return spans
}

func (model *Model) paletteHit(x int) (string, bool) {
	for _, span := range model.paletteLayout() {
		if x >= span.start && x < span.end {
			return span.symbol, true
		}
	}
	return "", false
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "connecting..."
	}
	canvasHeight := max(model.height-2, 0)
	canvas := newGrid(model.width, canvasHeight)

	model.drawPins(canvas)
	model.drawReactions(canvas)
	model.drawOthers(canvas)
	model.drawLocal(canvas)

	var builder strings.Builder
	builder.WriteString(model.header())
	for _, line := range canvas.lines() {
		builder.WriteByte('\n')
		builder.WriteString(line)
	}
	builder.WriteByte('\n')
	builder.WriteString(model.footer())
	return builder.String()
}

func (model Model) style() lipgloss.Style {
	return model.renderer.NewStyle()
}

func (model Model) header() string {
	title := fmt.Sprintf(" %s · %s", model.room, model.name)
	status := fmt.Sprintf("%d here · %s ", len(model.others)+1, presence.ModeName(model.snapshot.Mode))
	gap := max(model.width-ansi.StringWidth(title)-ansi.StringWidth(status), 1)
	line := ansi.Truncate(title+strings.Repeat(" ", gap)+status, model.width, "")
	return model.style().
		Foreground(model.theme.HeaderForeground).
		Background(model.theme.HeaderBackground).
		Bold(true).
		Width(model.width).
		Render(line)
}

func (model Model) footer() string {
	faint := model.style().Foreground(model.theme.FaintText)
	if model.lastError != "" {
		return model.style().Foreground(model.theme.ErrorText).
			Render(ansi.Truncate(" "+model.lastError, model.width, "…"))
	}

	switch mode := model.snapshot.Mode.(type) {
	case presence.ReactionSelector:
		selected := model.style().Foreground(model.theme.PaletteSelected).Bold(true)
		var builder strings.Builder
		column := 0
		for _, span := range model.paletteLayout() {
			builder.WriteString(strings.Repeat(" ", span.start-column))
			builder.WriteString(selected.Render(span.label))
			column = span.end
		}
		builder.WriteString(faint.Render("   esc cancel"))
		return ansi.Truncate(builder.String(), model.width, "")
	case presence.Chat:
		return faint.Render(ansi.Truncate(" enter send · esc close", model.width, ""))
	case presence.Reaction:
		help := fmt.Sprintf(" %s armed · hold the mouse button to send · e change · esc cancel", mode.Reaction)
		return faint.Render(ansi.Truncate(help, model.width, ""))
	default:
		help := fmt.Sprintf(" %s chat · %s react · %s quit",
			model.keys.Chat.Help().Key, model.keys.Reaction.Help().Key, model.keys.Quit.Help().Key)
		if status := model.threadStatus(); status != "" {
			help += " · " + status
		}
		return faint.Render(ansi.Truncate(help, model.width, ""))
	}
}

func (model Model) threadStatus() string {
	switch {
	case model.threads == nil:
		return ""
	case errors.Is(model.pinsErr, comments.ErrThreadsLoading):
		return "threads loading"
	case model.pinsErr != nil:
		return "threads unavailable"
	case model.pins.Deferred > 0:
		return fmt.Sprintf("%d threads (%d loading)", len(model.pins.Threads), model.pins.Deferred)
	default:
		return fmt.Sprintf("%d threads", len(model.pins.Threads))
	}
}

// drawPins draws thread pins back to front, so a raised thread covers
// the ones it overlaps.
func (model Model) drawPins(canvas *grid) {
	style := model.style().
		Foreground(model.theme.PinForeground).
		Background(model.theme.PinBackground)
	for _, thread := range model.pins.Threads {
		x, y := cell(presence.Point{X: thread.Metadata.X, Y: thread.Metadata.Y})
		canvas.put(x, y, pinLabel(thread), style)
	}
}

// drawReactions floats each reaction upward as it ages.
func (model Model) drawReactions(canvas *grid) {
	plain := model.style()
	for _, event := range model.snapshot.Reactions {
		age := event.Age(model.now)
		if age < 0 {
			age = 0
		}
		rise := int(float64(age) / float64(presence.VisibilityWindow) * reactionRise)
		x, y := cell(event.Point)
		canvas.put(x, y-rise, event.Value, plain)
	}
}

func (model Model) drawOthers(canvas *grid) {
	for _, other := range model.others {
		cursor := other.Presence.Cursor
		if cursor == nil {
			continue
		}
		color := model.theme.ParticipantColor(other.Name)
		x, y := cell(*cursor)
		canvas.put(x, y, "▸"+other.Name, model.style().Foreground(color).Bold(true))
		if other.Presence.Message != "" {
			canvas.put(x+1, y+1, other.Presence.Message,
				model.style().Foreground(model.theme.BubbleForeground).Background(color))
		}
	}
}

func (model Model) drawLocal(canvas *grid) {
	cursor := model.snapshot.Presence.Cursor
	if cursor == nil {
		return
	}
	x, y := cell(*cursor)
	bubble := model.style().
		Foreground(model.theme.BubbleForeground).
		Background(model.theme.BubbleBackground)

	switch mode := model.snapshot.Mode.(type) {
	case presence.Chat:
		if mode.PreviousMessage != nil {
			canvas.put(x, y-1, *mode.PreviousMessage, model.style().Foreground(model.theme.FaintText))
		}
		canvas.put(x, y, model.chat.View(), bubble)
	case presence.Reaction:
		canvas.put(x, y, mode.Reaction, model.style())
	case presence.ReactionSelector:
		canvas.put(x, y, "?", bubble)
	}
}

// cell rounds a canvas point to a grid cell.
func cell(point presence.Point) (int, int) {
	return int(math.Floor(point.X + 0.5)), int(math.Floor(point.Y + 0.5))
}
