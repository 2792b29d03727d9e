// Package ui is the terminal front end: a bubbletea program hosting one
// session. The bubbletea update loop is the session's owner goroutine.
package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/interaction"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
	"github.com/vanderheijden86/topicmap/pkg/session"
)

const (
	outlineWidth = 36
	detailWidth  = 44
	headerHeight = 1
	footerHeight = 1
	fitMargin    = 16

	// strategyGrouped restores the configured per-kind strategy groups.
	strategyGrouped = "grouped"
)

type focus int

const (
	focusCanvas focus = iota
	focusOutline
	focusDetail
	focusPicker
	focusInput
	focusHelp
	focusConfirmQuit
)

type pickerPurpose int

const (
	pickKind pickerPurpose = iota
	pickStrategy
)

type inputPurpose int

const (
	inputNew inputPurpose = iota
	inputEdit
)

// queueMsg means session callbacks are waiting for Drain.
type queueMsg struct{}

// eventMsg carries one session event.
type eventMsg session.Event

type eventsClosedMsg struct{}

// Options configures NewModel.
type Options struct {
	Title string
	// StateDir keeps outline state; "" disables persistence.
	StateDir string
	Logger   *zap.Logger
	Renderer *lipgloss.Renderer
	// Clipboard overrides the system clipboard, mainly for tests.
	Clipboard func(string) error
}

// Model hosts a session in the terminal.
type Model struct {
	sess   *session.Session
	events <-chan session.Event
	unsub  func()
	log    *zap.Logger
	title  string
	copyFn func(string) error

	theme   Theme
	keys    KeyMap
	help    help.Model
	canvas  *Canvas
	outline OutlineModel
	detail  DetailModel
	picker  PickerModel
	input   textinput.Model

	focus       focus
	prevFocus   focus
	pickFor     pickerPurpose
	inputFor    inputPurpose
	pendingKind model.NodeKind
	editID      string
	lastKind    model.NodeKind
	baseLayout  layout.Config

	showOutline bool
	showDetail  bool

	width       int
	height      int
	status      string
	statusLevel session.Level
	quitting    bool
}

// NewModel creates the UI for sess. The caller still owns sess and closes
// it after the program exits.
func NewModel(sess *session.Session, opts Options) Model {
	r := opts.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	title := opts.Title
	if title == "" {
		title = "Topic map"
	}
	theme := DefaultTheme(r)
	events, unsub := sess.Subscribe()

	in := textinput.New()
	in.CharLimit = 500

	h := help.New()
	h.Styles.ShortKey = r.NewStyle().Foreground(theme.Secondary)
	h.Styles.ShortDesc = r.NewStyle().Foreground(theme.Muted)

	return Model{
		sess:       sess,
		events:     events,
		unsub:      unsub,
		log:        log.Named("ui"),
		title:      title,
		copyFn:     copyFn,
		theme:      theme,
		keys:       DefaultKeyMap(),
		help:       h,
		canvas:     NewCanvas(0, 0, theme),
		outline:    NewOutlineModel(theme, opts.StateDir, log),
		detail:     NewDetailModel(theme),
		input:      in,
		lastKind:   model.KindTopic,
		baseLayout: sess.Config().Layout,
	}
}

// Init starts listening to the session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForQueue(), m.waitForEvent())
}

func (m Model) waitForQueue() tea.Cmd {
	ready := m.sess.Ready()
	return func() tea.Msg {
		<-ready
		return queueMsg{}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case queueMsg:
		m.sess.Drain()
		return m, m.waitForQueue()

	case eventMsg:
		m.onEvent(session.Event(msg))
		return m, m.waitForEvent()

	case eventsClosedMsg:
		return m, nil

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// canvasOrigin returns the terminal column and row of the canvas's
// top-left cell.
func (m *Model) canvasOrigin() (int, int) {
	x := 0
	if m.showOutline {
		x = outlineWidth
	}
	return x, headerHeight
}

func (m *Model) resize() {
	w := m.width
	if m.showOutline {
		w -= outlineWidth
	}
	if m.showDetail {
		w -= detailWidth
	}
	h := m.height - headerHeight - footerHeight
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	m.canvas.Resize(w, h)
	sw, sh := m.canvas.ScreenSize()
	_, _ = m.sess.Handle(interaction.Resize{Width: sw, Height: sh})

	m.outline.SetSize(outlineWidth-2, h)
	m.detail.SetSize(detailWidth-2, h)
	m.picker.SetSize(m.width, m.height)
	m.help.Width = m.width
	m.syncRender()
	m.refreshPanels()
}

// syncRender sizes labels to the node boxes at the current zoom.
func (m *Model) syncRender() {
	opts := render.DefaultOptions()
	cells := int(m.sess.Config().Layout.NodeWidth*m.sess.Viewport().Zoom/CellWidth) - 2
	if cells < 1 {
		cells = 1
	}
	opts.LabelCells = cells
	opts.EdgeTolerance = CellWidth
	m.sess.SetRenderOptions(opts)
}

func (m *Model) onEvent(ev session.Event) {
	if ev.Coalesced {
		m.syncRender()
		m.refreshPanels()
	}
	switch ev.Kind {
	case session.EventNotification:
		if n := ev.Notification; n != nil {
			m.setStatus(n.Level, n.Message, n.Err)
		}
	case session.EventViewport:
		m.syncRender()
	case session.EventRevision, session.EventSelection, session.EventLayout:
		m.refreshPanels()
	}
}

func (m *Model) setStatus(level session.Level, msg string, err error) {
	m.statusLevel = level
	m.status = msg
	if err != nil {
		m.status = fmt.Sprintf("%s: %v", msg, err)
	}
}

func (m *Model) primary() string {
	ids := m.sess.Selection()
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

// selectedNode returns the single selected node.
func (m *Model) selectedNode() (*model.Node, bool) {
	ids := m.sess.Selection()
	if len(ids) != 1 {
		return nil, false
	}
	return m.sess.View().Node(ids[0])
}

func (m *Model) refreshPanels() {
	v := m.sess.View()
	id := m.primary()
	if m.showOutline {
		m.outline.Build(v)
		if id != "" && m.focus != focusOutline {
			m.outline.SelectByID(id)
		}
	}
	if m.showDetail {
		if id == "" || !v.HasNode(id) {
			id = m.detail.NodeID()
		}
		m.detail.Show(v, id)
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.focus != focusCanvas && m.focus != focusDetail {
		return
	}
	x0, y0 := m.canvasOrigin()
	col, row := msg.X-x0, msg.Y-y0
	w, h := m.canvas.Size()
	inside := col >= 0 && row >= 0 && col < w && row < h
	at := CellCenter(col, row)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		if inside {
			_, _ = m.sess.Handle(interaction.Wheel{At: at, Delta: 1})
		}
	case msg.Button == tea.MouseButtonWheelDown:
		if inside {
			_, _ = m.sess.Handle(interaction.Wheel{At: at, Delta: -1})
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !inside {
			return
		}
		m.focus = focusCanvas
		_, _ = m.sess.Handle(interaction.PointerDown{At: at, Mods: interaction.Modifiers{
			Shift: msg.Shift,
			Alt:   msg.Alt,
			Ctrl:  msg.Ctrl,
		}})
	case msg.Action == tea.MouseActionMotion:
		_, _ = m.sess.Handle(interaction.PointerMove{At: at})
	case msg.Action == tea.MouseActionRelease:
		_, _ = m.sess.Handle(interaction.PointerUp{At: at})
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.unsub != nil {
		m.unsub()
	}
	return m, tea.Quit
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.focus {
	case focusHelp:
		switch msg.String() {
		case "?", "esc", "q":
			m.focus = m.prevFocus
		}
		return m, nil

	case focusConfirmQuit:
		switch msg.String() {
		case "s":
			if err := m.sess.Save(context.Background()); err != nil {
				m.focus = focusCanvas
				return m, nil
			}
			return m.quit()
		case "y":
			return m.quit()
		case "n", "esc":
			m.focus = focusCanvas
		}
		return m, nil

	case focusPicker:
		return m.handlePickerKey(msg)

	case focusInput:
		return m.handleInputKey(msg)

	case focusOutline:
		return m.handleOutlineKey(msg)

	case focusDetail:
		switch msg.String() {
		case "d", "esc":
			m.showDetail = false
			m.focus = focusCanvas
			m.resize()
			return m, nil
		case "tab":
			m.focus = focusCanvas
			return m, nil
		case "y":
			m.copySelected()
			return m, nil
		case "?":
			m.openHelp()
			return m, nil
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	return m.handleCanvasKey(msg)
}

func (m *Model) openHelp() {
	m.prevFocus = m.focus
	m.focus = focusHelp
}

func (m Model) handleCanvasKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.sess.Dirty() {
			m.focus = focusConfirmQuit
			return m, nil
		}
		return m.quit()

	case key.Matches(msg, m.keys.AddNode):
		m.picker = NewKindPicker(m.sess.Kinds(), m.lastKind, m.theme)
		m.picker.SetSize(m.width, m.height)
		m.pickFor = pickKind
		m.focus = focusPicker

	case key.Matches(msg, m.keys.Edit):
		n, ok := m.selectedNode()
		if !ok {
			m.setStatus(session.LevelInfo, "select one node to edit", nil)
			return m, nil
		}
		m.editID = n.ID
		cmd := m.openInput(inputEdit, fmt.Sprintf("Edit %s: ", n.Kind), n.Text)
		return m, cmd

	case key.Matches(msg, m.keys.Pin):
		m.togglePin()

	case key.Matches(msg, m.keys.Fit):
		_ = m.sess.FitToContent(fitMargin)

	case key.Matches(msg, m.keys.Outline):
		m.showOutline = !m.showOutline
		if m.showOutline {
			m.focus = focusOutline
		}
		m.resize()

	case key.Matches(msg, m.keys.Detail):
		m.showDetail = true
		m.focus = focusDetail
		m.resize()

	case key.Matches(msg, m.keys.Copy):
		m.copySelected()

	case key.Matches(msg, m.keys.Save):
		if err := m.sess.Save(ctx); err == nil {
			m.setStatus(session.LevelInfo, "saved", nil)
		}

	case key.Matches(msg, m.keys.Reload):
		_ = m.sess.Reload(ctx)

	case key.Matches(msg, m.keys.Strategy):
		names := append([]string{strategyGrouped}, layout.NewRegistry().Names()...)
		current := strategyGrouped
		if cfg := m.sess.Config().Layout; len(cfg.Groups) == 0 {
			current = cfg.DefaultStrategy
		}
		m.picker = NewPickerModel("Layout Strategy", names, current, m.theme)
		m.picker.SetSize(m.width, m.height)
		m.pickFor = pickStrategy
		m.focus = focusPicker

	case key.Matches(msg, m.keys.Help):
		m.openHelp()

	default:
		if ev, ok := controllerKey(msg); ok {
			_, _ = m.sess.Handle(ev)
		}
	}
	return m, nil
}

// controllerKey translates a key press for the interaction controller.
func controllerKey(msg tea.KeyMsg) (interaction.Key, bool) {
	switch s := msg.String(); s {
	case "esc", "delete", "backspace", "up", "down", "left", "right", "+", "=", "-", "0", "a", "c", "tab":
		return interaction.Key{Name: s}, true
	case "shift+tab":
		return interaction.Key{Name: "tab", Mods: interaction.Modifiers{Shift: true}}, true
	}
	return interaction.Key{}, false
}

func (m *Model) openInput(purpose inputPurpose, prompt, value string) tea.Cmd {
	m.inputFor = purpose
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.focus = focusInput
	return m.input.Focus()
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.picker.MoveDown()
	case "k", "up":
		m.picker.MoveUp()
	case "esc", "q":
		m.focus = focusCanvas
	case "enter":
		choice := m.picker.Selected()
		m.focus = focusCanvas
		switch m.pickFor {
		case pickKind:
			m.pendingKind = model.NodeKind(choice)
			m.lastKind = m.pendingKind
			cmd := m.openInput(inputNew, fmt.Sprintf("New %s: ", choice), "")
			return m, cmd
		case pickStrategy:
			cfg := m.baseLayout
			if choice != strategyGrouped {
				cfg.Groups = nil
				cfg.DefaultStrategy = choice
			}
			m.sess.SetLayoutConfig(cfg)
			m.setStatus(session.LevelInfo, "layout: "+choice, nil)
		}
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.focus = focusCanvas
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.focus = focusCanvas
		switch m.inputFor {
		case inputNew:
			// Failures arrive as notifications.
			_, _ = m.sess.AddChild(m.pendingKind, text)
		case inputEdit:
			if err := m.sess.UpdateNode(m.editID, graph.NodePatch{Text: &text}); err != nil {
				m.setStatus(session.LevelError, "edit rejected", err)
			}
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleOutlineKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.outline.MoveDown()
	case "k", "up":
		m.outline.MoveUp()
	case "l", "right":
		m.outline.ExpandOrMoveToChild()
	case "h", "left":
		m.outline.CollapseOrJumpToParent()
	case " ":
		m.outline.ToggleExpand()
	case "enter":
		if id := m.outline.SelectedID(); id != "" {
			if err := m.sess.Select(id); err != nil {
				m.setStatus(session.LevelError, "select failed", err)
			}
		}
	case "o":
		m.showOutline = false
		m.focus = focusCanvas
		m.resize()
	case "esc", "tab":
		m.focus = focusCanvas
	case "?":
		m.openHelp()
	case "q":
		return m.handleCanvasKey(msg)
	}
	return m, nil
}

func (m *Model) togglePin() {
	n, ok := m.selectedNode()
	if !ok {
		m.setStatus(session.LevelInfo, "select one node to pin", nil)
		return
	}
	var err error
	if n.IsPinned() {
		err = m.sess.UnpinNode(n.ID)
	} else {
		res := m.sess.Layout()
		if res == nil {
			return
		}
		pos, ok := res.Position(n.ID)
		if !ok {
			return
		}
		err = m.sess.PinNode(n.ID, pos)
	}
	if err != nil {
		m.setStatus(session.LevelError, "pin failed", err)
	}
}

func (m *Model) copySelected() {
	n, ok := m.selectedNode()
	if !ok {
		return
	}
	if err := m.copyFn(n.Text); err != nil {
		m.log.Debug("clipboard write failed", zap.Error(err))
		m.setStatus(session.LevelWarn, "clipboard unavailable", err)
		return
	}
	m.setStatus(session.LevelInfo, "copied", nil)
}

func (m *Model) helpContext() Context {
	switch m.prevFocus {
	case focusOutline:
		return ContextOutline
	case focusDetail:
		return ContextDetail
	case focusPicker:
		return ContextPicker
	}
	return ContextCanvas
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Initializing..."
	}

	switch m.focus {
	case focusPicker:
		return m.picker.View()
	case focusHelp:
		return RenderContextHelp(m.helpContext(), m.theme, m.width, m.height)
	case focusConfirmQuit:
		return m.renderConfirmQuit()
	}

	m.canvas.Clear()
	render.Draw(m.sess.Scene(), m.canvas, m.theme.Palette)
	_, h := m.canvas.Size()
	body := m.canvas.Render()

	r := m.theme.Renderer
	if m.showOutline {
		border := m.theme.Border
		if m.focus == focusOutline {
			border = m.theme.Primary
		}
		panel := r.NewStyle().
			Width(outlineWidth-1).
			Height(h).
			MaxHeight(h).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(border).
			Render(m.outline.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, panel, body)
	}
	if m.showDetail {
		border := m.theme.Border
		if m.focus == focusDetail {
			border = m.theme.Primary
		}
		panel := r.NewStyle().
			Width(detailWidth-1).
			Height(h).
			MaxHeight(h).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(border).
			Render(m.detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, panel)
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m *Model) renderHeader() string {
	v := m.sess.View()
	r := m.theme.Renderer

	dirty := ""
	if m.sess.Dirty() {
		dirty = r.NewStyle().Foreground(m.theme.Warn).Render(" ●")
	}
	stats := fmt.Sprintf(" %d nodes · %d edges · rev %d · %d%% · %s",
		v.NodeCount(), v.EdgeCount(), v.Revision(),
		int(math.Round(m.sess.Viewport().Zoom*100)), m.sess.Mode())
	if n := len(m.sess.Selection()); n > 0 {
		stats += fmt.Sprintf(" · %d selected", n)
	}
	if m.sess.LayoutPending() {
		stats += " · laying out…"
	}
	line := m.theme.Header.Render(m.title) + dirty + m.theme.Status.Render(stats)
	return r.NewStyle().MaxWidth(m.width).Render(line)
}

func (m *Model) renderFooter() string {
	r := m.theme.Renderer
	if m.focus == focusInput {
		return r.NewStyle().MaxWidth(m.width).Render(m.input.View())
	}
	if m.status != "" {
		color := m.theme.Subtext
		switch m.statusLevel {
		case session.LevelWarn:
			color = m.theme.Warn
		case session.LevelError:
			color = m.theme.Error
		}
		return r.NewStyle().Foreground(color).MaxWidth(m.width).Render(m.status)
	}
	return m.help.View(m.keys)
}

func (m *Model) renderConfirmQuit() string {
	r := m.theme.Renderer
	content := r.NewStyle().Foreground(m.theme.Warn).Bold(true).Render("Unsaved changes") + "\n\n" +
		r.NewStyle().Foreground(m.theme.Subtext).Render("s: save and quit | y: quit anyway | esc: cancel")
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Warn).
		Padding(1, 2).
		Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	p := tea.NewProgram(NewModel(sess, opts),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
