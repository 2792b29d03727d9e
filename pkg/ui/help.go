package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context identifies which panel has focus, for context help.
type Context int

const (
	ContextCanvas Context = iota
	ContextOutline
	ContextDetail
	ContextPicker
)

// ContextHelpContent holds one screen of help per context.
var ContextHelpContent = map[Context]string{
	ContextCanvas:  contextHelpCanvas,
	ContextOutline: contextHelpOutline,
	ContextDetail:  contextHelpDetail,
	ContextPicker:  contextHelpPicker,
}

// GetContextHelp returns the help content for a context, falling back to
// the canvas help.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpCanvas
}

// RenderContextHelp renders the help modal.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)
	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	contentStyle := r.NewStyle().Foreground(theme.Subtext)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modal := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())

	if width <= 0 || height <= 0 {
		return modal
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

const contextHelpCanvas = `## Map

**Pointer**
  click       Select node or edge
  shift+click Add to selection
  drag node   Move (pins on release)
  drag empty  Pan
  shift+drag  Box select
  alt+click   Connect from node
  wheel       Zoom at pointer

**Editing**
  n           New node (child of selection)
  e           Edit text
  c           Connect from selection, click target
  del         Delete selection
  p           Pin or unpin

**View**
  arrows      Pan       +/- 0   Zoom / reset
  f           Fit       L       Layout strategy
  o           Outline   d       Details
  ctrl+s      Save      q       Quit`

const contextHelpOutline = `## Outline

  j/k         Move up/down
  l/→         Expand or step into
  h/←         Collapse or step out
  space       Toggle expand
  enter       Select on the map
  o/esc       Back to the map`

const contextHelpDetail = `## Details

  j/k         Scroll
  d/esc       Close panel
  y           Copy node text`

const contextHelpPicker = `## Picker

  j/k         Move up/down
  enter       Choose
  esc         Cancel`
