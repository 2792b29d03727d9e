package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// PickerModel is a small modal list: node kinds for a new node, or layout
// strategies.
type PickerModel struct {
	title         string
	items         []string // values returned by Selected
	labels        []string // display names
	current       string   // value marked with a check
	icons         bool     // prefix items with their node kind marker
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewPickerModel creates a picker over items with current preselected.
func NewPickerModel(title string, items []string, current string, theme Theme) PickerModel {
	labels := make([]string, len(items))
	selectedIdx := 0
	for i, it := range items {
		labels[i] = formatItemName(it)
		if it == current {
			selectedIdx = i
		}
	}
	return PickerModel{
		title:         title,
		items:         items,
		labels:        labels,
		current:       current,
		selectedIndex: selectedIdx,
		theme:         theme,
	}
}

// NewKindPicker lists the registered node kinds in their sort order.
func NewKindPicker(kinds *model.Kinds, current model.NodeKind, theme Theme) PickerModel {
	var items []string
	for _, info := range kinds.NodeKinds() {
		items = append(items, string(info.Kind))
	}
	if len(items) == 0 {
		items = []string{string(model.KindTopic), string(model.KindClaim)}
	}
	p := NewPickerModel("New Node", items, string(current), theme)
	p.icons = true
	for i, info := range kinds.NodeKinds() {
		p.labels[i] = formatItemName(info.Label)
	}
	return p
}

// SetSize updates the picker dimensions
func (m *PickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *PickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *PickerModel) MoveDown() {
	if m.selectedIndex < len(m.items)-1 {
		m.selectedIndex++
	}
}

// Selected returns the highlighted value.
func (m *PickerModel) Selected() string {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.items) {
		return m.items[m.selectedIndex]
	}
	return ""
}

// View renders the picker overlay
func (m *PickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 35
	if m.width < 45 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	var lines []string

	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		MarginBottom(1)
	lines = append(lines, titleStyle.Render(m.title))
	lines = append(lines, "")

	for i, item := range m.items {
		isSelected := i == m.selectedIndex

		itemStyle := t.Renderer.NewStyle()
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}

		prefix := "  "
		if isSelected {
			prefix = "> "
		}

		suffix := ""
		if item == m.current {
			checkStyle := t.Renderer.NewStyle().Foreground(t.Secondary)
			suffix = " " + checkStyle.Render("✓")
		}

		line := itemStyle.Render(prefix)
		if m.icons {
			icon, color := t.KindIcon(model.NodeKind(item))
			line += t.Renderer.NewStyle().Foreground(color).Render(icon) + " "
		}
		lines = append(lines, line+itemStyle.Render(m.labels[i])+suffix)
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: choose | esc: cancel"))

	content := strings.Join(lines, "\n")

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(content),
	)
}

// formatItemName converts a kind or strategy name to a display name.
// Example: "relatesTo" -> "Relates To", "layered-tree" -> "Layered Tree"
func formatItemName(s string) string {
	var words []string
	var cur []rune
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ':
			if len(cur) > 0 {
				words = append(words, string(cur))
			}
			cur = nil
			continue
		case r >= 'A' && r <= 'Z' && len(cur) > 0:
			words = append(words, string(cur))
			cur = nil
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, string(cur))
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
