package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
)

// Theme holds the terminal palette. Canvas colors come from Palette so the
// terminal and the file exporters agree.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Warn      lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Status   lipgloss.Style

	Palette render.Theme
}

// DefaultTheme creates the stock theme for a renderer.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#1e5aa8", Dark: "#4a90d9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#9a7b00", Dark: "#ffd700"},
		Highlight: lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#5cb85c"},
		Muted:     lipgloss.AdaptiveColor{Light: "#8a8a8a", Dark: "#6c6c6c"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#444444", Dark: "#bcbcbc"},
		Border:    lipgloss.AdaptiveColor{Light: "#bcbcbc", Dark: "#444444"},
		Error:     lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#d9534f"},
		Warn:      lipgloss.AdaptiveColor{Light: "#ef6c00", Dark: "#f0ad4e"},
		Palette:   render.DefaultTheme(),
	}
	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#eeeeee"})
	t.Selected = r.NewStyle().Foreground(t.Secondary).Bold(true)
	t.Header = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	return t
}

// KindIcon returns a one-cell marker and color for a node kind.
func (t Theme) KindIcon(kind model.NodeKind) (string, lipgloss.TerminalColor) {
	color := lipgloss.TerminalColor(t.Muted)
	if st, ok := t.Palette.Nodes[kind]; ok && st.Stroke != "" {
		color = lipgloss.Color(st.Stroke)
	}
	switch kind {
	case model.KindTopic:
		return "◆", color
	case model.KindProblem:
		return "!", color
	case model.KindSolution:
		return "✓", color
	case model.KindEffect:
		return "→", color
	case model.KindCriterion:
		return "≡", color
	case model.KindClaim:
		return "•", color
	}
	return "○", color
}

// RelationColor returns the edge color for a relation.
func (t Theme) RelationColor(rel model.RelationKind) lipgloss.TerminalColor {
	if st, ok := t.Palette.Relations[rel]; ok && st.Stroke != "" {
		return lipgloss.Color(st.Stroke)
	}
	return t.Muted
}
