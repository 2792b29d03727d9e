package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
)

func newTestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(nil))
}

func rows(c *Canvas) []string {
	return strings.Split(c.Plain(), "\n")
}

func rect(x0, y0, x1, y1 float64) model.Rect {
	return model.Rect{Min: model.Position{X: x0, Y: y0}, Max: model.Position{X: x1, Y: y1}}
}

func TestCanvas_RectBorders(t *testing.T) {
	tests := []struct {
		name   string
		style  render.Style
		top    string
		middle string
	}{
		{"rounded", render.Style{Width: 1}, "╭──────────────────╮", "│                  │"},
		{"dashed", render.Style{Dashed: true}, "╭┄┄┄┄┄┄┄┄┄┄┄┄┄┄┄┄┄┄╮", "┆                  ┆"},
		{"heavy", render.Style{Width: 3, Dashed: true}, "┏━━━━━━━━━━━━━━━━━━┓", "┃                  ┃"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanvas(24, 4, newTestTheme())
			c.Rect(rect(0, 0, 160, 48), tt.style)
			got := rows(c)
			if !strings.HasPrefix(got[0], tt.top) {
				t.Errorf("top = %q, want prefix %q", got[0], tt.top)
			}
			if !strings.HasPrefix(got[1], tt.middle) {
				t.Errorf("middle = %q, want prefix %q", got[1], tt.middle)
			}
			if strings.TrimSpace(got[3]) != "" {
				t.Errorf("row below box not blank: %q", got[3])
			}
		})
	}
}

func TestCanvas_TinyRectBecomesMarker(t *testing.T) {
	c := NewCanvas(4, 2, newTestTheme())
	c.Rect(rect(0, 0, 6, 6), render.Style{})
	if got := rows(c)[0]; got != "▪   " {
		t.Errorf("row = %q", got)
	}
}

func TestCanvas_ClipsOutside(t *testing.T) {
	c := NewCanvas(10, 3, newTestTheme())
	c.Rect(rect(-400, -400, -200, -200), render.Style{})
	c.Line(model.Position{X: -100, Y: 8}, model.Position{X: 1000, Y: 8}, render.Style{})
	c.Text(model.Position{X: 5000, Y: 5000}, "far away", render.Style{})
	if got := rows(c)[0]; got != "──────────" {
		t.Errorf("row 0 = %q", got)
	}
}

func TestCanvas_TextCentred(t *testing.T) {
	c := NewCanvas(24, 3, newTestTheme())
	c.Text(CellCenter(10, 1), "Hi", render.Style{Text: "#ffffff", Bold: true})
	row := rows(c)[1]
	if idx := strings.Index(row, "Hi"); idx != 9 {
		t.Errorf("text at column %d, want 9 (row %q)", idx, row)
	}
	if !strings.Contains(c.Render(), "Hi") {
		t.Error("rendered canvas lost the text run")
	}
}

func TestCanvas_WideRunes(t *testing.T) {
	c := NewCanvas(8, 1, newTestTheme())
	c.Text(CellCenter(4, 0), "漢字", render.Style{})
	row := rows(c)[0]
	if !strings.Contains(row, "漢字") {
		t.Fatalf("row = %q", row)
	}
	if n := len([]rune(row)); n != 6 {
		t.Errorf("row has %d runes, want 6 (two wide runes fill four cells)", n)
	}
}

func TestCanvas_LineGlyphs(t *testing.T) {
	tests := []struct {
		name     string
		from, to model.Position
		x, y     int
		want     rune
	}{
		{"horizontal", CellCenter(0, 2), CellCenter(9, 2), 5, 2, '─'},
		{"vertical", CellCenter(3, 0), CellCenter(3, 4), 3, 2, '│'},
		{"falling", CellCenter(0, 0), CellCenter(4, 4), 2, 2, '╲'},
		{"rising", CellCenter(0, 4), CellCenter(4, 0), 2, 2, '╱'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanvas(10, 5, newTestTheme())
			c.Line(tt.from, tt.to, render.Style{})
			if got := c.at(tt.x, tt.y).r; got != tt.want {
				t.Errorf("cell (%d,%d) = %q, want %q\n%s", tt.x, tt.y, got, tt.want, c.Plain())
			}
		})
	}
}

func TestCanvas_ShortStrokeIsArrow(t *testing.T) {
	c := NewCanvas(4, 4, newTestTheme())
	tip := CellCenter(1, 1)
	c.Line(tip, tip.Add(model.Position{X: 3, Y: 8}), render.Style{})
	if got := c.at(1, 1).r; got != '▲' {
		t.Errorf("glyph = %q", got)
	}
}

func TestCanvas_DashedLineSkipsCells(t *testing.T) {
	c := NewCanvas(10, 1, newTestTheme())
	c.Line(CellCenter(0, 0), CellCenter(9, 0), render.Style{Dashed: true})
	if got := rows(c)[0]; got != "─ ─ ─ ─ ─ " {
		t.Errorf("row = %q", got)
	}
}

func TestCanvas_DrawScene(t *testing.T) {
	scene := render.Scene{
		Nodes: []render.NodeBox{
			{ID: "a", Kind: model.KindTopic, Label: "Energy", Rect: rect(0, 0, 160, 48)},
			{ID: "b", Kind: model.KindClaim, Label: "Solar", Rect: rect(0, 96, 160, 144), Selected: true},
		},
		Edges: []render.EdgeLine{
			{ID: "e", Source: "b", Target: "a", Relation: model.RelSupports,
				From: model.Position{X: 80, Y: 96}, To: model.Position{X: 80, Y: 48}},
		},
	}
	c := NewCanvas(24, 10, newTestTheme())
	render.Draw(scene, c, render.DefaultTheme())

	out := c.Plain()
	for _, want := range []string{"Energy", "Solar", "┏", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("canvas missing %q\n%s", want, out)
		}
	}
	if got := c.at(10, 4).r; got != '│' {
		t.Errorf("edge cell = %q\n%s", got, out)
	}
	if got := c.at(10, 3).r; got != '▲' {
		t.Errorf("arrow cell = %q\n%s", got, out)
	}
}
