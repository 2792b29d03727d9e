package render

import (
	"math"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Style is a backend-neutral description of how to paint a primitive.
// Colors are "#rrggbb" strings; empty means "backend default".
type Style struct {
	Fill   string
	Stroke string
	Text   string
	Width  float64
	Dashed bool
	Bold   bool
}

// Primitives is the visual capability a drawing backend provides. The
// terminal canvas, SVG and PNG exporters each implement it.
type Primitives interface {
	Rect(r model.Rect, st Style)
	Line(from, to model.Position, st Style)
	Text(at model.Position, s string, st Style)
}

// Theme maps node kinds and relations to styles.
type Theme struct {
	Nodes     map[model.NodeKind]Style
	Relations map[model.RelationKind]Style
	Default   Style
	Edge      Style
	Selected  Style // merged over the base style of selected elements
	Pinned    Style // merged over pinned nodes
	Overlay   Style
}

// DefaultTheme returns the stock palette.
func DefaultTheme() Theme {
	return Theme{
		Nodes: map[model.NodeKind]Style{
			model.KindTopic:     {Fill: "#1e3a5f", Stroke: "#4a90d9", Text: "#ffffff", Bold: true},
			model.KindProblem:   {Fill: "#5c1f1f", Stroke: "#d9534f", Text: "#ffffff"},
			model.KindSolution:  {Fill: "#1f4d2b", Stroke: "#5cb85c", Text: "#ffffff"},
			model.KindEffect:    {Fill: "#4d3b1f", Stroke: "#f0ad4e", Text: "#ffffff"},
			model.KindCriterion: {Fill: "#3b2a5c", Stroke: "#9b7fd9", Text: "#ffffff"},
			model.KindClaim:     {Fill: "#2b2b2b", Stroke: "#aaaaaa", Text: "#eeeeee"},
		},
		Relations: map[model.RelationKind]Style{
			model.RelSupports:  {Stroke: "#5cb85c"},
			model.RelOpposes:   {Stroke: "#d9534f"},
			model.RelRelatesTo: {Stroke: "#888888", Dashed: true},
		},
		Default:  Style{Fill: "#333333", Stroke: "#777777", Text: "#dddddd", Width: 1},
		Edge:     Style{Stroke: "#888888", Width: 1},
		Selected: Style{Stroke: "#ffd700", Width: 3},
		Pinned:   Style{Dashed: true},
		Overlay:  Style{Stroke: "#ffd700", Dashed: true, Width: 1},
	}
}

// NodeStyle resolves the style of a node box.
func (th Theme) NodeStyle(n NodeBox) Style {
	st := th.Default
	if s, ok := th.Nodes[n.Kind]; ok {
		st = merge(st, s)
	}
	if n.Pinned {
		st = merge(st, th.Pinned)
	}
	if n.Selected {
		st = merge(st, th.Selected)
	}
	return st
}

// EdgeStyle resolves the style of an edge line.
func (th Theme) EdgeStyle(e EdgeLine) Style {
	st := th.Edge
	if s, ok := th.Relations[e.Relation]; ok {
		st = merge(st, s)
	}
	if e.Selected {
		st = merge(st, th.Selected)
	}
	return st
}

// merge overlays the non-zero fields of top onto base.
func merge(base, top Style) Style {
	if top.Fill != "" {
		base.Fill = top.Fill
	}
	if top.Stroke != "" {
		base.Stroke = top.Stroke
	}
	if top.Text != "" {
		base.Text = top.Text
	}
	if top.Width != 0 {
		base.Width = top.Width
	}
	base.Dashed = base.Dashed || top.Dashed
	base.Bold = base.Bold || top.Bold
	return base
}

// arrowSize is the length of arrowhead strokes in screen units.
const arrowSize = 8

// Draw paints the scene through p: edges first, then nodes, then overlay.
func Draw(s Scene, p Primitives, th Theme) {
	for _, e := range s.Edges {
		st := th.EdgeStyle(e)
		p.Line(e.From, e.To, st)
		drawArrowHead(p, e.From, e.To, st)
	}
	for _, n := range s.Nodes {
		st := th.NodeStyle(n)
		p.Rect(n.Rect, st)
		p.Text(n.Rect.Center(), n.Label, st)
	}
	if r := s.Overlay.SelectRect; r != nil {
		p.Rect(*r, th.Overlay)
	}
	if c := s.Overlay.Connecting; c != nil {
		p.Line(c[0], c[1], th.Overlay)
	}
}

func drawArrowHead(p Primitives, from, to model.Position, st Style) {
	d := to.Sub(from)
	l := math.Hypot(d.X, d.Y)
	if l < arrowSize {
		return
	}
	ux, uy := d.X/l, d.Y/l
	back := model.Position{X: to.X - ux*arrowSize, Y: to.Y - uy*arrowSize}
	side := model.Position{X: -uy * arrowSize / 2, Y: ux * arrowSize / 2}
	head := st
	head.Dashed = false
	p.Line(to, back.Add(side), head)
	p.Line(to, back.Sub(side), head)
}
