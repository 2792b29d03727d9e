// Package render projects graph, layout, viewport and selection into a
// drawable Scene. Projection is pure: it never mutates its inputs, and
// calling it twice with the same inputs yields the same Scene.
package render

import (
	"math"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/selection"
	"github.com/vanderheijden86/topicmap/pkg/viewport"
)

// NodeBox is a node as drawn on screen.
type NodeBox struct {
	ID       string
	Kind     model.NodeKind
	Label    string
	Rect     model.Rect // screen space
	Selected bool
	Pinned   bool
}

// EdgeLine is an edge as drawn on screen, clipped to its endpoint boxes.
type EdgeLine struct {
	ID       string
	Source   string
	Target   string
	Relation model.RelationKind
	From     model.Position
	To       model.Position
	Selected bool
}

// Overlay holds transient interaction feedback drawn above the scene.
type Overlay struct {
	SelectRect *model.Rect        // box selection in progress
	Connecting *[2]model.Position // rubber band from source to pointer
}

// Options controls projection.
type Options struct {
	NodeWidth     float64 // graph units
	NodeHeight    float64
	LabelCells    int     // max label width in terminal cells before truncation; 0 disables
	EdgeTolerance float64 // hit distance for edges, screen units
	Overlay       Overlay
}

// DefaultOptions matches layout.DefaultConfig node sizing.
func DefaultOptions() Options {
	cfg := layout.DefaultConfig()
	return Options{NodeWidth: cfg.NodeWidth, NodeHeight: cfg.NodeHeight, LabelCells: 24, EdgeTolerance: 4}
}

// Scene is everything a drawing backend needs, in draw order.
type Scene struct {
	Revision uint64
	Zoom     float64
	Edges    []EdgeLine
	Nodes    []NodeBox
	Overlay  Overlay
	Bounds   model.Rect // screen-space extent of all boxes
	Stale    bool       // positions belong to an older revision than the graph
	tol      float64
}

// Project builds the scene. Nodes without a position in res are skipped.
func Project(v *graph.View, res *layout.Result, vp viewport.Viewport, sel *selection.Selection, opts Options) Scene {
	if sel == nil {
		sel = selection.New()
	}
	scene := Scene{
		Revision: v.Revision(),
		Zoom:     vp.Zoom,
		Overlay:  opts.Overlay,
		tol:      opts.EdgeTolerance,
	}

	boxes := make(map[string]model.Rect, v.NodeCount())
	for _, n := range v.Nodes() {
		p, ok := res.Position(n.ID)
		if !ok {
			continue
		}
		r := vp.RectToScreen(model.Rect{
			Min: p,
			Max: model.Position{X: p.X + opts.NodeWidth, Y: p.Y + opts.NodeHeight},
		})
		boxes[n.ID] = r
		scene.Nodes = append(scene.Nodes, NodeBox{
			ID:       n.ID,
			Kind:     n.Kind,
			Label:    Label(n, opts.LabelCells),
			Rect:     r,
			Selected: sel.Has(n.ID),
			Pinned:   n.Pinned != nil,
		})
		scene.Bounds = scene.Bounds.Union(r)
	}

	for _, e := range v.Edges() {
		sr, okS := boxes[e.Source]
		tr, okT := boxes[e.Target]
		if !okS || !okT {
			continue
		}
		scene.Edges = append(scene.Edges, EdgeLine{
			ID:       e.ID,
			Source:   e.Source,
			Target:   e.Target,
			Relation: e.Relation,
			From:     clipToRect(sr, tr.Center()),
			To:       clipToRect(tr, sr.Center()),
			Selected: sel.Has(e.ID),
		})
	}
	return scene
}

// Label returns the display label of a node truncated to cells terminal
// cells (wide runes count double).
func Label(n *model.Node, cells int) string {
	s := n.Summary()
	if cells <= 0 || runewidth.StringWidth(s) <= cells {
		return s
	}
	return runewidth.Truncate(s, cells, "…")
}

// clipToRect returns where the segment from r's centre toward p leaves r.
func clipToRect(r model.Rect, p model.Position) model.Position {
	c := r.Center()
	dx, dy := p.X-c.X, p.Y-c.Y
	if dx == 0 && dy == 0 {
		return c
	}
	hw, hh := r.Width()/2, r.Height()/2
	t := math.Inf(1)
	if dx != 0 {
		t = math.Min(t, hw/math.Abs(dx))
	}
	if dy != 0 {
		t = math.Min(t, hh/math.Abs(dy))
	}
	if t > 1 {
		t = 1
	}
	return model.Position{X: c.X + dx*t, Y: c.Y + dy*t}
}
