package render

import (
	"math"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// HitKind says what a pointer landed on.
type HitKind int

const (
	HitCanvas HitKind = iota
	HitNode
	HitEdge
)

func (k HitKind) String() string {
	switch k {
	case HitNode:
		return "node"
	case HitEdge:
		return "edge"
	}
	return "canvas"
}

// Hit is the result of a hit test.
type Hit struct {
	Kind HitKind
	ID   string
}

// HitTest maps a screen point to the topmost node under it, else the
// nearest edge within tolerance, else the canvas.
func (s Scene) HitTest(p model.Position) Hit {
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		if s.Nodes[i].Rect.Contains(p) {
			return Hit{Kind: HitNode, ID: s.Nodes[i].ID}
		}
	}
	best, bestDist := "", math.Inf(1)
	for _, e := range s.Edges {
		if d := segmentDistance(p, e.From, e.To); d <= s.tol && d < bestDist {
			best, bestDist = e.ID, d
		}
	}
	if best != "" {
		return Hit{Kind: HitEdge, ID: best}
	}
	return Hit{Kind: HitCanvas}
}

// NodesInRect returns ids of nodes whose box centre lies inside r, in draw
// order.
func (s Scene) NodesInRect(r model.Rect) []string {
	var out []string
	for _, n := range s.Nodes {
		if r.Contains(n.Rect.Center()) {
			out = append(out, n.ID)
		}
	}
	return out
}

// Node looks up a drawn node box.
func (s Scene) Node(id string) (NodeBox, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeBox{}, false
}

func segmentDistance(p, a, b model.Position) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Dist(a)
	}
	ap := p.Sub(a)
	t := math.Max(0, math.Min(1, (ap.X*ab.X+ap.Y*ab.Y)/l2))
	return p.Dist(a.Add(ab.Scale(t)))
}
