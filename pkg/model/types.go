package model

import (
	"fmt"
	"math"
)

// Node is a topic, claim or criterion drawn on the diagram
type Node struct {
	ID       string            `json:"id"`
	Kind     NodeKind          `json:"kind"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Parent   string            `json:"parent,omitempty"`
	Pinned   *Position         `json:"pinned,omitempty"`
}

// Clone creates a deep copy of the node
func (n Node) Clone() Node {
	clone := n

	if n.Metadata != nil {
		clone.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			clone.Metadata[k] = v
		}
	}
	if n.Pinned != nil {
		v := *n.Pinned
		clone.Pinned = &v
	}

	return clone
}

// Validate checks if the node data is logically valid
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if !n.Kind.IsValid() {
		return fmt.Errorf("invalid node kind: %q", n.Kind)
	}
	if n.Parent == n.ID {
		return fmt.Errorf("node %s cannot be its own parent", n.ID)
	}
	if n.Pinned != nil && !n.Pinned.IsFinite() {
		return fmt.Errorf("node %s has non-finite pinned position %v", n.ID, *n.Pinned)
	}
	return nil
}

// IsPinned returns true if the node carries a user-set position override
func (n *Node) IsPinned() bool {
	return n.Pinned != nil
}

// IsTopic reports whether the node anchors a topic map.
func IsTopic(n *Node) bool {
	return n != nil && n.Kind == KindTopic
}

// Edge is a directed relation between two nodes
type Edge struct {
	ID       string       `json:"id"`
	Source   string       `json:"source"`
	Target   string       `json:"target"`
	Relation RelationKind `json:"relation"`
}

// Validate checks if the edge data is logically valid
func (e *Edge) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("edge ID cannot be empty")
	}
	if e.Source == "" || e.Target == "" {
		return fmt.Errorf("edge %s must have both endpoints", e.ID)
	}
	if e.Source == e.Target {
		return fmt.Errorf("edge %s cannot connect %s to itself", e.ID, e.Source)
	}
	if !e.Relation.IsValid() {
		return fmt.Errorf("invalid relation kind: %q", e.Relation)
	}
	return nil
}

// Touches returns true if either endpoint is the given node
func (e *Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// NodeKind categorizes a node
type NodeKind string

const (
	KindTopic     NodeKind = "topic"
	KindClaim     NodeKind = "claim"
	KindCriterion NodeKind = "criterion"
	KindProblem   NodeKind = "problem"
	KindSolution  NodeKind = "solution"
	KindEffect    NodeKind = "effect"
)

// IsValid returns true if the node kind is non-empty.
// Kinds are an open set registered by the host (see Kinds); unknown kinds
// render with the default style.
func (k NodeKind) IsValid() bool {
	return k != ""
}

// IsKnownKind returns true if the kind is one of the built-in kinds.
func (k NodeKind) IsKnownKind() bool {
	switch k {
	case KindTopic, KindClaim, KindCriterion, KindProblem, KindSolution, KindEffect:
		return true
	}
	return false
}

// RelationKind categorizes an edge
type RelationKind string

const (
	RelSupports     RelationKind = "supports"
	RelOpposes      RelationKind = "opposes"
	RelRelatesTo    RelationKind = "relatesTo"
	RelCauses       RelationKind = "causes"
	RelAddresses    RelationKind = "addresses"
	RelCriterionFor RelationKind = "criterionFor"
)

// IsValid returns true if the relation kind is non-empty
func (r RelationKind) IsValid() bool {
	return r != ""
}

// IsKnownRelation returns true if the relation is one of the built-in relations
func (r RelationKind) IsKnownRelation() bool {
	switch r {
	case RelSupports, RelOpposes, RelRelatesTo, RelCauses, RelAddresses, RelCriterionFor:
		return true
	}
	return false
}

// IsArgument returns true if the relation links a claim into an argument tree.
func (r RelationKind) IsArgument() bool {
	return r == RelSupports || r == RelOpposes
}

// Position is a point in graph space
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q
func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p scaled by f
func (p Position) Scale(f float64) Position {
	return Position{X: p.X * f, Y: p.Y * f}
}

// Dist returns the euclidean distance between p and q
func (p Position) Dist(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// IsFinite returns false if either coordinate is NaN or infinite
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Rect is an axis-aligned rectangle. Min is the top-left corner.
type Rect struct {
	Min Position `json:"min"`
	Max Position `json:"max"`
}

// RectFromPoints returns the normalized rectangle spanned by two corners
func RectFromPoints(a, b Position) Rect {
	return Rect{
		Min: Position{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: Position{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Width returns the horizontal extent
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the rectangle
func (r Rect) Center() Position {
	return Position{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Position) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Union returns the smallest rectangle containing both r and o.
// A zero rect is treated as empty.
func (r Rect) Union(o Rect) Rect {
	if r == (Rect{}) {
		return o
	}
	if o == (Rect{}) {
		return r
	}
	return Rect{
		Min: Position{X: math.Min(r.Min.X, o.Min.X), Y: math.Min(r.Min.Y, o.Min.Y)},
		Max: Position{X: math.Max(r.Max.X, o.Max.X), Y: math.Max(r.Max.Y, o.Max.Y)},
	}
}
