package graph

import (
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// View is an immutable revision of the graph. Nodes and edges returned by a
// View must not be modified; use Clone for a private copy.
type View struct {
	revision  uint64
	nodes     map[string]*model.Node
	nodeOrder []string
	edges     map[string]*model.Edge
	edgeOrder []string
	kinds     *model.Kinds
}

func emptyView(kinds *model.Kinds) *View {
	return &View{
		nodes: make(map[string]*model.Node),
		edges: make(map[string]*model.Edge),
		kinds: kinds,
	}
}

// clone copies the indexes. Node and edge values stay shared; writers replace
// pointers rather than mutating through them.
func (v *View) clone() *View {
	c := &View{
		revision:  v.revision,
		nodes:     make(map[string]*model.Node, len(v.nodes)),
		nodeOrder: make([]string, len(v.nodeOrder)),
		edges:     make(map[string]*model.Edge, len(v.edges)),
		edgeOrder: make([]string, len(v.edgeOrder)),
		kinds:     v.kinds,
	}
	for k, n := range v.nodes {
		c.nodes[k] = n
	}
	for k, e := range v.edges {
		c.edges[k] = e
	}
	copy(c.nodeOrder, v.nodeOrder)
	copy(c.edgeOrder, v.edgeOrder)
	return c
}

// Revision returns the revision this view was published at.
func (v *View) Revision() uint64 { return v.revision }

// Kinds returns the kind registry the graph validates against.
func (v *View) Kinds() *model.Kinds { return v.kinds }

// NodeCount returns the number of nodes.
func (v *View) NodeCount() int { return len(v.nodeOrder) }

// EdgeCount returns the number of edges.
func (v *View) EdgeCount() int { return len(v.edgeOrder) }

// Node returns the node with the given id.
func (v *View) Node(id string) (*model.Node, bool) {
	n, ok := v.nodes[id]
	return n, ok
}

// Edge returns the edge with the given id.
func (v *View) Edge(id string) (*model.Edge, bool) {
	e, ok := v.edges[id]
	return e, ok
}

// HasNode reports whether id names a node.
func (v *View) HasNode(id string) bool {
	_, ok := v.nodes[id]
	return ok
}

// HasEdge reports whether id names an edge.
func (v *View) HasEdge(id string) bool {
	_, ok := v.edges[id]
	return ok
}

// Nodes returns all nodes in insertion order.
func (v *View) Nodes() []*model.Node {
	out := make([]*model.Node, 0, len(v.nodeOrder))
	for _, id := range v.nodeOrder {
		out = append(out, v.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (v *View) Edges() []*model.Edge {
	out := make([]*model.Edge, 0, len(v.edgeOrder))
	for _, id := range v.edgeOrder {
		out = append(out, v.edges[id])
	}
	return out
}

// NodeIndex returns the insertion rank of a node, or -1.
func (v *View) NodeIndex(id string) int {
	for i, nid := range v.nodeOrder {
		if nid == id {
			return i
		}
	}
	return -1
}

// Incident returns the edges that touch the node, in insertion order.
func (v *View) Incident(id string) []*model.Edge {
	var out []*model.Edge
	for _, eid := range v.edgeOrder {
		if e := v.edges[eid]; e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

// Children returns nodes whose parent is id, in insertion order.
func (v *View) Children(id string) []*model.Node {
	var out []*model.Node
	for _, nid := range v.nodeOrder {
		if n := v.nodes[nid]; n.Parent == id {
			out = append(out, n)
		}
	}
	return out
}

// ParentOf returns the parent node, treating a dangling parent as absent.
func (v *View) ParentOf(id string) (*model.Node, bool) {
	n, ok := v.nodes[id]
	if !ok || n.Parent == "" {
		return nil, false
	}
	p, ok := v.nodes[n.Parent]
	return p, ok
}

// Snapshot returns a deep copy suitable for persistence.
func (v *View) Snapshot() model.Snapshot {
	s := model.Snapshot{
		Version:  model.SnapshotVersion,
		Revision: v.revision,
		Nodes:    make([]model.Node, 0, len(v.nodeOrder)),
		Edges:    make([]model.Edge, 0, len(v.edgeOrder)),
	}
	for _, id := range v.nodeOrder {
		s.Nodes = append(s.Nodes, v.nodes[id].Clone())
	}
	for _, id := range v.edgeOrder {
		s.Edges = append(s.Edges, *v.edges[id])
	}
	return s
}

// descendants returns id and every node reachable through parent links,
// in breadth-first order. Cycles in parent data are tolerated.
func (v *View) descendants(id string) []string {
	children := make(map[string][]string)
	for _, nid := range v.nodeOrder {
		if p := v.nodes[nid].Parent; p != "" {
			children[p] = append(children[p], nid)
		}
	}
	visited := map[string]bool{id: true}
	out := []string{id}
	for i := 0; i < len(out); i++ {
		for _, c := range children[out[i]] {
			if !visited[c] {
				visited[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
