package graph

import (
	"fmt"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// NodePatch describes an in-place edit of a node. Nil fields are left alone.
// There is no Kind field: a node keeps its kind for life.
type NodePatch struct {
	Text       *string
	Parent     *string // "" clears the parent
	SetMeta    map[string]string
	DeleteMeta []string
	Pin        *model.Position
	Unpin      bool
}

// Tx is a batch of mutations applied to a private copy of the graph.
// Nothing a Tx does is visible until Graph.Apply publishes it.
type Tx struct {
	view   *View
	newID  func() string
	change Change
}

// View exposes the in-progress state, including earlier mutations in this Tx.
func (tx *Tx) View() *View { return tx.view }

// AddNode inserts a new node and returns its generated id.
func (tx *Tx) AddNode(kind model.NodeKind, text, parent string) (string, error) {
	n := model.Node{ID: tx.newID(), Kind: kind, Text: text, Parent: parent}
	if err := tx.InsertNode(n); err != nil {
		return "", err
	}
	return n.ID, nil
}

// InsertNode inserts a fully specified node, keeping its id.
func (tx *Tx) InsertNode(n model.Node) error {
	return tx.insertNode(n, true)
}

func (tx *Tx) insertNode(n model.Node, checkParent bool) error {
	if err := tx.view.kinds.CheckNode(n.Kind); err != nil {
		return fmt.Errorf("add_node: %w: %v", ErrInvalidKind, err)
	}
	if tx.view.HasNode(n.ID) || tx.view.HasEdge(n.ID) {
		return fmt.Errorf("add_node: %q: %w", n.ID, ErrDuplicateID)
	}
	if checkParent && n.Parent != "" && !tx.view.HasNode(n.Parent) {
		return &ReferenceError{Op: "add_node", Role: "parent", ID: n.Parent}
	}
	if err := n.Validate(); err != nil {
		return fmt.Errorf("add_node: %w", err)
	}
	clone := n.Clone()
	tx.view.nodes[n.ID] = &clone
	tx.view.nodeOrder = append(tx.view.nodeOrder, n.ID)
	tx.change.AddedNodes = append(tx.change.AddedNodes, n.ID)
	return nil
}

// AddEdge connects two existing nodes and returns the generated edge id.
func (tx *Tx) AddEdge(source, target string, rel model.RelationKind) (string, error) {
	e := model.Edge{ID: tx.newID(), Source: source, Target: target, Relation: rel}
	if err := tx.InsertEdge(e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// InsertEdge inserts a fully specified edge, keeping its id.
func (tx *Tx) InsertEdge(e model.Edge) error {
	if !tx.view.HasNode(e.Source) {
		return &ReferenceError{Op: "add_edge", Role: "source", ID: e.Source}
	}
	if !tx.view.HasNode(e.Target) {
		return &ReferenceError{Op: "add_edge", Role: "target", ID: e.Target}
	}
	if e.Source == e.Target {
		return &ReferenceError{Op: "add_edge", Role: "target", ID: e.Target}
	}
	if err := tx.view.kinds.CheckRelation(e.Relation); err != nil {
		return fmt.Errorf("add_edge: %w: %v", ErrInvalidKind, err)
	}
	if tx.view.HasEdge(e.ID) || tx.view.HasNode(e.ID) {
		return fmt.Errorf("add_edge: %q: %w", e.ID, ErrDuplicateID)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("add_edge: %w", err)
	}
	clone := e
	tx.view.edges[e.ID] = &clone
	tx.view.edgeOrder = append(tx.view.edgeOrder, e.ID)
	tx.change.AddedEdges = append(tx.change.AddedEdges, e.ID)
	return nil
}

// RemoveNode deletes the node, the sub-tree anchored to it through parent
// references, and every edge touching a deleted node.
func (tx *Tx) RemoveNode(id string) error {
	if !tx.view.HasNode(id) {
		return &NotFoundError{Op: "remove_node", ID: id}
	}

	doomed := make(map[string]bool)
	for _, nid := range tx.view.descendants(id) {
		doomed[nid] = true
		delete(tx.view.nodes, nid)
		tx.change.RemovedNodes = append(tx.change.RemovedNodes, nid)
	}
	tx.view.nodeOrder = filterIDs(tx.view.nodeOrder, doomed)

	gone := make(map[string]bool)
	for _, eid := range tx.view.edgeOrder {
		e := tx.view.edges[eid]
		if doomed[e.Source] || doomed[e.Target] {
			gone[eid] = true
			delete(tx.view.edges, eid)
			tx.change.RemovedEdges = append(tx.change.RemovedEdges, eid)
		}
	}
	tx.view.edgeOrder = filterIDs(tx.view.edgeOrder, gone)
	return nil
}

// RemoveEdge deletes a single edge.
func (tx *Tx) RemoveEdge(id string) error {
	if !tx.view.HasEdge(id) {
		return &NotFoundError{Op: "remove_edge", ID: id}
	}
	delete(tx.view.edges, id)
	tx.view.edgeOrder = filterIDs(tx.view.edgeOrder, map[string]bool{id: true})
	tx.change.RemovedEdges = append(tx.change.RemovedEdges, id)
	return nil
}

// Remove deletes a node or edge by id, whichever it names. Ids already
// removed earlier in the same Tx (e.g. by a cascade) are skipped.
func (tx *Tx) Remove(id string) error {
	switch {
	case tx.view.HasNode(id):
		return tx.RemoveNode(id)
	case tx.view.HasEdge(id):
		return tx.RemoveEdge(id)
	case tx.removed(id):
		return nil
	}
	return &NotFoundError{Op: "remove", ID: id}
}

func (tx *Tx) removed(id string) bool {
	for _, r := range tx.change.RemovedNodes {
		if r == id {
			return true
		}
	}
	for _, r := range tx.change.RemovedEdges {
		if r == id {
			return true
		}
	}
	return false
}

// UpdateNode applies patch to the node.
func (tx *Tx) UpdateNode(id string, patch NodePatch) error {
	cur, ok := tx.view.nodes[id]
	if !ok {
		return &NotFoundError{Op: "update_node", ID: id}
	}
	n := cur.Clone()

	if patch.Text != nil {
		n.Text = *patch.Text
	}
	if patch.Parent != nil {
		p := *patch.Parent
		if p != "" {
			if !tx.view.HasNode(p) {
				return &ReferenceError{Op: "update_node", Role: "parent", ID: p}
			}
			for _, d := range tx.view.descendants(id) {
				if d == p {
					return &ReferenceError{Op: "update_node", Role: "parent", ID: p}
				}
			}
		}
		n.Parent = p
	}
	if len(patch.SetMeta) > 0 && n.Metadata == nil {
		n.Metadata = make(map[string]string, len(patch.SetMeta))
	}
	for k, v := range patch.SetMeta {
		n.Metadata[k] = v
	}
	for _, k := range patch.DeleteMeta {
		delete(n.Metadata, k)
	}
	if patch.Unpin {
		n.Pinned = nil
	}
	if patch.Pin != nil {
		v := *patch.Pin
		n.Pinned = &v
	}
	if err := n.Validate(); err != nil {
		return fmt.Errorf("update_node: %w", err)
	}

	tx.view.nodes[id] = &n
	tx.change.UpdatedNodes = append(tx.change.UpdatedNodes, id)
	return nil
}

func (tx *Tx) dirty() bool {
	c := &tx.change
	return len(c.AddedNodes)+len(c.AddedEdges)+len(c.RemovedNodes)+len(c.RemovedEdges)+len(c.UpdatedNodes) > 0
}

func filterIDs(ids []string, drop map[string]bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
