package graph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Change describes one published revision.
type Change struct {
	Revision     uint64
	Op           string
	AddedNodes   []string
	AddedEdges   []string
	UpdatedNodes []string
	RemovedNodes []string
	RemovedEdges []string
}

// Removed returns every node and edge id deleted by the change.
func (c Change) Removed() []string {
	out := make([]string, 0, len(c.RemovedNodes)+len(c.RemovedEdges))
	out = append(out, c.RemovedNodes...)
	return append(out, c.RemovedEdges...)
}

// Option configures a Graph.
type Option func(*Graph)

// WithKinds restricts node and relation kinds to a registry.
func WithKinds(k *model.Kinds) Option {
	return func(g *Graph) { g.kinds = k }
}

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(g *Graph) { g.newID = fn }
}

// WithLogger sets the logger used for mutation tracing.
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) { g.log = l }
}

// Graph is the canonical node/edge set of a session.
type Graph struct {
	current atomic.Pointer[View]

	kinds *model.Kinds
	newID func() string
	log   *zap.Logger

	// Single writer; mu only guards observers and serializes Apply.
	mu        sync.Mutex
	observers map[int]func(Change)
	nextObs   int
}

// New creates an empty graph at revision 0.
func New(opts ...Option) *Graph {
	g := &Graph{
		newID:     uuid.NewString,
		log:       zap.NewNop(),
		observers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.current.Store(emptyView(g.kinds))
	return g
}

// FromSnapshot creates a graph seeded from persisted data.
func FromSnapshot(s model.Snapshot, opts ...Option) (*Graph, error) {
	g := New(opts...)
	if err := g.Load(s); err != nil {
		return nil, err
	}
	return g, nil
}

// View returns the current immutable revision.
func (g *Graph) View() *View { return g.current.Load() }

// Revision returns the current revision counter.
func (g *Graph) Revision() uint64 { return g.View().Revision() }

// Kinds returns the kind registry, nil when any non-empty kind is accepted.
func (g *Graph) Kinds() *model.Kinds { return g.kinds }

// Apply runs fn against a private copy of the graph. If fn returns nil and
// changed anything, the copy is published as the next revision; otherwise
// the graph and its revision are untouched.
func (g *Graph) Apply(op string, fn func(tx *Tx) error) (Change, error) {
	change, observers, err := g.apply(op, fn)
	if err != nil {
		g.log.Debug("mutation rejected", zap.String("op", op), zap.Error(err))
		return Change{}, err
	}
	if change.Revision == 0 {
		return Change{}, nil
	}
	g.log.Debug("mutation applied",
		zap.String("op", op),
		zap.Uint64("revision", change.Revision),
		zap.Int("removed", len(change.RemovedNodes)+len(change.RemovedEdges)))

	for _, obs := range observers {
		obs(change)
	}
	return change, nil
}

// apply publishes the next revision under g.mu. A zero Change.Revision
// means fn changed nothing. The lock is released even if fn panics.
func (g *Graph) apply(op string, fn func(tx *Tx) error) (Change, []func(Change), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	base := g.current.Load()
	tx := &Tx{view: base.clone(), newID: g.newID, change: Change{Op: op}}
	if err := fn(tx); err != nil {
		return Change{}, nil, err
	}
	if !tx.dirty() {
		return Change{}, nil, nil
	}
	tx.view.revision = base.revision + 1
	tx.change.Revision = tx.view.revision
	g.current.Store(tx.view)
	observers := make([]func(Change), 0, len(g.observers))
	for i := 0; i < g.nextObs; i++ {
		if obs, ok := g.observers[i]; ok {
			observers = append(observers, obs)
		}
	}
	return tx.change, observers, nil
}

// Subscribe registers fn to run after every published revision, on the
// mutating goroutine. The returned func unregisters it.
func (g *Graph) Subscribe(fn func(Change)) func() {
	g.mu.Lock()
	id := g.nextObs
	g.nextObs++
	g.observers[id] = fn
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.observers, id)
		g.mu.Unlock()
	}
}

// AddNode creates a node. parent may be empty.
func (g *Graph) AddNode(kind model.NodeKind, text, parent string) (string, error) {
	var id string
	_, err := g.Apply("add_node", func(tx *Tx) error {
		var err error
		id, err = tx.AddNode(kind, text, parent)
		return err
	})
	return id, err
}

// AddEdge connects source to target. Fails with ErrInvalidReference if either
// endpoint is absent or both are the same node.
func (g *Graph) AddEdge(source, target string, rel model.RelationKind) (string, error) {
	var id string
	_, err := g.Apply("add_edge", func(tx *Tx) error {
		var err error
		id, err = tx.AddEdge(source, target, rel)
		return err
	})
	return id, err
}

// RemoveNode deletes a node with its anchored sub-tree and incident edges.
func (g *Graph) RemoveNode(id string) (Change, error) {
	return g.Apply("remove_node", func(tx *Tx) error { return tx.RemoveNode(id) })
}

// RemoveEdge deletes an edge.
func (g *Graph) RemoveEdge(id string) (Change, error) {
	return g.Apply("remove_edge", func(tx *Tx) error { return tx.RemoveEdge(id) })
}

// UpdateNode edits a node. Fails with ErrNotFound if id is absent.
func (g *Graph) UpdateNode(id string, patch NodePatch) error {
	_, err := g.Apply("update_node", func(tx *Tx) error { return tx.UpdateNode(id, patch) })
	return err
}

// PinNode sets a pinned position override that layout must keep verbatim.
func (g *Graph) PinNode(id string, pos model.Position) error {
	return g.UpdateNode(id, NodePatch{Pin: &pos})
}

// UnpinNode clears the pinned override so layout places the node again.
func (g *Graph) UnpinNode(id string) error {
	return g.UpdateNode(id, NodePatch{Unpin: true})
}

// Load replaces the whole graph with the snapshot as one revision. Parent
// references that point outside the snapshot are kept and treated as absent.
func (g *Graph) Load(s model.Snapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	_, err := g.Apply("load", func(tx *Tx) error {
		old := tx.view
		tx.view = emptyView(old.kinds)
		tx.change.RemovedNodes = append(tx.change.RemovedNodes, old.nodeOrder...)
		tx.change.RemovedEdges = append(tx.change.RemovedEdges, old.edgeOrder...)
		for _, n := range s.Nodes {
			if err := tx.insertNode(n, false); err != nil {
				return err
			}
		}
		for _, e := range s.Edges {
			if err := tx.InsertEdge(e); err != nil {
				return err
			}
		}
		// Ids present before and after are not removals.
		tx.change.RemovedNodes = filterIDs(tx.change.RemovedNodes, toSet(tx.view.nodeOrder))
		tx.change.RemovedEdges = filterIDs(tx.change.RemovedEdges, toSet(tx.view.edgeOrder))
		return nil
	})
	return err
}

// Snapshot returns the persistable form of the current revision.
func (g *Graph) Snapshot() model.Snapshot {
	return g.View().Snapshot()
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
