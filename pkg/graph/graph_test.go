package graph

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// seqIDs returns a deterministic id generator: n1, n2, ...
func seqIDs() func() string {
	i := 0
	return func() string {
		i++
		return fmt.Sprintf("n%d", i)
	}
}

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return New(WithIDGenerator(seqIDs()), WithKinds(model.DefaultKinds()))
}

func mustAddNode(t *testing.T, g *Graph, kind model.NodeKind, text, parent string) string {
	t.Helper()
	id, err := g.AddNode(kind, text, parent)
	if err != nil {
		t.Fatalf("AddNode(%s, %q) failed: %v", kind, text, err)
	}
	return id
}

func TestAddNode_BumpsRevision(t *testing.T) {
	g := newTestGraph(t)
	if g.Revision() != 0 {
		t.Fatalf("new graph revision = %d, want 0", g.Revision())
	}
	id := mustAddNode(t, g, model.KindTopic, "Cities", "")
	if g.Revision() != 1 {
		t.Errorf("revision after AddNode = %d, want 1", g.Revision())
	}
	n, ok := g.View().Node(id)
	if !ok {
		t.Fatalf("node %s not found", id)
	}
	if n.Kind != model.KindTopic || n.Text != "Cities" {
		t.Errorf("node = %+v", n)
	}
}

func TestAddNode_Errors(t *testing.T) {
	g := newTestGraph(t)
	tests := []struct {
		name    string
		kind    model.NodeKind
		parent  string
		wantErr error
	}{
		{"EmptyKind", "", "", ErrInvalidKind},
		{"UnregisteredKind", "question", "", ErrInvalidKind},
		{"MissingParent", model.KindClaim, "ghost", ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.AddNode(tt.kind, "x", tt.parent)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddNode error = %v, want %v", err, tt.wantErr)
			}
			if g.Revision() != 0 {
				t.Errorf("failed AddNode bumped revision to %d", g.Revision())
			}
		})
	}
}

func TestAddEdge_InvalidReference(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindTopic, "A", "")

	tests := []struct {
		name           string
		source, target string
		role           string
	}{
		{"MissingTarget", a, "ghost", "target"},
		{"MissingSource", "ghost", a, "source"},
		{"SelfLoop", a, a, "target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := g.Revision()
			_, err := g.AddEdge(tt.source, tt.target, model.RelSupports)
			if !errors.Is(err, ErrInvalidReference) {
				t.Fatalf("AddEdge error = %v, want ErrInvalidReference", err)
			}
			var refErr *ReferenceError
			if !errors.As(err, &refErr) || refErr.Role != tt.role {
				t.Errorf("ReferenceError role = %+v, want %s", refErr, tt.role)
			}
			if g.Revision() != before {
				t.Errorf("revision changed on failed AddEdge")
			}
			if g.View().EdgeCount() != 0 {
				t.Errorf("edge count = %d, want 0", g.View().EdgeCount())
			}
		})
	}
}

func TestAddEdge_DuplicateTriplesAllowed(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindClaim, "A", "")
	b := mustAddNode(t, g, model.KindClaim, "B", "")
	e1, err := g.AddEdge(a, b, model.RelSupports)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := g.AddEdge(a, b, model.RelSupports)
	if err != nil {
		t.Fatal(err)
	}
	if e1 == e2 {
		t.Errorf("duplicate edges share id %s", e1)
	}
}

func TestRemoveNode_CascadeScenario(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindTopic, "A", "")
	b := mustAddNode(t, g, model.KindClaim, "B", a)
	if _, err := g.AddEdge(a, b, model.RelSupports); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	before := g.Revision()

	change, err := g.RemoveNode(a)
	if err != nil {
		t.Fatalf("RemoveNode failed: %v", err)
	}
	v := g.View()
	if v.NodeCount() != 0 || v.EdgeCount() != 0 {
		t.Errorf("after delete: %d nodes, %d edges, want 0 and 0", v.NodeCount(), v.EdgeCount())
	}
	if g.Revision() != before+1 {
		t.Errorf("revision = %d, want %d (exactly one bump)", g.Revision(), before+1)
	}
	if len(change.Removed()) != 3 {
		t.Errorf("change.Removed() = %v, want 3 ids", change.Removed())
	}
}

func TestRemoveNode_KeepsUnrelated(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindClaim, "A", "")
	b := mustAddNode(t, g, model.KindClaim, "B", "")
	c := mustAddNode(t, g, model.KindClaim, "C", "")
	mustEdge := func(s, t2 string) string {
		id, err := g.AddEdge(s, t2, model.RelOpposes)
		if err != nil {
			t.Fatal(err)
		}
		return id
	}
	mustEdge(a, b)
	bc := mustEdge(b, c)
	mustEdge(c, a)

	if _, err := g.RemoveNode(a); err != nil {
		t.Fatal(err)
	}
	v := g.View()
	if v.NodeCount() != 2 {
		t.Errorf("node count = %d, want 2", v.NodeCount())
	}
	edges := v.Edges()
	if len(edges) != 1 || edges[0].ID != bc {
		t.Errorf("remaining edges = %v, want only %s", edges, bc)
	}
}

func TestRemoveNode_NotFound(t *testing.T) {
	g := newTestGraph(t)
	_, err := g.RemoveNode("ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveNode error = %v, want ErrNotFound", err)
	}
}

func TestUpdateNode(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindTopic, "A", "")
	b := mustAddNode(t, g, model.KindClaim, "B", a)

	text := "B prime"
	err := g.UpdateNode(b, NodePatch{
		Text:    &text,
		SetMeta: map[string]string{"source": "survey"},
		Pin:     &model.Position{X: 5, Y: 6},
	})
	if err != nil {
		t.Fatalf("UpdateNode failed: %v", err)
	}
	n, _ := g.View().Node(b)
	if n.Text != text || n.Metadata["source"] != "survey" || n.Pinned == nil || *n.Pinned != (model.Position{X: 5, Y: 6}) {
		t.Errorf("node after update = %+v", n)
	}
	if n.Kind != model.KindClaim {
		t.Errorf("kind changed to %s", n.Kind)
	}

	if err := g.UnpinNode(b); err != nil {
		t.Fatal(err)
	}
	if n, _ := g.View().Node(b); n.Pinned != nil {
		t.Errorf("Pinned = %v after UnpinNode", n.Pinned)
	}

	err = g.UpdateNode("ghost", NodePatch{Text: &text})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateNode(ghost) error = %v, want ErrNotFound", err)
	}

	// Reparenting a node under its own descendant would form a cycle.
	err = g.UpdateNode(a, NodePatch{Parent: &b})
	if !errors.Is(err, ErrInvalidReference) {
		t.Errorf("cyclic reparent error = %v, want ErrInvalidReference", err)
	}
}

func TestUpdateNode_DoesNotLeakIntoOldView(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindTopic, "A", "")
	old := g.View()
	text := "changed"
	if err := g.UpdateNode(a, NodePatch{Text: &text}); err != nil {
		t.Fatal(err)
	}
	n, _ := old.Node(a)
	if n.Text != "A" {
		t.Errorf("old view observed mutation: %q", n.Text)
	}
}

func TestApply_AllOrNothing(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindTopic, "A", "")
	before := g.Revision()

	_, err := g.Apply("batch", func(tx *Tx) error {
		if _, err := tx.AddNode(model.KindClaim, "B", a); err != nil {
			return err
		}
		_, err := tx.AddEdge(a, "ghost", model.RelSupports)
		return err
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("Apply error = %v, want ErrInvalidReference", err)
	}
	if g.Revision() != before {
		t.Errorf("revision = %d, want %d", g.Revision(), before)
	}
	if g.View().NodeCount() != 1 {
		t.Errorf("partial batch leaked: %d nodes", g.View().NodeCount())
	}
}

func TestApply_BatchBumpsOnce(t *testing.T) {
	g := newTestGraph(t)
	change, err := g.Apply("batch", func(tx *Tx) error {
		a, err := tx.AddNode(model.KindTopic, "A", "")
		if err != nil {
			return err
		}
		b, err := tx.AddNode(model.KindClaim, "B", "")
		if err != nil {
			return err
		}
		_, err = tx.AddEdge(b, a, model.RelSupports)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if change.Revision != 1 || g.Revision() != 1 {
		t.Errorf("revision = %d/%d, want 1", change.Revision, g.Revision())
	}
}

func TestApply_PanicReleasesLock(t *testing.T) {
	g := newTestGraph(t)
	mustAddNode(t, g, model.KindTopic, "A", "")
	before := g.Revision()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the mutation to panic")
			}
		}()
		_, _ = g.Apply("explode", func(tx *Tx) error {
			if _, err := tx.AddNode(model.KindClaim, "B", ""); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	if g.Revision() != before {
		t.Errorf("revision = %d, want %d", g.Revision(), before)
	}
	done := make(chan error, 1)
	go func() {
		_, err := g.AddNode(model.KindTopic, "C", "")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("graph still locked after a panicking mutation")
	}
	if g.View().NodeCount() != 2 {
		t.Errorf("nodes = %d, want 2", g.View().NodeCount())
	}
}

func TestSubscribe(t *testing.T) {
	g := newTestGraph(t)
	var got []uint64
	unsubscribe := g.Subscribe(func(c Change) { got = append(got, c.Revision) })

	mustAddNode(t, g, model.KindTopic, "A", "")
	_, _ = g.AddEdge("ghost", "ghost2", model.RelSupports)
	mustAddNode(t, g, model.KindTopic, "B", "")
	unsubscribe()
	mustAddNode(t, g, model.KindTopic, "C", "")

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("observed revisions = %v, want [1 2]", got)
	}
}

func TestTx_RemoveSkipsCascaded(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindClaim, "A", "")
	b := mustAddNode(t, g, model.KindClaim, "B", "")
	e, err := g.AddEdge(a, b, model.RelSupports)
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Apply("delete_selection", func(tx *Tx) error {
		for _, id := range []string{a, e} {
			if err := tx.Remove(id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Remove of cascaded edge failed: %v", err)
	}
	if g.View().HasEdge(e) {
		t.Error("edge survived")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := newTestGraph(t)
	a := mustAddNode(t, g, model.KindTopic, "A", "")
	b := mustAddNode(t, g, model.KindClaim, "B", a)
	if err := g.PinNode(b, model.Position{X: 10, Y: 20}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddEdge(b, a, model.RelSupports); err != nil {
		t.Fatal(err)
	}

	snap := g.Snapshot()
	g2, err := FromSnapshot(snap, WithKinds(model.DefaultKinds()))
	if err != nil {
		t.Fatalf("FromSnapshot failed: %v", err)
	}
	if g2.Revision() != 1 {
		t.Errorf("loaded revision = %d, want 1", g2.Revision())
	}
	snap2 := g2.Snapshot()
	if len(snap2.Nodes) != 2 || len(snap2.Edges) != 1 {
		t.Fatalf("loaded %d nodes %d edges", len(snap2.Nodes), len(snap2.Edges))
	}
	if snap2.Nodes[1].Pinned == nil || *snap2.Nodes[1].Pinned != (model.Position{X: 10, Y: 20}) {
		t.Errorf("pinned position lost: %+v", snap2.Nodes[1])
	}
}

func TestLoad_DanglingParentTolerated(t *testing.T) {
	snap := model.Snapshot{
		Version: model.SnapshotVersion,
		Nodes:   []model.Node{{ID: "c1", Kind: model.KindClaim, Parent: "gone"}},
	}
	g, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot failed: %v", err)
	}
	if _, ok := g.View().ParentOf("c1"); ok {
		t.Error("dangling parent should resolve as absent")
	}
}

func TestLoad_InvalidLeavesGraphUntouched(t *testing.T) {
	g := newTestGraph(t)
	mustAddNode(t, g, model.KindTopic, "A", "")
	bad := model.Snapshot{
		Nodes: []model.Node{{ID: "x", Kind: model.KindTopic}},
		Edges: []model.Edge{{ID: "e", Source: "x", Target: "missing", Relation: model.RelSupports}},
	}
	if err := g.Load(bad); err == nil {
		t.Fatal("expected Load error")
	}
	if g.Revision() != 1 || g.View().NodeCount() != 1 {
		t.Errorf("graph changed after failed load: rev=%d nodes=%d", g.Revision(), g.View().NodeCount())
	}
}
