package ui

import (
	"os"
	"strings"
	"testing"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

func outlineView(t *testing.T) *graph.View {
	t.Helper()
	g, err := graph.FromSnapshot(model.Snapshot{
		Version: model.SnapshotVersion,
		Nodes: []model.Node{
			{ID: "t", Kind: model.KindTopic, Text: "Energy"},
			{ID: "c1", Kind: model.KindClaim, Text: "Solar is cheap", Parent: "t"},
			{ID: "c2", Kind: model.KindClaim, Text: "Panel prices fell"},
			{ID: "c3", Kind: model.KindClaim, Text: "Storage is not", Pinned: &model.Position{X: 1, Y: 2}},
		},
		Edges: []model.Edge{
			{ID: "e1", Source: "c2", Target: "c1", Relation: model.RelSupports},
			{ID: "e2", Source: "c3", Target: "c2", Relation: model.RelOpposes},
		},
	}, graph.WithKinds(model.DefaultKinds()))
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	return g.View()
}

func TestOutline_EmptyView(t *testing.T) {
	m := NewOutlineModel(newTestTheme(), "", nil)
	m.Build(graph.New().View())
	if m.Len() != 0 {
		t.Errorf("Len = %d", m.Len())
	}
	if !strings.Contains(m.View(), "No nodes yet") {
		t.Errorf("empty view = %q", m.View())
	}
	if m.SelectedID() != "" {
		t.Errorf("SelectedID = %q", m.SelectedID())
	}
}

func TestOutline_DefaultExpansion(t *testing.T) {
	m := NewOutlineModel(newTestTheme(), "", nil)
	m.SetSize(40, 10)
	m.Build(outlineView(t))

	// t and c1 are open by default; c2 sits at depth 2 and starts closed
	if m.Len() != 3 {
		t.Fatalf("Len = %d, want 3", m.Len())
	}
	view := m.View()
	for _, want := range []string{"Energy", "└─", "supports", "▸"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q\n%s", want, view)
		}
	}

	if !m.SelectByID("c3") {
		t.Fatal("SelectByID(c3) = false")
	}
	if m.Len() != 4 {
		t.Errorf("Len after revealing c3 = %d, want 4", m.Len())
	}
	if m.SelectedID() != "c3" {
		t.Errorf("SelectedID = %q", m.SelectedID())
	}
	if !strings.Contains(m.View(), "⊙") {
		t.Error("pinned marker missing")
	}
	if m.SelectByID("missing") {
		t.Error("SelectByID(missing) = true")
	}
}

func TestOutline_Navigation(t *testing.T) {
	m := NewOutlineModel(newTestTheme(), "", nil)
	m.Build(outlineView(t))

	m.ExpandOrMoveToChild()
	if m.SelectedID() != "c1" {
		t.Fatalf("after stepping into t, cursor on %q", m.SelectedID())
	}
	m.MoveDown()
	if m.SelectedID() != "c2" {
		t.Fatalf("MoveDown landed on %q", m.SelectedID())
	}
	m.ExpandOrMoveToChild()
	if m.Len() != 4 {
		t.Errorf("expanding c2 gave %d rows", m.Len())
	}
	m.CollapseOrJumpToParent()
	if m.Len() != 3 {
		t.Errorf("collapsing c2 gave %d rows", m.Len())
	}
	m.CollapseOrJumpToParent()
	if m.SelectedID() != "c1" {
		t.Errorf("jump to parent landed on %q", m.SelectedID())
	}
	m.MoveUp()
	m.MoveUp()
	if m.SelectedID() != "t" {
		t.Errorf("MoveUp at top landed on %q", m.SelectedID())
	}
}

func TestOutline_RebuildKeepsCursor(t *testing.T) {
	m := NewOutlineModel(newTestTheme(), "", nil)
	v := outlineView(t)
	m.Build(v)
	m.SelectByID("c2")
	m.Build(v)
	if m.SelectedID() != "c2" {
		t.Errorf("cursor moved to %q", m.SelectedID())
	}
}

func TestOutline_StatePersists(t *testing.T) {
	dir := t.TempDir()
	m := NewOutlineModel(newTestTheme(), dir, nil)
	m.Build(outlineView(t))
	m.ToggleExpand() // collapse t

	if m.Len() != 1 {
		t.Fatalf("Len after collapse = %d", m.Len())
	}
	if _, err := os.Stat(OutlineStatePath(dir)); err != nil {
		t.Fatalf("state file not written: %v", err)
	}

	reopened := NewOutlineModel(newTestTheme(), dir, nil)
	reopened.Build(outlineView(t))
	if reopened.Len() != 1 {
		t.Errorf("reopened Len = %d, want 1", reopened.Len())
	}
}

func TestOutline_CorruptStateUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(OutlineStatePath(dir), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewOutlineModel(newTestTheme(), dir, nil)
	m.Build(outlineView(t))
	if m.Len() != 3 {
		t.Errorf("Len = %d, want defaults (3)", m.Len())
	}
}

func TestTruncateTitle(t *testing.T) {
	if got := truncateTitle("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateTitle("a longer title", 6); got != "a lon…" {
		t.Errorf("got %q", got)
	}
}
