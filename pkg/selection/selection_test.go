package selection

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

func TestSelection_Basics(t *testing.T) {
	s := New()
	if !s.IsEmpty() {
		t.Fatal("new selection not empty")
	}
	s.Add("a")
	s.Add("b")
	if s.Add("a") {
		t.Error("second Add of a should report false")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("IDs() = %v", got)
	}
	if p, _ := s.Primary(); p != "b" {
		t.Errorf("Primary() = %s, want b", p)
	}
	s.Toggle("a")
	if s.Has("a") {
		t.Error("Toggle should deselect a")
	}
	if s.Set("b") {
		t.Error("Set to identical contents should report no change")
	}
	if !s.Set("c", "d") || s.Len() != 2 || s.Has("b") {
		t.Errorf("Set(c,d) result = %v", s.IDs())
	}
	if !s.Clear() || s.Clear() {
		t.Error("Clear should report true once then false")
	}
}

func TestSelection_ZeroValue(t *testing.T) {
	var s Selection
	s.Add("x")
	if !s.Has("x") {
		t.Error("zero-value selection should accept Add")
	}
}

func TestSelection_PruneAfterDelete(t *testing.T) {
	g := graph.New()
	a, _ := g.AddNode(model.KindTopic, "A", "")
	b, _ := g.AddNode(model.KindClaim, "B", "")
	e, err := g.AddEdge(b, a, model.RelSupports)
	if err != nil {
		t.Fatal(err)
	}

	s := New()
	s.Set(a, b, e)
	change, err := g.RemoveNode(a)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Forget(change) {
		t.Error("Forget should report a change")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{b}) {
		t.Errorf("after Forget: %v, want [%s]", got, b)
	}

	s.Add("stale")
	dropped := s.Prune(g.View())
	if !reflect.DeepEqual(dropped, []string{"stale"}) {
		t.Errorf("Prune dropped %v", dropped)
	}
}

func TestSelection_SetCollapsesDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		before  []string
		set     []string
		want    []string
		changed bool
	}{
		{"duplicates shrink selection", []string{"a", "b"}, []string{"a", "a"}, []string{"a"}, true},
		{"same ids with repeats", []string{"a"}, []string{"a", "a", "a"}, []string{"a"}, false},
		{"reorder counts as change", []string{"a", "b"}, []string{"b", "a"}, []string{"b", "a"}, true},
		{"duplicates keep first position", nil, []string{"c", "d", "c"}, []string{"c", "d"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Set(tt.before...)
			if got := s.Set(tt.set...); got != tt.changed {
				t.Errorf("Set(%v) changed = %v, want %v", tt.set, got, tt.changed)
			}
			if got := s.IDs(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("IDs() = %v, want %v", got, tt.want)
			}
			if s.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", s.Len(), len(tt.want))
			}
		})
	}
}
