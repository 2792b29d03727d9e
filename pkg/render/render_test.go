package render

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/selection"
	"github.com/vanderheijden86/topicmap/pkg/viewport"
)

func seqIDs() func() string {
	i := 0
	return func() string {
		i++
		return fmt.Sprintf("n%d", i)
	}
}

// fixture: two pinned nodes joined by an edge, so screen geometry is exact.
func fixture(t *testing.T) (*graph.Graph, *layout.Result, string, string, string) {
	t.Helper()
	g := graph.New(graph.WithIDGenerator(seqIDs()))
	a, _ := g.AddNode(model.KindTopic, "Alpha", "")
	b, _ := g.AddNode(model.KindClaim, "Beta", "")
	e, err := g.AddEdge(b, a, model.RelSupports)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.PinNode(a, model.Position{X: 0, Y: 0}); err != nil {
		t.Fatal(err)
	}
	if err := g.PinNode(b, model.Position{X: 300, Y: 0}); err != nil {
		t.Fatal(err)
	}
	res, err := layout.Compute(context.Background(), g.View(), layout.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return g, res, a, b, e
}

func testOptions() Options {
	return Options{NodeWidth: 100, NodeHeight: 40, LabelCells: 10, EdgeTolerance: 4}
}

func TestProject_Geometry(t *testing.T) {
	g, res, a, b, e := fixture(t)
	vp := viewport.Default()
	vp.Pan(10, 20)
	sel := selection.New()
	sel.Add(b)

	s := Project(g.View(), res, vp, sel, testOptions())
	if len(s.Nodes) != 2 || len(s.Edges) != 1 {
		t.Fatalf("scene has %d nodes %d edges", len(s.Nodes), len(s.Edges))
	}
	na, _ := s.Node(a)
	want := model.Rect{Min: model.Position{X: 10, Y: 20}, Max: model.Position{X: 110, Y: 60}}
	if na.Rect != want {
		t.Errorf("box a = %+v, want %+v", na.Rect, want)
	}
	if na.Selected {
		t.Error("a should not be selected")
	}
	nb, _ := s.Node(b)
	if !nb.Selected || !nb.Pinned {
		t.Errorf("box b = %+v, want selected and pinned", nb)
	}
	edge := s.Edges[0]
	if edge.ID != e || edge.From.X != 310 || edge.To.X != 110 {
		t.Errorf("edge clipped to %v -> %v, want x 310 -> 110", edge.From, edge.To)
	}
}

func TestProject_Pure(t *testing.T) {
	g, res, _, _, _ := fixture(t)
	before := g.Revision()
	s1 := Project(g.View(), res, viewport.Default(), nil, testOptions())
	s2 := Project(g.View(), res, viewport.Default(), nil, testOptions())
	if !reflect.DeepEqual(s1, s2) {
		t.Error("Project is not repeatable")
	}
	if g.Revision() != before {
		t.Error("Project mutated the graph")
	}
}

func TestHitTest(t *testing.T) {
	g, res, a, _, e := fixture(t)
	s := Project(g.View(), res, viewport.Default(), nil, testOptions())

	tests := []struct {
		name string
		p    model.Position
		want Hit
	}{
		{"Node", model.Position{X: 50, Y: 20}, Hit{Kind: HitNode, ID: a}},
		{"Edge", model.Position{X: 200, Y: 22}, Hit{Kind: HitEdge, ID: e}},
		{"Canvas", model.Position{X: 200, Y: 200}, Hit{Kind: HitCanvas}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.HitTest(tt.p); got != tt.want {
				t.Errorf("HitTest(%v) = %+v, want %+v", tt.p, got, tt.want)
			}
		})
	}
}

func TestNodesInRect(t *testing.T) {
	g, res, a, b, _ := fixture(t)
	s := Project(g.View(), res, viewport.Default(), nil, testOptions())
	got := s.NodesInRect(model.Rect{Max: model.Position{X: 120, Y: 100}})
	if !reflect.DeepEqual(got, []string{a}) {
		t.Errorf("NodesInRect = %v, want [%s]", got, a)
	}
	got = s.NodesInRect(model.Rect{Max: model.Position{X: 1000, Y: 100}})
	if len(got) != 2 || got[1] != b {
		t.Errorf("NodesInRect(all) = %v", got)
	}
}

func TestLabel_Truncates(t *testing.T) {
	n := &model.Node{ID: "x", Text: "A rather long claim about transit"}
	got := Label(n, 10)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Label = %q, want ellipsis", got)
	}
	if Label(n, 0) != n.Text {
		t.Error("cells=0 should disable truncation")
	}
}

type recorder struct {
	ops []string
}

func (r *recorder) Rect(model.Rect, Style) { r.ops = append(r.ops, "rect") }
func (r *recorder) Line(model.Position, model.Position, Style) { r.ops = append(r.ops, "line") }
func (r *recorder) Text(_ model.Position, s string, _ Style) { r.ops = append(r.ops, "text:"+s) }

func TestDraw_Order(t *testing.T) {
	g, res, _, _, _ := fixture(t)
	opts := testOptions()
	box := model.Rect{Max: model.Position{X: 5, Y: 5}}
	opts.Overlay.SelectRect = &box
	s := Project(g.View(), res, viewport.Default(), nil, opts)

	r := &recorder{}
	Draw(s, r, DefaultTheme())
	want := []string{"line", "line", "line", "rect", "text:Alpha", "rect", "text:Beta", "rect"}
	if !reflect.DeepEqual(r.ops, want) {
		t.Errorf("draw ops = %v, want %v", r.ops, want)
	}
}

func TestTheme_SelectedOverridesStroke(t *testing.T) {
	th := DefaultTheme()
	st := th.NodeStyle(NodeBox{Kind: model.KindTopic, Selected: true})
	if st.Stroke != th.Selected.Stroke {
		t.Errorf("stroke = %s, want %s", st.Stroke, th.Selected.Stroke)
	}
	if st.Fill != th.Nodes[model.KindTopic].Fill {
		t.Errorf("fill = %s, want kind fill", st.Fill)
	}
	unknown := th.NodeStyle(NodeBox{Kind: "question"})
	if unknown.Fill != th.Default.Fill {
		t.Errorf("unknown kind fill = %s, want default", unknown.Fill)
	}
}
