package analysis

import (
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

func adjacency(g *simple.DirectedGraph) (map[int64][]int64, []int64) {
	adj := make(map[int64][]int64)
	var starts []int64
	nodes := g.Nodes()
	for nodes.Next() {
		v := nodes.Node().ID()
		starts = append(starts, v)
		to := g.From(v)
		for to.Next() {
			adj[v] = append(adj[v], to.Node().ID())
		}
		sort.Slice(adj[v], func(i, j int) bool { return adj[v][i] < adj[v][j] })
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	return adj, starts
}

func canonical(cycles [][]int64) [][]int64 {
	out := make([][]int64, len(cycles))
	for i, c := range cycles {
		at := 0
		for k, id := range c {
			if id < c[at] {
				at = k
			}
		}
		out[i] = append(append([]int64{}, c[at:]...), c[:at]...)
	}
	sort.Slice(out, func(i, j int) bool { return lessIDs(out[i], out[j]) })
	return out
}

func TestProperty_ElementaryCyclesMatchGonum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 7).Draw(t, "nodes")
		g := simple.NewDirectedGraph()
		for i := 0; i < n; i++ {
			g.AddNode(simple.Node(int64(i)))
		}
		for i := rapid.IntRange(0, 20).Draw(t, "edges"); i > 0; i-- {
			s := int64(rapid.IntRange(0, n-1).Draw(t, "s"))
			d := int64(rapid.IntRange(0, n-1).Draw(t, "d"))
			if s != d {
				g.SetEdge(g.NewEdge(simple.Node(s), simple.Node(d)))
			}
		}

		adj, starts := adjacency(g)
		got := elementaryCycles(adj, starts, 0)
		for _, c := range got {
			for _, id := range c[1:] {
				if id <= c[0] {
					t.Fatalf("cycle %v does not start at its smallest id", c)
				}
			}
		}

		var want [][]int64
		for _, c := range topo.DirectedCyclesIn(g) {
			ids := make([]int64, 0, len(c)-1)
			for _, node := range c[:len(c)-1] {
				ids = append(ids, node.ID())
			}
			want = append(want, ids)
		}
		if !reflect.DeepEqual(canonical(got), canonical(want)) {
			t.Fatalf("cycles = %v, want %v", canonical(got), canonical(want))
		}
	})
}

func TestElementaryCycles_StopsAtLimit(t *testing.T) {
	const n = 12
	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64(j))))
			}
		}
	}
	adj, starts := adjacency(g)

	tests := []struct {
		limit int
		want  int
	}{
		{1, 1},
		{20, 20},
		{500, 500},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			got := elementaryCycles(adj, starts, tt.limit)
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

// completeMap links every pair of n claims in both directions.
func completeMap(t *testing.T, n int) *graph.View {
	t.Helper()
	snap := model.Snapshot{Version: model.SnapshotVersion}
	for i := 0; i < n; i++ {
		snap.Nodes = append(snap.Nodes, model.Node{ID: fmt.Sprintf("c%02d", i), Kind: model.KindClaim, Text: "claim"})
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				snap.Edges = append(snap.Edges, model.Edge{
					ID:       fmt.Sprintf("e%02d-%02d", i, j),
					Source:   fmt.Sprintf("c%02d", i),
					Target:   fmt.Sprintf("c%02d", j),
					Relation: model.RelSupports,
				})
			}
		}
	}
	g, err := graph.FromSnapshot(snap, graph.WithKinds(model.DefaultKinds()))
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	return g.View()
}

func TestAnalyze_DenseMapCycleSearchIsBounded(t *testing.T) {
	v := completeMap(t, 12)
	cfg := DefaultConfig()

	done := make(chan *Insights, 1)
	go func() { done <- Analyze(v, cfg) }()
	var in *Insights
	select {
	case in = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("cycle search did not stop at the limit")
	}
	if len(in.Cycles) != cfg.CycleLimit || !in.CyclesCapped {
		t.Errorf("cycles = %d capped %v, want %d capped", len(in.Cycles), in.CyclesCapped, cfg.CycleLimit)
	}
	if again := Analyze(v, cfg); !reflect.DeepEqual(again.Cycles, in.Cycles) {
		t.Error("capped cycle list differs between runs")
	}
}
