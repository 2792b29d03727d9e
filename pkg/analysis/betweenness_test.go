package analysis

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"pgregory.net/rapid"
)

func pathGraph(n int) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for i := 0; i+1 < n; i++ {
		g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64(i+1))))
	}
	return g
}

func TestBetweenness_Empty(t *testing.T) {
	res := Betweenness(simple.NewDirectedGraph(), 10, 1)
	if len(res.Scores) != 0 || res.Mode != BetweennessExact || res.TotalNodes != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestBetweenness_ExactOnPath(t *testing.T) {
	res := Betweenness(pathGraph(3), 10, 1)
	if res.Mode != BetweennessExact || res.SampleSize != 3 {
		t.Fatalf("mode = %s sample %d", res.Mode, res.SampleSize)
	}
	if got := res.Scores[1]; math.Abs(got-1) > 1e-9 {
		t.Errorf("middle score = %v, want 1", got)
	}
	if res.Scores[0] != 0 || res.Scores[2] != 0 {
		t.Errorf("end scores = %v, %v", res.Scores[0], res.Scores[2])
	}
}

func TestBetweenness_ApproximateIsDeterministic(t *testing.T) {
	g := pathGraph(40)
	a := Betweenness(g, 10, 7)
	b := Betweenness(g, 10, 7)
	if a.Mode != BetweennessApproximate || a.SampleSize != 10 || a.TotalNodes != 40 {
		t.Fatalf("result = %+v", a)
	}
	if len(a.Scores) == 0 {
		t.Fatal("no scores")
	}
	for id, v := range a.Scores {
		if math.Abs(b.Scores[id]-v) > 1e-9 {
			t.Errorf("node %d: %v vs %v", id, v, b.Scores[id])
		}
	}
}

func TestBetweenness_ApproximateSumsAreBitIdentical(t *testing.T) {
	g := simple.NewDirectedGraph()
	const n = 60
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for i := 0; i < n; i++ {
		for _, step := range []int{1, 3, 7, 11} {
			g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64((i+step)%n))))
		}
	}
	first := Betweenness(g, 30, 3)
	if first.Mode != BetweennessApproximate {
		t.Fatalf("mode = %s", first.Mode)
	}
	for run := 0; run < 5; run++ {
		again := Betweenness(g, 30, 3)
		if len(again.Scores) != len(first.Scores) {
			t.Fatalf("run %d: %d scores, want %d", run, len(again.Scores), len(first.Scores))
		}
		for id, v := range first.Scores {
			if again.Scores[id] != v {
				t.Fatalf("run %d node %d: %v != %v", run, id, again.Scores[id], v)
			}
		}
	}
}

func TestRecommendSampleSize(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 0}, {50, 50}, {99, 99}, {100, 50}, {300, 60}, {1000, 100}, {5000, 200},
	}
	for _, tt := range tests {
		if got := RecommendSampleSize(tt.n); got != tt.want {
			t.Errorf("RecommendSampleSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestProperty_SingleSourceSumsToExact(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "nodes")
		g := simple.NewDirectedGraph()
		for i := 0; i < n; i++ {
			g.AddNode(simple.Node(int64(i)))
		}
		for i := rapid.IntRange(0, 30).Draw(t, "edges"); i > 0; i-- {
			s := int64(rapid.IntRange(0, n-1).Draw(t, "s"))
			d := int64(rapid.IntRange(0, n-1).Draw(t, "d"))
			if s != d {
				g.SetEdge(g.NewEdge(simple.Node(s), simple.Node(d)))
			}
		}

		sum := make([]float64, n)
		for i := 0; i < n; i++ {
			singleSource(g, int64(i), n, sum)
		}
		exact := network.Betweenness(g)
		for i := 0; i < n; i++ {
			if math.Abs(sum[i]-exact[int64(i)]) > 1e-6 {
				t.Fatalf("node %d: brandes %v, gonum %v", i, sum[i], exact[int64(i)])
			}
		}
	})
}
