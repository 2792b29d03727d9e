package layout

import (
	"context"
	"fmt"
	"sort"

	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// barycenterSweeps is the number of down-sweeps used to reduce crossings.
const barycenterSweeps = 4

// LayeredStrategy is a Sugiyama-style layout over relation edges and parent
// links:
//  1. strongly connected components are collapsed so cycles share a layer
//  2. each component gets its longest-path depth as layer
//  3. nodes inside a layer are reordered by the barycentre of their
//     predecessors, ties broken by insertion order
type LayeredStrategy struct{}

// Name implements Strategy.
func (LayeredStrategy) Name() string { return StrategyLayered }

// Layout implements Strategy.
func (LayeredStrategy) Layout(ctx context.Context, in Input) (map[string]model.Position, error) {
	n := len(in.Nodes)
	out := make(map[string]model.Position, n)
	if n == 0 {
		return out, nil
	}

	index := make(map[string]int, n)
	for i, node := range in.Nodes {
		index[node.ID] = i
	}

	g := simple.NewDirectedGraph()
	for i := range in.Nodes {
		g.AddNode(simple.Node(int64(i)))
	}
	preds := make([][]int, n)
	link := func(from, to int) {
		if from == to || g.HasEdgeFromTo(int64(from), int64(to)) {
			return
		}
		g.SetEdge(g.NewEdge(simple.Node(int64(from)), simple.Node(int64(to))))
		preds[to] = append(preds[to], from)
	}
	for _, node := range in.Nodes {
		if p, ok := index[node.Parent]; ok {
			link(p, index[node.ID])
		}
	}
	for _, e := range in.View.Edges() {
		s, okS := index[e.Source]
		t, okT := index[e.Target]
		if okS && okT {
			link(s, t)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 1: collapse cycles
	comp := make([]int, n)
	sccs := topo.TarjanSCC(g)
	// Component ids follow the smallest member index so they do not depend
	// on map iteration inside gonum.
	sort.Slice(sccs, func(i, j int) bool { return minID(sccs[i]) < minID(sccs[j]) })
	for ci, scc := range sccs {
		for _, node := range scc {
			comp[node.ID()] = ci
		}
	}
	cg := simple.NewDirectedGraph()
	for ci := range sccs {
		cg.AddNode(simple.Node(int64(ci)))
	}
	for to, ps := range preds {
		for _, from := range ps {
			a, b := comp[from], comp[to]
			if a != b && !cg.HasEdgeFromTo(int64(a), int64(b)) {
				cg.SetEdge(cg.NewEdge(simple.Node(int64(a)), simple.Node(int64(b))))
			}
		}
	}

	// Step 2: longest-path layering over the condensation
	order, err := topo.SortStabilized(cg, sortByID)
	if err != nil {
		return nil, fmt.Errorf("layered: condensation is not acyclic: %w", err)
	}
	compLayer := make([]int, len(sccs))
	for _, c := range order {
		it := cg.From(c.ID())
		for it.Next() {
			succ := it.Node().ID()
			if compLayer[succ] < compLayer[c.ID()]+1 {
				compLayer[succ] = compLayer[c.ID()] + 1
			}
		}
	}
	maxLayer := 0
	for _, l := range compLayer {
		if l > maxLayer {
			maxLayer = l
		}
	}
	layers := make([][]int, maxLayer+1)
	for i := 0; i < n; i++ {
		l := compLayer[comp[i]]
		layers[l] = append(layers[l], i)
	}

	// Step 3: barycentre ordering
	rank := make([]float64, n)
	for _, layer := range layers {
		for pos, i := range layer {
			rank[i] = float64(pos)
		}
	}
	for sweep := 0; sweep < barycenterSweeps; sweep++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for l := 1; l < len(layers); l++ {
			layer := layers[l]
			bary := make(map[int]float64, len(layer))
			for _, i := range layer {
				if len(preds[i]) == 0 {
					bary[i] = rank[i]
					continue
				}
				sum := 0.0
				for _, p := range preds[i] {
					sum += rank[p]
				}
				bary[i] = sum / float64(len(preds[i]))
			}
			sort.SliceStable(layer, func(a, b int) bool {
				if bary[layer[a]] != bary[layer[b]] {
					return bary[layer[a]] < bary[layer[b]]
				}
				return layer[a] < layer[b]
			})
			for pos, i := range layer {
				rank[i] = float64(pos)
			}
		}
	}

	cellW, cellH := in.Config.cellW(), in.Config.cellH()
	for l, layer := range layers {
		shift := -float64(len(layer)-1) / 2
		for pos, i := range layer {
			out[in.Nodes[i].ID] = model.Position{
				X: (float64(pos) + shift) * cellW,
				Y: float64(l) * cellH,
			}
		}
	}
	return out, nil
}

func minID(nodes []gonumgraph.Node) int64 {
	m := nodes[0].ID()
	for _, n := range nodes[1:] {
		if n.ID() < m {
			m = n.ID()
		}
	}
	return m
}

func sortByID(nodes []gonumgraph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}
