// Package analysis derives structural insights from a topic map: which
// nodes hold the argument together, which claims are contested or left
// unsupported, and where support chains loop back on themselves.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	tgraph "github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Config caps the size of each insight list.
type Config struct {
	HubLimit        int   `json:"hub_limit"`
	CycleLimit      int   `json:"cycle_limit"`
	CycleBreakLimit int   `json:"cycle_break_limit"`
	Seed            int64 `json:"seed"`
}

// DefaultConfig returns the caps used by the CLI.
func DefaultConfig() Config {
	return Config{
		HubLimit:        5,
		CycleLimit:      20,
		CycleBreakLimit: 5,
		Seed:            1,
	}
}

// NodeScore is one entry in the hub ranking.
type NodeScore struct {
	ID          string         `json:"id"`
	Kind        model.NodeKind `json:"kind"`
	Label       string         `json:"label"`
	In          int            `json:"in"`
	Out         int            `json:"out"`
	Betweenness float64        `json:"betweenness"`
}

// Contested is a node with both supporting and opposing arguments.
type Contested struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Supports int    `json:"supports"`
	Opposes  int    `json:"opposes"`
}

// CycleBreak suggests an edge whose removal breaks the most cycles.
type CycleBreak struct {
	EdgeID   string             `json:"edge_id"`
	Source   string             `json:"source"`
	Target   string             `json:"target"`
	Relation model.RelationKind `json:"relation"`
	Impact   int                `json:"impact"`
	InCycles []int              `json:"in_cycles"`
}

// Insights is the result of Analyze.
type Insights struct {
	Nodes        int             `json:"nodes"`
	Edges        int             `json:"edges"`
	Trees        int             `json:"trees"`
	Mode         BetweennessMode `json:"betweenness_mode"`
	SampleSize   int             `json:"sample_size"`
	Hubs         []NodeScore     `json:"hubs"`
	Contested    []Contested     `json:"contested"`
	Unsupported  []string        `json:"unsupported"`
	Isolated     []string        `json:"isolated"`
	Cycles       [][]string      `json:"cycles"`
	CyclesCapped bool            `json:"cycles_capped,omitempty"`
	CycleBreaks  []CycleBreak    `json:"cycle_breaks"`
}

// Analyze computes insights for v. Parent links and relation edges both
// count as graph edges; argument cycles only follow relation edges.
func Analyze(v *tgraph.View, cfg Config) *Insights {
	nodes := v.Nodes()
	edges := v.Edges()
	out := &Insights{
		Nodes:       len(nodes),
		Edges:       len(edges),
		Trees:       len(v.Forest(nil)),
		Hubs:        []NodeScore{},
		Contested:   []Contested{},
		Unsupported: []string{},
		Isolated:    []string{},
		Cycles:      [][]string{},
		CycleBreaks: []CycleBreak{},
	}
	if len(nodes) == 0 {
		out.Mode = BetweennessExact
		return out
	}

	index := make(map[string]int64, len(nodes))
	for i, n := range nodes {
		index[n.ID] = int64(i)
	}

	// structure: parent links plus relation edges
	// arguments: relation edges only, first edge per ordered pair
	structure := simple.NewDirectedGraph()
	arguments := simple.NewDirectedGraph()
	for i := range nodes {
		structure.AddNode(simple.Node(int64(i)))
		arguments.AddNode(simple.Node(int64(i)))
	}
	link := func(g *simple.DirectedGraph, from, to int64) bool {
		if from == to || g.HasEdgeFromTo(from, to) {
			return false
		}
		g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		return true
	}

	in := make([]int, len(nodes))
	outDeg := make([]int, len(nodes))
	supports := make([]int, len(nodes))
	opposes := make([]int, len(nodes))
	pairEdge := make(map[[2]int64]*model.Edge)

	for i, n := range nodes {
		if p, ok := index[n.Parent]; ok {
			link(structure, p, int64(i))
			outDeg[p]++
			in[i]++
		}
	}
	for _, e := range edges {
		s, okS := index[e.Source]
		t, okT := index[e.Target]
		if !okS || !okT {
			continue
		}
		outDeg[s]++
		in[t]++
		switch e.Relation {
		case model.RelSupports:
			supports[t]++
		case model.RelOpposes:
			opposes[t]++
		}
		link(structure, s, t)
		if link(arguments, s, t) {
			pairEdge[[2]int64{s, t}] = e
		}
	}

	bc := Betweenness(structure, RecommendSampleSize(len(nodes)), cfg.Seed)
	out.Mode = bc.Mode
	out.SampleSize = bc.SampleSize

	scores := make([]NodeScore, len(nodes))
	for i, n := range nodes {
		scores[i] = NodeScore{
			ID:          n.ID,
			Kind:        n.Kind,
			Label:       n.Summary(),
			In:          in[i],
			Out:         outDeg[i],
			Betweenness: bc.Scores[int64(i)],
		}
		if supports[i] > 0 && opposes[i] > 0 {
			out.Contested = append(out.Contested, Contested{
				ID: n.ID, Label: n.Summary(), Supports: supports[i], Opposes: opposes[i],
			})
		}
		if n.Kind == model.KindClaim && supports[i] == 0 {
			out.Unsupported = append(out.Unsupported, n.ID)
		}
		if in[i] == 0 && outDeg[i] == 0 && !model.IsTopic(n) {
			out.Isolated = append(out.Isolated, n.ID)
		}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Betweenness != scores[j].Betweenness {
			return scores[i].Betweenness > scores[j].Betweenness
		}
		return scores[i].In+scores[i].Out > scores[j].In+scores[j].Out
	})
	for _, s := range scores {
		if len(out.Hubs) >= cfg.HubLimit {
			break
		}
		if s.In+s.Out == 0 {
			continue
		}
		out.Hubs = append(out.Hubs, s)
	}

	out.Cycles, out.CyclesCapped, out.CycleBreaks = argumentCycles(arguments, nodes, pairEdge, cfg)
	return out
}

// argumentCycles lists elementary cycles among relation edges and ranks
// the edges that take part in the most of them. Cycle search is confined
// to strongly connected components of two or more nodes and stops once
// CycleLimit cycles are found.
func argumentCycles(g *simple.DirectedGraph, nodes []*model.Node, pairEdge map[[2]int64]*model.Edge,
	cfg Config) ([][]string, bool, []CycleBreak) {
	cycles := [][]string{}

	comp := make(map[int64]int)
	var starts []int64
	for ci, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		for _, n := range scc {
			comp[n.ID()] = ci
			starts = append(starts, n.ID())
		}
	}
	adj := make(map[int64][]int64, len(starts))
	for _, v := range starts {
		to := g.From(v)
		for to.Next() {
			w := to.Node().ID()
			if cw, ok := comp[w]; ok && cw == comp[v] {
				adj[v] = append(adj[v], w)
			}
		}
		sort.Slice(adj[v], func(i, j int) bool { return adj[v][i] < adj[v][j] })
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	limit := 0
	if cfg.CycleLimit > 0 {
		limit = cfg.CycleLimit + 1
	}
	raw := elementaryCycles(adj, starts, limit)
	sort.Slice(raw, func(i, j int) bool { return lessIDs(raw[i], raw[j]) })
	capped := false
	if cfg.CycleLimit > 0 && len(raw) > cfg.CycleLimit {
		raw = raw[:cfg.CycleLimit]
		capped = true
	}

	type rank struct {
		edge   *model.Edge
		cycles []int
	}
	byEdge := make(map[string]*rank)
	for ci, c := range raw {
		names := make([]string, len(c))
		for i, id := range c {
			names[i] = nodes[id].ID
			e := pairEdge[[2]int64{id, c[(i+1)%len(c)]}]
			if e == nil {
				continue
			}
			r := byEdge[e.ID]
			if r == nil {
				r = &rank{edge: e}
				byEdge[e.ID] = r
			}
			r.cycles = append(r.cycles, ci)
		}
		cycles = append(cycles, names)
	}

	ranked := make([]*rank, 0, len(byEdge))
	for _, r := range byEdge {
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if len(ranked[i].cycles) != len(ranked[j].cycles) {
			return len(ranked[i].cycles) > len(ranked[j].cycles)
		}
		return ranked[i].edge.ID < ranked[j].edge.ID
	})
	breaks := []CycleBreak{}
	for _, r := range ranked {
		if len(breaks) >= cfg.CycleBreakLimit {
			break
		}
		breaks = append(breaks, CycleBreak{
			EdgeID:   r.edge.ID,
			Source:   r.edge.Source,
			Target:   r.edge.Target,
			Relation: r.edge.Relation,
			Impact:   len(r.cycles),
			InCycles: r.cycles,
		})
	}
	return cycles, capped, breaks
}
