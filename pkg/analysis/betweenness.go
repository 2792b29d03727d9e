package analysis

import (
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// BetweennessMode reports how centrality scores were computed.
type BetweennessMode string

const (
	// BetweennessExact runs Brandes' algorithm from every node.
	BetweennessExact BetweennessMode = "exact"
	// BetweennessApproximate runs it from a sample of pivot nodes and
	// scales the result by n/k.
	BetweennessApproximate BetweennessMode = "approximate"
)

// BetweennessResult holds centrality scores keyed by graph node id.
type BetweennessResult struct {
	Scores     map[int64]float64
	Mode       BetweennessMode
	SampleSize int
	TotalNodes int
	Elapsed    time.Duration
}

// brandesBuffers is the per-pivot scratch space. Graph node ids are dense
// indices 0..n-1, so plain slices replace maps.
type brandesBuffers struct {
	sigma []float64
	dist  []int
	delta []float64
	pred  [][]int64
	queue []int64
	stack []int64
	next  []int64
}

// pivotChunk is the number of pivots one goroutine sums before its
// partial scores are merged.
const pivotChunk = 8

var brandesPool = sync.Pool{
	New: func() any { return &brandesBuffers{} },
}

func (b *brandesBuffers) reset(n int) {
	if cap(b.sigma) < n {
		b.sigma = make([]float64, n)
		b.dist = make([]int, n)
		b.delta = make([]float64, n)
		b.pred = make([][]int64, n)
	}
	b.sigma, b.dist, b.delta, b.pred = b.sigma[:n], b.dist[:n], b.delta[:n], b.pred[:n]
	for i := 0; i < n; i++ {
		b.sigma[i] = 0
		b.dist[i] = -1
		b.delta[i] = 0
		b.pred[i] = b.pred[i][:0]
	}
	b.queue = b.queue[:0]
	b.stack = b.stack[:0]
}

// Betweenness computes centrality over g, whose node ids must be 0..n-1.
// Graphs with at most sampleSize nodes get exact scores; larger ones are
// sampled with a fixed seed so repeated runs agree.
func Betweenness(g *simple.DirectedGraph, sampleSize int, seed int64) BetweennessResult {
	start := time.Now()
	nodes := graph.NodesOf(g.Nodes())
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	n := len(nodes)
	if sampleSize < 1 {
		sampleSize = 1
	}

	res := BetweennessResult{
		Scores:     make(map[int64]float64, n),
		Mode:       BetweennessApproximate,
		SampleSize: sampleSize,
		TotalNodes: n,
	}
	if n == 0 {
		res.Mode = BetweennessExact
		res.SampleSize = 0
		res.Elapsed = time.Since(start)
		return res
	}
	if sampleSize >= n {
		res.Scores = network.Betweenness(g)
		res.Mode = BetweennessExact
		res.SampleSize = n
		res.Elapsed = time.Since(start)
		return res
	}

	pivots := samplePivots(nodes, sampleSize, seed)
	// Pivots are split into fixed chunks, each summed in pivot order, and
	// the chunks are added in order, so scheduling never changes rounding.
	chunks := make([][]float64, (len(pivots)+pivotChunk-1)/pivotChunk)
	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())
	for ci := range chunks {
		lo := ci * pivotChunk
		hi := min(lo+pivotChunk, len(pivots))
		wg.Add(1)
		go func(ci int, batch []graph.Node) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			local := make([]float64, n)
			for _, p := range batch {
				singleSource(g, p.ID(), n, local)
			}
			chunks[ci] = local
		}(ci, pivots[lo:hi])
	}
	wg.Wait()

	partial := make([]float64, n)
	for _, local := range chunks {
		for i, v := range local {
			partial[i] += v
		}
	}

	scale := float64(n) / float64(sampleSize)
	for i, v := range partial {
		if v != 0 {
			res.Scores[int64(i)] = v * scale
		}
	}
	res.Elapsed = time.Since(start)
	return res
}

// samplePivots picks k nodes with a partial Fisher-Yates shuffle.
func samplePivots(nodes []graph.Node, k int, seed int64) []graph.Node {
	if k >= len(nodes) {
		return nodes
	}
	shuffled := make([]graph.Node, len(nodes))
	copy(shuffled, nodes)
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:k]
}

// singleSource adds the dependency of src on every other node to bc.
func singleSource(g *simple.DirectedGraph, src int64, n int, bc []float64) {
	buf := brandesPool.Get().(*brandesBuffers)
	defer brandesPool.Put(buf)
	buf.reset(n)

	buf.sigma[src] = 1
	buf.dist[src] = 0
	buf.queue = append(buf.queue, src)

	for len(buf.queue) > 0 {
		v := buf.queue[0]
		buf.queue = buf.queue[1:]
		buf.stack = append(buf.stack, v)

		buf.next = buf.next[:0]
		to := g.From(v)
		for to.Next() {
			buf.next = append(buf.next, to.Node().ID())
		}
		sort.Slice(buf.next, func(i, j int) bool { return buf.next[i] < buf.next[j] })

		for _, w := range buf.next {
			if buf.dist[w] < 0 {
				buf.dist[w] = buf.dist[v] + 1
				buf.queue = append(buf.queue, w)
			}
			if buf.dist[w] == buf.dist[v]+1 {
				buf.sigma[w] += buf.sigma[v]
				buf.pred[w] = append(buf.pred[w], v)
			}
		}
	}

	for i := len(buf.stack) - 1; i >= 0; i-- {
		w := buf.stack[i]
		for _, v := range buf.pred[w] {
			buf.delta[v] += buf.sigma[v] / buf.sigma[w] * (1 + buf.delta[w])
		}
		if w != src {
			bc[w] += buf.delta[w]
		}
	}
}

// RecommendSampleSize returns the pivot count for a graph of n nodes.
func RecommendSampleSize(n int) int {
	switch {
	case n < 100:
		return n
	case n < 500:
		if s := n / 5; s > 50 {
			return s
		}
		return 50
	case n < 2000:
		return 100
	default:
		return 200
	}
}
