package layout

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// ForceStrategy is a Fruchterman-Reingold spring embedder with a fixed
// iteration count. Start positions are derived from a hash of each node id
// and Config.Seed, so results do not depend on goroutine scheduling or on
// unrelated nodes being added elsewhere in the graph.
type ForceStrategy struct{}

// Name implements Strategy.
func (ForceStrategy) Name() string { return StrategyForce }

// Layout implements Strategy.
func (ForceStrategy) Layout(ctx context.Context, in Input) (map[string]model.Position, error) {
	n := len(in.Nodes)
	out := make(map[string]model.Position, n)
	if n == 0 {
		return out, nil
	}

	k := in.Config.cellW()
	side := math.Ceil(math.Sqrt(float64(n))) * k
	pos := make([]model.Position, n)
	index := make(map[string]int, n)
	for i, node := range in.Nodes {
		index[node.ID] = i
		pos[i] = seededPoint(node.ID, in.Config.Seed, side)
	}

	var springs [][2]int
	for i, node := range in.Nodes {
		if p, ok := index[node.Parent]; ok {
			springs = append(springs, [2]int{p, i})
		}
	}
	for _, e := range in.View.Edges() {
		s, okS := index[e.Source]
		t, okT := index[e.Target]
		if okS && okT {
			springs = append(springs, [2]int{s, t})
		}
	}

	iterations := in.Config.ForceIterations
	if iterations <= 0 {
		iterations = 1
	}
	temp0 := side / 10
	disp := make([]model.Position, n)
	for iter := 0; iter < iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range disp {
			disp[i] = model.Position{}
		}

		// Repulsion between every pair
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				d := pos[i].Sub(pos[j])
				dist := math.Max(math.Hypot(d.X, d.Y), 0.01)
				f := k * k / dist
				push := d.Scale(f / dist)
				disp[i] = disp[i].Add(push)
				disp[j] = disp[j].Sub(push)
			}
		}

		// Attraction along springs
		for _, s := range springs {
			d := pos[s[0]].Sub(pos[s[1]])
			dist := math.Max(math.Hypot(d.X, d.Y), 0.01)
			f := dist * dist / k
			pull := d.Scale(f / dist)
			disp[s[0]] = disp[s[0]].Sub(pull)
			disp[s[1]] = disp[s[1]].Add(pull)
		}

		temp := temp0 * (1 - float64(iter)/float64(iterations))
		for i := range pos {
			length := math.Hypot(disp[i].X, disp[i].Y)
			if length < 1e-9 {
				continue
			}
			step := math.Min(length, temp)
			pos[i] = pos[i].Add(disp[i].Scale(step / length))
		}
	}

	for i, node := range in.Nodes {
		out[node.ID] = model.Position{X: math.Round(pos[i].X), Y: math.Round(pos[i].Y)}
	}
	return out, nil
}

// seededPoint maps (id, seed) to a stable point in [0, side)^2.
func seededPoint(id string, seed int64, side float64) model.Position {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte(id))
	sum := h.Sum64()
	x := float64(sum&0xffffffff) / float64(1<<32)
	y := float64(sum>>32) / float64(1<<32)
	return model.Position{X: x * side, Y: y * side}
}
