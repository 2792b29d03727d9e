package layout

import (
	"context"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// TreeStrategy draws argument trees top-down: leaves take consecutive
// columns and every parent is centred over its first and last child.
// Trees are placed left to right in root order.
type TreeStrategy struct{}

// Name implements Strategy.
func (TreeStrategy) Name() string { return StrategyTree }

// Layout implements Strategy.
func (TreeStrategy) Layout(ctx context.Context, in Input) (map[string]model.Position, error) {
	members := in.memberSet()
	roots := in.View.Forest(func(n *model.Node) bool { return members[n.ID] })

	p := &treePlacer{
		cellW: in.Config.cellW(),
		cellH: in.Config.cellH(),
		out:   make(map[string]model.Position, len(in.Nodes)),
	}
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.place(root)
	}
	return p.out, nil
}

type treePlacer struct {
	cellW, cellH float64
	nextSlot     float64
	out          map[string]model.Position
}

// place returns the column assigned to t.
func (p *treePlacer) place(t *graph.TreeNode) float64 {
	var col float64
	if len(t.Children) == 0 {
		col = p.nextSlot
		p.nextSlot++
	} else {
		first := p.place(t.Children[0])
		last := first
		for _, c := range t.Children[1:] {
			last = p.place(c)
		}
		col = (first + last) / 2
	}
	p.out[t.Node.ID] = model.Position{X: col * p.cellW, Y: float64(t.Depth) * p.cellH}
	return col
}
