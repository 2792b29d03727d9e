package layout

import (
	"context"
	"math"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// GridStrategy places nodes row by row in a near-square grid.
type GridStrategy struct{}

// Name implements Strategy.
func (GridStrategy) Name() string { return StrategyGrid }

// Layout implements Strategy.
func (GridStrategy) Layout(ctx context.Context, in Input) (map[string]model.Position, error) {
	out := make(map[string]model.Position, len(in.Nodes))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols := int(math.Ceil(math.Sqrt(float64(len(in.Nodes)))))
	if cols == 0 {
		return out, nil
	}
	for i, n := range in.Nodes {
		out[n.ID] = model.Position{
			X: float64(i%cols) * in.Config.cellW(),
			Y: float64(i/cols) * in.Config.cellH(),
		}
	}
	return out, nil
}
