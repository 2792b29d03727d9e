package layout

import (
	"errors"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

var (
	// ErrStaleLayout signals that a Result no longer matches the graph
	// revision or configuration and must be recomputed. It never leaves the
	// layout and session packages.
	ErrStaleLayout = errors.New("stale layout")

	// ErrUnknownStrategy is returned when a group names an unregistered strategy.
	ErrUnknownStrategy = errors.New("unknown layout strategy")
)

// Result maps every node to a graph-space position. It is tagged with the
// revision and config key it was computed from.
type Result struct {
	Positions map[string]model.Position `json:"positions"`
	Revision  uint64                    `json:"revision"`
	Key       string                    `json:"key"`
	Bounds    model.Rect                `json:"bounds"`
}

// Position returns the position of a node.
func (r *Result) Position(id string) (model.Position, bool) {
	if r == nil {
		return model.Position{}, false
	}
	p, ok := r.Positions[id]
	return p, ok
}

// Check returns ErrStaleLayout unless r was computed for v under key.
func (r *Result) Check(v *graph.View, key string) error {
	if r == nil || r.Revision != v.Revision() || r.Key != key {
		return ErrStaleLayout
	}
	return nil
}

// WithOverrides returns a copy of r with some positions replaced. Used for
// drag previews, which are never written back to the graph until commit.
func (r *Result) WithOverrides(over map[string]model.Position) *Result {
	if len(over) == 0 {
		return r
	}
	out := &Result{
		Positions: make(map[string]model.Position, len(r.Positions)),
		Revision:  r.Revision,
		Key:       r.Key,
		Bounds:    r.Bounds,
	}
	for id, p := range r.Positions {
		out.Positions[id] = p
	}
	for id, p := range over {
		if _, ok := out.Positions[id]; ok {
			out.Positions[id] = p
		}
	}
	return out
}
