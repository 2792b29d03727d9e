package layout

import (
	"context"
	"sort"
	"sync"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Input is one kind group handed to a Strategy.
type Input struct {
	View   *graph.View
	Nodes  []*model.Node // group members in insertion order
	Config Config
}

// memberSet returns the group as a set for O(1) lookups.
func (in Input) memberSet() map[string]bool {
	m := make(map[string]bool, len(in.Nodes))
	for _, n := range in.Nodes {
		m[n.ID] = true
	}
	return m
}

// Strategy places the nodes of one group. Positions are relative; the engine
// translates each group into place. Implementations must be deterministic and
// should return ctx.Err() promptly when ctx is cancelled.
type Strategy interface {
	Name() string
	Layout(ctx context.Context, in Input) (map[string]model.Position, error)
}

// Registry maps strategy names to implementations.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry returns a registry holding the built-in strategies.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(TreeStrategy{})
	r.Register(LayeredStrategy{})
	r.Register(ForceStrategy{})
	r.Register(GridStrategy{})
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	r.strategies[s.Name()] = s
	r.mu.Unlock()
}

// Get looks up a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Names lists registered strategies alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
