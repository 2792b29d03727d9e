package layout

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Compute lays out every node of v under cfg. Groups are computed
// concurrently and merged in group order, so the result is deterministic.
// Pinned nodes are placed at their pinned position verbatim.
func Compute(ctx context.Context, v *graph.View, cfg Config, reg *Registry) (*Result, error) {
	if reg == nil {
		reg = NewRegistry()
	}

	// Split nodes into groups; unlisted kinds land in the trailing default group.
	buckets := make([][]*model.Node, len(cfg.Groups)+1)
	for _, n := range v.Nodes() {
		_, gi := cfg.StrategyFor(n.Kind)
		buckets[gi] = append(buckets[gi], n)
	}

	strategies := make([]Strategy, len(buckets))
	for i := range buckets {
		name := cfg.DefaultStrategy
		if i < len(cfg.Groups) {
			name = cfg.Groups[i].Strategy
		}
		s, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
		}
		strategies[i] = s
	}

	placed := make([]map[string]model.Position, len(buckets))
	eg, gctx := errgroup.WithContext(ctx)
	for i := range buckets {
		if len(buckets[i]) == 0 {
			continue
		}
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s layout panicked: %v", strategies[i].Name(), r)
				}
			}()
			pos, err := strategies[i].Layout(gctx, Input{View: v, Nodes: buckets[i], Config: cfg})
			if err != nil {
				return fmt.Errorf("%s layout: %w", strategies[i].Name(), err)
			}
			placed[i] = pos
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Positions: make(map[string]model.Position, v.NodeCount()),
		Revision:  v.Revision(),
		Key:       cfg.Key(),
	}

	// Lay groups side by side, left to right, tops aligned.
	cursor := 0.0
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		minX, minY, maxX := math.Inf(1), math.Inf(1), math.Inf(-1)
		for _, n := range bucket {
			p := placed[i][n.ID]
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
		}
		shift := model.Position{X: cursor - minX, Y: -minY}
		for _, n := range bucket {
			res.Positions[n.ID] = placed[i][n.ID].Add(shift)
		}
		cursor += (maxX - minX) + cfg.NodeWidth + cfg.GroupGap
	}

	for _, n := range v.Nodes() {
		if n.Pinned != nil {
			res.Positions[n.ID] = *n.Pinned
		}
	}
	res.Bounds = boundsOf(res.Positions, cfg)
	return res, nil
}

func boundsOf(pos map[string]model.Position, cfg Config) model.Rect {
	var r model.Rect
	first := true
	for _, p := range pos {
		box := model.Rect{Min: p, Max: model.Position{X: p.X + cfg.NodeWidth, Y: p.Y + cfg.NodeHeight}}
		if first {
			r = box
			first = false
			continue
		}
		r = model.Rect{
			Min: model.Position{X: math.Min(r.Min.X, box.Min.X), Y: math.Min(r.Min.Y, box.Min.Y)},
			Max: model.Position{X: math.Max(r.Max.X, box.Max.X), Y: math.Max(r.Max.Y, box.Max.Y)},
		}
	}
	return r
}

// Observer receives engine timing, used for metrics.
type Observer interface {
	LayoutComputed(strategyKey string, nodes int, d time.Duration)
}

// Engine memoizes Compute by (revision, config key). Viewport changes never
// reach the engine, so a pan or zoom never triggers recomputation.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	key      string
	reg      *Registry
	last     *Result
	log      *zap.Logger
	observer Observer
}

// NewEngine creates an engine with the built-in strategies.
func NewEngine(cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, key: cfg.Key(), reg: NewRegistry(), log: log}
}

// SetObserver installs a timing observer.
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	e.observer = o
	e.mu.Unlock()
}

// Registry exposes the strategy registry for host-provided strategies.
func (e *Engine) Registry() *Registry { return e.reg }

// Config returns the active configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Key returns the active configuration key.
func (e *Engine) Key() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}

// SetConfig swaps the configuration. The cached result becomes stale if the
// key changed.
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.key = cfg.Key()
	e.mu.Unlock()
}

// Cached returns the memoized result if it is still valid for v.
func (e *Engine) Cached(v *graph.View) (*Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last.Check(v, e.key) != nil {
		return nil, false
	}
	return e.last, true
}

// Compute returns the memoized result for v or computes a fresh one.
func (e *Engine) Compute(ctx context.Context, v *graph.View) (*Result, error) {
	if r, ok := e.Cached(v); ok {
		return r, nil
	}
	e.mu.Lock()
	cfg, key, observer := e.cfg, e.key, e.observer
	e.mu.Unlock()

	start := time.Now()
	res, err := Compute(ctx, v, cfg, e.reg)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	e.log.Debug("layout computed",
		zap.Uint64("revision", res.Revision),
		zap.Int("nodes", v.NodeCount()),
		zap.Duration("elapsed", elapsed))
	if observer != nil {
		observer.LayoutComputed(key, v.NodeCount(), elapsed)
	}

	e.Store(res)
	return res, nil
}

// Store records res as the memoized result unless a newer one is held or the
// config changed since res was computed.
func (e *Engine) Store(res *Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res.Key != e.key {
		return
	}
	if e.last != nil && e.last.Key == e.key && e.last.Revision > res.Revision {
		return
	}
	e.last = res
}
