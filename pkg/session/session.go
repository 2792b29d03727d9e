// Package session is the explicit context object that owns one diagram:
// its graph, layout engine, viewport, selection and interaction controller.
//
// A Session is driven by a single owner goroutine. Every method except
// Subscribe, Ready and Close must be called from that goroutine.
// Background work (large layouts, autosave timers, file watching) reports
// back through the session's callback queue, which the owner runs with
// Drain.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/config"
	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/interaction"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/metrics"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
	"github.com/vanderheijden86/topicmap/pkg/selection"
	"github.com/vanderheijden86/topicmap/pkg/store"
	"github.com/vanderheijden86/topicmap/pkg/viewport"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("session closed")

// Options configures Open.
type Options struct {
	// Snapshot seeds the graph. When nil the Provider is loaded instead;
	// when both are nil the session starts empty.
	Snapshot *model.Snapshot
	Provider store.Provider
	Config   config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	// IDGenerator overrides node and edge id generation.
	IDGenerator func() string
}

// Session is a live diagram.
type Session struct {
	cfg      config.Config
	log      *zap.Logger
	metrics  *metrics.Metrics
	provider store.Provider

	graph  *graph.Graph
	engine *layout.Engine
	worker *layout.Worker
	result *layout.Result

	vp     viewport.Viewport
	sel    *selection.Selection
	ctrl   *interaction.Controller
	screen model.Rect
	render render.Options

	hub   *hub
	queue *Queue
	unsub func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closedMu  sync.RWMutex
	closed    bool

	saveTimer     *time.Timer
	savedRevision uint64
}

// Open bootstraps a session. A provider load failure is returned as a
// store error wrapping store.ErrLoadFailed; a missing snapshot is not an
// error and yields an empty graph.
func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg.Layout.NodeWidth == 0 {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	gopts := []graph.Option{graph.WithKinds(cfg.Registry()), graph.WithLogger(log)}
	if opts.IDGenerator != nil {
		gopts = append(gopts, graph.WithIDGenerator(opts.IDGenerator))
	}

	var snap *model.Snapshot
	switch {
	case opts.Snapshot != nil:
		snap = opts.Snapshot
	case opts.Provider != nil:
		loaded, err := opts.Provider.Load(ctx)
		if err != nil && !errors.Is(err, store.ErrNoSnapshot) {
			return nil, err
		}
		if err == nil {
			snap = &loaded
		}
	}

	g := graph.New(gopts...)
	if snap != nil {
		if err := g.Load(*snap); err != nil {
			return nil, fmt.Errorf("bootstrap graph: %w", err)
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:      cfg,
		log:      log,
		metrics:  opts.Metrics,
		provider: opts.Provider,
		graph:    g,
		engine:   layout.NewEngine(cfg.Layout, log.Named("layout")),
		vp:       viewport.New(cfg.Viewport.MinZoom, cfg.Viewport.MaxZoom),
		sel:      selection.New(),
		render: render.Options{
			NodeWidth:     cfg.Layout.NodeWidth,
			NodeHeight:    cfg.Layout.NodeHeight,
			LabelCells:    render.DefaultOptions().LabelCells,
			EdgeTolerance: render.DefaultOptions().EdgeTolerance,
		},
		hub:           newHub(cfg.Session.Subscribers, opts.Metrics),
		queue:         NewQueue(),
		ctx:           sctx,
		cancel:        cancel,
		savedRevision: g.Revision(),
	}
	if opts.Metrics != nil {
		s.engine.SetObserver(opts.Metrics)
	}
	s.worker = layout.NewWorker(layout.WorkerConfig{
		Engine: s.engine,
		Deliver: func(u layout.Update) {
			s.queue.Post(func() { s.applyLayout(u) })
		},
		OnDiscard: func(uint64) { s.metrics.LayoutDiscarded() },
		Logger:    log.Named("worker"),
	})
	s.ctrl = interaction.New(g, &s.vp, s.sel, s.Scene, interaction.Config{
		DefaultRelation: model.RelationKind(cfg.Interaction.DefaultRelation),
		DragThreshold:   cfg.Interaction.DragThreshold,
		ZoomStep:        cfg.Interaction.ZoomStep,
		PanStep:         cfg.Interaction.PanStep,
	})
	s.unsub = g.Subscribe(s.onChange)

	if w, ok := opts.Provider.(store.Watcher); ok {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := w.Watch(s.ctx, func() {
				s.queue.Post(s.reloadExternal)
			})
			if err != nil && s.ctx.Err() == nil {
				s.queue.Post(func() {
					s.notify(LevelWarn, "watching for external changes failed", err)
				})
			}
		}()
	}

	s.metrics.Revision(g.View().NodeCount(), g.View().EdgeCount())
	s.scheduleLayout()
	log.Info("session opened",
		zap.Uint64("revision", g.Revision()),
		zap.Int("nodes", g.View().NodeCount()),
		zap.Int("edges", g.View().EdgeCount()))
	return s, nil
}

func (s *Session) isClosed() bool {
	s.closedMu.RLock()
	defer s.closedMu.RUnlock()
	return s.closed
}

// Close cancels layout and I/O, stops watchers, releases viewport and
// selection state and closes subscriber channels. Later calls return
// ErrClosed.
func (s *Session) Close() error {
	err := ErrClosed
	s.closeOnce.Do(func() {
		err = nil
		s.closedMu.Lock()
		s.closed = true
		s.closedMu.Unlock()

		if s.saveTimer != nil {
			s.saveTimer.Stop()
		}
		s.cancel()
		s.worker.Stop()
		s.queue.Close()
		s.unsub()
		s.wg.Wait()

		s.sel.Clear()
		s.vp.Reset()
		s.result = nil
		s.hub.close()
		s.log.Info("session closed", zap.Uint64("revision", s.graph.Revision()))
	})
	return err
}

// Subscribe returns a channel of change events and a cancel function.
// Slow subscribers never block the session: when a subscriber's buffer is
// full its oldest event is dropped and the next one is flagged Coalesced.
// The channel is closed by cancel or by Close.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.hub.subscribe()
}

// Ready receives a value when queued callbacks are waiting for Drain.
func (s *Session) Ready() <-chan struct{} { return s.queue.Ready() }

// Drain runs queued callbacks on the calling (owner) goroutine.
func (s *Session) Drain() int {
	if s.isClosed() {
		return 0
	}
	return s.queue.Drain()
}

// Run drains the queue whenever callbacks arrive until ctx is done or
// the session closes. Headless hosts use it instead of their own loop.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return ErrClosed
		case <-s.queue.Ready():
			s.Drain()
		}
	}
}

func (s *Session) publish(ev Event) {
	if ev.Revision == 0 {
		ev.Revision = s.graph.Revision()
	}
	s.hub.publish(ev)
}

func (s *Session) notify(level Level, msg string, err error) {
	switch level {
	case LevelError:
		s.log.Error(msg, zap.Error(err))
	case LevelWarn:
		s.log.Warn(msg, zap.Error(err))
	default:
		s.log.Info(msg)
	}
	s.publish(Event{Kind: EventNotification, Notification: &Notification{Level: level, Message: msg, Err: err}})
}

// onChange runs synchronously after every published graph revision.
func (s *Session) onChange(c graph.Change) {
	v := s.graph.View()
	s.metrics.Revision(v.NodeCount(), v.EdgeCount())
	s.log.Debug("graph changed",
		zap.String("op", c.Op),
		zap.Uint64("revision", c.Revision),
		zap.Int("removed", len(c.Removed())))

	s.publish(Event{Kind: EventRevision, Revision: c.Revision, Change: &c})
	if s.sel.Forget(c) {
		s.publish(Event{Kind: EventSelection})
	}
	s.scheduleLayout()
	s.scheduleAutosave()
}

// Config returns the session configuration.
func (s *Session) Config() config.Config { return s.cfg }

// View returns the current immutable graph view.
func (s *Session) View() *graph.View { return s.graph.View() }

// Revision returns the current graph revision.
func (s *Session) Revision() uint64 { return s.graph.Revision() }

// Kinds returns the node and relation kind registry.
func (s *Session) Kinds() *model.Kinds { return s.graph.Kinds() }

// Snapshot returns the persistable graph state. Viewport and selection
// are not included.
func (s *Session) Snapshot() model.Snapshot { return s.graph.Snapshot() }

// Dirty reports whether there are changes since the last load or save.
func (s *Session) Dirty() bool { return s.graph.Revision() != s.savedRevision }

func (s *Session) mutate(op string, fn func() error) error {
	if s.isClosed() {
		return ErrClosed
	}
	err := fn()
	s.metrics.Mutation(op, err)
	return err
}

// AddNode adds a node and returns its id.
func (s *Session) AddNode(kind model.NodeKind, text, parent string) (string, error) {
	var id string
	err := s.mutate("add_node", func() error {
		var err error
		id, err = s.graph.AddNode(kind, text, parent)
		return err
	})
	return id, err
}

// AddEdge connects two existing nodes and returns the edge id.
func (s *Session) AddEdge(source, target string, rel model.RelationKind) (string, error) {
	var id string
	err := s.mutate("add_edge", func() error {
		var err error
		id, err = s.graph.AddEdge(source, target, rel)
		return err
	})
	return id, err
}

// RemoveNode deletes a node with its subtree and incident edges.
func (s *Session) RemoveNode(id string) (graph.Change, error) {
	var c graph.Change
	err := s.mutate("remove_node", func() error {
		var err error
		c, err = s.graph.RemoveNode(id)
		return err
	})
	return c, err
}

// RemoveEdge deletes an edge.
func (s *Session) RemoveEdge(id string) (graph.Change, error) {
	var c graph.Change
	err := s.mutate("remove_edge", func() error {
		var err error
		c, err = s.graph.RemoveEdge(id)
		return err
	})
	return c, err
}

// UpdateNode edits node fields.
func (s *Session) UpdateNode(id string, patch graph.NodePatch) error {
	return s.mutate("update_node", func() error { return s.graph.UpdateNode(id, patch) })
}

// PinNode fixes a node's position.
func (s *Session) PinNode(id string, pos model.Position) error {
	return s.mutate("pin_node", func() error { return s.graph.PinNode(id, pos) })
}

// UnpinNode returns a node to computed layout.
func (s *Session) UnpinNode(id string) error {
	return s.mutate("unpin_node", func() error { return s.graph.UnpinNode(id) })
}

// Apply runs a batch of mutations as one revision.
func (s *Session) Apply(op string, fn func(tx *graph.Tx) error) (graph.Change, error) {
	var c graph.Change
	err := s.mutate(op, func() error {
		var err error
		c, err = s.graph.Apply(op, fn)
		return err
	})
	return c, err
}

// Handle feeds one input event to the interaction controller and
// publishes what changed. Mutation errors become error notifications and
// leave the graph unchanged.
func (s *Session) Handle(ev interaction.Event) (interaction.Outcome, error) {
	if s.isClosed() {
		return interaction.Outcome{}, ErrClosed
	}
	if r, ok := ev.(interaction.Resize); ok {
		s.screen = model.Rect{Max: model.Position{X: r.Width, Y: r.Height}}
	}
	out := s.ctrl.Handle(ev)
	s.publishOutcome(out)
	return out, nil
}

// AddChild creates a node under the single selected node (or at the top
// level) and selects it.
func (s *Session) AddChild(kind model.NodeKind, text string) (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	id, out := s.ctrl.AddNode(kind, text)
	s.metrics.Mutation("add_node", out.Err)
	s.publishOutcome(out)
	return id, out.Err
}

func (s *Session) publishOutcome(out interaction.Outcome) {
	if out.Err != nil {
		s.notify(LevelError, "edit rejected", out.Err)
	}
	if out.Viewport {
		s.publish(Event{Kind: EventViewport})
	}
	if out.Selection {
		s.publish(Event{Kind: EventSelection})
	}
	if out.Mode || out.Preview {
		s.publish(Event{Kind: EventMode})
	}
}

// Mode returns the interaction mode.
func (s *Session) Mode() interaction.Mode { return s.ctrl.Mode() }

// Selection returns the selected ids in selection order.
func (s *Session) Selection() []string { return s.sel.IDs() }

// Select replaces the selection. Every id must name a node or edge in the
// current graph; otherwise the selection is left unchanged.
func (s *Session) Select(ids ...string) error {
	if s.isClosed() {
		return ErrClosed
	}
	v := s.graph.View()
	for _, id := range ids {
		if !v.HasNode(id) && !v.HasEdge(id) {
			return &graph.NotFoundError{Op: "select", ID: id}
		}
	}
	if s.sel.Set(ids...) {
		s.publish(Event{Kind: EventSelection})
	}
	return nil
}

// Viewport returns the current camera.
func (s *Session) Viewport() viewport.Viewport { return s.vp }

// SetViewport replaces the camera, clamping its zoom.
func (s *Session) SetViewport(v viewport.Viewport) error {
	if s.isClosed() {
		return ErrClosed
	}
	before := s.vp
	next := viewport.New(s.vp.MinZoom, s.vp.MaxZoom)
	next.SetZoomAt(model.Position{}, v.Zoom)
	next.Offset = v.Offset
	s.vp = next
	if s.vp != before {
		s.publish(Event{Kind: EventViewport})
	}
	return nil
}

// Pan shifts the camera by screen units.
func (s *Session) Pan(dx, dy float64) error {
	if s.isClosed() {
		return ErrClosed
	}
	before := s.vp
	s.vp.Pan(dx, dy)
	if s.vp != before {
		s.publish(Event{Kind: EventViewport})
	}
	return nil
}

// ZoomAt zooms by factor around a screen point.
func (s *Session) ZoomAt(p model.Position, factor float64) error {
	if s.isClosed() {
		return ErrClosed
	}
	before := s.vp
	s.vp.ZoomAt(p, factor)
	if s.vp != before {
		s.publish(Event{Kind: EventViewport})
	}
	return nil
}

// FitToContent frames the laid-out graph in the screen set by the last
// Resize event.
func (s *Session) FitToContent(margin float64) error {
	if s.isClosed() {
		return ErrClosed
	}
	res := s.Layout()
	if res == nil || s.screen.Width() <= 0 {
		return nil
	}
	before := s.vp
	s.vp.FitTo(res.Bounds, s.screen, margin)
	if s.vp != before {
		s.publish(Event{Kind: EventViewport})
	}
	return nil
}

// SetRenderOptions changes label and hit-test settings. Node size always
// follows the layout configuration.
func (s *Session) SetRenderOptions(opts render.Options) {
	opts.NodeWidth = s.cfg.Layout.NodeWidth
	opts.NodeHeight = s.cfg.Layout.NodeHeight
	s.render = opts
}

// Scene projects the current state, including any drag preview and
// interaction overlay.
func (s *Session) Scene() render.Scene {
	res := s.result
	if res == nil {
		res = &layout.Result{Positions: map[string]model.Position{}}
	}
	if s.ctrl != nil {
		res = res.WithOverrides(s.ctrl.Preview())
	}
	opts := s.render
	if s.ctrl != nil {
		opts.Overlay = s.ctrl.Overlay()
	}
	sc := render.Project(s.graph.View(), res, s.vp, s.sel, opts)
	sc.Stale = s.LayoutPending()
	return sc
}

// LayoutPending reports whether the newest layout predates the current
// revision or layout settings.
func (s *Session) LayoutPending() bool {
	v := s.graph.View()
	return v.NodeCount() > 0 && s.result.Check(v, s.engine.Key()) != nil
}

// Layout returns the newest accepted layout, or nil before the first one
// lands.
func (s *Session) Layout() *layout.Result { return s.result }

// LayoutNow computes the layout for the current revision on the calling
// goroutine, bypassing the worker.
func (s *Session) LayoutNow(ctx context.Context) (*layout.Result, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	res, err := s.engine.Compute(ctx, s.graph.View())
	if err != nil {
		return nil, err
	}
	s.acceptLayout(res)
	return res, nil
}

// SetLayoutConfig swaps layout settings and recomputes.
func (s *Session) SetLayoutConfig(cfg layout.Config) {
	s.cfg.Layout = cfg
	s.engine.SetConfig(cfg)
	s.render.NodeWidth = cfg.NodeWidth
	s.render.NodeHeight = cfg.NodeHeight
	s.scheduleLayout()
}

func (s *Session) scheduleLayout() {
	v := s.graph.View()
	if res, ok := s.engine.Cached(v); ok {
		s.acceptLayout(res)
		return
	}
	if v.NodeCount() > s.cfg.Session.AsyncLayoutThreshold {
		s.worker.Request(v)
		return
	}
	res, err := s.engine.Compute(s.ctx, v)
	if err != nil {
		s.notify(LevelError, "layout failed", err)
		return
	}
	s.acceptLayout(res)
}

// applyLayout runs on the owner goroutine with a result from the worker.
func (s *Session) applyLayout(u layout.Update) {
	if u.Err != nil {
		s.notify(LevelWarn, "layout failed", u.Err)
		return
	}
	if err := u.Result.Check(s.graph.View(), s.engine.Key()); err != nil {
		s.metrics.LayoutDiscarded()
		s.log.Debug("discarding stale layout",
			zap.Uint64("layout_revision", u.Result.Revision),
			zap.Uint64("revision", s.graph.Revision()))
		return
	}
	s.acceptLayout(u.Result)
}

func (s *Session) acceptLayout(res *layout.Result) {
	if res == s.result {
		return
	}
	s.result = res
	s.publish(Event{Kind: EventLayout, Revision: res.Revision})
}

// Save persists the current snapshot. Failures are also published as
// error notifications; the graph is never touched.
func (s *Session) Save(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.provider == nil {
		return fmt.Errorf("%w: no store configured", store.ErrSaveFailed)
	}
	snap := s.graph.Snapshot()
	err := s.provider.Save(ctx, snap)
	s.metrics.Saved(err)
	if err != nil {
		s.notify(LevelError, "save failed", err)
		return err
	}
	s.savedRevision = snap.Revision
	s.log.Info("saved", zap.Uint64("revision", snap.Revision), zap.Int("nodes", len(snap.Nodes)))
	return nil
}

// Reload replaces the graph with the provider's snapshot. On failure the
// current graph is kept and an error notification is published.
func (s *Session) Reload(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.provider == nil {
		return fmt.Errorf("%w: no store configured", store.ErrLoadFailed)
	}
	snap, err := s.provider.Load(ctx)
	if err == nil {
		err = s.graph.Load(snap)
	}
	if err != nil {
		s.notify(LevelError, "reload failed", err)
		return err
	}
	s.savedRevision = s.graph.Revision()
	s.notify(LevelInfo, "reloaded", nil)
	return nil
}

// reloadExternal handles a change written by another process.
func (s *Session) reloadExternal() {
	if s.isClosed() {
		return
	}
	if s.Dirty() {
		s.notify(LevelWarn, "map changed on disk; keeping unsaved edits", nil)
		return
	}
	_ = s.Reload(s.ctx)
}

func (s *Session) scheduleAutosave() {
	if s.provider == nil || !s.cfg.Autosave.Enabled {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.cfg.Autosave.Delay, func() {
		s.queue.Post(s.autosave)
	})
}

func (s *Session) autosave() {
	if s.isClosed() || !s.Dirty() {
		return
	}
	_ = s.Save(s.ctx)
}
