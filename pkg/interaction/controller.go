package interaction

import (
	"math"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
	"github.com/vanderheijden86/topicmap/pkg/selection"
	"github.com/vanderheijden86/topicmap/pkg/viewport"
)

// Config tunes gesture handling.
type Config struct {
	DefaultRelation model.RelationKind
	DragThreshold   float64 // screen units of motion before a press becomes a drag
	ZoomStep        float64 // factor per wheel notch or +/- key
	PanStep         float64 // screen units per arrow key
}

// DefaultConfig returns stock gesture settings.
func DefaultConfig() Config {
	return Config{
		DefaultRelation: model.RelRelatesTo,
		DragThreshold:   3,
		ZoomStep:        1.1,
		PanStep:         40,
	}
}

// State is the controller's mode plus its per-mode data.
type State struct {
	Mode   Mode
	NodeID string         // dragged node or connection source
	Start  model.Position // screen point where the gesture began
	Last   model.Position // latest pointer position
	Origin model.Position // dragged node's graph position at press
	Moved  bool
}

// Controller owns no state besides its mode; the graph, viewport and
// selection belong to the session and are passed in at construction.
type Controller struct {
	graph *graph.Graph
	vp    *viewport.Viewport
	sel   *selection.Selection
	scene func() render.Scene
	cfg   Config

	state  State
	screen model.Rect
}

// New creates a controller. scene must return the scene currently on screen;
// it is used for hit testing.
func New(g *graph.Graph, vp *viewport.Viewport, sel *selection.Selection, scene func() render.Scene, cfg Config) *Controller {
	if cfg.ZoomStep <= 1 {
		cfg.ZoomStep = DefaultConfig().ZoomStep
	}
	if cfg.DefaultRelation == "" {
		cfg.DefaultRelation = DefaultConfig().DefaultRelation
	}
	return &Controller{graph: g, vp: vp, sel: sel, scene: scene, cfg: cfg}
}

// State returns the current mode and gesture data.
func (c *Controller) State() State { return c.state }

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.state.Mode }

// Preview returns the uncommitted position of a node being dragged.
func (c *Controller) Preview() map[string]model.Position {
	if c.state.Mode != ModeDragging || !c.state.Moved {
		return nil
	}
	return map[string]model.Position{c.state.NodeID: c.pendingPosition()}
}

// Overlay returns interaction feedback for the render adapter.
func (c *Controller) Overlay() render.Overlay {
	switch c.state.Mode {
	case ModeBoxSelecting:
		r := model.RectFromPoints(c.state.Start, c.state.Last)
		return render.Overlay{SelectRect: &r}
	case ModeConnecting:
		if box, ok := c.scene().Node(c.state.NodeID); ok {
			line := [2]model.Position{box.Rect.Center(), c.state.Last}
			return render.Overlay{Connecting: &line}
		}
	}
	return render.Overlay{}
}

// Handle processes one event.
func (c *Controller) Handle(ev Event) Outcome {
	switch ev := ev.(type) {
	case PointerDown:
		return c.pointerDown(ev)
	case PointerMove:
		return c.pointerMove(ev)
	case PointerUp:
		return c.pointerUp(ev)
	case Wheel:
		return c.wheel(ev)
	case Key:
		return c.key(ev)
	case StartConnect:
		return c.startConnect(ev.NodeID)
	case Resize:
		c.screen = model.Rect{Max: model.Position{X: ev.Width, Y: ev.Height}}
		return Outcome{}
	}
	return Outcome{}
}

func (c *Controller) setMode(s State) Outcome {
	changed := c.state.Mode != s.Mode
	c.state = s
	return Outcome{Mode: changed}
}

func (c *Controller) idle() Outcome {
	return c.setMode(State{Mode: ModeIdle})
}

func (c *Controller) pointerDown(ev PointerDown) Outcome {
	sc := c.scene()
	hit := sc.HitTest(ev.At)

	if c.state.Mode == ModeConnecting {
		return c.finishConnect(hit)
	}
	if c.state.Mode != ModeIdle {
		// A press without a release (lost pointer-up); start over.
		c.idle()
	}

	switch hit.Kind {
	case render.HitNode:
		if ev.Mods.Alt {
			return c.startConnect(hit.ID)
		}
		if ev.Mods.Shift || ev.Mods.Ctrl {
			c.sel.Toggle(hit.ID)
			return Outcome{Selection: true}
		}
		out := Outcome{}
		if !c.sel.Has(hit.ID) {
			out.Selection = c.sel.Set(hit.ID)
		}
		if sc.Stale {
			// Positions predate the graph; select without dragging.
			return out
		}
		box, _ := sc.Node(hit.ID)
		out.merge(c.setMode(State{
			Mode:   ModeDragging,
			NodeID: hit.ID,
			Start:  ev.At,
			Last:   ev.At,
			Origin: c.vp.ScreenToGraph(box.Rect.Min),
		}))
		return out

	case render.HitEdge:
		if ev.Mods.Shift || ev.Mods.Ctrl {
			c.sel.Toggle(hit.ID)
			return Outcome{Selection: true}
		}
		return Outcome{Selection: c.sel.Set(hit.ID)}
	}

	if ev.Mods.Shift {
		if sc.Stale {
			return Outcome{}
		}
		return c.setMode(State{Mode: ModeBoxSelecting, Start: ev.At, Last: ev.At})
	}
	return c.setMode(State{Mode: ModePanning, Start: ev.At, Last: ev.At})
}

func (c *Controller) pointerMove(ev PointerMove) Outcome {
	s := &c.state
	switch s.Mode {
	case ModeDragging:
		s.Last = ev.At
		if !s.Moved && ev.At.Dist(s.Start) < c.cfg.DragThreshold {
			return Outcome{}
		}
		s.Moved = true
		return Outcome{Preview: true}
	case ModePanning:
		dx, dy := ev.At.X-s.Last.X, ev.At.Y-s.Last.Y
		s.Last = ev.At
		if ev.At.Dist(s.Start) >= c.cfg.DragThreshold {
			s.Moved = true
		}
		c.vp.Pan(dx, dy)
		return Outcome{Viewport: dx != 0 || dy != 0}
	case ModeBoxSelecting, ModeConnecting:
		s.Last = ev.At
		return Outcome{Preview: true}
	}
	return Outcome{}
}

func (c *Controller) pointerUp(ev PointerUp) Outcome {
	s := c.state
	switch s.Mode {
	case ModeDragging:
		if !s.Moved {
			return c.idle()
		}
		c.state.Last = ev.At
		pos := c.pendingPosition()
		out := c.idle()
		if err := c.graph.PinNode(s.NodeID, pos); err != nil {
			out.Err = err
			return out
		}
		out.Graph = true
		return out

	case ModeBoxSelecting:
		rect := model.RectFromPoints(s.Start, ev.At)
		sc := c.scene()
		out := c.idle()
		if sc.Stale {
			return out
		}
		out.Selection = c.sel.Set(sc.NodesInRect(rect)...)
		return out

	case ModePanning:
		out := c.idle()
		if !s.Moved {
			out.Selection = c.sel.Clear()
		}
		return out
	}
	return Outcome{}
}

func (c *Controller) wheel(ev Wheel) Outcome {
	if ev.Delta == 0 {
		return Outcome{}
	}
	before := *c.vp
	c.vp.ZoomAt(ev.At, math.Pow(c.cfg.ZoomStep, ev.Delta))
	return Outcome{Viewport: *c.vp != before}
}

func (c *Controller) key(ev Key) Outcome {
	switch ev.Name {
	case "esc":
		if c.state.Mode != ModeIdle {
			return c.idle()
		}
		return Outcome{Selection: c.sel.Clear()}
	case "delete", "backspace":
		if c.state.Mode != ModeIdle {
			return Outcome{}
		}
		return c.deleteSelection()
	case "c":
		if id, ok := c.sel.Primary(); ok && c.graph.View().HasNode(id) {
			return c.startConnect(id)
		}
		return Outcome{}
	case "a":
		ids := make([]string, 0, c.graph.View().NodeCount())
		for _, n := range c.graph.View().Nodes() {
			ids = append(ids, n.ID)
		}
		return Outcome{Selection: c.sel.Set(ids...)}
	case "tab":
		return c.cycleSelection(ev.Mods.Shift)
	case "up":
		return c.pan(0, c.cfg.PanStep)
	case "down":
		return c.pan(0, -c.cfg.PanStep)
	case "left":
		return c.pan(c.cfg.PanStep, 0)
	case "right":
		return c.pan(-c.cfg.PanStep, 0)
	case "+", "=":
		return c.zoomKey(c.cfg.ZoomStep)
	case "-":
		return c.zoomKey(1 / c.cfg.ZoomStep)
	case "0":
		before := *c.vp
		c.vp.Reset()
		return Outcome{Viewport: *c.vp != before}
	}
	return Outcome{}
}

func (c *Controller) pan(dx, dy float64) Outcome {
	c.vp.Pan(dx, dy)
	return Outcome{Viewport: dx != 0 || dy != 0}
}

func (c *Controller) zoomKey(factor float64) Outcome {
	before := *c.vp
	c.vp.ZoomAt(c.screen.Center(), factor)
	return Outcome{Viewport: *c.vp != before}
}

func (c *Controller) startConnect(source string) Outcome {
	if !c.graph.View().HasNode(source) {
		return Outcome{}
	}
	at := c.state.Last
	if box, ok := c.scene().Node(source); ok {
		at = box.Rect.Center()
	}
	return c.setMode(State{Mode: ModeConnecting, NodeID: source, Start: at, Last: at})
}

func (c *Controller) finishConnect(hit render.Hit) Outcome {
	source := c.state.NodeID
	out := c.idle()
	if hit.Kind != render.HitNode || hit.ID == source {
		return out
	}
	id, err := c.graph.AddEdge(source, hit.ID, c.cfg.DefaultRelation)
	if err != nil {
		out.Err = err
		return out
	}
	out.Graph = true
	out.Selection = c.sel.Set(id)
	return out
}

// deleteSelection removes every selected id in one revision.
func (c *Controller) deleteSelection() Outcome {
	pruned := len(c.sel.Prune(c.graph.View())) > 0
	if c.sel.IsEmpty() {
		return Outcome{Selection: pruned}
	}
	ids := c.sel.IDs()
	_, err := c.graph.Apply("delete_selection", func(tx *graph.Tx) error {
		for _, id := range ids {
			if err := tx.Remove(id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Outcome{Err: err}
	}
	c.sel.Clear()
	return Outcome{Graph: true, Selection: true}
}

func (c *Controller) cycleSelection(backward bool) Outcome {
	nodes := c.graph.View().Nodes()
	if len(nodes) == 0 {
		return Outcome{}
	}
	next := 0
	if cur, ok := c.sel.Primary(); ok {
		for i, n := range nodes {
			if n.ID == cur {
				if backward {
					next = (i - 1 + len(nodes)) % len(nodes)
				} else {
					next = (i + 1) % len(nodes)
				}
				break
			}
		}
	}
	return Outcome{Selection: c.sel.Set(nodes[next].ID)}
}

// AddNode creates a node of kind with text. When exactly one node is
// selected it becomes the parent. The new node is selected.
func (c *Controller) AddNode(kind model.NodeKind, text string) (string, Outcome) {
	parent := ""
	if c.sel.Len() == 1 {
		if id, _ := c.sel.Primary(); c.graph.View().HasNode(id) {
			parent = id
		}
	}
	id, err := c.graph.AddNode(kind, text, parent)
	if err != nil {
		return "", Outcome{Err: err}
	}
	c.sel.Set(id)
	return id, Outcome{Graph: true, Selection: true}
}

// Cancel returns to Idle, dropping any uncommitted gesture.
func (c *Controller) Cancel() Outcome {
	return c.idle()
}

func (c *Controller) pendingPosition() model.Position {
	z := c.vp.Zoom
	if z <= 0 {
		z = 1
	}
	d := c.state.Last.Sub(c.state.Start)
	return c.state.Origin.Add(d.Scale(1 / z))
}
