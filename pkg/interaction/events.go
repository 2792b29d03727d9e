// Package interaction turns pointer and keyboard events into graph, viewport
// and selection changes through an explicit mode state machine:
//
//	Idle -> Dragging(node) -> Idle
//	Idle -> Connecting(source) -> Idle
//	Idle -> BoxSelecting -> Idle
//	Idle -> Panning -> Idle
//
// The controller is synchronous and single-threaded; hosts feed it events
// from their UI loop.
package interaction

import (
	"fmt"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Mode is the interaction state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModeConnecting
	ModeBoxSelecting
	ModePanning
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDragging:
		return "dragging"
	case ModeConnecting:
		return "connecting"
	case ModeBoxSelecting:
		return "box-selecting"
	case ModePanning:
		return "panning"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Modifiers held during an event.
type Modifiers struct {
	Shift bool
	Alt   bool
	Ctrl  bool
}

// Event is any input the controller understands.
type Event interface {
	isEvent()
}

// PointerDown is a press at a screen position.
type PointerDown struct {
	At   model.Position
	Mods Modifiers
}

// PointerMove is pointer motion, pressed or not.
type PointerMove struct {
	At model.Position
}

// PointerUp is a release at a screen position.
type PointerUp struct {
	At model.Position
}

// Wheel zooms around At. Positive Delta zooms in.
type Wheel struct {
	At    model.Position
	Delta float64
}

// Key is a named key press: "esc", "delete", "backspace", "up", "down",
// "left", "right", "+", "-", "0", "a", "c", "tab".
type Key struct {
	Name string
	Mods Modifiers
}

// StartConnect begins an edge from a node (the "start edge" gesture).
type StartConnect struct {
	NodeID string
}

// Resize tells the controller the canvas size, used for keyboard zoom.
type Resize struct {
	Width, Height float64
}

func (PointerDown) isEvent()  {}
func (PointerMove) isEvent()  {}
func (PointerUp) isEvent()    {}
func (Wheel) isEvent()        {}
func (Key) isEvent()          {}
func (StartConnect) isEvent() {}
func (Resize) isEvent()       {}

// Outcome reports what an event changed.
type Outcome struct {
	Graph     bool // a graph mutation was published
	Viewport  bool
	Selection bool
	Mode      bool
	Preview   bool // drag preview or overlay moved; redraw only
	Err       error
}

func (o *Outcome) merge(other Outcome) {
	o.Graph = o.Graph || other.Graph
	o.Viewport = o.Viewport || other.Viewport
	o.Selection = o.Selection || other.Selection
	o.Mode = o.Mode || other.Mode
	o.Preview = o.Preview || other.Preview
	if o.Err == nil {
		o.Err = other.Err
	}
}

// Changed reports whether anything visible changed.
func (o Outcome) Changed() bool {
	return o.Graph || o.Viewport || o.Selection || o.Mode || o.Preview
}
