// Package viewport tracks the pan/zoom transform between graph space and
// screen space: screen = graph*zoom + offset.
package viewport

import (
	"math"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// Default zoom bounds.
const (
	DefaultMinZoom = 0.1
	DefaultMaxZoom = 4.0
)

// Viewport is a pan offset plus a zoom scale clamped to [MinZoom, MaxZoom].
// Out-of-range requests are clamped silently; nothing here returns an error.
type Viewport struct {
	Offset  model.Position `json:"offset"`
	Zoom    float64        `json:"zoom"`
	MinZoom float64        `json:"min_zoom"`
	MaxZoom float64        `json:"max_zoom"`
}

// New returns an identity viewport with the given zoom bounds. Invalid
// bounds fall back to the defaults.
func New(minZoom, maxZoom float64) Viewport {
	if !(minZoom > 0) || math.IsInf(minZoom, 0) {
		minZoom = DefaultMinZoom
	}
	if !(maxZoom >= minZoom) || math.IsInf(maxZoom, 0) {
		maxZoom = math.Max(DefaultMaxZoom, minZoom)
	}
	return Viewport{Zoom: clamp(1, minZoom, maxZoom), MinZoom: minZoom, MaxZoom: maxZoom}
}

// Default returns an identity viewport with the default bounds.
func Default() Viewport {
	return New(DefaultMinZoom, DefaultMaxZoom)
}

// Pan shifts the offset by (dx, dy) screen units.
func (v *Viewport) Pan(dx, dy float64) {
	if math.IsNaN(dx) || math.IsNaN(dy) || math.IsInf(dx, 0) || math.IsInf(dy, 0) {
		return
	}
	v.Offset.X += dx
	v.Offset.Y += dy
}

// ZoomAt multiplies the zoom by factor while keeping the graph point under
// screen point p fixed. The new zoom is clamped; non-positive or non-finite
// factors are ignored.
func (v *Viewport) ZoomAt(p model.Position, factor float64) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return
	}
	v.SetZoomAt(p, v.Zoom*factor)
}

// SetZoomAt sets an absolute zoom level (clamped) around screen point p.
func (v *Viewport) SetZoomAt(p model.Position, zoom float64) {
	if math.IsNaN(zoom) {
		return
	}
	anchor := v.ScreenToGraph(p)
	v.Zoom = clamp(zoom, v.MinZoom, v.MaxZoom)
	// Solve p = anchor*zoom + offset for the new offset.
	v.Offset = model.Position{X: p.X - anchor.X*v.Zoom, Y: p.Y - anchor.Y*v.Zoom}
}

// Reset restores the identity transform, keeping the zoom bounds.
func (v *Viewport) Reset() {
	v.Offset = model.Position{}
	v.Zoom = clamp(1, v.MinZoom, v.MaxZoom)
}

// FitTo zooms and pans so bounds fills the screen rectangle with margin
// screen units on every side, centred.
func (v *Viewport) FitTo(bounds model.Rect, screen model.Rect, margin float64) {
	bw, bh := bounds.Width(), bounds.Height()
	sw, sh := screen.Width()-2*margin, screen.Height()-2*margin
	if bw <= 0 || bh <= 0 || sw <= 0 || sh <= 0 {
		v.Zoom = clamp(1, v.MinZoom, v.MaxZoom)
	} else {
		v.Zoom = clamp(math.Min(sw/bw, sh/bh), v.MinZoom, v.MaxZoom)
	}
	bc, sc := bounds.Center(), screen.Center()
	v.Offset = model.Position{X: sc.X - bc.X*v.Zoom, Y: sc.Y - bc.Y*v.Zoom}
}

// ScreenToGraph maps a screen point into graph space.
func (v Viewport) ScreenToGraph(p model.Position) model.Position {
	z := v.zoom()
	return model.Position{X: (p.X - v.Offset.X) / z, Y: (p.Y - v.Offset.Y) / z}
}

// GraphToScreen maps a graph point onto the screen.
func (v Viewport) GraphToScreen(p model.Position) model.Position {
	z := v.zoom()
	return model.Position{X: p.X*z + v.Offset.X, Y: p.Y*z + v.Offset.Y}
}

// RectToScreen maps a graph-space rectangle onto the screen.
func (v Viewport) RectToScreen(r model.Rect) model.Rect {
	return model.Rect{Min: v.GraphToScreen(r.Min), Max: v.GraphToScreen(r.Max)}
}

// zoom guards against a zero-value Viewport.
func (v Viewport) zoom() float64 {
	if v.Zoom > 0 {
		return v.Zoom
	}
	return 1
}

func clamp(x, lo, hi float64) float64 {
	if lo > 0 && x < lo {
		return lo
	}
	if hi > 0 && x > hi {
		return hi
	}
	return x
}
