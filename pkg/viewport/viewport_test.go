package viewport

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

func approx(a, b model.Position) bool {
	const eps = 1e-6
	return math.Abs(a.X-b.X) <= eps*math.Max(1, math.Abs(a.X)) &&
		math.Abs(a.Y-b.Y) <= eps*math.Max(1, math.Abs(a.Y))
}

func TestPan_RoundTrip(t *testing.T) {
	v := Default()
	orig := v.Offset
	v.Pan(10, 10)
	if v.Offset != (model.Position{X: 10, Y: 10}) {
		t.Errorf("offset after pan = %v", v.Offset)
	}
	v.Pan(-10, -10)
	if v.Offset != orig {
		t.Errorf("offset = %v, want %v", v.Offset, orig)
	}
}

func TestPan_IgnoresNaN(t *testing.T) {
	v := Default()
	v.Pan(math.NaN(), 3)
	if v.Offset != (model.Position{}) {
		t.Errorf("NaN pan changed offset to %v", v.Offset)
	}
}

func TestZoomAt_KeepsPointFixed(t *testing.T) {
	tests := []struct {
		name   string
		point  model.Position
		factor float64
	}{
		{"ZoomIn", model.Position{X: 100, Y: 50}, 2},
		{"ZoomOut", model.Position{X: -20, Y: 300}, 0.5},
		{"Origin", model.Position{}, 1.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Default()
			v.Pan(13, -7)
			before := v.ScreenToGraph(tt.point)
			v.ZoomAt(tt.point, tt.factor)
			after := v.ScreenToGraph(tt.point)
			if !approx(before, after) {
				t.Errorf("graph point under cursor moved: %v -> %v", before, after)
			}
		})
	}
}

func TestZoomAt_ClampsSilently(t *testing.T) {
	v := New(0.5, 2)
	p := model.Position{X: 40, Y: 40}
	before := v.ScreenToGraph(p)
	v.ZoomAt(p, 100)
	if v.Zoom != 2 {
		t.Errorf("zoom = %v, want clamped to 2", v.Zoom)
	}
	if !approx(before, v.ScreenToGraph(p)) {
		t.Error("clamped zoom should still keep the anchor fixed")
	}
	v.ZoomAt(p, 0.0001)
	if v.Zoom != 0.5 {
		t.Errorf("zoom = %v, want clamped to 0.5", v.Zoom)
	}
}

func TestZoomAt_IgnoresBadFactor(t *testing.T) {
	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		v := Default()
		v.ZoomAt(model.Position{X: 1, Y: 1}, f)
		if v.Zoom != 1 || v.Offset != (model.Position{}) {
			t.Errorf("factor %v changed viewport to %+v", f, v)
		}
	}
}

func TestNew_InvalidBounds(t *testing.T) {
	v := New(-1, 0)
	if v.MinZoom != DefaultMinZoom || v.MaxZoom != DefaultMaxZoom {
		t.Errorf("bounds = [%v,%v], want defaults", v.MinZoom, v.MaxZoom)
	}
	v = New(2, 3)
	if v.Zoom != 2 {
		t.Errorf("initial zoom = %v, want clamped to 2", v.Zoom)
	}
}

func TestTransformsInverse(t *testing.T) {
	v := Default()
	v.Pan(30, -12)
	v.ZoomAt(model.Position{X: 5, Y: 5}, 1.5)
	g := model.Position{X: 123.5, Y: -44}
	if got := v.ScreenToGraph(v.GraphToScreen(g)); !approx(got, g) {
		t.Errorf("round trip = %v, want %v", got, g)
	}
}

func TestFitTo(t *testing.T) {
	v := Default()
	bounds := model.Rect{Max: model.Position{X: 200, Y: 100}}
	screen := model.Rect{Max: model.Position{X: 400, Y: 400}}
	v.FitTo(bounds, screen, 0)
	if v.Zoom != 2 {
		t.Errorf("zoom = %v, want 2", v.Zoom)
	}
	if got := v.GraphToScreen(bounds.Center()); !approx(got, screen.Center()) {
		t.Errorf("bounds centre maps to %v, want %v", got, screen.Center())
	}
}

func TestProperty_ZoomTowardPoint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := Default()
		v.Pan(rapid.Float64Range(-1e3, 1e3).Draw(t, "dx"), rapid.Float64Range(-1e3, 1e3).Draw(t, "dy"))
		p := model.Position{
			X: rapid.Float64Range(-1e3, 1e3).Draw(t, "px"),
			Y: rapid.Float64Range(-1e3, 1e3).Draw(t, "py"),
		}
		f := rapid.Float64Range(0.01, 50).Draw(t, "factor")
		before := v.ScreenToGraph(p)
		v.ZoomAt(p, f)
		if v.Zoom < v.MinZoom || v.Zoom > v.MaxZoom {
			t.Fatalf("zoom %v outside [%v,%v]", v.Zoom, v.MinZoom, v.MaxZoom)
		}
		if after := v.ScreenToGraph(p); !approx(before, after) {
			t.Fatalf("anchor moved: %v -> %v", before, after)
		}
	})
}

func TestProperty_PanRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := Default()
		dx := float64(rapid.IntRange(-10000, 10000).Draw(t, "dx"))
		dy := float64(rapid.IntRange(-10000, 10000).Draw(t, "dy"))
		v.Pan(dx, dy)
		v.Pan(-dx, -dy)
		if v.Offset != (model.Position{}) {
			t.Fatalf("offset = %v after round trip", v.Offset)
		}
	})
}
