package export

import (
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
)

// maxPNGSide caps the raster size so a huge map cannot exhaust memory.
const maxPNGSide = 8192

// pngCanvas implements render.Primitives on a gg raster context.
type pngCanvas struct {
	dc *gg.Context
}

func (c pngCanvas) stroke(st render.Style) {
	if st.Stroke == "" {
		c.dc.ClearPath()
		return
	}
	c.dc.SetHexColor(st.Stroke)
	width := st.Width
	if width <= 0 {
		width = 1
	}
	c.dc.SetLineWidth(width)
	if st.Dashed {
		c.dc.SetDash(5, 3)
	} else {
		c.dc.SetDash()
	}
	c.dc.Stroke()
}

func (c pngCanvas) Rect(r model.Rect, st render.Style) {
	c.dc.DrawRoundedRectangle(r.Min.X, r.Min.Y, r.Width(), r.Height(), 4)
	if st.Fill != "" {
		c.dc.SetHexColor(st.Fill)
		c.dc.FillPreserve()
	}
	c.stroke(st)
}

func (c pngCanvas) Line(from, to model.Position, st render.Style) {
	c.dc.DrawLine(from.X, from.Y, to.X, to.Y)
	c.stroke(st)
}

func (c pngCanvas) Text(at model.Position, s string, st render.Style) {
	color := st.Text
	if color == "" {
		color = "#000000"
	}
	c.dc.SetHexColor(color)
	c.dc.DrawStringAnchored(s, at.X, at.Y, 0.5, 0.35)
}

// WritePNG rasterizes the diagram.
func WritePNG(w io.Writer, v *graph.View, res *layout.Result, opts Options) error {
	scene, width, height := Frame(v, res, opts)
	iw := clampSide(width)
	ih := clampSide(height)

	dc := gg.NewContext(iw, ih)
	dc.SetFontFace(basicfont.Face7x13)
	if opts.Background != "" {
		dc.SetHexColor(opts.Background)
		dc.Clear()
	}
	render.Draw(scene, pngCanvas{dc: dc}, opts.Theme)
	return dc.EncodePNG(w)
}

func clampSide(x float64) int {
	n := int(math.Ceil(x))
	if n < 1 {
		return 1
	}
	if n > maxPNGSide {
		return maxPNGSide
	}
	return n
}
