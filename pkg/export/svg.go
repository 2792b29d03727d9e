package export

import (
	"fmt"
	"io"
	"strings"

	svg "github.com/ajstarks/svgo/float"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
)

// svgCanvas implements render.Primitives on an SVG document.
type svgCanvas struct {
	doc *svg.SVG
}

func (c svgCanvas) Rect(r model.Rect, st render.Style) {
	c.doc.Rect(r.Min.X, r.Min.Y, r.Width(), r.Height(), svgShapeStyle(st, true), `rx="4"`)
}

func (c svgCanvas) Line(from, to model.Position, st render.Style) {
	c.doc.Line(from.X, from.Y, to.X, to.Y, svgShapeStyle(st, false))
}

func (c svgCanvas) Text(at model.Position, s string, st render.Style) {
	c.doc.Text(at.X, at.Y, s, svgTextStyle(st))
}

func svgShapeStyle(st render.Style, filled bool) string {
	var b strings.Builder
	fill := "none"
	if filled && st.Fill != "" {
		fill = st.Fill
	}
	fmt.Fprintf(&b, "fill:%s", fill)
	if st.Stroke != "" {
		fmt.Fprintf(&b, ";stroke:%s", st.Stroke)
	}
	width := st.Width
	if width <= 0 {
		width = 1
	}
	fmt.Fprintf(&b, ";stroke-width:%g", width)
	if st.Dashed {
		b.WriteString(";stroke-dasharray:5,3")
	}
	return b.String()
}

func svgTextStyle(st render.Style) string {
	color := st.Text
	if color == "" {
		color = "#000000"
	}
	s := "fill:" + color + ";font-family:sans-serif;font-size:12px;text-anchor:middle;dominant-baseline:central"
	if st.Bold {
		s += ";font-weight:bold"
	}
	return s
}

// WriteSVG writes the diagram as a standalone SVG document.
func WriteSVG(w io.Writer, v *graph.View, res *layout.Result, opts Options) error {
	scene, width, height := Frame(v, res, opts)
	ew := &errWriter{w: w}
	doc := svg.New(ew)
	doc.Start(width, height)
	if opts.Title != "" {
		doc.Title(opts.Title)
	}
	if opts.Background != "" {
		doc.Rect(0, 0, width, height, "fill:"+opts.Background)
	}
	render.Draw(scene, svgCanvas{doc: doc}, opts.Theme)
	doc.End()
	return ew.err
}

// errWriter keeps the first write error, since svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, nil
}
