// Package export writes a laid-out diagram to files: SVG, PNG, a
// self-contained interactive HTML page and a Markdown outline.
//
// Every visual format goes through render.Draw, so the terminal canvas and
// the file exporters paint exactly the same scene.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vanderheijden86/topicmap/pkg/graph"
	"github.com/vanderheijden86/topicmap/pkg/layout"
	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
	"github.com/vanderheijden86/topicmap/pkg/viewport"
)

// Format names an export format.
type Format string

const (
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatSVG, FormatPNG, FormatHTML, FormatMarkdown}
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	switch s {
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "html", "htm":
		return FormatHTML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Options controls an export.
type Options struct {
	Title      string
	Margin     float64 // pixels around the content
	Scale      float64 // pixels per graph unit
	Background string  // "#rrggbb"; empty for transparent
	Theme      render.Theme
	Render     render.Options
}

// DefaultOptions returns options sized for layout.DefaultConfig.
func DefaultOptions() Options {
	return Options{
		Title:      "Topic map",
		Margin:     24,
		Scale:      1,
		Background: "#1a1a1a",
		Theme:      render.DefaultTheme(),
		Render:     render.Options{NodeWidth: render.DefaultOptions().NodeWidth, NodeHeight: render.DefaultOptions().NodeHeight},
	}
}

// Frame projects v with a camera that places the laid-out content at the
// margin. It returns the scene and the canvas size in pixels.
func Frame(v *graph.View, res *layout.Result, opts Options) (render.Scene, float64, float64) {
	scale := opts.Scale
	if !(scale > 0) {
		scale = 1
	}
	vp := viewport.New(viewport.DefaultMinZoom, viewport.DefaultMaxZoom)
	vp.Zoom = scale
	b := res.Bounds
	vp.Offset = model.Position{
		X: opts.Margin - b.Min.X*scale,
		Y: opts.Margin - b.Min.Y*scale,
	}
	ropts := opts.Render
	ropts.LabelCells = 0
	scene := render.Project(v, res, vp, nil, ropts)
	w := b.Width()*scale + 2*opts.Margin
	h := b.Height()*scale + 2*opts.Margin
	return scene, w, h
}

// Write exports v in format f.
func Write(w io.Writer, f Format, v *graph.View, res *layout.Result, opts Options) error {
	switch f {
	case FormatSVG:
		return WriteSVG(w, v, res, opts)
	case FormatPNG:
		return WritePNG(w, v, res, opts)
	case FormatHTML:
		return WriteHTML(w, v, res, opts)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(v, opts.Title))
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}
