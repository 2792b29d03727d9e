package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/topicmap/pkg/model"
	"github.com/vanderheijden86/topicmap/pkg/render"
)

// Screen units per terminal cell. A default 160x48 node spans 20x3 cells
// at zoom 1.
const (
	CellWidth  = 8
	CellHeight = 16
)

type cell struct {
	r    rune
	fg   string
	bg   string
	bold bool
	cont bool // right half of a wide rune
}

type styleKey struct {
	fg, bg string
	bold   bool
}

// Canvas is a cell grid implementing render.Primitives.
type Canvas struct {
	w, h   int
	cells  []cell
	theme  Theme
	styles map[styleKey]lipgloss.Style
}

// NewCanvas creates a blank canvas of w by h cells.
func NewCanvas(w, h int, theme Theme) *Canvas {
	c := &Canvas{theme: theme, styles: make(map[styleKey]lipgloss.Style)}
	c.Resize(w, h)
	return c
}

// Resize changes the grid size and clears it.
func (c *Canvas) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	c.w, c.h = w, h
	c.cells = make([]cell, w*h)
	c.Clear()
}

// Size returns the grid size in cells.
func (c *Canvas) Size() (int, int) { return c.w, c.h }

// ScreenSize returns the grid size in screen units.
func (c *Canvas) ScreenSize() (float64, float64) {
	return float64(c.w * CellWidth), float64(c.h * CellHeight)
}

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
}

func (c *Canvas) at(x, y int) *cell {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return nil
	}
	return &c.cells[y*c.w+x]
}

func (c *Canvas) set(x, y int, r rune, fg string, bold bool) {
	if cl := c.at(x, y); cl != nil {
		cl.r, cl.fg, cl.bold, cl.cont = r, fg, bold, false
	}
}

// CellAt converts a screen position to the cell containing it.
func CellAt(p model.Position) (int, int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

// CellCenter converts a cell to the screen position at its centre.
func CellCenter(x, y int) model.Position {
	return model.Position{
		X: float64(x*CellWidth) + CellWidth/2,
		Y: float64(y*CellHeight) + CellHeight/2,
	}
}

type borderRunes struct {
	tl, tr, bl, br, h, v rune
}

var (
	borderRounded = borderRunes{'╭', '╮', '╰', '╯', '─', '│'}
	borderDashed  = borderRunes{'╭', '╮', '╰', '╯', '┄', '┆'}
	borderHeavy   = borderRunes{'┏', '┓', '┗', '┛', '━', '┃'}
)

// Rect draws a box border, filling the interior when st.Fill is set.
func (c *Canvas) Rect(r model.Rect, st render.Style) {
	x0, y0 := CellAt(r.Min)
	x1 := int(math.Ceil(r.Max.X/CellWidth)) - 1
	y1 := int(math.Ceil(r.Max.Y/CellHeight)) - 1
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	if x1 < 0 || y1 < 0 || x0 >= c.w || y0 >= c.h {
		return
	}
	if x1 == x0 || y1 == y0 {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				c.set(x, y, '▪', st.Stroke, st.Bold)
			}
		}
		return
	}

	b := borderRounded
	switch {
	case st.Width >= 2:
		b = borderHeavy
	case st.Dashed:
		b = borderDashed
	}

	if st.Fill != "" {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if cl := c.at(x, y); cl != nil {
					*cl = cell{r: ' ', bg: st.Fill}
				}
			}
		}
	}
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, b.h, st.Stroke, false)
		c.set(x, y1, b.h, st.Stroke, false)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, b.v, st.Stroke, false)
		c.set(x1, y, b.v, st.Stroke, false)
	}
	c.set(x0, y0, b.tl, st.Stroke, false)
	c.set(x1, y0, b.tr, st.Stroke, false)
	c.set(x0, y1, b.bl, st.Stroke, false)
	c.set(x1, y1, b.br, st.Stroke, false)
}

// Line draws a straight cell path between two points. Strokes no longer
// than one cell are arrowhead strokes at this resolution and become a
// single arrow glyph at from.
func (c *Canvas) Line(from, to model.Position, st render.Style) {
	x0, y0 := CellAt(from)
	x1, y1 := CellAt(to)
	dx, dy := x1-x0, y1-y0
	if abs(dx) <= 1 && abs(dy) <= 1 {
		c.set(x0, y0, arrowGlyph(from.Sub(to)), st.Stroke, true)
		return
	}

	r := '─'
	switch {
	case dx == 0:
		r = '│'
	case dy == 0:
	case math.Abs(float64(dy)) > 2*math.Abs(float64(dx)):
		r = '│'
	case math.Abs(float64(dx)) > 4*math.Abs(float64(dy)):
		r = '─'
	case (dx > 0) == (dy > 0):
		r = '╲'
	default:
		r = '╱'
	}

	adx, ady := abs(dx), -abs(dy)
	sx, sy := 1, 1
	if dx < 0 {
		sx = -1
	}
	if dy < 0 {
		sy = -1
	}
	e := adx + ady
	for i := 0; ; i++ {
		if !st.Dashed || i%2 == 0 {
			c.set(x0, y0, r, st.Stroke, st.Width >= 2)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= ady {
			e += ady
			x0 += sx
		}
		if e2 <= adx {
			e += adx
			y0 += sy
		}
	}
}

// Text writes s centred on at, keeping the background already painted.
func (c *Canvas) Text(at model.Position, s string, st render.Style) {
	if s == "" {
		return
	}
	cx, y := CellAt(at)
	x := cx - runewidth.StringWidth(s)/2
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if cl := c.at(x, y); cl != nil {
			cl.r, cl.fg, cl.bold, cl.cont = r, st.Text, st.Bold, false
		}
		if w == 2 {
			if cl := c.at(x+1, y); cl != nil {
				cl.r, cl.cont = 0, true
			}
		}
		x += w
	}
}

func (c *Canvas) style(k styleKey) lipgloss.Style {
	if s, ok := c.styles[k]; ok {
		return s
	}
	s := c.theme.Renderer.NewStyle().Bold(k.bold)
	if k.fg != "" {
		s = s.Foreground(lipgloss.Color(k.fg))
	}
	if k.bg != "" {
		s = s.Background(lipgloss.Color(k.bg))
	}
	c.styles[k] = s
	return s
}

// Render returns the styled grid, one line per row.
func (c *Canvas) Render() string {
	var sb strings.Builder
	var run strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		var cur styleKey
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur == (styleKey{}) {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(c.style(cur).Render(run.String()))
			}
			run.Reset()
		}
		for x := 0; x < c.w; x++ {
			cl := c.cells[y*c.w+x]
			if cl.cont {
				continue
			}
			k := styleKey{fg: cl.fg, bg: cl.bg, bold: cl.bold}
			if cl.r == ' ' && cl.bg == "" {
				k = styleKey{}
			}
			if k != cur {
				flush()
				cur = k
			}
			run.WriteRune(cl.r)
		}
		flush()
	}
	return sb.String()
}

// Plain returns the grid without styling.
func (c *Canvas) Plain() string {
	var sb strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < c.w; x++ {
			if cl := c.cells[y*c.w+x]; !cl.cont {
				sb.WriteRune(cl.r)
			}
		}
	}
	return sb.String()
}

// arrowGlyph picks the arrow pointing along v.
func arrowGlyph(v model.Position) rune {
	if math.Abs(v.Y) > math.Abs(v.X) {
		if v.Y < 0 {
			return '▲'
		}
		return '▼'
	}
	if v.X < 0 {
		return '◀'
	}
	return '▶'
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
