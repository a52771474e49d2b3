package debugdraw

import (
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/golang/geo/r3"

	"github.com/zeusync/perception/internal/core/systems/physics"
)

const (
	discSegments = 64
	arcStep      = 5.0 // degrees per arc segment
	strokeRune   = '·'
)

// Canvas is the part of tcell.Screen the terminal drawer writes to.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (int, int)
}

// TerminalDrawer projects the world top-down (X right, Z up the screen) onto a
// character grid. Cells are about twice as tall as wide, so X is stretched.
type TerminalDrawer struct {
	canvas Canvas
	center r3.Vector
	scale  float64 // rows per world unit
	style  tcell.Style
}

func NewTerminalDrawer(canvas Canvas, center r3.Vector, scale float64) *TerminalDrawer {
	if scale <= 0 {
		scale = 0.5
	}
	return &TerminalDrawer{canvas: canvas, center: center, scale: scale, style: tcell.StyleDefault}
}

// Begin clears the canvas when it supports clearing.
func (t *TerminalDrawer) Begin() {
	if c, ok := t.canvas.(interface{ Clear() }); ok {
		c.Clear()
	}
}

// Flush shows the frame when the canvas is a screen.
func (t *TerminalDrawer) Flush() {
	if s, ok := t.canvas.(interface{ Show() }); ok {
		s.Show()
	}
}

// Project maps a world point to a cell.
func (t *TerminalDrawer) Project(p r3.Vector) (x, y int) {
	w, h := t.canvas.Size()
	rel := p.Sub(t.center)
	x = w/2 + int(math.Round(rel.X*t.scale*2))
	y = h/2 - int(math.Round(rel.Z*t.scale))
	return x, y
}

func (t *TerminalDrawer) WireDisc(center, normal r3.Vector, radius float64, color tcell.Color) {
	u, w := physics.Basis(normal)
	prev := center.Add(u.Mul(radius))
	for i := 1; i <= discSegments; i++ {
		a := 2 * math.Pi * float64(i) / discSegments
		next := center.Add(u.Mul(radius * math.Cos(a))).Add(w.Mul(radius * math.Sin(a)))
		t.Line(prev, next, color)
		prev = next
	}
}

func (t *TerminalDrawer) WireArc(center, normal, from r3.Vector, degrees, radius float64, color tcell.Color) {
	if from.Norm2() == 0 {
		return
	}
	dir := from.Normalize()
	steps := int(math.Max(1, math.Ceil(math.Abs(degrees)/arcStep)))
	prev := center.Add(dir.Mul(radius))
	for i := 1; i <= steps; i++ {
		a := degrees * float64(i) / float64(steps)
		next := center.Add(physics.RotateAround(dir, normal, a).Mul(radius))
		t.Line(prev, next, color)
		prev = next
	}
}

// Line rasterizes with Bresenham; cells outside the canvas are skipped.
func (t *TerminalDrawer) Line(from, to r3.Vector, color tcell.Color) {
	x0, y0 := t.Project(from)
	x1, y1 := t.Project(to)
	style := t.style.Foreground(color)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		t.set(x0, y0, strokeRune, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Label prints text one line per row, starting right of the anchor cell.
func (t *TerminalDrawer) Label(at r3.Vector, text string, color tcell.Color) {
	x, y := t.Project(at)
	style := t.style.Foreground(color)
	for row, line := range strings.Split(text, "\n") {
		col := x + 1
		for _, r := range line {
			t.set(col, y+row, r, style)
			col++
		}
	}
}

func (t *TerminalDrawer) set(x, y int, r rune, style tcell.Style) {
	w, h := t.canvas.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	t.canvas.SetContent(x, y, r, nil, style)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
