package tui

import (
	"math"
	"strings"
)

type canvas struct {
	cells [][]rune
	w, h  int
}

func newCanvas(w, h int) *canvas {
	cells := make([][]rune, h)
	for i := range cells {
		cells[i] = []rune(strings.Repeat(" ", w))
	}
	return &canvas{cells: cells, w: w, h: h}
}

func (c *canvas) set(x, y int, r rune) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.cells[y][x] = r
	}
}

func (c *canvas) line(x1, y1, x2, y2 int, r rune) {
	dx := intAbs(x2 - x1)
	dy := intAbs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		c.set(x1, y1, r)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString("   ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	return b.String()
}

// scene is what one frame of the cart-pole view needs.
type scene struct {
	pos, theta float64
	target     float64
	hanging    bool
	// scale maps metres to columns.
	scale float64
	// origin is the world position at the centre of the canvas.
	origin float64
}

// drawCartPole draws rail, set-point marker, cart and pole. The bob sits at
// (x - L·sinφ, L·cosφ) with φ measured from upright.
func (c *canvas) drawCartPole(s scene) {
	gy := c.h - 3
	col := func(x float64) int { return c.w/2 + int(math.Round((x-s.origin)*s.scale)) }

	for x := 1; x < c.w-1; x++ {
		c.set(x, gy+1, '═')
	}
	c.set(col(s.target), gy+2, '▲')

	cx := col(s.pos)
	for dx := -3; dx <= 3; dx++ {
		c.set(cx+dx, gy, '█')
	}
	c.set(cx-2, gy+1, '○')
	c.set(cx+2, gy+1, '○')

	sinp, cosp := math.Sin(s.theta), math.Cos(s.theta)
	if s.hanging {
		sinp, cosp = -sinp, -cosp
	}
	plen := float64(c.h) * 0.45
	py := gy - 1
	// Terminal cells are about twice as tall as wide.
	pex := cx - int(math.Round(2*plen*sinp))
	pey := py - int(math.Round(plen*cosp))
	c.line(cx, py, pex, pey, '│')
	c.set(pex, pey, '●')
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal, maxVal = math.Min(minVal, v), math.Max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	start := 0
	if len(data) > width {
		start = len(data) - width
	}
	var sb strings.Builder
	for _, v := range data[start:] {
		idx := int((v - minVal) / rang * 7)
		idx = max(0, min(7, idx))
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
